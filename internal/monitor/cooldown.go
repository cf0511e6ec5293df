// Package monitor holds the small pieces of cross-message state the passive
// listeners need: reply cooldowns and recent-speaker attribution. Everything
// here is TTL-bounded in-process state; nothing survives a restart.
package monitor

import (
	"time"

	cache "github.com/patrickmn/go-cache"
)

// CooldownTracker suppresses repeat automated replies for a key (such as a
// character name) until the cooldown lapses.
type CooldownTracker struct {
	cache *cache.Cache
}

// NewCooldownTracker creates a tracker whose entries expire after ttl.
func NewCooldownTracker(ttl time.Duration) *CooldownTracker {
	return &CooldownTracker{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

// Begin starts a cooldown for key. It returns true when no cooldown was
// active (the caller should reply), false while one is still running.
func (t *CooldownTracker) Begin(key string) bool {
	return t.cache.Add(key, struct{}{}, cache.DefaultExpiration) == nil
}

// Active reports whether a cooldown is currently running for key.
func (t *CooldownTracker) Active(key string) bool {
	_, found := t.cache.Get(key)
	return found
}

// Speaker identifies the human whose message most recently preceded a bot
// post in a channel, used to attribute bot-triggered replies.
type Speaker struct {
	UserID   string
	Username string
}

// RecentSpeakers remembers, per channel, the last human to post, for a short
// attribution window.
type RecentSpeakers struct {
	cache *cache.Cache
}

// NewRecentSpeakers creates a tracker whose attributions expire after ttl.
func NewRecentSpeakers(ttl time.Duration) *RecentSpeakers {
	return &RecentSpeakers{
		cache: cache.New(ttl, time.Minute),
	}
}

// Note records the latest human speaker in a channel.
func (r *RecentSpeakers) Note(channelID, userID, username string) {
	r.cache.Set(channelID, Speaker{UserID: userID, Username: username}, cache.DefaultExpiration)
}

// Last returns the most recent human speaker in the channel, if one posted
// within the attribution window.
func (r *RecentSpeakers) Last(channelID string) (Speaker, bool) {
	v, found := r.cache.Get(channelID)
	if !found {
		return Speaker{}, false
	}
	return v.(Speaker), true
}
