// Package activity implements the roleplay activity reports: per-user posting
// tiers over nested time windows, the dormant-user deep dive, and per-channel
// staleness classification.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"barrybot/internal/platform"
)

// Fetch caps, carried over from the bot this report format originated in.
// A channel holding more messages than the cap inside a window is silently
// undercounted; that is a known approximation of this report, not a bug to
// paginate away.
const (
	windowFetchLimit = 50
	wideScanLimit    = 500
	wideScanDays     = 180
	backScanLimit    = 25
)

// Params describes one activity-report invocation. TrackedUsers is computed
// fresh from the guild member list by the caller; nothing here persists
// across invocations.
type Params struct {
	ChannelIDs     []string
	TrackedUsers   []string
	WarningDays    int
	InactivityDays int
	Now            time.Time
}

// UserCounts holds the per-user tallies for the two nested windows.
type UserCounts struct {
	// Recent counts messages in [now-warning, now).
	Recent int
	// Older counts messages in [now-inactivity, now-warning).
	Older int
}

// Total is the count across the full inactivity window.
func (c UserCounts) Total() int {
	return c.Recent + c.Older
}

// Tier is the activity band a tracked user falls into. The bands partition
// the tracked set; TierFor applies them in order so a user with no posts at
// all is Silent, never Fading.
type Tier int

const (
	TierSilent Tier = iota
	TierFading
	TierLow
	TierActive
)

// TierFor derives the band from the window counts.
func TierFor(c UserCounts) Tier {
	switch {
	case c.Total() == 0:
		return TierSilent
	case c.Recent == 0:
		return TierFading
	case c.Total() <= 3:
		return TierLow
	default:
		return TierActive
	}
}

// UserReport is the outcome of one aggregation pass.
type UserReport struct {
	Counts         map[string]UserCounts
	WarningDays    int
	InactivityDays int
}

// Band returns the user IDs in the given tier, sorted ascending by total
// count so the most concerning users lead, with the ID as tie-break.
func (r *UserReport) Band(tier Tier) []string {
	var ids []string
	for id, c := range r.Counts {
		if TierFor(c) == tier {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		ci, cj := r.Counts[ids[i]], r.Counts[ids[j]]
		if ci.Total() != cj.Total() {
			return ci.Total() < cj.Total()
		}
		return ids[i] < ids[j]
	})
	return ids
}

// BuildUserReport tallies tracked-user posts across the monitored channels.
// Each channel contributes two independent capped fetches, one per
// sub-window. Channels the platform cannot resolve are skipped; any other
// fetch error aborts the report, since tiers computed over an unknown subset
// of channels would misclassify users.
func BuildUserReport(ctx context.Context, src platform.HistorySource, p Params) (*UserReport, error) {
	recentStart := p.Now.AddDate(0, 0, -p.WarningDays)
	olderStart := p.Now.AddDate(0, 0, -p.InactivityDays)

	counts := make(map[string]UserCounts, len(p.TrackedUsers))
	for _, id := range p.TrackedUsers {
		counts[id] = UserCounts{}
	}

	for _, channelID := range p.ChannelIDs {
		recent, err := src.Messages(ctx, channelID, platform.Window{
			After: recentStart,
			Limit: windowFetchLimit,
		})
		if errors.Is(err, platform.ErrChannelUnavailable) {
			slog.Warn("Skipping unavailable channel in activity report", "channel_id", channelID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("building user report: %w", err)
		}

		older, err := src.Messages(ctx, channelID, platform.Window{
			After:  olderStart,
			Before: recentStart,
			Limit:  windowFetchLimit,
		})
		if errors.Is(err, platform.ErrChannelUnavailable) {
			slog.Warn("Skipping unavailable channel in activity report", "channel_id", channelID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("building user report: %w", err)
		}

		// Tally only after both fetches succeeded, so a channel that
		// vanishes mid-pass is excluded from all counts.
		for _, msg := range recent {
			if c, tracked := counts[msg.AuthorID]; tracked {
				c.Recent++
				counts[msg.AuthorID] = c
			}
		}
		for _, msg := range older {
			if c, tracked := counts[msg.AuthorID]; tracked {
				c.Older++
				counts[msg.AuthorID] = c
			}
		}
	}

	return &UserReport{
		Counts:         counts,
		WarningDays:    p.WarningDays,
		InactivityDays: p.InactivityDays,
	}, nil
}

// DormantUser is a silent user for whom the wide scan found at least one
// older post. DaysAgo is the age of their most recent post.
type DormantUser struct {
	UserID  string
	DaysAgo int
}

// DeepDiveResult splits the silent users into those with a known last post
// and those the wide scan found nothing for at all. The split replaces the
// out-of-range day marker the report format used historically.
type DeepDiveResult struct {
	// Dormant is sorted descending by DaysAgo: longest silence first.
	Dormant []DormantUser
	// NeverPosted holds silent users with no post in the whole wide scan,
	// which may include brand-new members who have yet to post.
	NeverPosted []string
}

// Empty reports whether the deep dive found nothing to say.
func (r *DeepDiveResult) Empty() bool {
	return len(r.Dormant) == 0 && len(r.NeverPosted) == 0
}

// DeepDive performs the secondary wide scan for silent users only: up to 500
// messages per channel over [now-180d, now-inactivity), keeping the minimum
// days-ago value seen per user. Finding an additional older message never
// increases a user's reported recency.
func DeepDive(ctx context.Context, src platform.HistorySource, p Params, silent []string) (*DeepDiveResult, error) {
	result := &DeepDiveResult{}
	if len(silent) == 0 {
		return result, nil
	}

	silentSet := make(map[string]bool, len(silent))
	for _, id := range silent {
		silentSet[id] = true
	}

	wideStart := p.Now.AddDate(0, 0, -wideScanDays)
	olderStart := p.Now.AddDate(0, 0, -p.InactivityDays)

	lastSeen := make(map[string]int)
	for _, channelID := range p.ChannelIDs {
		msgs, err := src.Messages(ctx, channelID, platform.Window{
			After:  wideStart,
			Before: olderStart,
			Limit:  wideScanLimit,
		})
		if errors.Is(err, platform.ErrChannelUnavailable) {
			slog.Warn("Skipping unavailable channel in deep dive", "channel_id", channelID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("deep dive scan: %w", err)
		}

		for _, msg := range msgs {
			if !silentSet[msg.AuthorID] {
				continue
			}
			days := int(p.Now.Sub(msg.CreatedAt).Hours() / 24)
			if existing, seen := lastSeen[msg.AuthorID]; !seen || days < existing {
				lastSeen[msg.AuthorID] = days
			}
		}
	}

	for _, id := range silent {
		if days, seen := lastSeen[id]; seen {
			result.Dormant = append(result.Dormant, DormantUser{UserID: id, DaysAgo: days})
		} else {
			result.NeverPosted = append(result.NeverPosted, id)
		}
	}

	sort.Slice(result.Dormant, func(i, j int) bool {
		if result.Dormant[i].DaysAgo != result.Dormant[j].DaysAgo {
			return result.Dormant[i].DaysAgo > result.Dormant[j].DaysAgo
		}
		return result.Dormant[i].UserID < result.Dormant[j].UserID
	})
	sort.Strings(result.NeverPosted)

	return result, nil
}
