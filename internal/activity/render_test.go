package activity

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatUserActivityBands(t *testing.T) {
	report := &UserReport{
		Counts: map[string]UserCounts{
			"silent": {},
			"fading": {Older: 2},
			"low":    {Recent: 1, Older: 1},
			"active": {Recent: 5},
		},
		WarningDays:    14,
		InactivityDays: 31,
	}

	desc := FormatUserActivity(report)

	assert.Contains(t, desc, ":red_circle: No posts in the last 31 days:\n<@silent>: 0")
	assert.Contains(t, desc, ":orange_circle: No posts in the last 14 days:\n<@fading>: 0")
	assert.Contains(t, desc, ":yellow_circle: 1-3 posts in the last 31 days:\n<@low>: 2")
	assert.Contains(t, desc, ":green_circle: 4+ posts in the last 31 days:\n<@active>: 5")

	// Band order: silent, fading, low, active.
	assert.Less(t, strings.Index(desc, ":red_circle:"), strings.Index(desc, ":orange_circle:"))
	assert.Less(t, strings.Index(desc, ":orange_circle:"), strings.Index(desc, ":yellow_circle:"))
	assert.Less(t, strings.Index(desc, ":yellow_circle:"), strings.Index(desc, ":green_circle:"))
}

func TestFormatUserActivityOmitsEmptyBands(t *testing.T) {
	report := &UserReport{
		Counts:         map[string]UserCounts{"active": {Recent: 4}},
		WarningDays:    14,
		InactivityDays: 31,
	}

	desc := FormatUserActivity(report)
	assert.NotContains(t, desc, ":red_circle:")
	assert.NotContains(t, desc, ":orange_circle:")
	assert.NotContains(t, desc, ":yellow_circle:")
	// The active header is always rendered.
	assert.Contains(t, desc, ":green_circle: 4+ posts in the last 31 days:")
}

func TestFormatDeepDive(t *testing.T) {
	result := &DeepDiveResult{
		Dormant:     []DormantUser{{UserID: "old", DaysAgo: 95}, {UserID: "older", DaysAgo: 40}},
		NeverPosted: []string{"ghost"},
	}

	desc := FormatDeepDive(result, 31)
	assert.Contains(t, desc, "No RP posts in the last 180 days")
	assert.Contains(t, desc, "<@ghost>")
	assert.Contains(t, desc, "none in the last 31 days")
	assert.Contains(t, desc, "<@old>: last post 95 days ago.")
	assert.Contains(t, desc, "<@older>: last post 40 days ago.")
}

func TestFormatDeepDiveEmpty(t *testing.T) {
	assert.Equal(t, "", FormatDeepDive(&DeepDiveResult{}, 31))
}

func TestElapsedPhrase(t *testing.T) {
	assert.Equal(t, "Today", ElapsedPhrase(3*time.Hour))
	assert.Equal(t, "Today", ElapsedPhrase(23*time.Hour))
	assert.Equal(t, "1 days ago", ElapsedPhrase(25*time.Hour))
	assert.Equal(t, "10 days ago", ElapsedPhrase(10*day+time.Hour))
}

func TestFormatChannelLine(t *testing.T) {
	status := ChannelStatus{
		ChannelID: "123",
		LastPost:  time.Date(2024, 5, 22, 9, 0, 0, 0, time.UTC),
		Elapsed:   10 * day,
		Tier:      ChannelSlowing,
	}
	assert.Equal(t, ":yellow_circle: <#123>: 22/05/2024 (10 days ago)\n", FormatChannelLine(status))
}

func TestFormatChannelDigestBuckets(t *testing.T) {
	statuses := []ChannelStatus{
		{ChannelID: "a", Tier: ChannelLive, LastPost: testNow, Elapsed: time.Hour},
		{ChannelID: "b", Tier: ChannelStale, LastPost: daysAgo(20), Elapsed: 20 * day, BotIdle: true},
	}

	digest := FormatChannelDigest(statuses)
	assert.Contains(t, digest, "# Active channels:")
	assert.Contains(t, digest, "<#a>")
	assert.Contains(t, digest, "# Inactive channels:")
	assert.Contains(t, digest, "<#b>")
	assert.Less(t, strings.Index(digest, "<#a>"), strings.Index(digest, "<#b>"))
}

func TestFormatChannelDigestEmpty(t *testing.T) {
	assert.Equal(t, "", FormatChannelDigest(nil))
}

func TestFormatPingPost(t *testing.T) {
	post := FormatPingPost([]PingEntry{
		{ChannelID: "z", AuthorIDs: []string{"u1", "u2"}},
	})
	assert.Contains(t, post, "## Weekly pings!")
	assert.Contains(t, post, "<#z>: (<@u1>, <@u2>)")
	assert.True(t, strings.HasSuffix(post, "```"))
}

func TestFormatPingPostEmpty(t *testing.T) {
	// No stale channels means no ping report at all, not a "zero
	// channels" message.
	assert.Equal(t, "", FormatPingPost(nil))
}
