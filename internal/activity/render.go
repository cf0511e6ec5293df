package activity

import (
	"fmt"
	"strings"
	"time"
)

// Tier glyphs used across both reports.
const (
	glyphRed    = ":red_circle:"
	glyphOrange = ":orange_circle:"
	glyphYellow = ":yellow_circle:"
	glyphGreen  = ":green_circle:"
)

// FormatUserActivity renders the tier report as an embed description. The
// Silent, Fading and Low bands are omitted when empty; the Active band header
// is always present.
func FormatUserActivity(report *UserReport) string {
	var b strings.Builder

	if silent := report.Band(TierSilent); len(silent) > 0 {
		fmt.Fprintf(&b, "%s No posts in the last %d days:\n", glyphRed, report.InactivityDays)
		for _, id := range silent {
			fmt.Fprintf(&b, "<@%s>: %d\n", id, report.Counts[id].Total())
		}
		b.WriteString("\n")
	}

	if fading := report.Band(TierFading); len(fading) > 0 {
		fmt.Fprintf(&b, "%s No posts in the last %d days:\n", glyphOrange, report.WarningDays)
		for _, id := range fading {
			fmt.Fprintf(&b, "<@%s>: %d\n", id, report.Counts[id].Recent)
		}
		b.WriteString("\n")
	}

	if low := report.Band(TierLow); len(low) > 0 {
		fmt.Fprintf(&b, "%s 1-3 posts in the last %d days:\n", glyphYellow, report.InactivityDays)
		for _, id := range low {
			fmt.Fprintf(&b, "<@%s>: %d\n", id, report.Counts[id].Total())
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s 4+ posts in the last %d days:\n", glyphGreen, report.InactivityDays)
	for _, id := range report.Band(TierActive) {
		fmt.Fprintf(&b, "<@%s>: %d\n", id, report.Counts[id].Total())
	}

	return b.String()
}

// FormatDeepDive renders the dormant-user report, or "" when there is
// nothing to report.
func FormatDeepDive(result *DeepDiveResult, inactivityDays int) string {
	if result.Empty() {
		return ""
	}

	var b strings.Builder

	if len(result.NeverPosted) > 0 {
		fmt.Fprintf(&b, "No RP posts in the last %d days. Please note that this may include brand new users who have yet to post.\n\n", wideScanDays)
		for _, id := range result.NeverPosted {
			fmt.Fprintf(&b, "<@%s>\n", id)
		}
	}

	if len(result.Dormant) > 0 {
		fmt.Fprintf(&b, "\nPosts in the past, but none in the last %d days:\n\n", inactivityDays)
		for _, u := range result.Dormant {
			fmt.Fprintf(&b, "<@%s>: last post %d days ago.\n", u.UserID, u.DaysAgo)
		}
	}

	return b.String()
}

// ElapsedPhrase renders elapsed time as "Today" when less than a full day
// has passed, else "N days ago".
func ElapsedPhrase(elapsed time.Duration) string {
	days := int(elapsed.Hours() / 24)
	if days == 0 {
		return "Today"
	}
	return fmt.Sprintf("%d days ago", days)
}

func tierGlyph(tier ChannelTier) string {
	switch tier {
	case ChannelLive:
		return glyphGreen
	case ChannelSlowing:
		return glyphYellow
	default:
		return glyphRed
	}
}

// FormatChannelLine renders one digest line: glyph, channel mention,
// last-post date and a human-readable elapsed string.
func FormatChannelLine(s ChannelStatus) string {
	return fmt.Sprintf("%s <#%s>: %s (%s)\n",
		tierGlyph(s.Tier), s.ChannelID, s.LastPost.Format("02/01/2006"), ElapsedPhrase(s.Elapsed))
}

// FormatChannelDigest renders the liveness digest: channels with an ongoing
// scene first, then the resolver-idle bucket. Returns "" when there is
// nothing at all to report.
func FormatChannelDigest(statuses []ChannelStatus) string {
	var active, idle []string
	for _, s := range statuses {
		line := FormatChannelLine(s)
		if s.BotIdle {
			idle = append(idle, line)
		} else {
			active = append(active, line)
		}
	}

	if len(active) == 0 && len(idle) == 0 {
		return ""
	}

	var b strings.Builder
	if len(active) > 0 {
		b.WriteString("# Active channels:\n(Channels with an ongoing RP scene)\n\n")
		for _, line := range active {
			b.WriteString(line)
		}
	}
	if len(idle) > 0 {
		if len(active) > 0 {
			b.WriteString("\n")
		}
		b.WriteString("# Inactive channels:\n(Waiting for a new scene to start)\n\n")
		for _, line := range idle {
			b.WriteString(line)
		}
	}
	return b.String()
}

// PingEntry is one stale channel with the distinct authors who have posted
// since the resolver bot's last turn.
type PingEntry struct {
	ChannelID string
	AuthorIDs []string
}

// FormatPingPost renders the copy-pasteable weekly ping template. Returns ""
// when there are no stale channels to ping, in which case no report should
// be sent at all.
func FormatPingPost(entries []PingEntry) string {
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Copy and paste the below for your weekly pinging needs\n\n")
	b.WriteString("```\n## Weekly pings!\nAs usual, this is a friendly check in on those scenes which seem to be slowing down.")
	b.WriteString(" How's it going? How's life? Are you both communicating and happy with the pace of things?")
	b.WriteString(" Do you need any help or hand from anyone?\n")

	for _, entry := range entries {
		mentions := make([]string, 0, len(entry.AuthorIDs))
		for _, id := range entry.AuthorIDs {
			mentions = append(mentions, fmt.Sprintf("<@%s>", id))
		}
		fmt.Fprintf(&b, "<#%s>: (%s)\n", entry.ChannelID, strings.Join(mentions, ", "))
	}
	b.WriteString("```")
	return b.String()
}
