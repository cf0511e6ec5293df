package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"barrybot/internal/platform"
)

// ChannelTier is the liveness band of a monitored channel.
type ChannelTier int

const (
	ChannelLive ChannelTier = iota
	ChannelSlowing
	ChannelStale
)

// ChannelStatus describes the liveness of one monitored channel, derived
// from its single newest message.
type ChannelStatus struct {
	ChannelID string
	LastPost  time.Time
	Elapsed   time.Duration
	Tier      ChannelTier
	// BotIdle is set when the newest message was authored by the scene
	// resolver bot: the pause is deliberate, so the channel is never
	// eligible for the stale-ping list regardless of elapsed time.
	BotIdle bool
}

// NeedsPing reports whether the channel belongs in the stale-ping list.
func (s ChannelStatus) NeedsPing() bool {
	return s.Tier == ChannelStale && !s.BotIdle
}

// ChannelTierFor classifies elapsed time against the yellow/red thresholds.
// Requires yellow <= red.
func ChannelTierFor(elapsed, yellow, red time.Duration) ChannelTier {
	switch {
	case elapsed <= yellow:
		return ChannelLive
	case elapsed <= red:
		return ChannelSlowing
	default:
		return ChannelStale
	}
}

// ClassifyChannels inspects the single newest message of each monitored
// channel. Channels with no messages at all, and channels the platform
// cannot resolve, are omitted from the result; any other fetch error aborts
// classification.
func ClassifyChannels(ctx context.Context, src platform.HistorySource, channelIDs []string, yellowDays, redDays int, resolverName string, now time.Time) ([]ChannelStatus, error) {
	yellow := time.Duration(yellowDays) * 24 * time.Hour
	red := time.Duration(redDays) * 24 * time.Hour

	var statuses []ChannelStatus
	for _, channelID := range channelIDs {
		msg, err := src.Latest(ctx, channelID)
		if errors.Is(err, platform.ErrChannelUnavailable) {
			slog.Warn("Skipping unavailable channel in staleness report", "channel_id", channelID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("classifying channels: %w", err)
		}
		if msg == nil {
			continue
		}

		elapsed := now.Sub(msg.CreatedAt)
		statuses = append(statuses, ChannelStatus{
			ChannelID: channelID,
			LastPost:  msg.CreatedAt,
			Elapsed:   elapsed,
			Tier:      ChannelTierFor(elapsed, yellow, red),
			BotIdle:   msg.AuthorName == resolverName,
		})
	}

	return statuses, nil
}

// PendingAuthors walks a stale channel's history backward from the newest
// message, collecting distinct author IDs in most-recent-first order. The
// walk stops at the first message authored by the resolver bot, which marks
// the end of the current unresolved turn, and never inspects more than a
// fixed number of messages.
func PendingAuthors(ctx context.Context, src platform.HistorySource, channelID, resolverName string) ([]string, error) {
	msgs, err := src.Recent(ctx, channelID, backScanLimit)
	if err != nil {
		return nil, fmt.Errorf("scanning for pending authors: %w", err)
	}

	var authors []string
	seen := make(map[string]bool)
	for _, msg := range msgs {
		if msg.AuthorName == resolverName {
			break
		}
		if !seen[msg.AuthorID] {
			seen[msg.AuthorID] = true
			authors = append(authors, msg.AuthorID)
		}
	}
	return authors, nil
}
