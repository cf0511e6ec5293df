// Package platform abstracts the Discord message-history API behind a narrow
// capability interface so that report generation can be tested with fakes.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrChannelUnavailable marks a channel that cannot be resolved by the
// platform (deleted, hidden, or otherwise inaccessible). Callers are expected
// to skip such channels and continue; any other fetch error is a hard failure.
var ErrChannelUnavailable = errors.New("channel unavailable")

// Message is the minimal view of a platform message that report generation
// depends on. EmbedText carries the flattened text of any rich embeds so that
// pattern scans can treat embed-only bot posts like ordinary messages.
type Message struct {
	ID         string
	AuthorID   string
	AuthorName string
	AuthorBot  bool
	CreatedAt  time.Time
	Content    string
	EmbedText  string
}

// TextBlob returns the message content joined with its flattened embed text.
func (m Message) TextBlob() string {
	if m.EmbedText == "" {
		return m.Content
	}
	if m.Content == "" {
		return m.EmbedText
	}
	return m.Content + "\n" + m.EmbedText
}

// Window bounds a history fetch. A zero After or Before leaves that side
// open. Limit caps the number of messages returned; the platform is not
// assumed to return every message in the window when it holds more than
// Limit messages.
type Window struct {
	After  time.Time
	Before time.Time
	Limit  int
}

// HistorySource produces bounded, time-ordered pages of channel history.
type HistorySource interface {
	// Messages returns up to window.Limit messages inside the window,
	// oldest first.
	Messages(ctx context.Context, channelID string, window Window) ([]Message, error)

	// Latest returns the single newest message in the channel, or nil if
	// the channel has no messages at all.
	Latest(ctx context.Context, channelID string) (*Message, error)

	// Recent returns up to limit of the newest messages, newest first.
	Recent(ctx context.Context, channelID string, limit int) ([]Message, error)
}

// Discord message IDs are snowflakes: milliseconds since the Discord epoch
// shifted left 22 bits.
const discordEpochMillis = 1420070400000

const maxPageSize = 100

// SnowflakeForTime returns a synthetic message ID whose embedded timestamp is
// t, for use as an after/before cursor. Times at or before the Discord epoch
// yield "0".
func SnowflakeForTime(t time.Time) string {
	millis := t.UnixMilli() - discordEpochMillis
	if millis <= 0 {
		return "0"
	}
	return fmt.Sprintf("%d", millis<<22)
}

// DiscordHistory adapts a discordgo session to the HistorySource interface.
type DiscordHistory struct {
	session *discordgo.Session
}

// NewDiscordHistory wraps an open discordgo session.
func NewDiscordHistory(session *discordgo.Session) *DiscordHistory {
	return &DiscordHistory{session: session}
}

// Messages pages forward through the window with an after-cursor, collecting
// at most window.Limit messages oldest first. Pagination stops at the Before
// bound, at the limit, or when the platform runs out of messages.
func (d *DiscordHistory) Messages(ctx context.Context, channelID string, window Window) ([]Message, error) {
	if window.Limit <= 0 {
		return nil, nil
	}

	afterID := SnowflakeForTime(window.After)
	collected := make([]Message, 0, window.Limit)

	for len(collected) < window.Limit {
		pageSize := window.Limit - len(collected)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		page, err := d.session.ChannelMessages(channelID, pageSize, "", afterID, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapFetchError(channelID, err)
		}
		if len(page) == 0 {
			break
		}

		converted := convertMessages(page)
		// The after-cursor form of the endpoint is not guaranteed to hand
		// pages back oldest first, so normalise before applying the bound.
		sort.Slice(converted, func(i, j int) bool {
			return converted[i].CreatedAt.Before(converted[j].CreatedAt)
		})

		done := false
		for _, msg := range converted {
			if !window.Before.IsZero() && !msg.CreatedAt.Before(window.Before) {
				done = true
				break
			}
			collected = append(collected, msg)
			if len(collected) == window.Limit {
				break
			}
		}
		if done || len(page) < pageSize {
			break
		}
		afterID = converted[len(converted)-1].ID
	}

	return collected, nil
}

// Latest fetches the single newest message, or nil for an empty channel.
func (d *DiscordHistory) Latest(ctx context.Context, channelID string) (*Message, error) {
	page, err := d.session.ChannelMessages(channelID, 1, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapFetchError(channelID, err)
	}
	if len(page) == 0 {
		return nil, nil
	}
	msg := convertMessage(page[0])
	return &msg, nil
}

// Recent pages backward with a before-cursor, newest first.
func (d *DiscordHistory) Recent(ctx context.Context, channelID string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	beforeID := ""
	collected := make([]Message, 0, limit)

	for len(collected) < limit {
		pageSize := limit - len(collected)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		page, err := d.session.ChannelMessages(channelID, pageSize, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapFetchError(channelID, err)
		}
		if len(page) == 0 {
			break
		}

		collected = append(collected, convertMessages(page)...)
		beforeID = page[len(page)-1].ID
		if len(page) < pageSize {
			break
		}
	}

	return collected, nil
}

func convertMessages(msgs []*discordgo.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil || m.Author == nil {
			continue
		}
		out = append(out, convertMessage(m))
	}
	return out
}

func convertMessage(m *discordgo.Message) Message {
	return Message{
		ID:         m.ID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		AuthorBot:  m.Author.Bot,
		CreatedAt:  m.Timestamp,
		Content:    m.Content,
		EmbedText:  FlattenEmbeds(m.Embeds),
	}
}

// FlattenEmbeds joins the visible text of embeds (title, description, field
// names and values, footer, author) into one newline-delimited blob.
func FlattenEmbeds(embeds []*discordgo.MessageEmbed) string {
	var parts []string
	for _, e := range embeds {
		if e == nil {
			continue
		}
		if e.Title != "" {
			parts = append(parts, e.Title)
		}
		if e.Description != "" {
			parts = append(parts, e.Description)
		}
		for _, f := range e.Fields {
			if f == nil {
				continue
			}
			if f.Name != "" {
				parts = append(parts, f.Name)
			}
			if f.Value != "" {
				parts = append(parts, f.Value)
			}
		}
		if e.Footer != nil && e.Footer.Text != "" {
			parts = append(parts, e.Footer.Text)
		}
		if e.Author != nil && e.Author.Name != "" {
			parts = append(parts, e.Author.Name)
		}
	}
	return strings.Join(parts, "\n")
}

// mapFetchError distinguishes the expected-possible "channel is gone" case
// from genuine transport failures.
func mapFetchError(channelID string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return fmt.Errorf("channel %s: %w", channelID, ErrChannelUnavailable)
		}
		if restErr.Response != nil {
			switch restErr.Response.StatusCode {
			case http.StatusForbidden, http.StatusNotFound:
				return fmt.Errorf("channel %s: %w", channelID, ErrChannelUnavailable)
			}
		}
	}
	return fmt.Errorf("fetching history for channel %s: %w", channelID, err)
}
