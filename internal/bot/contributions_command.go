package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"barrybot/internal/platform"
)

const (
	contributionsDefaultLimit = 500
	contributionsMaxLimit     = 10000
	contributionsChunkSize    = 3800
)

func (h *Handler) handleContributions(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.deferResponse(s, i, false); err != nil {
		return
	}

	guildCfg, ok := h.cfg.Guild(i.GuildID)
	if !ok {
		h.followupEmbed(s, i, serverErrorEmbed(), false)
		return
	}
	if guildCfg.DowntimesChannel == "" {
		h.followupEmbed(s, i, infoEmbed("Unsupported Server",
			"This command is only available in servers with a configured downtimes channel."), false)
		return
	}

	authorised, err := h.isAuthorised(s, i)
	if err != nil {
		h.logger.Error("Failed to resolve invoker roles", "error", err)
		h.followupEmbed(s, i, serverErrorEmbed(), false)
		return
	}
	if !authorised {
		h.followupEmbed(s, i, notAuthorisedEmbed(), false)
		return
	}

	limit := contributionsDefaultLimit
	if opt, found := optionMap(i.ApplicationCommandData())["message_limit"]; found {
		limit = int(opt.IntValue())
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > contributionsMaxLimit {
		limit = contributionsMaxLimit
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandFetchTimeout)
	defer cancel()

	// Oldest-first from the start of the channel, capped at the requested
	// limit to match how the tally has always been run.
	msgs, err := h.history.Messages(ctx, guildCfg.DowntimesChannel, platform.Window{Limit: limit})
	if err != nil {
		h.logger.Error("Failed to scan downtimes channel", "channel_id", guildCfg.DowntimesChannel, "error", err)
		h.followupEmbed(s, i, infoEmbed("Error",
			"An error occurred while scanning the channel history. Please try again."), false)
		return
	}

	perKey := make(map[string]int)
	grandTotal := 0
	for _, msg := range msgs {
		points, found := ParsePoints(msg.TextBlob())
		if !found {
			continue
		}
		key := contributionKey(msg)
		if key == "" {
			continue
		}
		perKey[key] += points
		grandTotal += points
	}

	if len(perKey) == 0 {
		h.followupEmbed(s, i, infoEmbed("Contribution Points",
			"No matching contribution point messages were found in the channel history."), false)
		return
	}

	keys := make([]string, 0, len(perKey))
	for key := range perKey {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if perKey[keys[a]] != perKey[keys[b]] {
			return perKey[keys[a]] > perKey[keys[b]]
		}
		return strings.ToLower(keys[a]) < strings.ToLower(keys[b])
	})

	header := fmt.Sprintf("Grand total: %d points across %d keys (scanned %d messages / requested %d).\n\n",
		grandTotal, len(perKey), len(msgs), limit)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %d", key, perKey[key]))
	}

	chunks := chunkDescription(header+strings.Join(lines, "\n"), contributionsChunkSize)
	for idx, chunk := range chunks {
		title := "Contribution Points Summary"
		if idx > 0 {
			title = fmt.Sprintf("Contribution Points Summary (cont. %d)", idx)
		}
		h.followupEmbed(s, i, infoEmbed(title, chunk), false)
	}
}

// contributionKey prefers the embed text, which leads with the embed title
// for the usual Avrae outputs, falling back to the message content.
func contributionKey(msg platform.Message) string {
	if key := FirstWordKey(msg.EmbedText); key != "" {
		return key
	}
	return FirstWordKey(msg.Content)
}
