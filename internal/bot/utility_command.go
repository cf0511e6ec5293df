package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const dmMessageLimit = 2000

// handleUtility DMs the bot owner a markdown list of the guild's text
// channels, chunked into code blocks under the message size limit.
func (h *Handler) handleUtility(s *discordgo.Session, i *discordgo.InteractionCreate) {
	invokerID := ""
	if i.Member != nil && i.Member.User != nil {
		invokerID = i.Member.User.ID
	}
	if h.cfg.Discord.OwnerID == "" || invokerID != h.cfg.Discord.OwnerID {
		h.respondEmbed(s, i, infoEmbed("Not Authorised", "This command is restricted."), true)
		return
	}
	if i.GuildID == "" {
		h.respondEmbed(s, i, infoEmbed("No Guild Context", "Run this command in a server."), true)
		return
	}

	if err := h.deferResponse(s, i, true); err != nil {
		return
	}

	channels, err := s.GuildChannels(i.GuildID)
	if err != nil {
		h.logger.Error("Failed to list guild channels", "guild_id", i.GuildID, "error", err)
		h.followupEmbed(s, i, infoEmbed("Error", "Could not list guild channels."), true)
		return
	}

	var lines []string
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s](https://discord.com/channels/%s/%s)", ch.Name, i.GuildID, ch.ID))
	}

	dm, err := s.UserChannelCreate(h.cfg.Discord.OwnerID)
	if err != nil {
		h.logger.Error("Failed to open owner DM channel", "error", err)
		h.followupEmbed(s, i, infoEmbed("Error", "Could not fetch user."), true)
		return
	}

	chunks := codeBlockChunks(lines, dmMessageLimit)
	sent := 0
	for idx, chunk := range chunks {
		if _, err := s.ChannelMessageSend(dm.ID, chunk); err != nil {
			h.logger.Error("Failed sending utility DM part", "part", idx+1, "error", err)
			continue
		}
		sent++
	}

	h.followupEmbed(s, i, infoEmbed("Utility Report",
		fmt.Sprintf("Sent %d DM part(s) to <@%s> with %d text channel entries.",
			sent, h.cfg.Discord.OwnerID, len(lines))), true)
}

// codeBlockChunks packs lines into ```md code blocks no longer than limit.
func codeBlockChunks(lines []string, limit int) []string {
	asBlock := func(content string) string {
		return "```md\n" + content + "\n```"
	}

	var chunks []string
	var current []string
	currentLen := 0
	for _, line := range lines {
		tentative := currentLen + len(line)
		if currentLen > 0 {
			tentative++ // joining newline
		}
		if len(asBlock(""))+tentative > limit && len(current) > 0 {
			chunks = append(chunks, asBlock(strings.Join(current, "\n")))
			current = []string{line}
			currentLen = len(line)
			continue
		}
		current = append(current, line)
		currentLen = tentative
	}
	if len(current) > 0 {
		chunks = append(chunks, asBlock(strings.Join(current, "\n")))
	}
	return chunks
}
