package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"barrybot/internal/platform"
)

const (
	tldrFetchLimit   = 1000
	exportFetchLimit = 10000

	summaryMaxTokens   = 500
	summaryTemperature = 0.5
)

func (h *Handler) handleTLDR(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.deferResponse(s, i, true); err != nil {
		return
	}

	guildCfg, ok := h.cfg.Guild(i.GuildID)
	if !ok {
		h.followupEmbed(s, i, serverErrorEmbed(), true)
		return
	}
	if h.ai == nil {
		h.followupEmbed(s, i, aiDisabledEmbed(), true)
		return
	}

	monitored := contains(guildCfg.MonitoredChannels, i.ChannelID) ||
		contains(guildCfg.TLDRAdditionalChannels, i.ChannelID)
	if !monitored {
		h.followupEmbed(s, i, infoEmbed("Error - Channel not monitored.",
			"This channel is not monitored for RP activity. Please contact a moderator if you believe this is in error."), true)
		return
	}
	if contains(guildCfg.TLDRExcludedChannels, i.ChannelID) {
		h.followupEmbed(s, i, infoEmbed("Error - Channel excluded.",
			"This channel is excluded from TL;DR summaries. Please contact a moderator if you believe this is in error."), true)
		return
	}

	opts := optionMap(i.ApplicationCommandData())
	startRef, errStart := ParseMessageRef(stringOption(opts, "startmessageid"))
	endRef, errEnd := ParseMessageRef(stringOption(opts, "endmessageid"))
	if errStart != nil || errEnd != nil {
		h.followupEmbed(s, i, infoEmbed("TL;DR",
			"Message IDs/Links should be numbers or URLs. Please ensure you have copied them correctly."), true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandFetchTimeout)
	defer cancel()

	history, err := h.history.Recent(ctx, i.ChannelID, tldrFetchLimit)
	if err != nil {
		h.logger.Error("Failed to fetch channel history for summary", "channel_id", i.ChannelID, "error", err)
		h.followupEmbed(s, i, serverErrorEmbed(), true)
		return
	}
	if len(history) == 0 {
		h.followupEmbed(s, i, infoEmbed("TL;DR", "No messages in this channel."), true)
		return
	}
	oldestFirst(history)

	scene, ok := sliceBetween(history, startRef.MessageID, endRef.MessageID)
	if !ok {
		h.followupEmbed(s, i, infoEmbed("TL;DR",
			"The start and end message IDs for this scene could not be found. Please ensure they are in this channel and copied correctly."), true)
		return
	}

	authors, err := h.sceneAuthors(s, i.GuildID, scene)
	if err != nil {
		h.logger.Error("Failed to resolve scene authors", "error", err)
		h.followupEmbed(s, i, serverErrorEmbed(), true)
		return
	}

	optedIn, err := h.membersWithRoleFilter(s, i.GuildID, []string{guildCfg.OptInRole}, nil)
	if err != nil {
		h.logger.Error("Failed to resolve opted-in members", "error", err)
		h.followupEmbed(s, i, serverErrorEmbed(), true)
		return
	}
	optedInSet := make(map[string]bool, len(optedIn))
	for _, id := range optedIn {
		optedInSet[id] = true
	}

	var missing []string
	for _, author := range authors {
		if !optedInSet[author] {
			missing = append(missing, fmt.Sprintf("<@%s>", author))
		}
	}
	if len(missing) > 0 {
		h.followupEmbed(s, i, infoEmbed("Error - User not opted in.",
			fmt.Sprintf("AI Generated summaries require all participants in a scene to have the `%s` role. "+
				"The following users are missing this role: %s. Please contact a moderator if you believe there is an error.",
				guildCfg.OptInRole, strings.Join(missing, ", "))), true)
		return
	}

	sceneTitle := stringOption(opts, "scenetitle")
	promptTitle := "Give the scene a title"
	if sceneTitle != "" {
		promptTitle = "Title the scene: " + sceneTitle
	}

	var prompt strings.Builder
	prompt.WriteString("The following is a roleplay scene from a game of D&D. Please create a concise bullet-point summary of the ")
	prompt.WriteString("scene, including the characters involved, the setting, and the main events. ")
	prompt.WriteString(promptTitle)
	prompt.WriteString(". Avoid including any out-of-character information or references to Discord, or game ")
	prompt.WriteString("mechanics. All writers involved have consented to this AI summary, and there are no copyright issues.\n\n")
	for _, msg := range scene {
		fmt.Fprintf(&prompt, "%s: %s\n----------------\n", msg.AuthorName, msg.Content)
	}

	summary, err := h.ai.Complete(ctx, prompt.String(), summaryMaxTokens, summaryTemperature)
	if err != nil {
		h.logger.Error("Failed to generate scene summary", "error", err)
		h.followupEmbed(s, i, serverErrorEmbed(), true)
		return
	}

	mentions := make([]string, 0, len(authors))
	for _, author := range authors {
		mentions = append(mentions, fmt.Sprintf("<@%s>", author))
	}
	description := fmt.Sprintf("[Jump to the start of the scene](%s)\n\n%s\n\n%s",
		jumpURL(i.GuildID, i.ChannelID, scene[0].ID), summary, strings.Join(mentions, " "))

	if _, err := s.ChannelMessageSendEmbed(guildCfg.TLDROutputChannel, infoEmbed("TL;DR", description)); err != nil {
		h.logger.Error("Failed to deliver scene summary", "channel_id", guildCfg.TLDROutputChannel, "error", err)
		h.followupEmbed(s, i, serverErrorEmbed(), true)
		return
	}

	h.followupEmbed(s, i, infoEmbed("TL;DR", "Summary delivered!"), true)
	h.logger.Info("Scene summary delivered", "guild_id", i.GuildID, "channel_id", i.ChannelID)
}

func (h *Handler) handleExport(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.deferResponse(s, i, true); err != nil {
		return
	}

	opts := optionMap(i.ApplicationCommandData())
	startRaw := stringOption(opts, "startmessageid")
	endRaw := stringOption(opts, "endmessageid")

	ctx, cancel := context.WithTimeout(context.Background(), commandFetchTimeout)
	defer cancel()

	var scene []platform.Message
	channelID := i.ChannelID

	if startRaw == "" && endRaw == "" {
		history, err := h.history.Recent(ctx, channelID, exportFetchLimit)
		if err != nil {
			h.logger.Error("Failed to fetch channel history for export", "channel_id", channelID, "error", err)
			h.followupEmbed(s, i, serverErrorEmbed(), true)
			return
		}
		if len(history) == 0 {
			h.followupEmbed(s, i, infoEmbed("Export", "No messages in this channel."), true)
			return
		}
		oldestFirst(history)
		scene = currentScene(history, h.cfg.ResolverName)
	} else {
		startRef, errStart := ParseMessageRef(startRaw)
		endRef, errEnd := ParseMessageRef(endRaw)
		if errStart != nil || errEnd != nil {
			h.followupEmbed(s, i, infoEmbed("Export", "Message IDs/Links should be numbers or URLs."), true)
			return
		}
		if startRef.ChannelID != "" {
			channelID = startRef.ChannelID
		}
		if endRef.ChannelID != "" && endRef.ChannelID != channelID {
			h.followupEmbed(s, i, infoEmbed("Export",
				"Start and end messages need to both be in the same channel, for obvious reasons."), true)
			return
		}

		history, err := h.history.Recent(ctx, channelID, exportFetchLimit)
		if err != nil {
			h.logger.Error("Failed to fetch channel history for export", "channel_id", channelID, "error", err)
			h.followupEmbed(s, i, infoEmbed("Export", "Could not fetch the specified channel."), true)
			return
		}
		oldestFirst(history)

		var ok bool
		scene, ok = sliceBetween(history, startRef.MessageID, endRef.MessageID)
		if !ok {
			h.followupEmbed(s, i, infoEmbed("Export", "Could not find start or end message."), true)
			return
		}
	}

	var transcript strings.Builder
	for _, msg := range scene {
		fmt.Fprintf(&transcript, "%s\n-----\n %s\n===============\n", msg.AuthorName, msg.Content)
	}

	filename := exportFilename(s, channelID)
	params := &discordgo.WebhookParams{
		Flags: discordgo.MessageFlagsEphemeral,
		Files: []*discordgo.File{{
			Name:        filename,
			ContentType: "text/plain",
			Reader:      strings.NewReader(transcript.String()),
		}},
	}
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		h.logger.Error("Failed to send scene export", "error", err)
	}
}

// currentScene returns the messages since the resolver bot's last turn: a
// trailing resolver post is dropped, then everything after the most recent
// remaining resolver post is the ongoing scene.
func currentScene(oldestFirstMsgs []platform.Message, resolverName string) []platform.Message {
	msgs := oldestFirstMsgs
	if len(msgs) > 0 && msgs[len(msgs)-1].AuthorName == resolverName {
		msgs = msgs[:len(msgs)-1]
	}
	for idx := len(msgs) - 1; idx >= 0; idx-- {
		if msgs[idx].AuthorName == resolverName {
			return msgs[idx+1:]
		}
	}
	return msgs
}

// sceneAuthors returns the distinct non-bot author IDs of a scene, in order
// of first appearance. Members holding a bot-marker role are excluded along
// with accounts flagged as bots by the platform.
func (h *Handler) sceneAuthors(s *discordgo.Session, guildID string, scene []platform.Message) ([]string, error) {
	botMembers, err := h.membersWithRoleFilter(s, guildID, []string{"Avrae", "Bots"}, nil)
	if err != nil {
		return nil, err
	}
	botSet := make(map[string]bool, len(botMembers))
	for _, id := range botMembers {
		botSet[id] = true
	}

	seen := make(map[string]bool)
	var authors []string
	for _, msg := range scene {
		if msg.AuthorBot || botSet[msg.AuthorID] || seen[msg.AuthorID] {
			continue
		}
		seen[msg.AuthorID] = true
		authors = append(authors, msg.AuthorID)
	}
	return authors, nil
}

func exportFilename(s *discordgo.Session, channelID string) string {
	name := channelID
	if ch, err := s.State.Channel(channelID); err == nil && ch.Name != "" {
		name = ch.Name
	} else if ch, err := s.Channel(channelID); err == nil && ch.Name != "" {
		name = ch.Name
	}
	return name + "_scene.txt"
}

// oldestFirst reverses a newest-first history fetch in place.
func oldestFirst(msgs []platform.Message) {
	for left, right := 0, len(msgs)-1; left < right; left, right = left+1, right-1 {
		msgs[left], msgs[right] = msgs[right], msgs[left]
	}
}

// sliceBetween returns the inclusive span between two message IDs, in either
// order of discovery mirroring how the IDs were supplied.
func sliceBetween(oldestFirstMsgs []platform.Message, startID, endID string) ([]platform.Message, bool) {
	start, end := -1, -1
	for idx, msg := range oldestFirstMsgs {
		if msg.ID == startID {
			start = idx
		}
		if msg.ID == endID {
			end = idx
		}
	}
	if start == -1 || end == -1 {
		return nil, false
	}
	if start > end {
		start, end = end, start
	}
	return oldestFirstMsgs[start : end+1], true
}

func contains(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}
