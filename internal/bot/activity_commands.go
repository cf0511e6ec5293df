package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"barrybot/internal/activity"
	"barrybot/internal/config"
	"barrybot/internal/platform"
)

const (
	levelUpLookbackDays = 14
	defaultLevelUpLimit = 200
	commandFetchTimeout = 2 * time.Minute
)

func (h *Handler) handleUserActivity(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.deferResponse(s, i, false); err != nil {
		return
	}

	guildCfg, ok := h.cfg.Guild(i.GuildID)
	if !ok {
		h.followupEmbed(s, i, serverErrorEmbed(), false)
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

	tracked, err := h.trackedUsers(s, i.GuildID)
	if err != nil {
		h.logger.Error("Failed to compute tracked users", "error", err)
		h.followupEmbed(s, i, serverErrorEmbed(), false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandFetchTimeout)
	defer cancel()

	params := activity.Params{
		ChannelIDs:     guildCfg.MonitoredChannels,
		TrackedUsers:   tracked,
		WarningDays:    h.cfg.Activity.WarningDays,
		InactivityDays: h.cfg.Activity.InactivityDays,
		Now:            time.Now().UTC(),
	}

	report, err := activity.BuildUserReport(ctx, h.history, params)
	if err != nil {
		h.logger.Error("Failed to build user activity report", "error", err)
		h.followupEmbed(s, i, serverErrorEmbed(), false)
		return
	}

	for _, embed := range reportEmbeds("User Activity in RP Channels", activity.FormatUserActivity(report), colourBlue) {
		h.followupEmbed(s, i, embed, false)
	}

	// level-up scan and deep dive are best-effort extras; the tier report
	// above has already been delivered if we get here.
	h.reportLevelUps(ctx, s, i, guildCfg)
	h.reportDeepDive(ctx, s, i, params, report)
}

func (h *Handler) reportLevelUps(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildCfg config.GuildConfig) {
	if len(guildCfg.LevelUpChannels) == 0 {
		return
	}

	after := time.Now().UTC().AddDate(0, 0, -levelUpLookbackDays)
	var found []LevelUp
	for _, ch := range guildCfg.LevelUpChannels {
		limit := ch.Limit
		if limit <= 0 {
			limit = defaultLevelUpLimit
		}
		msgs, err := h.history.Messages(ctx, ch.ChannelID, platform.Window{After: after, Limit: limit})
		if err != nil {
			h.logger.Error("Failed to scan level-up channel", "channel_id", ch.ChannelID, "error", err)
			return
		}
		for _, msg := range msgs {
			found = append(found, FindLevelUps(msg.TextBlob())...)
		}
	}

	description := "No level-ups found in the last two weeks."
	if unique := DedupeLevelUps(found); len(unique) > 0 {
		var lines []string
		for _, lu := range unique {
			lines = append(lines, fmt.Sprintf("- %s reached level %d!", lu.Character, lu.Level))
		}
		description = "Level-ups in the last two weeks:\n" + strings.Join(lines, "\n")
	}
	h.followupEmbed(s, i, infoEmbed("Recent Level-ups", description), false)
}

func (h *Handler) reportDeepDive(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, params activity.Params, report *activity.UserReport) {
	silent := report.Band(activity.TierSilent)
	if len(silent) == 0 {
		return
	}

	result, err := activity.DeepDive(ctx, h.history, params, silent)
	if err != nil {
		h.logger.Error("Failed to run dormant-user deep dive", "error", err)
		return
	}

	description := activity.FormatDeepDive(result, params.InactivityDays)
	if description == "" {
		return
	}
	for _, embed := range reportEmbeds("Inactive User Deep Dive", description, colourOrange) {
		h.followupEmbed(s, i, embed, false)
	}
}

func (h *Handler) handleChannelActivity(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.deferResponse(s, i, false); err != nil {
		return
	}

	guildCfg, ok := h.cfg.Guild(i.GuildID)
	if !ok {
		h.followupEmbed(s, i, serverErrorEmbed(), false)
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

	ctx, cancel := context.WithTimeout(context.Background(), commandFetchTimeout)
	defer cancel()

	statuses, err := activity.ClassifyChannels(ctx, h.history, guildCfg.MonitoredChannels,
		guildCfg.YellowDays, guildCfg.RedDays, h.cfg.ResolverName, time.Now().UTC())
	if err != nil {
		h.logger.Error("Failed to classify channel liveness", "error", err)
		h.followupEmbed(s, i, serverErrorEmbed(), false)
		return
	}

	if digest := activity.FormatChannelDigest(statuses); digest != "" {
		for _, embed := range reportEmbeds("Last message", digest, colourBlue) {
			h.followupEmbed(s, i, embed, false)
		}
	}

	var entries []activity.PingEntry
	for _, status := range statuses {
		if !status.NeedsPing() {
			continue
		}
		authors, err := activity.PendingAuthors(ctx, h.history, status.ChannelID, h.cfg.ResolverName)
		if err != nil {
			h.logger.Error("Failed to collect pending authors", "channel_id", status.ChannelID, "error", err)
			h.followupEmbed(s, i, serverErrorEmbed(), false)
			return
		}
		entries = append(entries, activity.PingEntry{ChannelID: status.ChannelID, AuthorIDs: authors})
	}

	if ping := activity.FormatPingPost(entries); ping != "" {
		for _, embed := range reportEmbeds("Ping Post", ping, colourRed) {
			h.followupEmbed(s, i, embed, false)
		}
	}
}
