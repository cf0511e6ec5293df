// Package bot wires the Discord surface: slash commands, passive listeners,
// and the guild-membership lookups the reports depend on.
package bot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"barrybot/internal/config"
	"barrybot/internal/monitor"
	"barrybot/internal/platform"
	"barrybot/internal/service"
)

const (
	spellbookCooldown = 24 * time.Hour
	attributionWindow = 10 * time.Second
)

// Handler manages Discord event handling for all commands and listeners.
type Handler struct {
	logger   *slog.Logger
	cfg      *config.Config
	ai       service.AIService
	github   *service.GitHubAppClient
	history  platform.HistorySource
	reminded *monitor.CooldownTracker
	speakers *monitor.RecentSpeakers
}

// NewHandler creates the bot event handler. The github client may be nil
// when the GitHub App is not configured; the /issue command then reports
// itself unavailable.
func NewHandler(logger *slog.Logger, cfg *config.Config, ai service.AIService, github *service.GitHubAppClient, history platform.HistorySource) *Handler {
	return &Handler{
		logger:   logger,
		cfg:      cfg,
		ai:       ai,
		github:   github,
		history:  history,
		reminded: monitor.NewCooldownTracker(spellbookCooldown),
		speakers: monitor.NewRecentSpeakers(attributionWindow),
	}
}

// Commands returns the slash-command definitions to register.
func (h *Handler) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "useractivity",
			Description: "See the RP activity of users.",
		},
		{
			Name:        "channelactivity",
			Description: "Get the time of the last message in a channel.",
		},
		{
			Name:        "tldr",
			Description: "Summarise the scene above. Requires all scene contributors to have opted in.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "startmessageid", Description: "Message ID or link for the start of the scene", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "endmessageid", Description: "Message ID or link for the end of the scene", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "scenetitle", Description: "Title for the scene, if preferred"},
			},
		},
		{
			Name:        "export",
			Description: "Export the scene above to a text file.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "startmessageid", Description: "Message ID or link for the start of the scene"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "endmessageid", Description: "Message ID or link for the end of the scene"},
			},
		},
		{
			Name:        "scene",
			Description: "Get a scene prompt! Describe the characters involved specifying any relevant detail.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "first_character", Description: "Details of the first character in the scene - the more the better", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "second_character", Description: "Details of the second character in the scene - the more the better", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "request", Description: "Any specific requests for the scene prompt."},
			},
		},
		{
			Name:        "solo",
			Description: "Get a solo prompt! Describe the character involved specifying any relevant detail.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "character", Description: "Details of a character in the scene - the more the better", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "request", Description: "Any specific requests for the scene prompt."},
			},
		},
		{
			Name:        "help",
			Description: "Get help with the scene prompt commands.",
		},
		{
			Name:        "issue",
			Description: "Create a GitHub issue in the preset repository",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "title", Description: "Title for the GitHub issue", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "body", Description: "Body/content for the GitHub issue"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "label", Description: "(optional) Label to apply (name)"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "assignees", Description: "(optional) Comma-separated GitHub usernames to assign", Autocomplete: true},
			},
		},
		{
			Name:        "contributions",
			Description: "Aggregate contribution points by first-word key from the downtimes channel.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "message_limit", Description: "Number of recent messages to scan (default 500, max 10000)."},
			},
		},
		{
			Name:        "utility",
			Description: "In-place server utility command for the bot owner.",
		},
	}
}

// RegisterCommands creates the slash commands globally.
func (h *Handler) RegisterCommands(s *discordgo.Session) error {
	for _, cmd := range h.Commands() {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", cmd); err != nil {
			return fmt.Errorf("registering command %s: %w", cmd.Name, err)
		}
		h.logger.Info("Registered slash command", "command", cmd.Name)
	}
	return nil
}

// HandleInteractionCreate dispatches slash commands and autocomplete.
func (h *Handler) HandleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		h.logger.Info("Received command",
			"command", data.Name,
			"guild_id", i.GuildID,
			"channel_id", i.ChannelID)

		switch data.Name {
		case "useractivity":
			h.handleUserActivity(s, i)
		case "channelactivity":
			h.handleChannelActivity(s, i)
		case "tldr":
			h.handleTLDR(s, i)
		case "export":
			h.handleExport(s, i)
		case "scene":
			h.handleScene(s, i)
		case "solo":
			h.handleSolo(s, i)
		case "help":
			h.handleHelp(s, i)
		case "issue":
			h.handleIssue(s, i)
		case "contributions":
			h.handleContributions(s, i)
		case "utility":
			h.handleUtility(s, i)
		}
	case discordgo.InteractionApplicationCommandAutocomplete:
		if i.ApplicationCommandData().Name == "issue" {
			h.handleAssigneeAutocomplete(s, i)
		}
	}
}

// ------------------------------------------------------------------
// Interaction response helpers
// ------------------------------------------------------------------

func (h *Handler) deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		h.logger.Error("Failed to defer interaction response", "error", err)
	}
	return err
}

func (h *Handler) followupEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	params := &discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		h.logger.Error("Failed to send followup embed", "error", err)
	}
}

func (h *Handler) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		h.logger.Error("Failed to respond to interaction", "error", err)
	}
}

// ------------------------------------------------------------------
// Guild membership helpers
// ------------------------------------------------------------------

// guildRoleNames maps role IDs to role names for a guild, preferring the
// session state cache over a REST call.
func guildRoleNames(s *discordgo.Session, guildID string) (map[string]string, error) {
	var roles []*discordgo.Role
	if guild, err := s.State.Guild(guildID); err == nil && len(guild.Roles) > 0 {
		roles = guild.Roles
	} else {
		fetched, err := s.GuildRoles(guildID)
		if err != nil {
			return nil, fmt.Errorf("fetching roles for guild %s: %w", guildID, err)
		}
		roles = fetched
	}

	names := make(map[string]string, len(roles))
	for _, role := range roles {
		names[role.ID] = role.Name
	}
	return names, nil
}

// memberRoleNames resolves the invoker's role IDs to names.
func memberRoleNames(s *discordgo.Session, i *discordgo.InteractionCreate) ([]string, error) {
	if i.Member == nil {
		return nil, nil
	}
	byID, err := guildRoleNames(s, i.GuildID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(i.Member.Roles))
	for _, roleID := range i.Member.Roles {
		if name, ok := byID[roleID]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func hasAnyRole(held []string, wanted []string) bool {
	for _, name := range held {
		for _, w := range wanted {
			if name == w {
				return true
			}
		}
	}
	return false
}

// isAuthorised checks the invoker against the configured allow-list of role
// names.
func (h *Handler) isAuthorised(s *discordgo.Session, i *discordgo.InteractionCreate) (bool, error) {
	held, err := memberRoleNames(s, i)
	if err != nil {
		return false, err
	}
	return hasAnyRole(held, h.cfg.AuthorisedRoles), nil
}

// guildMembers pages through the full member list of a guild.
func guildMembers(s *discordgo.Session, guildID string) ([]*discordgo.Member, error) {
	var members []*discordgo.Member
	after := ""
	for {
		page, err := s.GuildMembers(guildID, after, 1000)
		if err != nil {
			return nil, fmt.Errorf("fetching members for guild %s: %w", guildID, err)
		}
		members = append(members, page...)
		if len(page) < 1000 {
			return members, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// trackedUsers returns the member IDs satisfying the include/exclude role
// filter, computed fresh for this invocation.
func (h *Handler) trackedUsers(s *discordgo.Session, guildID string) ([]string, error) {
	return h.membersWithRoleFilter(s, guildID, h.cfg.IncludeRoles, h.cfg.ExcludeRoles)
}

func (h *Handler) membersWithRoleFilter(s *discordgo.Session, guildID string, include, exclude []string) ([]string, error) {
	byID, err := guildRoleNames(s, guildID)
	if err != nil {
		return nil, err
	}
	members, err := guildMembers(s, guildID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, member := range members {
		if member.User == nil {
			continue
		}
		names := make([]string, 0, len(member.Roles))
		for _, roleID := range member.Roles {
			if name, ok := byID[roleID]; ok {
				names = append(names, name)
			}
		}
		if len(include) > 0 && !hasAnyRole(names, include) {
			continue
		}
		if hasAnyRole(names, exclude) {
			continue
		}
		ids = append(ids, member.User.ID)
	}
	return ids, nil
}

// optionMap indexes the interaction's options by name.
func optionMap(data discordgo.ApplicationCommandInteractionData) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		m[opt.Name] = opt
	}
	return m
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}
