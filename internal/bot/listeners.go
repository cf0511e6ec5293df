package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"barrybot/internal/monitor"
	"barrybot/internal/platform"
)

const forwardMaxLength = 1800

// HandleMessageCreate runs the passive listeners over every message in the
// configured listener guild.
func (h *Handler) HandleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	if h.cfg.Listeners.GuildID == "" || m.GuildID != h.cfg.Listeners.GuildID {
		return
	}

	if !m.Author.Bot {
		h.speakers.Note(m.ChannelID, m.Author.ID, strings.ToLower(m.Author.Username))
	}

	h.checkSpellbookReminder(s, m)

	isResolver := m.Author.Bot && strings.EqualFold(m.Author.Username, h.cfg.ResolverName)
	if m.Author.Bot && !isResolver {
		return
	}

	if !m.Author.Bot {
		h.handleNyoom(s, m)
	}
	if isResolver {
		h.handleResolverTriggers(s, m)
	}
	h.forwardRoleMention(s, m)
	if !m.Author.Bot {
		h.handleNameAlerts(s, m)
	}
}

// triggeringUser attributes a message to the human behind it. Bot output is
// attributed to the last human speaker in the channel, within the
// attribution window.
func (h *Handler) triggeringUser(m *discordgo.MessageCreate) (monitor.Speaker, bool) {
	if !m.Author.Bot {
		return monitor.Speaker{UserID: m.Author.ID, Username: strings.ToLower(m.Author.Username)}, true
	}
	return h.speakers.Last(m.ChannelID)
}

func (h *Handler) triggeringUserIgnored(m *discordgo.MessageCreate) bool {
	speaker, found := h.triggeringUser(m)
	if !found {
		return false
	}
	return h.cfg.Ignored(speaker.UserID, speaker.Username)
}

func (h *Handler) handleNyoom(s *discordgo.Session, m *discordgo.MessageCreate) {
	if contains(h.cfg.Listeners.NyoomImmuneChannels, m.ChannelID) {
		return
	}
	if contains(h.cfg.Listeners.NyoomImmuneUsers, m.Author.Username) {
		return
	}
	if h.triggeringUserIgnored(m) {
		return
	}
	if !nyoomPattern.MatchString(m.Content) {
		return
	}

	if err := s.MessageReactionAdd(m.ChannelID, m.ID, "🏎️"); err != nil {
		h.logger.Error("Failed to add nyoom reaction", "error", err)
	}
	h.reply(s, m, "## 🏎️ nyooooom 🏎️")
}

// handleResolverTriggers replies with workaround tips when the resolver bot
// reports content-access problems.
func (h *Handler) handleResolverTriggers(s *discordgo.Session, m *discordgo.MessageCreate) {
	if h.triggeringUserIgnored(m) {
		return
	}

	text := strings.ToLower(m.Content + "\n" + platform.FlattenEmbeds(m.Embeds))
	if strings.Contains(text, "this monster's full details") {
		return
	}

	if strings.Contains(text, "go to marketplace") {
		h.reply(s, m, "It looks like you're trying to use content that D&D Beyond doesn't want you to have. "+
			"Please try using `!aa` instead of `!a`, and if stuck please ping a `@dragonspeaker` for assistance.\n\n"+
			"React with :x: to this message if you'd like to opt out of automated replies")
	}
	if strings.Contains(text, "it looks like you don't have your discord account connected to your d&d beyond account") {
		h.reply(s, m, "It looks like you don't have access to SRD content. Please try using `!aa` instead of `!a`, and if stuck "+
			"please ping a `@dragonspeaker` for assistance.\n\nReact with :x: to this message if you'd like to opt out of automated replies.")
	}
}

// checkSpellbookReminder suggests the !sbb alias when a homebrew-footnoted
// spellbook embed appears, at most once per character per day.
func (h *Handler) checkSpellbookReminder(s *discordgo.Session, m *discordgo.MessageCreate) {
	var footer, description strings.Builder
	footer.WriteString(m.Content)
	for _, embed := range m.Embeds {
		if embed == nil {
			continue
		}
		if embed.Footer != nil && embed.Footer.Text != "" {
			footer.WriteString(" ")
			footer.WriteString(embed.Footer.Text)
		}
		if embed.Description != "" {
			description.WriteString(embed.Description)
			description.WriteString("\n")
		}
	}

	character := SpellbookCharacter(footer.String(), description.String())
	if character == "" {
		return
	}
	if h.triggeringUserIgnored(m) {
		return
	}
	if !h.reminded.Begin(character) {
		return
	}

	h.reply(s, m, "💡 **Tip:** You can use `!sbb` as a more reliable alias to see your spellbook!\n\n"+
		"It should be less confused by homebrew spells and Avrae's weird choices.\n\n"+
		"-# You will not receive this tip again for 24 hours. If you would rather opt out of automated tips, react to this message with :x: .")
	h.logger.Info("Sent spellbook alias tip", "character", character)
}

// forwardRoleMention copies helper-role pings into the helpers' own channel.
func (h *Handler) forwardRoleMention(s *discordgo.Session, m *discordgo.MessageCreate) {
	roleID := h.cfg.Listeners.ForwardRoleID
	destID := h.cfg.Listeners.ForwardChannelID
	if roleID == "" || destID == "" || m.ChannelID == destID || m.Author.Bot {
		return
	}
	if !contains(m.MentionRoles, roleID) && !strings.Contains(m.Content, fmt.Sprintf("<@&%s>", roleID)) {
		return
	}

	link := jumpURL(m.GuildID, m.ChannelID, m.ID)
	prefix := fmt.Sprintf("Forwarded helper mention from <@%s> in <#%s>:\n", m.Author.ID, m.ChannelID)
	reserved := len(prefix) + len("\nMessage: ") + len(link) + 3
	content := m.Content
	if len(content)+reserved > forwardMaxLength {
		if allowed := forwardMaxLength - reserved; allowed > 0 {
			content = content[:allowed] + "... (truncated)"
		} else {
			content = "(content omitted - too long)"
		}
	}

	if _, err := s.ChannelMessageSend(destID, prefix+content+"\nMessage: "+link); err != nil {
		h.logger.Error("Failed to forward role mention", "error", err)
	}
}

// handleNameAlerts DMs configured users when someone else mentions one of
// their watch phrases.
func (h *Handler) handleNameAlerts(s *discordgo.Session, m *discordgo.MessageCreate) {
	contentLower := strings.ToLower(m.Content)
	for _, alert := range h.cfg.Listeners.NameAlerts {
		if m.Author.ID == alert.UserID {
			continue
		}
		for _, phrase := range alert.Phrases {
			if !strings.Contains(contentLower, strings.ToLower(phrase)) {
				continue
			}
			dm, err := s.UserChannelCreate(alert.UserID)
			if err != nil {
				h.logger.Error("Failed to open alert DM channel", "user_id", alert.UserID, "error", err)
				break
			}
			text := fmt.Sprintf("You were mentioned by <@%s> in <#%s>:\n\nMessage: %s\nLink: %s",
				m.Author.ID, m.ChannelID, m.Content, jumpURL(m.GuildID, m.ChannelID, m.ID))
			if _, err := s.ChannelMessageSend(dm.ID, text); err != nil {
				h.logger.Error("Failed to send name alert DM", "user_id", alert.UserID, "error", err)
			} else {
				h.logger.Info("Sent name alert DM", "user_id", alert.UserID, "phrase", phrase)
			}
			break
		}
	}
}

// HandleReactionAdd lets users opt out of automated replies by reacting to a
// bot message with an X; the helpers' channel is notified so the ignore list
// can be updated.
func (h *Handler) HandleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if h.cfg.Listeners.GuildID == "" || r.GuildID != h.cfg.Listeners.GuildID {
		return
	}
	if r.UserID == s.State.User.ID {
		return
	}
	switch r.Emoji.Name {
	case "❌", "✖", "x", "X":
	default:
		return
	}

	message, err := s.ChannelMessage(r.ChannelID, r.MessageID)
	if err != nil {
		h.logger.Error("Failed to fetch reacted message", "error", err)
		return
	}
	if message.Author == nil || message.Author.ID != s.State.User.ID {
		return
	}

	// Acknowledge in place unless the reactor has already opted out.
	reactorName := ""
	if user, err := s.User(r.UserID); err == nil {
		reactorName = strings.ToLower(user.Username)
	}
	if !h.cfg.Ignored(r.UserID, reactorName) {
		reference := &discordgo.MessageReference{MessageID: r.MessageID, ChannelID: r.ChannelID, GuildID: r.GuildID}
		ack := fmt.Sprintf("Thank you <@%s> — your request has been noted, and the moderators will apply it shortly.", r.UserID)
		if _, err := s.ChannelMessageSendReply(r.ChannelID, ack, reference); err != nil {
			h.logger.Error("Failed to acknowledge opt-out reaction", "error", err)
		}
	}

	destID := h.cfg.Listeners.ForwardChannelID
	if destID == "" {
		return
	}
	notify := fmt.Sprintf("<@&%s> ❌ Reaction by <@%s> on my message in <#%s>.\nMessage: %s",
		h.cfg.Listeners.ForwardRoleID, r.UserID, r.ChannelID,
		jumpURL(r.GuildID, r.ChannelID, r.MessageID))
	if _, err := s.ChannelMessageSend(destID, notify); err != nil {
		h.logger.Error("Failed to notify opt-out reaction", "error", err)
	}
}

func (h *Handler) reply(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	reference := &discordgo.MessageReference{MessageID: m.ID, ChannelID: m.ChannelID, GuildID: m.GuildID}
	if _, err := s.ChannelMessageSendReply(m.ChannelID, content, reference); err != nil {
		h.logger.Error("Failed to send listener reply", "error", err)
	}
}
