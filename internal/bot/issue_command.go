package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const assigneeChoiceLimit = 20

func (h *Handler) handleIssue(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildCfg, ok := h.cfg.Guild(i.GuildID)
	if !ok || !guildCfg.AIEnabled {
		h.respondEmbed(s, i, infoEmbed("Unavailable", "This command is not enabled in this server."), true)
		return
	}

	repo := h.cfg.GitHub.Repo
	if repo == "" || h.github == nil {
		h.respondEmbed(s, i, infoEmbed("Error", "GitHub issue repository is not configured."), true)
		return
	}

	held, err := memberRoleNames(s, i)
	if err != nil {
		h.logger.Error("Failed to resolve invoker roles", "error", err)
		h.respondEmbed(s, i, serverErrorEmbed(), true)
		return
	}
	if !hasAnyRole(held, []string{h.cfg.GitHub.IssueRole}) {
		h.respondEmbed(s, i, infoEmbed("Permission denied",
			fmt.Sprintf("Only the %s role may create issues.", h.cfg.GitHub.IssueRole)), true)
		return
	}

	opts := optionMap(i.ApplicationCommandData())
	title := stringOption(opts, "title")
	body := stringOption(opts, "body") + h.issueMetadata(s, i)
	label := stringOption(opts, "label")
	assigneesRaw := stringOption(opts, "assignees")

	ctx, cancel := context.WithTimeout(context.Background(), commandFetchTimeout)
	defer cancel()

	var labels []string
	if label != "" {
		available, err := h.github.ListLabels(ctx, repo)
		if err != nil {
			h.logger.Error("Failed to fetch repository labels", "repo", repo, "error", err)
			h.respondEmbed(s, i, infoEmbed("Error", "Failed to validate label."), true)
			return
		}
		if !contains(available, label) {
			h.respondEmbed(s, i, infoEmbed("Invalid label",
				fmt.Sprintf("Label '%s' not found in repository.", label)), true)
			return
		}
		labels = []string{label}
	}

	var assignees []string
	if assigneesRaw != "" {
		for _, name := range strings.Split(assigneesRaw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				assignees = append(assignees, name)
			}
		}
		available, err := h.github.ListAssignees(ctx, repo)
		if err != nil {
			h.logger.Error("Failed to fetch repository assignees", "repo", repo, "error", err)
			h.respondEmbed(s, i, infoEmbed("Error", "Failed to validate assignee."), true)
			return
		}
		var missing []string
		for _, name := range assignees {
			if !contains(available, name) {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			h.respondEmbed(s, i, infoEmbed("Invalid assignee",
				"The following assignee(s) were not found in the repository: "+strings.Join(missing, ", ")), true)
			return
		}
	}

	if err := h.deferResponse(s, i, false); err != nil {
		return
	}

	issue, err := h.github.CreateIssue(ctx, repo, title, body, labels, assignees)
	if err != nil {
		h.logger.Error("Failed to create GitHub issue", "repo", repo, "error", err)
		h.followupEmbed(s, i, infoEmbed("Error", "Failed to create issue due to an internal error."), true)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Issue #%d created", issue.Number),
		Description: fmt.Sprintf("[%s](%s)", title, issue.HTMLURL),
		URL:         issue.HTMLURL,
		Color:       colourGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Issue #", Value: fmt.Sprintf("%d", issue.Number), Inline: true},
		},
	}
	h.followupEmbed(s, i, embed, false)
	h.logger.Info("Created GitHub issue", "url", issue.HTMLURL)
}

// issueMetadata appends the Discord provenance trailer to the issue body.
func (h *Handler) issueMetadata(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	authorName := "unknown"
	if i.Member != nil && i.Member.User != nil {
		authorName = i.Member.User.Username
	}

	guildName := i.GuildID
	if guild, err := s.State.Guild(i.GuildID); err == nil && guild.Name != "" {
		guildName = guild.Name
	}

	return fmt.Sprintf("\n\n---\nThis issue was created via Discord by %s in server: %s.", authorName, guildName)
}

// handleAssigneeAutocomplete completes the comma-separated assignee list,
// matching against the partial name after the last comma.
func (h *Handler) handleAssigneeAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	repo := h.cfg.GitHub.Repo
	if repo == "" || h.github == nil {
		h.sendChoices(s, i, nil)
		return
	}

	var current string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "assignees" && opt.Focused {
			current = opt.StringValue()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandFetchTimeout)
	defer cancel()

	available, err := h.github.ListAssignees(ctx, repo)
	if err != nil {
		h.logger.Error("Failed to fetch assignees for autocomplete", "repo", repo, "error", err)
		h.sendChoices(s, i, nil)
		return
	}

	parts := strings.Split(current, ",")
	var base []string
	for _, part := range parts[:len(parts)-1] {
		if part = strings.TrimSpace(part); part != "" {
			base = append(base, part)
		}
	}
	partial := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, login := range available {
		if partial != "" && !strings.Contains(strings.ToLower(login), partial) {
			continue
		}
		value := strings.Join(append(append([]string{}, base...), login), ", ")
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: login, Value: value})
		if len(choices) >= assigneeChoiceLimit {
			break
		}
	}

	h.sendChoices(s, i, choices)
}

func (h *Handler) sendChoices(s *discordgo.Session, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		h.logger.Error("Failed to send autocomplete choices", "error", err)
	}
}
