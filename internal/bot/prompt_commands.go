package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const scenePromptMaxTokens = 350

const vaguePromptNudge = "Ok, I'll be honest, I haven't read your scenes.\n\n" +
	"Can you tell me a little more about these characters, to help me provide a detailed scene for you? " +
	"For example, `Bob, a grumpy retired carpenter who misses his daughter` is much easier for me to work " +
	"with than just `Bob`. I have done my best, but the scene I have generated may not fit your expectations.\n\n"

func aiDisabledEmbed() *discordgo.MessageEmbed {
	return infoEmbed("AI Not Enabled",
		"This server does not have AI capabilities enabled. Please contact an administrator if you believe this is in error.")
}

func (h *Handler) handleScene(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.deferResponse(s, i, false); err != nil {
		return
	}

	guildCfg, ok := h.cfg.Guild(i.GuildID)
	if !ok {
		h.followupEmbed(s, i, serverErrorEmbed(), false)
		return
	}
	if !guildCfg.AIEnabled || h.ai == nil {
		h.followupEmbed(s, i, aiDisabledEmbed(), false)
		return
	}

	opts := optionMap(i.ApplicationCommandData())
	first := stringOption(opts, "first_character")
	second := stringOption(opts, "second_character")
	request := stringOption(opts, "request")

	var description strings.Builder
	if len(strings.Fields(first)) < 5 || len(strings.Fields(second)) < 5 {
		description.WriteString(vaguePromptNudge)
	}
	fmt.Fprintf(&description, "**First character**: `%s`\n**Second character**: `%s`", first, second)

	prompt := fmt.Sprintf(
		"You are a D&D Dungeonmaster. Give a concise bullet-point summary of an idea for a low-stakes encounter, "+
			"for a roleplay scene between two D&D characters in %s. The first character is %s, and "+
			"the second character is %s. Avoid creating backstory for these characters, as they are "+
			"pre-existing. Describe the initial inciting incident only, and not what happens next. No more than four "+
			"bullet points.", guildCfg.City, first, second)
	if request != "" {
		prompt += fmt.Sprintf(" %s.", request)
		fmt.Fprintf(&description, "\n**Request**: `%s`", request)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandFetchTimeout)
	defer cancel()

	generated, err := h.ai.Complete(ctx, prompt, scenePromptMaxTokens, float32(h.cfg.OpenAI.Temperature))
	if err != nil {
		h.logger.Error("Failed to generate scene prompt", "error", err)
		h.followupEmbed(s, i, serverErrorEmbed(), false)
		return
	}
	fmt.Fprintf(&description, "\n\n%s", generated)

	embed := infoEmbed("Here is your scene prompt!", description.String())
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: "/scene | Request your own scene prompt! Prompts are AI-generated, so feel free to change or ignore any detail. It's your scene!",
	}
	h.followupEmbed(s, i, embed, false)
}

func (h *Handler) handleSolo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.deferResponse(s, i, false); err != nil {
		return
	}

	guildCfg, ok := h.cfg.Guild(i.GuildID)
	if !ok {
		h.followupEmbed(s, i, serverErrorEmbed(), false)
		return
	}
	if !guildCfg.AIEnabled || h.ai == nil {
		h.followupEmbed(s, i, aiDisabledEmbed(), false)
		return
	}

	opts := optionMap(i.ApplicationCommandData())
	character := stringOption(opts, "character")
	request := stringOption(opts, "request")

	var description strings.Builder
	if len(strings.Fields(character)) < 5 {
		description.WriteString(vaguePromptNudge)
	}
	fmt.Fprintf(&description, "**Character**: `%s`", character)

	prompt := fmt.Sprintf(
		"Give a short, concise, bullet-point summary of an idea for an emotive and interesting character development "+
			"scene for a D&D character in %s. The character is %s. Avoid creating backstory for this "+
			"character, as they are pre-existing. Describe the initial inciting incident only, and not what happens "+
			"next. No more than 3 bullet points.", guildCfg.City, character)
	if request != "" {
		prompt += fmt.Sprintf(" %s.", request)
		fmt.Fprintf(&description, "\n**Request**: `%s`", request)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandFetchTimeout)
	defer cancel()

	generated, err := h.ai.Complete(ctx, prompt, h.cfg.OpenAI.MaxTokens, float32(h.cfg.OpenAI.Temperature))
	if err != nil {
		h.logger.Error("Failed to generate solo prompt", "error", err)
		h.followupEmbed(s, i, serverErrorEmbed(), false)
		return
	}
	fmt.Fprintf(&description, "\n\n%s", generated)

	embed := infoEmbed("Here is your solo scene prompt!", description.String())
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: "/solo | Request your own solo scene prompt! Prompts are AI-generated, so feel free to change or ignore any detail. It's your scene!",
	}
	h.followupEmbed(s, i, embed, false)
}

func (h *Handler) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildCfg, inGuild := h.cfg.Guild(i.GuildID)

	var b strings.Builder
	b.WriteString("This bot generates scene ideas based on brief character descriptions you supply.")
	b.WriteString("\nNote that any detail supplied may be used, so mentioning that your character is a thief ups the chances of ")
	b.WriteString("the scene involving theft. Hold back detail you don't want to see.")
	b.WriteString("\n\n## Commands")
	b.WriteString("\n`/scene` - Get a scene prompt! Describe the characters involved specifying any relevant detail. Add a request to the end of your description to get a prompt with a specific focus - something you want to come up, or _not_ come up, or a specific setting, etc.")
	b.WriteString("\n`/solo` - Get a solo prompt! Describe the character involved specifying any relevant detail. Add a request to the end of your description to get a prompt with a specific focus - something you want to come up, or _not_ come up, or a specific setting, etc.")
	b.WriteString("\n\n## Example Usage")
	b.WriteString("\n\n**Bad Usage**:\n `/scene first_character:Dave, second_character:Geraldine`\n It might be clear to you who Dave and Geraldine are, but the bot doesn't know. It will do its best, but will generate a prompt that may not fit your expectations.")
	b.WriteString("\n\n**Good Usage**:\n `/scene first_character:Dave, a retired carpenter who wants to reconcile with his estranged daughter but is too proud to admit fault, character 2:Geraldine, Dave's daughter, who is a successful merchant and has no time for her father's nonsense`\n This description is much more detailed, and the bot will be able to generate a prompt that fits your expectations.")
	fmt.Fprintf(&b, "\n\n`Guild ID: %s`", i.GuildID)

	if inGuild && guildCfg.AIEnabled {
		b.WriteString("\n\n✅ **AI Capabilities: Enabled**")
	} else {
		b.WriteString("\n\n❌ **AI Capabilities: Disabled** - Contact an administrator to enable AI features.")
	}

	h.respondEmbed(s, i, infoEmbed("AI Suggestions Help", b.String()), false)
}
