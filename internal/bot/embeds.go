package bot

import "github.com/bwmarrin/discordgo"

const embedDescriptionLimit = 4000

const (
	colourGreen  = 0x2ecc71
	colourRed    = 0xe74c3c
	colourOrange = 0xe67e22
	colourBlue   = 0x3498db
)

func notAuthorisedEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Not authorised",
		Description: "You do not have a role that allows you to use this command.",
		Color:       colourRed,
	}
}

func serverErrorEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Something went wrong",
		Description: "The command could not be completed. Please try again later.",
		Color:       colourRed,
	}
}

func infoEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       colourBlue,
	}
}

// chunkDescription splits text into embed-sized pieces, breaking on newline
// boundaries where possible so report sections stay intact.
func chunkDescription(text string, limit int) []string {
	if limit <= 0 {
		limit = embedDescriptionLimit
	}
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := limit
		for j := limit - 1; j > 0; j-- {
			if text[j] == '\n' {
				cut = j + 1
				break
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

// reportEmbeds wraps a long report in one or more embeds sharing a title.
func reportEmbeds(title, description string, colour int) []*discordgo.MessageEmbed {
	chunks := chunkDescription(description, embedDescriptionLimit)
	embeds := make([]*discordgo.MessageEmbed, 0, len(chunks))
	for idx, chunk := range chunks {
		embed := &discordgo.MessageEmbed{Description: chunk, Color: colour}
		if idx == 0 {
			embed.Title = title
		}
		embeds = append(embeds, embed)
	}
	return embeds
}
