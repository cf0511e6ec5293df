package platform

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeForTime(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id := SnowflakeForTime(at)

	// The embedded timestamp must round-trip through discordgo's decoder.
	decoded, err := discordgo.SnowflakeTimestamp(id)
	require.NoError(t, err)
	assert.Equal(t, at, decoded.UTC())
}

func TestSnowflakeForTimeBeforeEpoch(t *testing.T) {
	assert.Equal(t, "0", SnowflakeForTime(time.Time{}))
	assert.Equal(t, "0", SnowflakeForTime(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestTextBlob(t *testing.T) {
	assert.Equal(t, "hi", Message{Content: "hi"}.TextBlob())
	assert.Equal(t, "embed only", Message{EmbedText: "embed only"}.TextBlob())
	assert.Equal(t, "hi\nembed", Message{Content: "hi", EmbedText: "embed"}.TextBlob())
}

func TestFlattenEmbeds(t *testing.T) {
	embeds := []*discordgo.MessageEmbed{
		{
			Title:       "Bob's Spellbook",
			Description: "Bob knows 4 spells",
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Level 1", Value: "Magic Missile"},
			},
			Footer: &discordgo.MessageEmbedFooter{Text: "An italicized spell indicates homebrew."},
			Author: &discordgo.MessageEmbedAuthor{Name: "Avrae"},
		},
		nil,
	}

	blob := FlattenEmbeds(embeds)
	assert.Contains(t, blob, "Bob's Spellbook")
	assert.Contains(t, blob, "Bob knows 4 spells")
	assert.Contains(t, blob, "Level 1")
	assert.Contains(t, blob, "Magic Missile")
	assert.Contains(t, blob, "An italicized spell indicates homebrew.")
	assert.Contains(t, blob, "Avrae")
}

func TestFlattenEmbedsEmpty(t *testing.T) {
	assert.Equal(t, "", FlattenEmbeds(nil))
	assert.Equal(t, "", FlattenEmbeds([]*discordgo.MessageEmbed{{}}))
}

func TestMapFetchErrorUnknownChannel(t *testing.T) {
	restErr := &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel},
	}

	err := mapFetchError("123", restErr)
	assert.ErrorIs(t, err, ErrChannelUnavailable)
}

func TestMapFetchErrorOther(t *testing.T) {
	err := mapFetchError("123", assert.AnError)
	assert.NotErrorIs(t, err, ErrChannelUnavailable)
	assert.ErrorIs(t, err, assert.AnError)
}
