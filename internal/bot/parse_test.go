package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLevelUps(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []LevelUp
	}{
		{
			name: "levels up to ordinal",
			text: "Astrid levels up to **5th** level!",
			want: []LevelUp{{Character: "Astrid", Level: 5}},
		},
		{
			name: "with experience gain",
			text: "Borin gains 2,500 Experience and levels up to 7th level!",
			want: []LevelUp{{Character: "Borin", Level: 7}},
		},
		{
			name: "levelled up variant",
			text: "Cera levelled up to 3rd level",
			want: []LevelUp{{Character: "Cera", Level: 3}},
		},
		{
			name: "reaches level",
			text: "Dain reaches level **12**",
			want: []LevelUp{{Character: "Dain", Level: 12}},
		},
		{
			name: "no announcement",
			text: "Dain bought a new sword",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindLevelUps(tt.text))
		})
	}
}

func TestFindLevelUpsMultiline(t *testing.T) {
	text := "Astrid levels up to 5th level!\nBorin reaches level 9"
	found := FindLevelUps(text)
	assert.Len(t, found, 2)
}

func TestDedupeLevelUpsSortsHighestFirst(t *testing.T) {
	found := []LevelUp{
		{Character: "Astrid", Level: 5},
		{Character: "Borin", Level: 9},
		{Character: "Astrid", Level: 5},
	}
	unique := DedupeLevelUps(found)
	require.Len(t, unique, 2)
	assert.Equal(t, LevelUp{Character: "Borin", Level: 9}, unique[0])
	assert.Equal(t, LevelUp{Character: "Astrid", Level: 5}, unique[1])
}

func TestParsePoints(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		points int
		found  bool
	}{
		{"plain", "That's 24 contribution points", 24, true},
		{"curly apostrophe", "That’s 24 contribution points", 24, true},
		{"with only", "That's only 7 contribution points", 7, true},
		{"bold number", "That's **1,250** contribution points", 1250, true},
		{"no match", "You earned 24 gold", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, found := ParsePoints(tt.text)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.points, points)
		})
	}
}

func TestFirstWordKey(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"simple", "Astrid spends her downtime", "Astrid"},
		{"markdown bullet", "- **Astrid**: results", "Astrid"},
		{"skips blank lines", "\n\n  Borin works the forge", "Borin"},
		{"empty", "   \n  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstWordKey(tt.text))
		})
	}
}

func TestParseMessageRef(t *testing.T) {
	ref, err := ParseMessageRef("123456789012345678")
	require.NoError(t, err)
	assert.Equal(t, MessageRef{MessageID: "123456789012345678"}, ref)

	ref, err = ParseMessageRef("https://discord.com/channels/111/222/333")
	require.NoError(t, err)
	assert.Equal(t, MessageRef{ChannelID: "222", MessageID: "333"}, ref)

	_, err = ParseMessageRef("not-an-id")
	assert.Error(t, err)

	_, err = ParseMessageRef("https://discord.com/channels/abc/def")
	assert.Error(t, err)
}

func TestSpellbookCharacter(t *testing.T) {
	footer := "An italicized spell indicates that the spell is homebrew."
	description := "Morrigan knows 12 spells."
	assert.Equal(t, "Morrigan", SpellbookCharacter(footer, description))

	assert.Empty(t, SpellbookCharacter("some other footer", description))
	assert.Empty(t, SpellbookCharacter(footer, "no ownership line here"))
}

func TestNyoomPattern(t *testing.T) {
	assert.True(t, nyoomPattern.MatchString("nyoom"))
	assert.True(t, nyoomPattern.MatchString("NYOOOOOM!"))
	assert.True(t, nyoomPattern.MatchString("she went nyyoooom across the plaza"))
	assert.False(t, nyoomPattern.MatchString("nyom"))
}

func TestJumpURL(t *testing.T) {
	assert.Equal(t, "https://discord.com/channels/1/2/3", jumpURL("1", "2", "3"))
}
