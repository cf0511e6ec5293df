package bot

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	nyoomPattern = regexp.MustCompile(`(?i)ny+o{2,}m`)

	// Accepts both straight and curly apostrophes, optional "only", and
	// optional markdown wrapping around the number.
	pointsPattern = regexp.MustCompile(`(?i)That[’']s\s+(?:only\s+)?\**\*?_?([0-9]{1,3}(?:,[0-9]{3})*)_?\*?\**\s+contribution\s+points`)

	// Announcement phrasings vary between Avrae workshop aliases, so level-ups
	// are matched against several patterns and de-duplicated afterwards.
	levelUpPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^[ \t]*([^\n]+?)\s+(?:gains\s+[\d,]+\s+Experience\s+and\s+)?levels?\s+up\s+to\s+\*{0,2}(\d{1,2})(?:st|nd|rd|th)\*{0,2}\s+level!?`),
		regexp.MustCompile(`(?im)^[ \t]*([^\n]+?)\s+level(?:ed|led)\s+up\s+to\s+\*{0,2}(\d{1,2})(?:st|nd|rd|th)\*{0,2}\s+level!?`),
		regexp.MustCompile(`(?im)^[ \t]*([^\n]+?)\s+reaches?\s+level\s+\*{0,2}(\d{1,2})\*{0,2}\b`),
	}

	spellbookTrigger = regexp.MustCompile(`An italicized spell indicates that the spell is homebrew\.`)
	spellbookOwner   = regexp.MustCompile(`(?m)^(.+?) knows \d+ spells?`)
)

// LevelUp is one detected character level-up announcement.
type LevelUp struct {
	Character string
	Level     int
}

// FindLevelUps extracts level-up announcements from a text blob.
func FindLevelUps(text string) []LevelUp {
	var found []LevelUp
	for _, pattern := range levelUpPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			level, err := strconv.Atoi(match[2])
			if err != nil {
				continue
			}
			found = append(found, LevelUp{Character: strings.TrimSpace(match[1]), Level: level})
		}
	}
	return found
}

// DedupeLevelUps removes duplicates and sorts highest level first.
func DedupeLevelUps(levelUps []LevelUp) []LevelUp {
	seen := make(map[LevelUp]bool, len(levelUps))
	var unique []LevelUp
	for _, lu := range levelUps {
		if !seen[lu] {
			seen[lu] = true
			unique = append(unique, lu)
		}
	}
	sort.Slice(unique, func(i, j int) bool {
		if unique[i].Level != unique[j].Level {
			return unique[i].Level > unique[j].Level
		}
		return unique[i].Character < unique[j].Character
	})
	return unique
}

// ParsePoints extracts the contribution-point value from a text blob, or
// returns false when the blob holds no contribution phrase.
func ParsePoints(text string) (int, bool) {
	match := pointsPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	points, err := strconv.Atoi(strings.ReplaceAll(match[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return points, true
}

// FirstWordKey extracts the aggregation key from a piece of display text: the
// first token of the first non-empty line, with markdown bullets and wrapper
// punctuation stripped.
func FirstWordKey(text string) string {
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		stripped = strings.TrimLeft(stripped, "*-•–—> #")
		fields := strings.Fields(stripped)
		if len(fields) == 0 {
			return ""
		}
		return strings.Trim(fields[0], "`*_~.,:;!?—-()[]{}​")
	}
	return ""
}

// MessageRef is a parsed message ID or message link. ChannelID is empty when
// the input was a bare ID.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// ParseMessageRef accepts either a raw snowflake or a full Discord message
// link and returns the referenced IDs.
func ParseMessageRef(value string) (MessageRef, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "discord") {
		parts := strings.Split(strings.TrimRight(value, "/"), "/")
		if len(parts) < 2 {
			return MessageRef{}, fmt.Errorf("malformed message link %q", value)
		}
		ref := MessageRef{
			ChannelID: parts[len(parts)-2],
			MessageID: parts[len(parts)-1],
		}
		if !isSnowflake(ref.ChannelID) || !isSnowflake(ref.MessageID) {
			return MessageRef{}, fmt.Errorf("malformed message link %q", value)
		}
		return ref, nil
	}
	if !isSnowflake(value) {
		return MessageRef{}, fmt.Errorf("message reference %q is not an ID or link", value)
	}
	return MessageRef{MessageID: value}, nil
}

func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SpellbookCharacter finds the character name a spellbook embed belongs to,
// but only for the homebrew-footnote variant the tip applies to. Returns ""
// when the text is not a spellbook output.
func SpellbookCharacter(footerAndContent, description string) string {
	if !spellbookTrigger.MatchString(footerAndContent) {
		return ""
	}
	match := spellbookOwner.FindStringSubmatch(description)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// jumpURL builds the canonical link to a guild message.
func jumpURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}
