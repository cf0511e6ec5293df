package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barrybot/internal/platform"
)

func msg(id, authorName string) platform.Message {
	return platform.Message{ID: id, AuthorName: authorName}
}

func TestSliceBetween(t *testing.T) {
	history := []platform.Message{msg("1", "a"), msg("2", "b"), msg("3", "a"), msg("4", "b")}

	scene, ok := sliceBetween(history, "2", "4")
	require.True(t, ok)
	assert.Equal(t, history[1:4], scene)
}

func TestSliceBetweenReversedArguments(t *testing.T) {
	history := []platform.Message{msg("1", "a"), msg("2", "b"), msg("3", "a")}

	scene, ok := sliceBetween(history, "3", "1")
	require.True(t, ok)
	assert.Equal(t, history, scene)
}

func TestSliceBetweenMissingID(t *testing.T) {
	history := []platform.Message{msg("1", "a")}

	_, ok := sliceBetween(history, "1", "99")
	assert.False(t, ok)
}

func TestCurrentSceneTakesMessagesAfterLastResolverPost(t *testing.T) {
	history := []platform.Message{
		msg("1", "alice"),
		msg("2", "Avrae"),
		msg("3", "bob"),
		msg("4", "alice"),
	}

	scene := currentScene(history, "Avrae")
	assert.Equal(t, history[2:], scene)
}

func TestCurrentSceneDropsTrailingResolverPost(t *testing.T) {
	history := []platform.Message{
		msg("1", "Avrae"),
		msg("2", "alice"),
		msg("3", "Avrae"),
	}

	scene := currentScene(history, "Avrae")
	assert.Equal(t, []platform.Message{msg("2", "alice")}, scene)
}

func TestCurrentSceneWithoutResolverKeepsEverything(t *testing.T) {
	history := []platform.Message{msg("1", "alice"), msg("2", "bob")}

	scene := currentScene(history, "Avrae")
	assert.Equal(t, history, scene)
}

func TestOldestFirstReverses(t *testing.T) {
	history := []platform.Message{msg("3", "a"), msg("2", "b"), msg("1", "c")}
	oldestFirst(history)
	assert.Equal(t, []platform.Message{msg("1", "c"), msg("2", "b"), msg("3", "a")}, history)
}

func TestContains(t *testing.T) {
	assert.True(t, contains([]string{"a", "b"}, "b"))
	assert.False(t, contains([]string{"a", "b"}, "c"))
	assert.False(t, contains(nil, "a"))
}
