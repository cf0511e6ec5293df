package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
discord:
  token: test-token-value
  owner_id: "661212031231459329"
authorised_roles: [Dragonspeaker]
include_roles: [Player]
exclude_roles: [Hiatus]
ignore_list: ["42", "grumpy"]
guilds:
  "866376531995918346":
    city: Silverymoon
    monitored_channels: ["100", "200"]
    yellow_days: 7
    red_days: 14
    ai_enabled: true
    opt_in_role: AI Opt-In
    tldr_output_channel: "300"
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "test-token-value", cfg.Discord.Token)
	assert.Equal(t, []string{"Dragonspeaker"}, cfg.AuthorisedRoles)

	guild, ok := cfg.Guild("866376531995918346")
	require.True(t, ok)
	assert.Equal(t, "Silverymoon", guild.City)
	assert.Equal(t, []string{"100", "200"}, guild.MonitoredChannels)
	assert.Equal(t, 7, guild.YellowDays)
	assert.True(t, guild.AIEnabled)

	_, ok = cfg.Guild("999")
	assert.False(t, ok)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Activity.WarningDays)
	assert.Equal(t, 31, cfg.Activity.InactivityDays)
	assert.Equal(t, "Avrae", cfg.ResolverName)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIBase)
	assert.Equal(t, "Dragonspeaker", cfg.GitHub.IssueRole)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("OPENAI_API_KEY", "env-openai-key")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, "env-openai-key", cfg.OpenAI.APIKey)
}

func TestLoadRejectsMissingToken(t *testing.T) {
	_, err := Load(writeConfig(t, `
guilds: {}
`))
	assert.ErrorContains(t, err, "DISCORD_TOKEN")
}

func TestLoadRejectsInvertedWindows(t *testing.T) {
	_, err := Load(writeConfig(t, `
discord:
  token: t
activity:
  warning_days: 31
  inactivity_days: 14
`))
	assert.ErrorContains(t, err, "warning window")
}

func TestLoadRejectsInvertedChannelThresholds(t *testing.T) {
	_, err := Load(writeConfig(t, `
discord:
  token: t
guilds:
  "1":
    yellow_days: 20
    red_days: 10
`))
	assert.ErrorContains(t, err, "yellow threshold")
}

func TestIgnored(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.True(t, cfg.Ignored("42", ""))
	assert.True(t, cfg.Ignored("7", "grumpy"))
	assert.False(t, cfg.Ignored("7", "cheerful"))
	assert.False(t, cfg.Ignored("7", ""))
}
