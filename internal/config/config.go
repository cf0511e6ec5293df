// Package config loads the bot's guild tables and service settings from a
// YAML file with environment-variable overrides for secrets.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Discord   DiscordConfig          `mapstructure:"discord"`
	Activity  ActivityConfig         `mapstructure:"activity"`
	OpenAI    OpenAIConfig           `mapstructure:"openai"`
	GitHub    GitHubConfig           `mapstructure:"github"`
	Listeners ListenerConfig         `mapstructure:"listeners"`
	Guilds    map[string]GuildConfig `mapstructure:"guilds"`

	// ResolverName is the display name of the scene-resolution bot whose
	// posts mark the end of a roleplay turn.
	ResolverName string `mapstructure:"resolver_name"`

	// Role-name filters. AuthorisedRoles gates the reporting commands;
	// IncludeRoles/ExcludeRoles define the tracked-user set.
	AuthorisedRoles []string `mapstructure:"authorised_roles"`
	IncludeRoles    []string `mapstructure:"include_roles"`
	ExcludeRoles    []string `mapstructure:"exclude_roles"`

	// IgnoreList holds user IDs or lowercase usernames opted out of
	// automated replies.
	IgnoreList []string `mapstructure:"ignore_list"`
}

type DiscordConfig struct {
	Token   string `mapstructure:"token"`
	OwnerID string `mapstructure:"owner_id"`
}

// ActivityConfig holds the nested report windows, in days.
type ActivityConfig struct {
	WarningDays    int `mapstructure:"warning_days"`
	InactivityDays int `mapstructure:"inactivity_days"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type GitHubConfig struct {
	Repo      string `mapstructure:"repo"`
	IssueRole string `mapstructure:"issue_role"`
	AppID     int64  `mapstructure:"app_id"`
	APIBase   string `mapstructure:"api_base"`
}

// GuildConfig is the per-guild table: which channels are monitored, the
// staleness thresholds, and the scene-summary wiring.
type GuildConfig struct {
	City                   string           `mapstructure:"city"`
	MonitoredChannels      []string         `mapstructure:"monitored_channels"`
	YellowDays             int              `mapstructure:"yellow_days"`
	RedDays                int              `mapstructure:"red_days"`
	AIEnabled              bool             `mapstructure:"ai_enabled"`
	OptInRole              string           `mapstructure:"opt_in_role"`
	TLDROutputChannel      string           `mapstructure:"tldr_output_channel"`
	TLDRAdditionalChannels []string         `mapstructure:"tldr_additional_channels"`
	TLDRExcludedChannels   []string         `mapstructure:"tldr_excluded_channels"`
	LevelUpChannels        []LevelUpChannel `mapstructure:"levelup_channels"`
	DowntimesChannel       string           `mapstructure:"downtimes_channel"`
}

// LevelUpChannel is a channel scanned for level-up announcements, with its
// own fetch cap since announcement channels vary wildly in volume.
type LevelUpChannel struct {
	ChannelID string `mapstructure:"channel_id"`
	Limit     int    `mapstructure:"limit"`
}

// ListenerConfig wires the passive message listeners for one guild.
type ListenerConfig struct {
	GuildID             string      `mapstructure:"guild_id"`
	ForwardRoleID       string      `mapstructure:"forward_role_id"`
	ForwardChannelID    string      `mapstructure:"forward_channel_id"`
	NyoomImmuneChannels []string    `mapstructure:"nyoom_immune_channels"`
	NyoomImmuneUsers    []string    `mapstructure:"nyoom_immune_users"`
	NameAlerts          []NameAlert `mapstructure:"name_alerts"`
}

// NameAlert DMs a user when someone else mentions one of their phrases.
type NameAlert struct {
	UserID  string   `mapstructure:"user_id"`
	Phrases []string `mapstructure:"phrases"`
}

// Guild returns the configuration for a guild ID, if the guild is on the
// monitored allow-list.
func (c *Config) Guild(guildID string) (GuildConfig, bool) {
	g, ok := c.Guilds[guildID]
	return g, ok
}

// Ignored reports whether a user (by ID or lowercase username) has opted out
// of automated replies.
func (c *Config) Ignored(userID, username string) bool {
	for _, entry := range c.IgnoreList {
		if entry == userID || (username != "" && entry == username) {
			return true
		}
	}
	return false
}

// Load reads configuration from path, applies defaults and environment
// overrides, and validates the threshold orderings.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("activity.warning_days", 14)
	v.SetDefault("activity.inactivity_days", 31)
	v.SetDefault("resolver_name", "Avrae")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 200)
	v.SetDefault("openai.temperature", 0.8)
	v.SetDefault("github.api_base", "https://api.github.com")
	v.SetDefault("github.issue_role", "Dragonspeaker")

	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Secrets come from the environment, never from the config file.
	if token := v.GetString("DISCORD_TOKEN"); token != "" {
		cfg.Discord.Token = token
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		cfg.OpenAI.APIKey = apiKey
	}
	if appID := v.GetInt64("GITHUB_APP_ID"); appID != 0 {
		cfg.GitHub.AppID = appID
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is not set")
	}
	if c.Activity.WarningDays <= 0 || c.Activity.InactivityDays <= 0 {
		return fmt.Errorf("activity windows must be positive (warning=%d, inactivity=%d)",
			c.Activity.WarningDays, c.Activity.InactivityDays)
	}
	if c.Activity.WarningDays >= c.Activity.InactivityDays {
		return fmt.Errorf("warning window (%d days) must be shorter than inactivity window (%d days)",
			c.Activity.WarningDays, c.Activity.InactivityDays)
	}
	for guildID, g := range c.Guilds {
		if g.YellowDays > g.RedDays {
			return fmt.Errorf("guild %s: yellow threshold (%d days) must not exceed red threshold (%d days)",
				guildID, g.YellowDays, g.RedDays)
		}
	}
	return nil
}
