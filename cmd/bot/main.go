package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"barrybot/internal/bot"
	"barrybot/internal/config"
	"barrybot/internal/platform"
	"barrybot/internal/service"
)

func main() {
	// Handle health check flag for Docker containers
	if len(os.Args) > 1 && os.Args[1] == "--health-check" {
		os.Exit(0)
	}

	// Initialize structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	slog.Info("BarryBot starting up...")

	// Local development secrets; absence is fine in production
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file loaded", "reason", err)
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Configuration loaded",
		"guilds", len(cfg.Guilds),
		"warning_days", cfg.Activity.WarningDays,
		"inactivity_days", cfg.Activity.InactivityDays)

	// Initialize AI service
	var aiService service.AIService
	if cfg.OpenAI.APIKey != "" {
		aiService = service.NewOpenAIService(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
		slog.Info("AI service initialized", "model", cfg.OpenAI.Model)
	} else {
		slog.Warn("OPENAI_API_KEY not set; AI commands will be unavailable")
	}

	// Initialize GitHub App client when configured
	var githubClient *service.GitHubAppClient
	if cfg.GitHub.AppID != 0 && cfg.GitHub.Repo != "" {
		privateKey, err := service.LoadPrivateKeyFromEnv()
		if err != nil {
			slog.Error("Failed to load GitHub App private key", "error", err)
			os.Exit(1)
		}
		githubClient = service.NewGitHubAppClient(service.GitHubAppConfig{
			AppID:      cfg.GitHub.AppID,
			PrivateKey: privateKey,
			APIBase:    cfg.GitHub.APIBase,
		}, logger)
		slog.Info("GitHub App client initialized", "repo", cfg.GitHub.Repo)
	} else {
		slog.Info("GitHub App not configured; /issue command disabled")
	}

	// Create Discord session
	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		slog.Error("Error creating Discord session", "error", err)
		os.Exit(1)
	}

	history := platform.NewDiscordHistory(dg)
	handler := bot.NewHandler(logger, cfg, aiService, githubClient, history)

	// Add event handlers
	dg.AddHandler(ready)
	dg.AddHandler(handler.HandleInteractionCreate)
	dg.AddHandler(handler.HandleMessageCreate)
	dg.AddHandler(handler.HandleReactionAdd)

	// Member and role lookups back the report commands, message content
	// feeds the passive listeners.
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	// Open connection to Discord
	if err := dg.Open(); err != nil {
		slog.Error("Error opening Discord connection", "error", err)
		os.Exit(1)
	}

	if err := handler.RegisterCommands(dg); err != nil {
		slog.Error("Failed to register slash commands", "error", err)
		if closeErr := dg.Close(); closeErr != nil {
			slog.Error("Error during Discord session cleanup", "error", closeErr)
		}
		os.Exit(1)
	}

	slog.Info("Bot is now running. Press CTRL+C to exit.")

	// Wait for CTRL+C or other term signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	slog.Info("Shutdown signal received, initiating graceful shutdown...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := dg.Close(); err != nil {
			slog.Error("Error during Discord session cleanup", "error", err)
		} else {
			slog.Info("Discord session closed successfully")
		}
	}()

	select {
	case <-done:
		slog.Info("Bot shutdown completed successfully")
	case <-shutdownCtx.Done():
		slog.Warn("Shutdown timeout exceeded, forcing exit")
	}
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}

// ready event handler - called when bot connects and is ready
func ready(s *discordgo.Session, event *discordgo.Ready) {
	if err := s.UpdateGameStatus(0, "Watching the scenes roll by"); err != nil {
		slog.Error("Error setting bot status", "error", err)
		return
	}

	slog.Info("Bot connected successfully",
		"username", event.User.Username,
		"status", "Online")
}
