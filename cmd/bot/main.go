package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vuongmanhnghia/playlist-bot/internal/bot"
	"github.com/vuongmanhnghia/playlist-bot/internal/config"
	"github.com/vuongmanhnghia/playlist-bot/pkg/logger"
)

func main() {
	// Bootstrap logger until the configuration is known
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "text",
	})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})

	log.Infof("Starting %s", cfg.BotName)
	log.WithFields(map[string]interface{}{
		"prefix":   cfg.CommandPrefix,
		"database": bool(cfg.UseDatabase),
		"token":    cfg.GetSafeToken(),
	}).Info("Configuration loaded")

	// Initialize bot
	playlistBot, err := bot.New(cfg, log)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	// Start bot
	ctx := context.Background()
	if err := playlistBot.Start(ctx); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	log.Info("✅ Bot is now running. Press CTRL-C to exit.")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	// Cleanup
	log.Info("Shutting down gracefully...")
	playlistBot.Stop()
	log.Info("Bot stopped successfully")
}
