package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/vuongmanhnghia/playlist-bot/internal/commands"
	"github.com/vuongmanhnghia/playlist-bot/internal/config"
	"github.com/vuongmanhnghia/playlist-bot/internal/database"
	"github.com/vuongmanhnghia/playlist-bot/internal/domain/repositories"
	"github.com/vuongmanhnghia/playlist-bot/internal/errors"
	"github.com/vuongmanhnghia/playlist-bot/internal/infrastructure/persistence"
	"github.com/vuongmanhnghia/playlist-bot/internal/metrics"
	"github.com/vuongmanhnghia/playlist-bot/internal/services"
	"github.com/vuongmanhnghia/playlist-bot/internal/services/gate"
	"github.com/vuongmanhnghia/playlist-bot/internal/services/voice"
	"github.com/vuongmanhnghia/playlist-bot/pkg/logger"
)

const cacheSweepInterval = 10 * time.Minute

// PlaylistBot represents the Discord playlist bot
type PlaylistBot struct {
	config          *config.Config
	logger          *logger.Logger
	session         *discordgo.Session
	db              *database.DB
	playlistService *services.PlaylistService
	voiceManager    *voice.Manager
	cmdHandler      *commands.Handler
	metricsServer   *metrics.Server
	stopCleanup     chan struct{}
}

// New creates a new PlaylistBot instance
func New(cfg *config.Config, log *logger.Logger) (*PlaylistBot, error) {
	// Create Discord session
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	// Setup intents
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent
	session.StateEnabled = true

	// Initialize playlist storage (database or files)
	var db *database.DB
	var repo repositories.PlaylistRepository
	if cfg.UseDatabase {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err = database.Connect(ctx, database.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}

		repo = repositories.NewDatabasePlaylistRepository(db)
		log.Info("Using database for playlist storage")
	} else {
		repo, err = persistence.NewPlaylistRepository(cfg.PlaylistDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open playlist directory: %w", err)
		}
		log.WithField("dir", cfg.PlaylistDir).Info("Using file-based playlist storage")
	}

	playlistService := services.NewPlaylistService(repo, services.CacheConfig{
		Size: cfg.PlaylistCacheSize,
		TTL:  cfg.CacheTTL(),
	}, log)

	// Voice and gate
	tracker := voice.NewPlaybackTracker()
	voiceManager := voice.NewManager(session.State, voice.SessionDialer(session), tracker, cfg.GuildVoiceChannels, log)
	evaluator := gate.NewEvaluator(tracker, voiceManager, voiceManager, cfg.VoiceConnectTimeout, log)

	// Commands
	playlistCmds := commands.NewPlaylistCommands(
		playlistService,
		commands.NewDJAuthorizer(cfg.OwnerID, cfg.DJRoles),
		cfg.StoreTimeout,
		log,
	)
	cmdHandler := commands.NewHandler(session, evaluator, voiceManager, playlistCmds, commands.Options{
		Prefix:       cfg.CommandPrefix,
		TextChannels: cfg.GuildTextChannels,
	}, log)

	bot := &PlaylistBot{
		config:          cfg,
		logger:          log,
		session:         session,
		db:              db,
		playlistService: playlistService,
		voiceManager:    voiceManager,
		cmdHandler:      cmdHandler,
		stopCleanup:     make(chan struct{}),
	}
	if cfg.MetricsAddr != "" {
		bot.metricsServer = metrics.NewServer(cfg.MetricsAddr)
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(cmdHandler.HandleInteraction)
	session.AddHandler(cmdHandler.HandleMessage)
	session.AddHandler(voiceManager.HandleVoiceStateUpdate)
	session.AddHandler(bot.onVoiceStateUpdate)

	return bot, nil
}

// Start starts the bot
func (b *PlaylistBot) Start(ctx context.Context) error {
	b.logger.Info("Starting services...")

	if b.metricsServer != nil {
		b.metricsServer.Start()
	}
	b.playlistService.StartCacheSweeper(cacheSweepInterval, b.stopCleanup)

	b.logger.Info("Opening Discord connection...")
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	// Register commands
	b.logger.Info("Registering slash commands...")
	if err := b.cmdHandler.RegisterCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	return nil
}

// Stop stops the bot gracefully
func (b *PlaylistBot) Stop() {
	b.logger.Info("Shutting down services...")

	close(b.stopCleanup)
	b.voiceManager.Shutdown()

	if b.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.metricsServer.Shutdown(ctx); err != nil {
			b.logger.WithError(err).Warn("Failed to stop metrics server")
		}
	}

	// Close database connection
	if b.db != nil {
		b.db.Close()
	}

	// Close Discord connection
	b.logger.Info("Closing Discord connection...")
	if err := b.session.Close(); err != nil {
		b.logger.WithError(err).Error("Failed to close Discord session")
	}

	stats := b.playlistService.Cache().Stats()
	b.logger.WithFields(map[string]interface{}{
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
		"size":      stats.Size,
	}).Debug("Playlist cache stats")
}

// onReady is called when the bot is ready
func (b *PlaylistBot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Infof("✅ Bot is ready! Logged in as %s", event.User.Username)
	b.logger.Infof("📊 Connected to %d guilds", len(event.Guilds))

	status := fmt.Sprintf("📋 %splaylist | /playlist", b.config.CommandPrefix)
	if err := s.UpdateGameStatus(0, status); err != nil {
		b.logger.WithError(err).Warn("Failed to update status")
	}
}

// onVoiceStateUpdate leaves a voice channel once every human has left it
func (b *PlaylistBot) onVoiceStateUpdate(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil || event.UserID == s.State.User.ID {
		return
	}

	// Only care about users leaving a channel
	if event.BeforeUpdate == nil {
		return
	}

	guildID := event.GuildID
	current := b.voiceManager.CurrentChannel(guildID)
	if current == nil || event.BeforeUpdate.ChannelID != current.ID.String() {
		return
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		b.logger.WithError(err).Warn("Failed to get guild state")
		return
	}

	listeners := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != current.ID.String() || vs.UserID == s.State.User.ID {
			continue
		}
		if vs.Member != nil && vs.Member.User != nil {
			if !vs.Member.User.Bot {
				listeners++
			}
			continue
		}
		member, err := s.State.Member(guildID, vs.UserID)
		if err != nil || member.User == nil || !member.User.Bot {
			listeners++
		}
	}

	b.logger.WithGuild(guildID).WithFields(map[string]interface{}{
		"channel":   current.Name,
		"listeners": listeners,
	}).Debug("Voice state update - checking listeners")

	if listeners > 0 {
		return
	}

	b.logger.WithGuild(guildID).WithField("channel", current.Name).Info("No listeners left, disconnecting...")
	if err := b.voiceManager.Leave(guildID); err != nil && !errors.Is(err, voice.ErrNotConnected) {
		b.logger.WithGuild(guildID).WithError(err).Warn("Failed to disconnect from guild")
	}
}
