package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Flag is a bool that also accepts yes/no
type Flag bool

// UnmarshalText parses true/false, 1/0 and yes/no in any case
func (f *Flag) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "true", "1", "yes", "y", "on":
		*f = true
	case "false", "0", "no", "n", "off", "":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %q", string(text))
	}
	return nil
}

// Config holds all application configuration
type Config struct {
	// Bot Settings
	BotToken      string `env:"BOT_TOKEN,notEmpty"`
	BotName       string `env:"BOT_NAME" envDefault:"Playlist Bot"`
	OwnerID       string `env:"OWNER_ID"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!"`

	// Database
	UseDatabase      Flag   `env:"USE_DATABASE" envDefault:"false"`
	PostgresUser     string `env:"POSTGRES_USER"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresDB       string `env:"POSTGRES_DB"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	DatabaseURL      string `env:"-"`

	// Playlists
	PlaylistDir          string        `env:"PLAYLIST_DIR" envDefault:"./playlist"`
	PlaylistCacheSize    int           `env:"PLAYLIST_CACHE_SIZE" envDefault:"256"`
	CacheDurationMinutes int           `env:"CACHE_DURATION_MINUTES" envDefault:"360"`
	StoreTimeout         time.Duration `env:"STORE_TIMEOUT" envDefault:"10s"`

	// Voice
	VoiceConnectTimeout time.Duration `env:"VOICE_CONNECT_TIMEOUT" envDefault:"10s"`

	// Per-guild settings, "guildID:channelID,guildID:channelID"
	GuildVoiceChannels map[string]string `env:"GUILD_VOICE_CHANNELS"`
	GuildTextChannels  map[string]string `env:"GUILD_TEXT_CHANNELS"`
	DJRoles            map[string]string `env:"DJ_ROLES"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"LOG_FILE"`

	// Metrics, disabled when empty
	MetricsAddr string `env:"METRICS_ADDR"`
}

// Load reads configuration from .env and environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	return Parse()
}

// Parse reads configuration from environment variables only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(cfg.BotToken) < 50 {
		return nil, fmt.Errorf("invalid BOT_TOKEN format (too short)")
	}

	if cfg.StoreTimeout <= 0 {
		return nil, fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if cfg.VoiceConnectTimeout <= 0 {
		return nil, fmt.Errorf("VOICE_CONNECT_TIMEOUT must be positive")
	}

	if cfg.UseDatabase {
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	} else {
		// File storage needs its root up front
		if err := os.MkdirAll(cfg.PlaylistDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create playlist directory: %w", err)
		}
	}

	return cfg, nil
}

// CacheTTL returns how long a playlist stays in the read cache
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheDurationMinutes) * time.Minute
}

// GetSafeToken returns a masked version of the token for logging
func (c *Config) GetSafeToken() string {
	if len(c.BotToken) < 15 {
		return "***"
	}
	return c.BotToken[:10] + "..." + c.BotToken[len(c.BotToken)-4:]
}
