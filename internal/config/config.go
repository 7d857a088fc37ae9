package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Stats backends
const (
	StatsBackendSQLite = "sqlite"
	StatsBackendRedis  = "redis"
)

// Config holds all configuration for the application
type Config struct {
	Debug        bool   `env:"DEBUG" envDefault:"false"`
	MessagesFile string `env:"MESSAGES_FILE"`

	Duel        DuelConfig
	Economy     EconomyConfig
	Stats       StatsConfig
	Storage     StorageConfig
	Bridge      BridgeConfig
	Metrics     MetricsConfig
	Discord     DiscordConfig
	Leaderboard LeaderboardConfig
}

// DuelConfig holds duel lifecycle options
type DuelConfig struct {
	CountdownSeconds      int      `env:"DUEL_COUNTDOWN_SECONDS" envDefault:"5"`
	RequestTimeoutSeconds int      `env:"DUEL_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
	ArenasEnabled         bool     `env:"DUEL_ARENAS_ENABLED" envDefault:"true"`
	TeleportBack          bool     `env:"DUEL_TELEPORT_BACK" envDefault:"true"`
	HealAfter             bool     `env:"DUEL_HEAL_AFTER" envDefault:"true"`
	ClearEffects          bool     `env:"DUEL_CLEAR_EFFECTS" envDefault:"true"`
	KeepInventory         bool     `env:"DUEL_KEEP_INVENTORY" envDefault:"false"`
	AllowedCommands       []string `env:"DUEL_ALLOWED_COMMANDS" envSeparator:"," envDefault:"msg,r,tell"`
}

// Countdown is the countdown length as a duration
func (c DuelConfig) Countdown() time.Duration {
	return time.Duration(c.CountdownSeconds) * time.Second
}

// RequestTimeout is how long an unanswered request lives
func (c DuelConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// EconomyConfig holds money duel options
type EconomyConfig struct {
	Enabled               bool            `env:"ECONOMY_ENABLED" envDefault:"true"`
	WinnerPercentage      decimal.Decimal `env:"ECONOMY_WINNER_PERCENTAGE" envDefault:"80"`
	MinBet                decimal.Decimal `env:"ECONOMY_MIN_BET" envDefault:"10"`
	MaxBet                decimal.Decimal `env:"ECONOMY_MAX_BET" envDefault:"1000000"`
	AnnouncementThreshold decimal.Decimal `env:"ECONOMY_ANNOUNCEMENT_THRESHOLD" envDefault:"200000"`
}

// StatsConfig holds statistics persistence options
type StatsConfig struct {
	Backend       string        `env:"STATS_BACKEND" envDefault:"sqlite"`
	FlushInterval time.Duration `env:"STATS_FLUSH_INTERVAL" envDefault:"300s"`
	FlushDebounce time.Duration `env:"STATS_FLUSH_DEBOUNCE" envDefault:"1s"`
}

// StorageConfig holds database locations
type StorageConfig struct {
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/cduello.db"`
	RedisURL   string `env:"REDIS_URL"`
}

// BridgeConfig holds the host bridge listener options
type BridgeConfig struct {
	Addr  string `env:"BRIDGE_ADDR" envDefault:":8765"`
	Token string `env:"BRIDGE_TOKEN"`
}

// MetricsConfig holds the prometheus endpoint options
type MetricsConfig struct {
	Addr string `env:"METRICS_ADDR" envDefault:":9108"` // Empty disables the endpoint
}

// DiscordConfig holds the optional announcement relay
type DiscordConfig struct {
	Token             string `env:"DISCORD_TOKEN"`
	AnnounceChannelID string `env:"DISCORD_ANNOUNCE_CHANNEL_ID"`
}

// Enabled reports whether announcements should be relayed to Discord
func (c DiscordConfig) Enabled() bool {
	return c.Token != "" && c.AnnounceChannelID != ""
}

// LeaderboardConfig holds leaderboard cache options
type LeaderboardConfig struct {
	CacheTTL time.Duration `env:"LEADERBOARD_CACHE_TTL" envDefault:"60s"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Duel.AllowedCommands = normalizeCommands(cfg.Duel.AllowedCommands)
	cfg.Stats.Backend = strings.ToLower(strings.TrimSpace(cfg.Stats.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option ranges
func (c *Config) Validate() error {
	if c.Duel.CountdownSeconds < 0 {
		return fmt.Errorf("DUEL_COUNTDOWN_SECONDS must not be negative")
	}
	if c.Duel.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("DUEL_REQUEST_TIMEOUT_SECONDS must be positive")
	}

	hundred := decimal.NewFromInt(100)
	if c.Economy.WinnerPercentage.IsNegative() || c.Economy.WinnerPercentage.GreaterThan(hundred) {
		return fmt.Errorf("ECONOMY_WINNER_PERCENTAGE must be between 0 and 100")
	}
	if !c.Economy.MinBet.IsPositive() {
		return fmt.Errorf("ECONOMY_MIN_BET must be positive")
	}
	if c.Economy.MinBet.GreaterThan(c.Economy.MaxBet) {
		return fmt.Errorf("ECONOMY_MIN_BET must not exceed ECONOMY_MAX_BET")
	}

	switch c.Stats.Backend {
	case StatsBackendSQLite, StatsBackendRedis:
	default:
		return fmt.Errorf("unknown STATS_BACKEND %q", c.Stats.Backend)
	}
	if c.Stats.Backend == StatsBackendRedis && c.Storage.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when STATS_BACKEND is redis")
	}
	if c.Stats.FlushInterval <= 0 {
		return fmt.Errorf("STATS_FLUSH_INTERVAL must be positive")
	}
	if c.Stats.FlushDebounce <= 0 {
		return fmt.Errorf("STATS_FLUSH_DEBOUNCE must be positive")
	}

	return nil
}

// normalizeCommands lower-cases entries and strips a leading slash
func normalizeCommands(commands []string) []string {
	out := make([]string, 0, len(commands))
	for _, c := range commands {
		c = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c), "/"))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
