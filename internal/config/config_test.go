package config_test

import (
	"testing"
	"time"

	"github.com/KirkDiggler/cduello/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Duel.Countdown())
	assert.Equal(t, 30*time.Second, cfg.Duel.RequestTimeout())
	assert.True(t, cfg.Duel.ArenasEnabled)
	assert.True(t, cfg.Duel.TeleportBack)
	assert.False(t, cfg.Duel.KeepInventory)
	assert.Equal(t, []string{"msg", "r", "tell"}, cfg.Duel.AllowedCommands)
	assert.True(t, decimal.NewFromInt(80).Equal(cfg.Economy.WinnerPercentage))
	assert.True(t, decimal.NewFromInt(10).Equal(cfg.Economy.MinBet))
	assert.True(t, decimal.NewFromInt(1000000).Equal(cfg.Economy.MaxBet))
	assert.True(t, decimal.NewFromInt(200000).Equal(cfg.Economy.AnnouncementThreshold))
	assert.Equal(t, config.StatsBackendSQLite, cfg.Stats.Backend)
	assert.Equal(t, 300*time.Second, cfg.Stats.FlushInterval)
	assert.Equal(t, time.Second, cfg.Stats.FlushDebounce)
	assert.Equal(t, 60*time.Second, cfg.Leaderboard.CacheTTL)
	assert.False(t, cfg.Discord.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DUEL_COUNTDOWN_SECONDS", "3")
	t.Setenv("DUEL_ALLOWED_COMMANDS", "/Spawn, msg ,")
	t.Setenv("ECONOMY_WINNER_PERCENTAGE", "90")
	t.Setenv("STATS_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Duel.Countdown())
	assert.Equal(t, []string{"spawn", "msg"}, cfg.Duel.AllowedCommands)
	assert.True(t, decimal.NewFromInt(90).Equal(cfg.Economy.WinnerPercentage))
	assert.Equal(t, config.StatsBackendRedis, cfg.Stats.Backend)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "winner percentage above 100", key: "ECONOMY_WINNER_PERCENTAGE", val: "120"},
		{name: "min bet above max bet", key: "ECONOMY_MIN_BET", val: "5000000"},
		{name: "zero request timeout", key: "DUEL_REQUEST_TIMEOUT_SECONDS", val: "0"},
		{name: "unknown stats backend", key: "STATS_BACKEND", val: "postgres"},
		{name: "redis backend without url", key: "STATS_BACKEND", val: "redis"},
		{name: "malformed countdown", key: "DUEL_COUNTDOWN_SECONDS", val: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
