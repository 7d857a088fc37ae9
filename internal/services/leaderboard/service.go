// Package leaderboard ranks players and expands stats placeholders
package leaderboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KirkDiggler/cduello/internal/entities"
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	statsrepo "github.com/KirkDiggler/cduello/internal/repositories/stats"
	"github.com/KirkDiggler/cduello/internal/services/stats"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// MaxRank is the deepest rank placeholders can address
	MaxRank = 10

	defaultTTL = 60 * time.Second
	emptyRank  = "-"
)

// Service serves ranked players and placeholder values
type Service interface {
	// Top returns the best n players by order, cached for the configured TTL
	Top(ctx context.Context, order statsrepo.Order, n int) ([]*entities.PlayerStats, error)

	// Placeholder expands key for the player. ok is false for unknown keys.
	Placeholder(ctx context.Context, playerID, key string) (value string, ok bool)

	// Invalidate drops every cached ranking
	Invalidate()
}

// MoneyFormatter renders currency amounts
type MoneyFormatter func(amount decimal.Decimal) string

type service struct {
	stats  stats.Service
	format MoneyFormatter
	cache  *cache.Cache
	logger logrus.FieldLogger
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Stats    stats.Service      // Required
	Format   MoneyFormatter     // Optional, defaults to two fixed decimals
	CacheTTL time.Duration      // Optional, defaults to 60s
	Logger   logrus.FieldLogger // Optional
}

// NewService creates a new leaderboard service
func NewService(cfg *ServiceConfig) Service {
	if cfg == nil {
		panic("ServiceConfig cannot be nil")
	}
	if cfg.Stats == nil {
		panic("stats service is required")
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	svc := &service{
		stats:  cfg.Stats,
		format: cfg.Format,
		cache:  cache.New(ttl, 2*ttl),
		logger: cfg.Logger,
	}
	if svc.format == nil {
		svc.format = func(amount decimal.Decimal) string { return amount.StringFixed(2) }
	}
	if svc.logger == nil {
		svc.logger = logrus.StandardLogger()
	}
	return svc
}

func (s *service) Top(ctx context.Context, order statsrepo.Order, n int) ([]*entities.PlayerStats, error) {
	if !order.Valid() {
		return nil, duelerr.InvalidArgumentf("unknown leaderboard order %q", order)
	}
	if n <= 0 {
		return nil, nil
	}

	key := fmt.Sprintf("%s:%d", order, n)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]*entities.PlayerStats), nil
	}

	top, err := s.stats.Top(ctx, order, n)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, top)
	return top, nil
}

func (s *service) Invalidate() {
	s.cache.Flush()
}

func (s *service) Placeholder(ctx context.Context, playerID, key string) (string, bool) {
	key = strings.ToLower(strings.TrimSpace(key))

	if rank, field, ok := parseRankKey(key); ok {
		return s.rankPlaceholder(ctx, rank, field), true
	}

	switch key {
	case "wins", "losses", "total_duels", "win_ratio", "money_won", "money_lost", "net_earnings":
	default:
		return "", false
	}

	p, err := s.stats.Load(ctx, playerID)
	if err != nil {
		s.logger.WithError(err).WithField("player", playerID).Error("Failed to load stats for placeholder")
		p = entities.NewPlayerStats(playerID)
	}

	switch key {
	case "wins":
		return strconv.Itoa(p.Wins), true
	case "losses":
		return strconv.Itoa(p.Losses), true
	case "total_duels":
		return strconv.Itoa(p.TotalDuels()), true
	case "win_ratio":
		return FormatRatio(p.WinRatio()), true
	case "money_won":
		return s.format(p.MoneyWon), true
	case "money_lost":
		return s.format(p.MoneyLost), true
	default:
		return s.format(p.NetEarnings()), true
	}
}

func (s *service) rankPlaceholder(ctx context.Context, rank int, field string) string {
	top, err := s.Top(ctx, statsrepo.OrderWins, MaxRank)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load leaderboard for placeholder")
		return emptyRank
	}
	if rank > len(top) {
		return emptyRank
	}

	p := top[rank-1]
	if field == "wins" {
		return strconv.Itoa(p.Wins)
	}
	if p.PlayerName == "" {
		return p.PlayerID
	}
	return p.PlayerName
}

// FormatRatio renders a win percentage with one decimal
func FormatRatio(ratio float64) string {
	return strconv.FormatFloat(ratio, 'f', 1, 64) + "%"
}

// parseRankKey accepts top_<n>_name, top_<n>_wins and siralama_<n>
func parseRankKey(key string) (int, string, bool) {
	var raw, field string
	switch {
	case strings.HasPrefix(key, "siralama_"):
		raw, field = strings.TrimPrefix(key, "siralama_"), "name"
	case strings.HasPrefix(key, "top_"):
		rest := strings.TrimPrefix(key, "top_")
		idx := strings.IndexByte(rest, '_')
		if idx < 0 {
			return 0, "", false
		}
		raw, field = rest[:idx], rest[idx+1:]
		if field != "name" && field != "wins" {
			return 0, "", false
		}
	default:
		return 0, "", false
	}

	rank, err := strconv.Atoi(raw)
	if err != nil || rank < 1 || rank > MaxRank {
		return 0, "", false
	}
	return rank, field, true
}
