package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KirkDiggler/cduello/internal/entities"
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Data is the serialized form of a stats record in Redis
type Data struct {
	PlayerID    string          `json:"player_id"`
	PlayerName  string          `json:"player_name"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	MoneyWon    decimal.Decimal `json:"money_won"`
	MoneyLost   decimal.Decimal `json:"money_lost"`
	LastUpdated time.Time       `json:"last_updated"`
}

var leaderboardKeys = map[Order]string{
	OrderWins:     "leaderboard:wins",
	OrderMoneyWon: "leaderboard:money_won",
	OrderWinRatio: "leaderboard:win_ratio",
}

type redisRepo struct {
	client redis.UniversalClient
}

// RedisRepoConfig holds configuration for the Redis repository
type RedisRepoConfig struct {
	Client redis.UniversalClient
}

// NewRedisRepository creates a stats repository storing one JSON document per
// player plus a sorted set per leaderboard order
func NewRedisRepository(cfg *RedisRepoConfig) Repository {
	if cfg == nil {
		panic("RedisRepoConfig cannot be nil")
	}
	if cfg.Client == nil {
		panic("Redis client cannot be nil")
	}
	return &redisRepo{client: cfg.Client}
}

func (r *redisRepo) key(playerID string) string {
	return fmt.Sprintf("stats:%s", playerID)
}

func (r *redisRepo) Get(ctx context.Context, playerID string) (*entities.PlayerStats, error) {
	if playerID == "" {
		return nil, duelerr.InvalidArgument("player ID is required")
	}

	raw, err := r.client.Get(ctx, r.key(playerID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, duelerr.NotFoundf("stats for %s not found", playerID)
	}
	if err != nil {
		return nil, duelerr.Wrapf(err, "failed to get stats for %s", playerID)
	}
	return r.decode(raw)
}

func (r *redisRepo) SaveAll(ctx context.Context, records []*entities.PlayerStats) error {
	if len(records) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	queued := 0
	for _, s := range records {
		if s == nil || s.PlayerID == "" {
			continue
		}
		data, err := json.Marshal(toData(s))
		if err != nil {
			return duelerr.Wrapf(err, "failed to marshal stats for %s", s.PlayerID)
		}
		pipe.Set(ctx, r.key(s.PlayerID), string(data), 0)
		pipe.ZAdd(ctx, leaderboardKeys[OrderWins], redis.Z{Score: float64(s.Wins), Member: s.PlayerID})
		pipe.ZAdd(ctx, leaderboardKeys[OrderMoneyWon], redis.Z{Score: s.MoneyWon.InexactFloat64(), Member: s.PlayerID})
		pipe.ZAdd(ctx, leaderboardKeys[OrderWinRatio], redis.Z{Score: s.WinRatio(), Member: s.PlayerID})
		queued++
	}
	if queued == 0 {
		return nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return duelerr.Wrap(err, "failed to save stats")
	}
	return nil
}

func (r *redisRepo) Top(ctx context.Context, order Order, limit int) ([]*entities.PlayerStats, error) {
	zkey, ok := leaderboardKeys[order]
	if !ok {
		return nil, duelerr.InvalidArgumentf("unknown order %q", order)
	}
	if limit <= 0 {
		return nil, nil
	}

	ids, err := r.client.ZRevRange(ctx, zkey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, duelerr.Wrapf(err, "failed to read %s", zkey)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, duelerr.Wrap(err, "failed to load leaderboard stats")
	}

	out := make([]*entities.PlayerStats, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// sorted set member without a document
			continue
		}
		s, err := r.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *redisRepo) decode(raw string) (*entities.PlayerStats, error) {
	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, duelerr.Wrap(err, "failed to unmarshal stats")
	}
	return fromData(&data), nil
}

func toData(s *entities.PlayerStats) *Data {
	return &Data{
		PlayerID:    s.PlayerID,
		PlayerName:  s.PlayerName,
		Wins:        s.Wins,
		Losses:      s.Losses,
		MoneyWon:    s.MoneyWon,
		MoneyLost:   s.MoneyLost,
		LastUpdated: s.LastUpdated,
	}
}

func fromData(d *Data) *entities.PlayerStats {
	return &entities.PlayerStats{
		PlayerID:    d.PlayerID,
		PlayerName:  d.PlayerName,
		Wins:        d.Wins,
		Losses:      d.Losses,
		MoneyWon:    d.MoneyWon,
		MoneyLost:   d.MoneyLost,
		LastUpdated: d.LastUpdated,
	}
}
