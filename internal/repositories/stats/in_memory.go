package stats

import (
	"context"
	"sort"
	"sync"

	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/KirkDiggler/cduello/internal/repositories"
)

type inMemoryRepository struct {
	mu    sync.RWMutex
	stats map[string]*entities.PlayerStats
}

// NewInMemoryRepository creates a new in-memory stats repository
func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		stats: make(map[string]*entities.PlayerStats),
	}
}

func (r *inMemoryRepository) Get(ctx context.Context, playerID string) (*entities.PlayerStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stats[playerID]
	if !ok {
		return nil, repositories.NewRecordNotFoundError(playerID)
	}
	return s.Clone(), nil
}

func (r *inMemoryRepository) SaveAll(ctx context.Context, records []*entities.PlayerStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range records {
		if s == nil || s.PlayerID == "" {
			continue
		}
		r.stats[s.PlayerID] = s.Clone()
	}
	return nil
}

func (r *inMemoryRepository) Top(ctx context.Context, order Order, limit int) ([]*entities.PlayerStats, error) {
	if !order.Valid() {
		return nil, repositories.NewInvalidRecordError("unknown order " + string(order))
	}

	r.mu.RLock()
	all := make([]*entities.PlayerStats, 0, len(r.stats))
	for _, s := range r.stats {
		all = append(all, s.Clone())
	}
	r.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch order {
		case OrderMoneyWon:
			if c := a.MoneyWon.Cmp(b.MoneyWon); c != 0 {
				return c > 0
			}
		case OrderWinRatio:
			if a.WinRatio() != b.WinRatio() {
				return a.WinRatio() > b.WinRatio()
			}
		default:
			if a.Wins != b.Wins {
				return a.Wins > b.Wins
			}
		}
		return a.PlayerID < b.PlayerID
	})

	if limit < len(all) {
		if limit < 0 {
			limit = 0
		}
		all = all[:limit]
	}
	return all, nil
}
