package stats

//go:generate mockgen -destination=mock/mock_repository.go -package=mockstats -source=repository.go

import (
	"context"

	"github.com/KirkDiggler/cduello/internal/entities"
)

// Order selects the leaderboard ranking
type Order string

const (
	OrderWins     Order = "wins"
	OrderMoneyWon Order = "money_won"
	OrderWinRatio Order = "win_ratio"
)

// Valid reports whether o is a known ordering
func (o Order) Valid() bool {
	switch o {
	case OrderWins, OrderMoneyWon, OrderWinRatio:
		return true
	}
	return false
}

// Repository defines the interface for player statistics storage
type Repository interface {
	// Get retrieves one player's record
	Get(ctx context.Context, playerID string) (*entities.PlayerStats, error)

	// SaveAll inserts or replaces every given record
	SaveAll(ctx context.Context, stats []*entities.PlayerStats) error

	// Top returns up to limit records ranked by order, best first
	Top(ctx context.Context, order Order, limit int) ([]*entities.PlayerStats, error)
}
