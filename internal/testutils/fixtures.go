package testutils

import (
	"time"

	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/shopspring/decimal"
)

// CreateTestLocation creates a location in the given world
func CreateTestLocation(world string, x, y, z float64) entities.Location {
	return entities.Location{World: world, X: x, Y: y, Z: z}
}

// CreateTestArena creates a usable arena with both corners set
func CreateTestArena(id, world string) *entities.Arena {
	pos1 := CreateTestLocation(world, 0, 64, 0)
	pos2 := CreateTestLocation(world, 20, 64, 20)
	return &entities.Arena{
		ID:      id,
		Name:    id,
		World:   world,
		Pos1:    &pos1,
		Pos2:    &pos2,
		Enabled: true,
	}
}

// CreateTestStats creates a stats record with the given results
func CreateTestStats(playerID string, wins, losses int, moneyWon int64) *entities.PlayerStats {
	s := entities.NewPlayerStats(playerID)
	s.PlayerName = playerID
	s.Wins = wins
	s.Losses = losses
	s.MoneyWon = decimal.NewFromInt(moneyWon)
	s.LastUpdated = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return s
}
