package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlayerStats holds accumulated duel results for one player
type PlayerStats struct {
	PlayerID    string          `json:"player_id"`
	PlayerName  string          `json:"player_name"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	MoneyWon    decimal.Decimal `json:"money_won"`
	MoneyLost   decimal.Decimal `json:"money_lost"`
	LastUpdated time.Time       `json:"last_updated"`
}

// NewPlayerStats returns a zeroed record
func NewPlayerStats(playerID string) *PlayerStats {
	return &PlayerStats{
		PlayerID:  playerID,
		MoneyWon:  decimal.Zero,
		MoneyLost: decimal.Zero,
	}
}

// TotalDuels is wins plus losses
func (s *PlayerStats) TotalDuels() int {
	return s.Wins + s.Losses
}

// WinRatio is the win percentage, 0 when no duel has been played
func (s *PlayerStats) WinRatio() float64 {
	total := s.TotalDuels()
	if total == 0 {
		return 0
	}
	return float64(s.Wins) / float64(total) * 100
}

// NetEarnings is money won minus money lost
func (s *PlayerStats) NetEarnings() decimal.Decimal {
	return s.MoneyWon.Sub(s.MoneyLost)
}

// Clone returns an independent copy
func (s *PlayerStats) Clone() *PlayerStats {
	c := *s
	return &c
}
