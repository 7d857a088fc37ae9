package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DuelState represents the lifecycle state of a duel
type DuelState string

const (
	DuelStatePending   DuelState = "PENDING"   // Countdown running, combat not yet allowed
	DuelStateActive    DuelState = "ACTIVE"    // Combat in progress
	DuelStateFinished  DuelState = "FINISHED"  // Decided with a winner
	DuelStateCancelled DuelState = "CANCELLED" // Ended early, bets refunded
)

// IsTerminal reports whether no further transitions are possible
func (s DuelState) IsTerminal() bool {
	return s == DuelStateFinished || s == DuelStateCancelled
}

// Duel is a running encounter between two players
type Duel struct {
	ID                 string          `json:"id"`
	ChallengerID       string          `json:"challenger_id"` // Player who sent the request
	ChallengedID       string          `json:"challenged_id"` // Player who accepted
	ChallengerLocation Location        `json:"challenger_location"`
	ChallengedLocation Location        `json:"challenged_location"`
	State              DuelState       `json:"state"`
	WinnerID           string          `json:"winner_id,omitempty"` // Empty until FINISHED
	Bet                decimal.Decimal `json:"bet"`
	ArenaID            string          `json:"arena_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// NewDuel creates a duel in the PENDING state
func NewDuel(id, challengerID, challengedID string, bet decimal.Decimal, now time.Time) *Duel {
	return &Duel{
		ID:           id,
		ChallengerID: challengerID,
		ChallengedID: challengedID,
		State:        DuelStatePending,
		Bet:          bet,
		CreatedAt:    now,
	}
}

// HasPlayer reports whether the player takes part in this duel
func (d *Duel) HasPlayer(playerID string) bool {
	return d.ChallengerID == playerID || d.ChallengedID == playerID
}

// Opponent returns the other participant, or "" if playerID is not in the duel
func (d *Duel) Opponent(playerID string) string {
	switch playerID {
	case d.ChallengerID:
		return d.ChallengedID
	case d.ChallengedID:
		return d.ChallengerID
	default:
		return ""
	}
}

// LocationOf returns the pre-duel location recorded for the player
func (d *Duel) LocationOf(playerID string) (Location, bool) {
	switch playerID {
	case d.ChallengerID:
		return d.ChallengerLocation, true
	case d.ChallengedID:
		return d.ChallengedLocation, true
	default:
		return Location{}, false
	}
}

// IsMoneyDuel reports whether currency is wagered
func (d *Duel) IsMoneyDuel() bool {
	return d.Bet.IsPositive()
}

// TotalPot is both stakes combined
func (d *Duel) TotalPot() decimal.Decimal {
	return d.Bet.Mul(decimal.NewFromInt(2))
}

// WinnerAmount is the share of the pot paid to the winner
func (d *Duel) WinnerAmount(winnerPercentage decimal.Decimal) decimal.Decimal {
	return d.TotalPot().Mul(winnerPercentage).Div(decimal.NewFromInt(100))
}

// Transition moves the duel to the next state. Only forward moves are accepted.
func (d *Duel) Transition(to DuelState) error {
	ok := false
	switch d.State {
	case DuelStatePending:
		ok = to == DuelStateActive || to == DuelStateCancelled
	case DuelStateActive:
		ok = to == DuelStateFinished || to == DuelStateCancelled
	}
	if !ok {
		return fmt.Errorf("invalid duel transition %s -> %s", d.State, to)
	}
	d.State = to
	return nil
}
