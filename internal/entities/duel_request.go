package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// DuelRequest is an unanswered invitation, keyed by its target
type DuelRequest struct {
	SenderID  string          `json:"sender_id"`
	TargetID  string          `json:"target_id"`
	CreatedAt time.Time       `json:"created_at"`
	Bet       decimal.Decimal `json:"bet"`
}

// IsMoneyDuel reports whether the request carries a wager
func (r *DuelRequest) IsMoneyDuel() bool {
	return r.Bet.IsPositive()
}

// Same reports whether other is the very same request, not just one between the same players
func (r *DuelRequest) Same(other *DuelRequest) bool {
	if r == nil || other == nil {
		return false
	}
	return r.SenderID == other.SenderID &&
		r.TargetID == other.TargetID &&
		r.CreatedAt.Equal(other.CreatedAt)
}
