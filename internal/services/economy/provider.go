package economy

//go:generate mockgen -destination=mock/mock_provider.go -package=mockeconomy -source=provider.go

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider is the balance store money duels draw from
type Provider interface {
	// Balance returns the player's current balance
	Balance(ctx context.Context, playerID string) (decimal.Decimal, error)

	// Withdraw removes amount or fails leaving the balance untouched
	Withdraw(ctx context.Context, playerID string, amount decimal.Decimal) error

	// Deposit adds amount
	Deposit(ctx context.Context, playerID string, amount decimal.Decimal) error
}
