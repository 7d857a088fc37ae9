package mockeconomy

import (
	"context"
	"errors"
	"sync"

	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/services/economy"
	"github.com/shopspring/decimal"
)

// FakeWallet is an in-memory Provider that refuses overdrafts
type FakeWallet struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	failing  map[string]bool
}

var _ economy.Provider = (*FakeWallet)(nil)

// NewFakeWallet creates an empty wallet
func NewFakeWallet() *FakeWallet {
	return &FakeWallet{
		balances: make(map[string]decimal.Decimal),
		failing:  make(map[string]bool),
	}
}

// Set overwrites a player's balance
func (w *FakeWallet) Set(playerID string, amount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[playerID] = decimal.NewFromInt(amount)
}

// FailWithdrawals makes every withdrawal from the player fail
func (w *FakeWallet) FailWithdrawals(playerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failing[playerID] = true
}

// Get returns the current balance
func (w *FakeWallet) Get(playerID string) decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[playerID]
}

// Balance implements Provider
func (w *FakeWallet) Balance(_ context.Context, playerID string) (decimal.Decimal, error) {
	return w.Get(playerID), nil
}

// Withdraw implements Provider
func (w *FakeWallet) Withdraw(_ context.Context, playerID string, amount decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failing[playerID] {
		return errors.New("wallet unavailable")
	}
	balance := w.balances[playerID]
	if balance.LessThan(amount) {
		return duelerr.FailedPreconditionf("balance of %s is below %s", playerID, amount).
			WithMessage("insufficient-funds")
	}
	w.balances[playerID] = balance.Sub(amount)
	return nil
}

// Deposit implements Provider
func (w *FakeWallet) Deposit(_ context.Context, playerID string, amount decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[playerID] = w.balances[playerID].Add(amount)
	return nil
}
