// Package wallets stores player balances in Redis as integer cents
package wallets

import (
	"context"
	"errors"
	"fmt"

	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// withdrawScript refuses to take a wallet below zero. Returns the new balance
// or -1 when funds are insufficient.
var withdrawScript = redis.NewScript(`
local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if balance < amount then
	return -1
end
return redis.call('DECRBY', KEYS[1], amount)
`)

// RedisWallet is a balance provider backed by Redis
type RedisWallet struct {
	client redis.UniversalClient
}

// RedisWalletConfig holds configuration for the Redis wallet
type RedisWalletConfig struct {
	Client redis.UniversalClient
}

// NewRedisWallet creates a new Redis-backed wallet
func NewRedisWallet(cfg *RedisWalletConfig) *RedisWallet {
	if cfg == nil {
		panic("RedisWalletConfig cannot be nil")
	}
	if cfg.Client == nil {
		panic("Redis client cannot be nil")
	}
	return &RedisWallet{client: cfg.Client}
}

func (w *RedisWallet) key(playerID string) string {
	return fmt.Sprintf("wallet:%s", playerID)
}

// Balance returns the player's balance, zero for an unknown wallet
func (w *RedisWallet) Balance(ctx context.Context, playerID string) (decimal.Decimal, error) {
	cents, err := w.client.Get(ctx, w.key(playerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, duelerr.Wrapf(err, "failed to read wallet for %s", playerID)
	}
	return fromCents(cents), nil
}

// Withdraw removes amount from the wallet or fails without touching it
func (w *RedisWallet) Withdraw(ctx context.Context, playerID string, amount decimal.Decimal) error {
	cents, err := toCents(amount)
	if err != nil {
		return err
	}

	result, err := withdrawScript.Run(ctx, w.client, []string{w.key(playerID)}, cents).Int64()
	if err != nil {
		return duelerr.Wrapf(err, "failed to withdraw from %s", playerID)
	}
	if result < 0 {
		return duelerr.FailedPreconditionf("insufficient funds for %s", playerID).
			WithMessage("insufficient-funds")
	}
	return nil
}

// Deposit adds amount to the wallet
func (w *RedisWallet) Deposit(ctx context.Context, playerID string, amount decimal.Decimal) error {
	cents, err := toCents(amount)
	if err != nil {
		return err
	}
	if err := w.client.IncrBy(ctx, w.key(playerID), cents).Err(); err != nil {
		return duelerr.Wrapf(err, "failed to deposit to %s", playerID)
	}
	return nil
}

func toCents(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, duelerr.InvalidArgumentf("amount %s is negative", amount)
	}
	return amount.Shift(2).Round(0).IntPart(), nil
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
