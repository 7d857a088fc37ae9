package economy

import (
	"context"
	"strings"
	"sync"

	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Settings are the reloadable money duel options
type Settings struct {
	Enabled               bool
	WinnerPercentage      decimal.Decimal
	MinBet                decimal.Decimal
	MaxBet                decimal.Decimal
	AnnouncementThreshold decimal.Decimal
}

// DefaultSettings mirror the configuration defaults
func DefaultSettings() Settings {
	return Settings{
		Enabled:               true,
		WinnerPercentage:      decimal.NewFromInt(80),
		MinBet:                decimal.NewFromInt(10),
		MaxBet:                decimal.NewFromInt(1000000),
		AnnouncementThreshold: decimal.NewFromInt(200000),
	}
}

// Service is the Economy Adapter used by the duel core
type Service interface {
	// Enabled reports whether money duels are possible
	Enabled() bool

	// Has reports whether the player can afford amount. Always false when disabled.
	Has(ctx context.Context, playerID string, amount decimal.Decimal) bool

	// Balance, Withdraw and Deposit only need a provider. They keep settling
	// duels already in flight after money duels are switched off.
	Balance(ctx context.Context, playerID string) (decimal.Decimal, error)
	Withdraw(ctx context.Context, playerID string, amount decimal.Decimal) error
	Deposit(ctx context.Context, playerID string, amount decimal.Decimal) error

	// Format renders an amount for players
	Format(amount decimal.Decimal) string

	// ParseBet parses a command argument into a bet
	ParseBet(raw string) (decimal.Decimal, error)

	// ValidateBet checks amount against the configured bounds
	ValidateBet(amount decimal.Decimal) error

	// ShouldAnnounce reports whether a pot reaches the announcement threshold
	ShouldAnnounce(pot decimal.Decimal) bool

	Settings() Settings
	SetSettings(settings Settings)
}

type service struct {
	provider Provider
	logger   logrus.FieldLogger
	printer  *message.Printer

	mu       sync.RWMutex
	settings Settings
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Provider Provider           // Optional, nil disables money duels
	Settings Settings           // Required
	Logger   logrus.FieldLogger // Optional
}

// NewService creates a new economy adapter
func NewService(cfg *ServiceConfig) Service {
	if cfg == nil {
		panic("ServiceConfig cannot be nil")
	}

	svc := &service{
		provider: cfg.Provider,
		settings: cfg.Settings,
		logger:   cfg.Logger,
		printer:  message.NewPrinter(language.Turkish),
	}
	if svc.logger == nil {
		svc.logger = logrus.StandardLogger()
	}
	if svc.provider == nil {
		svc.logger.Warn("No economy provider configured, money duels are disabled")
	}
	return svc
}

func (s *service) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider != nil && s.settings.Enabled
}

func (s *service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *service) SetSettings(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

func (s *service) Has(ctx context.Context, playerID string, amount decimal.Decimal) bool {
	if !s.Enabled() {
		return false
	}
	balance, err := s.provider.Balance(ctx, playerID)
	if err != nil {
		s.logger.WithError(err).WithField("player", playerID).Error("Failed to read balance")
		return false
	}
	return balance.GreaterThanOrEqual(amount)
}

func (s *service) Balance(ctx context.Context, playerID string) (decimal.Decimal, error) {
	if s.provider == nil {
		return decimal.Zero, disabledError()
	}
	return s.provider.Balance(ctx, playerID)
}

func (s *service) Withdraw(ctx context.Context, playerID string, amount decimal.Decimal) error {
	if s.provider == nil {
		return disabledError()
	}
	if !amount.IsPositive() {
		return duelerr.InvalidArgumentf("withdraw amount %s must be positive", amount).WithMessage("invalid-amount")
	}
	if err := s.provider.Withdraw(ctx, playerID, amount); err != nil {
		return duelerr.Wrapf(err, "failed to withdraw %s from %s", amount, playerID)
	}
	return nil
}

func (s *service) Deposit(ctx context.Context, playerID string, amount decimal.Decimal) error {
	if s.provider == nil {
		return disabledError()
	}
	if !amount.IsPositive() {
		return nil
	}
	if err := s.provider.Deposit(ctx, playerID, amount); err != nil {
		return duelerr.Wrapf(err, "failed to deposit %s to %s", amount, playerID)
	}
	return nil
}

// Format groups thousands and keeps at most two fraction digits, Turkish style
func (s *service) Format(amount decimal.Decimal) string {
	return s.printer.Sprint(number.Decimal(amount.InexactFloat64(), number.MaxFractionDigits(2)))
}

func (s *service) ParseBet(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, duelerr.InvalidArgumentf("invalid bet %q", raw).WithMessage("invalid-amount")
	}
	return amount, nil
}

func (s *service) ValidateBet(amount decimal.Decimal) error {
	settings := s.Settings()
	if amount.LessThan(settings.MinBet) {
		return duelerr.OutOfRangef("bet %s below minimum %s", amount, settings.MinBet).
			WithMessage("bet-too-low").
			WithMeta("amount", s.Format(settings.MinBet))
	}
	if amount.GreaterThan(settings.MaxBet) {
		return duelerr.OutOfRangef("bet %s above maximum %s", amount, settings.MaxBet).
			WithMessage("bet-too-high").
			WithMeta("amount", s.Format(settings.MaxBet))
	}
	return nil
}

func (s *service) ShouldAnnounce(pot decimal.Decimal) bool {
	return pot.GreaterThanOrEqual(s.Settings().AnnouncementThreshold)
}

func disabledError() error {
	return duelerr.FailedPrecondition("economy is not enabled").WithMessage("economy-not-enabled")
}
