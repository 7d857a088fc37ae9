package economy_test

import (
	"context"
	"errors"
	"testing"

	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/services/economy"
	mockeconomy "github.com/KirkDiggler/cduello/internal/services/economy/mock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type EconomyServiceTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	provider *mockeconomy.MockProvider
	svc      economy.Service
	ctx      context.Context
}

func (s *EconomyServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.provider = mockeconomy.NewMockProvider(s.ctrl)
	s.svc = economy.NewService(&economy.ServiceConfig{
		Provider: s.provider,
		Settings: economy.DefaultSettings(),
	})
	s.ctx = context.Background()
}

func (s *EconomyServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestEconomyServiceSuite(t *testing.T) {
	suite.Run(t, new(EconomyServiceTestSuite))
}

func (s *EconomyServiceTestSuite) TestHas() {
	s.provider.EXPECT().Balance(s.ctx, "p1").Return(decimal.NewFromInt(100), nil)
	s.True(s.svc.Has(s.ctx, "p1", decimal.NewFromInt(100)))

	s.provider.EXPECT().Balance(s.ctx, "p1").Return(decimal.NewFromInt(99), nil)
	s.False(s.svc.Has(s.ctx, "p1", decimal.NewFromInt(100)))

	s.provider.EXPECT().Balance(s.ctx, "p1").Return(decimal.Zero, errors.New("down"))
	s.False(s.svc.Has(s.ctx, "p1", decimal.NewFromInt(1)))
}

func (s *EconomyServiceTestSuite) TestWithdrawAndDeposit() {
	bet := decimal.NewFromInt(100)

	s.provider.EXPECT().Withdraw(s.ctx, "p1", bet).Return(nil)
	s.NoError(s.svc.Withdraw(s.ctx, "p1", bet))

	s.provider.EXPECT().Withdraw(s.ctx, "p1", bet).
		Return(duelerr.FailedPrecondition("broke").WithMessage("insufficient-funds"))
	err := s.svc.Withdraw(s.ctx, "p1", bet)
	s.True(duelerr.IsFailedPrecondition(err))
	s.Equal("insufficient-funds", duelerr.MessageKey(err))

	s.provider.EXPECT().Deposit(s.ctx, "p1", bet).Return(nil)
	s.NoError(s.svc.Deposit(s.ctx, "p1", bet))

	// zero deposits are skipped
	s.NoError(s.svc.Deposit(s.ctx, "p1", decimal.Zero))
}

func (s *EconomyServiceTestSuite) TestValidateBet() {
	testCases := []struct {
		name    string
		amount  int64
		wantKey string
	}{
		{name: "below minimum", amount: 5, wantKey: "bet-too-low"},
		{name: "at minimum", amount: 10},
		{name: "at maximum", amount: 1000000},
		{name: "above maximum", amount: 1000001, wantKey: "bet-too-high"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := s.svc.ValidateBet(decimal.NewFromInt(tc.amount))
			if tc.wantKey == "" {
				s.NoError(err)
				return
			}
			s.True(duelerr.Is(err, duelerr.CodeOutOfRange))
			s.Equal(tc.wantKey, duelerr.MessageKey(err))
		})
	}
}

func (s *EconomyServiceTestSuite) TestShouldAnnounce() {
	s.True(s.svc.ShouldAnnounce(decimal.NewFromInt(200000)))
	s.False(s.svc.ShouldAnnounce(decimal.NewFromInt(199999)))
}

func TestDisabledEconomy(t *testing.T) {
	ctx := context.Background()
	svc := economy.NewService(&economy.ServiceConfig{Settings: economy.DefaultSettings()})

	assert.False(t, svc.Enabled())
	assert.False(t, svc.Has(ctx, "p1", decimal.NewFromInt(1)))

	err := svc.Withdraw(ctx, "p1", decimal.NewFromInt(10))
	require.Error(t, err)
	assert.Equal(t, "economy-not-enabled", duelerr.MessageKey(err))

	err = svc.Deposit(ctx, "p1", decimal.NewFromInt(10))
	assert.Equal(t, "economy-not-enabled", duelerr.MessageKey(err))
}

func TestSettingsDisableEconomy(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := economy.NewService(&economy.ServiceConfig{
		Provider: mockeconomy.NewMockProvider(ctrl),
		Settings: economy.DefaultSettings(),
	})
	require.True(t, svc.Enabled())

	settings := svc.Settings()
	settings.Enabled = false
	svc.SetSettings(settings)
	assert.False(t, svc.Enabled())
	assert.False(t, svc.Has(context.Background(), "p1", decimal.NewFromInt(1)))
}

func TestSettlementContinuesAfterDisable(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	provider := mockeconomy.NewMockProvider(ctrl)
	svc := economy.NewService(&economy.ServiceConfig{
		Provider: provider,
		Settings: economy.DefaultSettings(),
	})

	settings := svc.Settings()
	settings.Enabled = false
	svc.SetSettings(settings)

	bet := decimal.NewFromInt(100)
	provider.EXPECT().Deposit(ctx, "p1", bet).Return(nil)
	provider.EXPECT().Withdraw(ctx, "p2", bet).Return(nil)
	provider.EXPECT().Balance(ctx, "p1").Return(decimal.NewFromInt(1000), nil)

	require.NoError(t, svc.Deposit(ctx, "p1", bet))
	require.NoError(t, svc.Withdraw(ctx, "p2", bet))
	balance, err := svc.Balance(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000)))
}

func TestFormat(t *testing.T) {
	svc := economy.NewService(&economy.ServiceConfig{Settings: economy.DefaultSettings()})

	assert.Equal(t, "160", svc.Format(decimal.NewFromInt(160)))
	assert.Equal(t, "1.234.567,5", svc.Format(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "0,33", svc.Format(decimal.RequireFromString("0.333")))
}

func TestParseBet(t *testing.T) {
	svc := economy.NewService(&economy.ServiceConfig{Settings: economy.DefaultSettings()})

	bet, err := svc.ParseBet(" 250.5 ")
	require.NoError(t, err)
	assert.Equal(t, "250.5", bet.String())

	for _, raw := range []string{"abc", "-5", "0", ""} {
		_, err := svc.ParseBet(raw)
		assert.Equal(t, "invalid-amount", duelerr.MessageKey(err), raw)
	}
}
