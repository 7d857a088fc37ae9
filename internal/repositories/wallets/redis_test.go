package wallets

import (
	"context"
	"errors"
	"testing"

	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RedisWalletTestSuite struct {
	suite.Suite
	mockClient *redis.Client
	mock       redismock.ClientMock
	wallet     *RedisWallet
}

func (s *RedisWalletTestSuite) SetupTest() {
	s.mockClient, s.mock = redismock.NewClientMock()
	s.wallet = NewRedisWallet(&RedisWalletConfig{Client: s.mockClient})
}

func (s *RedisWalletTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func TestRedisWalletTestSuite(t *testing.T) {
	suite.Run(t, new(RedisWalletTestSuite))
}

func (s *RedisWalletTestSuite) TestBalance() {
	ctx := context.Background()

	s.mock.ExpectGet("wallet:p1").SetVal("12345")
	bal, err := s.wallet.Balance(ctx, "p1")
	s.Require().NoError(err)
	s.Equal("123.45", bal.String())

	s.mock.ExpectGet("wallet:new").RedisNil()
	bal, err = s.wallet.Balance(ctx, "new")
	s.Require().NoError(err)
	s.True(bal.IsZero())

	s.mock.ExpectGet("wallet:p1").SetErr(errors.New("redis down"))
	_, err = s.wallet.Balance(ctx, "p1")
	s.Error(err)
}

func (s *RedisWalletTestSuite) TestWithdraw() {
	ctx := context.Background()

	s.Run("enough funds", func() {
		s.mock.ExpectEvalSha(withdrawScript.Hash(), []string{"wallet:p1"}, int64(10000)).SetVal(int64(500))
		s.NoError(s.wallet.Withdraw(ctx, "p1", decimal.NewFromInt(100)))
	})

	s.Run("insufficient funds", func() {
		s.mock.ExpectEvalSha(withdrawScript.Hash(), []string{"wallet:p1"}, int64(10000)).SetVal(int64(-1))
		err := s.wallet.Withdraw(ctx, "p1", decimal.NewFromInt(100))
		s.True(duelerr.IsFailedPrecondition(err))
		s.Equal("insufficient-funds", duelerr.MessageKey(err))
	})

	s.Run("negative amount", func() {
		err := s.wallet.Withdraw(ctx, "p1", decimal.NewFromInt(-5))
		s.True(duelerr.IsInvalidArgument(err))
	})
}

func (s *RedisWalletTestSuite) TestDeposit() {
	ctx := context.Background()

	s.mock.ExpectIncrBy("wallet:p1", 16000).SetVal(16500)
	s.NoError(s.wallet.Deposit(ctx, "p1", decimal.NewFromInt(160)))

	s.mock.ExpectIncrBy("wallet:p1", 1).SetErr(errors.New("redis down"))
	s.Error(s.wallet.Deposit(ctx, "p1", decimal.RequireFromString("0.01")))
}
