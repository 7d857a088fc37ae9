package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/KirkDiggler/cduello/internal/entities"
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/host"
	mockhost "github.com/KirkDiggler/cduello/internal/host/mock"
	"github.com/KirkDiggler/cduello/internal/messages"
	mockmessages "github.com/KirkDiggler/cduello/internal/messages/mock"
	"github.com/KirkDiggler/cduello/internal/metrics"
	mockscheduler "github.com/KirkDiggler/cduello/internal/scheduler/mock"
	"github.com/KirkDiggler/cduello/internal/services/economy"
	mockeconomy "github.com/KirkDiggler/cduello/internal/services/economy/mock"
	"github.com/KirkDiggler/cduello/internal/services/ledger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type startCall struct {
	challenger string
	challenged string
	bet        decimal.Decimal
}

type fakeSessions struct {
	inDuel   map[string]bool
	started  []startCall
	startErr error
	stakeErr error
}

func (f *fakeSessions) IsInDuel(playerID string) bool {
	return f.inDuel[playerID]
}

func (f *fakeSessions) Start(challenger, challenged host.Player, bet decimal.Decimal, done func(*entities.Duel, error)) error {
	if f.startErr != nil {
		return f.startErr
	}
	if f.stakeErr != nil {
		done(nil, f.stakeErr)
		return nil
	}
	f.started = append(f.started, startCall{challenger.ID(), challenged.ID(), bet})
	done(entities.NewDuel("duel-1", challenger.ID(), challenged.ID(), bet, time.Time{}), nil)
	return nil
}

type LedgerServiceTestSuite struct {
	suite.Suite
	server   *mockhost.FakeServer
	sched    *mockscheduler.ManualScheduler
	wallet   *mockeconomy.FakeWallet
	sessions *fakeSessions
	metrics  *metrics.Metrics
	svc      ledger.Service

	alice *mockhost.FakePlayer
	bob   *mockhost.FakePlayer
	cem   *mockhost.FakePlayer
}

func (s *LedgerServiceTestSuite) SetupTest() {
	s.server = mockhost.NewFakeServer()
	s.sched = mockscheduler.NewManualScheduler(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.wallet = mockeconomy.NewFakeWallet()
	s.sessions = &fakeSessions{inDuel: map[string]bool{}}
	s.metrics = metrics.New()

	s.alice = s.server.Join("alice", "Alice", entities.Location{World: "world"})
	s.bob = s.server.Join("bob", "Bob", entities.Location{World: "world"})
	s.cem = s.server.Join("cem", "Cem", entities.Location{World: "world"})

	s.svc = ledger.NewService(&ledger.ServiceConfig{
		Sessions: s.sessions,
		Economy: economy.NewService(&economy.ServiceConfig{
			Provider: s.wallet,
			Settings: economy.DefaultSettings(),
		}),
		Server:    s.server,
		Messenger: messages.NewMessenger(s.server, mockmessages.NewEchoCatalog()),
		Scheduler: s.sched,
		Metrics:   s.metrics,
		Timeout:   30 * time.Second,
	})
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

// send returns the outcome of Send, which the manual scheduler delivers inline
func (s *LedgerServiceTestSuite) send(sender, target host.Player, bet decimal.Decimal) error {
	var outcome error
	if err := s.svc.Send(sender, target, bet, func(err error) { outcome = err }); err != nil {
		return err
	}
	return outcome
}

// accept returns the outcome of Accept, which the manual scheduler delivers inline
func (s *LedgerServiceTestSuite) accept(target host.Player) (*entities.Duel, error) {
	var (
		duel    *entities.Duel
		outcome error
	)
	err := s.svc.Accept(target, func(d *entities.Duel, err error) {
		duel, outcome = d, err
	})
	if err != nil {
		return nil, err
	}
	return duel, outcome
}

func (s *LedgerServiceTestSuite) TestSendAndAccept() {
	s.Require().NoError(s.send(s.alice, s.bob, decimal.Zero))
	s.True(s.svc.HasPending("bob"))
	s.Equal("duel-request-sent player=Bob", s.alice.LastMessage())
	s.Equal("duel-request-received player=Alice", s.bob.LastMessage())

	duel, err := s.accept(s.bob)
	s.Require().NoError(err)
	s.Equal("alice", duel.ChallengerID)
	s.False(s.svc.HasPending("bob"))
	s.Equal("duel-accepted player=Bob", s.alice.LastMessage())
	s.Require().Len(s.sessions.started, 1)
	s.Equal(startCall{"alice", "bob", decimal.Zero}, s.sessions.started[0])

	// The expiry timer was cancelled with the request
	s.Equal(0, s.sched.Pending())
}

func (s *LedgerServiceTestSuite) TestSendMoneyRequest() {
	s.wallet.Set("alice", 500)
	s.wallet.Set("bob", 500)

	s.Require().NoError(s.send(s.alice, s.bob, decimal.NewFromInt(100)))
	s.Equal("duel-request-sent-money amount=100 player=Bob", s.alice.LastMessage())
	s.Equal("duel-request-received-money amount=100 player=Alice", s.bob.LastMessage())

	req, ok := s.svc.Pending("bob")
	s.Require().True(ok)
	s.True(req.Bet.Equal(decimal.NewFromInt(100)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Requests.WithLabelValues(metrics.RequestSent)))
}

func (s *LedgerServiceTestSuite) TestSendRejections() {
	s.wallet.Set("alice", 50)
	s.wallet.Set("bob", 500)

	err := s.send(s.alice, s.alice, decimal.Zero)
	s.Equal("no-self-duel", duelerr.MessageKey(err))

	err = s.send(s.alice, s.bob, decimal.NewFromInt(100))
	s.True(duelerr.IsFailedPrecondition(err))
	s.Equal("insufficient-funds", duelerr.MessageKey(err))
	s.Equal("100", duelerr.GetMeta(err)["amount"])

	err = s.send(s.bob, s.alice, decimal.NewFromInt(100))
	s.Equal("target-insufficient-funds", duelerr.MessageKey(err))
	s.Equal("Alice", duelerr.GetMeta(err)["player"])

	err = s.send(s.bob, s.alice, decimal.NewFromInt(5))
	s.Equal("bet-too-low", duelerr.MessageKey(err))

	s.sessions.inDuel["cem"] = true
	err = s.send(s.alice, s.cem, decimal.Zero)
	s.True(duelerr.IsConflict(err))
	s.Equal("target-in-duel", duelerr.MessageKey(err))

	err = s.send(s.cem, s.alice, decimal.Zero)
	s.Equal("already-in-duel", duelerr.MessageKey(err))

	s.False(s.svc.HasPending("alice"))
	s.False(s.svc.HasPending("bob"))
}

func (s *LedgerServiceTestSuite) TestSendMoneyWithEconomyDisabled() {
	svc := ledger.NewService(&ledger.ServiceConfig{
		Sessions:  s.sessions,
		Economy:   economy.NewService(&economy.ServiceConfig{Settings: economy.DefaultSettings()}),
		Server:    s.server,
		Messenger: messages.NewMessenger(s.server, mockmessages.NewEchoCatalog()),
		Scheduler: s.sched,
	})

	err := svc.Send(s.alice, s.bob, decimal.NewFromInt(100), nil)
	s.Equal("economy-not-enabled", duelerr.MessageKey(err))
}

func (s *LedgerServiceTestSuite) TestRequestExpires() {
	s.Require().NoError(s.send(s.alice, s.bob, decimal.Zero))
	s.alice.ClearMessages()
	s.bob.ClearMessages()

	s.sched.Advance(29 * time.Second)
	s.True(s.svc.HasPending("bob"))

	s.sched.Advance(time.Second)
	s.False(s.svc.HasPending("bob"))
	s.Equal("duel-request-timeout-sender player=Bob", s.alice.LastMessage())
	s.Equal("duel-request-timeout-target player=Alice", s.bob.LastMessage())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Requests.WithLabelValues(metrics.RequestExpired)))

	_, err := s.accept(s.bob)
	s.True(duelerr.IsNotFound(err))
	s.Equal("no-pending-requests", duelerr.MessageKey(err))
}

func (s *LedgerServiceTestSuite) TestReplacedRequestKeepsOwnTimer() {
	s.Require().NoError(s.send(s.alice, s.bob, decimal.Zero))
	s.sched.Advance(20 * time.Second)

	// A newer request to the same target replaces the first one
	s.Require().NoError(s.send(s.cem, s.bob, decimal.Zero))
	s.alice.ClearMessages()

	s.sched.Advance(10 * time.Second)
	req, ok := s.svc.Pending("bob")
	s.Require().True(ok)
	s.Equal("cem", req.SenderID)
	s.Empty(s.alice.Messages())

	s.sched.Advance(20 * time.Second)
	s.False(s.svc.HasPending("bob"))
	s.True(s.cem.ReceivedContaining("duel-request-timeout-sender"))
}

func (s *LedgerServiceTestSuite) TestDeny() {
	s.Require().NoError(s.send(s.alice, s.bob, decimal.Zero))

	s.Require().NoError(s.svc.Deny(s.bob))
	s.Equal("duel-request-denied-sender player=Bob", s.alice.LastMessage())
	s.Equal("duel-request-denied-target", s.bob.LastMessage())

	// A second deny and a late expiry find nothing
	err := s.svc.Deny(s.bob)
	s.Equal("no-pending-requests", duelerr.MessageKey(err))

	s.bob.ClearMessages()
	s.sched.Advance(time.Minute)
	s.Empty(s.bob.Messages())
	s.Empty(s.sessions.started)
}

func (s *LedgerServiceTestSuite) TestAcceptTwiceStartsOnce() {
	s.Require().NoError(s.send(s.alice, s.bob, decimal.Zero))

	_, err := s.accept(s.bob)
	s.Require().NoError(err)
	_, err = s.accept(s.bob)
	s.Equal("no-pending-requests", duelerr.MessageKey(err))
	s.Len(s.sessions.started, 1)
}

func (s *LedgerServiceTestSuite) TestAcceptSenderOffline() {
	s.Require().NoError(s.send(s.alice, s.bob, decimal.Zero))
	s.server.Quit("alice")

	_, err := s.accept(s.bob)
	s.Equal("sender-offline", duelerr.MessageKey(err))
	s.False(s.svc.HasPending("bob"))
	s.Empty(s.sessions.started)
}

func (s *LedgerServiceTestSuite) TestAcceptAfterStatusChanged() {
	s.Require().NoError(s.send(s.alice, s.bob, decimal.Zero))
	s.sessions.inDuel["alice"] = true

	_, err := s.accept(s.bob)
	s.Equal("duel-status-changed", duelerr.MessageKey(err))

	s.Require().NoError(s.send(s.cem, s.bob, decimal.Zero))
	s.sessions.inDuel["bob"] = true
	_, err = s.accept(s.bob)
	s.Equal("already-in-duel", duelerr.MessageKey(err))
	s.Empty(s.sessions.started)
}

func (s *LedgerServiceTestSuite) TestAcceptReportsStartFailure() {
	s.Require().NoError(s.send(s.alice, s.bob, decimal.Zero))
	s.sessions.startErr = duelerr.Conflictf("%s is busy", "alice").WithMessage("duel-status-changed")

	_, err := s.accept(s.bob)
	s.Require().Error(err)
	s.Equal("duel-status-changed", duelerr.MessageKey(err))
	s.True(errors.Is(err, s.sessions.startErr))
	s.False(s.svc.HasPending("bob"))
}

func (s *LedgerServiceTestSuite) TestAcceptReportsStakeFailure() {
	s.wallet.Set("alice", 500)
	s.wallet.Set("bob", 500)
	s.Require().NoError(s.send(s.alice, s.bob, decimal.NewFromInt(100)))
	s.alice.ClearMessages()
	s.sessions.stakeErr = duelerr.FailedPrecondition("no funds").
		WithMessage("sender-insufficient-funds").
		WithMeta("player", "Alice")

	duel, err := s.accept(s.bob)
	s.Nil(duel)
	s.Equal("sender-insufficient-funds", duelerr.MessageKey(err))
	s.True(errors.Is(err, s.sessions.stakeErr))

	// The challenger only hears about acceptance once the duel really starts
	s.False(s.alice.ReceivedContaining("duel-accepted"))
	s.Equal(0.0, testutil.ToFloat64(s.metrics.Requests.WithLabelValues(metrics.RequestAccepted)))
	s.False(s.svc.HasPending("bob"))
}

func (s *LedgerServiceTestSuite) TestMoneySendChecksBalancesOffLoop() {
	s.wallet.Set("alice", 500)
	s.wallet.Set("bob", 500)
	s.sched.HoldAsync()

	var outcome error
	called := false
	err := s.svc.Send(s.alice, s.bob, decimal.NewFromInt(100), func(err error) {
		called, outcome = true, err
	})
	s.Require().NoError(err)
	s.False(called)
	s.False(s.svc.HasPending("bob"))
	s.Equal(1, s.sched.HeldAsync())
	s.Empty(s.alice.Messages())

	s.sched.ReleaseAsync()
	s.True(called)
	s.NoError(outcome)
	s.True(s.svc.HasPending("bob"))
	s.Equal("duel-request-sent-money amount=100 player=Bob", s.alice.LastMessage())
}

func (s *LedgerServiceTestSuite) TestMoneySendRechecksDuelsAfterBalanceCheck() {
	s.wallet.Set("alice", 500)
	s.wallet.Set("bob", 500)
	s.sched.HoldAsync()

	var outcome error
	s.Require().NoError(s.svc.Send(s.alice, s.bob, decimal.NewFromInt(100), func(err error) {
		outcome = err
	}))
	s.sessions.inDuel["bob"] = true
	s.sched.ReleaseAsync()

	s.Equal("target-in-duel", duelerr.MessageKey(outcome))
	s.False(s.svc.HasPending("bob"))
}

func (s *LedgerServiceTestSuite) TestClear() {
	s.Require().NoError(s.send(s.alice, s.bob, decimal.Zero))
	s.Require().NoError(s.send(s.bob, s.cem, decimal.Zero))

	s.Equal(2, s.svc.Clear())
	s.False(s.svc.HasPending("bob"))
	s.False(s.svc.HasPending("cem"))
	s.Equal(0, s.sched.Pending())
}

func (s *LedgerServiceTestSuite) TestResendUsesLatestBet() {
	s.wallet.Set("alice", 1000)
	s.wallet.Set("bob", 1000)

	s.Require().NoError(s.send(s.alice, s.bob, decimal.NewFromInt(100)))
	s.Require().NoError(s.send(s.alice, s.bob, decimal.NewFromInt(250)))
	s.Equal(1, s.sched.Pending())

	_, err := s.accept(s.bob)
	s.Require().NoError(err)
	s.Require().Len(s.sessions.started, 1)
	s.True(s.sessions.started[0].bet.Equal(decimal.NewFromInt(250)))
}
