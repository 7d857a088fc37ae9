// Package ledger keeps pending duel requests, at most one per target, and hands
// accepted ones to the session manager.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/KirkDiggler/cduello/internal/entities"
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/host"
	"github.com/KirkDiggler/cduello/internal/messages"
	"github.com/KirkDiggler/cduello/internal/metrics"
	"github.com/KirkDiggler/cduello/internal/scheduler"
	"github.com/KirkDiggler/cduello/internal/services/economy"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 30 * time.Second
	economyTimeout = 5 * time.Second
)

// Sessions is the part of the session manager the ledger depends on
type Sessions interface {
	IsInDuel(playerID string) bool
	Start(challenger, challenged host.Player, bet decimal.Decimal, done func(*entities.Duel, error)) error
}

// Service is the Duel Request Ledger.
//
// Send and Accept return immediate rejections. Anything that needs the economy
// finishes on a worker, and done then runs on the loop with the outcome. done may
// be nil and is only called when the returned error is nil.
type Service interface {
	// Send records a request from sender to target, replacing any request the target
	// already holds, and schedules its expiry. Money requests check both balances first.
	Send(sender, target host.Player, bet decimal.Decimal, done func(error)) error

	// Accept resolves the target's pending request and starts the duel. Taking the
	// bets is the funds check for money duels.
	Accept(target host.Player, done func(*entities.Duel, error)) error

	// Deny discards the target's pending request
	Deny(target host.Player) error

	HasPending(targetID string) bool

	// Pending returns a copy of the target's request
	Pending(targetID string) (*entities.DuelRequest, bool)

	// Clear drops every request and cancels their expiry timers
	Clear() int

	// SetTimeout changes the lifetime of requests sent from now on
	SetTimeout(timeout time.Duration)
}

type entry struct {
	request    *entities.DuelRequest
	senderName string
	targetName string
	expiry     scheduler.Task
}

type service struct {
	sessions  Sessions
	economy   economy.Service
	server    host.Server
	messenger *messages.Messenger
	scheduler scheduler.Scheduler
	metrics   *metrics.Metrics
	logger    logrus.FieldLogger

	mu       sync.Mutex
	requests map[string]*entry
	timeout  time.Duration
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Sessions  Sessions            // Required
	Economy   economy.Service     // Required
	Server    host.Server         // Required
	Messenger *messages.Messenger // Required
	Scheduler scheduler.Scheduler // Required
	Metrics   *metrics.Metrics    // Optional
	Logger    logrus.FieldLogger  // Optional
	Timeout   time.Duration       // Optional, defaults to 30s
}

// NewService creates a new request ledger
func NewService(cfg *ServiceConfig) Service {
	if cfg == nil {
		panic("ServiceConfig cannot be nil")
	}
	if cfg.Sessions == nil {
		panic("sessions is required")
	}
	if cfg.Economy == nil {
		panic("economy is required")
	}
	if cfg.Server == nil {
		panic("server is required")
	}
	if cfg.Messenger == nil {
		panic("messenger is required")
	}
	if cfg.Scheduler == nil {
		panic("scheduler is required")
	}

	svc := &service{
		sessions:  cfg.Sessions,
		economy:   cfg.Economy,
		server:    cfg.Server,
		messenger: cfg.Messenger,
		scheduler: cfg.Scheduler,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		requests:  make(map[string]*entry),
		timeout:   cfg.Timeout,
	}
	if svc.metrics == nil {
		svc.metrics = metrics.New()
	}
	if svc.logger == nil {
		svc.logger = logrus.StandardLogger()
	}
	svc.logger = svc.logger.WithField("component", "ledger")
	if svc.timeout <= 0 {
		svc.timeout = defaultTimeout
	}
	return svc
}

func (s *service) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = timeout
}

func (s *service) Send(sender, target host.Player, bet decimal.Decimal, done func(error)) error {
	if done == nil {
		done = func(error) {}
	}
	if err := s.checkPlayers(sender, target); err != nil {
		return err
	}

	if !bet.IsPositive() {
		s.record(sender, target, bet)
		done(nil)
		return nil
	}

	if !s.economy.Enabled() {
		return duelerr.FailedPrecondition("economy is not enabled").WithMessage("economy-not-enabled")
	}
	if err := s.economy.ValidateBet(bet); err != nil {
		return err
	}

	senderID, targetID := sender.ID(), target.ID()
	s.scheduler.RunAsync(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, economyTimeout)
		defer cancel()
		if !s.economy.Has(ctx, senderID, bet) {
			return errSenderFunds
		}
		if !s.economy.Has(ctx, targetID, bet) {
			return errTargetFunds
		}
		return nil
	}, func(err error) {
		switch {
		case errors.Is(err, errSenderFunds):
			err = duelerr.FailedPreconditionf("sender %s cannot afford %s", senderID, bet).
				WithMessage("insufficient-funds").
				WithMeta("amount", s.economy.Format(bet))
		case errors.Is(err, errTargetFunds):
			err = duelerr.FailedPreconditionf("target %s cannot afford %s", targetID, bet).
				WithMessage("target-insufficient-funds").
				WithMeta("player", target.Name())
		case err != nil:
			err = duelerr.Wrap(err, "failed to check balances")
		default:
			// Either player may have entered a duel meanwhile
			err = s.checkPlayers(sender, target)
		}
		if err != nil {
			done(err)
			return
		}
		s.record(sender, target, bet)
		done(nil)
	})
	return nil
}

var (
	errSenderFunds = errors.New("sender cannot afford the bet")
	errTargetFunds = errors.New("target cannot afford the bet")
)

func (s *service) checkPlayers(sender, target host.Player) error {
	if sender.ID() == target.ID() {
		return duelerr.InvalidArgument("cannot duel yourself").WithMessage("no-self-duel")
	}
	if s.sessions.IsInDuel(sender.ID()) {
		return duelerr.Conflictf("sender %s is in a duel", sender.ID()).WithMessage("already-in-duel")
	}
	if s.sessions.IsInDuel(target.ID()) {
		return duelerr.Conflictf("target %s is in a duel", target.ID()).
			WithMessage("target-in-duel").
			WithMeta("player", target.Name())
	}
	return nil
}

// record stores the request, replacing the target's previous one, and tells both players
func (s *service) record(sender, target host.Player, bet decimal.Decimal) {
	req := &entities.DuelRequest{
		SenderID:  sender.ID(),
		TargetID:  target.ID(),
		CreatedAt: s.scheduler.Now(),
		Bet:       bet,
	}
	e := &entry{request: req, senderName: sender.Name(), targetName: target.Name()}

	s.mu.Lock()
	if old, ok := s.requests[target.ID()]; ok && old.expiry != nil {
		old.expiry.Cancel()
	}
	s.requests[target.ID()] = e
	e.expiry = s.scheduler.RunLater(s.timeout, func() {
		s.expire(e)
	})
	s.mu.Unlock()

	s.metrics.Requests.WithLabelValues(metrics.RequestSent).Inc()
	s.logger.WithFields(logrus.Fields{
		"player": sender.ID(),
		"target": target.ID(),
		"bet":    bet.String(),
	}).Debug("Duel request sent")

	if req.IsMoneyDuel() {
		amount := s.economy.Format(bet)
		s.messenger.Send(sender, "duel-request-sent-money", messages.Args{"player": target.Name(), "amount": amount})
		s.messenger.Send(target, "duel-request-received-money", messages.Args{"player": sender.Name(), "amount": amount})
	} else {
		s.messenger.Send(sender, "duel-request-sent", messages.Args{"player": target.Name()})
		s.messenger.Send(target, "duel-request-received", messages.Args{"player": sender.Name()})
	}
}

// expire removes e only if it is still the target's current request
func (s *service) expire(e *entry) {
	s.mu.Lock()
	current, ok := s.requests[e.request.TargetID]
	if !ok || current != e {
		s.mu.Unlock()
		return
	}
	delete(s.requests, e.request.TargetID)
	s.mu.Unlock()

	s.metrics.Requests.WithLabelValues(metrics.RequestExpired).Inc()
	s.messenger.SendTo(e.request.SenderID, "duel-request-timeout-sender", messages.Args{"player": e.targetName})
	s.messenger.SendTo(e.request.TargetID, "duel-request-timeout-target", messages.Args{"player": e.senderName})
}

// take removes and returns the target's request. The first caller wins.
func (s *service) take(targetID string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.requests[targetID]
	if !ok {
		return nil, false
	}
	delete(s.requests, targetID)
	if e.expiry != nil {
		e.expiry.Cancel()
	}
	return e, true
}

func (s *service) Accept(target host.Player, done func(*entities.Duel, error)) error {
	if done == nil {
		done = func(*entities.Duel, error) {}
	}
	e, ok := s.take(target.ID())
	if !ok {
		return noPendingError(target.ID())
	}
	req := e.request

	sender, online := s.server.Player(req.SenderID)
	if !online {
		return duelerr.FailedPreconditionf("sender %s is offline", req.SenderID).WithMessage("sender-offline")
	}
	if s.sessions.IsInDuel(target.ID()) {
		return duelerr.Conflictf("target %s is in a duel", target.ID()).WithMessage("already-in-duel")
	}
	if s.sessions.IsInDuel(sender.ID()) {
		return duelerr.Conflictf("sender %s is in a duel", sender.ID()).WithMessage("duel-status-changed")
	}

	err := s.sessions.Start(sender, target, req.Bet, func(duel *entities.Duel, err error) {
		if err != nil {
			done(nil, duelerr.Wrapf(err, "failed to start duel between %s and %s", sender.ID(), target.ID()))
			return
		}
		s.metrics.Requests.WithLabelValues(metrics.RequestAccepted).Inc()
		s.messenger.Send(sender, "duel-accepted", messages.Args{"player": target.Name()})
		done(duel, nil)
	})
	if err != nil {
		return duelerr.Wrapf(err, "failed to start duel between %s and %s", sender.ID(), target.ID())
	}
	return nil
}

func (s *service) Deny(target host.Player) error {
	e, ok := s.take(target.ID())
	if !ok {
		return noPendingError(target.ID())
	}

	s.metrics.Requests.WithLabelValues(metrics.RequestDenied).Inc()
	s.messenger.SendTo(e.request.SenderID, "duel-request-denied-sender", messages.Args{"player": target.Name()})
	s.messenger.Send(target, "duel-request-denied-target", nil)
	return nil
}

func (s *service) HasPending(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.requests[targetID]
	return ok
}

func (s *service) Pending(targetID string) (*entities.DuelRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.requests[targetID]
	if !ok {
		return nil, false
	}
	req := *e.request
	return &req, true
}

func (s *service) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.requests)
	for id, e := range s.requests {
		if e.expiry != nil {
			e.expiry.Cancel()
		}
		delete(s.requests, id)
	}
	return n
}

func noPendingError(targetID string) error {
	return duelerr.NotFoundf("no pending request for %s", targetID).WithMessage("no-pending-requests")
}
