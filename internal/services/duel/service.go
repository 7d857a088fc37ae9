// Package duel runs duel sessions from acceptance to their end: bets, arena
// teleports, the countdown, combat rules and payouts.
package duel

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KirkDiggler/cduello/internal/entities"
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/host"
	"github.com/KirkDiggler/cduello/internal/messages"
	"github.com/KirkDiggler/cduello/internal/metrics"
	"github.com/KirkDiggler/cduello/internal/scheduler"
	"github.com/KirkDiggler/cduello/internal/services/arena"
	"github.com/KirkDiggler/cduello/internal/services/economy"
	"github.com/KirkDiggler/cduello/internal/services/guard"
	"github.com/KirkDiggler/cduello/internal/services/stats"
	"github.com/KirkDiggler/cduello/internal/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const economyTimeout = 5 * time.Second

// commands that stay usable during a duel whatever the allow-list says
var alwaysAllowed = map[string]bool{"duel": true, "duello": true}

// Settings are the reloadable duel options
type Settings struct {
	Countdown       time.Duration
	TeleportBack    bool
	HealAfter       bool
	ClearEffects    bool
	KeepInventory   bool
	AllowedCommands []string
}

// DefaultSettings mirror the configuration defaults
func DefaultSettings() Settings {
	return Settings{
		Countdown:       5 * time.Second,
		TeleportBack:    true,
		HealAfter:       true,
		ClearEffects:    true,
		AllowedCommands: []string{"msg", "r", "tell"},
	}
}

// Announcer relays high-value duels outside the game
type Announcer interface {
	DuelStarted(challenger, challenged, pot string)
	DuelFinished(winner, loser, pot, winnings string)
}

// Service is the Duel Session Manager
type Service interface {
	// Start reserves both players and begins the countdown. The returned error
	// covers immediate rejections. Money duels withdraw both bets on a worker first;
	// done runs on the loop with the started duel, or with the error when the bets
	// could not be taken, in which case nothing stays registered. Duels without a
	// bet call done before Start returns.
	Start(challenger, challenged host.Player, bet decimal.Decimal, done func(*entities.Duel, error)) error

	IsInDuel(playerID string) bool
	IsInCountdown(playerID string) bool

	// DuelOf returns a copy of the player's current duel
	DuelOf(playerID string) (*entities.Duel, bool)

	// ActiveDuels returns copies of every registered duel, oldest first
	ActiveDuels() []*entities.Duel

	// HandleDeath ends the duel of a player who died and reports whether the host
	// should keep their inventory
	HandleDeath(playerID string) (keepInventory bool)

	// HandleQuit ends the duel of a player who disconnected
	HandleQuit(playerID string)

	// AllowDamage reports whether attacker may hurt victim
	AllowDamage(attackerID, victimID string) bool

	// AllowCommand reports whether the player may run the command line. Blocked
	// players are told why.
	AllowCommand(p host.Player, line string) bool

	// CancelAll cancels every duel with refunds and returns how many ended
	CancelAll(reason string) int

	Settings() Settings
	SetSettings(settings Settings)
}

type session struct {
	duel        *entities.Duel
	names       map[string]string
	usedArena   bool
	countdown   scheduler.Task
	secondsLeft int

	// staking is set while the bets are withdrawn on a worker. aborted tells
	// that worker the duel was cancelled.
	staking bool
	aborted atomic.Bool
}

type service struct {
	economy   economy.Service
	arenas    arena.Service
	stats     stats.Service
	guard     guard.Service
	server    host.Server
	messenger *messages.Messenger
	scheduler scheduler.Scheduler
	announcer Announcer
	uuid      uuid.Generator
	metrics   *metrics.Metrics
	logger    logrus.FieldLogger
	pick      func(n int) int

	mu        sync.RWMutex
	settings  Settings
	sessions  map[string]*session
	byPlayer  map[string]*session
	countdown map[string]struct{}
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Economy   economy.Service     // Required
	Arenas    arena.Service       // Required
	Stats     stats.Service       // Required
	Guard     guard.Service       // Required
	Server    host.Server         // Required
	Messenger *messages.Messenger // Required
	Scheduler scheduler.Scheduler // Required
	Settings  Settings
	Announcer Announcer          // Optional
	UUID      uuid.Generator     // Optional
	Metrics   *metrics.Metrics   // Optional
	Logger    logrus.FieldLogger // Optional

	// Pick returns a random index below n for arena selection. Optional.
	Pick func(n int) int
}

// NewService creates a new duel session manager
func NewService(cfg *ServiceConfig) Service {
	if cfg == nil {
		panic("ServiceConfig cannot be nil")
	}
	if cfg.Economy == nil {
		panic("economy is required")
	}
	if cfg.Arenas == nil {
		panic("arenas is required")
	}
	if cfg.Stats == nil {
		panic("stats is required")
	}
	if cfg.Guard == nil {
		panic("guard is required")
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
		economy:   cfg.Economy,
		arenas:    cfg.Arenas,
		stats:     cfg.Stats,
		guard:     cfg.Guard,
		server:    cfg.Server,
		messenger: cfg.Messenger,
		scheduler: cfg.Scheduler,
		announcer: cfg.Announcer,
		uuid:      cfg.UUID,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		pick:      cfg.Pick,
		settings:  cfg.Settings,
		sessions:  make(map[string]*session),
		byPlayer:  make(map[string]*session),
		countdown: make(map[string]struct{}),
	}
	if svc.uuid == nil {
		svc.uuid = uuid.NewGoogleUUIDGenerator()
	}
	if svc.metrics == nil {
		svc.metrics = metrics.New()
	}
	if svc.logger == nil {
		svc.logger = logrus.StandardLogger()
	}
	svc.logger = svc.logger.WithField("component", "duel")
	if svc.pick == nil {
		svc.pick = rand.IntN
	}
	return svc
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

func (s *service) IsInDuel(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byPlayer[playerID]
	return ok
}

func (s *service) IsInCountdown(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.countdown[playerID]
	return ok
}

func (s *service) DuelOf(playerID string) (*entities.Duel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	d := *sess.duel
	return &d, true
}

func (s *service) ActiveDuels() []*entities.Duel {
	s.mu.RLock()
	out := make([]*entities.Duel, 0, len(s.sessions))
	for _, sess := range s.sessions {
		d := *sess.duel
		out = append(out, &d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *service) Start(challenger, challenged host.Player, bet decimal.Decimal, done func(*entities.Duel, error)) error {
	if done == nil {
		done = func(*entities.Duel, error) {}
	}
	if challenger.ID() == challenged.ID() {
		return duelerr.InvalidArgument("cannot duel yourself").WithMessage("no-self-duel")
	}
	if s.IsInDuel(challenger.ID()) || s.IsInDuel(challenged.ID()) {
		return duelerr.Conflictf("%s or %s is already in a duel", challenger.ID(), challenged.ID()).
			WithMessage("duel-status-changed")
	}
	if bet.IsPositive() && !s.economy.Enabled() {
		return duelerr.FailedPrecondition("economy is not enabled").WithMessage("economy-not-enabled")
	}

	settings := s.Settings()
	d := entities.NewDuel(s.uuid.New(), challenger.ID(), challenged.ID(), bet, s.scheduler.Now())
	d.ChallengerLocation = challenger.Location()
	d.ChallengedLocation = challenged.Location()
	sess := &session{
		duel: d,
		names: map[string]string{
			challenger.ID(): challenger.Name(),
			challenged.ID(): challenged.Name(),
		},
		secondsLeft: int(settings.Countdown / time.Second),
	}

	if !d.IsMoneyDuel() {
		done(s.begin(sess), nil)
		return nil
	}

	// Both players count as dueling while their bets are taken
	s.mu.Lock()
	sess.staking = true
	s.registerLocked(sess)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"duel_id": d.ID,
		"player":  d.ChallengerID,
		"target":  d.ChallengedID,
		"bet":     bet.String(),
	}).Debug("Taking bets")

	st := stake{challengerID: d.ChallengerID, challengedID: d.ChallengedID, bet: bet}
	s.scheduler.RunAsync(func(ctx context.Context) error {
		return s.takeStakes(ctx, st, &sess.aborted)
	}, func(err error) {
		s.staked(sess, err, done)
	})
	return nil
}

type stake struct {
	challengerID string
	challengedID string
	bet          decimal.Decimal
}

// stakeError names the player whose bet could not be taken
type stakeError struct {
	playerID string
	err      error
}

func (e *stakeError) Error() string {
	return "failed to take bet from " + e.playerID + ": " + e.err.Error()
}

func (e *stakeError) Unwrap() error {
	return e.err
}

var errStakesReturned = errors.New("bets returned to a duel cancelled while they were taken")

// takeStakes runs on a worker. A failed second withdrawal refunds the first, and
// bets taken for a duel cancelled in the meantime go straight back.
func (s *service) takeStakes(ctx context.Context, st stake, aborted *atomic.Bool) error {
	ctx, cancel := context.WithTimeout(ctx, economyTimeout)
	defer cancel()

	if err := s.economy.Withdraw(ctx, st.challengerID, st.bet); err != nil {
		return &stakeError{playerID: st.challengerID, err: err}
	}
	if err := s.economy.Withdraw(ctx, st.challengedID, st.bet); err != nil {
		s.refund(ctx, st.challengerID, st.bet)
		return &stakeError{playerID: st.challengedID, err: err}
	}
	if aborted.Load() {
		s.refund(ctx, st.challengerID, st.bet)
		s.refund(ctx, st.challengedID, st.bet)
		return errStakesReturned
	}
	return nil
}

func (s *service) refund(ctx context.Context, playerID string, bet decimal.Decimal) {
	if err := s.economy.Deposit(ctx, playerID, bet); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"player": playerID,
			"bet":    bet.String(),
		}).Error("Failed to refund bet")
	}
}

// staked runs on the loop once the bets of sess are settled
func (s *service) staked(sess *session, err error, done func(*entities.Duel, error)) {
	s.mu.Lock()
	d := sess.duel
	live := s.sessions[d.ID] == sess
	if live && err != nil {
		_ = d.Transition(entities.DuelStateCancelled)
		s.unregisterLocked(sess)
	}
	if live && err == nil {
		sess.staking = false
	}
	s.mu.Unlock()

	switch {
	case !live:
		if err == nil {
			s.settle(d.ChallengerID, d.Bet, "Failed to refund bet", nil)
			s.settle(d.ChallengedID, d.Bet, "Failed to refund bet", nil)
		}
		done(nil, duelerr.Conflictf("duel %s was cancelled while bets were taken", d.ID))
	case err != nil:
		s.logger.WithError(err).WithField("duel_id", d.ID).Info("Duel not started, bets could not be taken")
		done(nil, s.stakeFailure(sess, err))
	default:
		done(s.begin(sess), nil)
	}
}

func (s *service) stakeFailure(sess *session, err error) error {
	d := sess.duel
	var se *stakeError
	if !errors.As(err, &se) {
		return duelerr.Wrap(err, "failed to take bets")
	}
	if se.playerID == d.ChallengerID {
		return duelerr.Wrapf(se.err, "failed to take bet from %s", se.playerID).
			WithMessage("sender-insufficient-funds").
			WithMeta("player", sess.names[se.playerID])
	}
	return duelerr.Wrapf(se.err, "failed to take bet from %s", se.playerID).
		WithMessage("insufficient-funds").
		WithMeta("amount", s.economy.Format(d.Bet))
}

// settle deposits amount on a worker. Once the worker pool is closed it runs inline.
func (s *service) settle(playerID string, amount decimal.Decimal, failure string, paid func()) {
	deposit := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, economyTimeout)
		defer cancel()
		return s.economy.Deposit(ctx, playerID, amount)
	}
	s.scheduler.RunAsync(deposit, func(err error) {
		if errors.Is(err, scheduler.ErrStopped) {
			err = deposit(context.Background())
		}
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"player": playerID,
				"bet":    amount.String(),
			}).Error(failure)
			return
		}
		if paid != nil {
			paid()
		}
	})
}

func (s *service) registerLocked(sess *session) {
	d := sess.duel
	s.sessions[d.ID] = sess
	s.byPlayer[d.ChallengerID] = sess
	s.byPlayer[d.ChallengedID] = sess
}

// begin registers sess, teleports both players to an arena if one is usable and
// starts the countdown. It returns a copy of the duel.
func (s *service) begin(sess *session) *entities.Duel {
	d := sess.duel
	a := s.pickArena()

	s.mu.Lock()
	if a != nil {
		d.ArenaID = a.ID
		sess.usedArena = true
	}
	s.registerLocked(sess)
	s.countdown[d.ChallengerID] = struct{}{}
	s.countdown[d.ChallengedID] = struct{}{}
	snapshot := s.countdownSnapshotLocked()
	out := *d
	s.mu.Unlock()

	logger := s.logger.WithFields(logrus.Fields{
		"duel_id": d.ID,
		"player":  d.ChallengerID,
		"target":  d.ChallengedID,
		"bet":     d.Bet.String(),
	})
	logger.Info("Duel starting")
	s.metrics.DuelsStarted.Inc()
	s.metrics.ActiveDuels.Inc()

	if a != nil {
		logger = logger.WithField("arena", a.ID)
		args := messages.Args{"arena": a.Name}
		corners := []*entities.Location{a.Pos1, a.Pos2}
		for i, id := range []string{d.ChallengerID, d.ChallengedID} {
			p, ok := s.server.Player(id)
			if !ok {
				continue
			}
			s.teleport(p, corners[i].Add(0.5, 0, 0.5), logger)
			s.messenger.Send(p, "teleported-to-arena", args)
		}
	}

	s.guard.SetCountdownPlayers(snapshot)

	duelID := d.ID
	task := s.scheduler.RunTimer(0, time.Second, func() {
		s.tick(duelID)
	})
	s.mu.Lock()
	sess.countdown = task
	s.mu.Unlock()

	return &out
}

func (s *service) pickArena() *entities.Arena {
	if !s.arenas.UsageEnabled() {
		s.logger.Debug("Arena usage disabled, duel stays in place")
		return nil
	}
	usable := s.arenas.ListEnabled()
	s.logger.WithField("count", len(usable)).Debug("Usable arenas")
	if len(usable) == 0 {
		return nil
	}
	return usable[s.pick(len(usable))]
}

func (s *service) teleport(p host.Player, loc entities.Location, logger logrus.FieldLogger) {
	if err := p.Teleport(loc); err != nil {
		logger.WithError(err).WithField("player", p.ID()).Error("Teleport failed")
	}
}

// tick advances one countdown second. Stale ticks for ended duels do nothing.
func (s *service) tick(duelID string) {
	s.mu.Lock()
	sess, ok := s.sessions[duelID]
	if !ok || sess.duel.State != entities.DuelStatePending {
		s.mu.Unlock()
		return
	}
	d := sess.duel
	secondsLeft := sess.secondsLeft
	sess.secondsLeft--
	s.mu.Unlock()

	challenger, ok1 := s.server.Player(d.ChallengerID)
	challenged, ok2 := s.server.Player(d.ChallengedID)
	if !ok1 || !ok2 {
		s.cancel(sess, true)
		return
	}

	if secondsLeft <= 0 {
		s.activate(sess, challenger, challenged)
		return
	}

	args := messages.Args{"seconds": strconv.Itoa(secondsLeft)}
	key := "duel-countdown"
	if d.IsMoneyDuel() {
		key = "duel-countdown-money"
		args["amount"] = s.economy.Format(d.Bet)
	}
	s.messenger.Send(challenger, key, args)
	s.messenger.Send(challenged, key, args)
}

func (s *service) activate(sess *session, challenger, challenged host.Player) {
	s.mu.Lock()
	d := sess.duel
	if err := d.Transition(entities.DuelStateActive); err != nil {
		s.mu.Unlock()
		return
	}
	delete(s.countdown, d.ChallengerID)
	delete(s.countdown, d.ChallengedID)
	if sess.countdown != nil {
		sess.countdown.Cancel()
	}
	snapshot := s.countdownSnapshotLocked()
	s.mu.Unlock()

	s.guard.SetCountdownPlayers(snapshot)
	s.logger.WithField("duel_id", d.ID).Debug("Duel active")

	if !d.IsMoneyDuel() {
		s.messenger.Send(challenger, "duel-started", nil)
		s.messenger.Send(challenged, "duel-started", nil)
		return
	}

	args := messages.Args{"amount": s.economy.Format(d.Bet)}
	s.messenger.Send(challenger, "duel-started-money", args)
	s.messenger.Send(challenged, "duel-started-money", args)

	pot := d.TotalPot()
	if s.economy.ShouldAnnounce(pot) {
		s.messenger.Broadcast("high-value-duel-announcement", messages.Args{
			"player1": challenger.Name(),
			"player2": challenged.Name(),
			"amount":  s.economy.Format(pot),
		})
		if s.announcer != nil {
			s.announcer.DuelStarted(challenger.Name(), challenged.Name(), s.economy.Format(pot))
		}
	}
}

// unregisterLocked drops the session from every index. Callers hold mu.
func (s *service) unregisterLocked(sess *session) {
	d := sess.duel
	delete(s.sessions, d.ID)
	for _, id := range []string{d.ChallengerID, d.ChallengedID} {
		if s.byPlayer[id] == sess {
			delete(s.byPlayer, id)
		}
		delete(s.countdown, id)
	}
	if sess.countdown != nil {
		sess.countdown.Cancel()
	}
}

func (s *service) countdownSnapshotLocked() []string {
	ids := make([]string, 0, len(s.countdown))
	for id := range s.countdown {
		ids = append(ids, id)
	}
	return ids
}

// finish decides an ACTIVE duel in favour of winnerID
func (s *service) finish(sess *session, winnerID string) {
	s.mu.Lock()
	d := sess.duel
	if d.State != entities.DuelStateActive {
		s.mu.Unlock()
		return
	}
	if err := d.Transition(entities.DuelStateFinished); err != nil {
		s.mu.Unlock()
		return
	}
	d.WinnerID = winnerID
	s.unregisterLocked(sess)
	snapshot := s.countdownSnapshotLocked()
	settings := s.settings
	s.mu.Unlock()

	s.guard.SetCountdownPlayers(snapshot)
	s.metrics.ActiveDuels.Dec()
	s.metrics.DuelsEnded.WithLabelValues(metrics.OutcomeFinished).Inc()

	loserID := d.Opponent(winnerID)
	winnerName, loserName := sess.names[winnerID], sess.names[loserID]
	s.stats.SetName(winnerID, winnerName)
	s.stats.SetName(loserID, loserName)

	logger := s.logger.WithFields(logrus.Fields{"duel_id": d.ID, "player": winnerID, "target": loserID})
	logger.Info("Duel finished")

	if d.IsMoneyDuel() {
		payout := d.WinnerAmount(s.economy.Settings().WinnerPercentage)
		s.stats.RecordWin(winnerID, payout)
		s.stats.RecordLoss(loserID, d.Bet)

		s.settle(winnerID, payout, "Failed to pay duel winner", func() {
			s.metrics.Payouts.Add(payout.InexactFloat64())
		})

		s.messenger.SendTo(winnerID, "duel-won-money", messages.Args{"amount": s.economy.Format(payout)})
		s.messenger.SendTo(loserID, "duel-lost-money", messages.Args{"amount": s.economy.Format(d.Bet)})

		pot := d.TotalPot()
		if s.economy.ShouldAnnounce(pot) {
			s.messenger.Broadcast("high-value-duel-result", messages.Args{
				"winner":   winnerName,
				"loser":    loserName,
				"amount":   s.economy.Format(pot),
				"winnings": s.economy.Format(payout),
			})
			if s.announcer != nil {
				s.announcer.DuelFinished(winnerName, loserName, s.economy.Format(pot), s.economy.Format(payout))
			}
		}
	} else {
		s.stats.RecordWin(winnerID, decimal.Zero)
		s.stats.RecordLoss(loserID, decimal.Zero)
		s.messenger.SendTo(winnerID, "duel-won", nil)
		s.messenger.SendTo(loserID, "duel-lost", nil)
	}

	for _, id := range []string{d.ChallengerID, d.ChallengedID} {
		p, ok := s.server.Player(id)
		if !ok {
			continue
		}
		if settings.TeleportBack {
			loc, _ := d.LocationOf(id)
			s.teleport(p, loc, logger)
		}
		if settings.HealAfter {
			p.Heal()
		}
		if settings.ClearEffects {
			p.ClearEffects()
		}
	}
}

// cancel ends a non-terminal duel without a winner and refunds both bets
func (s *service) cancel(sess *session, notify bool) {
	s.mu.Lock()
	d := sess.duel
	if err := d.Transition(entities.DuelStateCancelled); err != nil {
		s.mu.Unlock()
		return
	}
	s.unregisterLocked(sess)
	snapshot := s.countdownSnapshotLocked()
	settings := s.settings
	staking := sess.staking
	s.mu.Unlock()

	logger := s.logger.WithField("duel_id", d.ID)
	if staking {
		// The worker taking the bets hands them back
		sess.aborted.Store(true)
		logger.Info("Duel cancelled while bets were taken")
	} else {
		s.guard.SetCountdownPlayers(snapshot)
		s.metrics.ActiveDuels.Dec()
		s.metrics.DuelsEnded.WithLabelValues(metrics.OutcomeCancelled).Inc()
		logger.Info("Duel cancelled")

		if d.IsMoneyDuel() {
			for _, id := range []string{d.ChallengerID, d.ChallengedID} {
				s.settle(id, d.Bet, "Failed to refund bet", nil)
			}
		}
	}

	for _, id := range []string{d.ChallengerID, d.ChallengedID} {
		p, ok := s.server.Player(id)
		if !ok {
			continue
		}
		if notify {
			s.messenger.Send(p, "duel-cancelled", nil)
		}
		if sess.usedArena && settings.TeleportBack {
			loc, _ := d.LocationOf(id)
			s.teleport(p, loc, logger)
		}
	}
}

func (s *service) sessionOf(playerID string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byPlayer[playerID]
	return sess, ok
}

func (s *service) state(sess *session) entities.DuelState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sess.duel.State
}

func (s *service) HandleDeath(playerID string) bool {
	sess, ok := s.sessionOf(playerID)
	if !ok {
		return false
	}
	keep := s.Settings().KeepInventory

	switch s.state(sess) {
	case entities.DuelStatePending:
		s.cancel(sess, true)
	case entities.DuelStateActive:
		s.finish(sess, sess.duel.Opponent(playerID))
	}
	return keep
}

func (s *service) HandleQuit(playerID string) {
	sess, ok := s.sessionOf(playerID)
	if !ok {
		return
	}

	switch s.state(sess) {
	case entities.DuelStatePending:
		s.cancel(sess, true)
	case entities.DuelStateActive:
		s.finish(sess, sess.duel.Opponent(playerID))
	}
}

func (s *service) AllowDamage(attackerID, victimID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attacker, attackerIn := s.byPlayer[attackerID]
	victim, victimIn := s.byPlayer[victimID]
	if !attackerIn && !victimIn {
		return true
	}
	return attackerIn && victimIn && attacker == victim
}

func (s *service) AllowCommand(p host.Player, line string) bool {
	if !s.IsInDuel(p.ID()) || p.HasPermission(host.PermissionAdmin) {
		return true
	}

	name := commandName(line)
	if alwaysAllowed[name] {
		return true
	}
	for _, allowed := range s.Settings().AllowedCommands {
		if strings.EqualFold(allowed, name) {
			return true
		}
	}

	s.messenger.Send(p, "no-commands-in-duel", nil)
	return false
}

// commandName extracts the lower-case label of a command line, dropping the
// leading slash and any "plugin:" namespace
func commandName(line string) string {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if len(fields) == 0 {
		return ""
	}
	name := strings.ToLower(fields[0])
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (s *service) CancelAll(reason string) int {
	s.mu.RLock()
	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	args := messages.Args{"reason": reason}
	for _, sess := range all {
		s.messenger.SendTo(sess.duel.ChallengerID, "duel-cancelled-admin", args)
		s.messenger.SendTo(sess.duel.ChallengedID, "duel-cancelled-admin", args)
		s.cancel(sess, false)
	}
	return len(all)
}
