// Package stats keeps per-player duel statistics in memory and flushes them to
// the stats repository on a debounce and on a fixed interval.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/KirkDiggler/cduello/internal/entities"
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/metrics"
	"github.com/KirkDiggler/cduello/internal/repositories"
	statsrepo "github.com/KirkDiggler/cduello/internal/repositories/stats"
	"github.com/KirkDiggler/cduello/internal/scheduler"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultFlushInterval = 300 * time.Second
	defaultFlushDebounce = time.Second
)

// Service is the Player Statistics Store
type Service interface {
	// Get returns a copy of the player's record, creating a zeroed one if needed
	Get(playerID string) *entities.PlayerStats

	// Load returns the player's record, reading the repository for players not
	// yet in memory. Safe to call off the game loop.
	Load(ctx context.Context, playerID string) (*entities.PlayerStats, error)

	// Fetch loads on the worker pool and calls done on the game loop
	Fetch(playerID string, done func(*entities.PlayerStats, error))

	// SetName records the display name persisted with the stats
	SetName(playerID, name string)

	RecordWin(playerID string, moneyWon decimal.Decimal)
	RecordLoss(playerID string, moneyLost decimal.Decimal)

	// Top ranks persisted records
	Top(ctx context.Context, order statsrepo.Order, limit int) ([]*entities.PlayerStats, error)

	// Start begins the periodic flush
	Start()

	// FlushAll persists every dirty record on the worker pool
	FlushAll()

	// Shutdown stops periodic flushing and writes everything synchronously
	Shutdown(ctx context.Context) error
}

type record struct {
	stats   *entities.PlayerStats
	loaded  bool
	loading bool
	dirty   bool
}

type service struct {
	repository    statsrepo.Repository
	scheduler     scheduler.Scheduler
	metrics       *metrics.Metrics
	logger        logrus.FieldLogger
	flushInterval time.Duration
	flushDebounce time.Duration

	mu            sync.Mutex
	records       map[string]*record
	saveScheduled bool
	debounceTask  scheduler.Task
	periodicTask  scheduler.Task
	stopped       bool
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Repository    statsrepo.Repository // Required
	Scheduler     scheduler.Scheduler  // Required
	Metrics       *metrics.Metrics     // Optional
	Logger        logrus.FieldLogger   // Optional
	FlushInterval time.Duration        // Optional, defaults to 300s
	FlushDebounce time.Duration        // Optional, defaults to 1s
}

// NewService creates a new statistics store
func NewService(cfg *ServiceConfig) Service {
	if cfg == nil {
		panic("ServiceConfig cannot be nil")
	}
	if cfg.Repository == nil {
		panic("repository is required")
	}
	if cfg.Scheduler == nil {
		panic("scheduler is required")
	}

	svc := &service{
		repository:    cfg.Repository,
		scheduler:     cfg.Scheduler,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		flushInterval: cfg.FlushInterval,
		flushDebounce: cfg.FlushDebounce,
		records:       make(map[string]*record),
	}
	if svc.metrics == nil {
		svc.metrics = metrics.New()
	}
	if svc.logger == nil {
		svc.logger = logrus.StandardLogger()
	}
	svc.logger = svc.logger.WithField("component", "stats")
	if svc.flushInterval <= 0 {
		svc.flushInterval = defaultFlushInterval
	}
	if svc.flushDebounce <= 0 {
		svc.flushDebounce = defaultFlushDebounce
	}
	return svc
}

func (s *service) Get(playerID string) *entities.PlayerStats {
	s.mu.Lock()
	needsLoad := s.claimLoad(s.recordFor(playerID))
	s.mu.Unlock()

	if needsLoad {
		s.loadAsync(playerID, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordFor(playerID).stats.Clone()
}

func (s *service) Load(ctx context.Context, playerID string) (*entities.PlayerStats, error) {
	s.mu.Lock()
	if rec, ok := s.records[playerID]; ok && rec.loaded {
		out := rec.stats.Clone()
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	base, err := s.readBase(ctx, playerID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.recordFor(playerID)
	s.merge(rec, base)
	return rec.stats.Clone(), nil
}

func (s *service) Fetch(playerID string, done func(*entities.PlayerStats, error)) {
	s.mu.Lock()
	if rec, ok := s.records[playerID]; ok && rec.loaded {
		out := rec.stats.Clone()
		s.mu.Unlock()
		done(out, nil)
		return
	}
	s.mu.Unlock()

	s.loadAsync(playerID, done)
}

func (s *service) SetName(playerID, name string) {
	if name == "" {
		return
	}

	s.mu.Lock()
	rec := s.recordFor(playerID)
	if rec.stats.PlayerName != name {
		rec.stats.PlayerName = name
		rec.dirty = true
	}
	needsLoad := s.claimLoad(rec)
	s.mu.Unlock()

	if needsLoad {
		s.loadAsync(playerID, nil)
	}
}

func (s *service) RecordWin(playerID string, moneyWon decimal.Decimal) {
	s.mutate(playerID, func(p *entities.PlayerStats) {
		p.Wins++
		p.MoneyWon = p.MoneyWon.Add(moneyWon)
	})
}

func (s *service) RecordLoss(playerID string, moneyLost decimal.Decimal) {
	s.mutate(playerID, func(p *entities.PlayerStats) {
		p.Losses++
		p.MoneyLost = p.MoneyLost.Add(moneyLost)
	})
}

func (s *service) Top(ctx context.Context, order statsrepo.Order, limit int) ([]*entities.PlayerStats, error) {
	top, err := s.repository.Top(ctx, order, limit)
	if err != nil {
		return nil, duelerr.Wrap(err, "failed to rank players")
	}
	return top, nil
}

func (s *service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.periodicTask != nil || s.stopped {
		return
	}
	s.periodicTask = s.scheduler.RunTimer(s.flushInterval, s.flushInterval, s.FlushAll)
}

func (s *service) FlushAll() {
	batch, pending := s.takeDirty()
	for _, id := range pending {
		s.loadAsync(id, nil)
	}
	if len(batch) == 0 {
		return
	}

	s.scheduler.RunAsync(func(ctx context.Context) error {
		return s.repository.SaveAll(ctx, batch)
	}, func(err error) {
		if err != nil {
			s.metrics.StatsFlushes.WithLabelValues("error").Inc()
			s.logger.WithError(err).WithField("count", len(batch)).Error("Failed to flush stats, retrying next cycle")
			s.markDirty(batch)
			return
		}
		s.metrics.StatsFlushes.WithLabelValues("ok").Inc()
		s.logger.WithField("count", len(batch)).Debug("Stats flushed")
	})
}

func (s *service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	if s.periodicTask != nil {
		s.periodicTask.Cancel()
		s.periodicTask = nil
	}
	if s.debounceTask != nil {
		s.debounceTask.Cancel()
		s.debounceTask = nil
	}
	s.saveScheduled = false

	var unloaded []string
	for id, rec := range s.records {
		if rec.dirty && !rec.loaded {
			unloaded = append(unloaded, id)
		}
	}
	s.mu.Unlock()

	for _, id := range unloaded {
		base, err := s.readBase(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("player", id).Error("Failed to read stats before final flush")
			continue
		}
		s.mu.Lock()
		s.merge(s.records[id], base)
		s.mu.Unlock()
	}

	batch, _ := s.takeDirty()
	if len(batch) == 0 {
		return nil
	}
	if err := s.repository.SaveAll(ctx, batch); err != nil {
		s.metrics.StatsFlushes.WithLabelValues("error").Inc()
		s.markDirty(batch)
		return duelerr.Wrap(err, "failed final stats flush")
	}
	s.metrics.StatsFlushes.WithLabelValues("ok").Inc()
	s.logger.WithField("count", len(batch)).Info("Stats saved")
	return nil
}

func (s *service) mutate(playerID string, fn func(p *entities.PlayerStats)) {
	s.mu.Lock()
	rec := s.recordFor(playerID)
	fn(rec.stats)
	rec.stats.LastUpdated = s.scheduler.Now().UTC()
	rec.dirty = true
	needsLoad := s.claimLoad(rec)
	s.mu.Unlock()

	if needsLoad {
		s.loadAsync(playerID, nil)
	}
	s.scheduleFlush()
}

// scheduleFlush arms at most one debounced flush per window
func (s *service) scheduleFlush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveScheduled || s.stopped {
		return
	}
	s.saveScheduled = true
	s.debounceTask = s.scheduler.RunLater(s.flushDebounce, func() {
		s.mu.Lock()
		s.saveScheduled = false
		s.debounceTask = nil
		s.mu.Unlock()
		s.FlushAll()
	})
}

// takeDirty returns copies of loaded dirty records, clearing their flag, and the
// ids of dirty records still waiting on their persisted base
func (s *service) takeDirty() ([]*entities.PlayerStats, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch []*entities.PlayerStats
	var pending []string
	for id, rec := range s.records {
		if !rec.dirty {
			continue
		}
		if !rec.loaded {
			if !rec.loading {
				rec.loading = true
				pending = append(pending, id)
			}
			continue
		}
		rec.dirty = false
		batch = append(batch, rec.stats.Clone())
	}
	return batch, pending
}

func (s *service) markDirty(batch []*entities.PlayerStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range batch {
		if rec, ok := s.records[p.PlayerID]; ok {
			rec.dirty = true
		}
	}
}

// loadAsync reads the persisted record on the worker pool and merges it on the loop
func (s *service) loadAsync(playerID string, done func(*entities.PlayerStats, error)) {
	var base *entities.PlayerStats
	s.scheduler.RunAsync(func(ctx context.Context) error {
		var err error
		base, err = s.readBase(ctx, playerID)
		return err
	}, func(err error) {
		s.mu.Lock()
		rec := s.recordFor(playerID)
		if err != nil {
			rec.loading = false
			s.mu.Unlock()
			s.logger.WithError(err).WithField("player", playerID).Error("Failed to load stats")
			if done != nil {
				done(nil, err)
			}
			return
		}
		s.merge(rec, base)
		out := rec.stats.Clone()
		s.mu.Unlock()

		if done != nil {
			done(out, nil)
		}
	})
}

// readBase returns the persisted record, or nil when the player has none
func (s *service) readBase(ctx context.Context, playerID string) (*entities.PlayerStats, error) {
	base, err := s.repository.Get(ctx, playerID)
	if repositories.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, duelerr.Wrapf(err, "failed to load stats for %s", playerID)
	}
	return base, nil
}

// merge folds a persisted base under the in-memory counters. Must hold mu.
func (s *service) merge(rec *record, base *entities.PlayerStats) {
	rec.loading = false
	if rec.loaded {
		return
	}
	rec.loaded = true
	if base == nil {
		return
	}

	cur := rec.stats
	cur.Wins += base.Wins
	cur.Losses += base.Losses
	cur.MoneyWon = cur.MoneyWon.Add(base.MoneyWon)
	cur.MoneyLost = cur.MoneyLost.Add(base.MoneyLost)
	if cur.PlayerName == "" {
		cur.PlayerName = base.PlayerName
	}
	if cur.LastUpdated.IsZero() {
		cur.LastUpdated = base.LastUpdated
	}
}

// recordFor returns the record for playerID, creating it. Must hold mu.
func (s *service) recordFor(playerID string) *record {
	rec, ok := s.records[playerID]
	if !ok {
		rec = &record{stats: entities.NewPlayerStats(playerID)}
		s.records[playerID] = rec
	}
	return rec
}

// claimLoad marks rec as loading and reports whether the caller should start it. Must hold mu.
func (s *service) claimLoad(rec *record) bool {
	if rec.loaded || rec.loading {
		return false
	}
	rec.loading = true
	return true
}
