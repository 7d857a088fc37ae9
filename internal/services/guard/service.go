// Package guard freezes players in place while their duel counts down
package guard

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/KirkDiggler/cduello/internal/host"
	"github.com/KirkDiggler/cduello/internal/messages"
	"github.com/KirkDiggler/cduello/internal/metrics"
	"github.com/patrickmn/go-cache"
)

const (
	defaultWarnInterval = 2 * time.Second

	// movements smaller than this on both horizontal axes are look changes
	moveEpsilon = 0.01
)

// Service is the Countdown Movement Guard
type Service interface {
	// SetCountdownPlayers replaces the frozen set with a snapshot
	SetCountdownPlayers(ids []string)

	// IsFrozen reports whether the player is counting down
	IsFrozen(playerID string) bool

	// CheckMove returns the location the player should end up at and whether
	// the move was reverted
	CheckMove(p host.Player, from, to entities.Location) (entities.Location, bool)

	// Forget drops per-player throttle state
	Forget(playerID string)
}

type service struct {
	messenger *messages.Messenger
	metrics   *metrics.Metrics
	frozen    atomic.Pointer[map[string]struct{}]
	warned    *cache.Cache
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Messenger    *messages.Messenger // Required
	Metrics      *metrics.Metrics    // Optional
	WarnInterval time.Duration       // Optional, defaults to 2s
}

// NewService creates a new movement guard
func NewService(cfg *ServiceConfig) Service {
	if cfg == nil {
		panic("ServiceConfig cannot be nil")
	}
	if cfg.Messenger == nil {
		panic("messenger is required")
	}

	interval := cfg.WarnInterval
	if interval <= 0 {
		interval = defaultWarnInterval
	}

	svc := &service{
		messenger: cfg.Messenger,
		metrics:   cfg.Metrics,
		warned:    cache.New(interval, 10*interval),
	}
	if svc.metrics == nil {
		svc.metrics = metrics.New()
	}
	empty := map[string]struct{}{}
	svc.frozen.Store(&empty)
	return svc
}

func (s *service) SetCountdownPlayers(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	s.frozen.Store(&next)
}

func (s *service) IsFrozen(playerID string) bool {
	frozen := *s.frozen.Load()
	if len(frozen) == 0 {
		return false
	}
	_, ok := frozen[playerID]
	return ok
}

func (s *service) CheckMove(p host.Player, from, to entities.Location) (entities.Location, bool) {
	if p == nil || !s.IsFrozen(p.ID()) {
		return to, false
	}
	if math.Abs(from.X-to.X) < moveEpsilon && math.Abs(from.Z-to.Z) < moveEpsilon {
		return to, false
	}

	back := from
	back.Yaw = to.Yaw
	back.Pitch = to.Pitch
	s.metrics.MovesBlocked.Inc()

	// Add fails while the previous warning is still within its window
	if err := s.warned.Add(p.ID(), struct{}{}, cache.DefaultExpiration); err == nil {
		s.messenger.Send(p, "duel-countdown-freeze", nil)
	}
	return back, true
}

func (s *service) Forget(playerID string) {
	s.warned.Delete(playerID)
}
