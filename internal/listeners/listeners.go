// Package listeners adapt host events to the duel services
package listeners

import (
	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/KirkDiggler/cduello/internal/events"
	"github.com/KirkDiggler/cduello/internal/services/duel"
	"github.com/KirkDiggler/cduello/internal/services/guard"
	"github.com/KirkDiggler/cduello/internal/services/stats"
	"github.com/sirupsen/logrus"
)

// DuelListener feeds joins, quits, deaths, damage and commands to the session manager
type DuelListener struct {
	duels  duel.Service
	stats  stats.Service
	guard  guard.Service
	logger logrus.FieldLogger
}

// MoveListener reverts moves of players counting down
type MoveListener struct {
	guard guard.Service
}

// Config holds the services the listeners drive
type Config struct {
	Duels  duel.Service       // Required
	Stats  stats.Service      // Required
	Guard  guard.Service      // Required
	Logger logrus.FieldLogger // Optional
}

// Register subscribes the duel and move listeners to bus
func Register(bus *events.Bus, cfg *Config) {
	if cfg == nil {
		panic("Config cannot be nil")
	}
	if cfg.Duels == nil || cfg.Stats == nil || cfg.Guard == nil {
		panic("duels, stats and guard are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	dl := &DuelListener{
		duels:  cfg.Duels,
		stats:  cfg.Stats,
		guard:  cfg.Guard,
		logger: logger.WithField("component", "listeners"),
	}
	for _, t := range []events.EventType{
		events.EventTypePlayerJoin,
		events.EventTypePlayerQuit,
		events.EventTypePlayerDeath,
		events.EventTypePlayerDamage,
		events.EventTypePlayerCommand,
	} {
		bus.Subscribe(t, dl)
	}
	bus.Subscribe(events.EventTypePlayerMove, &MoveListener{guard: cfg.Guard})
}

func (l *DuelListener) ID() string    { return "duel" }
func (l *DuelListener) Priority() int { return events.PriorityDuel }

// HandleEvent never fails; problems are logged
func (l *DuelListener) HandleEvent(event events.Event) error {
	switch e := event.(type) {
	case *events.PlayerJoinEvent:
		id := e.Player.ID()
		l.stats.SetName(id, e.Player.Name())
		l.stats.Fetch(id, func(_ *entities.PlayerStats, err error) {
			if err != nil {
				l.logger.WithError(err).WithField("player", id).Error("Failed to load stats on join")
			}
		})

	case *events.PlayerQuitEvent:
		l.duels.HandleQuit(e.PlayerID)
		l.guard.Forget(e.PlayerID)

	case *events.PlayerDeathEvent:
		if l.duels.HandleDeath(e.PlayerID) {
			e.KeepInventory = true
		}

	case *events.PlayerDamageEvent:
		if !l.duels.AllowDamage(e.AttackerID, e.VictimID) {
			e.Cancel()
		}

	case *events.PlayerCommandEvent:
		if !l.duels.AllowCommand(e.Player, e.Line) {
			l.logger.WithFields(logrus.Fields{"player": e.Player.ID(), "command": e.Line}).Debug("Blocked command in duel")
			e.Cancel()
		}
	}
	return nil
}

func (l *MoveListener) ID() string    { return "guard" }
func (l *MoveListener) Priority() int { return events.PriorityGuard }

// HandleEvent rewrites the destination of a frozen player's move
func (l *MoveListener) HandleEvent(event events.Event) error {
	e, ok := event.(*events.PlayerMoveEvent)
	if !ok {
		return nil
	}
	if to, reverted := l.guard.CheckMove(e.Player, e.From, e.To); reverted {
		e.To = to
	}
	return nil
}
