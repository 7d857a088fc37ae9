package events

import (
	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/KirkDiggler/cduello/internal/host"
)

// EventType represents the type of host event
type EventType string

// Event is the base interface for all host events
type Event interface {
	GetType() EventType
	IsCancelled() bool
	Cancel()
}

// BaseEvent provides common implementation for all events
type BaseEvent struct {
	Type      EventType
	Cancelled bool
}

func (e *BaseEvent) GetType() EventType { return e.Type }
func (e *BaseEvent) IsCancelled() bool  { return e.Cancelled }
func (e *BaseEvent) Cancel()            { e.Cancelled = true }

// PlayerJoinEvent fires after a player comes online
type PlayerJoinEvent struct {
	BaseEvent
	Player host.Player
}

// NewPlayerJoinEvent creates a join event
func NewPlayerJoinEvent(p host.Player) *PlayerJoinEvent {
	return &PlayerJoinEvent{BaseEvent: BaseEvent{Type: EventTypePlayerJoin}, Player: p}
}

// PlayerQuitEvent fires after a player went offline
type PlayerQuitEvent struct {
	BaseEvent
	PlayerID string
}

// NewPlayerQuitEvent creates a quit event
func NewPlayerQuitEvent(playerID string) *PlayerQuitEvent {
	return &PlayerQuitEvent{BaseEvent: BaseEvent{Type: EventTypePlayerQuit}, PlayerID: playerID}
}

// PlayerDeathEvent fires when a player dies. Listeners set KeepInventory to
// ask the host to keep items and levels.
type PlayerDeathEvent struct {
	BaseEvent
	PlayerID      string
	KeepInventory bool
}

// NewPlayerDeathEvent creates a death event
func NewPlayerDeathEvent(playerID string) *PlayerDeathEvent {
	return &PlayerDeathEvent{BaseEvent: BaseEvent{Type: EventTypePlayerDeath}, PlayerID: playerID}
}

// PlayerMoveEvent fires before a move is applied. Listeners may rewrite To.
type PlayerMoveEvent struct {
	BaseEvent
	Player host.Player
	From   entities.Location
	To     entities.Location
}

// NewPlayerMoveEvent creates a move event
func NewPlayerMoveEvent(p host.Player, from, to entities.Location) *PlayerMoveEvent {
	return &PlayerMoveEvent{BaseEvent: BaseEvent{Type: EventTypePlayerMove}, Player: p, From: from, To: to}
}

// PlayerCommandEvent fires before a command line is run
type PlayerCommandEvent struct {
	BaseEvent
	Player host.Player
	Line   string
}

// NewPlayerCommandEvent creates a command event
func NewPlayerCommandEvent(p host.Player, line string) *PlayerCommandEvent {
	return &PlayerCommandEvent{BaseEvent: BaseEvent{Type: EventTypePlayerCommand}, Player: p, Line: line}
}

// PlayerDamageEvent fires before one player damages another
type PlayerDamageEvent struct {
	BaseEvent
	AttackerID string
	VictimID   string
}

// NewPlayerDamageEvent creates a damage event
func NewPlayerDamageEvent(attackerID, victimID string) *PlayerDamageEvent {
	return &PlayerDamageEvent{
		BaseEvent:  BaseEvent{Type: EventTypePlayerDamage},
		AttackerID: attackerID,
		VictimID:   victimID,
	}
}
