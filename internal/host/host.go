// Package host defines what the duel core needs from the game server it runs beside
package host

import (
	"github.com/KirkDiggler/cduello/internal/entities"
)

const (
	// PermissionUse gates the player-facing duel commands
	PermissionUse = "cduello.use"

	// PermissionAdmin gates arena management and reload, and bypasses the command block
	PermissionAdmin = "cduello.admin"
)

// Player is an online player on the host server
type Player interface {
	ID() string
	Name() string
	IsOnline() bool
	Location() entities.Location
	HasPermission(node string) bool

	SendMessage(text string)
	Teleport(loc entities.Location) error

	// Heal restores max health and a full food bar
	Heal()

	// ClearEffects removes every active status effect
	ClearEffects()
}

// Server looks up online players and reaches all of them
type Server interface {
	// Player returns the online player with the given id
	Player(id string) (Player, bool)

	// PlayerByName returns the online player with exactly this name, ignoring case
	PlayerByName(name string) (Player, bool)

	OnlinePlayers() []Player

	// Broadcast sends text to every online player
	Broadcast(text string)
}
