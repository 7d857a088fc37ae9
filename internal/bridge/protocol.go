package bridge

import "github.com/KirkDiggler/cduello/internal/entities"

// Inbound frame types
const (
	FrameHello         = "hello"
	FramePlayerJoin    = "player_join"
	FramePlayerQuit    = "player_quit"
	FramePlayerDeath   = "player_death"
	FramePlayerMove    = "player_move"
	FramePlayerCommand = "player_command"
	FramePlayerDamage  = "player_damage"
	FrameTabComplete   = "tab_complete"
	FramePlaceholder   = "placeholder"
)

// Outbound frame types
const (
	FrameResult       = "result"
	FrameMessage      = "message"
	FrameBroadcast    = "broadcast"
	FrameTeleport     = "teleport"
	FrameHeal         = "heal"
	FrameClearEffects = "clear_effects"
)

// PlayerInfo is the host's view of an online player
type PlayerInfo struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Location    entities.Location `json:"location"`
	Permissions []string          `json:"permissions,omitempty"`
}

// Inbound is any frame the host sends. Fields are populated per type.
type Inbound struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	Token    string             `json:"token,omitempty"`
	Player   *PlayerInfo        `json:"player,omitempty"`
	From     *entities.Location `json:"from,omitempty"`
	To       *entities.Location `json:"to,omitempty"`
	Line     string             `json:"line,omitempty"`
	Attacker string             `json:"attacker,omitempty"`
	Victim   string             `json:"victim,omitempty"`
	Args     []string           `json:"args,omitempty"`
	Key      string             `json:"key,omitempty"`
}

// Result answers an inbound frame with the same id
type Result struct {
	Type          string             `json:"type"`
	ID            string             `json:"id"`
	Cancel        bool               `json:"cancel"`
	To            *entities.Location `json:"to,omitempty"`
	KeepInventory *bool              `json:"keep_inventory,omitempty"`
	Completions   []string           `json:"completions,omitempty"`
	Text          *string            `json:"text,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// Action asks the host to do something to a player, or to everyone when Player is empty
type Action struct {
	Type     string             `json:"type"`
	Player   string             `json:"player,omitempty"`
	Text     string             `json:"text,omitempty"`
	Location *entities.Location `json:"location,omitempty"`
}
