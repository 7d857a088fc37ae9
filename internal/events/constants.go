package events

// Event type constants
const (
	EventTypePlayerJoin    EventType = "player_join"
	EventTypePlayerQuit    EventType = "player_quit"
	EventTypePlayerDeath   EventType = "player_death"
	EventTypePlayerMove    EventType = "player_move"
	EventTypePlayerCommand EventType = "player_command"
	EventTypePlayerDamage  EventType = "player_damage"
)

// Priority levels, lowest runs first
const (
	PriorityGuard   = 0   // Movement freeze
	PriorityDuel    = 100 // Duel state machine
	PriorityMonitor = 500 // Observers that must see the final verdict
)
