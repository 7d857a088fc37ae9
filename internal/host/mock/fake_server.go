package mockhost

import (
	"errors"
	"strings"
	"sync"

	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/KirkDiggler/cduello/internal/host"
)

// FakeServer is an in-memory host.Server for tests
type FakeServer struct {
	mu         sync.Mutex
	players    map[string]*FakePlayer
	order      []string
	broadcasts []string
}

// NewFakeServer creates an empty server
func NewFakeServer() *FakeServer {
	return &FakeServer{players: make(map[string]*FakePlayer)}
}

var _ host.Server = (*FakeServer)(nil)

// Join adds an online player at the given location
func (s *FakeServer) Join(id, name string, loc entities.Location, permissions ...string) *FakePlayer {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &FakePlayer{
		id:          id,
		name:        name,
		online:      true,
		location:    loc,
		permissions: make(map[string]bool),
	}
	for _, perm := range permissions {
		p.permissions[perm] = true
	}
	if _, exists := s.players[id]; !exists {
		s.order = append(s.order, id)
	}
	s.players[id] = p
	return p
}

// Quit marks a player offline and removes them from lookups
func (s *FakeServer) Quit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[id]; ok {
		p.setOnline(false)
	}
}

// Player returns an online player
func (s *FakeServer) Player(id string) (host.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok || !p.IsOnline() {
		return nil, false
	}
	return p, true
}

// PlayerByName returns an online player by name
func (s *FakeServer) PlayerByName(name string) (host.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		p := s.players[id]
		if p.IsOnline() && strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	return nil, false
}

// OnlinePlayers lists online players in join order
func (s *FakeServer) OnlinePlayers() []host.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []host.Player
	for _, id := range s.order {
		if p := s.players[id]; p.IsOnline() {
			out = append(out, p)
		}
	}
	return out
}

// Broadcast records the text and delivers it to every online player
func (s *FakeServer) Broadcast(text string) {
	s.mu.Lock()
	s.broadcasts = append(s.broadcasts, text)
	s.mu.Unlock()

	for _, p := range s.OnlinePlayers() {
		p.SendMessage(text)
	}
}

// Broadcasts returns everything broadcast so far
func (s *FakeServer) Broadcasts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.broadcasts...)
}

// FakePlayer records every action the core takes on a player
type FakePlayer struct {
	mu          sync.Mutex
	id          string
	name        string
	online      bool
	location    entities.Location
	permissions map[string]bool

	messages     []string
	teleports    []entities.Location
	heals        int
	clears       int
	failTeleport bool
}

var _ host.Player = (*FakePlayer)(nil)

func (p *FakePlayer) ID() string   { return p.id }
func (p *FakePlayer) Name() string { return p.name }

func (p *FakePlayer) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *FakePlayer) setOnline(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}

func (p *FakePlayer) Location() entities.Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location
}

// MoveTo changes the player's location as if they walked there
func (p *FakePlayer) MoveTo(loc entities.Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = loc
}

func (p *FakePlayer) HasPermission(node string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permissions[node]
}

func (p *FakePlayer) SendMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, text)
}

// FailTeleports makes every following Teleport return an error
func (p *FakePlayer) FailTeleports() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failTeleport = true
}

func (p *FakePlayer) Teleport(loc entities.Location) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failTeleport {
		return errors.New("teleport refused")
	}
	p.teleports = append(p.teleports, loc)
	p.location = loc
	return nil
}

func (p *FakePlayer) Heal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.heals++
}

func (p *FakePlayer) ClearEffects() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears++
}

// Messages returns every message received so far
func (p *FakePlayer) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.messages...)
}

// LastMessage returns the most recent message, or ""
func (p *FakePlayer) LastMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return ""
	}
	return p.messages[len(p.messages)-1]
}

// ReceivedContaining reports whether any message contains substr
func (p *FakePlayer) ReceivedContaining(substr string) bool {
	for _, m := range p.Messages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// ClearMessages forgets received messages
func (p *FakePlayer) ClearMessages() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = nil
}

// Teleports returns every teleport destination so far
func (p *FakePlayer) Teleports() []entities.Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entities.Location(nil), p.teleports...)
}

// Heals returns how many times the player was healed
func (p *FakePlayer) Heals() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.heals
}

// Clears returns how many times effects were cleared
func (p *FakePlayer) Clears() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clears
}
