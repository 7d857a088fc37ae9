package bridge

import (
	"sync"

	"github.com/KirkDiggler/cduello/internal/entities"
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/host"
)

// remotePlayer mirrors a player on the host. Writes go out as action frames.
type remotePlayer struct {
	bridge *Bridge
	id     string

	mu          sync.RWMutex
	name        string
	location    entities.Location
	permissions map[string]bool
	online      bool
}

var _ host.Player = (*remotePlayer)(nil)

func newRemotePlayer(b *Bridge, info *PlayerInfo) *remotePlayer {
	p := &remotePlayer{bridge: b, id: info.ID}
	p.update(info)
	return p
}

func (p *remotePlayer) update(info *PlayerInfo) {
	perms := make(map[string]bool, len(info.Permissions))
	for _, node := range info.Permissions {
		perms[node] = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if info.Name != "" {
		p.name = info.Name
	}
	p.location = info.Location
	p.permissions = perms
	p.online = true
}

func (p *remotePlayer) setLocation(loc entities.Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = loc
}

func (p *remotePlayer) setOnline(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}

func (p *remotePlayer) ID() string { return p.id }

func (p *remotePlayer) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *remotePlayer) IsOnline() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.online
}

func (p *remotePlayer) Location() entities.Location {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.location
}

func (p *remotePlayer) HasPermission(node string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.permissions[node]
}

func (p *remotePlayer) SendMessage(text string) {
	p.bridge.push(&Action{Type: FrameMessage, Player: p.id, Text: text})
}

func (p *remotePlayer) Teleport(loc entities.Location) error {
	if !p.IsOnline() {
		return duelerr.FailedPrecondition("player is offline").WithMeta("player", p.id)
	}
	if !p.bridge.push(&Action{Type: FrameTeleport, Player: p.id, Location: &loc}) {
		return duelerr.New(duelerr.CodeUnavailable, "host is not connected").WithMeta("player", p.id)
	}
	p.setLocation(loc)
	return nil
}

func (p *remotePlayer) Heal() {
	p.bridge.push(&Action{Type: FrameHeal, Player: p.id})
}

func (p *remotePlayer) ClearEffects() {
	p.bridge.push(&Action{Type: FrameClearEffects, Player: p.id})
}
