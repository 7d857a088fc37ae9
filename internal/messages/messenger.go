package messages

import (
	"sync/atomic"

	"github.com/KirkDiggler/cduello/internal/host"
)

// Messenger delivers catalog messages to players on the host
type Messenger struct {
	server  host.Server
	catalog atomic.Value // holds catalogBox
}

type catalogBox struct{ Catalog }

// NewMessenger creates a messenger over the given server and catalog
func NewMessenger(server host.Server, catalog Catalog) *Messenger {
	if server == nil {
		panic("server is required")
	}
	if catalog == nil {
		panic("catalog is required")
	}
	m := &Messenger{server: server}
	m.catalog.Store(catalogBox{catalog})
	return m
}

// SetCatalog swaps the catalog, used on reload
func (m *Messenger) SetCatalog(catalog Catalog) {
	m.catalog.Store(catalogBox{catalog})
}

// Render returns the text for key without sending it
func (m *Messenger) Render(key string, args Args) string {
	return m.catalog.Load().(catalogBox).Render(key, args)
}

// Send delivers key to the player
func (m *Messenger) Send(p host.Player, key string, args Args) {
	if p == nil {
		return
	}
	p.SendMessage(m.Render(key, args))
}

// SendTo delivers key to the player with this id if they are online
func (m *Messenger) SendTo(playerID, key string, args Args) bool {
	p, ok := m.server.Player(playerID)
	if !ok {
		return false
	}
	m.Send(p, key, args)
	return true
}

// Broadcast delivers key to everyone online
func (m *Messenger) Broadcast(key string, args Args) {
	m.server.Broadcast(m.Render(key, args))
}
