// Package bridge connects the duel core to the game server over a websocket.
// The host shim forwards player events as frames and applies the actions it
// receives back.
package bridge

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KirkDiggler/cduello/internal/commands"
	"github.com/KirkDiggler/cduello/internal/events"
	"github.com/KirkDiggler/cduello/internal/host"
	"github.com/KirkDiggler/cduello/internal/metrics"
	"github.com/KirkDiggler/cduello/internal/services/leaderboard"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 64 * 1024
	sendBufferSize = 256
	handleTimeout  = 5 * time.Second
)

// Executor runs fn on the game loop and waits for it
type Executor interface {
	Call(ctx context.Context, fn func()) error
}

// Config holds configuration for the bridge
type Config struct {
	Executor Executor           // Required
	Token    string             // Optional, shared secret the host sends in hello
	Metrics  *metrics.Metrics   // Optional
	Logger   logrus.FieldLogger // Optional
}

// Handlers are the components inbound frames are dispatched to. They are bound
// after construction because they need the bridge as their host.Server.
type Handlers struct {
	Bus         *events.Bus         // Required
	Router      *commands.Router    // Required
	Leaderboard leaderboard.Service // Required
}

// Bridge implements host.Server for a single connected host
type Bridge struct {
	exec     Executor
	token    string
	metrics  *metrics.Metrics
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader

	handlers *Handlers

	mu      sync.RWMutex
	players map[string]*remotePlayer
	conn    *hostConn
}

var _ host.Server = (*Bridge)(nil)

// New creates a bridge. Call Bind before serving connections.
func New(cfg *Config) *Bridge {
	if cfg == nil {
		panic("Config cannot be nil")
	}
	if cfg.Executor == nil {
		panic("executor is required")
	}

	b := &Bridge{
		exec:    cfg.Executor,
		token:   cfg.Token,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		players: make(map[string]*remotePlayer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
	if b.metrics == nil {
		b.metrics = metrics.New()
	}
	if b.logger == nil {
		b.logger = logrus.StandardLogger()
	}
	b.logger = b.logger.WithField("component", "bridge")
	return b
}

// Bind sets the frame handlers
func (b *Bridge) Bind(h *Handlers) {
	if h == nil || h.Bus == nil || h.Router == nil || h.Leaderboard == nil {
		panic("bus, router and leaderboard are required")
	}
	b.handlers = h
}

// Player returns the online player with the given id
func (b *Bridge) Player(id string) (host.Player, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.players[id]
	if !ok {
		return nil, false
	}
	return p, true
}

// PlayerByName returns the online player with this name, ignoring case
func (b *Bridge) PlayerByName(name string) (host.Player, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, p := range b.players {
		if strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	return nil, false
}

// OnlinePlayers lists everyone online, ordered by name
func (b *Bridge) OnlinePlayers() []host.Player {
	b.mu.RLock()
	out := make([]host.Player, 0, len(b.players))
	for _, p := range b.players {
		out = append(out, p)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Broadcast sends text to every online player
func (b *Bridge) Broadcast(text string) {
	b.push(&Action{Type: FrameBroadcast, Text: text})
}

// ServeHTTP upgrades the request and serves the host until it disconnects.
// A newer connection replaces the current one.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if b.handlers == nil {
		http.Error(w, "bridge is not ready", http.StatusServiceUnavailable)
		return
	}

	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	conn := newHostConn(ws, b.logger)
	b.mu.Lock()
	previous := b.conn
	b.conn = conn
	b.mu.Unlock()
	if previous != nil {
		b.logger.Info("Replacing host connection")
		previous.close()
	}

	b.logger.WithField("remote", r.RemoteAddr).Info("Host connected")
	go conn.writePump()
	b.readLoop(conn)

	b.mu.Lock()
	current := b.conn == conn
	if current {
		b.conn = nil
	}
	b.mu.Unlock()
	conn.close()

	if current {
		b.logger.Info("Host disconnected")
		b.dropPlayers()
	}
}

// Close disconnects the host
func (b *Bridge) Close() {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn != nil {
		conn.close()
	}
}

func (b *Bridge) readLoop(conn *hostConn) {
	ws := conn.ws
	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	authed := b.token == ""
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.WithError(err).Warn("Host connection closed")
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			b.logger.WithError(err).Warn("Dropping malformed frame")
			continue
		}
		b.metrics.BridgeFrames.WithLabelValues(in.Type).Inc()

		if in.Type == FrameHello {
			authed = b.checkToken(in.Token)
			conn.send(&Result{Type: FrameResult, ID: in.ID, Cancel: !authed})
			if !authed {
				b.logger.Warn("Host sent a bad token")
				return
			}
			continue
		}
		if !authed {
			b.logger.WithField("type", in.Type).Warn("Frame before hello")
			return
		}

		conn.send(b.handle(&in))
	}
}

func (b *Bridge) checkToken(token string) bool {
	if b.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(b.token)) == 1
}

// push queues a frame for the current host. It reports false when no host is connected.
func (b *Bridge) push(frame any) bool {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.send(frame)
}

// dropPlayers ends every session when the host goes away
func (b *Bridge) dropPlayers() {
	b.mu.RLock()
	ids := make([]string, 0, len(b.players))
	for id := range b.players {
		ids = append(ids, id)
	}
	b.mu.RUnlock()
	sort.Strings(ids)

	for _, id := range ids {
		b.quit(id)
	}
}

func (b *Bridge) upsert(info *PlayerInfo) *remotePlayer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.players[info.ID]; ok {
		p.update(info)
		return p
	}
	p := newRemotePlayer(b, info)
	b.players[info.ID] = p
	return p
}

func (b *Bridge) quit(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	err := b.exec.Call(ctx, func() {
		if err := b.handlers.Bus.Emit(events.NewPlayerQuitEvent(id)); err != nil {
			b.logger.WithError(err).WithField("player", id).Error("Quit listener failed")
		}
	})
	if err != nil {
		b.logger.WithError(err).WithField("player", id).Warn("Quit was not processed")
	}

	b.mu.Lock()
	p, ok := b.players[id]
	delete(b.players, id)
	b.mu.Unlock()
	if ok {
		p.setOnline(false)
	}
}

// hostConn serializes writes to one websocket
type hostConn struct {
	ws     *websocket.Conn
	out    chan []byte
	done   chan struct{}
	once   sync.Once
	logger logrus.FieldLogger
}

func newHostConn(ws *websocket.Conn, logger logrus.FieldLogger) *hostConn {
	return &hostConn{
		ws:     ws,
		out:    make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (c *hostConn) send(frame any) bool {
	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.WithError(err).Error("Failed to encode frame")
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.out <- data:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn("Host send buffer full, dropping frame")
		return false
	}
}

func (c *hostConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			c.flush()
			return
		case data := <-c.out:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.logger.WithError(err).Warn("Host write failed")
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// flush writes what is still queued and says goodbye
func (c *hostConn) flush() {
	for {
		select {
		case data := <-c.out:
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (c *hostConn) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}

// close stops the writer, which closes the socket after flushing
func (c *hostConn) close() {
	c.once.Do(func() {
		close(c.done)
	})
}
