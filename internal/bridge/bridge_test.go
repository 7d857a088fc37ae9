package bridge_test

import (
	"context"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KirkDiggler/cduello/internal/bridge"
	"github.com/KirkDiggler/cduello/internal/commands"
	"github.com/KirkDiggler/cduello/internal/config"
	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/KirkDiggler/cduello/internal/events"
	"github.com/KirkDiggler/cduello/internal/host"
	"github.com/KirkDiggler/cduello/internal/listeners"
	mockmessages "github.com/KirkDiggler/cduello/internal/messages/mock"
	mockscheduler "github.com/KirkDiggler/cduello/internal/scheduler/mock"
	"github.com/KirkDiggler/cduello/internal/services"
	"github.com/KirkDiggler/cduello/internal/testutils"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const (
	testToken = "s3cret"
	aliceID   = "5f1d7c3a-0000-4000-8000-00000000000a"
	bobID     = "5f1d7c3a-0000-4000-8000-00000000000b"
	cemID     = "5f1d7c3a-0000-4000-8000-00000000000c"
)

// serialExecutor runs callbacks one at a time on the caller's goroutine
type serialExecutor struct {
	mu sync.Mutex
}

func (e *serialExecutor) Call(_ context.Context, fn func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
	return nil
}

// frame is the union of every outbound frame
type frame struct {
	Type          string             `json:"type"`
	ID            string             `json:"id"`
	Cancel        bool               `json:"cancel"`
	To            *entities.Location `json:"to"`
	KeepInventory *bool              `json:"keep_inventory"`
	Completions   []string           `json:"completions"`
	Text          string             `json:"text"`
	Error         string             `json:"error"`
	Player        string             `json:"player"`
	Location      *entities.Location `json:"location"`
}

type BridgeTestSuite struct {
	suite.Suite
	exec     *serialExecutor
	sched    *mockscheduler.ManualScheduler
	bridge   *bridge.Bridge
	provider *services.Provider
	server   *httptest.Server
	conn     *websocket.Conn
	seq      int
}

func (s *BridgeTestSuite) SetupTest() {
	cfg, err := config.Load()
	s.Require().NoError(err)

	s.exec = &serialExecutor{}
	s.sched = mockscheduler.NewManualScheduler(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.bridge = bridge.New(&bridge.Config{Executor: s.exec, Token: testToken})
	s.provider = services.NewProvider(&services.ProviderConfig{
		Config:    cfg,
		Server:    s.bridge,
		Scheduler: s.sched,
		Catalog:   mockmessages.NewEchoCatalog(),
	})

	bus := events.NewBus(nil)
	listeners.Register(bus, &listeners.Config{
		Duels: s.provider.Duels,
		Stats: s.provider.Stats,
		Guard: s.provider.Guard,
	})
	router := commands.NewRouter(&commands.RouterConfig{
		Provider:  s.provider,
		Server:    s.bridge,
		Scheduler: s.sched,
	})
	s.bridge.Bind(&bridge.Handlers{
		Bus:         bus,
		Router:      router,
		Leaderboard: s.provider.Leaderboard,
	})

	s.server = httptest.NewServer(s.bridge)
	s.conn = s.dial()
	s.seq = 0
}

func (s *BridgeTestSuite) TearDownTest() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.server.Close()
}

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, new(BridgeTestSuite))
}

func (s *BridgeTestSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	return conn
}

// call sends a frame and collects every action up to its result
func (s *BridgeTestSuite) call(conn *websocket.Conn, in map[string]any) (*frame, []*frame) {
	s.seq++
	id := "req-" + strconv.Itoa(s.seq)
	in["id"] = id
	s.Require().NoError(conn.WriteJSON(in))

	var actions []*frame
	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var f frame
		s.Require().NoError(conn.ReadJSON(&f))
		if f.Type == bridge.FrameResult && f.ID == id {
			return &f, actions
		}
		actions = append(actions, &f)
	}
}

func (s *BridgeTestSuite) hello() {
	res, _ := s.call(s.conn, map[string]any{"type": bridge.FrameHello, "token": testToken})
	s.Require().False(res.Cancel)
}

func player(id, name string, x float64, perms ...string) map[string]any {
	if perms == nil {
		perms = []string{host.PermissionUse}
	}
	return map[string]any{
		"id":          id,
		"name":        name,
		"location":    testutils.CreateTestLocation("world", x, 64, 0),
		"permissions": perms,
	}
}

func (s *BridgeTestSuite) join(id, name string, x float64) {
	res, _ := s.call(s.conn, map[string]any{"type": bridge.FramePlayerJoin, "player": player(id, name, x)})
	s.Require().Empty(res.Error)
}

func (s *BridgeTestSuite) command(id, name, line string) (*frame, []*frame) {
	return s.call(s.conn, map[string]any{
		"type":   bridge.FramePlayerCommand,
		"player": player(id, name, 0),
		"line":   line,
	})
}

func messagesFor(actions []*frame, playerID string) []string {
	var out []string
	for _, a := range actions {
		if a.Type == bridge.FrameMessage && a.Player == playerID {
			out = append(out, a.Text)
		}
	}
	return out
}

func (s *BridgeTestSuite) startDuel() {
	s.hello()
	s.join(aliceID, "Alice", 0)
	s.join(bobID, "Bob", 10)

	res, _ := s.command(aliceID, "Alice", "/duello Bob")
	s.Require().True(res.Cancel)
	res, _ = s.command(bobID, "Bob", "/cduello:duel accept")
	s.Require().True(res.Cancel)
	s.Require().True(s.provider.Duels.IsInDuel(aliceID))
}

func (s *BridgeTestSuite) TestBadTokenClosesConnection() {
	res, _ := s.call(s.conn, map[string]any{"type": bridge.FrameHello, "token": "wrong"})
	s.True(res.Cancel)

	_ = s.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := s.conn.ReadMessage()
	s.Error(err)
}

func (s *BridgeTestSuite) TestFramesBeforeHelloCloseConnection() {
	s.Require().NoError(s.conn.WriteJSON(map[string]any{"type": bridge.FramePlayerJoin, "player": player(aliceID, "Alice", 0)}))

	_ = s.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := s.conn.ReadMessage()
	s.Error(err)
	_, ok := s.bridge.Player(aliceID)
	s.False(ok)
}

func (s *BridgeTestSuite) TestJoinRegistersPlayer() {
	s.hello()
	s.join(aliceID, "Alice", 0)

	p, ok := s.bridge.PlayerByName("ALICE")
	s.Require().True(ok)
	s.Equal(aliceID, p.ID())
	s.True(p.HasPermission(host.PermissionUse))
	s.Len(s.bridge.OnlinePlayers(), 1)
}

func (s *BridgeTestSuite) TestChallengeSendsMessages() {
	s.hello()
	s.join(aliceID, "Alice", 0)
	s.join(bobID, "Bob", 10)

	res, actions := s.command(aliceID, "Alice", "/duello Bob")

	s.True(res.Cancel)
	received := messagesFor(actions, bobID)
	s.Require().Len(received, 1)
	s.Contains(received[0], "duel-request-received")
	s.True(s.provider.Requests.HasPending(bobID))
}

func (s *BridgeTestSuite) TestOtherCommandsPassThrough() {
	s.hello()
	s.join(aliceID, "Alice", 0)

	res, _ := s.command(aliceID, "Alice", "/spawn")
	s.False(res.Cancel)
}

func (s *BridgeTestSuite) TestCommandBlockedDuringDuel() {
	s.startDuel()

	res, actions := s.command(aliceID, "Alice", "/spawn")
	s.True(res.Cancel)
	s.Contains(messagesFor(actions, aliceID), "no-commands-in-duel")

	res, _ = s.command(aliceID, "Alice", "/msg Bob hi")
	s.False(res.Cancel)
}

func (s *BridgeTestSuite) TestMoveDuringCountdownIsReverted() {
	s.startDuel()

	from := testutils.CreateTestLocation("world", 0, 64, 0)
	to := testutils.CreateTestLocation("world", 3, 64, 0)
	res, _ := s.call(s.conn, map[string]any{
		"type":   bridge.FramePlayerMove,
		"player": player(aliceID, "Alice", 0),
		"from":   from,
		"to":     to,
	})

	s.False(res.Cancel)
	s.Require().NotNil(res.To)
	s.Equal(from.X, res.To.X)
}

func (s *BridgeTestSuite) TestThirdPartyDamageIsCancelled() {
	s.startDuel()
	s.join(cemID, "Cem", 20)

	res, _ := s.call(s.conn, map[string]any{"type": bridge.FramePlayerDamage, "attacker": cemID, "victim": aliceID})
	s.True(res.Cancel)

	res, _ = s.call(s.conn, map[string]any{"type": bridge.FramePlayerDamage, "attacker": bobID, "victim": aliceID})
	s.False(res.Cancel)
}

func (s *BridgeTestSuite) TestDeathReportsKeepInventory() {
	s.hello()
	s.join(aliceID, "Alice", 0)

	res, _ := s.call(s.conn, map[string]any{"type": bridge.FramePlayerDeath, "player": player(aliceID, "Alice", 0)})
	s.Require().NotNil(res.KeepInventory)
	s.False(*res.KeepInventory)
}

func (s *BridgeTestSuite) TestQuitCancelsCountdown() {
	s.startDuel()

	res, _ := s.call(s.conn, map[string]any{"type": bridge.FramePlayerQuit, "player": player(aliceID, "Alice", 0)})

	s.Empty(res.Error)
	s.False(s.provider.Duels.IsInDuel(bobID))
	_, ok := s.bridge.Player(aliceID)
	s.False(ok)
}

func (s *BridgeTestSuite) TestTabComplete() {
	s.hello()
	s.join(aliceID, "Alice", 0)
	s.join(bobID, "Bob", 10)

	res, _ := s.call(s.conn, map[string]any{
		"type":   bridge.FrameTabComplete,
		"player": player(aliceID, "Alice", 0),
		"args":   []string{"b"},
	})
	s.Equal([]string{"Bob"}, res.Completions)
}

func (s *BridgeTestSuite) TestPlaceholder() {
	s.hello()

	res, _ := s.call(s.conn, map[string]any{
		"type":   bridge.FramePlaceholder,
		"player": map[string]any{"id": strings.ReplaceAll(aliceID, "-", "")},
		"key":    "wins",
	})
	s.Equal("0", res.Text)

	res, _ = s.call(s.conn, map[string]any{"type": bridge.FramePlaceholder, "key": "nonsense"})
	s.Empty(res.Text)
}

func (s *BridgeTestSuite) TestUnknownFrame() {
	s.hello()

	res, _ := s.call(s.conn, map[string]any{"type": "player_fly"})
	s.Equal("unsupported frame type", res.Error)
}

func (s *BridgeTestSuite) TestTeleportWithoutHostFails() {
	s.hello()
	s.join(aliceID, "Alice", 0)
	p, ok := s.bridge.Player(aliceID)
	s.Require().True(ok)

	s.Require().NoError(p.Teleport(testutils.CreateTestLocation("world", 5, 64, 5)))
	s.Equal(5.0, p.Location().X)

	s.bridge.Close()
	s.Error(p.Teleport(testutils.CreateTestLocation("world", 9, 64, 9)))
}

func (s *BridgeTestSuite) TestDisconnectEndsDuels() {
	s.startDuel()

	s.Require().NoError(s.conn.Close())
	s.conn = nil

	s.Eventually(func() bool {
		return len(s.bridge.OnlinePlayers()) == 0
	}, 2*time.Second, 10*time.Millisecond)
	s.False(s.provider.Duels.IsInDuel(aliceID))
	s.False(s.provider.Duels.IsInDuel(bobID))
}

func (s *BridgeTestSuite) TestInvalidPlayerIDIsRejected() {
	s.hello()

	res, _ := s.call(s.conn, map[string]any{"type": bridge.FramePlayerJoin, "player": player("steve", "Steve", 0)})

	s.Contains(res.Error, "invalid player id")
	s.Empty(s.bridge.OnlinePlayers())
}

func (s *BridgeTestSuite) TestUndashedIDIsNormalized() {
	s.hello()

	res, _ := s.call(s.conn, map[string]any{
		"type":   bridge.FramePlayerJoin,
		"player": player(strings.ReplaceAll(aliceID, "-", ""), "Alice", 0),
	})

	s.Empty(res.Error)
	_, ok := s.bridge.Player(aliceID)
	s.True(ok)
}
