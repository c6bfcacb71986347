package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/blockregen/internal/admin"
	"github.com/udisondev/blockregen/internal/model"
	"github.com/udisondev/blockregen/internal/regen"
	"github.com/udisondev/blockregen/internal/systems"
	"github.com/udisondev/blockregen/internal/world"
)

type stubBreaks struct {
	mu   sync.Mutex
	last systems.BreakEvent
}

func (s *stubBreaks) Handle(_ context.Context, ev systems.BreakEvent) systems.Verdict {
	s.mu.Lock()
	s.last = ev
	s.mu.Unlock()
	return systems.Verdict{Matched: true, Action: regen.ActionDepletedToWaiting}
}

func (s *stubBreaks) Last() systems.BreakEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type stubDamage struct{}

func (stubDamage) Handle(_ context.Context, ev systems.DamageEvent) bool {
	return ev.BlockID == "Empty_Vein"
}

type stubCommands struct{}

func (stubCommands) Handle(_ context.Context, caller admin.Caller, text string) []string {
	return []string{caller.Player + "@" + caller.World + ": " + text}
}

func startHub(t *testing.T, hub *Hub) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/bridge", hub.Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/bridge"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHub_RejectsBadToken(t *testing.T) {
	hash, err := HashToken("secret")
	require.NoError(t, err)

	hub := NewHub(hash)
	conn := dial(t, startHub(t, hub))

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeHello, Token: "guess", Worlds: []string{"overworld"}}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	assert.Empty(t, hub.Worlds())
}

func TestHub_RejectsMissingHello(t *testing.T) {
	hub := NewHub("")
	conn := dial(t, startHub(t, hub))

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeBreak}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestHub_SessionFlow(t *testing.T) {
	hash, err := HashToken("secret")
	require.NoError(t, err)

	hub := NewHub(hash)
	breaks := &stubBreaks{}
	hub.SetHandlers(Handlers{Break: breaks, Damage: stubDamage{}, Command: stubCommands{}})
	conn := dial(t, startHub(t, hub))
	ctx := context.Background()

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeHello, Token: "secret", Worlds: []string{"overworld", "mines"}}))
	welcome := readFrame(t, conn)
	assert.Equal(t, TypeWelcome, welcome.Type)
	assert.NotEmpty(t, welcome.Session)
	assert.Equal(t, []string{"mines", "overworld"}, hub.Worlds())
	assert.Equal(t, 1, hub.SessionCount())

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeBreak, Seq: 7, Player: "alice", World: "mines", X: 1, Y: 2, Z: 3, Block: "Ore_Iron_A"}))
	reply := readFrame(t, conn)
	assert.Equal(t, Frame{Type: TypeReply, Seq: 7, Matched: true, Action: "DEPLETED_TO_WAITING"}, reply)
	assert.Equal(t, systems.BreakEvent{Player: "alice", World: "mines", X: 1, Y: 2, Z: 3, BlockID: "Ore_Iron_A"}, breaks.Last())

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeDamage, Seq: 8, Player: "alice", World: "mines", Block: "Empty_Vein"}))
	reply = readFrame(t, conn)
	assert.Equal(t, uint64(8), reply.Seq)
	assert.True(t, reply.Cancel)

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeCommand, Seq: 9, Player: "op", World: "mines", Text: "/blockregen stats"}))
	reply = readFrame(t, conn)
	assert.Equal(t, []string{"op@mines: /blockregen stats"}, reply.Lines)

	require.NoError(t, hub.ScheduleBlock(ctx, model.NewPosition("mines", 1, 2, 3), "Ore_Iron_A", "Empty_Vein"))
	set := readFrame(t, conn)
	assert.Equal(t, Frame{Type: TypeSetBlock, World: "mines", X: 1, Y: 2, Z: 3, Block: "Empty_Vein", Expect: "Ore_Iron_A", Deferred: true}, set)

	err = hub.SetBlock(ctx, model.NewPosition("nether", 0, 0, 0), "", "Rock")
	assert.ErrorIs(t, err, world.ErrUnknownWorld)

	require.NoError(t, hub.SendNotice(ctx, "alice", "depleted"))
	notice := readFrame(t, conn)
	assert.Equal(t, Frame{Type: TypeNotice, Player: "alice", Text: "depleted"}, notice)

	assert.ErrorIs(t, hub.SendMessage(ctx, "bob", "hi"), ErrUnknownPlayer)

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeLeave, Player: "alice"}))
	require.Eventually(t, func() bool {
		return hub.SendMessage(ctx, "alice", "hi") != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return hub.SessionCount() == 0 && len(hub.Worlds()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestVerifyToken(t *testing.T) {
	hash, err := HashToken("secret")
	require.NoError(t, err)

	assert.NoError(t, VerifyToken(hash, "secret"))
	assert.ErrorIs(t, VerifyToken(hash, "nope"), ErrUnauthorized)
	assert.NoError(t, VerifyToken("", "anything"))

	_, err = HashToken("")
	assert.Error(t, err)
}
