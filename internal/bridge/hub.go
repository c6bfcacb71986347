// Package bridge connects host game servers to the regeneration daemon over
// a websocket. Hosts report breaks, hits and commands; the daemon answers
// with verdicts and pushes block writes and player notices back.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/udisondev/blockregen/internal/admin"
	"github.com/udisondev/blockregen/internal/model"
	"github.com/udisondev/blockregen/internal/systems"
	"github.com/udisondev/blockregen/internal/world"
)

const (
	handshakeTimeout = 5 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 5 * time.Second
	pingInterval     = 20 * time.Second
	sendBuffer       = 1024
)

// ErrUnknownPlayer is returned when no session reported the player.
var ErrUnknownPlayer = errors.New("unknown player")

// BreakHandler handles break frames.
type BreakHandler interface {
	Handle(ctx context.Context, ev systems.BreakEvent) systems.Verdict
}

// DamageHandler handles damage frames.
type DamageHandler interface {
	Handle(ctx context.Context, ev systems.DamageEvent) bool
}

// CommandHandler handles command frames.
type CommandHandler interface {
	Handle(ctx context.Context, caller admin.Caller, text string) []string
}

// Handlers route inbound frames. Nil handlers answer with an empty reply.
type Handlers struct {
	Break   BreakHandler
	Damage  DamageHandler
	Command CommandHandler
}

type session struct {
	id     string
	worlds []string
	out    chan []byte
}

func (s *session) send(f Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", f.Type, err)
	}
	select {
	case s.out <- b:
		return nil
	default:
		return fmt.Errorf("session %s send buffer full", s.id)
	}
}

// Hub tracks host sessions and routes world writes and notices to the
// session that owns the world or last reported the player.
type Hub struct {
	tokenHash string
	upgrader  websocket.Upgrader

	handlersMu sync.RWMutex
	handlers   Handlers

	mu       sync.RWMutex
	sessions map[string]*session
	owners   map[string]*session // world -> session
	players  map[string]*session // player -> session
}

// NewHub creates a hub. tokenHash is a bcrypt hash; empty disables auth.
func NewHub(tokenHash string) *Hub {
	return &Hub{
		tokenHash: tokenHash,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true }, // hosts are not browsers
		},
		sessions: make(map[string]*session),
		owners:   make(map[string]*session),
		players:  make(map[string]*session),
	}
}

// SetHandlers installs the frame handlers.
func (h *Hub) SetHandlers(hs Handlers) {
	h.handlersMu.Lock()
	h.handlers = hs
	h.handlersMu.Unlock()
}

func (h *Hub) currentHandlers() Handlers {
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	return h.handlers
}

// Handler returns the websocket endpoint.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			slog.Debug("bridge upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer conn.Close()

		s, err := h.handshake(conn)
		if err != nil {
			slog.Warn("bridge handshake failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer h.unregister(s)

		slog.Info("bridge session opened", "session", s.id, "remote", r.RemoteAddr, "worlds", s.worlds)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go h.writeLoop(ctx, cancel, conn, s)
		h.readLoop(ctx, conn, s)

		slog.Info("bridge session closed", "session", s.id)
	}
}

func (h *Hub) handshake(conn *websocket.Conn) (*session, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	var hello Frame
	if err := conn.ReadJSON(&hello); err != nil {
		return nil, fmt.Errorf("reading hello: %w", err)
	}
	if hello.Type != TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected hello")
		return nil, fmt.Errorf("expected hello, got %q", hello.Type)
	}
	if err := VerifyToken(h.tokenHash, hello.Token); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "unauthorized")
		return nil, err
	}

	s := &session{
		id:     uuid.NewString(),
		worlds: slices.Clone(hello.Worlds),
		out:    make(chan []byte, sendBuffer),
	}

	h.register(s)

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(Frame{Type: TypeWelcome, Session: s.id, Worlds: s.worlds}); err != nil {
		h.unregister(s)
		return nil, fmt.Errorf("writing welcome: %w", err)
	}
	return s, nil
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s.id] = s
	for _, w := range s.worlds {
		if prev, ok := h.owners[w]; ok && prev != s {
			slog.Warn("bridge world taken over by new session", "world", w, "old", prev.id, "new", s.id)
		}
		h.owners[w] = s
	}
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, s.id)
	for w, owner := range h.owners {
		if owner == s {
			delete(h.owners, w)
		}
	}
	for p, owner := range h.players {
		if owner == s {
			delete(h.players, p)
		}
	}
}

func (h *Hub) trackPlayer(s *session, player string) {
	if player == "" {
		return
	}

	h.mu.RLock()
	current := h.players[player]
	h.mu.RUnlock()
	if current == s {
		return
	}

	h.mu.Lock()
	h.players[player] = s
	h.mu.Unlock()
}

func (h *Hub) forgetPlayer(s *session, player string) {
	h.mu.Lock()
	if h.players[player] == s {
		delete(h.players, player)
	}
	h.mu.Unlock()
}

func (h *Hub) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, s *session) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			closeWith(conn, websocket.CloseNormalClosure, "")
			_ = conn.Close()
			return
		case b := <-s.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				cancel()
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				cancel()
				return
			}
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn, s *session) {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for ctx.Err() == nil {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("bridge read failed", "session", s.id, "error", err)
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			slog.Debug("bridge frame malformed", "session", s.id, "error", err)
			continue
		}

		if reply, ok := h.dispatch(ctx, s, f); ok {
			if err := s.send(reply); err != nil {
				slog.Warn("bridge reply dropped", "session", s.id, "seq", f.Seq, "error", err)
			}
		}
	}
}

// dispatch handles one inbound frame and returns the reply, if any.
func (h *Hub) dispatch(ctx context.Context, s *session, f Frame) (Frame, bool) {
	h.trackPlayer(s, f.Player)
	hs := h.currentHandlers()
	reply := Frame{Type: TypeReply, Seq: f.Seq}

	switch f.Type {
	case TypeBreak:
		if hs.Break != nil {
			v := hs.Break.Handle(ctx, systems.BreakEvent{
				Player: f.Player, World: f.World, X: f.X, Y: f.Y, Z: f.Z, BlockID: f.Block,
			})
			reply.Cancel = v.Cancel
			reply.Matched = v.Matched
			if v.Matched {
				reply.Action = v.Action.String()
			}
		}
		return reply, true

	case TypeDamage:
		if hs.Damage != nil {
			reply.Cancel = hs.Damage.Handle(ctx, systems.DamageEvent{
				Player: f.Player, World: f.World, X: f.X, Y: f.Y, Z: f.Z, BlockID: f.Block,
			})
		}
		return reply, true

	case TypeCommand:
		if hs.Command != nil {
			reply.Lines = hs.Command.Handle(ctx, admin.Caller{Player: f.Player, World: f.World}, f.Text)
		}
		return reply, true

	case TypeLeave:
		h.forgetPlayer(s, f.Player)
		return Frame{}, false

	default:
		slog.Debug("bridge frame ignored", "session", s.id, "type", f.Type)
		return Frame{}, false
	}
}

func (h *Hub) owner(worldName string) (*session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.owners[worldName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", world.ErrUnknownWorld, worldName)
	}
	return s, nil
}

func (h *Hub) playerSession(player string) (*session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.players[player]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, player)
	}
	return s, nil
}

func (h *Hub) setBlock(pos model.Position, expect, blockID string, deferred bool) error {
	s, err := h.owner(pos.World)
	if err != nil {
		return err
	}
	return s.send(Frame{
		Type:     TypeSetBlock,
		World:    pos.World,
		X:        pos.X,
		Y:        pos.Y,
		Z:        pos.Z,
		Block:    blockID,
		Expect:   expect,
		Deferred: deferred,
	})
}

// SetBlock implements world.Mutator. The write is applied host-side, so an
// expect mismatch is not reported back.
func (h *Hub) SetBlock(_ context.Context, pos model.Position, expect, blockID string) error {
	return h.setBlock(pos, expect, blockID, false)
}

// ScheduleBlock implements world.Scheduler: the host runs the write on the
// world's own thread.
func (h *Hub) ScheduleBlock(_ context.Context, pos model.Position, expect, blockID string) error {
	return h.setBlock(pos, expect, blockID, true)
}

// Worlds implements world.Registry.
func (h *Hub) Worlds() []string {
	h.mu.RLock()
	names := make([]string, 0, len(h.owners))
	for w := range h.owners {
		names = append(names, w)
	}
	h.mu.RUnlock()

	slices.Sort(names)
	return names
}

// SessionCount returns the number of connected hosts.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// SendNotice implements notify.Sender.
func (h *Hub) SendNotice(_ context.Context, player, text string) error {
	s, err := h.playerSession(player)
	if err != nil {
		return err
	}
	return s.send(Frame{Type: TypeNotice, Player: player, Text: text})
}

// SendMessage implements notify.Sender.
func (h *Hub) SendMessage(_ context.Context, player, text string) error {
	s, err := h.playerSession(player)
	if err != nil {
		return err
	}
	return s.send(Frame{Type: TypeMessage, Player: player, Text: text})
}
