// Package notify delivers throttled player notices.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/blockregen/internal/model"
)

// DepletedNotice is shown when a player hits a depleted node.
const DepletedNotice = "This node is depleted. It will regenerate soon."

// Sender delivers text to one player. SendNotice is the styled toast;
// SendMessage is the plain chat fallback.
type Sender interface {
	SendNotice(ctx context.Context, player, text string) error
	SendMessage(ctx context.Context, player, text string) error
}

// Throttle rate-limits notices per player.
type Throttle struct {
	sender   Sender
	cooldown func() int64 // millis, read on every send so reloads apply
	now      func() time.Time

	last sync.Map // player -> int64 unix millis
}

// NewThrottle creates a throttle in front of sender. cooldown is floored at
// model.MinNotifyCooldownMillis.
func NewThrottle(sender Sender, cooldown func() int64) *Throttle {
	return &Throttle{
		sender:   sender,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// SendDepletedNotice sends DepletedNotice unless the player was notified
// within the cooldown. Reports whether a notice went out.
func (t *Throttle) SendDepletedNotice(ctx context.Context, player string) bool {
	return t.send(ctx, player, DepletedNotice)
}

func (t *Throttle) send(ctx context.Context, player, text string) bool {
	if player == "" || !t.acquire(player) {
		return false
	}

	if err := t.sender.SendNotice(ctx, player, text); err != nil {
		slog.Debug("notice failed, falling back to chat", "player", player, "error", err)
		if err := t.sender.SendMessage(ctx, player, text); err != nil {
			slog.Warn("failed to notify player", "player", player, "error", err)
			return false
		}
	}
	return true
}

// acquire claims the player's notice slot if the cooldown has passed.
func (t *Throttle) acquire(player string) bool {
	cd := max(model.MinNotifyCooldownMillis, t.cooldown())

	for {
		now := t.now().UnixMilli()

		v, ok := t.last.Load(player)
		if !ok {
			if _, loaded := t.last.LoadOrStore(player, now); loaded {
				continue
			}
			return true
		}

		if now-v.(int64) < cd {
			return false
		}
		if t.last.CompareAndSwap(player, v, now) {
			return true
		}
	}
}

// Clear forgets every cooldown.
func (t *Throttle) Clear() {
	t.last.Clear()
}
