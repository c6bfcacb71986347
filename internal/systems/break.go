package systems

import (
	"context"
	"log/slog"
	"time"

	"github.com/udisondev/blockregen/internal/coordinator"
	"github.com/udisondev/blockregen/internal/journal"
	"github.com/udisondev/blockregen/internal/model"
	"github.com/udisondev/blockregen/internal/regen"
)

// BreakEvent is a completed block break reported by the host.
type BreakEvent struct {
	Player  string
	World   string
	X, Y, Z int
	BlockID string
}

// Position returns the broken block's position.
func (e BreakEvent) Position() model.Position {
	return model.NewPosition(e.World, e.X, e.Y, e.Z)
}

// Verdict tells the host what to do with the event.
type Verdict struct {
	Cancel  bool
	Matched bool
	Action  regen.Action
}

// BreakSystem handles break events.
type BreakSystem struct {
	coord    *coordinator.Coordinator
	notifier Notifier
	journal  Recorder
	now      func() time.Time
}

// NewBreakSystem creates a break handler. notifier and rec may be nil.
func NewBreakSystem(coord *coordinator.Coordinator, notifier Notifier, rec Recorder) *BreakSystem {
	return &BreakSystem{
		coord:    coord,
		notifier: orNopNotifier(notifier),
		journal:  orNopRecorder(rec),
		now:      time.Now,
	}
}

// Handle records the break. Restore and depletion results are queued as an
// immediate placement so they land after the host finishes its own break.
// A break of a waiting position is cancelled.
func (s *BreakSystem) Handle(ctx context.Context, ev BreakEvent) Verdict {
	if !s.coord.IsEnabled() {
		return Verdict{}
	}

	now := nowMillis(s.now)
	out := s.coord.HandleSuccessfulInteraction(coordinator.KindBreak, ev.World, ev.X, ev.Y, ev.Z, ev.BlockID, now)
	if !out.Matched {
		return Verdict{}
	}

	res := out.Result
	pos := ev.Position()

	switch res.Action {
	case regen.ActionBlockedWaiting:
		s.notifier.SendDepletedNotice(ctx, ev.Player)
		s.journal.Record(journal.NewEvent(journal.KindBlocked, pos, ev.BlockID, out.Definition.ID, now))
		return Verdict{Cancel: true, Matched: true, Action: res.Action}

	case regen.ActionDepletedToWaiting:
		slog.Debug("node depleted",
			"pos", pos,
			"definition", out.Definition.ID,
			"respawn_at", res.RespawnDueAtMillis)
		s.journal.Record(journal.NewEvent(journal.KindDepleted, pos, ev.BlockID, out.Definition.ID, now))
	}

	s.coord.QueueImmediatePlacement(pos, "", res.BlockToSet, now)
	return Verdict{Matched: true, Action: res.Action}
}
