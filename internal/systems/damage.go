package systems

import (
	"context"

	"github.com/udisondev/blockregen/internal/coordinator"
)

// DamageEvent is a block hit reported by the host before the block breaks.
type DamageEvent struct {
	Player  string
	World   string
	X, Y, Z int
	BlockID string
}

// DamageGate cancels hits on depleted nodes.
type DamageGate struct {
	coord    *coordinator.Coordinator
	notifier Notifier
}

// NewDamageGate creates a damage gate. notifier may be nil.
func NewDamageGate(coord *coordinator.Coordinator, notifier Notifier) *DamageGate {
	return &DamageGate{coord: coord, notifier: orNopNotifier(notifier)}
}

// Handle reports whether the hit must be cancelled: the position is waiting
// for respawn or the hit block is a known placeholder.
func (g *DamageGate) Handle(ctx context.Context, ev DamageEvent) bool {
	if !g.coord.IsEnabled() {
		return false
	}

	if !g.coord.ShouldBlockWaiting(ev.World, ev.X, ev.Y, ev.Z) &&
		g.coord.FindInteractedDefinition(ev.BlockID) == nil {
		return false
	}

	g.notifier.SendDepletedNotice(ctx, ev.Player)
	return true
}
