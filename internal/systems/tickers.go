package systems

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/udisondev/blockregen/internal/coordinator"
	"github.com/udisondev/blockregen/internal/journal"
	"github.com/udisondev/blockregen/internal/placement"
	"github.com/udisondev/blockregen/internal/world"
)

// RespawnTicker restores depleted nodes when their respawn is due.
type RespawnTicker struct {
	coord    *coordinator.Coordinator
	worlds   world.Registry
	mutator  world.Mutator
	journal  Recorder
	interval time.Duration
	now      func() time.Time

	nextPollAt int64 // only touched from the ticker goroutine
}

// NewRespawnTicker creates a respawn ticker firing every interval; polls are
// further spaced by the coordinator's respawnTickMillis.
func NewRespawnTicker(coord *coordinator.Coordinator, worlds world.Registry, mutator world.Mutator, rec Recorder, interval time.Duration) *RespawnTicker {
	return &RespawnTicker{
		coord:    coord,
		worlds:   worlds,
		mutator:  mutator,
		journal:  orNopRecorder(rec),
		interval: interval,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (t *RespawnTicker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	slog.Info("respawn ticker started", "interval", t.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("respawn ticker stopping")
			return nil
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick polls and applies due respawns for every loaded world. Returns how
// many were applied.
func (t *RespawnTicker) Tick(ctx context.Context) int {
	if !t.coord.IsEnabled() {
		return 0
	}

	now := nowMillis(t.now)
	if now < t.nextPollAt {
		return 0
	}
	t.nextPollAt = now + t.coord.RespawnTickMillis()

	applied := 0
	for _, name := range t.worlds.Worlds() {
		for _, a := range t.coord.PollDueRespawns(name, now) {
			if err := t.mutator.SetBlock(ctx, a.Position, "", a.SourceBlockID); err != nil {
				slog.Warn("failed to apply respawn",
					"pos", a.Position,
					"block", a.SourceBlockID,
					"definition", a.DefinitionID,
					"error", err)
				t.journal.Record(journal.NewEvent(journal.KindPlacementFailed, a.Position, a.SourceBlockID, a.DefinitionID, now))
				continue
			}
			applied++
			t.journal.Record(journal.NewEvent(journal.KindRespawned, a.Position, a.SourceBlockID, a.DefinitionID, now))
		}
	}
	return applied
}

// PlacementTicker applies due pending placements.
type PlacementTicker struct {
	coord    *coordinator.Coordinator
	worlds   world.Registry
	mutator  world.Mutator
	journal  Recorder
	interval time.Duration
	now      func() time.Time
}

// NewPlacementTicker creates a placement ticker firing every interval.
func NewPlacementTicker(coord *coordinator.Coordinator, worlds world.Registry, mutator world.Mutator, rec Recorder, interval time.Duration) *PlacementTicker {
	return &PlacementTicker{
		coord:    coord,
		worlds:   worlds,
		mutator:  mutator,
		journal:  orNopRecorder(rec),
		interval: interval,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (t *PlacementTicker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	slog.Info("placement ticker started", "interval", t.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("placement ticker stopping")
			return nil
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick applies every due placement. Returns how many were applied.
func (t *PlacementTicker) Tick(ctx context.Context) int {
	now := nowMillis(t.now)

	applied := 0
	for _, name := range t.worlds.Worlds() {
		for _, p := range t.coord.PollDuePlacements(name, now) {
			if err := t.apply(ctx, p); err != nil {
				level := slog.LevelWarn
				if errors.Is(err, world.ErrStaleBlock) {
					level = slog.LevelDebug
				}
				slog.Log(ctx, level, "failed to apply pending placement",
					"pos", p.Position,
					"block", p.ReplacementBlockID,
					"mode", p.Mode,
					"error", err)
				t.journal.Record(journal.NewEvent(journal.KindPlacementFailed, p.Position, p.ReplacementBlockID, "", now))
				continue
			}
			applied++
		}
	}
	return applied
}

func (t *PlacementTicker) apply(ctx context.Context, p placement.Placement) error {
	if p.Mode == placement.ApplyOnWorldThread {
		if s, ok := t.mutator.(world.Scheduler); ok {
			return s.ScheduleBlock(ctx, p.Position, p.ExpectedBlockID, p.ReplacementBlockID)
		}
	}
	return t.mutator.SetBlock(ctx, p.Position, p.ExpectedBlockID, p.ReplacementBlockID)
}
