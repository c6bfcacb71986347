// Package coordinator composes the definition index, the runtime engine and
// the placement queue behind one API for event handlers, tickers and admin
// commands. It never mutates the world itself: results are declarative and
// callers apply them.
package coordinator

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/udisondev/blockregen/internal/index"
	"github.com/udisondev/blockregen/internal/model"
	"github.com/udisondev/blockregen/internal/placement"
	"github.com/udisondev/blockregen/internal/regen"
)

// Interaction kinds reported by the host.
const (
	KindBreak  = "break"
	KindDamage = "damage"
)

// Loader supplies the block regeneration configuration.
type Loader interface {
	Load() model.Config
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func() model.Config

// Load calls f.
func (f LoaderFunc) Load() model.Config { return f() }

// ReloadResult summarizes a (re)load.
type ReloadResult struct {
	Enabled           bool
	DefinitionsLoaded int
}

// Outcome is the result of HandleSuccessfulInteraction.
// Definition and Result are only set when Matched is true.
type Outcome struct {
	Matched    bool
	Kind       string
	Definition *model.Definition
	Result     regen.GatherResult
}

// published is swapped as a unit on reload.
type published struct {
	cfg model.Config
	idx *index.Index
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	loader  Loader
	engine  *regen.Engine
	queue   *placement.Queue
	current atomic.Pointer[published]
}

// New creates a coordinator. Until Initialize is called it runs on the
// default configuration with no definitions.
func New(loader Loader, engine *regen.Engine, queue *placement.Queue) *Coordinator {
	if engine == nil {
		engine = regen.NewEngine(nil)
	}
	if queue == nil {
		queue = placement.NewQueue()
	}

	c := &Coordinator{
		loader: loader,
		engine: engine,
		queue:  queue,
	}
	c.current.Store(&published{cfg: model.DefaultConfig(), idx: index.Empty()})
	return c
}

// Initialize performs the first load.
func (c *Coordinator) Initialize() ReloadResult {
	return c.Reload()
}

// Reload loads the configuration, publishes a rebuilt index and drops all
// runtime records and pending placements.
func (c *Coordinator) Reload() ReloadResult {
	cfg := c.loader.Load()
	c.current.Store(&published{cfg: cfg, idx: index.Load(cfg)})

	cleared := c.engine.ClearAll()
	c.queue.ClearAll()

	slog.Info("block regen reloaded",
		"enabled", cfg.Enabled,
		"definitions", len(cfg.Definitions),
		"cleared_states", cleared)

	return ReloadResult{Enabled: cfg.Enabled, DefinitionsLoaded: len(cfg.Definitions)}
}

func (c *Coordinator) load() *published {
	return c.current.Load()
}

// HandleSuccessfulInteraction routes a completed break or hit to the engine.
func (c *Coordinator) HandleSuccessfulInteraction(kind, world string, x, y, z int, blockID string, nowMillis int64) Outcome {
	p := c.load()
	if !p.cfg.Enabled {
		return Outcome{}
	}

	def := p.idx.FindByBlockID(blockID)
	if def == nil || !def.Enabled {
		return Outcome{}
	}

	res := c.engine.RecordSuccessfulGather(model.NewPosition(world, x, y, z), blockID, def, nowMillis)
	return Outcome{Matched: true, Kind: kind, Definition: def, Result: res}
}

// ShouldBlockWaiting reports whether interactions at the position must be
// cancelled because it is waiting for respawn.
func (c *Coordinator) ShouldBlockWaiting(world string, x, y, z int) bool {
	if !c.load().cfg.Enabled {
		return false
	}
	return c.engine.ShouldBlockInteractionWhileWaiting(model.NewPosition(world, x, y, z))
}

// FindDefinition returns the definition routing blockID, enabled or not.
func (c *Coordinator) FindDefinition(blockID string) *model.Definition {
	if strings.TrimSpace(blockID) == "" {
		return nil
	}
	return c.load().idx.FindByBlockID(blockID)
}

// FindInteractedDefinition returns the definition whose placeholder is blockID.
func (c *Coordinator) FindInteractedDefinition(blockID string) *model.Definition {
	if strings.TrimSpace(blockID) == "" {
		return nil
	}
	return c.load().idx.FindByInteractedBlockID(blockID)
}

// Definitions lists the loaded definitions in config order.
func (c *Coordinator) Definitions() []*model.Definition {
	return c.load().idx.Definitions()
}

// InspectState returns the runtime record at the position.
func (c *Coordinator) InspectState(world string, x, y, z int) (regen.Snapshot, bool) {
	return c.engine.Inspect(model.NewPosition(world, x, y, z))
}

// PollDuePlacements extracts the due placements of one world.
func (c *Coordinator) PollDuePlacements(world string, nowMillis int64) []placement.Placement {
	return c.queue.PollDueForWorld(world, nowMillis)
}

// PollDueRespawns extracts due respawns. An empty world polls every world.
// A pending placement at a respawned position is dropped so it cannot land
// on top of the restored source block.
func (c *Coordinator) PollDueRespawns(world string, nowMillis int64) []regen.RespawnAction {
	if !c.load().cfg.Enabled {
		return nil
	}

	var due []regen.RespawnAction
	if world == "" {
		due = c.engine.PollDueRespawns(nowMillis)
	} else {
		due = c.engine.PollDueRespawnsForWorld(world, nowMillis)
	}

	for _, a := range due {
		c.queue.ClearAt(a.Position)
	}
	return due
}

// QueuePlacement schedules a deferred block mutation.
func (c *Coordinator) QueuePlacement(p placement.Placement) {
	c.queue.Queue(p)
}

// QueueImmediatePlacement schedules blockID at the position for the next
// placement poll. An empty expect applies unconditionally.
func (c *Coordinator) QueueImmediatePlacement(pos model.Position, expect, blockID string, nowMillis int64) {
	c.queue.Queue(placement.Placement{
		Position:           pos,
		ExpectedBlockID:    expect,
		ReplacementBlockID: blockID,
		Mode:               placement.ApplyOnWorldThread,
		ApplyAtMillis:      nowMillis + 1,
	})
}

// ClearRuntimeStateAt drops the record and the pending placement at one position.
func (c *Coordinator) ClearRuntimeStateAt(world string, x, y, z int) bool {
	pos := model.NewPosition(world, x, y, z)
	hadState := c.engine.ClearAt(pos)
	hadPlacement := c.queue.ClearAt(pos)
	return hadState || hadPlacement
}

// ClearRuntimeState drops every record and pending placement.
func (c *Coordinator) ClearRuntimeState() int {
	n := c.engine.ClearAll()
	c.queue.ClearAll()
	return n
}

// MetricsSnapshot returns the current metrics.
func (c *Coordinator) MetricsSnapshot() regen.MetricsSnapshot {
	return c.engine.Metrics()
}

// ResetMetrics zeroes the cumulative counters.
func (c *Coordinator) ResetMetrics() {
	c.engine.ResetCounters()
}

func (c *Coordinator) IsEnabled() bool {
	return c.load().cfg.Enabled
}

func (c *Coordinator) RespawnTickMillis() int64 {
	return c.load().cfg.RespawnTickMillis
}

func (c *Coordinator) NotifyCooldownMillis() int64 {
	return c.load().cfg.NotifyCooldownMillis
}
