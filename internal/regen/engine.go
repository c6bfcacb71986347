// Package regen implements the per-position gather, deplete and respawn
// state machine.
//
// Each monitored position owns one record guarded by its own mutex, so work
// on one position never waits on another. Records live in a sync.Map keyed
// by model.Position and are created lazily on the first successful gather.
package regen

import (
	"log/slog"
	"sync"

	"github.com/udisondev/blockregen/internal/model"
)

// Phase is the lifecycle phase of a monitored position.
type Phase int

const (
	PhaseActive Phase = iota
	PhaseWaiting
)

func (p Phase) String() string {
	if p == PhaseWaiting {
		return "WAITING"
	}
	return "ACTIVE"
}

// Action tells the caller what to do with the block after a gather.
type Action int

const (
	// ActionRestoreSource: the resource is not exhausted, put the source block back.
	ActionRestoreSource Action = iota + 1
	// ActionDepletedToWaiting: place the interacted block and wait for respawn.
	ActionDepletedToWaiting
	// ActionBlockedWaiting: the position was already waiting; cancel the interaction.
	ActionBlockedWaiting
)

func (a Action) String() string {
	switch a {
	case ActionRestoreSource:
		return "RESTORE_SOURCE"
	case ActionDepletedToWaiting:
		return "DEPLETED_TO_WAITING"
	case ActionBlockedWaiting:
		return "BLOCKED_WAITING"
	default:
		return "UNKNOWN"
	}
}

// GatherResult is the outcome of RecordSuccessfulGather.
type GatherResult struct {
	Action             Action
	BlockToSet         string
	RespawnDueAtMillis int64 // zero unless the position is waiting
	GatherCount        int
	GatherThreshold    int
}

// RespawnAction asks the caller to put SourceBlockID back at Position.
type RespawnAction struct {
	Position          model.Position
	SourceBlockID     string
	InteractedBlockID string
	DefinitionID      string
}

// Snapshot is a read-only view of one position's record.
type Snapshot struct {
	DefinitionID       string
	Phase              Phase
	GatherCount        int
	GatherThreshold    int
	RespawnDueAtMillis int64
	SourceBlockID      string
	InteractedBlockID  string
}

type nodeState struct {
	mu      sync.Mutex
	removed bool // set once the record left the map

	definitionID      string
	sourceBlockID     string
	interactedBlockID string
	phase             Phase
	gatherCount       int
	gatherThreshold   int
	respawnDueAt      int64
}

func (st *nodeState) snapshot() Snapshot {
	return Snapshot{
		DefinitionID:       st.definitionID,
		Phase:              st.phase,
		GatherCount:        st.gatherCount,
		GatherThreshold:    st.gatherThreshold,
		RespawnDueAtMillis: st.respawnDueAt,
		SourceBlockID:      st.sourceBlockID,
		InteractedBlockID:  st.interactedBlockID,
	}
}

// Engine owns the runtime records of all monitored positions.
type Engine struct {
	states  sync.Map // model.Position -> *nodeState
	src     Source
	metrics Metrics
}

// NewEngine creates an engine sampling from src.
// A nil src uses DefaultSource.
func NewEngine(src Source) *Engine {
	if src == nil {
		src = DefaultSource()
	}
	return &Engine{src: src}
}

func (e *Engine) newState(def *model.Definition, sourceBlockID string) *nodeState {
	return &nodeState{
		definitionID:      def.ID,
		sourceBlockID:     sourceBlockID,
		interactedBlockID: def.InteractedBlockID,
		phase:             PhaseActive,
		gatherThreshold:   SampleThreshold(def.Gathering, e.src),
	}
}

func (e *Engine) loadOrCreate(pos model.Position, def *model.Definition, sourceBlockID string) *nodeState {
	if v, ok := e.states.Load(pos); ok {
		return v.(*nodeState)
	}

	v, loaded := e.states.LoadOrStore(pos, e.newState(def, sourceBlockID))
	if !loaded {
		e.metrics.active.Add(1)
	}
	return v.(*nodeState)
}

// RecordSuccessfulGather counts one successful gather of sourceBlockID at pos
// governed by def, and returns what the caller should do with the block.
func (e *Engine) RecordSuccessfulGather(pos model.Position, sourceBlockID string, def *model.Definition, nowMillis int64) GatherResult {
	e.metrics.matched.Add(1)

	for {
		st := e.loadOrCreate(pos, def, sourceBlockID)

		st.mu.Lock()
		if st.removed {
			// Lost a race with a respawn poll or a clear; start a fresh record.
			st.mu.Unlock()
			continue
		}
		result := e.gatherLocked(pos, st, sourceBlockID, def, nowMillis)
		st.mu.Unlock()

		return result
	}
}

func (e *Engine) gatherLocked(pos model.Position, st *nodeState, sourceBlockID string, def *model.Definition, nowMillis int64) GatherResult {
	if st.phase == PhaseWaiting {
		e.metrics.blocked.Add(1)
		return GatherResult{
			Action:             ActionBlockedWaiting,
			BlockToSet:         st.interactedBlockID,
			RespawnDueAtMillis: st.respawnDueAt,
			GatherCount:        st.gatherCount,
			GatherThreshold:    st.gatherThreshold,
		}
	}

	if st.definitionID != def.ID {
		slog.Debug("definition changed at position, restarting cycle",
			"position", pos,
			"oldID", st.definitionID,
			"newID", def.ID)
		st.definitionID = def.ID
		st.interactedBlockID = def.InteractedBlockID
		st.gatherCount = 0
		st.gatherThreshold = SampleThreshold(def.Gathering, e.src)
	}

	st.sourceBlockID = sourceBlockID
	st.gatherCount++

	if st.gatherCount < st.gatherThreshold {
		return GatherResult{
			Action:          ActionRestoreSource,
			BlockToSet:      sourceBlockID,
			GatherCount:     st.gatherCount,
			GatherThreshold: st.gatherThreshold,
		}
	}

	st.phase = PhaseWaiting
	st.respawnDueAt = nowMillis + SampleDelayMillis(def.Respawn, e.src)
	e.metrics.depleted.Add(1)

	return GatherResult{
		Action:             ActionDepletedToWaiting,
		BlockToSet:         st.interactedBlockID,
		RespawnDueAtMillis: st.respawnDueAt,
		GatherCount:        st.gatherCount,
		GatherThreshold:    st.gatherThreshold,
	}
}

// ShouldBlockInteractionWhileWaiting reports whether pos is depleted and
// waiting for respawn. A true result is counted as a blocked interaction.
func (e *Engine) ShouldBlockInteractionWhileWaiting(pos model.Position) bool {
	v, ok := e.states.Load(pos)
	if !ok {
		return false
	}

	st := v.(*nodeState)
	st.mu.Lock()
	waiting := !st.removed && st.phase == PhaseWaiting
	st.mu.Unlock()

	if waiting {
		e.metrics.blocked.Add(1)
	}
	return waiting
}

// PollDueRespawns removes every waiting record due at nowMillis and returns
// one action per removed record. A record is returned by exactly one call.
func (e *Engine) PollDueRespawns(nowMillis int64) []RespawnAction {
	return e.pollDue(func(model.Position) bool { return true }, nowMillis)
}

// PollDueRespawnsForWorld is PollDueRespawns restricted to one world.
func (e *Engine) PollDueRespawnsForWorld(world string, nowMillis int64) []RespawnAction {
	return e.pollDue(func(pos model.Position) bool { return pos.World == world }, nowMillis)
}

func (e *Engine) pollDue(include func(model.Position) bool, nowMillis int64) []RespawnAction {
	var due []RespawnAction

	e.states.Range(func(key, value any) bool {
		pos := key.(model.Position)
		if !include(pos) {
			return true
		}

		st := value.(*nodeState)
		st.mu.Lock()
		if st.removed || st.phase != PhaseWaiting || st.respawnDueAt > nowMillis {
			st.mu.Unlock()
			return true
		}
		st.removed = true
		e.states.CompareAndDelete(pos, st)
		action := RespawnAction{
			Position:          pos,
			SourceBlockID:     st.sourceBlockID,
			InteractedBlockID: st.interactedBlockID,
			DefinitionID:      st.definitionID,
		}
		st.mu.Unlock()

		e.metrics.active.Add(-1)
		e.metrics.respawns.Add(1)
		due = append(due, action)
		return true
	})

	return due
}

// Inspect returns a copy of the record at pos.
func (e *Engine) Inspect(pos model.Position) (Snapshot, bool) {
	v, ok := e.states.Load(pos)
	if !ok {
		return Snapshot{}, false
	}

	st := v.(*nodeState)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.removed {
		return Snapshot{}, false
	}
	return st.snapshot(), true
}

// ClearAt drops the record at pos. Returns false if there was none.
func (e *Engine) ClearAt(pos model.Position) bool {
	v, ok := e.states.LoadAndDelete(pos)
	if !ok {
		return false
	}

	st := v.(*nodeState)
	st.mu.Lock()
	cleared := !st.removed
	st.removed = true
	st.mu.Unlock()

	if cleared {
		e.metrics.active.Add(-1)
	}
	return cleared
}

// ClearAll drops every record and returns how many were removed.
// Cumulative counters are kept; the active-state gauge drops to match.
func (e *Engine) ClearAll() int {
	removed := 0
	e.states.Range(func(key, _ any) bool {
		if e.ClearAt(key.(model.Position)) {
			removed++
		}
		return true
	})
	return removed
}

// Metrics returns a snapshot of the engine counters.
func (e *Engine) Metrics() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// ResetCounters zeroes the cumulative counters.
func (e *Engine) ResetCounters() {
	e.metrics.ResetCounters()
}
