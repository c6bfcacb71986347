package regen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/blockregen/internal/model"
)

func oreDefinition(gathering model.GatheringTrigger, respawn model.RespawnDelay) *model.Definition {
	return &model.Definition{
		ID:                "iron",
		Enabled:           true,
		BlockIDPattern:    "Ore_Iron_*",
		InteractedBlockID: "Empty_Ore_Vein",
		Gathering:         gathering,
		Respawn:           respawn,
	}
}

func TestRecordSuccessfulGather_SpecificDepletion(t *testing.T) {
	e := NewEngine(NewLockedSource(1))
	def := oreDefinition(model.SpecificTrigger(2), model.SetDelay(1000))
	pos := model.NewPosition("world", 1, 2, 3)

	first := e.RecordSuccessfulGather(pos, "Ore_Iron_A", def, 100)
	assert.Equal(t, ActionRestoreSource, first.Action)
	assert.Equal(t, "Ore_Iron_A", first.BlockToSet)
	assert.Equal(t, 1, first.GatherCount)
	assert.Equal(t, 2, first.GatherThreshold)
	assert.False(t, e.ShouldBlockInteractionWhileWaiting(pos))

	second := e.RecordSuccessfulGather(pos, "Ore_Iron_A", def, 200)
	assert.Equal(t, ActionDepletedToWaiting, second.Action)
	assert.Equal(t, "Empty_Ore_Vein", second.BlockToSet)
	assert.Equal(t, int64(1200), second.RespawnDueAtMillis)

	assert.True(t, e.ShouldBlockInteractionWhileWaiting(pos))
	assert.Empty(t, e.PollDueRespawns(1199))
	assert.True(t, e.ShouldBlockInteractionWhileWaiting(pos))

	actions := e.PollDueRespawns(1200)
	require.Len(t, actions, 1)
	assert.Equal(t, RespawnAction{
		Position:          pos,
		SourceBlockID:     "Ore_Iron_A",
		InteractedBlockID: "Empty_Ore_Vein",
		DefinitionID:      "iron",
	}, actions[0])

	assert.False(t, e.ShouldBlockInteractionWhileWaiting(pos))
	assert.Empty(t, e.PollDueRespawns(5000), "respawn must not be emitted twice")

	_, ok := e.Inspect(pos)
	assert.False(t, ok)
}

func TestRecordSuccessfulGather_GatherWhileWaitingIsBlocked(t *testing.T) {
	e := NewEngine(nil)
	def := oreDefinition(model.SpecificTrigger(1), model.SetDelay(1000))
	pos := model.NewPosition("world", 0, 0, 0)

	depleted := e.RecordSuccessfulGather(pos, "Ore_Iron_A", def, 0)
	require.Equal(t, ActionDepletedToWaiting, depleted.Action)

	blocked := e.RecordSuccessfulGather(pos, "Ore_Iron_A", def, 10)
	assert.Equal(t, ActionBlockedWaiting, blocked.Action)
	assert.Equal(t, "Empty_Ore_Vein", blocked.BlockToSet)
	assert.Equal(t, int64(1000), blocked.RespawnDueAtMillis)

	m := e.Metrics()
	assert.Equal(t, int64(2), m.MatchedInteractions)
	assert.Equal(t, int64(1), m.BlockedInteractions)
	assert.Equal(t, int64(1), m.Depletions)
}

func TestRecordSuccessfulGather_RandomThresholdStableWithinCycle(t *testing.T) {
	e := NewEngine(NewLockedSource(99))
	def := oreDefinition(model.RandomTrigger(3, 8), model.SetDelay(50))
	pos := model.NewPosition("world", 4, 4, 4)

	first := e.RecordSuccessfulGather(pos, "Ore_Iron_A", def, 0)
	threshold := first.GatherThreshold
	require.GreaterOrEqual(t, threshold, 3)
	require.LessOrEqual(t, threshold, 8)

	for i := 2; i < threshold; i++ {
		res := e.RecordSuccessfulGather(pos, "Ore_Iron_A", def, int64(i))
		require.Equal(t, ActionRestoreSource, res.Action)
		assert.Equal(t, threshold, res.GatherThreshold)
		assert.Equal(t, i, res.GatherCount)
	}

	last := e.RecordSuccessfulGather(pos, "Ore_Iron_A", def, 100)
	assert.Equal(t, ActionDepletedToWaiting, last.Action)
	assert.Equal(t, threshold, last.GatherThreshold)
}

func TestPollDueRespawns_ResetsCycle(t *testing.T) {
	e := NewEngine(nil)
	def := oreDefinition(model.SpecificTrigger(2), model.SetDelay(10))
	pos := model.NewPosition("world", 9, 9, 9)

	e.RecordSuccessfulGather(pos, "Ore_Iron_A", def, 0)
	e.RecordSuccessfulGather(pos, "Ore_Iron_A", def, 0)
	require.Len(t, e.PollDueRespawns(10), 1)

	res := e.RecordSuccessfulGather(pos, "Ore_Iron_A", def, 20)
	assert.Equal(t, ActionRestoreSource, res.Action)
	assert.Equal(t, 1, res.GatherCount, "new cycle starts from zero")
}

func TestRecordSuccessfulGather_DefinitionChangeRestartsCycle(t *testing.T) {
	e := NewEngine(nil)
	iron := oreDefinition(model.SpecificTrigger(3), model.SetDelay(10))
	gold := &model.Definition{
		ID:                "gold",
		Enabled:           true,
		BlockIDPattern:    "Ore_Gold",
		InteractedBlockID: "Empty_Gold_Vein",
		Gathering:         model.SpecificTrigger(5),
		Respawn:           model.SetDelay(10),
	}
	pos := model.NewPosition("world", 1, 1, 1)

	e.RecordSuccessfulGather(pos, "Ore_Iron_A", iron, 0)
	e.RecordSuccessfulGather(pos, "Ore_Iron_A", iron, 0)

	res := e.RecordSuccessfulGather(pos, "Ore_Gold", gold, 0)
	assert.Equal(t, ActionRestoreSource, res.Action)
	assert.Equal(t, 1, res.GatherCount)
	assert.Equal(t, 5, res.GatherThreshold)

	snap, ok := e.Inspect(pos)
	require.True(t, ok)
	assert.Equal(t, "gold", snap.DefinitionID)
	assert.Equal(t, "Empty_Gold_Vein", snap.InteractedBlockID)
}

func TestPollDueRespawnsForWorld_Scoped(t *testing.T) {
	e := NewEngine(nil)
	def := oreDefinition(model.SpecificTrigger(1), model.SetDelay(10))
	a := model.NewPosition("a", 0, 0, 0)
	b := model.NewPosition("b", 0, 0, 0)

	e.RecordSuccessfulGather(a, "Ore_Iron_A", def, 0)
	e.RecordSuccessfulGather(b, "Ore_Iron_A", def, 0)

	got := e.PollDueRespawnsForWorld("b", 100)
	require.Len(t, got, 1)
	assert.Equal(t, b, got[0].Position)

	assert.True(t, e.ShouldBlockInteractionWhileWaiting(a))
	assert.Len(t, e.PollDueRespawnsForWorld("a", 100), 1)
}

func TestInspect(t *testing.T) {
	e := NewEngine(nil)
	def := oreDefinition(model.SpecificTrigger(3), model.SetDelay(10))
	pos := model.NewPosition("world", 5, 6, 7)

	_, ok := e.Inspect(pos)
	assert.False(t, ok)

	e.RecordSuccessfulGather(pos, "Ore_Iron_C", def, 0)

	snap, ok := e.Inspect(pos)
	require.True(t, ok)
	assert.Equal(t, Snapshot{
		DefinitionID:      "iron",
		Phase:             PhaseActive,
		GatherCount:       1,
		GatherThreshold:   3,
		SourceBlockID:     "Ore_Iron_C",
		InteractedBlockID: "Empty_Ore_Vein",
	}, snap)
}

func TestClearAtAndClearAll(t *testing.T) {
	e := NewEngine(nil)
	def := oreDefinition(model.SpecificTrigger(1), model.SetDelay(10))
	p1 := model.NewPosition("world", 1, 0, 0)
	p2 := model.NewPosition("world", 2, 0, 0)
	p3 := model.NewPosition("world", 3, 0, 0)

	for _, p := range []model.Position{p1, p2, p3} {
		e.RecordSuccessfulGather(p, "Ore_Iron_A", def, 0)
	}
	require.Equal(t, int64(3), e.Metrics().ActiveStates)

	assert.True(t, e.ClearAt(p1))
	assert.False(t, e.ClearAt(p1))
	_, ok := e.Inspect(p2)
	assert.True(t, ok, "other positions are untouched")
	assert.Equal(t, int64(2), e.Metrics().ActiveStates)

	assert.Equal(t, 2, e.ClearAll())
	m := e.Metrics()
	assert.Zero(t, m.ActiveStates)
	assert.Equal(t, int64(3), m.Depletions, "cumulative counters survive ClearAll")
	assert.Empty(t, e.PollDueRespawns(1000))
}

func TestResetCounters(t *testing.T) {
	e := NewEngine(nil)
	def := oreDefinition(model.SpecificTrigger(1), model.SetDelay(10))
	e.RecordSuccessfulGather(model.NewPosition("w", 0, 0, 0), "Ore_Iron_A", def, 0)

	e.ResetCounters()

	m := e.Metrics()
	assert.Zero(t, m.MatchedInteractions)
	assert.Zero(t, m.Depletions)
	assert.Equal(t, int64(1), m.ActiveStates)
}

func TestConcurrentGatherAndPoll(t *testing.T) {
	e := NewEngine(NewLockedSource(3))
	def := oreDefinition(model.RandomTrigger(1, 3), model.SetDelay(1))

	const workers = 8
	const positions = 32
	const rounds = 50

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		depleted int64
	)

	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range rounds {
				pos := model.NewPosition("world", (w*rounds+r)%positions, 0, 0)
				res := e.RecordSuccessfulGather(pos, "Ore_Iron_A", def, int64(r))
				if res.Action == ActionDepletedToWaiting {
					mu.Lock()
					depleted++
					mu.Unlock()
				}
			}
		}()
	}

	var respawned int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 200 {
			n := len(e.PollDueRespawns(1 << 40))
			mu.Lock()
			respawned += int64(n)
			mu.Unlock()
		}
	}()

	wg.Wait()
	<-done
	respawned += int64(len(e.PollDueRespawns(1 << 40)))

	m := e.Metrics()
	assert.Equal(t, depleted, m.Depletions)
	assert.Equal(t, respawned, m.Respawns)
	assert.Equal(t, depleted, respawned, "every depletion respawns exactly once")
	assert.Zero(t, m.ActiveStates-int64(activeRecords(e)))
}

func activeRecords(e *Engine) int {
	n := 0
	e.states.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
