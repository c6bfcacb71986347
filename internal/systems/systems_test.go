package systems

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/blockregen/internal/coordinator"
	"github.com/udisondev/blockregen/internal/journal"
	"github.com/udisondev/blockregen/internal/model"
	"github.com/udisondev/blockregen/internal/placement"
	"github.com/udisondev/blockregen/internal/regen"
	"github.com/udisondev/blockregen/internal/testutil"
	"github.com/udisondev/blockregen/internal/world"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(ms int64) {
	c.mu.Lock()
	c.t = time.UnixMilli(ms)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []journal.Event
}

func (r *recorder) Record(e journal.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return true
}

func (r *recorder) Kinds() []journal.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []journal.Kind
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type notifier struct {
	mu      sync.Mutex
	players []string
}

func (n *notifier) SendDepletedNotice(_ context.Context, player string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.players = append(n.players, player)
	return true
}

type failingMutator struct{}

func (failingMutator) SetBlock(context.Context, model.Position, string, string) error {
	return errors.New("chunk not loaded")
}

type fixture struct {
	coord     *coordinator.Coordinator
	world     *world.Memory
	clock     *testClock
	journal   *recorder
	notifier  *notifier
	breaks    *BreakSystem
	damage    *DamageGate
	respawns  *RespawnTicker
	placement *PlacementTicker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := model.DefaultConfig()
	cfg.Definitions = []*model.Definition{{
		ID:                "iron",
		Enabled:           true,
		BlockIDPattern:    "Ore_Iron_*",
		InteractedBlockID: "Empty_Vein",
		Gathering:         model.SpecificTrigger(2),
		Respawn:           model.SetDelay(1000),
	}}

	coord := coordinator.New(coordinator.LoaderFunc(func() model.Config { return cfg }), regen.NewEngine(regen.NewLockedSource(1)), placement.NewQueue())
	coord.Initialize()

	f := &fixture{
		coord:    coord,
		world:    world.NewMemory("overworld"),
		clock:    &testClock{},
		journal:  &recorder{},
		notifier: &notifier{},
	}
	f.clock.Set(10_000)

	f.breaks = NewBreakSystem(coord, f.notifier, f.journal)
	f.breaks.now = f.clock.Now
	f.damage = NewDamageGate(coord, f.notifier)
	f.respawns = NewRespawnTicker(coord, f.world, f.world, f.journal, time.Millisecond)
	f.respawns.now = f.clock.Now
	f.placement = NewPlacementTicker(coord, f.world, f.world, f.journal, time.Millisecond)
	f.placement.now = f.clock.Now
	return f
}

func (f *fixture) blockAt(t *testing.T, pos model.Position) string {
	t.Helper()
	b, err := f.world.BlockAt(context.Background(), pos)
	require.NoError(t, err)
	return b
}

func TestBreakSystem_FullCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pos := model.NewPosition("overworld", 5, 40, 5)
	ev := BreakEvent{Player: "alice", World: "overworld", X: 5, Y: 40, Z: 5, BlockID: "Ore_Iron_A"}

	v := f.breaks.Handle(ctx, ev)
	assert.Equal(t, Verdict{Matched: true, Action: regen.ActionRestoreSource}, v)

	assert.Zero(t, f.placement.Tick(ctx), "restore lands on the next tick")
	f.clock.Set(10_001)
	assert.Equal(t, 1, f.placement.Tick(ctx))
	assert.Equal(t, "Ore_Iron_A", f.blockAt(t, pos))

	v = f.breaks.Handle(ctx, ev)
	assert.Equal(t, Verdict{Matched: true, Action: regen.ActionDepletedToWaiting}, v)
	f.clock.Set(10_002)
	assert.Equal(t, 1, f.placement.Tick(ctx))
	assert.Equal(t, "Empty_Vein", f.blockAt(t, pos))

	v = f.breaks.Handle(ctx, BreakEvent{Player: "bob", World: "overworld", X: 5, Y: 40, Z: 5, BlockID: "Empty_Vein"})
	assert.False(t, v.Matched, "placeholder does not route to a definition")

	v = f.breaks.Handle(ctx, ev)
	assert.True(t, v.Cancel)
	assert.Equal(t, regen.ActionBlockedWaiting, v.Action)
	assert.Equal(t, []string{"alice"}, f.notifier.players)

	f.clock.Set(11_000)
	assert.Zero(t, f.respawns.Tick(ctx), "respawn is due at 11001")
	f.clock.Set(11_001)
	assert.Zero(t, f.respawns.Tick(ctx), "gated by respawn tick millis")
	f.clock.Set(11_500)
	assert.Equal(t, 1, f.respawns.Tick(ctx))
	assert.Equal(t, "Ore_Iron_A", f.blockAt(t, pos))

	assert.Equal(t, []journal.Kind{journal.KindDepleted, journal.KindBlocked, journal.KindRespawned}, f.journal.Kinds())

	_, ok := f.coord.InspectState("overworld", 5, 40, 5)
	assert.False(t, ok)
}

func TestBreakSystem_UnmatchedAndDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v := f.breaks.Handle(ctx, BreakEvent{World: "overworld", BlockID: "Dirt"})
	assert.Equal(t, Verdict{}, v)

	disabled := coordinator.New(coordinator.LoaderFunc(func() model.Config {
		cfg := model.DefaultConfig()
		cfg.Enabled = false
		return cfg
	}), nil, nil)
	disabled.Initialize()

	v = NewBreakSystem(disabled, nil, nil).Handle(ctx, BreakEvent{World: "overworld", BlockID: "Ore_Iron_A"})
	assert.Equal(t, Verdict{}, v)
}

func TestDamageGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.damage.Handle(ctx, DamageEvent{Player: "alice", World: "overworld", X: 1, BlockID: "Ore_Iron_A"}))
	assert.True(t, f.damage.Handle(ctx, DamageEvent{Player: "alice", World: "overworld", X: 1, BlockID: "Empty_Vein"}))

	ev := BreakEvent{World: "overworld", X: 2, BlockID: "Ore_Iron_B"}
	f.breaks.Handle(ctx, ev)
	f.breaks.Handle(ctx, ev)

	assert.True(t, f.damage.Handle(ctx, DamageEvent{Player: "bob", World: "overworld", X: 2, BlockID: "Stone"}))
	assert.Equal(t, []string{"alice", "bob"}, f.notifier.players)
}

func TestRespawnTicker_FailureIsLoggedAndBatchContinues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for x := range 2 {
		ev := BreakEvent{World: "overworld", X: x, BlockID: "Ore_Iron_A"}
		f.breaks.Handle(ctx, ev)
		f.breaks.Handle(ctx, ev)
	}

	ticker := NewRespawnTicker(f.coord, f.world, failingMutator{}, f.journal, time.Millisecond)
	ticker.now = f.clock.Now
	f.clock.Set(20_000)

	assert.Zero(t, ticker.Tick(ctx))
	assert.Equal(t, []journal.Kind{
		journal.KindDepleted, journal.KindDepleted,
		journal.KindPlacementFailed, journal.KindPlacementFailed,
	}, f.journal.Kinds())
	assert.Equal(t, int64(2), f.coord.MetricsSnapshot().Respawns)
}

func TestPlacementTicker_ExpectedBlockGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pos := model.NewPosition("overworld", 0, 0, 0)
	require.NoError(t, f.world.SetBlock(ctx, pos, "", "Stone"))

	f.coord.QueuePlacement(placement.Placement{
		Position:           pos,
		ExpectedBlockID:    "Ore_Iron_A",
		ReplacementBlockID: "Empty_Vein",
		Mode:               placement.ApplyImmediate,
		ApplyAtMillis:      10_000,
	})
	f.coord.QueuePlacement(placement.Placement{
		Position:           model.NewPosition("nether", 0, 0, 0),
		ReplacementBlockID: "Empty_Vein",
		ApplyAtMillis:      10_000,
	})

	assert.Zero(t, f.placement.Tick(ctx))
	assert.Equal(t, "Stone", f.blockAt(t, pos))
	assert.Equal(t, []journal.Kind{journal.KindPlacementFailed}, f.journal.Kinds())

	f.world.AddWorld("nether")
	assert.Equal(t, 1, f.placement.Tick(ctx), "placements wait for their world to load")
}

func TestTickers_RunUntilCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := testutil.ContextWithCancel(t)

	done := make(chan error, 2)
	go func() { done <- f.respawns.Run(ctx) }()
	go func() { done <- f.placement.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	require.NoError(t, <-done)
}

func TestRespawnBeforePendingPlacement_KeepsSource(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Definitions = []*model.Definition{{
		ID:                "iron",
		Enabled:           true,
		BlockIDPattern:    "Ore_Iron_*",
		InteractedBlockID: "Empty_Vein",
		Gathering:         model.SpecificTrigger(1),
		Respawn:           model.SetDelay(1),
	}}
	coord := coordinator.New(coordinator.LoaderFunc(func() model.Config { return cfg }), nil, nil)
	coord.Initialize()

	ctx := context.Background()
	mem := world.NewMemory("overworld")
	clock := &testClock{}
	clock.Set(10_000)

	breaks := NewBreakSystem(coord, nil, nil)
	breaks.now = clock.Now
	respawns := NewRespawnTicker(coord, mem, mem, nil, time.Millisecond)
	respawns.now = clock.Now
	placements := NewPlacementTicker(coord, mem, mem, nil, time.Millisecond)
	placements.now = clock.Now

	pos := model.NewPosition("overworld", 3, 12, 3)
	require.NoError(t, mem.SetBlock(ctx, pos, "", "Ore_Iron_A"))

	v := breaks.Handle(ctx, BreakEvent{World: "overworld", X: 3, Y: 12, Z: 3, BlockID: "Ore_Iron_A"})
	require.Equal(t, regen.ActionDepletedToWaiting, v.Action)

	// The respawn comes due before the placeholder write is drained.
	clock.Set(10_001)
	assert.Equal(t, 1, respawns.Tick(ctx))
	assert.Zero(t, placements.Tick(ctx), "placeholder write is dropped with the respawn")

	b, err := mem.BlockAt(ctx, pos)
	require.NoError(t, err)
	assert.Equal(t, "Ore_Iron_A", b)

	_, ok := coord.InspectState("overworld", 3, 12, 3)
	assert.False(t, ok)
	assert.False(t, NewDamageGate(coord, nil).Handle(ctx, DamageEvent{World: "overworld", X: 3, Y: 12, Z: 3, BlockID: b}))
}
