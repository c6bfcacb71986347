package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/udisondev/blockregen/internal/coordinator"
	"github.com/udisondev/blockregen/internal/journal"
	"github.com/udisondev/blockregen/internal/model"
	"github.com/udisondev/blockregen/internal/world"
)

// Deps are the collaborators the built-in commands need. Reader, Throttle
// and Journal may be nil; without a Reader, inspect reports only runtime state.
type Deps struct {
	Coord    *coordinator.Coordinator
	Reader   world.Reader
	Throttle interface{ Clear() }
	Journal  interface{ Record(journal.Event) bool }
	Now      func() int64
}

// NewDefaultHandler registers every built-in command.
func NewDefaultHandler(d Deps) *Handler {
	h := NewHandler()
	h.Register(&Reload{deps: d})
	h.Register(&Stats{coord: d.Coord})
	h.Register(&Inspect{coord: d.Coord, reader: d.Reader})
	h.Register(&Clear{coord: d.Coord})
	h.Register(&Match{coord: d.Coord})
	h.Register(&Help{handler: h})
	return h
}

// Reload handles "reload": reloads the config and drops runtime state.
type Reload struct {
	deps Deps
}

func (c *Reload) Names() []string { return []string{"reload"} }
func (c *Reload) Usage() string   { return "reload" }

func (c *Reload) Handle(_ context.Context, caller Caller, _ []string, out *Reply) error {
	res := c.deps.Coord.Reload()
	if c.deps.Throttle != nil {
		c.deps.Throttle.Clear()
	}
	if c.deps.Journal != nil && c.deps.Now != nil {
		c.deps.Journal.Record(journal.NewEvent(journal.KindReloaded, model.Position{World: caller.World}, "", "", c.deps.Now()))
	}

	out.Printf("Reloaded. enabled=%t definitions=%d (runtime state cleared)", res.Enabled, res.DefinitionsLoaded)
	return nil
}

// Stats handles "stats" and "stats reset".
type Stats struct {
	coord *coordinator.Coordinator
}

func (c *Stats) Names() []string { return []string{"stats"} }
func (c *Stats) Usage() string   { return "stats [reset]" }

func (c *Stats) Handle(_ context.Context, _ Caller, args []string, out *Reply) error {
	if len(args) >= 2 {
		if !strings.EqualFold(args[1], "reset") {
			return fmt.Errorf("%w: unknown stats option %q", ErrUsage, args[1])
		}
		c.coord.ResetMetrics()
		out.Printf("Counters reset.")
	}

	m := c.coord.MetricsSnapshot()
	out.Printf("matched=%d blocked=%d depletions=%d respawns=%d active=%d",
		m.MatchedInteractions, m.BlockedInteractions, m.Depletions, m.Respawns, m.ActiveStates)
	return nil
}

// Inspect handles "inspect <x> <y> <z>" in the caller's world.
type Inspect struct {
	coord  *coordinator.Coordinator
	reader world.Reader
}

func (c *Inspect) Names() []string { return []string{"inspect"} }
func (c *Inspect) Usage() string   { return "inspect <x> <y> <z>" }

func (c *Inspect) Handle(ctx context.Context, caller Caller, args []string, out *Reply) error {
	pos, err := parsePosition(caller.World, args[1:])
	if err != nil {
		return err
	}

	out.Printf("Inspect at %d %d %d", pos.X, pos.Y, pos.Z)

	// Without a world reader the current block is unknown; skip the lines
	// rather than report a misleading "<none>" match.
	if c.reader != nil {
		blockID := "<unknown>"
		if b, err := c.reader.BlockAt(ctx, pos); err == nil && b != "" {
			blockID = b
		}
		out.Printf("currentBlock=%s", blockID)
		out.Printf("matchedDefinition=%s", definitionID(c.coord.FindDefinition(blockID)))
	}

	snap, ok := c.coord.InspectState(pos.World, pos.X, pos.Y, pos.Z)
	if !ok {
		out.Printf("state=<none>")
		return nil
	}

	out.Printf("definition=%s phase=%s gather=%d/%d respawnDue=%d",
		snap.DefinitionID, snap.Phase, snap.GatherCount, snap.GatherThreshold, snap.RespawnDueAtMillis)
	return nil
}

// Clear handles "clear <x> <y> <z>" and "clear all".
type Clear struct {
	coord *coordinator.Coordinator
}

func (c *Clear) Names() []string { return []string{"clear"} }
func (c *Clear) Usage() string   { return "clear <x> <y> <z> | clear all" }

func (c *Clear) Handle(_ context.Context, caller Caller, args []string, out *Reply) error {
	if len(args) == 2 && strings.EqualFold(args[1], "all") {
		n := c.coord.ClearRuntimeState()
		out.Printf("Cleared %d runtime states and all pending placements.", n)
		return nil
	}

	pos, err := parsePosition(caller.World, args[1:])
	if err != nil {
		return err
	}

	if c.coord.ClearRuntimeStateAt(pos.World, pos.X, pos.Y, pos.Z) {
		out.Printf("Cleared state at %d %d %d.", pos.X, pos.Y, pos.Z)
	} else {
		out.Printf("No state at %d %d %d.", pos.X, pos.Y, pos.Z)
	}
	return nil
}

// Match handles "match <blockId>": shows how a block id routes.
type Match struct {
	coord *coordinator.Coordinator
}

func (c *Match) Names() []string { return []string{"match"} }
func (c *Match) Usage() string   { return "match <blockId>" }

func (c *Match) Handle(_ context.Context, _ Caller, args []string, out *Reply) error {
	if len(args) != 2 {
		return ErrUsage
	}

	def := c.coord.FindDefinition(args[1])
	out.Printf("block=%s definition=%s", args[1], definitionID(def))
	if def != nil {
		out.Printf("pattern=%s interacted=%s enabled=%t gathering=%s respawn=%s",
			def.BlockIDPattern, def.InteractedBlockID, def.Enabled, def.Gathering.Type, def.Respawn.Type)
	}
	if placeholder := c.coord.FindInteractedDefinition(args[1]); placeholder != nil {
		out.Printf("placeholder of definition=%s", placeholder.ID)
	}
	return nil
}

// Help handles "help".
type Help struct {
	handler *Handler
}

func (c *Help) Names() []string { return []string{"help"} }
func (c *Help) Usage() string   { return "help" }

func (c *Help) Handle(_ context.Context, _ Caller, _ []string, out *Reply) error {
	out.Printf("Manages node regeneration runtime.")
	for _, u := range c.handler.Usages() {
		out.Printf("Usage: /%s %s", Root, u)
	}
	return nil
}

func parsePosition(worldName string, args []string) (model.Position, error) {
	if len(args) != 3 {
		return model.Position{}, ErrUsage
	}

	var coords [3]int
	for i, label := range []string{"x", "y", "z"} {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return model.Position{}, fmt.Errorf("%w: invalid %s coordinate: %s", ErrUsage, label, args[i])
		}
		coords[i] = n
	}
	return model.NewPosition(worldName, coords[0], coords[1], coords[2]), nil
}

func definitionID(def *model.Definition) string {
	if def == nil {
		return "<none>"
	}
	return def.ID
}
