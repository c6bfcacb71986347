// Package admin implements the /blockregen operator command.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Root is the command name the host registers.
const Root = "blockregen"

const prefix = "[BlockRegen] "

// ErrUsage marks bad arguments; the handler answers with the command usage.
var ErrUsage = errors.New("usage")

// Caller identifies who issued a command and where they stand. Permission
// checks are the host's job.
type Caller struct {
	Player string
	World  string
}

// Command is one /blockregen subcommand.
type Command interface {
	// Handle executes the command. args includes the subcommand name at [0].
	Handle(ctx context.Context, caller Caller, args []string, out *Reply) error
	// Names returns all registered subcommand names.
	Names() []string
	// Usage returns the argument synopsis, e.g. "inspect <x> <y> <z>".
	Usage() string
}

// Reply collects the lines sent back to the caller.
type Reply struct {
	lines []string
}

// Printf appends one prefixed line.
func (r *Reply) Printf(format string, args ...any) {
	r.lines = append(r.lines, prefix+fmt.Sprintf(format, args...))
}

// Lines returns the collected lines.
func (r *Reply) Lines() []string {
	return r.lines
}

// Handler dispatches /blockregen subcommands.
// Commands are registered once at startup, then read-only.
type Handler struct {
	mu   sync.RWMutex
	cmds map[string]Command // name -> Command (lowercase)
}

// NewHandler creates an empty handler.
func NewHandler() *Handler {
	return &Handler{cmds: make(map[string]Command, 8)}
}

// Register registers a subcommand. Names are case-insensitive.
func (h *Handler) Register(cmd Command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, name := range cmd.Names() {
		h.cmds[strings.ToLower(name)] = cmd
	}
}

// CommandCount returns the number of registered names.
func (h *Handler) CommandCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.cmds)
}

// Usages returns the usage line of every registered command, sorted.
func (h *Handler) Usages() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[Command]bool, len(h.cmds))
	var out []string
	for _, cmd := range h.cmds {
		if seen[cmd] {
			continue
		}
		seen[cmd] = true
		out = append(out, cmd.Usage())
	}
	slices.Sort(out)
	return out
}

// Handle runs text as a /blockregen command and returns the reply lines.
// A leading "/" and the root name are optional. An empty or unknown
// subcommand prints help.
func (h *Handler) Handle(ctx context.Context, caller Caller, text string) []string {
	parts := strings.Fields(strings.TrimPrefix(strings.TrimSpace(text), "/"))
	if len(parts) > 0 && strings.EqualFold(parts[0], Root) {
		parts = parts[1:]
	}

	out := &Reply{}

	name := "help"
	if len(parts) > 0 {
		name = strings.ToLower(parts[0])
	}

	h.mu.RLock()
	cmd, ok := h.cmds[name]
	if !ok {
		cmd, ok = h.cmds["help"]
	}
	h.mu.RUnlock()

	if !ok {
		out.Printf("Unknown command: %s", name)
		return out.Lines()
	}

	if len(parts) == 0 {
		parts = []string{name}
	}

	slog.Info("admin command", "player", caller.Player, "command", text)

	if err := cmd.Handle(ctx, caller, parts, out); err != nil {
		if errors.Is(err, ErrUsage) {
			if err != ErrUsage {
				out.Printf("%s", strings.TrimPrefix(err.Error(), ErrUsage.Error()+": "))
			}
			out.Printf("Usage: /%s %s", Root, cmd.Usage())
			return out.Lines()
		}
		out.Printf("Command error: %s", err)
		slog.Error("admin command failed",
			"player", caller.Player,
			"command", text,
			"error", err)
	}

	return out.Lines()
}
