package world

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/udisondev/blockregen/internal/model"
)

// Memory is an in-process world store. Unset positions read as "".
type Memory struct {
	worlds sync.Map // string -> *memWorld
}

type memWorld struct {
	mu     sync.RWMutex
	blocks map[model.Position]string
}

// NewMemory creates a store with the given worlds loaded.
func NewMemory(worlds ...string) *Memory {
	m := &Memory{}
	for _, w := range worlds {
		m.AddWorld(w)
	}
	return m
}

// AddWorld loads a world. Adding a loaded world is a no-op.
func (m *Memory) AddWorld(name string) {
	m.worlds.LoadOrStore(name, &memWorld{blocks: make(map[model.Position]string)})
}

// RemoveWorld unloads a world and its blocks.
func (m *Memory) RemoveWorld(name string) {
	m.worlds.Delete(name)
}

// Worlds returns loaded world names, sorted.
func (m *Memory) Worlds() []string {
	var names []string
	m.worlds.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	slices.Sort(names)
	return names
}

func (m *Memory) world(name string) (*memWorld, error) {
	v, ok := m.worlds.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorld, name)
	}
	return v.(*memWorld), nil
}

// SetBlock implements Mutator. Block ids compare case-insensitively.
func (m *Memory) SetBlock(_ context.Context, pos model.Position, expect, blockID string) error {
	w, err := m.world(pos.World)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if expect != "" {
		if current := w.blocks[pos]; !strings.EqualFold(current, expect) {
			return fmt.Errorf("%w at %s: have %q, want %q", ErrStaleBlock, pos, current, expect)
		}
	}

	if blockID == "" {
		delete(w.blocks, pos)
		return nil
	}
	w.blocks[pos] = blockID
	return nil
}

// ScheduleBlock implements Scheduler. Memory has no world executor, so the
// write is applied inline.
func (m *Memory) ScheduleBlock(ctx context.Context, pos model.Position, expect, blockID string) error {
	return m.SetBlock(ctx, pos, expect, blockID)
}

// BlockAt implements Reader.
func (m *Memory) BlockAt(_ context.Context, pos model.Position) (string, error) {
	w, err := m.world(pos.World)
	if err != nil {
		return "", err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.blocks[pos], nil
}
