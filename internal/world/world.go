// Package world describes the host world surface the regeneration tickers
// write to, plus an in-process implementation.
package world

import (
	"context"
	"errors"

	"github.com/udisondev/blockregen/internal/model"
)

var (
	// ErrUnknownWorld is returned for a world nobody owns.
	ErrUnknownWorld = errors.New("unknown world")
	// ErrStaleBlock is returned when the expected block guard does not hold.
	ErrStaleBlock = errors.New("block changed since placement was queued")
)

// Mutator sets blocks. A non-empty expect makes the write conditional on the
// current block id; a mismatch returns ErrStaleBlock.
type Mutator interface {
	SetBlock(ctx context.Context, pos model.Position, expect, blockID string) error
}

// Scheduler is implemented by mutators that can hand a write to the world's
// own executor instead of applying it from the caller's goroutine.
type Scheduler interface {
	ScheduleBlock(ctx context.Context, pos model.Position, expect, blockID string) error
}

// Registry lists the worlds currently loaded.
type Registry interface {
	Worlds() []string
}

// Reader reads blocks.
type Reader interface {
	BlockAt(ctx context.Context, pos model.Position) (string, error)
}
