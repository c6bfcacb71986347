// Package placement holds deferred block mutations keyed by position.
package placement

import (
	"sync"

	"github.com/udisondev/blockregen/internal/model"
)

// ApplyMode tells the caller how a placement should be applied.
type ApplyMode int

const (
	// ApplyImmediate sets the block from the polling goroutine.
	ApplyImmediate ApplyMode = iota
	// ApplyOnWorldThread hands the mutation to the world's own executor.
	ApplyOnWorldThread
)

func (m ApplyMode) String() string {
	if m == ApplyOnWorldThread {
		return "world_thread"
	}
	return "immediate"
}

// Placement is a pending block mutation.
type Placement struct {
	Position           model.Position
	ExpectedBlockID    string // skip when the current block differs; empty disables the guard
	ReplacementBlockID string
	Mode               ApplyMode
	ApplyAtMillis      int64
}

// Queue stores at most one pending placement per position.
// Safe for concurrent use.
type Queue struct {
	placements sync.Map // model.Position -> *Placement
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Queue inserts p, replacing any placement pending at the same position.
func (q *Queue) Queue(p Placement) {
	q.placements.Store(p.Position, &p)
}

// PollDueForWorld removes and returns every placement in world due at
// nowMillis. Each placement is returned by exactly one poll.
func (q *Queue) PollDueForWorld(world string, nowMillis int64) []Placement {
	var due []Placement

	q.placements.Range(func(key, value any) bool {
		pos := key.(model.Position)
		if pos.World != world {
			return true
		}

		p := value.(*Placement)
		if p.ApplyAtMillis > nowMillis {
			return true
		}

		// Lost races (re-queue or concurrent poll) leave the entry alone.
		if q.placements.CompareAndDelete(pos, p) {
			due = append(due, *p)
		}
		return true
	})

	return due
}

// Get returns the placement pending at pos.
func (q *Queue) Get(pos model.Position) (Placement, bool) {
	v, ok := q.placements.Load(pos)
	if !ok {
		return Placement{}, false
	}
	return *v.(*Placement), true
}

// ClearAt cancels the placement pending at pos.
func (q *Queue) ClearAt(pos model.Position) bool {
	_, ok := q.placements.LoadAndDelete(pos)
	return ok
}

// ClearAll cancels every pending placement.
func (q *Queue) ClearAll() {
	q.placements.Clear()
}

// Len returns the number of pending placements.
func (q *Queue) Len() int {
	n := 0
	q.placements.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
