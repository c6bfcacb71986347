package regen

import (
	"math/rand/v2"
	"sync"

	"github.com/udisondev/blockregen/internal/model"
)

// Source is the randomness used for threshold and delay sampling.
// Implementations must be safe for concurrent use.
type Source interface {
	IntN(n int) int
	Float64() float64
}

type globalSource struct{}

func (globalSource) IntN(n int) int   { return rand.IntN(n) }
func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultSource returns a Source backed by the runtime's goroutine-safe
// generator.
func DefaultSource() Source {
	return globalSource{}
}

// LockedSource is a seeded Source serialized by a mutex.
// Used where sampling must be reproducible.
type LockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewLockedSource creates a deterministic Source from seed.
func NewLockedSource(seed uint64) *LockedSource {
	return &LockedSource{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntN returns a value in [0, n).
func (s *LockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}

// Float64 returns a value in [0.0, 1.0).
func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// SampleThreshold picks the gather count that depletes a position this cycle.
// Always >= 1.
func SampleThreshold(g model.GatheringTrigger, src Source) int {
	if g.Type == model.TriggerSpecific {
		return max(1, g.Amount)
	}

	lo := max(1, min(g.AmountMin, g.AmountMax))
	hi := max(lo, max(g.AmountMin, g.AmountMax))
	if lo == hi {
		return lo
	}

	return lo + src.IntN(hi-lo+1)
}

// SampleDelayMillis picks the respawn delay for a depletion.
// Always >= 1.
func SampleDelayMillis(d model.RespawnDelay, src Source) int64 {
	if d.Type == model.DelaySet {
		return max(1, d.Millis)
	}

	lo := max(1, min(d.MillisMin, d.MillisMax))
	hi := max(lo, max(d.MillisMin, d.MillisMax))
	if lo == hi {
		return lo
	}

	span := hi - lo + 1
	offset := int64(src.Float64() * float64(span))
	if offset >= span {
		offset = span - 1
	}

	return lo + offset
}
