package regen

import "sync/atomic"

// Metrics holds engine counters.
// ActiveStates is a gauge; every other field only grows until ResetCounters.
type Metrics struct {
	matched  atomic.Int64
	blocked  atomic.Int64
	depleted atomic.Int64
	respawns atomic.Int64
	active   atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	MatchedInteractions int64
	BlockedInteractions int64
	Depletions          int64
	Respawns            int64
	ActiveStates        int64
}

// Snapshot returns the current values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		MatchedInteractions: m.matched.Load(),
		BlockedInteractions: m.blocked.Load(),
		Depletions:          m.depleted.Load(),
		Respawns:            m.respawns.Load(),
		ActiveStates:        m.active.Load(),
	}
}

// ResetCounters zeroes the cumulative counters. The active-state gauge
// keeps tracking live records.
func (m *Metrics) ResetCounters() {
	m.matched.Store(0)
	m.blocked.Store(0)
	m.depleted.Store(0)
	m.respawns.Store(0)
}
