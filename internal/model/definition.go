package model

import "strings"

// TriggerType selects how the gather threshold of a cycle is chosen.
type TriggerType int

const (
	TriggerSpecific TriggerType = iota
	TriggerRandom
)

// String returns the canonical config spelling.
func (t TriggerType) String() string {
	if t == TriggerRandom {
		return "RANDOM"
	}
	return "SPECIFIC"
}

// ParseTriggerType parses a trigger type case-insensitively.
// Unknown values yield fallback.
func ParseTriggerType(raw string, fallback TriggerType) TriggerType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SPECIFIC":
		return TriggerSpecific
	case "RANDOM":
		return TriggerRandom
	default:
		return fallback
	}
}

// DelayType selects how the respawn delay of a depletion is chosen.
type DelayType int

const (
	DelaySet DelayType = iota
	DelayRandom
)

// String returns the canonical config spelling.
func (t DelayType) String() string {
	if t == DelayRandom {
		return "RANDOM"
	}
	return "SET"
}

// ParseDelayType parses a delay type case-insensitively.
// Unknown values yield fallback.
func ParseDelayType(raw string, fallback DelayType) DelayType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SET":
		return DelaySet
	case "RANDOM":
		return DelayRandom
	default:
		return fallback
	}
}

// GatheringTrigger describes how many successful gathers deplete a position.
// AmountMin/AmountMax may arrive in either order; samplers normalize them.
type GatheringTrigger struct {
	Type      TriggerType
	Amount    int
	AmountMin int
	AmountMax int
}

// SpecificTrigger returns a fixed-amount trigger.
func SpecificTrigger(amount int) GatheringTrigger {
	return GatheringTrigger{Type: TriggerSpecific, Amount: amount, AmountMin: amount, AmountMax: amount}
}

// RandomTrigger returns a trigger sampled uniformly over [min, max].
func RandomTrigger(min, max int) GatheringTrigger {
	return GatheringTrigger{Type: TriggerRandom, Amount: min, AmountMin: min, AmountMax: max}
}

// RespawnDelay describes how long a depleted position waits before respawn.
// MillisMin/MillisMax may arrive in either order; samplers normalize them.
type RespawnDelay struct {
	Type      DelayType
	Millis    int64
	MillisMin int64
	MillisMax int64
}

// SetDelay returns a fixed delay.
func SetDelay(millis int64) RespawnDelay {
	return RespawnDelay{Type: DelaySet, Millis: millis, MillisMin: millis, MillisMax: millis}
}

// RandomDelay returns a delay sampled uniformly over [min, max] millis.
func RandomDelay(min, max int64) RespawnDelay {
	return RespawnDelay{Type: DelayRandom, Millis: min, MillisMin: min, MillisMax: max}
}

// Definition binds a source block pattern to its depletion and respawn rules.
// Immutable once loaded; a reload replaces the whole set.
type Definition struct {
	ID                string
	Enabled           bool
	BlockIDPattern    string // exact id or glob with '*'
	InteractedBlockID string // placeholder placed while depleted
	Gathering         GatheringTrigger
	Respawn           RespawnDelay
}

// IsWildcard reports whether the block pattern contains a '*' glob.
func (d *Definition) IsWildcard() bool {
	return strings.Contains(d.BlockIDPattern, "*")
}
