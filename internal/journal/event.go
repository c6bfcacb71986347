// Package journal records regeneration events for auditing. The journal is
// write-mostly: runtime state is never rebuilt from it.
package journal

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/udisondev/blockregen/internal/model"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("journal closed")

// Kind classifies an event.
type Kind string

const (
	KindDepleted        Kind = "depleted"
	KindRespawned       Kind = "respawned"
	KindBlocked         Kind = "blocked"
	KindReloaded        Kind = "reloaded"
	KindPlacementFailed Kind = "placement_failed"
)

// Event is one journal row.
type Event struct {
	ID           string `json:"id"`
	Kind         Kind   `json:"kind"`
	World        string `json:"world"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	Z            int    `json:"z"`
	BlockID      string `json:"block_id,omitempty"`
	DefinitionID string `json:"definition_id,omitempty"`
	AtMillis     int64  `json:"at_millis"`
}

// NewEvent creates an event with a fresh id.
func NewEvent(kind Kind, pos model.Position, blockID, definitionID string, atMillis int64) Event {
	return Event{
		ID:           uuid.NewString(),
		Kind:         kind,
		World:        pos.World,
		X:            pos.X,
		Y:            pos.Y,
		Z:            pos.Z,
		BlockID:      blockID,
		DefinitionID: definitionID,
		AtMillis:     atMillis,
	}
}

// Position returns the event's position.
func (e Event) Position() model.Position {
	return model.NewPosition(e.World, e.X, e.Y, e.Z)
}

// Store persists events.
type Store interface {
	Append(ctx context.Context, events ...Event) error
	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]Event, error)
	// Each visits every event, oldest first.
	Each(ctx context.Context, fn func(Event) error) error
	Close() error
}

// Discard is a Store that keeps nothing.
type Discard struct{}

func (Discard) Append(context.Context, ...Event) error        { return nil }
func (Discard) Recent(context.Context, int) ([]Event, error)  { return nil, nil }
func (Discard) Each(context.Context, func(Event) error) error { return nil }
func (Discard) Close() error                                  { return nil }
