package model

import "fmt"

// Position identifies a monitored block in a named world.
// Value type, compared by value and used directly as a map key.
type Position struct {
	World string
	X     int
	Y     int
	Z     int
}

// NewPosition creates a Position for the given world and coordinates.
func NewPosition(world string, x, y, z int) Position {
	return Position{World: world, X: x, Y: y, Z: z}
}

// WithCoordinates returns a copy moved to other coordinates in the same world.
func (p Position) WithCoordinates(x, y, z int) Position {
	p.X = x
	p.Y = y
	p.Z = z
	return p
}

// String formats the position as "world@x,y,z".
func (p Position) String() string {
	return fmt.Sprintf("%s@%d,%d,%d", p.World, p.X, p.Y, p.Z)
}
