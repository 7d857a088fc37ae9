package entities

// Location is a point in a host world, with the player's look direction
type Location struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
}

// Add returns a copy of the location moved by the given offsets
func (l Location) Add(dx, dy, dz float64) Location {
	l.X += dx
	l.Y += dy
	l.Z += dz
	return l
}
