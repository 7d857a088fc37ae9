package entities

// Arena is an admin-defined pair of spawn points
type Arena struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	World   string    `json:"world"`
	Pos1    *Location `json:"pos1,omitempty"`
	Pos2    *Location `json:"pos2,omitempty"`
	Enabled bool      `json:"enabled"`
}

// IsComplete reports whether both corners are set
func (a *Arena) IsComplete() bool {
	return a.Pos1 != nil && a.Pos2 != nil
}

// IsUsable reports whether duels may be sent to this arena
func (a *Arena) IsUsable() bool {
	return a.Enabled && a.IsComplete()
}

// Clone returns a deep copy
func (a *Arena) Clone() *Arena {
	c := *a
	if a.Pos1 != nil {
		p := *a.Pos1
		c.Pos1 = &p
	}
	if a.Pos2 != nil {
		p := *a.Pos2
		c.Pos2 = &p
	}
	return &c
}
