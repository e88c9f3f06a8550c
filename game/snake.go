package game

import "github.com/4cecoder/snakearena/models"

// Snake is one player's body, head first. Once dead its cells never change.
type Snake struct {
	PlayerID   int
	Name       string
	Body       []models.Cell
	Direction  models.Direction
	Alive      bool
	Growth     int
	HasCharge  bool
	GhostUntil uint64
}

func (s *Snake) Head() models.Cell {
	return s.Body[0]
}

func (s *Snake) Len() int {
	return len(s.Body)
}

// Ghosted reports whether the ghost effect is active at tick.
func (s *Snake) Ghosted(tick uint64) bool {
	return s.GhostUntil > tick
}

// IndexOf returns the index of c in the body, or -1.
func (s *Snake) IndexOf(c models.Cell) int {
	for i, cell := range s.Body {
		if cell == c {
			return i
		}
	}
	return -1
}

func (s *Snake) kill() {
	s.Alive = false
	s.Growth = 0
	s.GhostUntil = 0
}

// cut removes up to n segments starting at idx toward the tail and returns
// how many were removed.
func (s *Snake) cut(idx, n int) int {
	if idx < 0 || idx >= len(s.Body) {
		return 0
	}
	end := min(idx+n, len(s.Body))
	removed := end - idx
	s.Body = append(s.Body[:idx], s.Body[end:]...)
	return removed
}

func (s *Snake) state(tick uint64) models.SnakeState {
	cells := make([]models.Cell, len(s.Body))
	copy(cells, s.Body)
	return models.SnakeState{
		PlayerID:  s.PlayerID,
		Name:      s.Name,
		Cells:     cells,
		Direction: s.Direction,
		Alive:     s.Alive,
		Ghost:     s.Alive && s.Ghosted(tick),
		HasCharge: s.HasCharge,
	}
}
