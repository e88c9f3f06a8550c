package game

import "github.com/4cecoder/snakearena/models"

// Board is the fixed grid of one match. Exactly one edge behaviour applies:
// walls when Walls is set, wraparound otherwise.
type Board struct {
	Width  int
	Height int
	Walls  bool
}

func (b Board) Contains(c models.Cell) bool {
	return c.X >= 0 && c.X < b.Width && c.Y >= 0 && c.Y < b.Height
}

// Step moves c one cell in dir. With walls, leaving the grid reports false;
// with wraparound the coordinate wraps and the step always succeeds.
func (b Board) Step(c models.Cell, dir models.Direction) (models.Cell, bool) {
	dx, dy := dir.Delta()
	next := models.Cell{X: c.X + dx, Y: c.Y + dy}
	if b.Contains(next) {
		return next, true
	}
	if b.Walls {
		return next, false
	}
	next.X = (next.X%b.Width + b.Width) % b.Width
	next.Y = (next.Y%b.Height + b.Height) % b.Height
	return next, true
}
