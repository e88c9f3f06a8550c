package game

import (
	"fmt"
	"time"

	"github.com/4cecoder/snakearena/models"
)

func (e *Engine) occupiedBySnake(c models.Cell) bool {
	for _, s := range e.snakes {
		if s.IndexOf(c) >= 0 {
			return true
		}
	}
	return false
}

func (e *Engine) occupiedByDead(c models.Cell) bool {
	for _, s := range e.snakes {
		if !s.Alive && s.IndexOf(c) >= 0 {
			return true
		}
	}
	return false
}

// blocked returns every cell that a new spawn must avoid.
func (e *Engine) blocked() map[models.Cell]bool {
	out := make(map[models.Cell]bool)
	for _, s := range e.snakes {
		for _, c := range s.Body {
			out[c] = true
		}
	}
	if e.food != nil {
		out[*e.food] = true
	}
	for _, w := range e.weapons {
		out[w] = true
	}
	return out
}

// randomFreeCell picks uniformly among all unblocked cells. Cells are listed
// row by row so the choice only depends on the seed.
func (e *Engine) randomFreeCell() (models.Cell, bool) {
	blocked := e.blocked()
	free := make([]models.Cell, 0, e.board.Width*e.board.Height-len(blocked))
	for y := 0; y < e.board.Height; y++ {
		for x := 0; x < e.board.Width; x++ {
			c := models.Cell{X: x, Y: y}
			if !blocked[c] {
				free = append(free, c)
			}
		}
	}
	if len(free) == 0 {
		return models.Cell{}, false
	}
	return free[e.rng.Intn(len(free))], true
}

func (e *Engine) spawnFood() {
	e.food = nil
	if c, ok := e.randomFreeCell(); ok {
		e.food = &c
	}
}

func (e *Engine) spawnWeapon() {
	if c, ok := e.randomFreeCell(); ok {
		e.weapons = append(e.weapons, c)
	}
}

// weaponDelay draws the next pickup delay, in ticks, from the spawn window.
func (e *Engine) weaponDelay() uint64 {
	span := int64(WeaponSpawnMax - WeaponSpawnMin)
	d := WeaponSpawnMin + time.Duration(e.rng.Int63n(span+1))
	return e.ticksFor(d)
}

// spawnSnake places a fresh snake away from the edges with its body and the
// cells ahead of it clear.
func (e *Engine) spawnSnake(id int, name string) (*Snake, error) {
	blocked := e.blocked()
	marginX := min(SpawnMargin, e.board.Width/4)
	marginY := min(SpawnMargin, e.board.Height/4)
	first := models.Direction(e.rng.Intn(4))

	for turn := 0; turn < 4; turn++ {
		dir := models.Direction((int(first) + turn) % 4)
		var candidates [][]models.Cell
		for y := marginY; y < e.board.Height-marginY; y++ {
			for x := marginX; x < e.board.Width-marginX; x++ {
				if body, ok := e.spawnBody(models.Cell{X: x, Y: y}, dir, blocked); ok {
					candidates = append(candidates, body)
				}
			}
		}
		if len(candidates) == 0 {
			continue
		}
		body := candidates[e.rng.Intn(len(candidates))]
		return &Snake{
			PlayerID:  id,
			Name:      name,
			Body:      body,
			Direction: dir,
			Alive:     true,
		}, nil
	}
	return nil, fmt.Errorf("player %d: %w", id, ErrNoSpawnRoom)
}

func (e *Engine) spawnBody(head models.Cell, dir models.Direction, blocked map[models.Cell]bool) ([]models.Cell, bool) {
	body := []models.Cell{head}
	if blocked[head] {
		return nil, false
	}
	cur := head
	for i := 1; i < InitialSnakeLength; i++ {
		next, ok := e.board.Step(cur, dir.Opposite())
		if !ok || !e.board.Contains(next) || blocked[next] {
			return nil, false
		}
		body = append(body, next)
		cur = next
	}
	cur = head
	for i := 0; i < SpawnLookahead; i++ {
		next, ok := e.board.Step(cur, dir)
		if !ok || blocked[next] {
			return nil, false
		}
		cur = next
	}
	return body, true
}
