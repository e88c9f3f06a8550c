package game

import "github.com/4cecoder/snakearena/models"

// advanceProjectiles moves every bomb BombSpeed cells, checking each cell.
// Bombs are processed in launch order, and launches happen in increasing
// player id order, so two bombs sharing a cell resolve deterministically.
func (e *Engine) advanceProjectiles() {
	kept := e.projectiles[:0]
	for _, p := range e.projectiles {
		if e.moveProjectile(p) {
			kept = append(kept, p)
		}
	}
	e.projectiles = kept
}

// moveProjectile reports whether the bomb is still in flight.
func (e *Engine) moveProjectile(p *Projectile) bool {
	for i := 0; i < e.cfg.BombSpeed; i++ {
		next, ok := e.board.Step(p.Cell, p.Direction)
		if !ok {
			return false
		}
		p.Cell = next
		p.Range--
		if e.strike(p.Cell) {
			return false
		}
		if p.Range <= 0 {
			return false
		}
	}
	return true
}

// strike detonates on the first snake occupying c. Alive snakes lose up to
// BombDamage segments from the struck one toward the tail; frozen snakes
// absorb the blast unchanged.
func (e *Engine) strike(c models.Cell) bool {
	for _, id := range e.sortedIDs() {
		s := e.snakes[id]
		idx := s.IndexOf(c)
		if idx < 0 {
			continue
		}
		e.explosions = append(e.explosions, Explosion{Cell: c, Expires: e.simTick + ExplosionTicks})
		if s.Alive {
			s.cut(idx, BombDamage)
			if s.Len() < MinSnakeLength {
				s.kill()
			}
		}
		return true
	}
	return false
}
