// Package game holds the authoritative simulation. An Engine is owned by a
// single goroutine; nothing here is safe for concurrent use.
package game

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/4cecoder/snakearena/models"
)

var ErrNoSpawnRoom = errors.New("no free spawn area")

type Config struct {
	Width      int
	Height     int
	Mode       models.Mode
	Walls      bool
	TickPeriod time.Duration
	Seed       int64
	BombSpeed  int
}

type Projectile struct {
	OwnerID   int
	Cell      models.Cell
	Direction models.Direction
	Range     int
}

type Explosion struct {
	Cell    models.Cell
	Expires uint64
}

type Engine struct {
	cfg   Config
	board Board
	rng   *rand.Rand

	// tick numbers every snapshot; simTick only advances while running and
	// drives effect expiry.
	tick          uint64
	simTick       uint64
	phase         models.Phase
	countdownLeft int

	players  map[int]string
	departed map[int]bool
	snakes   map[int]*Snake
	scores   map[int]int

	food        *models.Cell
	weapons     []models.Cell
	nextWeapon  uint64
	projectiles []*Projectile
	explosions  []Explosion

	roundSize int
	winner    int
	draw      bool
}

func New(cfg Config) *Engine {
	if cfg.Mode == "" {
		cfg.Mode = models.ModeClassic
	}
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = 150 * time.Millisecond
	}
	if cfg.BombSpeed <= 0 {
		cfg.BombSpeed = 1
	}
	return &Engine{
		cfg:      cfg,
		board:    Board{Width: cfg.Width, Height: cfg.Height, Walls: cfg.Walls},
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		phase:    models.PhaseLobby,
		players:  make(map[int]string),
		departed: make(map[int]bool),
		snakes:   make(map[int]*Snake),
		scores:   make(map[int]int),
	}
}

func (e *Engine) Phase() models.Phase { return e.phase }

func (e *Engine) Tick() uint64 { return e.tick }

func (e *Engine) Board() Board { return e.board }

// Snake returns the live record for a player. Callers must not keep it
// across ticks.
func (e *Engine) Snake(playerID int) (*Snake, bool) {
	s, ok := e.snakes[playerID]
	return s, ok
}

// ticksFor converts a simulated duration into whole ticks, rounding up.
func (e *Engine) ticksFor(d time.Duration) uint64 {
	n := (d + e.cfg.TickPeriod - 1) / e.cfg.TickPeriod
	if n < 1 {
		n = 1
	}
	return uint64(n)
}

// Sync reconciles the engine with the current roster: newcomers get a snake,
// players missing from the roster are treated as departed.
func (e *Engine) Sync(players []models.PlayerView) error {
	present := make(map[int]bool, len(players))
	var errs []error
	for _, p := range players {
		present[p.ID] = true
		if _, known := e.players[p.ID]; known {
			continue
		}
		if err := e.AddPlayer(p.ID, p.Name); err != nil {
			errs = append(errs, err)
		}
	}
	for id := range e.players {
		if !present[id] {
			e.RemovePlayer(id)
		}
	}
	return errors.Join(errs...)
}

// AddPlayer registers a player and spawns their snake.
func (e *Engine) AddPlayer(id int, name string) error {
	e.players[id] = name
	if _, ok := e.snakes[id]; ok {
		return nil
	}
	s, err := e.spawnSnake(id, name)
	if err != nil {
		return err
	}
	e.snakes[id] = s
	if _, ok := e.scores[id]; !ok {
		e.scores[id] = 0
	}
	return nil
}

// RemovePlayer schedules the player's departure; the snake freezes at the
// start of the next tick.
func (e *Engine) RemovePlayer(id int) {
	delete(e.players, id)
	e.departed[id] = true
}

func (e *Engine) applyDepartures() {
	for id := range e.departed {
		s, ok := e.snakes[id]
		if !ok {
			continue
		}
		if e.phase == models.PhaseLobby {
			delete(e.snakes, id)
			delete(e.scores, id)
			continue
		}
		if s.Alive {
			s.kill()
		}
	}
	clear(e.departed)
}

// AdvanceTick runs one simulation step with the drained intents and returns
// the resulting snapshot.
func (e *Engine) AdvanceTick(intents map[int]models.Intent) models.Snapshot {
	e.tick++
	e.applyDepartures()

	switch e.phase {
	case models.PhaseLobby:
		if anyIntent(intents, func(i models.Intent) bool { return i.Start }) && len(e.snakes) > 0 {
			e.beginCountdown()
		}
	case models.PhaseCountdown:
		e.countdownLeft--
		if e.countdownLeft <= 0 {
			e.beginRound()
		}
	case models.PhaseRunning:
		if anyIntent(intents, func(i models.Intent) bool { return i.Pause }) {
			e.phase = models.PhasePaused
			break
		}
		e.step(intents)
	case models.PhasePaused:
		if anyIntent(intents, func(i models.Intent) bool { return i.Pause }) {
			e.phase = models.PhaseRunning
		}
	case models.PhaseFinished:
		if anyIntent(intents, func(i models.Intent) bool { return i.Restart }) {
			e.reset()
			e.beginCountdown()
		}
	}
	return e.Snapshot()
}

func (e *Engine) beginCountdown() {
	e.phase = models.PhaseCountdown
	e.countdownLeft = int(e.ticksFor(CountdownLength))
}

func (e *Engine) beginRound() {
	e.phase = models.PhaseRunning
	e.roundSize = 0
	for _, s := range e.snakes {
		if s.Alive {
			e.roundSize++
		}
	}
	if e.food == nil {
		e.spawnFood()
	}
	e.nextWeapon = e.simTick + e.weaponDelay()
}

// reset clears the board and respawns every present player.
func (e *Engine) reset() {
	e.food = nil
	e.weapons = nil
	e.projectiles = nil
	e.explosions = nil
	e.winner = 0
	e.draw = false
	e.snakes = make(map[int]*Snake)
	e.scores = make(map[int]int)
	ids := make([]int, 0, len(e.players))
	for id := range e.players {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		// A player without room stays snakeless until the next restart.
		_ = e.AddPlayer(id, e.players[id])
	}
}

func (e *Engine) step(intents map[int]models.Intent) {
	e.simTick++
	ids := e.sortedIDs()

	firing := make(map[int]bool)
	for _, id := range ids {
		s := e.snakes[id]
		in, ok := intents[id]
		if !ok || !s.Alive {
			continue
		}
		if in.Direction != nil {
			e.turn(s, *in.Direction)
		}
		if in.Ghost {
			s.GhostUntil = e.simTick + e.ticksFor(GhostDuration)
		}
		if in.Fire {
			firing[id] = true
		}
	}

	ate, dying := e.moveSnakes(ids)
	e.resolveCollisions(ids, dying)
	e.resolveFood(ids, ate)
	e.resolveWeapons(ids)

	for _, id := range ids {
		s := e.snakes[id]
		if firing[id] && s.Alive && s.HasCharge {
			s.HasCharge = false
			e.projectiles = append(e.projectiles, &Projectile{
				OwnerID:   id,
				Cell:      s.Head(),
				Direction: s.Direction,
				Range:     BombRange,
			})
		}
	}
	e.advanceProjectiles()

	e.expireEffects()
	e.enforceInvariants()
	e.checkRoundEnd()
}

// turn applies a direction change unless it would put the head straight
// back onto the neck.
func (e *Engine) turn(s *Snake, dir models.Direction) {
	if dir > models.Right || dir == s.Direction {
		return
	}
	if s.Len() > 1 {
		if next, ok := e.board.Step(s.Head(), dir); ok && next == s.Body[1] {
			return
		}
	}
	s.Direction = dir
}

func (e *Engine) moveSnakes(ids []int) (ate, dying map[int]bool) {
	ate = make(map[int]bool)
	dying = make(map[int]bool)
	for _, id := range ids {
		s := e.snakes[id]
		if !s.Alive {
			continue
		}
		next, ok := e.board.Step(s.Head(), s.Direction)
		if !ok {
			dying[id] = true
			continue
		}
		eats := e.food != nil && *e.food == next
		s.Body = append([]models.Cell{next}, s.Body...)
		if e.cfg.Mode != models.ModeKurve {
			if eats {
				s.Growth++
			}
			if s.Growth > 0 {
				s.Growth--
			} else {
				s.Body = s.Body[:len(s.Body)-1]
			}
		}
		ate[id] = eats
	}
	return ate, dying
}

// resolveCollisions kills every alive snake whose head shares a cell with
// any other segment on the board, its own included.
func (e *Engine) resolveCollisions(ids []int, dying map[int]bool) {
	counts := make(map[models.Cell]int)
	for _, s := range e.snakes {
		for _, c := range s.Body {
			counts[c]++
		}
	}
	for _, id := range ids {
		s := e.snakes[id]
		if s.Alive && !dying[id] && counts[s.Head()] > 1 {
			dying[id] = true
		}
	}
	for id := range dying {
		e.snakes[id].kill()
	}
}

func (e *Engine) resolveFood(ids []int, ate map[int]bool) {
	for _, id := range ids {
		s := e.snakes[id]
		if ate[id] && s.Alive {
			e.scores[id] += FoodScore
			e.food = nil
		}
	}
	if e.food == nil || e.occupiedBySnake(*e.food) {
		e.spawnFood()
	}
}

func (e *Engine) resolveWeapons(ids []int) {
	for _, id := range ids {
		s := e.snakes[id]
		if !s.Alive || s.HasCharge {
			continue
		}
		for i, w := range e.weapons {
			if w == s.Head() {
				s.HasCharge = true
				e.weapons = append(e.weapons[:i], e.weapons[i+1:]...)
				e.nextWeapon = e.simTick + e.weaponDelay()
				break
			}
		}
	}
	kept := e.weapons[:0]
	for _, w := range e.weapons {
		if !e.occupiedByDead(w) {
			kept = append(kept, w)
		}
	}
	e.weapons = kept
	if e.simTick >= e.nextWeapon {
		e.spawnWeapon()
		e.nextWeapon = e.simTick + e.weaponDelay()
	}
}

func (e *Engine) expireEffects() {
	for _, s := range e.snakes {
		if s.GhostUntil != 0 && s.GhostUntil <= e.simTick {
			s.GhostUntil = 0
		}
	}
	kept := e.explosions[:0]
	for _, x := range e.explosions {
		if x.Expires > e.simTick {
			kept = append(kept, x)
		}
	}
	e.explosions = kept
}

// enforceInvariants kills any alive snake that fell below the minimum length
// rather than letting it corrupt later ticks.
func (e *Engine) enforceInvariants() {
	for _, s := range e.snakes {
		if s.Alive && s.Len() < MinSnakeLength {
			s.kill()
		}
	}
}

func (e *Engine) checkRoundEnd() {
	if e.cfg.Mode != models.ModeKurve || e.roundSize < 2 {
		return
	}
	alive := 0
	survivor := 0
	for _, id := range e.sortedIDs() {
		if e.snakes[id].Alive {
			alive++
			survivor = id
		}
	}
	if alive > 1 {
		return
	}
	e.phase = models.PhaseFinished
	if alive == 1 {
		e.winner = survivor
	} else {
		e.draw = true
	}
}

func (e *Engine) sortedIDs() []int {
	ids := make([]int, 0, len(e.snakes))
	for id := range e.snakes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Snapshot returns the full, unfiltered state of the current tick.
func (e *Engine) Snapshot() models.Snapshot {
	snap := models.Snapshot{
		Tick:         e.tick,
		Phase:        e.phase,
		Mode:         e.cfg.Mode,
		Width:        e.board.Width,
		Height:       e.board.Height,
		WallsEnabled: e.board.Walls,
		Winner:       e.winner,
		Draw:         e.draw,
		Snakes:       make([]models.SnakeState, 0, len(e.snakes)),
		Weapons:      append([]models.Cell(nil), e.weapons...),
		Projectiles:  make([]models.ProjectileState, 0, len(e.projectiles)),
		Explosions:   make([]models.Cell, 0, len(e.explosions)),
		Scores:       make([]models.PlayerScore, 0, len(e.snakes)),
	}
	if e.phase == models.PhaseCountdown {
		remaining := time.Duration(e.countdownLeft) * e.cfg.TickPeriod
		snap.Countdown = int((remaining + time.Second - 1) / time.Second)
	}
	if e.food != nil {
		food := *e.food
		snap.Food = &food
	}
	for _, id := range e.sortedIDs() {
		snap.Snakes = append(snap.Snakes, e.snakes[id].state(e.simTick))
		snap.Scores = append(snap.Scores, models.PlayerScore{PlayerID: id, Score: e.scores[id]})
	}
	for _, p := range e.projectiles {
		snap.Projectiles = append(snap.Projectiles, models.ProjectileState{OwnerID: p.OwnerID, Cell: p.Cell, Direction: p.Direction})
	}
	for _, x := range e.explosions {
		snap.Explosions = append(snap.Explosions, x.Cell)
	}
	return snap
}

func anyIntent(intents map[int]models.Intent, pred func(models.Intent) bool) bool {
	for _, in := range intents {
		if pred(in) {
			return true
		}
	}
	return false
}
