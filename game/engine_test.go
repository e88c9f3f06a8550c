package game

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/4cecoder/snakearena/models"
)

func dir(d models.Direction) *models.Direction { return &d }

// runningEngine returns an engine already in the running phase with the
// weapon timer pushed out of reach.
func runningEngine(cfg Config) *Engine {
	e := New(cfg)
	e.phase = models.PhaseRunning
	e.nextWeapon = 1 << 40
	return e
}

func place(e *Engine, id int, d models.Direction, cells ...models.Cell) *Snake {
	s := &Snake{
		PlayerID:  id,
		Name:      "p",
		Body:      append([]models.Cell(nil), cells...),
		Direction: d,
		Alive:     true,
	}
	e.players[id] = "p"
	e.snakes[id] = s
	e.scores[id] = 0
	return s
}

func c(x, y int) models.Cell { return models.Cell{X: x, Y: y} }

func TestGrowthOnFood(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: true, Seed: 1})
	s := place(e, 1, models.Right, c(5, 5), c(4, 5), c(3, 5))
	food := c(6, 5)
	e.food = &food

	snap := e.AdvanceTick(nil)

	if s.Len() != 4 {
		t.Fatalf("got length %d, want 4", s.Len())
	}
	if s.Growth != 0 {
		t.Fatalf("got pending growth %d, want 0", s.Growth)
	}
	if s.Head() != food {
		t.Fatalf("got head %v, want %v", s.Head(), food)
	}
	if snap.Food == nil || *snap.Food == food {
		t.Fatalf("expected food to respawn elsewhere, got %v", snap.Food)
	}
	if s.IndexOf(*snap.Food) >= 0 {
		t.Fatalf("food respawned on the snake at %v", *snap.Food)
	}
	if got := snap.Scores[0].Score; got != FoodScore {
		t.Fatalf("got score %d, want %d", got, FoodScore)
	}
}

func TestClassicLengthConstantWithoutFood(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: false, Seed: 2})
	s := place(e, 1, models.Right, c(5, 5), c(4, 5), c(3, 5))
	food := c(0, 19)
	e.food = &food

	e.AdvanceTick(nil)

	if s.Len() != 3 {
		t.Fatalf("got length %d, want 3", s.Len())
	}
	want := []models.Cell{c(6, 5), c(5, 5), c(4, 5)}
	if !reflect.DeepEqual(s.Body, want) {
		t.Fatalf("got body %v, want %v", s.Body, want)
	}
}

func TestKurveGrowsEveryTick(t *testing.T) {
	e := runningEngine(Config{Width: 30, Height: 30, Mode: models.ModeKurve, Walls: false, Seed: 3})
	a := place(e, 1, models.Right, c(5, 5), c(4, 5))
	b := place(e, 2, models.Down, c(20, 5), c(20, 4))

	for i := 1; i <= 5; i++ {
		e.AdvanceTick(nil)
		if a.Len() != 2+i || b.Len() != 2+i {
			t.Fatalf("tick %d: got lengths %d and %d, want %d", i, a.Len(), b.Len(), 2+i)
		}
	}
	if !a.Alive || !b.Alive {
		t.Fatalf("expected both snakes alive")
	}
}

func TestWraparoundAndWalls(t *testing.T) {
	tests := []struct {
		name      string
		walls     bool
		wantAlive bool
		wantHead  models.Cell
	}{
		{name: "wraparound", walls: false, wantAlive: true, wantHead: c(0, 5)},
		{name: "walls", walls: true, wantAlive: false, wantHead: c(19, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := runningEngine(Config{Width: 20, Height: 20, Walls: tt.walls, Seed: 4})
			s := place(e, 1, models.Right, c(19, 5), c(18, 5), c(17, 5))
			food := c(10, 15)
			e.food = &food

			e.AdvanceTick(nil)

			if s.Alive != tt.wantAlive {
				t.Fatalf("got alive=%v, want %v", s.Alive, tt.wantAlive)
			}
			if s.Head() != tt.wantHead {
				t.Fatalf("got head %v, want %v", s.Head(), tt.wantHead)
			}
			if s.Direction != models.Right {
				t.Fatalf("direction changed to %v", s.Direction)
			}
		})
	}
}

func TestHeadOnCollisionKillsBoth(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: true, Seed: 5})
	a := place(e, 1, models.Right, c(5, 5), c(4, 5), c(3, 5))
	b := place(e, 2, models.Left, c(7, 5), c(8, 5), c(9, 5))
	food := c(15, 15)
	e.food = &food

	e.AdvanceTick(nil)

	if a.Alive || b.Alive {
		t.Fatalf("expected both snakes dead, got alive=%v/%v", a.Alive, b.Alive)
	}
	frozenA := append([]models.Cell(nil), a.Body...)
	frozenB := append([]models.Cell(nil), b.Body...)

	for i := 0; i < 3; i++ {
		e.AdvanceTick(map[int]models.Intent{1: {Direction: dir(models.Up)}, 2: {Direction: dir(models.Down)}})
	}
	if !reflect.DeepEqual(a.Body, frozenA) || !reflect.DeepEqual(b.Body, frozenB) {
		t.Fatalf("dead snakes moved: %v %v, want %v %v", a.Body, b.Body, frozenA, frozenB)
	}
}

func TestDeadCellsAreObstacles(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: true, Seed: 6})
	dead := place(e, 1, models.Up, c(8, 4), c(8, 5), c(8, 6))
	dead.kill()
	s := place(e, 2, models.Right, c(7, 5), c(6, 5), c(5, 5))
	food := c(15, 15)
	e.food = &food

	e.AdvanceTick(nil)

	if s.Alive {
		t.Fatalf("expected snake to die on the frozen body")
	}
	if want := []models.Cell{c(8, 4), c(8, 5), c(8, 6)}; !reflect.DeepEqual(dead.Body, want) {
		t.Fatalf("frozen body changed to %v", dead.Body)
	}
}

func TestReversalIgnored(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: true, Seed: 7})
	s := place(e, 1, models.Right, c(5, 5), c(4, 5), c(3, 5))
	food := c(15, 15)
	e.food = &food

	e.AdvanceTick(map[int]models.Intent{1: {Direction: dir(models.Left)}})

	if !s.Alive {
		t.Fatalf("snake died on a reversal")
	}
	if s.Direction != models.Right || s.Head() != c(6, 5) {
		t.Fatalf("got direction %v head %v, want right (6,5)", s.Direction, s.Head())
	}

	e.AdvanceTick(map[int]models.Intent{1: {Direction: dir(models.Down)}})
	if s.Head() != c(6, 6) {
		t.Fatalf("got head %v after turning down, want (6,6)", s.Head())
	}
}

func TestBombRemovesFourSegments(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: true, Seed: 8, BombSpeed: 3})
	shooter := place(e, 1, models.Right, c(3, 10), c(2, 10), c(1, 10))
	shooter.HasCharge = true
	target := place(e, 2, models.Up, c(6, 9), c(6, 10), c(6, 11), c(6, 12), c(6, 13), c(6, 14), c(6, 15))
	food := c(15, 2)
	e.food = &food

	snap := e.AdvanceTick(map[int]models.Intent{1: {Fire: true}})

	if shooter.HasCharge {
		t.Fatalf("charge not consumed")
	}
	if target.Len() != 3 {
		t.Fatalf("got target length %d, want 3", target.Len())
	}
	if !target.Alive {
		t.Fatalf("target died with 3 segments left")
	}
	if len(snap.Explosions) != 1 || snap.Explosions[0] != c(6, 10) {
		t.Fatalf("got explosions %v, want [(6,10)]", snap.Explosions)
	}
	if len(snap.Projectiles) != 0 {
		t.Fatalf("projectile survived impact: %v", snap.Projectiles)
	}
}

func TestProjectileFlight(t *testing.T) {
	tests := []struct {
		name        string
		walls       bool
		bomb        Projectile
		frozen      []models.Cell
		wantCell    *models.Cell
		wantRange   int
		wantExplode []models.Cell
	}{
		{
			name:  "leaves board under walls",
			walls: true,
			bomb:  Projectile{OwnerID: 1, Cell: c(18, 5), Direction: models.Right, Range: BombRange},
		},
		{
			name:      "wraps without walls",
			bomb:      Projectile{OwnerID: 1, Cell: c(18, 5), Direction: models.Right, Range: BombRange},
			wantCell:  &models.Cell{X: 1, Y: 5},
			wantRange: BombRange - 3,
		},
		{
			name:  "range exhausted",
			walls: true,
			bomb:  Projectile{OwnerID: 1, Cell: c(2, 5), Direction: models.Right, Range: 2},
		},
		{
			name:        "frozen snake absorbs hit",
			walls:       true,
			bomb:        Projectile{OwnerID: 1, Cell: c(3, 10), Direction: models.Right, Range: BombRange},
			frozen:      []models.Cell{c(6, 10), c(6, 11), c(6, 12)},
			wantExplode: []models.Cell{c(6, 10)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := runningEngine(Config{Width: 20, Height: 20, Walls: tt.walls, Seed: 1, BombSpeed: 3})
			var dead *Snake
			if tt.frozen != nil {
				dead = place(e, 2, models.Up, tt.frozen...)
				dead.Alive = false
			}
			bomb := tt.bomb
			e.projectiles = []*Projectile{&bomb}

			e.advanceProjectiles()

			if tt.wantCell == nil {
				if len(e.projectiles) != 0 {
					t.Fatalf("bomb still in flight at %v", e.projectiles[0].Cell)
				}
			} else {
				if len(e.projectiles) != 1 {
					t.Fatalf("got %d projectiles, want 1", len(e.projectiles))
				}
				if p := e.projectiles[0]; p.Cell != *tt.wantCell || p.Range != tt.wantRange {
					t.Fatalf("got bomb at %v range %d, want %v range %d", p.Cell, p.Range, *tt.wantCell, tt.wantRange)
				}
			}

			if len(e.explosions) != len(tt.wantExplode) {
				t.Fatalf("got explosions %v, want %v", e.explosions, tt.wantExplode)
			}
			for i, x := range e.explosions {
				if x.Cell != tt.wantExplode[i] {
					t.Fatalf("got explosion at %v, want %v", x.Cell, tt.wantExplode[i])
				}
			}
			if dead != nil && !reflect.DeepEqual(dead.Body, tt.frozen) {
				t.Fatalf("frozen body changed: %v -> %v", tt.frozen, dead.Body)
			}
		})
	}
}

func TestBombKillsShortSnake(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: true, Seed: 9, BombSpeed: 3})
	shooter := place(e, 1, models.Right, c(3, 10), c(2, 10), c(1, 10))
	shooter.HasCharge = true
	target := place(e, 2, models.Up, c(6, 10), c(6, 11), c(6, 12))
	food := c(15, 2)
	e.food = &food

	e.AdvanceTick(map[int]models.Intent{1: {Fire: true}})

	if target.Alive {
		t.Fatalf("expected target to die below the minimum length")
	}
	if target.Len() != 1 {
		t.Fatalf("got target length %d, want 1", target.Len())
	}
}

func TestFireWithoutChargeDoesNothing(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: true, Seed: 10})
	place(e, 1, models.Right, c(3, 10), c(2, 10), c(1, 10))
	food := c(15, 2)
	e.food = &food

	snap := e.AdvanceTick(map[int]models.Intent{1: {Fire: true}})
	if len(snap.Projectiles) != 0 {
		t.Fatalf("got projectiles %v without a charge", snap.Projectiles)
	}
}

func TestGhostHiddenFromOthersAndExpires(t *testing.T) {
	cfg := Config{Width: 20, Height: 20, Walls: false, Seed: 11, TickPeriod: 100 * time.Millisecond}
	e := runningEngine(cfg)
	place(e, 1, models.Right, c(5, 5), c(4, 5), c(3, 5))
	place(e, 2, models.Right, c(5, 12), c(4, 12), c(3, 12))

	snap := e.AdvanceTick(map[int]models.Intent{1: {Ghost: true}})

	own, _ := snap.ViewFor(1).Snake(1)
	if !own.VisibleToRecipient || len(own.Cells) == 0 {
		t.Fatalf("owner lost sight of its ghosted snake")
	}
	other, _ := snap.ViewFor(2).Snake(1)
	if other.VisibleToRecipient || len(other.Cells) != 0 {
		t.Fatalf("ghosted cells leaked to another player: %+v", other)
	}
	full, _ := snap.Snake(1)
	if !full.Ghost {
		t.Fatalf("expected ghost flag in the full snapshot")
	}

	duration := int(e.ticksFor(GhostDuration))
	for i := 1; i < duration-1; i++ {
		snap = e.AdvanceTick(nil)
	}
	if s, _ := snap.Snake(1); !s.Ghost {
		t.Fatalf("ghost expired early at sim tick %d", e.simTick)
	}

	// Re-activation restarts the timer.
	e.AdvanceTick(map[int]models.Intent{1: {Ghost: true}})
	for i := 1; i < duration-1; i++ {
		snap = e.AdvanceTick(nil)
	}
	if s, _ := snap.Snake(1); !s.Ghost {
		t.Fatalf("restarted ghost expired early")
	}
	for i := 0; i < 2; i++ {
		snap = e.AdvanceTick(nil)
	}
	if s, _ := snap.Snake(1); s.Ghost {
		t.Fatalf("ghost still active after its duration")
	}
}

func TestGhostedSnakeStillCollides(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: true, Seed: 12})
	ghost := place(e, 1, models.Up, c(8, 3), c(8, 4), c(8, 5), c(8, 6), c(8, 7))
	ghost.GhostUntil = 1000
	s := place(e, 2, models.Right, c(7, 5), c(6, 5), c(5, 5))
	food := c(15, 15)
	e.food = &food

	e.AdvanceTick(nil)

	if s.Alive {
		t.Fatalf("expected snake to collide with the ghosted body")
	}
	if !ghost.Alive {
		t.Fatalf("ghosted snake died")
	}
}

func TestKurveRoundEnd(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Mode: models.ModeKurve, Walls: true, Seed: 13})
	place(e, 1, models.Right, c(19, 5), c(18, 5))
	place(e, 2, models.Right, c(5, 12), c(4, 12))
	e.roundSize = 2
	food := c(15, 15)
	e.food = &food

	snap := e.AdvanceTick(nil)

	if snap.Phase != models.PhaseFinished {
		t.Fatalf("got phase %s, want finished", snap.Phase)
	}
	if snap.Winner != 2 || snap.Draw {
		t.Fatalf("got winner %d draw=%v, want winner 2", snap.Winner, snap.Draw)
	}

	// Finished rounds ignore everything but restart.
	e.AdvanceTick(map[int]models.Intent{1: {Start: true}})
	if e.Phase() != models.PhaseFinished {
		t.Fatalf("got phase %s after start, want finished", e.Phase())
	}
	snap = e.AdvanceTick(map[int]models.Intent{1: {Restart: true}})
	if snap.Phase != models.PhaseCountdown {
		t.Fatalf("got phase %s after restart, want countdown", snap.Phase)
	}
	for _, s := range snap.Snakes {
		if !s.Alive || len(s.Cells) != InitialSnakeLength {
			t.Fatalf("snake %d not respawned: %+v", s.PlayerID, s)
		}
	}
}

func TestKurveDraw(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Mode: models.ModeKurve, Walls: true, Seed: 14})
	place(e, 1, models.Right, c(5, 5), c(4, 5))
	place(e, 2, models.Left, c(7, 5), c(8, 5))
	e.roundSize = 2
	food := c(15, 15)
	e.food = &food

	snap := e.AdvanceTick(nil)
	if snap.Phase != models.PhaseFinished || !snap.Draw {
		t.Fatalf("got phase %s draw=%v, want finished draw", snap.Phase, snap.Draw)
	}
}

func TestLobbyCountdownRunning(t *testing.T) {
	e := New(Config{Width: 30, Height: 30, Walls: true, Seed: 15, TickPeriod: 100 * time.Millisecond})
	if err := e.Sync([]models.PlayerView{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	snap := e.AdvanceTick(nil)
	if snap.Phase != models.PhaseLobby {
		t.Fatalf("got phase %s without start, want lobby", snap.Phase)
	}

	snap = e.AdvanceTick(map[int]models.Intent{2: {Start: true}})
	if snap.Phase != models.PhaseCountdown || snap.Countdown != 5 {
		t.Fatalf("got phase %s countdown %d, want countdown 5", snap.Phase, snap.Countdown)
	}

	ticks := int(e.ticksFor(CountdownLength))
	for i := 0; i < ticks; i++ {
		snap = e.AdvanceTick(nil)
	}
	if snap.Phase != models.PhaseRunning {
		t.Fatalf("got phase %s after countdown, want running", snap.Phase)
	}
	if snap.Food == nil {
		t.Fatalf("expected food at round start")
	}
	if len(snap.Snakes) != 2 {
		t.Fatalf("got %d snakes, want 2", len(snap.Snakes))
	}
}

func TestPauseFreezesSimulation(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: false, Seed: 16})
	s := place(e, 1, models.Right, c(5, 5), c(4, 5), c(3, 5))
	food := c(15, 15)
	e.food = &food

	snap := e.AdvanceTick(map[int]models.Intent{1: {Pause: true}})
	if snap.Phase != models.PhasePaused {
		t.Fatalf("got phase %s, want paused", snap.Phase)
	}
	before := snap.Tick
	snap = e.AdvanceTick(nil)
	if s.Head() != c(5, 5) {
		t.Fatalf("snake moved while paused: %v", s.Head())
	}
	if snap.Tick <= before {
		t.Fatalf("tick did not advance while paused")
	}
	e.AdvanceTick(map[int]models.Intent{1: {Pause: true}})
	e.AdvanceTick(nil)
	if s.Head() != c(6, 5) {
		t.Fatalf("got head %v after resume, want (6,5)", s.Head())
	}
}

func TestDepartureFreezesSnake(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: false, Seed: 17})
	s := place(e, 1, models.Right, c(5, 5), c(4, 5), c(3, 5))
	place(e, 2, models.Right, c(5, 12), c(4, 12), c(3, 12))
	food := c(15, 15)
	e.food = &food

	if err := e.Sync([]models.PlayerView{{ID: 2, Name: "p"}}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	snap := e.AdvanceTick(nil)

	if s.Alive {
		t.Fatalf("departed player's snake still alive")
	}
	if want := []models.Cell{c(5, 5), c(4, 5), c(3, 5)}; !reflect.DeepEqual(s.Body, want) {
		t.Fatalf("departed snake moved to %v", s.Body)
	}
	if got, ok := snap.Snake(1); !ok || got.Alive {
		t.Fatalf("frozen snake missing from snapshot: %+v", got)
	}
}

func TestLobbyDepartureRemovesSnake(t *testing.T) {
	e := New(Config{Width: 30, Height: 30, Walls: true, Seed: 18})
	if err := e.Sync([]models.PlayerView{{ID: 1, Name: "a"}}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := e.Sync(nil); err != nil {
		t.Fatalf("sync: %v", err)
	}
	snap := e.AdvanceTick(nil)
	if len(snap.Snakes) != 0 {
		t.Fatalf("got %d snakes in lobby after leave, want 0", len(snap.Snakes))
	}
}

func TestSpawnFailsWithoutRoom(t *testing.T) {
	e := New(Config{Width: 10, Height: 10, Walls: true, Seed: 19})
	var err error
	for id := 1; id <= 40 && err == nil; id++ {
		err = e.AddPlayer(id, "p")
	}
	if !errors.Is(err, ErrNoSpawnRoom) {
		t.Fatalf("got %v, want ErrNoSpawnRoom", err)
	}
}

func TestWeaponSpawnAndPickup(t *testing.T) {
	e := runningEngine(Config{Width: 20, Height: 20, Walls: false, Seed: 20})
	s := place(e, 1, models.Right, c(5, 5), c(4, 5), c(3, 5))
	food := c(15, 15)
	e.food = &food
	e.weapons = []models.Cell{c(6, 5)}

	e.AdvanceTick(nil)

	if !s.HasCharge {
		t.Fatalf("expected charge after pickup")
	}
	if len(e.weapons) != 0 {
		t.Fatalf("pickup not cleared: %v", e.weapons)
	}
	if e.nextWeapon <= e.simTick {
		t.Fatalf("next weapon spawn not scheduled")
	}

	// A held charge leaves further pickups on the board.
	e.weapons = []models.Cell{c(7, 5)}
	e.AdvanceTick(nil)
	if len(e.weapons) != 1 {
		t.Fatalf("pickup taken while a charge was held")
	}

	e.nextWeapon = e.simTick + 1
	e.AdvanceTick(nil)
	if len(e.weapons) != 2 {
		t.Fatalf("got %d pickups, want a new spawn", len(e.weapons))
	}
}

func TestDeterministicReplay(t *testing.T) {
	run := func() []models.Snapshot {
		e := New(Config{Width: 40, Height: 30, Walls: false, Seed: 42, TickPeriod: 50 * time.Millisecond})
		if err := e.Sync([]models.PlayerView{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}); err != nil {
			t.Fatalf("sync: %v", err)
		}
		var out []models.Snapshot
		out = append(out, e.AdvanceTick(map[int]models.Intent{1: {Start: true}}))
		turns := []models.Direction{models.Up, models.Left, models.Down, models.Right}
		for i := 0; i < 400; i++ {
			intents := map[int]models.Intent{}
			if i%7 == 0 {
				intents[1+i%3] = models.Intent{Direction: dir(turns[(i/7)%4]), Fire: true}
			}
			out = append(out, e.AdvanceTick(intents))
		}
		return out
	}

	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed and intents produced different snapshots")
	}
}
