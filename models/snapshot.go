package models

type Mode string

const (
	ModeClassic Mode = "classic"
	ModeKurve   Mode = "kurve"
)

type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhaseRunning   Phase = "running"
	PhasePaused    Phase = "paused"
	PhaseFinished  Phase = "finished"
)

type SnakeState struct {
	PlayerID           int       `json:"playerId" msgpack:"id"`
	Name               string    `json:"name" msgpack:"n"`
	Cells              []Cell    `json:"cells" msgpack:"c"`
	Direction          Direction `json:"direction" msgpack:"d"`
	Alive              bool      `json:"alive" msgpack:"a"`
	Ghost              bool      `json:"ghost" msgpack:"g"`
	HasCharge          bool      `json:"hasCharge" msgpack:"w"`
	VisibleToRecipient bool      `json:"visibleToRecipient" msgpack:"v"`
}

type ProjectileState struct {
	OwnerID   int       `json:"ownerId" msgpack:"o"`
	Cell      Cell      `json:"cell" msgpack:"c"`
	Direction Direction `json:"direction" msgpack:"d"`
}

type PlayerScore struct {
	PlayerID int `json:"playerId" msgpack:"id"`
	Score    int `json:"score" msgpack:"s"`
}

// Snapshot is one tick of authoritative state. The engine produces the full
// version; recipients only ever receive the result of ViewFor.
type Snapshot struct {
	Tick         uint64            `json:"tick" msgpack:"t"`
	Phase        Phase             `json:"phase" msgpack:"p"`
	Mode         Mode              `json:"mode" msgpack:"m"`
	Width        int               `json:"width" msgpack:"w"`
	Height       int               `json:"height" msgpack:"h"`
	WallsEnabled bool              `json:"wallsEnabled" msgpack:"wl"`
	Countdown    int               `json:"countdown,omitempty" msgpack:"cd,omitempty"`
	Winner       int               `json:"winner,omitempty" msgpack:"win,omitempty"`
	Draw         bool              `json:"draw,omitempty" msgpack:"dr,omitempty"`
	Snakes       []SnakeState      `json:"snakes" msgpack:"sn"`
	Food         *Cell             `json:"food,omitempty" msgpack:"f,omitempty"`
	Weapons      []Cell            `json:"weapons" msgpack:"wp"`
	Projectiles  []ProjectileState `json:"projectiles" msgpack:"pr"`
	Explosions   []Cell            `json:"explosions" msgpack:"ex"`
	Scores       []PlayerScore     `json:"scores" msgpack:"sc"`
}

// ViewFor returns the snapshot as seen by recipient: ghosted opponents keep
// their entry but lose their cells.
func (s Snapshot) ViewFor(recipient int) Snapshot {
	view := s
	view.Snakes = make([]SnakeState, len(s.Snakes))
	for i, snake := range s.Snakes {
		if snake.Ghost && snake.PlayerID != recipient {
			snake.Cells = nil
			snake.VisibleToRecipient = false
		} else {
			snake.VisibleToRecipient = true
		}
		view.Snakes[i] = snake
	}
	return view
}

// Snake returns the entry for playerID, if present.
func (s Snapshot) Snake(playerID int) (SnakeState, bool) {
	for _, snake := range s.Snakes {
		if snake.PlayerID == playerID {
			return snake, true
		}
	}
	return SnakeState{}, false
}
