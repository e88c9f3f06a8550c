// Package models player.go
package models

import (
	"fmt"
	"net"
	"time"
)

// Transport is the pair of delivery channels the server holds for one player.
// SendReliable must never block the caller; SendUnreliable returns ErrNoRoute
// when the player has no usable datagram path.
type Transport interface {
	SendReliable(message []byte) error
	SendUnreliable(datagram []byte) error
	Close() error
}

// UnreliableBinder is implemented by transports that learn their datagram
// address after the join handshake.
type UnreliableBinder interface {
	BindUnreliable(addr *net.UDPAddr)
}

type PlayerState int

const (
	StateConnecting PlayerState = iota
	StateAuthenticated
	StateLobby
	StateInMatch
	StateDisconnected
)

func (s PlayerState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateLobby:
		return "lobby"
	case StateInMatch:
		return "in_match"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Active reports whether a player in this state takes part in the match.
func (s PlayerState) Active() bool {
	return s == StateLobby || s == StateInMatch
}

// Player is the session-side record of a connected player. The simulation
// never sees it; it only receives PlayerView values.
type Player struct {
	ID            int         `json:"id"`
	Name          string      `json:"name"`
	Token         string      `json:"-"`
	RemoteIP      string      `json:"-"`
	Conn          Transport   `json:"-"`
	LastSeen      time.Time   `json:"-"`
	Authenticated bool        `json:"authenticated"`
	Ready         bool        `json:"ready"`
	State         PlayerState `json:"-"`
}

// PlayerView is the read-only slice of a player the engine is allowed to see.
type PlayerView struct {
	ID   int
	Name string
}

type RosterEntry struct {
	PlayerID int    `json:"playerId" msgpack:"id"`
	Name     string `json:"name" msgpack:"n"`
	Ready    bool   `json:"ready" msgpack:"r"`
}

type Cell struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Delta returns the unit step for the direction.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	default:
		return 1, 0
	}
}

func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection validates a direction name as sent by clients.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up", "UP":
		return Up, nil
	case "down", "DOWN":
		return Down, nil
	case "left", "LEFT":
		return Left, nil
	case "right", "RIGHT":
		return Right, nil
	default:
		return 0, fmt.Errorf("%w: invalid direction %q", ErrMalformedMessage, s)
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	if d > Right {
		return nil, fmt.Errorf("invalid direction %d", uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
