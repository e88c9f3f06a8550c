// Package handlers queueing.go contains the Input Router: a per-player intent
// queue that coalesces requests between ticks instead of building a backlog.
package handlers

import (
	"fmt"
	"sync"

	"github.com/4cecoder/snakearena/models"
)

type IntentQueue struct {
	mu      sync.Mutex
	phase   models.Phase
	active  func(playerID int) bool
	pending map[int]models.Intent
}

// NewIntentQueue returns a queue that accepts intents only from players for
// which active reports true.
func NewIntentQueue(active func(playerID int) bool) *IntentQueue {
	return &IntentQueue{
		phase:   models.PhaseLobby,
		active:  active,
		pending: make(map[int]models.Intent),
	}
}

// Submit stores the intent, overwriting any pending request of the same
// category from the same player.
func (q *IntentQueue) Submit(playerID int, in models.Intent) error {
	if q.active != nil && !q.active(playerID) {
		return fmt.Errorf("intent from player %d: %w", playerID, models.ErrUnknownPlayer)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := legal(q.phase, in); err != nil {
		return fmt.Errorf("intent from player %d: %w", playerID, err)
	}

	cur := q.pending[playerID]
	if in.Direction != nil {
		d := *in.Direction
		cur.Direction = &d
	}
	cur.Fire = cur.Fire || in.Fire
	cur.Ghost = cur.Ghost || in.Ghost
	cur.Pause = cur.Pause || in.Pause
	cur.Start = cur.Start || in.Start
	cur.Restart = cur.Restart || in.Restart
	if cur.Empty() {
		return nil
	}
	q.pending[playerID] = cur
	return nil
}

func legal(phase models.Phase, in models.Intent) error {
	switch {
	case in.Start && phase != models.PhaseLobby:
		return fmt.Errorf("start during %s: %w", phase, models.ErrIllegalIntent)
	case in.Restart && phase != models.PhaseFinished:
		return fmt.Errorf("restart during %s: %w", phase, models.ErrIllegalIntent)
	case in.Pause && phase != models.PhaseRunning && phase != models.PhasePaused:
		return fmt.Errorf("pause during %s: %w", phase, models.ErrIllegalIntent)
	}
	return nil
}

// Drain hands over everything submitted since the previous drain.
func (q *IntentQueue) Drain() map[int]models.Intent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = make(map[int]models.Intent, len(out))
	return out
}

// SetPhase is called by the match loop after every tick.
func (q *IntentQueue) SetPhase(phase models.Phase) {
	q.mu.Lock()
	q.phase = phase
	q.mu.Unlock()
}

func (q *IntentQueue) Pending(playerID int) (models.Intent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	in, ok := q.pending[playerID]
	return in, ok
}

func (q *IntentQueue) Clear(playerID int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, playerID)
}
