package handlers

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/4cecoder/snakearena/game"
	"github.com/4cecoder/snakearena/models"
)

// Match runs the simulation loop. It is the only goroutine that touches the
// engine; everyone else goes through the intent queue or LatestSnapshot.
type Match struct {
	engine    *game.Engine
	sessions  *Sessions
	intents   *IntentQueue
	publisher *Publisher
	period    time.Duration
	latest    atomic.Pointer[models.Snapshot]
	logger    *log.Logger
}

func NewMatch(engine *game.Engine, sessions *Sessions, intents *IntentQueue, publisher *Publisher, period time.Duration, logger *log.Logger) *Match {
	if logger == nil {
		logger = log.Default()
	}
	return &Match{
		engine:    engine,
		sessions:  sessions,
		intents:   intents,
		publisher: publisher,
		period:    period,
		logger:    logger,
	}
}

func (m *Match) Run(ctx context.Context) {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Step()
		}
	}
}

// Step advances the match by one tick: roster sync, intent drain, simulation,
// then hand-off of the snapshot.
func (m *Match) Step() models.Snapshot {
	active := m.sessions.Active()
	if err := m.engine.Sync(active); err != nil {
		m.logger.Printf("error syncing roster: %v", err)
	}

	present := make(map[int]bool, len(active))
	for _, p := range active {
		present[p.ID] = true
	}
	intents := m.intents.Drain()
	for id := range intents {
		if !present[id] {
			delete(intents, id)
		}
	}

	before := m.engine.Phase()
	snap := m.engine.AdvanceTick(intents)
	if snap.Phase != before {
		m.logger.Printf("Match phase %s -> %s at tick %d", before, snap.Phase, snap.Tick)
		if snap.Phase == models.PhaseFinished {
			if snap.Draw {
				m.logger.Printf("Round ended in a draw")
			} else {
				m.logger.Printf("Round won by player %d", snap.Winner)
			}
		}
	}

	m.latest.Store(&snap)
	m.intents.SetPhase(snap.Phase)
	m.sessions.SetMatchPhase(snap.Phase)
	m.publisher.Publish(snap)
	return snap
}

// SubmitIntent queues an intent for the next tick.
func (m *Match) SubmitIntent(playerID int, in models.Intent) error {
	return m.intents.Submit(playerID, in)
}

// LatestSnapshot returns the full snapshot of the most recent tick.
func (m *Match) LatestSnapshot() (models.Snapshot, bool) {
	snap := m.latest.Load()
	if snap == nil {
		return models.Snapshot{}, false
	}
	return *snap, true
}
