package handlers

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/4cecoder/snakearena/models"
)

type Recipient struct {
	ID   int
	Conn models.Transport
}

// Publisher is the Broadcast Publisher. Publish never blocks: the newest
// snapshot replaces any that has not been sent yet.
type Publisher struct {
	mu         sync.Mutex
	latest     *models.Snapshot
	wake       chan struct{}
	recipients func() []Recipient
	logger     *log.Logger
}

func NewPublisher(recipients func() []Recipient, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{
		wake:       make(chan struct{}, 1),
		recipients: recipients,
		logger:     logger,
	}
}

func (p *Publisher) Publish(snap models.Snapshot) {
	p.mu.Lock()
	p.latest = &snap
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Publisher) take() (models.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return models.Snapshot{}, false
	}
	snap := *p.latest
	p.latest = nil
	return snap, true
}

func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			if snap, ok := p.take(); ok {
				p.Send(snap)
			}
		}
	}
}

// Send fans one snapshot out to every recipient, each receiving its own
// ghost-filtered view. Datagrams go over the unreliable channel when the
// recipient has a route and the payload fits, otherwise as a state frame.
func (p *Publisher) Send(snap models.Snapshot) {
	for _, r := range p.recipients() {
		view := snap.ViewFor(r.ID)
		data, err := models.EncodeDatagram(models.Datagram{
			Type:     models.DatagramState,
			Tick:     view.Tick,
			Snapshot: &view,
		})
		if err != nil {
			p.logger.Printf("error encoding snapshot for player %d: %v", r.ID, err)
			continue
		}
		if len(data) <= models.MaxDatagramSize {
			err = r.Conn.SendUnreliable(data)
			if err == nil {
				continue
			}
			if !errors.Is(err, models.ErrNoRoute) {
				p.logger.Printf("error sending datagram to player %d: %v", r.ID, err)
			}
		}
		frame, err := models.Encode(models.MsgState, view)
		if err != nil {
			p.logger.Printf("error encoding state frame for player %d: %v", r.ID, err)
			continue
		}
		if err := r.Conn.SendReliable(frame); err != nil {
			p.logger.Printf("dropping state frame for player %d: %v", r.ID, err)
		}
	}
}

// BroadcastRoster sends the roster to every recipient over the reliable
// channel.
func (p *Publisher) BroadcastRoster(roster []models.RosterEntry) {
	frame, err := models.Encode(models.MsgRoster, models.RosterMessage{Players: roster})
	if err != nil {
		p.logger.Printf("error marshalling roster: %v", err)
		return
	}
	for _, r := range p.recipients() {
		if err := r.Conn.SendReliable(frame); err != nil {
			p.logger.Printf("dropping roster for player %d: %v", r.ID, err)
		}
	}
}
