// Package handlers serve.go
package handlers

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"github.com/4cecoder/snakearena/config"
	"github.com/4cecoder/snakearena/game"
	"github.com/4cecoder/snakearena/models"
)

// Server wires the Session Manager, Input Router, match loop and publisher
// together for one match.
type Server struct {
	cfg       config.Config
	sessions  *Sessions
	intents   *IntentQueue
	publisher *Publisher
	match     *Match
	udp       *UDPEndpoint
	udpConn   *net.UDPConn
	started   time.Time
	logger    *log.Logger
}

// NewServer builds a server for cfg. udpConn may be nil, in which case every
// snapshot travels over the websocket.
func NewServer(cfg config.Config, udpConn *net.UDPConn, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	sessions := NewSessions(SessionConfig{
		Password:         cfg.Password,
		RequirePassword:  config.RequiresPassword(cfg.Host),
		MaxPlayers:       config.MaxPlayers,
		HeartbeatTimeout: cfg.HeartbeatTimeout,
		JoinRateLimit:    cfg.JoinRateLimit,
		JoinRateWindow:   cfg.JoinRateWindow,
		MessageRateLimit: cfg.MessageRateLimit,
	}, logger)
	intents := NewIntentQueue(sessions.IsActive)
	publisher := NewPublisher(sessions.Recipients, logger)
	engine := game.New(game.Config{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Mode:       cfg.Mode,
		Walls:      cfg.Walls,
		TickPeriod: cfg.TickPeriod,
		Seed:       cfg.Seed,
		BombSpeed:  cfg.BombSpeed,
	})

	s := &Server{
		cfg:       cfg,
		sessions:  sessions,
		intents:   intents,
		publisher: publisher,
		match:     NewMatch(engine, sessions, intents, publisher, cfg.TickPeriod, logger),
		udpConn:   udpConn,
		started:   time.Now(),
		logger:    logger,
	}
	if udpConn != nil {
		s.udp = NewUDPEndpoint(udpConn, sessions, logger)
	}
	sessions.OnChange(func() {
		publisher.BroadcastRoster(sessions.Roster())
	})
	return s
}

func (s *Server) Sessions() *Sessions { return s.sessions }

func (s *Server) Match() *Match { return s.match }

// Run starts the publisher, reaper and datagram reader and then runs the
// simulation loop until ctx is done.
func (s *Server) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.publisher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		s.sessions.RunReaper(ctx, s.cfg.ReapInterval)
	}()
	if s.udp != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.udp.Run(ctx); err != nil {
				s.logger.Printf("datagram reader stopped: %v", err)
			}
		}()
	}

	s.logger.Printf("Match started: mode=%s speed=%s board=%dx%d walls=%v", s.cfg.Mode, s.cfg.Speed, s.cfg.Width, s.cfg.Height, s.cfg.Walls)
	s.match.Run(ctx)
	wg.Wait()
}

func (s *Server) udpPort() int {
	if s.udpConn == nil {
		return 0
	}
	if addr, ok := s.udpConn.LocalAddr().(*net.UDPAddr); ok {
		return addr.Port
	}
	return s.cfg.UDPPort
}

// handleMessage processes one control frame from an admitted player.
func (s *Server) handleMessage(client *Client, message []byte) {
	id := client.ID
	s.sessions.Heartbeat(id)
	if !s.sessions.AllowMessage(id) {
		s.logger.Printf("rate limiting player %d, dropping message", id)
		return
	}

	env, err := models.DecodeEnvelope(message)
	if err != nil {
		s.logger.Printf("discarding malformed message from player %d: %v", id, err)
		return
	}

	switch env.Type {
	case models.MsgIntent:
		in, err := models.DecodePayload[models.Intent](env)
		if err != nil {
			s.logger.Printf("discarding malformed message from player %d: %v", id, err)
			return
		}
		if in.Quit {
			s.sessions.Remove(id, "quit")
			return
		}
		s.submit(id, in)
	case models.MsgStart:
		s.submit(id, models.Intent{Start: true})
	case models.MsgRestart:
		s.submit(id, models.Intent{Restart: true})
	case models.MsgQuit:
		s.sessions.Remove(id, "quit")
	case models.MsgHeartbeat:
		hb, err := models.DecodePayload[models.HeartbeatMessage](env)
		if err != nil {
			s.logger.Printf("discarding malformed message from player %d: %v", id, err)
			return
		}
		reply, err := models.Encode(models.MsgHeartbeat, models.HeartbeatMessage{
			SentAt:     hb.SentAt,
			ServerTime: time.Now().UnixMilli(),
		})
		if err != nil {
			return
		}
		_ = client.SendMessage(reply)
	case models.MsgJoin:
		s.logger.Printf("ignoring repeated join from player %d", id)
	default:
		s.logger.Printf("Unknown message type from player %d: %s", id, env.Type)
	}
}

func (s *Server) submit(playerID int, in models.Intent) {
	err := s.match.SubmitIntent(playerID, in)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrIllegalIntent):
		s.logger.Printf("dropping intent: %v", err)
	default:
		s.logger.Printf("error submitting intent: %v", err)
	}
}
