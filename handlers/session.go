package handlers

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/4cecoder/snakearena/models"
)

const (
	maxNameLength = 16
	defaultName   = "Player"
)

type SessionConfig struct {
	Password         string
	RequirePassword  bool
	MaxPlayers       int
	HeartbeatTimeout time.Duration
	JoinRateLimit    int
	JoinRateWindow   time.Duration
	MessageRateLimit int
}

// Sessions is the Session Manager. It owns the player roster; one mutex
// covers admission, liveness and reaping so they never interleave.
type Sessions struct {
	mu       sync.Mutex
	cfg      SessionConfig
	players  map[int]*models.Player
	byToken  map[string]int
	byAddr   map[string]int
	nextID   int
	joins    *SlidingWindow
	messages *SlidingWindow
	onChange func()
	now      func() time.Time
	logger   *log.Logger
}

func NewSessions(cfg SessionConfig, logger *log.Logger) *Sessions {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = 10
	}
	return &Sessions{
		cfg:      cfg,
		players:  make(map[int]*models.Player),
		byToken:  make(map[string]int),
		byAddr:   make(map[string]int),
		nextID:   1,
		joins:    NewSlidingWindow(cfg.JoinRateLimit, cfg.JoinRateWindow),
		messages: NewSlidingWindow(cfg.MessageRateLimit, time.Second),
		now:      time.Now,
		logger:   logger,
	}
}

// OnChange registers fn to run, outside the lock, whenever the roster changes.
func (s *Sessions) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Sessions) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Admit validates a join request from remoteIP and registers the player.
// Checks run in order: rate limit, password, capacity. No id is allocated
// when any of them fails.
func (s *Sessions) Admit(remoteIP string, req models.JoinRequest, conn models.Transport) (*models.Player, error) {
	s.mu.Lock()
	now := s.now()
	if !s.joins.Allow(remoteIP, now) {
		s.mu.Unlock()
		return nil, fmt.Errorf("join from %s: %w", remoteIP, models.ErrRateLimited)
	}
	if s.cfg.RequirePassword && !passwordMatches(req.Password, s.cfg.Password) {
		s.mu.Unlock()
		return nil, fmt.Errorf("join from %s: %w", remoteIP, models.ErrAuthFailed)
	}
	if s.countActive() >= s.cfg.MaxPlayers {
		s.mu.Unlock()
		return nil, fmt.Errorf("join from %s: %d players active: %w", remoteIP, s.cfg.MaxPlayers, models.ErrCapacityExceeded)
	}

	p := &models.Player{
		ID:            s.nextID,
		Name:          SanitizeName(req.Name),
		Token:         uuid.NewString(),
		RemoteIP:      remoteIP,
		Conn:          conn,
		LastSeen:      now,
		Authenticated: true,
		State:         models.StateLobby,
	}
	s.nextID++
	s.players[p.ID] = p
	s.byToken[p.Token] = p.ID
	view := *p
	s.mu.Unlock()

	s.logger.Printf("Registered new player: %d (%s) from %s", p.ID, p.Name, remoteIP)
	s.changed()
	return &view, nil
}

func passwordMatches(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Sessions) countActive() int {
	n := 0
	for _, p := range s.players {
		if p.State.Active() {
			n++
		}
	}
	return n
}

// SanitizeName keeps printable runes, trims spaces and caps the length.
func SanitizeName(name string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, name)
	clean = strings.TrimSpace(clean)
	if runes := []rune(clean); len(runes) > maxNameLength {
		clean = strings.TrimSpace(string(runes[:maxNameLength]))
	}
	if clean == "" {
		return defaultName
	}
	return clean
}

// Heartbeat refreshes the liveness timestamp of a player.
func (s *Sessions) Heartbeat(playerID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return false
	}
	p.LastSeen = s.now()
	return true
}

// HeartbeatAddr refreshes the player registered for a datagram address.
func (s *Sessions) HeartbeatAddr(addr *net.UDPAddr) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byAddr[addr.String()]
	if !ok {
		return 0, false
	}
	s.players[id].LastSeen = s.now()
	return id, true
}

// AllowMessage applies the per-player message rate limit.
func (s *Sessions) AllowMessage(playerID int) bool {
	return s.messages.Allow(strconv.Itoa(playerID), s.now())
}

// BindUnreliable attaches a datagram address to the player owning token.
// The datagram must come from the same host as the control connection.
func (s *Sessions) BindUnreliable(token string, addr *net.UDPAddr) (int, error) {
	s.mu.Lock()
	id, ok := s.byToken[token]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("hello with unknown token: %w", models.ErrUnknownPlayer)
	}
	p := s.players[id]
	if !sameHost(p.RemoteIP, addr.IP) {
		s.mu.Unlock()
		return 0, fmt.Errorf("hello for player %d from %s: %w", id, addr, models.ErrAuthFailed)
	}
	for key, other := range s.byAddr {
		if other == id {
			delete(s.byAddr, key)
		}
	}
	s.byAddr[addr.String()] = id
	p.LastSeen = s.now()
	wasReady := p.Ready
	p.Ready = true
	conn := p.Conn
	s.mu.Unlock()

	if b, ok := conn.(models.UnreliableBinder); ok {
		b.BindUnreliable(addr)
	}
	if !wasReady {
		s.logger.Printf("Player %d registered datagram address %s", id, addr)
		s.changed()
	}
	return id, nil
}

func sameHost(remoteIP string, ip net.IP) bool {
	want := net.ParseIP(remoteIP)
	if want == nil {
		return false
	}
	return want.Equal(ip)
}

// Remove disconnects a player and releases its connection. It is safe to
// call more than once.
func (s *Sessions) Remove(playerID int, reason string) bool {
	s.mu.Lock()
	p, ok := s.removeLocked(playerID)
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.logger.Printf("Unregistered player %d (%s): %s", p.ID, p.Name, reason)
	if p.Conn != nil {
		if err := p.Conn.Close(); err != nil {
			s.logger.Printf("error closing connection of player %d: %v", p.ID, err)
		}
	}
	s.changed()
	return true
}

func (s *Sessions) removeLocked(playerID int) (*models.Player, bool) {
	p, ok := s.players[playerID]
	if !ok {
		return nil, false
	}
	p.State = models.StateDisconnected
	delete(s.players, playerID)
	delete(s.byToken, p.Token)
	for key, id := range s.byAddr {
		if id == playerID {
			delete(s.byAddr, key)
		}
	}
	s.messages.Forget(strconv.Itoa(playerID))
	return p, true
}

// Reap removes every player silent for longer than the heartbeat timeout and
// returns their ids.
func (s *Sessions) Reap(now time.Time) []int {
	s.mu.Lock()
	var reaped []*models.Player
	for id, p := range s.players {
		if now.Sub(p.LastSeen) > s.cfg.HeartbeatTimeout {
			if removed, ok := s.removeLocked(id); ok {
				reaped = append(reaped, removed)
			}
		}
	}
	s.mu.Unlock()
	s.joins.Prune(now)

	if len(reaped) == 0 {
		return nil
	}
	ids := make([]int, 0, len(reaped))
	for _, p := range reaped {
		s.logger.Printf("Player %d (%s) timed out", p.ID, p.Name)
		if p.Conn != nil {
			_ = p.Conn.Close()
		}
		ids = append(ids, p.ID)
	}
	sort.Ints(ids)
	s.changed()
	return ids
}

// RunReaper calls Reap every interval until ctx is done.
func (s *Sessions) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap(s.now())
		}
	}
}

// SetMatchPhase moves active players between lobby and in-match.
func (s *Sessions) SetMatchPhase(phase models.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		switch {
		case phase == models.PhaseLobby && p.State == models.StateInMatch:
			p.State = models.StateLobby
		case phase != models.PhaseLobby && p.State == models.StateLobby:
			p.State = models.StateInMatch
		}
	}
}

// IsActive reports whether the player is in the lobby or in the match.
func (s *Sessions) IsActive(playerID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	return ok && p.State.Active()
}

func (s *Sessions) Lookup(playerID int) (models.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return models.Player{}, false
	}
	return *p, true
}

// PlayerByToken resolves a session token to its player id.
func (s *Sessions) PlayerByToken(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byToken[token]
	return id, ok
}

func (s *Sessions) sorted() []*models.Player {
	out := make([]*models.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Roster lists the connected players ordered by id.
func (s *Sessions) Roster() []models.RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RosterEntry, 0, len(s.players))
	for _, p := range s.sorted() {
		out = append(out, models.RosterEntry{PlayerID: p.ID, Name: p.Name, Ready: p.Ready})
	}
	return out
}

// Active is the read view handed to the engine each tick.
func (s *Sessions) Active() []models.PlayerView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PlayerView, 0, len(s.players))
	for _, p := range s.sorted() {
		if p.State.Active() {
			out = append(out, models.PlayerView{ID: p.ID, Name: p.Name})
		}
	}
	return out
}

// Recipients returns the transports of every active player.
func (s *Sessions) Recipients() []Recipient {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recipient, 0, len(s.players))
	for _, p := range s.sorted() {
		if p.State.Active() && p.Conn != nil {
			out = append(out, Recipient{ID: p.ID, Conn: p.Conn})
		}
	}
	return out
}

func (s *Sessions) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countActive()
}
