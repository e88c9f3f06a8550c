package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/4cecoder/snakearena/models"
)

type statusResponse struct {
	Mode     models.Mode  `json:"mode"`
	Speed    string       `json:"speed"`
	Walls    bool         `json:"walls"`
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	Phase    models.Phase `json:"phase"`
	Tick     uint64       `json:"tick"`
	Players  int          `json:"players"`
	Capacity int          `json:"capacity"`
	Password bool         `json:"passwordRequired"`
	Uptime   string       `json:"uptime"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Mode:     s.cfg.Mode,
		Speed:    s.cfg.Speed,
		Walls:    s.cfg.Walls,
		Width:    s.cfg.Width,
		Height:   s.cfg.Height,
		Phase:    models.PhaseLobby,
		Players:  s.sessions.Count(),
		Capacity: s.sessions.cfg.MaxPlayers,
		Password: s.sessions.cfg.RequirePassword,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	}
	if snap, ok := s.match.LatestSnapshot(); ok {
		resp.Phase = snap.Phase
		resp.Tick = snap.Tick
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) HandleRoster(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.RosterMessage{Players: s.sessions.Roster()})
}

// HandleSnapshot returns the latest snapshot as seen by the session owning
// ?token=. Without a token the view hides every ghosted snake.
func (s *Server) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	recipient := 0
	if token := r.URL.Query().Get("token"); token != "" {
		id, ok := s.sessions.PlayerByToken(token)
		if !ok {
			http.Error(w, "unknown session token", http.StatusForbidden)
			return
		}
		recipient = id
	}
	snap, ok := s.match.LatestSnapshot()
	if !ok {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap.ViewFor(recipient))
}

// protocolTypes lists the payloads documented by HandleSchema, keyed by the
// message type that carries them.
var protocolTypes = map[string]any{
	models.MsgJoin:      new(models.JoinRequest),
	models.MsgWelcome:   new(models.JoinResponse),
	models.MsgIntent:    new(models.Intent),
	models.MsgHeartbeat: new(models.HeartbeatMessage),
	models.MsgRoster:    new(models.RosterMessage),
	models.MsgState:     new(models.Snapshot),
}

// HandleSchema publishes JSON schemas for the control channel payloads.
func (s *Server) HandleSchema(w http.ResponseWriter, r *http.Request) {
	reflector := jsonschema.Reflector{AllowAdditionalProperties: true}
	out := make(map[string]*jsonschema.Schema, len(protocolTypes))
	for msgType, v := range protocolTypes {
		schema := reflector.Reflect(v)
		schema.Title = msgType
		out[msgType] = schema
	}
	writeJSON(w, http.StatusOK, out)
}
