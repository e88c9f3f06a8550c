package handlers

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/4cecoder/snakearena/models"
)

const joinWait = 10 * time.Second

// HandleWebSocket upgrades the connection and runs the join handshake: the
// first frame must be a join. A rejected join gets an error frame with the
// reason and the socket is closed.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Println("Error upgrading to WebSocket:", err)
		return
	}
	remoteIP := remoteHost(r.RemoteAddr)
	var udp datagramWriter
	if s.udpConn != nil {
		udp = s.udpConn
	}
	client := NewClient(conn, udp, s.logger)

	req, err := readJoin(conn)
	if err != nil {
		s.logger.Printf("Rejecting connection from %s: %v", remoteIP, err)
		s.reject(client, err)
		return
	}

	player, err := s.sessions.Admit(remoteIP, req, client)
	if err != nil {
		s.logger.Printf("Rejecting join from %s: %v", remoteIP, err)
		s.reject(client, err)
		return
	}
	client.SetID(player.ID)
	client.KeepAlive(s.cfg.HeartbeatTimeout/3, func() { s.sessions.Heartbeat(player.ID) })

	welcome, err := models.Encode(models.MsgWelcome, models.JoinResponse{
		PlayerID: player.ID,
		Token:    player.Token,
		UDPPort:  s.udpPort(),
		Width:    s.cfg.Width,
		Height:   s.cfg.Height,
		Mode:     s.cfg.Mode,
	})
	if err != nil {
		s.logger.Printf("error marshalling welcome: %v", err)
		s.sessions.Remove(player.ID, "handshake failed")
		return
	}
	if err := client.sendNow(welcome); err != nil {
		s.logger.Printf("error sending welcome to player %d: %v", player.ID, err)
		s.sessions.Remove(player.ID, "handshake failed")
		return
	}
	// Frames queued since Admit, the roster among them, follow the welcome.
	go client.WritePump()
	client.ReadPump(func(message []byte) {
		s.handleMessage(client, message)
	})
	s.sessions.Remove(player.ID, "connection closed")
}

func readJoin(conn *websocket.Conn) (models.JoinRequest, error) {
	conn.SetReadLimit(models.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(joinWait))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return models.JoinRequest{}, err
	}
	env, err := models.DecodeEnvelope(message)
	if err != nil {
		return models.JoinRequest{}, err
	}
	if env.Type != models.MsgJoin {
		return models.JoinRequest{}, models.ErrMalformedMessage
	}
	return models.DecodePayload[models.JoinRequest](env)
}

func (s *Server) reject(client *Client, cause error) {
	frame, err := models.Encode(models.MsgError, models.JoinResponse{
		Error:   models.Reason(cause),
		Message: cause.Error(),
	})
	if err == nil {
		_ = client.write(websocket.TextMessage, frame)
	}
	_ = client.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, models.Reason(cause)))
	client.Conn.Close()
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
