package handlers

import (
	"context"
	"errors"
	"log"
	"net"

	"github.com/4cecoder/snakearena/models"
)

// UDPEndpoint reads the shared datagram socket. Clients register their
// address with a hello carrying the token from the welcome frame; after that
// every datagram they send counts as a heartbeat.
type UDPEndpoint struct {
	conn     *net.UDPConn
	sessions *Sessions
	logger   *log.Logger
}

func NewUDPEndpoint(conn *net.UDPConn, sessions *Sessions, logger *log.Logger) *UDPEndpoint {
	if logger == nil {
		logger = log.Default()
	}
	return &UDPEndpoint{conn: conn, sessions: sessions, logger: logger}
}

// Run reads datagrams until ctx is done or the socket fails.
func (u *UDPEndpoint) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		u.conn.Close()
	}()

	buf := make([]byte, models.MaxDatagramSize)
	for {
		n, addr, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		u.handle(addr, buf[:n])
	}
}

func (u *UDPEndpoint) handle(addr *net.UDPAddr, data []byte) {
	d, err := models.DecodeDatagram(data)
	if err != nil {
		u.logger.Printf("discarding malformed datagram from %s: %v", addr, err)
		return
	}

	switch d.Type {
	case models.DatagramHello:
		id, err := u.sessions.BindUnreliable(d.Token, addr)
		if err != nil {
			u.logger.Printf("rejecting hello from %s: %v", addr, err)
			return
		}
		ack, err := models.EncodeDatagram(models.Datagram{Type: models.DatagramHello})
		if err != nil {
			return
		}
		if _, err := u.conn.WriteToUDP(ack, addr); err != nil {
			u.logger.Printf("error acknowledging hello of player %d: %v", id, err)
		}
	default:
		if _, ok := u.sessions.HeartbeatAddr(addr); !ok {
			u.logger.Printf("discarding datagram from unregistered address %s", addr)
		}
	}
}
