package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/net/netutil"

	"github.com/4cecoder/snakearena/config"
	"github.com/4cecoder/snakearena/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if config.RequiresPassword(cfg.Host) && cfg.Password == "" {
		cfg.Password = config.GeneratePassword()
		log.Printf("Host %s is public, generated password: %s", cfg.Host, cfg.Password)
	}

	var udpConn *net.UDPConn
	udpAddr, err := cfg.UDPAddr()
	if err == nil {
		udpConn, err = net.ListenUDP("udp", udpAddr)
	}
	if err != nil {
		log.Printf("UDP listen on %s:%d failed, snapshots will use the websocket: %v", cfg.Host, cfg.UDPPort, err)
	}

	srv := handlers.NewServer(cfg, udpConn, nil)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", srv.HandleRoot)
	r.Get("/health", srv.HandleHealth)
	r.Get("/roster", srv.HandleRoster)
	r.Get("/snapshot", srv.HandleSnapshot)
	r.Get("/protocol/schema", srv.HandleSchema)
	r.Get("/ws", srv.HandleWebSocket)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	ln = netutil.LimitListener(ln, cfg.MaxConnections)

	httpServer := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Println("error shutting down:", err)
		}
	}()

	go srv.Run(ctx)

	log.Printf("Server started on %s (udp %d)", addr, cfg.UDPPort)
	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
