// Package config loads match and server settings from the environment.
package config

import (
	"fmt"
	"log"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/4cecoder/snakearena/models"
)

const (
	MaxPlayers     = 10
	minBoardWidth  = 10
	minBoardHeight = 10
)

// speedTiers maps the speed setting to the tick period.
var speedTiers = map[string]time.Duration{
	"normal": 150 * time.Millisecond,
	"fast":   50 * time.Millisecond,
	"ultra":  20 * time.Millisecond,
}

type Config struct {
	Host             string
	Port             int
	UDPPort          int
	Mode             models.Mode
	Speed            string
	TickPeriod       time.Duration
	Walls            bool
	Width            int
	Height           int
	Password         string
	Seed             int64
	HeartbeatTimeout time.Duration
	ReapInterval     time.Duration
	JoinRateLimit    int
	JoinRateWindow   time.Duration
	MessageRateLimit int
	MaxConnections   int
	BombSpeed        int
}

func Default() Config {
	return Config{
		Host:             "0.0.0.0",
		Port:             5555,
		UDPPort:          5556,
		Mode:             models.ModeClassic,
		Speed:            "normal",
		TickPeriod:       speedTiers["normal"],
		Walls:            true,
		Width:            80,
		Height:           24,
		HeartbeatTimeout: 10 * time.Second,
		ReapInterval:     time.Second,
		JoinRateLimit:    5,
		JoinRateWindow:   10 * time.Second,
		MessageRateLimit: 30,
		MaxConnections:   50,
		BombSpeed:        3,
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(err)
	}
	cfg := FromEnv(os.Getenv, log.Default())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// FromEnv builds a Config from getenv. Unparseable values are logged and the
// default is kept.
func FromEnv(getenv func(string) string, logger *log.Logger) Config {
	if logger == nil {
		logger = log.Default()
	}
	cfg := Default()
	cfg.Seed = time.Now().UnixNano()

	if v := getenv("HOST"); v != "" {
		cfg.Host = v
	}
	cfg.Port = envInt(getenv, logger, "PORT", cfg.Port)
	cfg.UDPPort = envInt(getenv, logger, "UDP_PORT", cfg.Port+1)
	if v := getenv("SNAKE_MODE"); v != "" {
		cfg.Mode = models.Mode(strings.ToLower(v))
	}
	if v := getenv("SNAKE_SPEED"); v != "" {
		cfg.Speed = strings.ToLower(v)
	}
	if period, err := SpeedPeriod(cfg.Speed); err == nil {
		cfg.TickPeriod = period
	}
	if v := getenv("SNAKE_WALLS"); v != "" {
		if walls, err := strconv.ParseBool(v); err == nil {
			cfg.Walls = walls
		} else {
			logger.Printf("invalid SNAKE_WALLS=%q: %v", v, err)
		}
	}
	cfg.Width = envInt(getenv, logger, "SNAKE_WIDTH", cfg.Width)
	cfg.Height = envInt(getenv, logger, "SNAKE_HEIGHT", cfg.Height)
	cfg.Password = getenv("SNAKE_PASSWORD")
	if v := getenv("SNAKE_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
		} else {
			logger.Printf("invalid SNAKE_SEED=%q: %v", v, err)
		}
	}
	cfg.HeartbeatTimeout = envDuration(getenv, logger, "HEARTBEAT_TIMEOUT", cfg.HeartbeatTimeout)
	cfg.ReapInterval = envDuration(getenv, logger, "REAP_INTERVAL", cfg.ReapInterval)
	cfg.JoinRateLimit = envInt(getenv, logger, "JOIN_RATE_LIMIT", cfg.JoinRateLimit)
	cfg.JoinRateWindow = envDuration(getenv, logger, "JOIN_RATE_WINDOW", cfg.JoinRateWindow)
	cfg.MessageRateLimit = envInt(getenv, logger, "MESSAGE_RATE_LIMIT", cfg.MessageRateLimit)
	cfg.MaxConnections = envInt(getenv, logger, "MAX_CONNECTIONS", cfg.MaxConnections)
	cfg.BombSpeed = envInt(getenv, logger, "BOMB_SPEED", cfg.BombSpeed)
	return cfg
}

func (c Config) Validate() error {
	if c.Mode != models.ModeClassic && c.Mode != models.ModeKurve {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if _, err := SpeedPeriod(c.Speed); err != nil {
		return err
	}
	if c.Width < minBoardWidth || c.Height < minBoardHeight {
		return fmt.Errorf("board %dx%d is smaller than %dx%d", c.Width, c.Height, minBoardWidth, minBoardHeight)
	}
	if c.Port <= 0 || c.Port > 65535 || c.UDPPort <= 0 || c.UDPPort > 65535 {
		return fmt.Errorf("invalid ports %d/%d", c.Port, c.UDPPort)
	}
	if c.BombSpeed < 1 {
		return fmt.Errorf("bomb speed must be positive, got %d", c.BombSpeed)
	}
	return nil
}

// SpeedPeriod maps a speed tier to its tick period.
func SpeedPeriod(tier string) (time.Duration, error) {
	period, ok := speedTiers[tier]
	if !ok {
		return 0, fmt.Errorf("unknown speed %q", tier)
	}
	return period, nil
}

// RequiresPassword reports whether a server bound to host must authenticate
// joins. Binding every interface counts as public.
func RequiresPassword(host string) bool {
	return !IsPrivateHost(host)
}

// GeneratePassword returns a random 32 character hex password.
func GeneratePassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// UDPAddr is the bind address of the unreliable channel. localhost binds
// the loopback interface, matching IsPrivateHost.
func (c Config) UDPAddr() (*net.UDPAddr, error) {
	host := c.Host
	if host == "localhost" {
		host = "127.0.0.1"
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(c.UDPPort)))
	if err != nil {
		return nil, fmt.Errorf("resolve udp bind address: %w", err)
	}
	return addr, nil
}

func IsPrivateHost(host string) bool {
	if host == "localhost" {
		return true
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	if addr.IsUnspecified() {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate()
}

func envInt(getenv func(string) string, logger *log.Logger, key string, fallback int) int {
	raw := getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Printf("invalid %s=%q: %v", key, raw, err)
		return fallback
	}
	return value
}

func envDuration(getenv func(string) string, logger *log.Logger, key string, fallback time.Duration) time.Duration {
	raw := getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		logger.Printf("invalid %s=%q: %v", key, raw, err)
		return fallback
	}
	return value
}
