package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Network   NetworkConfig   `toml:"network"`
	Game      GameConfig      `toml:"game"`
	Scripting ScriptingConfig `toml:"scripting"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type NetworkConfig struct {
	BindAddress      string        `toml:"bind_address"`
	Port             int           `toml:"port"`
	WebSocketPort    int           `toml:"websocket_port"` // 0 disables the websocket listener
	MaxPeers         int           `toml:"max_peers"`
	InQueueSize      int           `toml:"in_queue_size"`
	OutQueueSize     int           `toml:"out_queue_size"`
	MaxEventsPerPoll int           `toml:"max_events_per_poll"`
	WriteTimeout     time.Duration `toml:"write_timeout"`
	ReadTimeout      time.Duration `toml:"read_timeout"`
	PingInterval     time.Duration `toml:"ping_interval"`
}

type GameConfig struct {
	MapPath        string        `toml:"map"`
	TicksPerSecond uint32        `toml:"ticks_per_second"`
	RespawnTime    time.Duration `toml:"respawn_time"`
	MaxNameLength  int           `toml:"max_name_length"`
}

type ScriptingConfig struct {
	Dir string `toml:"dir"`
}

// DatabaseConfig configures the optional results ledger. An empty DSN
// disables it.
type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	QueueSize       int           `toml:"queue_size"`
}

func (d DatabaseConfig) Enabled() bool { return d.DSN != "" }

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// TCPAddr is the listen address of the TCP transport.
func (n NetworkConfig) TCPAddr() string {
	return net.JoinHostPort(n.BindAddress, strconv.Itoa(n.Port))
}

// WebSocketAddr is the listen address of the websocket transport.
func (n NetworkConfig) WebSocketAddr() string {
	return net.JoinHostPort(n.BindAddress, strconv.Itoa(n.WebSocketPort))
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Network.Port <= 0 || c.Network.Port > 65535 {
		errs = append(errs, fmt.Errorf("network.port %d out of range", c.Network.Port))
	}
	if c.Network.WebSocketPort < 0 || c.Network.WebSocketPort > 65535 {
		errs = append(errs, fmt.Errorf("network.websocket_port %d out of range", c.Network.WebSocketPort))
	}
	if c.Network.MaxPeers <= 0 {
		errs = append(errs, errors.New("network.max_peers must be positive"))
	}
	if c.Game.TicksPerSecond == 0 {
		errs = append(errs, errors.New("game.ticks_per_second must be positive"))
	}
	if c.Game.MapPath == "" {
		errs = append(errs, errors.New("game.map is required"))
	}
	if c.Game.MaxNameLength <= 0 {
		errs = append(errs, errors.New("game.max_name_length must be positive"))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "catch",
		},
		Network: NetworkConfig{
			BindAddress:      "0.0.0.0",
			Port:             2338,
			WebSocketPort:    2339,
			MaxPeers:         32,
			InQueueSize:      128,
			OutQueueSize:     256,
			MaxEventsPerPoll: 256,
			WriteTimeout:     10 * time.Second,
			ReadTimeout:      60 * time.Second,
			PingInterval:     time.Second,
		},
		Game: GameConfig{
			MapPath:        "data/maps/arena.yaml",
			TicksPerSecond: 64,
			RespawnTime:    5 * time.Second,
			MaxNameLength:  32,
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			QueueSize:       256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
