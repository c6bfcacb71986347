package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds all configuration for the regeneration daemon.
type Server struct {
	LogLevel string `yaml:"log_level"`

	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Block regeneration definitions (JSON)
	BlocksPath string `yaml:"blocks_path"`

	// Bridge
	BridgeTokenHash string `yaml:"bridge_token_hash"` // bcrypt hash; empty disables auth

	// Tickers
	RespawnPollInterval   time.Duration `yaml:"respawn_poll_interval"`   // base cadence, gated by respawnTickMillis
	PlacementPollInterval time.Duration `yaml:"placement_poll_interval"` // pending placement cadence

	Journal JournalConfig `yaml:"journal"`
}

// JournalConfig selects the event journal backend.
type JournalConfig struct {
	Driver     string         `yaml:"driver"` // "", "sqlite" or "postgres"
	Path       string         `yaml:"path"`   // sqlite file
	Database   DatabaseConfig `yaml:"database"`
	BufferSize int            `yaml:"buffer_size"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		LogLevel:              "info",
		BindAddress:           "127.0.0.1",
		Port:                  7850,
		BlocksPath:            "config/BlockRegen/blocks.json",
		RespawnPollInterval:   100 * time.Millisecond,
		PlacementPollInterval: 50 * time.Millisecond,
		Journal: JournalConfig{
			Path:       "data/regen_journal.db",
			BufferSize: 4096,
			Database: DatabaseConfig{
				Host:     "127.0.0.1",
				Port:     5432,
				User:     "blockregen",
				Password: "blockregen",
				DBName:   "blockregen",
				SSLMode:  "disable",
			},
		},
	}
}

// LoadServer loads daemon config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.RespawnPollInterval <= 0 {
		cfg.RespawnPollInterval = 100 * time.Millisecond
	}
	if cfg.PlacementPollInterval <= 0 {
		cfg.PlacementPollInterval = 50 * time.Millisecond
	}
	if cfg.Journal.BufferSize <= 0 {
		cfg.Journal.BufferSize = 4096
	}

	return cfg, nil
}

// Addr returns host:port for the HTTP listener.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.Port)
}

// ParseLogLevel maps a config string to a slog level. Unknown values are Info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
