package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP     HTTPConfig
	Sync     SyncConfig
	Presence PresenceConfig
	Layout   LayoutConfig
	Graph    GraphConfig
	Logging  LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOriginsCSV string
}

// SyncConfig governs the websocket sync channel.
type SyncConfig struct {
	WriteTimeout time.Duration
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// PresenceConfig governs the presence broadcaster.
type PresenceConfig struct {
	ThrottleInterval time.Duration
}

// LayoutConfig governs node box dimensions and graph spacing.
type LayoutConfig struct {
	NodeWidth  float64
	NodeHeight float64
	RankSep    float64
	NodeSep    float64
}

// GraphConfig describes connectivity to the archive graph database. An empty
// URI disables archiving.
type GraphConfig struct {
	URI             string
	Database        string
	Username        string
	Password        string
	MaxConnections  int
	ArchiveInterval time.Duration
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultSyncWriteTimeout = 10 * time.Second
	defaultReconnectMin     = 250 * time.Millisecond
	defaultReconnectMax     = 15 * time.Second
	defaultThrottleInterval = 100 * time.Millisecond
	defaultNodeWidth        = 260.0
	defaultNodeHeight       = 120.0
	defaultRankSep          = 80.0
	defaultNodeSep          = 40.0
	defaultArchiveInterval  = time.Minute
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:            valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Sync: SyncConfig{
			WriteTimeout: parseDurationWithDefault("SYNC_WRITE_TIMEOUT", defaultSyncWriteTimeout),
			ReconnectMin: parseDurationWithDefault("SYNC_RECONNECT_MIN", defaultReconnectMin),
			ReconnectMax: parseDurationWithDefault("SYNC_RECONNECT_MAX", defaultReconnectMax),
		},
		Presence: PresenceConfig{
			ThrottleInterval: parseDurationWithDefault("PRESENCE_THROTTLE_INTERVAL", defaultThrottleInterval),
		},
		Layout: LayoutConfig{
			NodeWidth:  parseFloatWithDefault("LAYOUT_NODE_WIDTH", defaultNodeWidth),
			NodeHeight: parseFloatWithDefault("LAYOUT_NODE_HEIGHT", defaultNodeHeight),
			RankSep:    parseFloatWithDefault("LAYOUT_RANK_SEP", defaultRankSep),
			NodeSep:    parseFloatWithDefault("LAYOUT_NODE_SEP", defaultNodeSep),
		},
		Graph: GraphConfig{
			URI:             os.Getenv("GRAPH_URI"),
			Database:        valueOrDefault("GRAPH_DATABASE", ""),
			Username:        os.Getenv("GRAPH_USERNAME"),
			Password:        os.Getenv("GRAPH_PASSWORD"),
			MaxConnections:  parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
			ArchiveInterval: parseDurationWithDefault("GRAPH_ARCHIVE_INTERVAL", defaultArchiveInterval),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	for key, dst := range map[string]*time.Duration{
		"SERVER_READ_TIMEOUT":     &cfg.HTTP.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":    &cfg.HTTP.WriteTimeout,
		"SERVER_IDLE_TIMEOUT":     &cfg.HTTP.IdleTimeout,
		"SERVER_SHUTDOWN_TIMEOUT": &cfg.HTTP.ShutdownTimeout,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	cfg.HTTP.AllowedOriginsCSV = os.Getenv("SERVER_ALLOWED_ORIGINS")

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val > 0 {
			return val
		}
	}
	return fallback
}

func parseDurationWithDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
