package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Host != "0.0.0.0" || cfg.HTTP.Port != 8080 {
		t.Fatalf("http defaults: %+v", cfg.HTTP)
	}
	if cfg.Sync.WriteTimeout != 10*time.Second {
		t.Fatalf("sync write timeout = %v", cfg.Sync.WriteTimeout)
	}
	if cfg.Sync.ReconnectMin != 250*time.Millisecond || cfg.Sync.ReconnectMax != 15*time.Second {
		t.Fatalf("reconnect window: %+v", cfg.Sync)
	}
	if cfg.Presence.ThrottleInterval != 100*time.Millisecond {
		t.Fatalf("presence throttle = %v", cfg.Presence.ThrottleInterval)
	}
	if cfg.Layout.NodeWidth != 260 || cfg.Layout.NodeHeight != 120 || cfg.Layout.RankSep != 80 || cfg.Layout.NodeSep != 40 {
		t.Fatalf("layout defaults: %+v", cfg.Layout)
	}
	if cfg.Graph.URI != "" || cfg.Graph.ArchiveInterval != time.Minute {
		t.Fatalf("graph defaults: %+v", cfg.Graph)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Fatalf("logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_WRITE_TIMEOUT", "30s")
	t.Setenv("SYNC_WRITE_TIMEOUT", "5s")
	t.Setenv("PRESENCE_THROTTLE_INTERVAL", "250ms")
	t.Setenv("LAYOUT_NODE_WIDTH", "320")
	t.Setenv("GRAPH_URI", "bolt://graph:7687")
	t.Setenv("GRAPH_MAX_CONNECTIONS", "25")
	t.Setenv("GRAPH_ARCHIVE_INTERVAL", "5m")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTP.Host != "127.0.0.1" || cfg.HTTP.Port != 9090 {
		t.Fatalf("http overrides: %+v", cfg.HTTP)
	}
	if cfg.HTTP.WriteTimeout != 30*time.Second {
		t.Fatalf("write timeout = %v", cfg.HTTP.WriteTimeout)
	}
	if cfg.Sync.WriteTimeout != 5*time.Second {
		t.Fatalf("sync write timeout = %v", cfg.Sync.WriteTimeout)
	}
	if cfg.Presence.ThrottleInterval != 250*time.Millisecond {
		t.Fatalf("presence throttle = %v", cfg.Presence.ThrottleInterval)
	}
	if cfg.Layout.NodeWidth != 320 {
		t.Fatalf("node width = %v", cfg.Layout.NodeWidth)
	}
	if cfg.Graph.URI != "bolt://graph:7687" || cfg.Graph.MaxConnections != 25 || cfg.Graph.ArchiveInterval != 5*time.Minute {
		t.Fatalf("graph overrides: %+v", cfg.Graph)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("log format = %s", cfg.Logging.Format)
	}
	if cfg.HTTP.AllowedOriginsCSV != "https://a.example.com,https://b.example.com" {
		t.Fatalf("allowed origins = %s", cfg.HTTP.AllowedOriginsCSV)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	for _, bad := range []string{"not-a-port", "0", "70000"} {
		t.Run(bad, func(t *testing.T) {
			t.Setenv("SERVER_PORT", bad)
			if _, err := Load(); err == nil {
				t.Fatalf("expected an error for port %q", bad)
			}
		})
	}
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("SERVER_READ_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a malformed duration")
	}
}

func TestParseHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("SYNC_WRITE_TIMEOUT", "-3s")
	t.Setenv("LAYOUT_NODE_WIDTH", "wide")
	t.Setenv("GRAPH_MAX_CONNECTIONS", "lots")
	t.Setenv("LOG_INCLUDE_CALLER", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sync.WriteTimeout != 10*time.Second {
		t.Fatalf("negative duration accepted: %v", cfg.Sync.WriteTimeout)
	}
	if cfg.Layout.NodeWidth != 260 {
		t.Fatalf("garbage float accepted: %v", cfg.Layout.NodeWidth)
	}
	if cfg.Graph.MaxConnections != 10 {
		t.Fatalf("garbage int accepted: %v", cfg.Graph.MaxConnections)
	}
	if cfg.Logging.IncludeCaller {
		t.Fatalf("garbage bool accepted")
	}
}
