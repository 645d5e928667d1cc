package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
python = "python3.12"
open_browser = false
dashboard_url = "http://localhost:9501"
settle = "500ms"
health_timeout = "10s"
monitor_interval = "2s"
grace = "5s"

[log]
dir = "logs"
max_size_mb = 5

[server]
listen = "127.0.0.1:8090"
base_path = "/api"

[history]
dsn = "sqlite://history.db"

[[services]]
name = "api"
category = "http-api"
script = "svc/main.py"
port = 8002
health_path = "/health"
description = "API"

[[services]]
name = "dash"
category = "web-dashboard"
script = "dash/app.py"
port = 8501
health_path = "/health"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Python != "python3.12" {
		t.Fatalf("python: %s", cfg.Python)
	}
	if cfg.OpenBrowser {
		t.Fatal("open_browser should be false")
	}
	if cfg.DashboardURL != "http://localhost:9501" {
		t.Fatalf("dashboard_url: %s", cfg.DashboardURL)
	}
	if cfg.Settle != 500*time.Millisecond || cfg.Grace != 5*time.Second {
		t.Fatalf("durations: settle=%v grace=%v", cfg.Settle, cfg.Grace)
	}
	if cfg.Log.Dir != "logs" || cfg.Log.MaxSizeMB != 5 {
		t.Fatalf("log config: %+v", cfg.Log)
	}
	if cfg.Server == nil || cfg.Server.Listen != "127.0.0.1:8090" {
		t.Fatalf("server config: %+v", cfg.Server)
	}
	if cfg.HistoryDSN != "sqlite://history.db" {
		t.Fatalf("history dsn: %s", cfg.HistoryDSN)
	}
	if cfg.Registry.Len() != 2 {
		t.Fatalf("services: %d", cfg.Registry.Len())
	}
	s, ok := cfg.Registry.Lookup("api")
	if !ok || s.Port != 8002 {
		t.Fatalf("api spec: ok=%v %+v", ok, s)
	}
}

func TestLoadRejectsDuplicatePortsBeforeLaunch(t *testing.T) {
	path := writeConfig(t, `
[[services]]
name = "detector"
category = "http-api"
script = "a/main.py"
port = 8002
health_path = "/health"

[[services]]
name = "engine"
category = "http-api"
script = "b/main.py"
port = 8002
health_path = "/health"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected duplicate port rejection")
	}
	if !strings.Contains(err.Error(), "port 8002") {
		t.Fatalf("error should name the port: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultsWhenFieldsOmitted(t *testing.T) {
	path := writeConfig(t, `
[[services]]
name = "only"
category = "generic-script"
script = "x.py"
port = 9000
health_path = "/health"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Python != "python3" {
		t.Fatalf("default python: %s", cfg.Python)
	}
	if !cfg.OpenBrowser {
		t.Fatal("open_browser should default to true")
	}
	if cfg.DashboardURL != "http://localhost:8501" {
		t.Fatalf("default dashboard_url: %s", cfg.DashboardURL)
	}
	if cfg.Server != nil {
		t.Fatal("server should be nil when omitted")
	}
}

func TestDefaultConfigUsesBuiltinRegistry(t *testing.T) {
	cfg := Default()
	if cfg.Registry.Len() != 4 {
		t.Fatalf("builtin registry: %d services", cfg.Registry.Len())
	}
}
