package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `mqtt:
  broker: "tcp://localhost:1883"
  client_id: "tapctl-test"
  username: "user"
  password: "pass"
registry:
  driver: "sqlite"
  path: "/tmp/devices.db"
telemetry:
  url: "http://localhost:8086"
  token: "secret"
  org: "grid"
  bucket: "telemetry"
  scales:
    voltage: 0.01
control:
  response_timeout_seconds: 30
  poll_interval_seconds: 2
metrics:
  prometheus_enabled: true
  prometheus_addr: ":9100"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "tapctl-test"},
		{"registry.driver", cfg.Registry.Driver, "sqlite"},
		{"registry.path", cfg.Registry.Path, "/tmp/devices.db"},
		{"telemetry.url", cfg.Telemetry.URL, "http://localhost:8086"},
		{"telemetry.scale", cfg.Telemetry.Scales["voltage"], 0.01},
		{"control.timeout", cfg.Control.ResponseTimeoutSeconds, 30},
		{"control.poll", cfg.Control.PollIntervalSeconds, 2},
		{"control.rescan_default", cfg.Control.RescanIntervalSeconds, 30},
		{"metrics.prom", cfg.Metrics.PrometheusEnabled, true},
		{"metrics.addr", cfg.Metrics.PrometheusAddr, ":9100"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `mqtt:
  broker: "tcp://localhost:1883"
registry:
  driver: "memory"
telemetry:
  url: "http://localhost:8086"
  org: "grid"
  bucket: "telemetry"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TAPCTL_MQTT__BROKER", "tcp://broker:1883")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Fatalf("env override ignored, got %s", cfg.MQTT.Broker)
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	if _, err := Load("config.toml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoadRejectsBadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `mqtt:
  broker: "tcp://localhost:1883"
registry:
  driver: "postgres"
telemetry:
  url: "http://localhost:8086"
  org: "grid"
  bucket: "telemetry"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown registry driver")
	}
}
