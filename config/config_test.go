package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for
// LoadConfig and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `service:
  name: "mercado-api"
  version: "1.0"
homebroker:
  broker_id: 284
  dni: "12345678"
  user: "test"
  password: "secret"
prefixes:
  options: ["GFG"]
  stocks: ["GGAL"]
reconnect:
  interval: 30s
  max_attempts: 5
  health_check_interval: 60s
server:
  enabled: true
  address: ":8000"
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Service.Name != "mercado-api" {
		t.Errorf("unexpected name: %s", cfg.Service.Name)
	}
	if cfg.HomeBroker.BrokerID != 284 {
		t.Errorf("unexpected broker id: %d", cfg.HomeBroker.BrokerID)
	}
	if cfg.Reconnect.StaleAfter != 5*time.Minute {
		t.Errorf("expected default stale_after, got %v", cfg.Reconnect.StaleAfter)
	}
	if cfg.Channels.QuoteBuffer != 256 {
		t.Errorf("expected default quote buffer, got %d", cfg.Channels.QuoteBuffer)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	t.Setenv("HB_OPTIONS_PREFIXES", "ALU, PAM ,")
	t.Setenv("HB_MAX_RECONNECT_ATTEMPTS", "9")
	t.Setenv("HB_RECONNECT_INTERVAL", "10s")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.Prefixes.Options) != 2 || cfg.Prefixes.Options[0] != "ALU" || cfg.Prefixes.Options[1] != "PAM" {
		t.Errorf("env prefixes not applied: %v", cfg.Prefixes.Options)
	}
	if cfg.Reconnect.MaxAttempts != 9 {
		t.Errorf("env max attempts not applied: %d", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Reconnect.Interval != 10*time.Second {
		t.Errorf("env interval not applied: %v", cfg.Reconnect.Interval)
	}
}

func TestLoadConfigMissingName(t *testing.T) {
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString("service:\n  version: \"1.0\"\n"); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatalf("expected validation error for missing service name")
	}
}
