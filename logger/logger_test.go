package logger

import (
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := GetLogger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := GetLogger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := GetLogger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestEntryChaining(t *testing.T) {
	log := GetLogger()
	entry := log.WithComponent("feed").WithFields(Fields{"symbol": "GGAL"})
	if entry.Entry.Data["component"] != "feed" {
		t.Fatalf("component lost in chain: %v", entry.Entry.Data)
	}
	if entry.Entry.Data["symbol"] != "GGAL" {
		t.Fatalf("field lost in chain: %v", entry.Entry.Data)
	}
}
