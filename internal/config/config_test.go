package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "psyche.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesKnownKeys(t *testing.T) {
	path := writeTempConfig(t, "# comment\nrabbitmq_host = tcp://broker:1883\nfrequence_maj_hz = 20\n; also a comment\nalpha=0.5\n")
	cfg, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MQTTBrokerURL != "tcp://broker:1883" {
		t.Fatalf("expected broker url override, got %q", cfg.MQTTBrokerURL)
	}
	if cfg.FrequenceMajHz != 20 {
		t.Fatalf("expected frequence_maj_hz override, got %v", cfg.FrequenceMajHz)
	}
	if cfg.Alpha != 0.5 {
		t.Fatalf("expected alpha override, got %v", cfg.Alpha)
	}
}

func TestLoadKeepsDefaultOnMalformedValue(t *testing.T) {
	def := Default()
	path := writeTempConfig(t, "frequence_maj_hz = not-a-number\n")
	cfg, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FrequenceMajHz != def.FrequenceMajHz {
		t.Fatalf("expected default preserved on malformed value, got %v", cfg.FrequenceMajHz)
	}
}

func TestLoadKeepsDefaultOnOutOfBoundsValue(t *testing.T) {
	def := Default()
	path := writeTempConfig(t, "frequence_maj_hz = 5000\n")
	cfg, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FrequenceMajHz != def.FrequenceMajHz {
		t.Fatalf("expected default preserved on out-of-bounds value, got %v", cfg.FrequenceMajHz)
	}
}

func TestLoadIgnoresUnknownKey(t *testing.T) {
	path := writeTempConfig(t, "totally_unknown_key = 1\n")
	if _, err := Load(path, testLogger()); err != nil {
		t.Fatalf("load should not fail on unknown key: %v", err)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.conf"), testLogger()); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
