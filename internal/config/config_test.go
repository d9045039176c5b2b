package config

import (
	"strings"
	"testing"
)

// memBackend is an in-memory ConfigBackend for tests.
type memBackend struct {
	strings map[string]string
	ints    map[string]int
}

func newMemBackend() *memBackend {
	return &memBackend{strings: make(map[string]string), ints: make(map[string]int)}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error {
	m.strings[key] = val
	return nil
}

func (m *memBackend) SetInt(key string, val int) error {
	m.ints[key] = val
	return nil
}

func (m *memBackend) Delete(key string) error {
	delete(m.strings, key)
	delete(m.ints, key)
	return nil
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4600 {
		t.Errorf("Server.Port = %d, want 4600", cfg.Server.Port)
	}
	if cfg.Storage.MaxHistory != 5000 {
		t.Errorf("Storage.MaxHistory = %d, want 5000", cfg.Storage.MaxHistory)
	}
	if cfg.Reeval.Interval != "24h" {
		t.Errorf("Reeval.Interval = %q, want 24h", cfg.Reeval.Interval)
	}
	if cfg.Reeval.Workers != 4 {
		t.Errorf("Reeval.Workers = %d, want 4", cfg.Reeval.Workers)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
}

func TestBackendValues(t *testing.T) {
	b := newMemBackend()
	b.ints["server.port"] = 5000
	b.ints["storage.max_history"] = 100
	b.strings["storage.data_dir"] = "/tmp/adrpulse-test"
	b.strings["reeval.interval"] = "1h"
	b.strings["log.level"] = "debug"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Storage.MaxHistory != 100 {
		t.Errorf("Storage.MaxHistory = %d, want 100", cfg.Storage.MaxHistory)
	}
	if cfg.Storage.DataDir != "/tmp/adrpulse-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if got := cfg.ReevalInterval().Hours(); got != 1 {
		t.Errorf("ReevalInterval = %v hours, want 1", got)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestEnvOverride(t *testing.T) {
	b := newMemBackend()
	b.ints["server.port"] = 5000

	t.Setenv("ADRPULSE_SERVER_PORT", "6000")
	t.Setenv("ADRPULSE_SERVER_TOKEN", "env-token")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want the env override 6000", cfg.Server.Port)
	}
	if cfg.Server.Token != "env-token" {
		t.Errorf("Server.Token = %q, want env-token", cfg.Server.Token)
	}
}

func TestInvalidValuesRejected(t *testing.T) {
	b := newMemBackend()
	b.strings["reeval.interval"] = "fortnightly"
	if _, err := loadWith(b); err == nil {
		t.Error("expected an error for an unparseable interval")
	}

	b = newMemBackend()
	b.ints["storage.max_history"] = -1
	if _, err := loadWith(b); err == nil {
		t.Error("expected an error for a non-positive max history")
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Server.Token = "sekret"

	for _, info := range ShowAll(cfg) {
		if info.Key == "server.token" || strings.Contains(info.Value, "sekret") {
			t.Errorf("secret leaked through ShowAll: %+v", info)
		}
	}
}

func TestValidKeys(t *testing.T) {
	keys := ValidKeys()
	if len(keys) == 0 {
		t.Fatal("no valid keys")
	}
	for _, k := range keys {
		if k == "server.token" {
			t.Error("secret key listed as settable")
		}
	}
}
