package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Classifier.Threshold != 0.7 {
		t.Errorf("Threshold = %v, want 0.7", cfg.Classifier.Threshold)
	}
	if cfg.Classifier.DecayHalfLife != 168*time.Hour {
		t.Errorf("DecayHalfLife = %v, want 168h", cfg.Classifier.DecayHalfLife)
	}
	if cfg.Dispatch.ConcurrencyCeiling != 10 {
		t.Errorf("ConcurrencyCeiling = %d, want 10", cfg.Dispatch.ConcurrencyCeiling)
	}
	if cfg.Dispatch.BatchCeiling != 4 {
		t.Errorf("BatchCeiling = %d, want 4", cfg.Dispatch.BatchCeiling)
	}
	if cfg.Dispatch.SpecialistTimeout != 10*time.Second {
		t.Errorf("SpecialistTimeout = %v, want 10s", cfg.Dispatch.SpecialistTimeout)
	}
	if cfg.Resolver.CacheTTL != 300*time.Second {
		t.Errorf("CacheTTL = %v, want 300s", cfg.Resolver.CacheTTL)
	}
	if cfg.Resolver.MaxDepth != 5 {
		t.Errorf("MaxDepth = %d, want 5", cfg.Resolver.MaxDepth)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config failed validation: %v", err)
	}
}

func TestLoadFromPath_Overrides(t *testing.T) {
	path := writeConfigFile(t, `
classifier:
  threshold: 0.8
dispatch:
  concurrency_ceiling: 6
  batch_ceiling: 3
resolver:
  max_depth: 3
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Classifier.Threshold != 0.8 {
		t.Errorf("Threshold = %v, want 0.8", cfg.Classifier.Threshold)
	}
	if cfg.Dispatch.ConcurrencyCeiling != 6 {
		t.Errorf("ConcurrencyCeiling = %d, want 6", cfg.Dispatch.ConcurrencyCeiling)
	}
	if cfg.Dispatch.BatchCeiling != 3 {
		t.Errorf("BatchCeiling = %d, want 3", cfg.Dispatch.BatchCeiling)
	}
	if cfg.Resolver.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, want 3", cfg.Resolver.MaxDepth)
	}

	// Untouched keys keep defaults.
	if cfg.Dispatch.SpecialistTimeout != 10*time.Second {
		t.Errorf("SpecialistTimeout = %v, want default 10s", cfg.Dispatch.SpecialistTimeout)
	}
}

func TestLoadFromPath_InvalidConfigRejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero concurrency ceiling", "dispatch:\n  concurrency_ceiling: 0\n"},
		{"negative batch ceiling", "dispatch:\n  batch_ceiling: -1\n"},
		{"threshold above one", "classifier:\n  threshold: 1.5\n"},
		{"zero threshold", "classifier:\n  threshold: 0\n"},
		{"zero max depth", "resolver:\n  max_depth: 0\n"},
		{"zero timeout", "dispatch:\n  specialist_timeout: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			if _, err := LoadFromPath(path); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
