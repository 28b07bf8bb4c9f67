package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.EngineURL != "http://127.0.0.1:8765" {
		t.Fatalf("EngineURL = %q", cfg.EngineURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("Timeout = %v", cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestApplyFileOverlaysSetFieldsOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obsarc.yaml")
	content := "engine_url: http://engine.local:9000\ntimeout: 45s\ntaxon_id: 52391\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.ApplyFile(path); err != nil {
		t.Fatal(err)
	}

	if cfg.EngineURL != "http://engine.local:9000" {
		t.Fatalf("EngineURL = %q", cfg.EngineURL)
	}
	if cfg.Timeout != 45*time.Second {
		t.Fatalf("Timeout = %v", cfg.Timeout)
	}
	if cfg.TaxonID != 52391 {
		t.Fatalf("TaxonID = %d", cfg.TaxonID)
	}
	// Fields the file omits keep their previous values.
	if cfg.OutputDir != "." {
		t.Fatalf("OutputDir = %q", cfg.OutputDir)
	}
}

func TestApplyFileRejectsBadTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obsarc.yaml")
	if err := os.WriteFile(path, []byte("timeout: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	if err := cfg.ApplyFile(path); err == nil {
		t.Fatal("expected an error for an unparseable timeout")
	}
}

func TestApplyFileMissing(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestApplyEnvOverlays(t *testing.T) {
	t.Setenv("OBSARC_ENGINE_URL", "http://env.local:8000")
	t.Setenv("OBSARC_TIMEOUT", "1m")
	t.Setenv("OBSARC_VERBOSE", "yes")
	t.Setenv("OBSARC_USER_ID", "7780")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatal(err)
	}

	if cfg.EngineURL != "http://env.local:8000" {
		t.Fatalf("EngineURL = %q", cfg.EngineURL)
	}
	if cfg.Timeout != time.Minute {
		t.Fatalf("Timeout = %v", cfg.Timeout)
	}
	if !cfg.Verbose {
		t.Fatal("Verbose must be set")
	}
	if cfg.UserID != 7780 {
		t.Fatalf("UserID = %d", cfg.UserID)
	}
}

func TestApplyEnvRejectsBadSeed(t *testing.T) {
	t.Setenv("OBSARC_TAXON_ID", "toads")
	cfg := Default()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatal("expected an error for a non-numeric id")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty engine url", func(c *Config) { c.EngineURL = "" }},
		{"relative engine url", func(c *Config) { c.EngineURL = "engine.local" }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }},
	}
	for _, c := range cases {
		cfg := Default()
		c.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", c.name)
		}
	}
}
