package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries everything the CLI needs to reach the acquisition engine
// and seed an initial filter set. Precedence is flags > environment >
// config file > defaults; the file and environment layers only fill fields
// the caller has not already set.
type Config struct {
	EngineURL    string
	Timeout      time.Duration
	OutputDir    string
	Verbose      bool
	EstimateOnly bool

	// Optional filter seeds for scripted runs; zero means unset.
	TaxonID int
	PlaceID int
	UserID  int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		EngineURL: "http://127.0.0.1:8765",
		Timeout:   30 * time.Second,
		OutputDir: ".",
	}
}

// yamlConfig mirrors Config for file loading, with the timeout as a
// duration string.
type yamlConfig struct {
	EngineURL string `yaml:"engine_url"`
	Timeout   string `yaml:"timeout"`
	OutputDir string `yaml:"output_dir"`
	Verbose   bool   `yaml:"verbose"`
	TaxonID   int    `yaml:"taxon_id"`
	PlaceID   int    `yaml:"place_id"`
	UserID    int    `yaml:"user_id"`
}

// ApplyFile overlays values from a YAML config file.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if yc.EngineURL != "" {
		c.EngineURL = yc.EngineURL
	}
	if yc.Timeout != "" {
		timeout, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout in config file: %w", err)
		}
		c.Timeout = timeout
	}
	if yc.OutputDir != "" {
		c.OutputDir = yc.OutputDir
	}
	if yc.Verbose {
		c.Verbose = true
	}
	if yc.TaxonID != 0 {
		c.TaxonID = yc.TaxonID
	}
	if yc.PlaceID != 0 {
		c.PlaceID = yc.PlaceID
	}
	if yc.UserID != 0 {
		c.UserID = yc.UserID
	}
	return nil
}

// ApplyEnv overlays OBSARC_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := envOrEmpty("OBSARC_ENGINE_URL"); v != "" {
		c.EngineURL = v
	}
	if v := envOrEmpty("OBSARC_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid OBSARC_TIMEOUT: %w", err)
		}
		c.Timeout = timeout
	}
	if v := envOrEmpty("OBSARC_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if envTruthy("OBSARC_VERBOSE") {
		c.Verbose = true
	}
	for _, seed := range []struct {
		key  string
		dest *int
	}{
		{"OBSARC_TAXON_ID", &c.TaxonID},
		{"OBSARC_PLACE_ID", &c.PlaceID},
		{"OBSARC_USER_ID", &c.UserID},
	} {
		v := envOrEmpty(seed.key)
		if v == "" {
			continue
		}
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", seed.key, err)
		}
		*seed.dest = id
	}
	return nil
}

// Validate checks the assembled configuration.
func (c Config) Validate() error {
	if c.EngineURL == "" {
		return errors.New("engine URL is required")
	}
	parsed, err := url.Parse(c.EngineURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid engine URL %q", c.EngineURL)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}
	return nil
}

func envOrEmpty(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envTruthy(key string) bool {
	val := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	return val == "1" || val == "true" || val == "yes" || val == "y"
}
