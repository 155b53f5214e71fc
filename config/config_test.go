package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Spatial.LocEpsilon != 1e-7 {
		t.Errorf("LocEpsilon = %v, want 1e-7", cfg.Spatial.LocEpsilon)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Level = %q, want INFO", cfg.Logging.Level)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("OSMGRAPH_SPATIAL_LOC_EPSILON", "0.001")
	t.Setenv("OSMGRAPH_LOG_LEVEL", "debug")
	os.Unsetenv("OSMGRAPH_HISTORY_MAX_CHECKPOINTS")

	cfg := LoadFromEnv()
	if cfg.Spatial.LocEpsilon != 0.001 {
		t.Errorf("LocEpsilon = %v, want 0.001", cfg.Spatial.LocEpsilon)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Level = %q, want DEBUG (uppercased)", cfg.Logging.Level)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osmgraph.yaml")
	contents := `
spatial:
  loc_epsilon: 0.01
  coincidence_step: 0.5
history:
  max_checkpoints: 5
  transition_steps: 20
  transition_interval: 32ms
logging:
  level: WARN
  output: /var/log/osmgraph.log
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Spatial.LocEpsilon != 0.01 {
		t.Errorf("LocEpsilon = %v, want 0.01", cfg.Spatial.LocEpsilon)
	}
	if cfg.History.MaxCheckpoints != 5 {
		t.Errorf("MaxCheckpoints = %d, want 5", cfg.History.MaxCheckpoints)
	}
	if cfg.History.TransitionInterval != 32*1000*1000 {
		t.Errorf("TransitionInterval = %v, want 32ms", cfg.History.TransitionInterval)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Level = %q, want WARN", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected file-loaded config to validate, got %v", err)
	}
}

func TestLoadFromFileOrDefaultFallsBackOnMissingFile(t *testing.T) {
	cfg := LoadFromFileOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected fallback default config to validate, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
	}{
		{"negative epsilon", func(c *Config) { c.Spatial.LocEpsilon = -1 }},
		{"zero coincidence step", func(c *Config) { c.Spatial.CoincidenceStep = 0 }},
		{"negative max checkpoints", func(c *Config) { c.History.MaxCheckpoints = -1 }},
		{"zero transition steps", func(c *Config) { c.History.TransitionSteps = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "VERBOSE" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := LoadFromEnv()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected Validate to reject the mutated config")
			}
		})
	}
}
