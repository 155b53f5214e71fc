// Package config handles configuration of the osmgraph core via
// environment variables.
//
// Like the teacher's pkg/config, every setting has a default, so
// LoadFromEnv() can be called without any environment variables set.
// Settings are prefixed OSMGRAPH_ to stay out of the way of whatever
// the embedding application already reads from the environment.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all osmgraph core configuration loaded from the
// environment, organized into spatial, history and logging sections.
type Config struct {
	Spatial SpatialConfig `yaml:"spatial"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

// SpatialConfig tunes the SpatialSystem's R-tree caches.
type SpatialConfig struct {
	// LocEpsilon is the half-width of the point-search box used by
	// getDataAtLoc/hasDataAtLoc, in world units.
	LocEpsilon float64 `yaml:"loc_epsilon"`
	// CoincidenceStep is the retry step preventCoincidentLoc nudges a
	// point by, in world units.
	CoincidenceStep float64 `yaml:"coincidence_step"`
}

// HistoryConfig tunes the EditSystem's undo history and checkpoints.
type HistoryConfig struct {
	// MaxCheckpoints caps how many named checkpoints SetCheckpoint
	// retains in memory before the oldest is evicted; 0 means unlimited.
	MaxCheckpoints int `yaml:"max_checkpoints"`
	// TransitionSteps is the number of interpolation frames
	// PerformAsync divides a Transitionable action's animation into.
	TransitionSteps int `yaml:"transition_steps"`
	// TransitionInterval is the wall-clock spacing PerformAsync waits
	// between those frames.
	TransitionInterval time.Duration `yaml:"-"`
}

// yamlHistoryConfig mirrors HistoryConfig but carries TransitionInterval
// as a parseable string ("16ms"), since yaml.v3 has no built-in
// time.Duration support.
type yamlHistoryConfig struct {
	MaxCheckpoints     int    `yaml:"max_checkpoints"`
	TransitionSteps    int    `yaml:"transition_steps"`
	TransitionInterval string `yaml:"transition_interval"`
}

// UnmarshalYAML implements yaml.Unmarshaler for HistoryConfig's
// duration field.
func (h *HistoryConfig) UnmarshalYAML(value *yaml.Node) error {
	var y yamlHistoryConfig
	if err := value.Decode(&y); err != nil {
		return err
	}
	h.MaxCheckpoints = y.MaxCheckpoints
	h.TransitionSteps = y.TransitionSteps
	if y.TransitionInterval != "" {
		d, err := time.ParseDuration(y.TransitionInterval)
		if err != nil {
			return fmt.Errorf("config: parse transition_interval %q: %w", y.TransitionInterval, err)
		}
		h.TransitionInterval = d
	}
	return nil
}

// LoggingConfig mirrors the teacher's LoggingConfig: level and output
// sink for internal/obslog.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `yaml:"level"`
	// Output is stdout, stderr, or a file path.
	Output string `yaml:"output"`
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults for anything unset.
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.Spatial.LocEpsilon = getEnvFloat("OSMGRAPH_SPATIAL_LOC_EPSILON", 1e-7)
	cfg.Spatial.CoincidenceStep = getEnvFloat("OSMGRAPH_SPATIAL_COINCIDENCE_STEP", 1e-5)

	cfg.History.MaxCheckpoints = getEnvInt("OSMGRAPH_HISTORY_MAX_CHECKPOINTS", 0)
	cfg.History.TransitionSteps = getEnvInt("OSMGRAPH_HISTORY_TRANSITION_STEPS", 10)
	cfg.History.TransitionInterval = getEnvDuration("OSMGRAPH_HISTORY_TRANSITION_INTERVAL", 16*time.Millisecond)

	cfg.Logging.Level = strings.ToUpper(getEnv("OSMGRAPH_LOG_LEVEL", "INFO"))
	cfg.Logging.Output = getEnv("OSMGRAPH_LOG_OUTPUT", "stderr")

	return cfg
}

// LoadFromFile reads a YAML config file, the on-disk counterpart to
// LoadFromEnv for deployments that prefer a checked-in config over
// environment variables.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := LoadFromEnv()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromFileOrDefault is LoadFromFile but falls back to LoadFromEnv's
// defaults instead of erroring when path cannot be read or parsed.
func LoadFromFileOrDefault(path string) *Config {
	cfg, err := LoadFromFile(path)
	if err != nil {
		return LoadFromEnv()
	}
	return cfg
}

// Validate checks the configuration for values that would make the
// SpatialSystem or EditSystem behave nonsensically.
func (c *Config) Validate() error {
	if c.Spatial.LocEpsilon <= 0 {
		return fmt.Errorf("config: spatial loc epsilon must be positive, got %v", c.Spatial.LocEpsilon)
	}
	if c.Spatial.CoincidenceStep <= 0 {
		return fmt.Errorf("config: spatial coincidence step must be positive, got %v", c.Spatial.CoincidenceStep)
	}
	if c.History.MaxCheckpoints < 0 {
		return fmt.Errorf("config: history max checkpoints cannot be negative, got %d", c.History.MaxCheckpoints)
	}
	if c.History.TransitionSteps <= 0 {
		return fmt.Errorf("config: history transition steps must be positive, got %d", c.History.TransitionSteps)
	}
	switch c.Logging.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
	return nil
}

// String returns a representation safe for logging: there are no
// secrets in this Config, so unlike the teacher's it includes everything.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Spatial: {LocEpsilon: %v, CoincidenceStep: %v}, History: {MaxCheckpoints: %d, TransitionSteps: %d, TransitionInterval: %v}, Logging: {%s, %s}}",
		c.Spatial.LocEpsilon, c.Spatial.CoincidenceStep,
		c.History.MaxCheckpoints, c.History.TransitionSteps, c.History.TransitionInterval,
		c.Logging.Level, c.Logging.Output,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
