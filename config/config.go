// Package config loads the agentcore YAML configuration and turns it
// into session and reasoner settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/martinemde/agentcore/agentloop"
	"github.com/martinemde/agentcore/loopdetect"
)

// Config represents the full agentcore.yaml configuration.
type Config struct {
	Reasoner ReasonerConfig `yaml:"reasoner"`
	Loop     LoopConfig     `yaml:"loop"`
	Detector DetectorConfig `yaml:"detector"`
}

// ReasonerConfig selects the model backing the loop.
type ReasonerConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	MaxRetries  int     `yaml:"max_retries"`
}

// LoopConfig bounds the execution loop.
type LoopConfig struct {
	MaxIterations           int    `yaml:"max_iterations"`
	DetectorCadence         int    `yaml:"detector_cadence"`
	ErrorWindow             int    `yaml:"error_window"`
	ErrorThreshold          int    `yaml:"error_threshold"`
	DefaultCommandTimeoutMs int    `yaml:"default_command_timeout_ms"`
	MaxCommandTimeoutMs     int    `yaml:"max_command_timeout_ms"`
	MaxSubSessionDepth      int    `yaml:"max_sub_session_depth"`
	SystemPrompt            string `yaml:"system_prompt"`
}

// DetectorConfig tunes repetition detection.
type DetectorConfig struct {
	MaxHistorySize          int           `yaml:"max_history_size"`
	ExactRepeatThreshold    int           `yaml:"exact_repeat_threshold"`
	AlternatingThreshold    int           `yaml:"alternating_threshold"`
	ParameterCycleThreshold int           `yaml:"parameter_cycle_threshold"`
	TimeWindow              time.Duration `yaml:"time_window"`
}

// Load reads and parses an agentcore.yaml file, applying defaults and
// validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses raw YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration an empty file would produce.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Reasoner.Provider == "" {
		cfg.Reasoner.Provider = "anthropic"
	}
	if cfg.Reasoner.MaxTokens == 0 {
		cfg.Reasoner.MaxTokens = 4096
	}
	if cfg.Reasoner.Temperature == 0 {
		cfg.Reasoner.Temperature = 0.2
	}
	if cfg.Reasoner.MaxRetries == 0 {
		cfg.Reasoner.MaxRetries = 2
	}

	session := agentloop.DefaultSessionConfig()
	if cfg.Loop.MaxIterations == 0 {
		cfg.Loop.MaxIterations = session.MaxIterations
	}
	if cfg.Loop.DetectorCadence == 0 {
		cfg.Loop.DetectorCadence = session.DetectorCadence
	}
	if cfg.Loop.ErrorWindow == 0 {
		cfg.Loop.ErrorWindow = session.ErrorWindow
	}
	if cfg.Loop.ErrorThreshold == 0 {
		cfg.Loop.ErrorThreshold = session.ErrorThreshold
	}
	if cfg.Loop.DefaultCommandTimeoutMs == 0 {
		cfg.Loop.DefaultCommandTimeoutMs = session.DefaultCommandTimeoutMs
	}
	if cfg.Loop.MaxCommandTimeoutMs == 0 {
		cfg.Loop.MaxCommandTimeoutMs = session.MaxCommandTimeoutMs
	}
	if cfg.Loop.MaxSubSessionDepth == 0 {
		cfg.Loop.MaxSubSessionDepth = session.MaxSubSessionDepth
	}

	detector := loopdetect.DefaultConfig()
	if cfg.Detector.MaxHistorySize == 0 {
		cfg.Detector.MaxHistorySize = detector.MaxHistorySize
	}
	if cfg.Detector.ExactRepeatThreshold == 0 {
		cfg.Detector.ExactRepeatThreshold = detector.ExactRepeatThreshold
	}
	if cfg.Detector.AlternatingThreshold == 0 {
		cfg.Detector.AlternatingThreshold = detector.AlternatingThreshold
	}
	if cfg.Detector.ParameterCycleThreshold == 0 {
		cfg.Detector.ParameterCycleThreshold = detector.ParameterCycleThreshold
	}
	if cfg.Detector.TimeWindow == 0 {
		cfg.Detector.TimeWindow = detector.TimeWindow
	}
}

// Validate checks a Config for logical errors.
func Validate(cfg *Config) error {
	switch cfg.Reasoner.Provider {
	case "anthropic", "openai", "ollama", "groq", "mistral":
	default:
		return fmt.Errorf("reasoner.provider %q is not supported", cfg.Reasoner.Provider)
	}
	if cfg.Reasoner.Temperature < 0 || cfg.Reasoner.Temperature > 2 {
		return fmt.Errorf("reasoner.temperature must be 0-2, got %g", cfg.Reasoner.Temperature)
	}
	if cfg.Reasoner.MaxRetries < 0 {
		return fmt.Errorf("reasoner.max_retries must be >= 0, got %d", cfg.Reasoner.MaxRetries)
	}

	if cfg.Loop.MaxIterations < 1 {
		return fmt.Errorf("loop.max_iterations must be >= 1, got %d", cfg.Loop.MaxIterations)
	}
	if cfg.Loop.DetectorCadence < 1 {
		return fmt.Errorf("loop.detector_cadence must be >= 1, got %d", cfg.Loop.DetectorCadence)
	}
	if cfg.Loop.ErrorThreshold < 1 || cfg.Loop.ErrorThreshold > cfg.Loop.ErrorWindow {
		return fmt.Errorf("loop.error_threshold must be 1-%d, got %d", cfg.Loop.ErrorWindow, cfg.Loop.ErrorThreshold)
	}
	if cfg.Loop.MaxCommandTimeoutMs < cfg.Loop.DefaultCommandTimeoutMs {
		return fmt.Errorf("loop.max_command_timeout_ms (%d) must be >= loop.default_command_timeout_ms (%d)",
			cfg.Loop.MaxCommandTimeoutMs, cfg.Loop.DefaultCommandTimeoutMs)
	}
	if cfg.Loop.MaxSubSessionDepth < 0 {
		return fmt.Errorf("loop.max_sub_session_depth must be >= 0, got %d", cfg.Loop.MaxSubSessionDepth)
	}

	return cfg.DetectorConfig().Validate()
}

// SessionConfig converts the loaded config into session settings.
func (c *Config) SessionConfig() agentloop.SessionConfig {
	session := agentloop.DefaultSessionConfig()
	session.MaxIterations = c.Loop.MaxIterations
	session.DetectorCadence = c.Loop.DetectorCadence
	session.ErrorWindow = c.Loop.ErrorWindow
	session.ErrorThreshold = c.Loop.ErrorThreshold
	session.DefaultCommandTimeoutMs = c.Loop.DefaultCommandTimeoutMs
	session.MaxCommandTimeoutMs = c.Loop.MaxCommandTimeoutMs
	session.MaxSubSessionDepth = c.Loop.MaxSubSessionDepth
	session.SystemPrompt = c.Loop.SystemPrompt
	session.Detector = c.DetectorConfig()
	return session
}

// DetectorConfig converts the detector section.
func (c *Config) DetectorConfig() loopdetect.Config {
	return loopdetect.Config{
		MaxHistorySize:          c.Detector.MaxHistorySize,
		ExactRepeatThreshold:    c.Detector.ExactRepeatThreshold,
		AlternatingThreshold:    c.Detector.AlternatingThreshold,
		ParameterCycleThreshold: c.Detector.ParameterCycleThreshold,
		TimeWindow:              c.Detector.TimeWindow,
	}
}
