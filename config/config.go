// Package config loads runtime settings from defaults, an optional YAML file
// and the environment. API keys always come from the environment last so a
// checked-in config file can never pin stale credentials.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the tunable settings for agents and the reflection controller.
type Config struct {
	// Model settings
	DefaultModel string  `yaml:"default_model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int64   `yaml:"max_tokens"`

	// Agent settings
	MaxToolTurns     int `yaml:"max_tool_turns"`
	MaxParallelTools int `yaml:"max_parallel_tools"`

	// Reflection settings
	MaxIterations    int     `yaml:"max_iterations"`
	QualityThreshold float64 `yaml:"quality_threshold"`

	// Output settings
	OutputDir string `yaml:"output_dir"`
	Verbose   bool   `yaml:"verbose"`

	// API keys (environment only, never written back to YAML)
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		DefaultModel:     "gpt-4o-mini",
		Temperature:      0.0,
		MaxToolTurns:     5,
		MaxIterations:    2,
		QualityThreshold: 9.0,
		OutputDir:        "./outputs",
	}
}

// Load builds a Config by merging, in order: defaults, the YAML file at path
// (skipped when path is empty or missing), then environment variables. A
// .env file in the working directory is loaded first when present.
func Load(path string) (Config, error) {
	// Missing .env is fine; explicit config problems are not.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to env merging with defaults.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxToolTurns <= 0 {
		return fmt.Errorf("config: max_tool_turns must be positive, got %d", c.MaxToolTurns)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("config: max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 10 {
		return fmt.Errorf("config: quality_threshold %.1f outside 0-10 scale", c.QualityThreshold)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("config: temperature %.2f outside 0-2 range", c.Temperature)
	}
	return nil
}
