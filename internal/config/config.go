// Package config loads Mentor's YAML configuration with sensible
// defaults: a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all Mentor configuration.
type Config struct {
	// DataDir is where the SQLite database lives.
	DataDir string `yaml:"data_dir"`

	// Context assembly knobs.
	Context ContextConfig `yaml:"context"`

	// Training pipeline knobs.
	Training TrainingConfig `yaml:"training"`
}

// ContextConfig configures the context assembly engine.
type ContextConfig struct {
	// MaxTokens is the default token budget for assembled context.
	MaxTokens int `yaml:"max_tokens"`

	// CharsPerToken is the character-to-token ratio used for budget
	// estimation. An approximation, not a tokenizer.
	CharsPerToken int `yaml:"chars_per_token"`

	// MaxDepth caps graph traversal depth.
	MaxDepth int `yaml:"max_depth"`
}

// TrainingConfig configures the training pipeline.
type TrainingConfig struct {
	// RecentLessons is how many approved lessons training context pulls in.
	RecentLessons int `yaml:"recent_lessons"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir: filepath.Join(home, ".mentor"),
		Context: ContextConfig{
			MaxTokens:     8000,
			CharsPerToken: 4,
			MaxDepth:      5,
		},
		Training: TrainingConfig{
			RecentLessons: 5,
		},
	}
}

// Load reads the config file at path, layering it over the defaults.
// An empty path means <data_dir>/config.yaml; a missing file yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg.normalize(), nil
}

// normalize backfills zero values left by a partial config file.
func (c Config) normalize() Config {
	def := Default()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Context.MaxTokens <= 0 {
		c.Context.MaxTokens = def.Context.MaxTokens
	}
	if c.Context.CharsPerToken <= 0 {
		c.Context.CharsPerToken = def.Context.CharsPerToken
	}
	if c.Context.MaxDepth <= 0 {
		c.Context.MaxDepth = def.Context.MaxDepth
	}
	if c.Training.RecentLessons <= 0 {
		c.Training.RecentLessons = def.Training.RecentLessons
	}
	return c
}
