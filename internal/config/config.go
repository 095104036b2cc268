// Package config holds prerenderer configuration.
//
// Configuration loads from environment variables (envconfig tags) or,
// for the CLI, from a YAML file. A file, when given, takes precedence
// over the environment.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all prerenderer configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LogConfig      `yaml:"logging"`
}

// PipelineConfig holds per-pipeline constants. These used to be shared
// globals in earlier designs; threading them through each pipeline
// instance keeps concurrent renders in one process from colliding.
type PipelineConfig struct {
	// DefineName is the compile-time boolean define set true for the
	// nested build and mirrored as a sandbox global.
	DefineName string `envconfig:"PRERENDER_DEFINE" default:"PRERENDER" yaml:"define"`
	// GlobalName is the binding the nested build populates with the
	// entry's export value.
	GlobalName string `envconfig:"PRERENDER_GLOBAL" default:"__PRERENDER_RESULT__" yaml:"global"`
	// BundleName is the output name of the main nested-build bundle.
	BundleName string `envconfig:"PRERENDER_BUNDLE" default:"main" yaml:"bundle"`
	// StylePluginTag selects which host plugins carry into the nested
	// build: only plugins whose name starts with this tag.
	StylePluginTag string `envconfig:"PRERENDER_STYLE_TAG" default:"style-extract" yaml:"style_tag"`
	// DocumentURL is the default sandbox document location.
	DocumentURL string `envconfig:"PRERENDER_DOCUMENT_URL" default:"http://localhost" yaml:"document_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from a YAML file on top of environment
// values. Keys present in the file win.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			DefineName:     "PRERENDER",
			GlobalName:     "__PRERENDER_RESULT__",
			BundleName:     "main",
			StylePluginTag: "style-extract",
			DocumentURL:    "http://localhost",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
