// Package config loads the bot's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jacokyle01/engine-bridge/models"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const DefaultURL = "https://lichess.org/"

type Engine struct {
	Dir      string `yaml:"dir"`
	Name     string `yaml:"name"`
	Weights  string `yaml:"weights,omitempty"`
	Threads  int    `yaml:"threads,omitempty"`
	Protocol string `yaml:"protocol"`
}

type Config struct {
	Token              string         `yaml:"token"`
	URL                string         `yaml:"url"`
	LogLevel           string         `yaml:"log_level"`
	MaxConcurrentGames int            `yaml:"max_concurrent_games"`
	StatusAddr         string         `yaml:"status_addr,omitempty"`
	Engine             Engine         `yaml:"engine"`
	UCIOptions         map[string]any `yaml:"ucioptions,omitempty"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MaxConcurrentGames == 0 {
		c.MaxConcurrentGames = 1
	}
	if c.Engine.Protocol == "" {
		c.Engine.Protocol = string(models.UCI)
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.Token == "" {
		errs = append(errs, errors.New("token is required"))
	}
	if c.Engine.Name == "" {
		errs = append(errs, errors.New("engine.name is required"))
	}
	if _, ok := models.ParseProtocol(c.Engine.Protocol); !ok {
		errs = append(errs, fmt.Errorf("engine.protocol %q must be uci or xboard", c.Engine.Protocol))
	}
	if c.MaxConcurrentGames < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_games must be at least 1, got %d", c.MaxConcurrentGames))
	}
	if c.Engine.Threads < 0 {
		errs = append(errs, fmt.Errorf("engine.threads must not be negative, got %d", c.Engine.Threads))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// EngineConfig resolves the engine section into launch settings.
func (c *Config) EngineConfig() models.EngineConfig {
	protocol, _ := models.ParseProtocol(c.Engine.Protocol)
	ec := models.EngineConfig{
		Path:     filepath.Join(c.Engine.Dir, c.Engine.Name),
		Threads:  c.Engine.Threads,
		Protocol: protocol,
	}
	if c.Engine.Weights != "" {
		ec.Weights = filepath.Join(c.Engine.Dir, c.Engine.Weights)
	}
	if len(c.UCIOptions) > 0 {
		ec.Options = make(map[string]string, len(c.UCIOptions))
		for k, v := range c.UCIOptions {
			ec.Options[k] = optionValue(v)
		}
	}
	return ec
}

func optionValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = optionValue(p)
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(v)
	}
}

// Level returns the configured zerolog level.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
