// Package config loads turnmesh configuration.
//
// Configuration comes from an optional YAML file layered over Default, then
// from a fixed set of environment variables, then Validate runs. Durations
// are written as Go duration strings ("30s").
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/turnmesh/logging"
)

// Provider names a model backend.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	// ProviderMock echoes the prompt back; useful for local runs without keys.
	ProviderMock Provider = "mock"
)

// Environment variables consulted by Load.
const (
	EnvGoogleAPIKey  = "GOOGLE_API_KEY"
	EnvGoogleModel   = "GOOGLE_LLM_MODEL"
	EnvHistoryLimit  = "CHAT_HISTORY_LIMIT"
	EnvGeoflipAPIKey = "GEOFLIP_API_KEY"
	EnvGeoflipURL    = "GEOFLIP_API_URL"
	EnvProvider      = "TURNMESH_PROVIDER"
	EnvStorePath     = "TURNMESH_STORE_PATH"
)

// DefaultInstructions is the system instructions template for the map
// assistant. It is rendered with the request environment and user_id.
const DefaultInstructions = `You are a helpful map assistant.
Use the available tools to look up places, weather and to change what the map shows.
When you place a marker or change the map data, call the matching tool instead of describing the change.`

// Config is the complete turnmesh configuration.
type Config struct {
	// Provider selects the model backend.
	Provider Provider `yaml:"provider"`

	Model   ModelConfig   `yaml:"model"`
	Store   StoreConfig   `yaml:"store"`
	History HistoryConfig `yaml:"history"`
	Loop    LoopConfig    `yaml:"loop"`
	Tools   ToolsConfig   `yaml:"tools"`
	Log     LogConfig     `yaml:"log"`
}

// ModelConfig configures the model client.
type ModelConfig struct {
	// Name is the provider specific model id. Empty selects the provider default.
	Name string `yaml:"name"`
	// APIKey is passed to the provider SDK. Empty lets the SDK read its own
	// environment variable.
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// StoreConfig configures the turn store.
type StoreConfig struct {
	// Path is the SQLite database file. Empty keeps history in memory.
	Path     string `yaml:"path"`
	PoolSize int    `yaml:"pool_size"`
}

// HistoryConfig configures context assembly and retention.
type HistoryConfig struct {
	// WindowSize is the number of stored turns sent to the model.
	WindowSize int `yaml:"window_size"`
	// MaxStoredTurns is the per-user retention cap. Zero keeps everything.
	MaxStoredTurns int `yaml:"max_stored_turns"`
}

// LoopConfig configures the orchestration loop.
type LoopConfig struct {
	// MaxIterations bounds model calls per request. It must be positive.
	MaxIterations int `yaml:"max_iterations"`
	// ToolTimeout bounds each backend tool call, e.g. "30s".
	ToolTimeout string `yaml:"tool_timeout"`
	// Instructions is the system instructions template.
	Instructions string `yaml:"instructions"`
}

// ToolsConfig configures the geo tool set.
type ToolsConfig struct {
	PlacesAPIKey  string `yaml:"places_api_key"`
	PlacesURL     string `yaml:"places_url"`
	GeoflipAPIKey string `yaml:"geoflip_api_key"`
	GeoflipURL    string `yaml:"geoflip_url"`
	Forecast      string `yaml:"forecast"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderGemini,
		Model: ModelConfig{
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		History: HistoryConfig{
			WindowSize:     20,
			MaxStoredTurns: 100,
		},
		Loop: LoopConfig{
			MaxIterations: 10,
			ToolTimeout:   "30s",
			Instructions:  DefaultInstructions,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from Default, the YAML file at path (skipped when path
// is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays the environment. The provider is applied first so the
// Google variables only touch a Gemini setup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvProvider); ok && v != "" {
		c.Provider = Provider(strings.ToLower(strings.TrimSpace(v)))
	}

	if v, ok := lookup(EnvGoogleAPIKey); ok && v != "" {
		if c.Provider == ProviderGemini && c.Model.APIKey == "" {
			c.Model.APIKey = v
		}
		if c.Tools.PlacesAPIKey == "" {
			c.Tools.PlacesAPIKey = v
		}
	}

	if v, ok := lookup(EnvGoogleModel); ok && v != "" && c.Provider == ProviderGemini {
		c.Model.Name = v
	}

	if v, ok := lookup(EnvHistoryLimit); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHistoryLimit, err)
		}
		c.History.WindowSize = n
	}

	if v, ok := lookup(EnvGeoflipAPIKey); ok && v != "" {
		c.Tools.GeoflipAPIKey = v
	}
	if v, ok := lookup(EnvGeoflipURL); ok && v != "" {
		c.Tools.GeoflipURL = v
	}
	if v, ok := lookup(EnvStorePath); ok {
		c.Store.Path = v
	}

	return nil
}

// Validate checks the configuration for errors. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}

	if c.History.WindowSize <= 0 {
		errs = append(errs, fmt.Errorf("history.window_size must be positive, got %d", c.History.WindowSize))
	}
	if c.History.MaxStoredTurns < 0 {
		errs = append(errs, fmt.Errorf("history.max_stored_turns must not be negative, got %d", c.History.MaxStoredTurns))
	}
	if c.Loop.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("loop.max_iterations must be positive, got %d", c.Loop.MaxIterations))
	}
	if _, err := c.ToolTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "" && c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ToolTimeout parses Loop.ToolTimeout. An empty value means no timeout.
func (c *Config) ToolTimeout() (time.Duration, error) {
	if c.Loop.ToolTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Loop.ToolTimeout)
	if err != nil {
		return 0, fmt.Errorf("loop.tool_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("loop.tool_timeout must not be negative, got %s", d)
	}
	return d, nil
}

// Logger builds the structured logger described by Log.
func (c *Config) Logger() *logging.StructuredLogger {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.NewSlogLogger(level, c.Log.Format, false)
}
