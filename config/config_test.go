package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "turnmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvGoogleAPIKey, EnvGoogleModel, EnvHistoryLimit,
		EnvGeoflipAPIKey, EnvGeoflipURL, EnvProvider, EnvStorePath,
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, 20, cfg.History.WindowSize)
	assert.Equal(t, 100, cfg.History.MaxStoredTurns)
	assert.Equal(t, 10, cfg.Loop.MaxIterations)
	assert.Empty(t, cfg.Store.Path)

	d, err := cfg.ToolTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
provider: openai
model:
  name: gpt-4o
  temperature: 0.2
store:
  path: /tmp/turns.db
history:
  window_size: 8
  max_stored_turns: 40
loop:
  max_iterations: 4
  tool_timeout: 5s
tools:
  geoflip_url: https://geoflip.example
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model.Name)
	assert.InDelta(t, 0.2, cfg.Model.Temperature, 1e-9)
	assert.Equal(t, 4096, cfg.Model.MaxTokens)
	assert.Equal(t, "/tmp/turns.db", cfg.Store.Path)
	assert.Equal(t, 8, cfg.History.WindowSize)
	assert.Equal(t, 40, cfg.History.MaxStoredTurns)
	assert.Equal(t, 4, cfg.Loop.MaxIterations)
	assert.Equal(t, DefaultInstructions, cfg.Loop.Instructions)
	assert.Equal(t, "https://geoflip.example", cfg.Tools.GeoflipURL)
	assert.Equal(t, "json", cfg.Log.Format)

	d, err := cfg.ToolTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvGoogleAPIKey, "google-key")
	t.Setenv(EnvGoogleModel, "gemini-2.5-pro")
	t.Setenv(EnvHistoryLimit, "12")
	t.Setenv(EnvGeoflipAPIKey, "geoflip-key")
	t.Setenv(EnvGeoflipURL, "https://api.geoflip.io")
	t.Setenv(EnvStorePath, "/var/lib/turnmesh.db")

	path := writeConfig(t, "history:\n  window_size: 30\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "google-key", cfg.Model.APIKey)
	assert.Equal(t, "google-key", cfg.Tools.PlacesAPIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model.Name)
	assert.Equal(t, 12, cfg.History.WindowSize)
	assert.Equal(t, "geoflip-key", cfg.Tools.GeoflipAPIKey)
	assert.Equal(t, "https://api.geoflip.io", cfg.Tools.GeoflipURL)
	assert.Equal(t, "/var/lib/turnmesh.db", cfg.Store.Path)
}

func TestLoad_GoogleModelIgnoredForOtherProviders(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvProvider, "Anthropic")
	t.Setenv(EnvGoogleModel, "gemini-2.5-pro")
	t.Setenv(EnvGoogleAPIKey, "google-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Empty(t, cfg.Model.Name)
	assert.Empty(t, cfg.Model.APIKey)
	assert.Equal(t, "google-key", cfg.Tools.PlacesAPIKey)
}

func TestLoad_BadHistoryLimit(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvHistoryLimit, "many")

	_, err := Load("")
	assert.ErrorContains(t, err, EnvHistoryLimit)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "history: [1, 2"))
	assert.ErrorContains(t, err, "parsing config")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Provider = "llama"
	cfg.History.WindowSize = 0
	cfg.History.MaxStoredTurns = -1
	cfg.Loop.MaxIterations = -1
	cfg.Loop.ToolTimeout = "soon"
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"unknown provider",
		"history.window_size",
		"history.max_stored_turns",
		"loop.max_iterations",
		"loop.tool_timeout",
		"log.level",
		"log.format",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidate_RequiresIterationBudget(t *testing.T) {
	for _, n := range []int{0, -5} {
		cfg := Default()
		cfg.Loop.MaxIterations = n
		assert.ErrorContains(t, cfg.Validate(), "loop.max_iterations must be positive")
	}
}

func TestToolTimeout_Empty(t *testing.T) {
	cfg := Default()
	cfg.Loop.ToolTimeout = ""

	d, err := cfg.ToolTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestLogger(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg.Logger())
}
