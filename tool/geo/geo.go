// Package geo ships the map assistant tool set: a weather lookup, Google
// Places search and Geoflip buffering on the backend, plus the marker and
// map data tools executed by the web client.
package geo

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/turnmesh/tool"
)

// MapDataKey is the environment key under which the client supplies the
// GeoJSON currently shown on the map.
const MapDataKey = "map_data"

const (
	// DefaultPlacesURL is the Google Places text search endpoint.
	DefaultPlacesURL = "https://maps.googleapis.com/maps/api/place/textsearch/json"
	// DefaultForecast is returned by get_weather.
	DefaultForecast = "Sunny with a chance of rain 25 degrees Celsius"
	// DefaultRadius is the search radius in meters used with a location bias.
	DefaultRadius = 50000
)

// Config configures the tool set.
type Config struct {
	// PlacesAPIKey authenticates Google Places requests.
	PlacesAPIKey string
	// PlacesURL overrides the Places endpoint (tests).
	PlacesURL string
	// GeoflipAPIKey authenticates Geoflip requests.
	GeoflipAPIKey string
	// GeoflipURL is the Geoflip base URL; buffer_features is only registered
	// when it is set.
	GeoflipURL string
	// Forecast overrides the canned weather text.
	Forecast string
	// HTTPClient is used for all outbound calls. Defaults to a client with a
	// 30s timeout.
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.PlacesURL == "" {
		c.PlacesURL = DefaultPlacesURL
	}
	if c.Forecast == "" {
		c.Forecast = DefaultForecast
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

// BackendTools returns the server side tools for cfg.
func BackendTools(cfg Config) []tool.Tool {
	cfg = cfg.withDefaults()

	tools := []tool.Tool{
		NewWeatherTool(cfg.Forecast),
		NewPlacesTool(cfg.HTTPClient, cfg.PlacesURL, cfg.PlacesAPIKey),
	}
	if cfg.GeoflipURL != "" {
		tools = append(tools, NewBufferTool(cfg.HTTPClient, cfg.GeoflipURL, cfg.GeoflipAPIKey))
	}
	return tools
}

// FrontendTools returns the client executed tools.
func FrontendTools() []tool.Tool {
	return []tool.Tool{NewAddMarkerTool(), NewUpdateMapDataTool()}
}

// Register adds the whole tool set to b.
func Register(b *tool.RegistryBuilder, cfg Config) error {
	if err := b.Backend(BackendTools(cfg)...); err != nil {
		return fmt.Errorf("register geo backend tools: %w", err)
	}
	if err := b.Frontend(FrontendTools()...); err != nil {
		return fmt.Errorf("register geo frontend tools: %w", err)
	}
	return nil
}

func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
