package geo

import (
	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/tool"
)

// NewWeatherTool returns get_weather. The forecast is canned.
func NewWeatherTool(forecast string) tool.Tool {
	return tool.NewFunctionTool(
		"get_weather",
		"Get the weather for a given location.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"latitude":  map[string]any{"type": "number", "description": "Latitude of the location."},
				"longitude": map[string]any{"type": "number", "description": "Longitude of the location."},
			},
			"required": []string{"latitude", "longitude"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			lat, _ := numberArg(args, "latitude")
			lng, _ := numberArg(args, "longitude")
			tc.LogDebug("geo.weather.lookup", "latitude", lat, "longitude", lng)
			return forecast, nil
		},
	)
}
