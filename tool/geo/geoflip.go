package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/tool"
)

type transformation struct {
	Type     string  `json:"type"`
	Distance float64 `json:"distance"`
	Units    string  `json:"units"`
}

type transformRequest struct {
	InputGeoJSON    any              `json:"input_geojson"`
	OutputFormat    string           `json:"output_format"`
	OutputCRS       string           `json:"output_crs"`
	Transformations []transformation `json:"transformations"`
}

// NewBufferTool returns buffer_features, which buffers the map's current
// features through the Geoflip transform API. The map data is taken from the
// injected map_data argument.
func NewBufferTool(client *http.Client, baseURL, apiKey string) tool.Tool {
	endpoint := strings.TrimRight(baseURL, "/") + "/v1/transform/geojson"

	return tool.NewFunctionTool(
		"buffer_features",
		"Buffer the features currently displayed on the map by a distance. "+
			"The map data is supplied automatically; do not ask the user for it. "+
			"Returns the buffered GeoJSON FeatureCollection (EPSG:4326) under \"geojson\".",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"distance": map[string]any{"type": "number", "description": "The buffer distance, e.g. 100."},
				"units": map[string]any{
					"type":        "string",
					"description": "Units of the distance.",
					"enum":        []string{"meters", "kilometers", "miles", "feet"},
				},
			},
			"required": []string{"distance", "units"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			input := mapData(args[MapDataKey])
			if input == nil {
				return map[string]any{"error": "No spatial data on the map to buffer."}, nil
			}

			distance, _ := numberArg(args, "distance")
			body, err := json.Marshal(transformRequest{
				InputGeoJSON: input,
				OutputFormat: "geojson",
				OutputCRS:    "EPSG:4326",
				Transformations: []transformation{{
					Type:     "buffer",
					Distance: distance,
					Units:    stringArg(args, "units"),
				}},
			})
			if err != nil {
				return nil, fmt.Errorf("encode geoflip request: %w", err)
			}

			req, err := http.NewRequestWithContext(tc.Context(), http.MethodPost, endpoint, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+apiKey)

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("request to Geoflip API failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				return nil, &tool.ToolError{
					Tool:    "buffer_features",
					Message: "Failed to buffer data via Geoflip API.",
					Code:    tool.CodeExecution,
					Details: map[string]any{"status_code": resp.StatusCode, "body": string(text)},
				}
			}

			var out any
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return nil, fmt.Errorf("decode geoflip response: %w", err)
			}

			return map[string]any{"geojson": out}, nil
		},
	)
}

// mapData accepts the map state as a decoded object or a JSON string.
func mapData(v any) any {
	switch d := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(d) == "" {
			return nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(d), &decoded); err != nil {
			return d
		}
		return decoded
	default:
		return d
	}
}
