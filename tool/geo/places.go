package geo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/tool"
)

type placesResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewPlacesTool returns find_place, backed by the Google Places text search.
func NewPlacesTool(client *http.Client, endpoint, apiKey string) tool.Tool {
	return tool.NewFunctionTool(
		"find_place",
		"Search for a place by name and return its name, coordinates and address.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":    map[string]any{"type": "string", "description": "The name of the place to search."},
				"location": map[string]any{"type": "string", "description": "Optional \"lat,lng\" to bias the search nearby."},
				"radius":   map[string]any{"type": "integer", "description": "Optional radius in meters for the nearby bias."},
			},
			"required": []string{"query"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			params := url.Values{}
			params.Set("query", stringArg(args, "query"))
			params.Set("key", apiKey)

			if loc := stringArg(args, "location"); loc != "" {
				radius := DefaultRadius
				if r, ok := numberArg(args, "radius"); ok && r > 0 {
					radius = int(r)
				}
				params.Set("location", loc)
				params.Set("radius", strconv.Itoa(radius))
			}

			req, err := http.NewRequestWithContext(tc.Context(), http.MethodGet, endpoint+"?"+params.Encode(), nil)
			if err != nil {
				return nil, err
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("places request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return nil, &tool.ToolError{
					Tool:    "find_place",
					Message: "places request failed",
					Code:    tool.CodeExecution,
					Details: map[string]any{"status_code": resp.StatusCode},
				}
			}

			var data placesResponse
			if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
				return nil, fmt.Errorf("decode places response: %w", err)
			}

			if data.Status != "OK" || len(data.Results) == 0 {
				tc.LogDebug("geo.places.empty", "status", data.Status)
				return map[string]any{"error": "No places found for query."}, nil
			}

			place := data.Results[0]
			return map[string]any{
				"name":    place.Name,
				"lat":     place.Geometry.Location.Lat,
				"lng":     place.Geometry.Location.Lng,
				"address": place.FormattedAddress,
			}, nil
		},
	)
}
