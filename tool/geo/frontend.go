package geo

import "github.com/hupe1980/turnmesh/tool"

// NewAddMarkerTool declares add_marker. The client places the marker.
func NewAddMarkerTool() tool.Tool {
	return tool.NewFrontendTool(
		"add_marker",
		"Add a marker to the map.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"latitude":  map[string]any{"type": "number", "description": "Latitude of the marker."},
				"longitude": map[string]any{"type": "number", "description": "Longitude of the marker."},
				"label":     map[string]any{"type": "string", "description": "Optional label for the marker."},
			},
			"required": []string{"latitude", "longitude"},
		},
	)
}

// NewUpdateMapDataTool declares update_map_data. The client replaces the
// displayed data with the given FeatureCollection.
func NewUpdateMapDataTool() tool.Tool {
	return tool.NewFrontendTool(
		"update_map_data",
		"Replace the map data. Pass a valid GeoJSON FeatureCollection as a string; "+
			"do not wrap it in lists or add extra characters.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"geojson": map[string]any{"type": "string", "description": "A stringified GeoJSON FeatureCollection."},
			},
			"required": []string{"geojson"},
		},
	)
}
