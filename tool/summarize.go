package tool

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const (
	// MaxInlineString is the longest string result stored verbatim.
	MaxInlineString = 500
	// truncatedPrefix is how many runes of a long string are kept.
	truncatedPrefix = 200
)

var geometryTypes = map[string]bool{
	"Point":           true,
	"MultiPoint":      true,
	"LineString":      true,
	"MultiLineString": true,
	"Polygon":         true,
	"MultiPolygon":    true,
}

// Summarize returns the copy of a tool result that is persisted to history.
// Long strings are truncated and GeoJSON values, at any depth, are replaced
// with a short description. The input is never modified and summarizing a
// summary returns it unchanged.
func Summarize(v any) any {
	switch val := v.(type) {
	case nil, bool, float64, float32, int, int64, int32, json.Number:
		return val
	case string:
		return summarizeString(val)
	case map[string]any:
		if desc, ok := describeGeoJSON(val); ok {
			return desc
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Summarize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Summarize(item)
		}
		return out
	default:
		// Typed results (structs, typed maps) are inspected in their JSON form.
		generic, ok := toGeneric(val)
		if !ok {
			return val
		}
		return Summarize(generic)
	}
}

func summarizeString(s string) string {
	n := utf8.RuneCountInString(s)
	if n <= MaxInlineString {
		return s
	}
	runes := []rune(s)
	return fmt.Sprintf("%s... [truncated, %d characters total]", string(runes[:truncatedPrefix]), n)
}

func toGeneric(v any) (any, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false
	}
	return out, true
}

// IsGeoJSON reports whether m is a GeoJSON object.
func IsGeoJSON(m map[string]any) bool {
	_, ok := describeGeoJSON(m)
	return ok
}

func describeGeoJSON(m map[string]any) (string, bool) {
	typ, _ := m["type"].(string)
	switch {
	case typ == "FeatureCollection":
		features, ok := m["features"].([]any)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("GeoJSON FeatureCollection with %d features", len(features)), true
	case typ == "Feature":
		if _, ok := m["geometry"]; !ok {
			return "", false
		}
		geom, _ := m["geometry"].(map[string]any)
		if gt, _ := geom["type"].(string); gt != "" {
			return fmt.Sprintf("GeoJSON Feature with %s geometry", gt), true
		}
		return "GeoJSON Feature without geometry", true
	case typ == "GeometryCollection":
		geoms, ok := m["geometries"].([]any)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("GeoJSON GeometryCollection with %d geometries", len(geoms)), true
	case geometryTypes[typ]:
		if _, ok := m["coordinates"]; !ok {
			return "", false
		}
		return fmt.Sprintf("GeoJSON %s geometry", typ), true
	default:
		return "", false
	}
}
