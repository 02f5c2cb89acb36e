package geo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/logging"
	"github.com/hupe1980/turnmesh/tool"
)

func call(t *testing.T, tl tool.Tool, args map[string]any) (any, error) {
	t.Helper()
	tc := core.NewToolContext(context.Background(), "user-1", tl.Name(), nil, logging.NoOpLogger{})
	return tl.Call(tc, args)
}

func TestWeatherTool(t *testing.T) {
	out, err := call(t, NewWeatherTool(DefaultForecast), map[string]any{"latitude": 51.5, "longitude": -0.1})
	require.NoError(t, err)
	assert.Equal(t, DefaultForecast, out)

	_, err = call(t, NewWeatherTool(DefaultForecast), map[string]any{"latitude": 51.5})
	var toolErr *tool.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, tool.CodeValidation, toolErr.Code)
}

func TestPlacesTool_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "eiffel tower", q.Get("query"))
		assert.Equal(t, "secret", q.Get("key"))
		assert.Equal(t, "48.8,2.3", q.Get("location"))
		assert.Equal(t, "50000", q.Get("radius"))

		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"name": "Eiffel Tower",
				"formatted_address": "Champ de Mars, Paris",
				"geometry": {"location": {"lat": 48.8584, "lng": 2.2945}}
			}]
		}`))
	}))
	defer srv.Close()

	out, err := call(t, NewPlacesTool(srv.Client(), srv.URL, "secret"), map[string]any{
		"query":    "eiffel tower",
		"location": "48.8,2.3",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":    "Eiffel Tower",
		"lat":     48.8584,
		"lng":     2.2945,
		"address": "Champ de Mars, Paris",
	}, out)
}

func TestPlacesTool_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("location"))
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer srv.Close()

	out, err := call(t, NewPlacesTool(srv.Client(), srv.URL, "k"), map[string]any{"query": "nowhere"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"error": "No places found for query."}, out)
}

func TestPlacesTool_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := call(t, NewPlacesTool(srv.Client(), srv.URL, "k"), map[string]any{"query": "x"})
	var toolErr *tool.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, tool.CodeExecution, toolErr.Code)
}

func TestBufferTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transform/geojson", r.URL.Path)
		assert.Equal(t, "Bearer flip-key", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "geojson", body["output_format"])
		assert.Equal(t, "EPSG:4326", body["output_crs"])
		assert.Equal(t, "FeatureCollection", body["input_geojson"].(map[string]any)["type"])
		tr := body["transformations"].([]any)[0].(map[string]any)
		assert.Equal(t, "buffer", tr["type"])
		assert.Equal(t, 100.0, tr["distance"])
		assert.Equal(t, "meters", tr["units"])

		_, _ = w.Write([]byte(`{"type": "FeatureCollection", "features": []}`))
	}))
	defer srv.Close()

	out, err := call(t, NewBufferTool(srv.Client(), srv.URL+"/", "flip-key"), map[string]any{
		"distance": 100.0,
		"units":    "meters",
		MapDataKey: `{"type": "FeatureCollection", "features": []}`,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"geojson": map[string]any{"type": "FeatureCollection", "features": []any{}}}, out)
}

func TestBufferTool_NoMapData(t *testing.T) {
	out, err := call(t, NewBufferTool(http.DefaultClient, "http://unused", "k"), map[string]any{
		"distance": 1.0,
		"units":    "miles",
	})
	require.NoError(t, err)
	assert.Contains(t, out.(map[string]any)["error"], "No spatial data")
}

func TestBufferTool_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad geometry", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := call(t, NewBufferTool(srv.Client(), srv.URL, "k"), map[string]any{
		"distance": 1.0,
		"units":    "feet",
		MapDataKey: map[string]any{"type": "FeatureCollection", "features": []any{}},
	})
	var toolErr *tool.ToolError
	require.True(t, errors.As(err, &toolErr))
	details := toolErr.Details.(map[string]any)
	assert.Equal(t, http.StatusUnprocessableEntity, details["status_code"])
	assert.Contains(t, details["body"], "bad geometry")
}

func TestRegister(t *testing.T) {
	b := tool.NewRegistryBuilder()
	require.NoError(t, Register(b, Config{GeoflipURL: "http://geoflip"}))
	reg := b.Build()

	assert.Equal(t, []string{"add_marker", "buffer_features", "find_place", "get_weather", "update_map_data"}, reg.Names())

	d, ok := reg.Resolve("add_marker")
	require.True(t, ok)
	assert.True(t, d.IsFrontend())

	d, ok = reg.Resolve("find_place")
	require.True(t, ok)
	assert.False(t, d.IsFrontend())
}

func TestRegister_WithoutGeoflip(t *testing.T) {
	b := tool.NewRegistryBuilder()
	require.NoError(t, Register(b, Config{}))
	_, ok := b.Build().Resolve("buffer_features")
	assert.False(t, ok)
}
