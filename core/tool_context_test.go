package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolContext_Accessors(t *testing.T) {
	logger := &testLogger{}
	env := map[string]any{"map_data": "fc"}
	tc := NewToolContext(context.Background(), "u1", "buffer_features", env, logger)

	assert.Equal(t, "u1", tc.UserID())
	assert.Equal(t, "buffer_features", tc.FunctionName())
	assert.NotNil(t, tc.Context())
	assert.Same(t, logger, tc.Logger())

	v, ok := tc.Env("map_data")
	assert.True(t, ok)
	assert.Equal(t, "fc", v)

	// env is copied
	env["map_data"] = "changed"
	v, _ = tc.Env("map_data")
	assert.Equal(t, "fc", v)

	tc.LogInfo("tool.test")
	assert.Equal(t, []string{"tool.test"}, logger.events)
}

func TestToolContext_WithArgsInjectionWins(t *testing.T) {
	tc := NewToolContext(context.Background(), "u1", "x", map[string]any{"map_data": "fc"}, nil)
	args := map[string]any{"distance": 5.0, "user_id": "spoofed", "map_data": "forged"}

	merged := tc.WithArgs(args)
	assert.Equal(t, map[string]any{"distance": 5.0, "user_id": "u1", "map_data": "fc"}, merged)

	// original untouched
	assert.Equal(t, "spoofed", args["user_id"])
	assert.Equal(t, map[string]any{"map_data": "fc", "user_id": "u1"}, tc.Injected())
}

func TestToolContext_NilLogger(t *testing.T) {
	tc := NewToolContext(context.Background(), "u1", "x", nil, nil)
	assert.NotPanics(t, func() { tc.LogDebug("noop") })
	_, ok := tc.Env("missing")
	assert.False(t, ok)
}
