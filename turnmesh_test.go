package turnmesh

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/turnmesh/config"
	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/flow"
	"github.com/hupe1980/turnmesh/model"
	"github.com/hupe1980/turnmesh/tool"
	"github.com/hupe1980/turnmesh/tool/geo"
)

func TestNew_DefaultsAndHistory(t *testing.T) {
	m := model.NewMockModel("mock", "mock").Enqueue(model.TextResponse("Hello there"))

	tm := New(m)
	defer func() { require.NoError(t, tm.Close()) }()

	res, err := tm.Run(context.Background(), "u1", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, flow.KindText, res.Kind)
	assert.Equal(t, "Hello there", res.Text)
	assert.Equal(t, 0, tm.Registry().Len())

	turns, err := tm.History(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, "hi", turns[0].Message)
	assert.Equal(t, core.RoleModel, turns[1].Role)
}

func TestNew_WithRegistry(t *testing.T) {
	b := tool.NewRegistryBuilder()
	require.NoError(t, geo.Register(b, geo.Config{}))

	m := model.NewMockModel("mock", "mock").Enqueue(
		model.FunctionCallResponse("get_weather", map[string]any{"latitude": 1.0, "longitude": 2.0}),
		model.TextResponse("It is sunny."),
	)

	tm := New(m, func(o *Options) {
		o.Registry = b.Build()
		o.Flow = append(o.Flow, func(fo *flow.Options) { fo.MaxIterations = 3 })
	})

	res, err := tm.Run(context.Background(), "u1", "weather?", nil)
	require.NoError(t, err)
	assert.Equal(t, flow.KindText, res.Kind)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "get_weather", res.ToolCalls[0].Name)
	assert.NoError(t, res.ToolCalls[0].Err)
}

func TestNewFromConfig_MockWithSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderMock
	cfg.Store.Path = filepath.Join(t.TempDir(), "turns.db")
	cfg.History.MaxStoredTurns = 3

	tm, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, tm.Close()) }()

	_, ok := tm.Registry().Resolve("add_marker")
	assert.True(t, ok)
	_, ok = tm.Registry().Resolve("buffer_features")
	assert.False(t, ok)

	for _, prompt := range []string{"one", "two", "three"} {
		res, err := tm.Run(context.Background(), "u1", prompt, nil)
		require.NoError(t, err)
		assert.Equal(t, "Mock response to: "+prompt, res.Text)
	}

	turns, err := tm.History(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "Mock response to: two", turns[0].Message)
	assert.Equal(t, "three", turns[1].Message)
}

func TestNewFromConfig_Invalid(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "unknown"

	_, err := NewFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewModel_Mock(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderMock

	m, err := NewModel(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", m.Info().Provider)
	assert.Equal(t, "echo", m.Info().Name)
}

func TestOpenStore_Memory(t *testing.T) {
	store, closer, err := OpenStore(context.Background(), config.StoreConfig{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Nil(t, closer)
}
