// Package turnmesh provides a high-level façade over the conversation
// orchestrator and its services (turn store, model client, tool registry and
// logging). Most applications interact with this package by:
//  1. Creating a TurnMesh via New (explicit parts) or NewFromConfig
//  2. Calling Run once per user message
//  3. Closing it to release the turn store
//
// Defaults are safe for local development: history is kept in memory and
// logging is disabled unless a logger is supplied.
package turnmesh

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/turnmesh/config"
	"github.com/hupe1980/turnmesh/core"
	"github.com/hupe1980/turnmesh/flow"
	"github.com/hupe1980/turnmesh/logging"
	"github.com/hupe1980/turnmesh/model"
	anthropicmodel "github.com/hupe1980/turnmesh/model/anthropic"
	"github.com/hupe1980/turnmesh/model/gemini"
	"github.com/hupe1980/turnmesh/model/openai"
	"github.com/hupe1980/turnmesh/session"
	"github.com/hupe1980/turnmesh/session/sqlite"
	"github.com/hupe1980/turnmesh/tool"
	"github.com/hupe1980/turnmesh/tool/geo"
)

// Options configures the TurnMesh instance.
type Options struct {
	// Store holds conversation history. Defaults to an in-memory store.
	Store core.TurnStore

	// Registry lists the tools offered to the model. Nil means no tools.
	Registry *tool.Registry

	// Flow adjusts the orchestrator (window size, budgets, messages).
	Flow []func(o *flow.Options)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// TurnMesh is the high-level façade aggregating the orchestrator and its services.
type TurnMesh struct {
	opts         Options
	orchestrator *flow.Orchestrator
	closers      []io.Closer
}

// New creates a TurnMesh around m. Any unset service is initialized with a
// default.
func New(m model.Model, optFns ...func(o *Options)) *TurnMesh {
	opts := Options{
		Store:  session.NewInMemoryStore(),
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	flowOpts := make([]func(o *flow.Options), 0, len(opts.Flow)+1)
	flowOpts = append(flowOpts, func(o *flow.Options) { o.Logger = opts.Logger })
	flowOpts = append(flowOpts, opts.Flow...)

	return &TurnMesh{
		opts:         opts,
		orchestrator: flow.New(opts.Store, m, opts.Registry, flowOpts...),
	}
}

// NewFromConfig wires a TurnMesh from cfg: the model provider, the turn store
// (SQLite when a path is set), the geo tool set and the loop settings.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger logging.Logger) (*TurnMesh, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	toolTimeout, err := cfg.ToolTimeout()
	if err != nil {
		return nil, err
	}

	m, err := NewModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	b := tool.NewRegistryBuilder()
	if err := geo.Register(b, geo.Config{
		PlacesAPIKey:  cfg.Tools.PlacesAPIKey,
		PlacesURL:     cfg.Tools.PlacesURL,
		GeoflipAPIKey: cfg.Tools.GeoflipAPIKey,
		GeoflipURL:    cfg.Tools.GeoflipURL,
		Forecast:      cfg.Tools.Forecast,
	}); err != nil {
		return nil, err
	}

	store, closer, err := OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	tm := New(m, func(o *Options) {
		o.Store = store
		o.Registry = b.Build()
		o.Logger = logger
		o.Flow = append(o.Flow, func(fo *flow.Options) {
			fo.WindowSize = cfg.History.WindowSize
			fo.MaxStoredTurns = cfg.History.MaxStoredTurns
			fo.MaxIterations = cfg.Loop.MaxIterations
			fo.ToolTimeout = toolTimeout
			fo.Instructions = cfg.Loop.Instructions
		})
	})
	if closer != nil {
		tm.closers = append(tm.closers, closer)
	}

	logger.Info(
		"turnmesh.ready",
		"provider", string(cfg.Provider),
		"model", m.Info().Name,
		"tools", tm.Registry().Len(),
		"persistent", closer != nil,
	)

	return tm, nil
}

// NewModel builds the model client selected by cfg.Provider.
func NewModel(ctx context.Context, cfg *config.Config) (model.Model, error) {
	mc := cfg.Model

	switch cfg.Provider {
	case config.ProviderGemini:
		m, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			o.Model = mc.Name
			o.APIKey = mc.APIKey
			o.Temperature = float32(mc.Temperature)
			o.MaxOutputTokens = int32(mc.MaxTokens)
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if mc.Name != "" {
				o.Model = mc.Name
			}
			o.APIKey = mc.APIKey
			o.Temperature = mc.Temperature
			o.MaxCompletionTokens = int64(mc.MaxTokens)
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if mc.Name != "" {
				o.Model = anthropic.Model(mc.Name)
			}
			o.APIKey = mc.APIKey
			o.Temperature = mc.Temperature
			o.MaxTokens = int64(mc.MaxTokens)
		}), nil
	case config.ProviderMock:
		name := mc.Name
		if name == "" {
			name = "echo"
		}
		return model.NewMockModel(name, string(config.ProviderMock)), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// OpenStore opens the turn store described by cfg. The returned closer is
// nil for the in-memory store.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger logging.Logger) (core.TurnStore, io.Closer, error) {
	if cfg.Path == "" {
		return session.NewInMemoryStore(), nil, nil
	}

	store, err := sqlite.Open(ctx, sqlite.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}

// Run handles one user message. See flow.Orchestrator.Run.
func (t *TurnMesh) Run(ctx context.Context, userID, prompt string, env map[string]any) (flow.Result, error) {
	return t.orchestrator.Run(ctx, userID, prompt, env)
}

// History returns up to limit of the user's stored turns, oldest first.
// limit <= 0 returns everything.
func (t *TurnMesh) History(ctx context.Context, userID string, limit int) ([]core.ConversationTurn, error) {
	turns, err := t.opts.Store.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(turns)
	return turns, nil
}

// Registry returns the tool registry in use.
func (t *TurnMesh) Registry() *tool.Registry { return t.orchestrator.Registry() }

// Close releases the turn store.
func (t *TurnMesh) Close() error {
	var firstErr error
	for _, c := range t.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.closers = nil
	return firstErr
}
