// turnmesh is an interactive terminal client for the conversation
// orchestrator. It reads one message per line, runs it for a single user and
// prints the answer. Frontend tool calls (map markers, map data updates) are
// printed as JSON since there is no map to apply them to.
//
// With --prompt the message is run once and the program exits.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/hupe1980/turnmesh"
	"github.com/hupe1980/turnmesh/config"
	"github.com/hupe1980/turnmesh/flow"
	"github.com/hupe1980/turnmesh/logging"
	"github.com/hupe1980/turnmesh/tool/geo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "turnmesh: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		userID     string
		provider   string
		storePath  string
		logLevel   string
		mapData    string
		prompt     string
	)

	flagSet := pflag.NewFlagSet("turnmesh", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flagSet.StringVarP(&userID, "user", "u", "local", "user id the conversation is stored under")
	flagSet.StringVar(&provider, "provider", "", "model provider: gemini, openai, anthropic or mock")
	flagSet.StringVar(&storePath, "store", "", "SQLite history file (default: in memory)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flagSet.StringVar(&mapData, "map-data", "", "GeoJSON file passed to tools as the current map data")
	flagSet.StringVarP(&prompt, "prompt", "p", "", "run a single message and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("provider") {
		cfg.Provider = config.Provider(provider)
	}
	if flagSet.Changed("store") {
		cfg.Store.Path = storePath
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = logLevel
	}

	env := map[string]any{}
	if mapData != "" {
		data, err := loadMapData(mapData)
		if err != nil {
			return err
		}
		env[geo.MapDataKey] = data
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cfg.Logger().WithComponent("cli")

	tm, err := turnmesh.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := tm.Close(); err != nil {
			logger.Error("cli.close_failed", "error", err.Error())
		}
	}()

	if prompt != "" {
		return handle(ctx, tm, os.Stdout, userID, prompt, env)
	}

	return repl(ctx, tm, os.Stdin, os.Stdout, userID, env, logger)
}

func repl(ctx context.Context, tm *turnmesh.TurnMesh, in io.Reader, out io.Writer, userID string, env map[string]any, logger logging.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/exit":
			return nil
		default:
			if err := handle(ctx, tm, out, userID, line, env); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("cli.run_failed", "error", err.Error())
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func handle(ctx context.Context, tm *turnmesh.TurnMesh, out io.Writer, userID, prompt string, env map[string]any) error {
	res, err := tm.Run(ctx, userID, prompt, env)
	if err != nil {
		return err
	}

	for _, call := range res.ToolCalls {
		if call.Err != nil {
			fmt.Fprintf(out, "  [%s failed: %v]\n", call.Name, call.Err)
			continue
		}
		fmt.Fprintf(out, "  [%s]\n", call.Name)
	}

	if res.Kind == flow.KindFrontendCall && res.FunctionCall != nil {
		b, err := json.MarshalIndent(res.FunctionCall, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "client call:\n%s\n", b)
		return nil
	}

	fmt.Fprintln(out, res.Text)
	return nil
}

func loadMapData(path string) (any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map data: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("parsing map data %s: %w", path, err)
	}
	return v, nil
}
