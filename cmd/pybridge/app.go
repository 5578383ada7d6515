package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/reglet-dev/pybridge/application/config"
	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/ports"
	"github.com/reglet-dev/pybridge/host"
)

// app carries global flags and the collaborators commands share.
type app struct {
	configFile string
	library    string
	logLevel   string
	overrides  []string

	stdout io.Writer
	stderr io.Writer

	// runtime replaces libpython when set.
	runtime ports.ForeignRuntime
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

// loadConfig runs the loader over --config with --set, --library and
// --log-level applied as overrides.
func (a *app) loadConfig() (*entities.BridgeConfig, error) {
	values, err := config.ParseAssignments(a.overrides)
	if err != nil {
		return nil, err
	}
	if a.library != "" {
		values["library"] = a.library
	}
	if a.logLevel != "" {
		values["log_level"] = a.logLevel
	}
	return host.NewLoader(host.WithOverrides(values)).LoadConfigFile(a.configFile)
}

func (a *app) logger(cfg *entities.BridgeConfig) *slog.Logger {
	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// executor loads the configuration and starts a bridged interpreter.
func (a *app) executor(ctx context.Context) (*host.Executor, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	opts := []host.Option{host.WithConfig(cfg), host.WithLogger(a.logger(cfg))}
	if a.runtime != nil {
		opts = append(opts, host.WithRuntime(a.runtime))
	}
	return host.NewExecutor(ctx, opts...)
}
