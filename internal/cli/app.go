package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/calendar"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/config"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/observability"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/store"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/tracker"
)

// app is the per-invocation wiring shared by every command.
type app struct {
	ctx       context.Context
	cfg       config.Config
	formatter *OutputFormatter
	logger    *slog.Logger
	backend   kv.Backend
	ownsStore bool
	tracker   *tracker.Tracker
	uids      calendar.UIDGenerator
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openApp loads configuration, opens storage and loads the document.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	formatter := newFormatter(opts, cmd)

	path, required := opts.ConfigPath, true
	if path == "" {
		path, required = config.DefaultPath(), false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, formatter.Fail(ErrCodeConfig, "failed to load configuration", err)
	}

	// Configure logging based on config and the verbose flag
	logLevel := cfg.Level()
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	loc := opts.Location
	if loc == nil {
		if loc, err = cfg.Location(); err != nil {
			return nil, formatter.Fail(ErrCodeConfig, "invalid timezone", err)
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ctx := commandContext(cmd)
	a := &app{
		ctx:       ctx,
		cfg:       cfg,
		formatter: formatter,
		logger:    logger,
		backend:   opts.Backend,
		uids:      opts.UIDs,
	}
	if a.backend == nil {
		kvOpts := cfg.KVOptions()
		if kvOpts.Driver == kv.DriverSQLite {
			if err := os.MkdirAll(filepath.Dir(kvOpts.SQLitePath), 0o755); err != nil {
				logger.Warn("cannot create data directory", "path", kvOpts.SQLitePath, "error", err)
			}
		}
		logger.Debug("opening storage", "driver", cfg.Store.Driver)
		a.backend = kv.OpenOrMemory(ctx, kvOpts, logger)
		a.ownsStore = true
	}

	st := store.New(a.backend,
		store.WithKey(cfg.Store.Key),
		store.WithClock(now),
		store.WithLogger(logger),
	)
	a.tracker = tracker.Open(ctx, st,
		tracker.WithClock(now),
		tracker.WithLocation(loc),
		tracker.WithLogger(logger),
	)
	return a, nil
}

// Close flushes metrics and releases storage.
func (a *app) Close() {
	if a.cfg.MetricsFile != "" {
		if err := observability.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.logger.Warn("failed to write metrics", "path", a.cfg.MetricsFile, "error", err)
		}
	}
	if !a.ownsStore {
		return
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing storage", "error", err)
	}
}
