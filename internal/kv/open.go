// Package kv selects and opens the key-value backend the versioned store
// persists through. Backend implementations live in subpackages; the
// contract they share is in kv/core.
package kv

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv/core"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv/fs"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv/memory"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv/postgres"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv/s3"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv/sqlite"
)

// Type aliases so callers only import this package.
type (
	Backend = core.Backend
	Driver  = core.Driver
)

// Driver names, re-exported from core.
const (
	DriverSQLite   = core.DriverSQLite
	DriverFS       = core.DriverFS
	DriverMemory   = core.DriverMemory
	DriverPostgres = core.DriverPostgres
	DriverS3       = core.DriverS3
)

// ErrNotFound is returned by Backend.Get for absent keys.
var ErrNotFound = core.ErrNotFound

// Options selects a driver and carries its settings.
type Options struct {
	Driver      Driver
	SQLitePath  string
	FSRoot      string
	PostgresURL string
	S3          s3.Config
}

// Open returns the backend selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case core.DriverSQLite, "":
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path required")
		}
		return sqlite.Open(opts.SQLitePath)
	case core.DriverFS:
		return fs.New(opts.FSRoot)
	case core.DriverMemory:
		return memory.New(), nil
	case core.DriverPostgres:
		return postgres.Open(ctx, opts.PostgresURL)
	case core.DriverS3:
		return s3.New(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("unknown kv driver %q", opts.Driver)
	}
}

// OpenOrMemory opens the configured backend and degrades to an in-memory
// one when that fails. The session then runs without durability.
func OpenOrMemory(ctx context.Context, opts Options, logger *slog.Logger) Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b, err := Open(ctx, opts)
	if err != nil {
		logger.Warn("storage unavailable, using in-memory state", "driver", string(opts.Driver), "error", err)
		return memory.New()
	}
	return b
}
