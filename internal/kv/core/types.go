// Package core defines the key-value backend contract the versioned store
// persists through.
package core

import (
	"context"
	"errors"
)

// Driver identifies a concrete backend implementation.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"   // local SQLite file (default)
	DriverFS       Driver = "fs"       // one file per key under a directory
	DriverMemory   Driver = "memory"   // process memory, lost on exit
	DriverPostgres Driver = "postgres" // shared Postgres table
	DriverS3       Driver = "s3"       // S3 / MinIO bucket
)

// Drivers lists every known driver.
var Drivers = []Driver{DriverSQLite, DriverFS, DriverMemory, DriverPostgres, DriverS3}

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("kv: key not found")

// Backend stores opaque values by key. Set overwrites.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Driver() Driver
	Close() error
}
