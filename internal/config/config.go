// Package config loads injtrack settings from an optional YAML file and
// INJTRACK_* environment variables, then validates the result against an
// embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv/s3"
	"github.com/consequentlyvaluable/InjectionBuddy/internal/store"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete runtime configuration.
type Config struct {
	Store       StoreConfig `yaml:"store" json:"store"`
	Timezone    string      `yaml:"timezone" json:"timezone"`
	MetricsFile string      `yaml:"metrics_file" json:"metrics_file"`
	LogLevel    string      `yaml:"log_level" json:"log_level"`
}

// StoreConfig selects the storage backend and the primary key.
type StoreConfig struct {
	Driver      string   `yaml:"driver" json:"driver"`
	Key         string   `yaml:"key" json:"key"`
	SQLitePath  string   `yaml:"sqlite_path" json:"sqlite_path"`
	FSRoot      string   `yaml:"fs_root" json:"fs_root"`
	PostgresURL string   `yaml:"postgres_url" json:"postgres_url"`
	S3          S3Config `yaml:"s3" json:"s3"`
}

// S3Config holds bucket settings for the s3 driver.
type S3Config struct {
	Bucket    string `yaml:"bucket" json:"bucket"`
	Region    string `yaml:"region" json:"region"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	PathStyle bool   `yaml:"path_style" json:"path_style"`
}

// DataDir returns the per-user directory for local state.
func DataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "injtrack")
	}
	return ".injtrack"
}

// DefaultPath is the config file read when none is given explicitly.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	dir := DataDir()
	return Config{
		Store: StoreConfig{
			Driver:     string(kv.DriverSQLite),
			Key:        store.DefaultKey,
			SQLitePath: filepath.Join(dir, "injtrack.db"),
			FSRoot:     filepath.Join(dir, "state"),
		},
		LogLevel: "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path, then
// environment overrides. A missing file is an error only when required is
// true.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			if err := decode(f, &cfg); err != nil {
				return Config{}, fmt.Errorf("config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse reads YAML from r over the defaults without consulting the
// environment.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	if err := decode(r, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg from INJTRACK_* variables. Empty values are
// ignored.
func ApplyEnv(cfg *Config) {
	cfg.Store.Driver = getEnv("INJTRACK_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.Key = getEnv("INJTRACK_STORE_KEY", cfg.Store.Key)
	cfg.Store.SQLitePath = getEnv("INJTRACK_SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.FSRoot = getEnv("INJTRACK_FS_ROOT", cfg.Store.FSRoot)
	cfg.Store.PostgresURL = getEnv("INJTRACK_POSTGRES_URL", cfg.Store.PostgresURL)
	cfg.Store.S3.Bucket = getEnv("INJTRACK_S3_BUCKET", cfg.Store.S3.Bucket)
	cfg.Store.S3.Region = getEnv("INJTRACK_S3_REGION", cfg.Store.S3.Region)
	cfg.Store.S3.Prefix = getEnv("INJTRACK_S3_PREFIX", cfg.Store.S3.Prefix)
	cfg.Store.S3.Endpoint = getEnv("INJTRACK_S3_ENDPOINT", cfg.Store.S3.Endpoint)
	cfg.Store.S3.PathStyle = getBoolEnv("INJTRACK_S3_PATH_STYLE", cfg.Store.S3.PathStyle)
	cfg.Timezone = getEnv("INJTRACK_TIMEZONE", cfg.Timezone)
	cfg.MetricsFile = getEnv("INJTRACK_METRICS_FILE", cfg.MetricsFile)
	cfg.LogLevel = getEnv("INJTRACK_LOG_LEVEL", cfg.LogLevel)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// Validate checks cfg against the embedded schema and resolves the
// timezone.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(details(err), "; "))
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timezone: %v", ErrInvalid, err)
	}
	return nil
}

func details(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, e.Error())
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}

// Location resolves Timezone. An empty value is the system zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Level maps LogLevel to a slog level.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// KVOptions converts the store section into backend options.
func (c Config) KVOptions() kv.Options {
	return kv.Options{
		Driver:      kv.Driver(c.Store.Driver),
		SQLitePath:  c.Store.SQLitePath,
		FSRoot:      c.Store.FSRoot,
		PostgresURL: c.Store.PostgresURL,
		S3: s3.Config{
			Region:    c.Store.S3.Region,
			Bucket:    c.Store.S3.Bucket,
			Prefix:    c.Store.S3.Prefix,
			Endpoint:  c.Store.S3.Endpoint,
			PathStyle: c.Store.S3.PathStyle,
		},
	}
}
