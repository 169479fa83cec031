package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consequentlyvaluable/InjectionBuddy/internal/kv"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, entry := range os.Environ() {
		if name, _, ok := strings.Cut(entry, "="); ok && strings.HasPrefix(name, "INJTRACK_") {
			t.Setenv(name, "")
		}
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "inj-track", cfg.Store.Key)
	assert.NotEmpty(t, cfg.Store.SQLitePath)
}

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
store:
  driver: fs
  fs_root: /tmp/injtrack
  key: my-track
timezone: Europe/Berlin
log_level: debug
`))

	require.NoError(t, err)
	assert.Equal(t, "fs", cfg.Store.Driver)
	assert.Equal(t, "/tmp/injtrack", cfg.Store.FSRoot)
	assert.Equal(t, "my-track", cfg.Store.Key)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader("\n"))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_RejectsUnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("store:\n  drvier: fs\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "drvier")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "memory", mutate: func(c *Config) { c.Store.Driver = "memory" }, ok: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "redis" }},
		{name: "empty key", mutate: func(c *Config) { c.Store.Key = "" }},
		{name: "sqlite without path", mutate: func(c *Config) { c.Store.SQLitePath = "" }},
		{name: "fs without root", mutate: func(c *Config) {
			c.Store.Driver = "fs"
			c.Store.FSRoot = ""
		}},
		{name: "postgres url", mutate: func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.PostgresURL = "postgres://u:p@localhost:5432/injtrack"
		}, ok: true},
		{name: "postgres bad url", mutate: func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.PostgresURL = "localhost"
		}},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Store.Driver = "s3" }},
		{name: "s3 with bucket", mutate: func(c *Config) {
			c.Store.Driver = "s3"
			c.Store.S3.Bucket = "tracker"
		}, ok: true},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "store:\n  driver: memory\nlog_level: warn\n")
	t.Setenv("INJTRACK_LOG_LEVEL", "error")
	t.Setenv("INJTRACK_S3_PATH_STYLE", "true")

	cfg, err := Load(path, true)

	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.True(t, cfg.Store.S3.PathStyle)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(missing, true)
	assert.Error(t, err)

	cfg, err := Load(missing, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("INJTRACK_STORE_DRIVER", "floppy")

	_, err := Load("", false)

	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", Config{LogLevel: "debug"}.Level().String())
	assert.Equal(t, "INFO", Config{}.Level().String())
	assert.Equal(t, "WARN", Config{LogLevel: "WARN"}.Level().String())
}

func TestKVOptions(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "s3"
	cfg.Store.S3 = S3Config{Bucket: "b", Region: "eu-west-1", Prefix: "p", Endpoint: "http://minio:9000", PathStyle: true}

	opts := cfg.KVOptions()

	assert.Equal(t, kv.DriverS3, opts.Driver)
	assert.Equal(t, "b", opts.S3.Bucket)
	assert.Equal(t, "eu-west-1", opts.S3.Region)
	assert.True(t, opts.S3.PathStyle)
}

func TestLocation_DefaultIsLocal(t *testing.T) {
	loc, err := Config{}.Location()

	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}
