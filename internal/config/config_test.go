package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dropcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DROPCACHE_CONFIG", "")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ".dropcache", cfg.DataDir)
	assert.Equal(t, filepath.Join(".dropcache", "dropcache.db"), cfg.DBPath)
	assert.Equal(t, "bbolt", cfg.Snapshot.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.D())
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingest.MinDelay.D())
	assert.Equal(t, 3, cfg.Ingest.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Ingest.InitialBackoff.D())
	assert.Equal(t, "https://oldschool.runescape.wiki", cfg.Wiki.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Wiki.Timeout.D())
	assert.Equal(t, "127.0.0.1:9477", cfg.HTTP.Addr)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_YAMLOverridesOnlyPresentKeys(t *testing.T) {
	path := writeConfig(t, `
data_dir: /var/lib/dropcache
log_level: debug
cache:
  ttl: 2h
ingest:
  dump_dir: /srv/dump
  min_delay: 1s
http:
  addr: ""
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/dropcache", cfg.DataDir)
	assert.Equal(t, "/var/lib/dropcache/dropcache.db", cfg.DBPath)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL.D())
	assert.Equal(t, 1000, cfg.Cache.MaxEntries, "untouched keys keep defaults")
	assert.Equal(t, "/srv/dump", cfg.Ingest.DumpDir)
	assert.Equal(t, time.Second, cfg.Ingest.MinDelay.D())
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Empty(t, cfg.HTTP.Addr, "empty addr disables the listener")
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "cache:\n  max_entries: 50\n")
	t.Setenv("DROPCACHE_CACHE_MAX_ENTRIES", "75")
	t.Setenv("DROPCACHE_CACHE_TTL", "30m")
	t.Setenv("DROPCACHE_HTTP_ADDR", "off")
	t.Setenv("DROPCACHE_DB_PATH", "/tmp/x.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Cache.MaxEntries)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL.D())
	assert.Empty(t, cfg.HTTP.Addr)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, "cache:\n  ttl: forever\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_BadEnvInt(t *testing.T) {
	t.Setenv("DROPCACHE_INGEST_WORKERS", "many")
	_, err := Load(writeConfig(t, ""))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"zero capacity", func(c *Config) { c.Cache.MaxEntries = 0 }},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }},
		{"zero attempts", func(c *Config) { c.Ingest.MaxAttempts = 0 }},
		{"unknown backend", func(c *Config) { c.Snapshot.Backend = "s3" }},
		{"redis without url", func(c *Config) { c.Snapshot.Backend = "redis" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	out, err := Default().YAML()
	require.NoError(t, err)
	assert.Contains(t, out, "ttl: 24h0m0s")

	cfg, err := Load(writeConfig(t, out))
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.D())
}
