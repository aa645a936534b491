// Package config loads dropcache settings: built-in defaults, then an
// optional YAML file, then DROPCACHE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation and parse failure.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "dropcache.yaml"

// Duration is a time.Duration written as "24h", "250ms" in YAML.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the full daemon and CLI configuration.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"` // debug|info|warn|error

	Snapshot SnapshotConfig `yaml:"snapshot"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Wiki     WikiConfig     `yaml:"wiki"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// SnapshotConfig selects where cache snapshots persist.
type SnapshotConfig struct {
	Backend  string `yaml:"backend"` // bbolt|redis
	RedisURL string `yaml:"redis_url,omitempty"`
	Key      string `yaml:"key,omitempty"`
}

// CacheConfig bounds the record store.
type CacheConfig struct {
	TTL        Duration `yaml:"ttl"`
	MaxEntries int      `yaml:"max_entries"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
}

// IngestConfig tunes bulk ingestion.
type IngestConfig struct {
	DumpDir        string   `yaml:"dump_dir,omitempty"`
	Workers        int      `yaml:"workers"`
	MinDelay       Duration `yaml:"min_delay"`
	MaxAttempts    int      `yaml:"max_attempts"`
	InitialBackoff Duration `yaml:"initial_backoff"`
}

// WikiConfig points at the live MediaWiki used for read-through lookups.
type WikiConfig struct {
	BaseURL   string   `yaml:"base_url"`
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent,omitempty"`
}

// HTTPConfig is the metrics/health listener. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:  ".dropcache",
		LogLevel: "info",
		Snapshot: SnapshotConfig{Backend: "bbolt"},
		Cache: CacheConfig{
			TTL:        Duration(24 * time.Hour),
			MaxEntries: 1000,
		},
		Search: SearchConfig{DefaultLimit: 10},
		Ingest: IngestConfig{
			Workers:        4,
			MinDelay:       Duration(250 * time.Millisecond),
			MaxAttempts:    3,
			InitialBackoff: Duration(500 * time.Millisecond),
		},
		Wiki: WikiConfig{
			BaseURL: "https://oldschool.runescape.wiki",
			Timeout: Duration(15 * time.Second),
		},
		HTTP: HTTPConfig{Addr: "127.0.0.1:9477"},
	}
}

// Load builds the configuration. path may be empty, in which case
// DROPCACHE_CONFIG or DefaultFile is tried. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = getEnv("DROPCACHE_CONFIG", DefaultFile)
		explicit = path != DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Config file is optional
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "dropcache.db")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DataDir = getEnv("DROPCACHE_DATA_DIR", c.DataDir)
	c.DBPath = getEnv("DROPCACHE_DB_PATH", c.DBPath)
	c.LogLevel = getEnv("DROPCACHE_LOG_LEVEL", c.LogLevel)
	c.Snapshot.Backend = getEnv("DROPCACHE_SNAPSHOT_BACKEND", c.Snapshot.Backend)
	c.Snapshot.RedisURL = getEnv("DROPCACHE_REDIS_URL", c.Snapshot.RedisURL)
	c.Snapshot.Key = getEnv("DROPCACHE_SNAPSHOT_KEY", c.Snapshot.Key)
	c.Ingest.DumpDir = getEnv("DROPCACHE_DUMP_DIR", c.Ingest.DumpDir)
	c.Wiki.BaseURL = getEnv("DROPCACHE_WIKI_URL", c.Wiki.BaseURL)
	c.Wiki.UserAgent = getEnv("DROPCACHE_USER_AGENT", c.Wiki.UserAgent)
	c.HTTP.Addr = getEnv("DROPCACHE_HTTP_ADDR", c.HTTP.Addr)
	if c.HTTP.Addr == "off" {
		c.HTTP.Addr = ""
	}

	durations := []struct {
		key string
		dst *Duration
	}{
		{"DROPCACHE_CACHE_TTL", &c.Cache.TTL},
		{"DROPCACHE_INGEST_MIN_DELAY", &c.Ingest.MinDelay},
		{"DROPCACHE_INGEST_BACKOFF", &c.Ingest.InitialBackoff},
		{"DROPCACHE_WIKI_TIMEOUT", &c.Wiki.Timeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, d.key, v, err)
		}
		*d.dst = Duration(parsed)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"DROPCACHE_CACHE_MAX_ENTRIES", &c.Cache.MaxEntries},
		{"DROPCACHE_SEARCH_LIMIT", &c.Search.DefaultLimit},
		{"DROPCACHE_INGEST_WORKERS", &c.Ingest.Workers},
		{"DROPCACHE_INGEST_MAX_ATTEMPTS", &c.Ingest.MaxAttempts},
	}
	for _, n := range ints {
		v := os.Getenv(n.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, n.key, v, err)
		}
		*n.dst = parsed
	}
	return nil
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Cache.TTL <= 0 {
		problems = append(problems, "cache.ttl must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		problems = append(problems, "cache.max_entries must be positive")
	}
	if c.Search.DefaultLimit <= 0 {
		problems = append(problems, "search.default_limit must be positive")
	}
	if c.Ingest.Workers <= 0 {
		problems = append(problems, "ingest.workers must be positive")
	}
	if c.Ingest.MaxAttempts <= 0 {
		problems = append(problems, "ingest.max_attempts must be at least 1")
	}
	if c.Ingest.MinDelay < 0 || c.Ingest.InitialBackoff < 0 {
		problems = append(problems, "ingest delays must not be negative")
	}
	switch c.Snapshot.Backend {
	case "bbolt":
	case "redis":
		if c.Snapshot.RedisURL == "" {
			problems = append(problems, "snapshot.redis_url is required for the redis backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("snapshot.backend %q is not bbolt or redis", c.Snapshot.Backend))
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		problems = append(problems, fmt.Sprintf("log_level %q is not debug, info, warn or error", c.LogLevel))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

// YAML renders the effective configuration.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
