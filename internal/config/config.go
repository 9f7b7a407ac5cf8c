package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends understood by persist.Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const (
	DefaultEventsKey   = "calendar_events_2026_final"
	DefaultInsightsKey = "calendar_insights_2026"
	DefaultModel       = "gemini-3-flash-preview"
)

// StorageConfig selects where the event collection and the insight cache
// are persisted. Both live in the same backend under different keys.
type StorageConfig struct {
	// Backend is one of "file" (default), "sqlite", "redis", "memory".
	Backend string `yaml:"backend" json:"backend"`
	// Dir is the directory for the file backend.
	Dir string `yaml:"dir" json:"dir"`
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
	// RedisURL is a redis:// URL for the redis backend.
	RedisURL string `yaml:"redis_url" json:"redis_url"`

	EventsKey   string `yaml:"events_key" json:"events_key"`
	InsightsKey string `yaml:"insights_key" json:"insights_key"`
}

// InsightConfig configures the remote month-insight provider.
type InsightConfig struct {
	Model string `yaml:"model" json:"model"`
	// APIKey is usually supplied through GEMINI_API_KEY instead of the file.
	APIKey string `yaml:"api_key,omitempty" json:"-"`
	// Timeout bounds a single remote call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// Prefetch is a cron spec for warming the cache with the current and
	// next month. Empty disables the job.
	Prefetch string `yaml:"prefetch" json:"prefetch"`
}

// Holiday is one seed entry of the event collection.
type Holiday struct {
	Date  string `yaml:"date" json:"date"`
	Title string `yaml:"title" json:"title"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Year is the single calendar year the app serves.
	Year int `yaml:"year" json:"year"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in calendar views. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// LogLevel is "debug", "info" or "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	Storage StorageConfig `yaml:"storage" json:"storage"`
	Insight InsightConfig `yaml:"insight" json:"insight"`

	// Holidays, if non-empty, replaces the built-in seed list. It only
	// matters on first run, before any collection has been persisted.
	Holidays []Holiday `yaml:"holidays,omitempty" json:"holidays,omitempty"`

	// CORSOrigins lists origins allowed to call the API from a browser.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    "127.0.0.1:8080",
		Year:      2026,
		WeekStart: "monday",
		LogLevel:  "info",
		Storage: StorageConfig{
			Backend:     BackendFile,
			Dir:         "./data",
			SQLitePath:  "./data/tetcal.db",
			RedisURL:    "redis://localhost:6379/0",
			EventsKey:   DefaultEventsKey,
			InsightsKey: DefaultInsightsKey,
		},
		Insight: InsightConfig{
			Model:    DefaultModel,
			Timeout:  20 * time.Second,
			Prefetch: "0 6 * * *",
		},
		CORSOrigins: []string{"*"},
		BasicAuth:   nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Year <= 0 {
		c.Year = def.Year
	}
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendRedis, BackendMemory:
	default:
		c.Storage.Backend = BackendFile
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = def.Storage.Dir
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = def.Storage.SQLitePath
	}
	if c.Storage.RedisURL == "" {
		c.Storage.RedisURL = def.Storage.RedisURL
	}
	if c.Storage.EventsKey == "" {
		c.Storage.EventsKey = DefaultEventsKey
	}
	if c.Storage.InsightsKey == "" {
		c.Storage.InsightsKey = DefaultInsightsKey
	}

	if c.Insight.Model == "" {
		c.Insight.Model = DefaultModel
	}
	if c.Insight.Timeout <= 0 {
		c.Insight.Timeout = def.Insight.Timeout
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}
}

// ApplyEnv overlays environment variables on top of the file config. A .env
// file in the working directory is loaded first if present; variables that
// are already set in the process environment win over it.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Insight.APIKey = v
	} else if v := os.Getenv("API_KEY"); v != "" {
		c.Insight.APIKey = v
	}
	if v := os.Getenv("TETCAL_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("TETCAL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename (see WriteFileAtomic).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory followed by a rename, so readers never observe a partial file.
// The final file has 0600 permissions.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tetcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
