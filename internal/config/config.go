package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"timerdash/internal/fsutil"
	appLog "timerdash/internal/log"
)

// EnvPrefix prefixes environment overrides, e.g. TIMERDASH_LISTEN.
const EnvPrefix = "TIMERDASH"

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// StorageConfig selects and configures the event store.
type StorageConfig struct {
	// Backend is one of "file", "sqlite", "mongo", "redis".
	Backend string `yaml:"backend" json:"backend"`

	// Path is the data file for the file and sqlite backends.
	Path string `yaml:"path" json:"path"`

	// URI is the MongoDB connection string or the Redis address (host:port).
	URI string `yaml:"uri,omitempty" json:"uri,omitempty"`

	// Database is the MongoDB database name.
	Database string `yaml:"database,omitempty" json:"database,omitempty"`

	// Collection is the MongoDB collection, or the Redis hash key.
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`

	// Password and DB are Redis connection settings.
	Password string `yaml:"password,omitempty" json:"-"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"`
}

// ICSConfig describes a remote calendar that events may be imported from.
type ICSConfig struct {
	// ID is what import requests refer to.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS endpoint.
	URL string `yaml:"url" json:"url"`
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

	// Timezone is the IANA zone used for calendar arithmetic (midnight,
	// weekday, day of month). Empty means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is the cron spec driving dashboard re-evaluation
	// (e.g. "@every 1s").
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LogJSON switches log output from console format to JSON lines.
	LogJSON bool `yaml:"log_json" json:"log_json"`

	Storage StorageConfig `yaml:"storage" json:"storage"`

	// CORSOrigins lists allowed browser origins. Empty allows all.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// ICS lists the calendars POST /api/events/import may fetch. Requests
	// name a source by ID; arbitrary URLs are never fetched.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /api/health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// envOverrides mirrors the settings that may come from the environment.
// Empty values leave the file setting untouched.
type envOverrides struct {
	Listen            string `envconfig:"LISTEN"`
	Timezone          string `envconfig:"TIMEZONE"`
	Refresh           string `envconfig:"REFRESH"`
	LogLevel          string `envconfig:"LOG_LEVEL"`
	LogJSON           *bool  `envconfig:"LOG_JSON"`
	StorageBackend    string `envconfig:"STORAGE_BACKEND"`
	StoragePath       string `envconfig:"STORAGE_PATH"`
	StorageURI        string `envconfig:"STORAGE_URI"`
	StorageDatabase   string `envconfig:"STORAGE_DATABASE"`
	StorageCollection string `envconfig:"STORAGE_COLLECTION"`
	StoragePassword   string `envconfig:"STORAGE_PASSWORD"`
	BasicAuthUser     string `envconfig:"BASIC_AUTH_USERNAME"`
	BasicAuthPassword string `envconfig:"BASIC_AUTH_PASSWORD"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:3001",
		Timezone:    "",
		RefreshCron: "@every 1s",
		LogLevel:    "info",
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    "./data/events.json",
		},
		CORSOrigins: []string{},
		ICS:         []ICSConfig{},
		BasicAuth:   nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:3001"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "@every 1s"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMongo, BackendRedis:
	default:
		c.Storage.Backend = BackendFile
	}
	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case BackendSQLite:
			c.Storage.Path = "./data/events.db"
		default:
			c.Storage.Path = "./data/events.json"
		}
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "timerdash"
	}
	if c.Storage.Collection == "" {
		c.Storage.Collection = "events"
	}
	if c.Storage.URI == "" {
		switch c.Storage.Backend {
		case BackendMongo:
			c.Storage.URI = "mongodb://127.0.0.1:27017"
		case BackendRedis:
			c.Storage.URI = "127.0.0.1:6379"
		}
	}

	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}

	sources := make([]ICSConfig, 0, len(c.ICS))
	for _, src := range c.ICS {
		src.ID = strings.TrimSpace(src.ID)
		src.URL = strings.TrimSpace(src.URL)
		if src.ID == "" || src.URL == "" {
			appLog.Info("ignoring ics source without id or url", "name", src.Name)
			continue
		}
		sources = append(sources, src)
	}
	c.ICS = sources
}

// ICSSource returns the configured calendar with the given id.
func (c *Config) ICSSource(id string) (ICSConfig, bool) {
	for _, src := range c.ICS {
		if src.ID == id {
			return src, true
		}
	}
	return ICSConfig{}, false
}

// Location resolves Timezone, falling back to the host zone when it is
// empty or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - A .env file in the working directory, if present, is loaded into the
//     environment first.
//   - If the config file does not exist, a default config is written with
//     0600 perms.
//   - Environment variables prefixed with TIMERDASH_ override file values.
//   - The result is normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Error("failed to load .env", err)
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}

	setIf := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setIf(&c.Listen, env.Listen)
	setIf(&c.Timezone, env.Timezone)
	setIf(&c.RefreshCron, env.Refresh)
	setIf(&c.LogLevel, env.LogLevel)
	setIf(&c.Storage.Backend, env.StorageBackend)
	setIf(&c.Storage.Path, env.StoragePath)
	setIf(&c.Storage.URI, env.StorageURI)
	setIf(&c.Storage.Database, env.StorageDatabase)
	setIf(&c.Storage.Collection, env.StorageCollection)
	setIf(&c.Storage.Password, env.StoragePassword)
	if env.LogJSON != nil {
		c.LogJSON = *env.LogJSON
	}
	if env.BasicAuthUser != "" && env.BasicAuthPassword != "" {
		c.BasicAuth = &BasicAuthConfig{Username: env.BasicAuthUser, Password: env.BasicAuthPassword}
	}
	return nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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
	return fsutil.WriteFileAtomic(path, data, ".timerdash-config-*.tmp")
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
