// Package config provides configuration management for the breeze CLI.
// Configuration is layered: defaults, then the YAML config file, then
// BREEZE_* environment variables (optionally loaded from a .env file), then
// command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/breeze-cli/pkg/db"
	"github.com/otherjamesbrown/breeze-cli/pkg/logging"
	"github.com/otherjamesbrown/breeze-cli/pkg/storage"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultStorage       = storage.BackendFile
	DefaultTimeout       = 30 * time.Second
	DefaultOutputFormat  = OutputFormatText
	DefaultLogLevel      = "warn"
	DefaultConfigDir     = ".breeze"
	DefaultConfigFile    = "config.yaml"
	DefaultDataDir       = "data"
	DefaultRedisAddress  = "localhost:6379"
	DefaultServerAddress = "127.0.0.1:8080"
)

// EnvConfigDir overrides the configuration directory.
const EnvConfigDir = "BREEZE_CONFIG_DIR"

// RedisConfig holds settings for the redis storage backend and event
// publishing.
type RedisConfig struct {
	Address   string `yaml:"address"`
	DB        int    `yaml:"db"`
	Password  string `yaml:"password,omitempty"`
	KeyPrefix string `yaml:"key_prefix"`
}

// PostgresConfig holds settings for the postgres storage backend.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"sslmode"`
	Table    string `yaml:"table"`
}

// EventsConfig controls meeting event publishing to Redis.
type EventsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ServerConfig holds settings for `breeze serve`.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// Storage selects the slot backend: file, memory, redis or postgres.
	Storage string `yaml:"storage"`

	// DataDir is where the file backend keeps its slots. Empty means
	// <config dir>/data. Supports ~.
	DataDir string `yaml:"data_dir,omitempty"`

	// Timeout bounds each command's storage round trips.
	Timeout time.Duration `yaml:"timeout"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Debug enables debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// LogLevel is the minimum level logged to stderr.
	LogLevel string `yaml:"log_level"`

	// LogJSON switches stderr logging to JSON.
	LogJSON bool `yaml:"log_json,omitempty"`

	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Events   EventsConfig   `yaml:"events"`
	Server   ServerConfig   `yaml:"server"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	pg := db.DefaultConfig()
	return &CLIConfig{
		Storage:      DefaultStorage,
		Timeout:      DefaultTimeout,
		OutputFormat: DefaultOutputFormat,
		LogLevel:     DefaultLogLevel,
		Redis: RedisConfig{
			Address:   DefaultRedisAddress,
			KeyPrefix: storage.DefaultRedisKeyPrefix,
		},
		Postgres: PostgresConfig{
			Host:     pg.Host,
			Port:     pg.Port,
			Database: pg.Database,
			User:     pg.User,
			SSLMode:  pg.SSLMode,
			Table:    storage.DefaultPostgresTable,
		},
		Server: ServerConfig{Address: DefaultServerAddress},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $BREEZE_CONFIG_DIR if set, otherwise ~/.breeze
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the environment. Variables already set are not overridden and missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig loads the CLI configuration.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.breeze/config.yaml or $BREEZE_CONFIG_DIR/config.yaml)
// 3. Environment variables (BREEZE_STORAGE, BREEZE_TIMEOUT, ...)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// configFile is the on-disk layout; the timeout is kept as a duration string.
type configFile struct {
	Storage      string         `yaml:"storage"`
	DataDir      string         `yaml:"data_dir,omitempty"`
	Timeout      string         `yaml:"timeout"`
	OutputFormat OutputFormat   `yaml:"output_format"`
	Debug        bool           `yaml:"debug,omitempty"`
	LogLevel     string         `yaml:"log_level,omitempty"`
	LogJSON      bool           `yaml:"log_json,omitempty"`
	Redis        RedisConfig    `yaml:"redis"`
	Postgres     PostgresConfig `yaml:"postgres"`
	Events       EventsConfig   `yaml:"events"`
	Server       ServerConfig   `yaml:"server"`
}

// loadFromFile overlays non-empty values from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	setString(&cfg.Storage, fileCfg.Storage)
	setString(&cfg.DataDir, fileCfg.DataDir)
	if fileCfg.Timeout != "" {
		timeout, err := time.ParseDuration(fileCfg.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	setString(&cfg.LogLevel, fileCfg.LogLevel)
	cfg.Debug = fileCfg.Debug
	cfg.LogJSON = fileCfg.LogJSON

	setString(&cfg.Redis.Address, fileCfg.Redis.Address)
	if fileCfg.Redis.DB != 0 {
		cfg.Redis.DB = fileCfg.Redis.DB
	}
	setString(&cfg.Redis.Password, fileCfg.Redis.Password)
	setString(&cfg.Redis.KeyPrefix, fileCfg.Redis.KeyPrefix)

	setString(&cfg.Postgres.Host, fileCfg.Postgres.Host)
	if fileCfg.Postgres.Port != 0 {
		cfg.Postgres.Port = fileCfg.Postgres.Port
	}
	setString(&cfg.Postgres.Database, fileCfg.Postgres.Database)
	setString(&cfg.Postgres.User, fileCfg.Postgres.User)
	setString(&cfg.Postgres.Password, fileCfg.Postgres.Password)
	setString(&cfg.Postgres.SSLMode, fileCfg.Postgres.SSLMode)
	setString(&cfg.Postgres.Table, fileCfg.Postgres.Table)

	cfg.Events.Enabled = fileCfg.Events.Enabled
	setString(&cfg.Server.Address, fileCfg.Server.Address)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// loadFromEnv overlays BREEZE_* environment variables. Each variable uses
// the same parsing as `breeze config set` for its key.
func loadFromEnv(cfg *CLIConfig) error {
	for _, key := range SettableKeys() {
		envVar := "BREEZE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if v := os.Getenv(envVar); v != "" {
			if err := cfg.Set(key, v); err != nil {
				return fmt.Errorf("%s: %w", envVar, err)
			}
		}
	}
	return nil
}

// setters maps configuration keys to their parsers.
var setters = map[string]func(c *CLIConfig, v string) error{
	"storage":  func(c *CLIConfig, v string) error { c.Storage = v; return nil },
	"data_dir": func(c *CLIConfig, v string) error { c.DataDir = v; return nil },
	"timeout": func(c *CLIConfig, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		c.Timeout = d
		return nil
	},
	"output_format": func(c *CLIConfig, v string) error {
		f := OutputFormat(v)
		if !f.IsValid() {
			return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", v)
		}
		c.OutputFormat = f
		return nil
	},
	"debug":     boolSetter(func(c *CLIConfig) *bool { return &c.Debug }),
	"log_level": func(c *CLIConfig, v string) error { c.LogLevel = v; return nil },
	"log_json":  boolSetter(func(c *CLIConfig) *bool { return &c.LogJSON }),

	"redis.address":    func(c *CLIConfig, v string) error { c.Redis.Address = v; return nil },
	"redis.db":         intSetter(func(c *CLIConfig) *int { return &c.Redis.DB }),
	"redis.password":   func(c *CLIConfig, v string) error { c.Redis.Password = v; return nil },
	"redis.key_prefix": func(c *CLIConfig, v string) error { c.Redis.KeyPrefix = v; return nil },

	"postgres.host":     func(c *CLIConfig, v string) error { c.Postgres.Host = v; return nil },
	"postgres.port":     intSetter(func(c *CLIConfig) *int { return &c.Postgres.Port }),
	"postgres.database": func(c *CLIConfig, v string) error { c.Postgres.Database = v; return nil },
	"postgres.user":     func(c *CLIConfig, v string) error { c.Postgres.User = v; return nil },
	"postgres.password": func(c *CLIConfig, v string) error { c.Postgres.Password = v; return nil },
	"postgres.sslmode":  func(c *CLIConfig, v string) error { c.Postgres.SSLMode = v; return nil },
	"postgres.table":    func(c *CLIConfig, v string) error { c.Postgres.Table = v; return nil },

	"events.enabled": boolSetter(func(c *CLIConfig) *bool { return &c.Events.Enabled }),
	"server.address": func(c *CLIConfig, v string) error { c.Server.Address = v; return nil },
}

func boolSetter(field func(*CLIConfig) *bool) func(*CLIConfig, string) error {
	return func(c *CLIConfig, v string) error {
		b, err := ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func intSetter(field func(*CLIConfig) *int) func(*CLIConfig, string) error {
	return func(c *CLIConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer: %s", v)
		}
		*field(c) = n
		return nil
	}
}

// ParseBool accepts true/false/1/0 (case-insensitive).
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean: %s (must be true or false)", v)
	}
}

// SettableKeys returns the keys accepted by Set, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a configuration value by key, e.g. "redis.address".
func (c *CLIConfig) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return set(c, value)
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if !storage.ValidBackend(c.Storage) {
		return storage.ErrUnknownBackend(c.Storage)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	switch logging.Level(strings.ToLower(c.LogLevel)) {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, "warning", logging.LevelError:
	default:
		return fmt.Errorf("invalid log_level: %q (must be debug, info, warn, or error)", c.LogLevel)
	}

	if (c.Storage == storage.BackendRedis || c.Events.Enabled) && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required for redis storage or events")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must not be negative")
	}

	if c.Storage == storage.BackendPostgres {
		if err := c.PostgresDB().Validate(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if c.Postgres.Table == "" {
			return fmt.Errorf("postgres.table is required")
		}
	}

	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// ResolvedDataDir returns the file backend directory with ~ expanded.
func (c *CLIConfig) ResolvedDataDir() (string, error) {
	if c.DataDir != "" {
		return ExpandPath(c.DataDir)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultDataDir), nil
}

// PostgresDB converts the postgres settings to a pool configuration.
func (c *CLIConfig) PostgresDB() *db.Config {
	cfg := db.DefaultConfig()
	cfg.Host = c.Postgres.Host
	cfg.Port = c.Postgres.Port
	cfg.Database = c.Postgres.Database
	cfg.User = c.Postgres.User
	cfg.Password = c.Postgres.Password
	cfg.SSLMode = c.Postgres.SSLMode
	if c.Timeout > 0 && c.Timeout < cfg.ConnectTimeout {
		cfg.ConnectTimeout = c.Timeout
	}
	return cfg
}

// LoggingConfig derives the logger configuration. Debug forces debug level.
func (c *CLIConfig) LoggingConfig() *logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.LogLevel)
	if c.Debug {
		lc.Level = logging.LevelDebug
	}
	lc.JSONFormat = c.LogJSON
	return lc
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	fileCfg := configFile{
		Storage:      cfg.Storage,
		DataDir:      cfg.DataDir,
		Timeout:      cfg.Timeout.String(),
		OutputFormat: cfg.OutputFormat,
		Debug:        cfg.Debug,
		LogLevel:     cfg.LogLevel,
		LogJSON:      cfg.LogJSON,
		Redis:        cfg.Redis,
		Postgres:     cfg.Postgres,
		Events:       cfg.Events,
		Server:       cfg.Server,
	}

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
