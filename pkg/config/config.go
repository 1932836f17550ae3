// Package config provides configuration management for the rating solver.
package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	pkgerrors "github.com/pairwise-ratings/pkg/errors"
)

// EnvPrefix prefixes environment overrides, e.g. RATINGS_SOLVER_EPSILON.
const EnvPrefix = "RATINGS"

// Config holds all configuration for the application.
type Config struct {
	Solver      SolverConfig      `mapstructure:"solver"`
	Output      OutputConfig      `mapstructure:"output"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
}

// SolverConfig holds the iteration parameters.
type SolverConfig struct {
	Epsilon       float64 `mapstructure:"epsilon"`
	MaxIterations int     `mapstructure:"max_iterations"`
	Workers       int     `mapstructure:"workers"` // 0 = hardware concurrency
	BaseStep      float64 `mapstructure:"base_step"`
	BurstStep     float64 `mapstructure:"burst_step"`
	BurstEvery    int     `mapstructure:"burst_every"`
	LogEvery      int     `mapstructure:"log_every"`
}

// OutputConfig controls the report files.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	RatingsFile string `mapstructure:"ratings_file"`
	WithErrors  bool   `mapstructure:"with_errors"`
	Summary     bool   `mapstructure:"summary"`
	Archive     bool   `mapstructure:"archive"` // gzipped JSON of all entries
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
	Prefix    string `mapstructure:"prefix"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"` // sqlite, postgres or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Path     string `mapstructure:"path"` // sqlite file
	MaxConns int    `mapstructure:"max_conns"`
}

// LeaderboardConfig holds the Redis leaderboard configuration.
type LeaderboardConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Key      string        `mapstructure:"key"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// MetricsConfig holds Prometheus export configuration.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // empty disables the textfile export
}

// ServerConfig holds the viewer configuration.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path. Without a path the
// standard locations are searched and defaults are used when none exists.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/rating-solver")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file, use defaults
		} else if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConfigError, "failed to read config file", err)
		}
	}

	return decode(v)
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfigError, "failed to read config", err)
	}

	return decode(v)
}

// Default returns the default configuration.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfigError, "failed to unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Solver defaults
	v.SetDefault("solver.epsilon", 0.1)
	v.SetDefault("solver.max_iterations", 100000)
	v.SetDefault("solver.workers", 0)
	v.SetDefault("solver.base_step", 1.6)
	v.SetDefault("solver.burst_step", 33.0)
	v.SetDefault("solver.burst_every", 21)
	v.SetDefault("solver.log_every", 100)

	// Output defaults
	v.SetDefault("output.dir", "./output")
	v.SetDefault("output.ratings_file", "ratings-out.txt")
	v.SetDefault("output.with_errors", true)
	v.SetDefault("output.summary", true)
	v.SetDefault("output.archive", false)

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.secret_id", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.domain", "myqcloud.com")
	v.SetDefault("storage.scheme", "https")
	v.SetDefault("storage.local_path", "./storage")
	v.SetDefault("storage.prefix", "ratings")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "ratings")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.path", "./ratings.db")
	v.SetDefault("database.max_conns", 10)

	// Leaderboard defaults
	v.SetDefault("leaderboard.enabled", false)
	v.SetDefault("leaderboard.addr", "localhost:6379")
	v.SetDefault("leaderboard.password", "")
	v.SetDefault("leaderboard.db", 0)
	v.SetDefault("leaderboard.key", "ratings:leaderboard")
	v.SetDefault("leaderboard.ttl", "0s")

	v.SetDefault("metrics.textfile", "")
	v.SetDefault("server.port", 8080)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func configError(format string, args ...interface{}) error {
	return pkgerrors.New(pkgerrors.CodeConfigError, fmt.Sprintf(format, args...))
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	s := c.Solver
	if !(s.Epsilon > 0) {
		return configError("solver.epsilon must be positive, got %v", s.Epsilon)
	}
	if s.MaxIterations < 0 {
		return configError("solver.max_iterations must not be negative")
	}
	if s.Workers < 0 {
		return configError("solver.workers must not be negative")
	}
	if !isPositiveFinite(s.BaseStep) || !isPositiveFinite(s.BurstStep) {
		return configError("solver.base_step and solver.burst_step must be positive finite numbers, got %v and %v", s.BaseStep, s.BurstStep)
	}
	if s.BurstEvery < 0 || s.LogEvery < 0 {
		return configError("solver.burst_every and solver.log_every must not be negative")
	}

	if c.Output.Dir == "" || c.Output.RatingsFile == "" {
		return configError("output.dir and output.ratings_file are required")
	}

	if c.Storage.Enabled {
		switch c.Storage.Type {
		case "local":
			if c.Storage.LocalPath == "" {
				return configError("storage.local_path is required for local storage")
			}
		case "cos":
			if c.Storage.Bucket == "" || c.Storage.Region == "" {
				return configError("storage.bucket and storage.region are required for cos storage")
			}
		default:
			return configError("unsupported storage type: %s", c.Storage.Type)
		}
	}

	if c.Database.Enabled {
		switch c.Database.Type {
		case "sqlite":
			if c.Database.Path == "" {
				return configError("database.path is required for sqlite")
			}
		case "postgres", "mysql":
			if c.Database.Host == "" {
				return configError("database host is required")
			}
		default:
			return configError("unsupported database type: %s", c.Database.Type)
		}
	}

	if c.Leaderboard.Enabled && (c.Leaderboard.Addr == "" || c.Leaderboard.Key == "") {
		return configError("leaderboard.addr and leaderboard.key are required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return configError("server.port out of range: %d", c.Server.Port)
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return configError("unsupported log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureOutputDir creates the output directory if it doesn't exist.
func (c *Config) EnsureOutputDir() error {
	return os.MkdirAll(c.Output.Dir, 0755)
}

// RatingsPath returns the path of the text report.
func (c *Config) RatingsPath() string {
	return filepath.Join(c.Output.Dir, c.Output.RatingsFile)
}

// SummaryPath returns the path of the JSON summary.
func (c *Config) SummaryPath() string {
	return filepath.Join(c.Output.Dir, "summary.json")
}

// ArchivePath returns the path of the gzipped entry archive.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.Output.Dir, "ratings.json.gz")
}
