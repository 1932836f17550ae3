package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/pairwise-ratings/pkg/errors"
)

func TestLoad_DefaultValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 0.1, cfg.Solver.Epsilon)
	assert.Equal(t, 100000, cfg.Solver.MaxIterations)
	assert.Equal(t, 0, cfg.Solver.Workers)
	assert.Equal(t, 1.6, cfg.Solver.BaseStep)
	assert.Equal(t, 33.0, cfg.Solver.BurstStep)
	assert.Equal(t, 21, cfg.Solver.BurstEvery)
	assert.Equal(t, 100, cfg.Solver.LogEvery)
	assert.Equal(t, "./output", cfg.Output.Dir)
	assert.Equal(t, "ratings-out.txt", cfg.Output.RatingsFile)
	assert.True(t, cfg.Output.WithErrors)
	assert.False(t, cfg.Storage.Enabled)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "ratings:leaderboard", cfg.Leaderboard.Key)
	assert.Equal(t, time.Duration(0), cfg.Leaderboard.TTL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_CustomValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
solver:
  epsilon: 0.01
  max_iterations: 500
  workers: 4
output:
  dir: /tmp/out
  with_errors: false
database:
  enabled: true
  type: postgres
  host: db.example.com
  database: ratings
  user: admin
leaderboard:
  enabled: true
  addr: redis:6379
  ttl: 1h
metrics:
  textfile: /var/lib/node_exporter/ratings.prom
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 0.01, cfg.Solver.Epsilon)
	assert.Equal(t, 500, cfg.Solver.MaxIterations)
	assert.Equal(t, 4, cfg.Solver.Workers)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.False(t, cfg.Output.WithErrors)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "redis:6379", cfg.Leaderboard.Addr)
	assert.Equal(t, time.Hour, cfg.Leaderboard.TTL)
	assert.Equal(t, "/var/lib/node_exporter/ratings.prom", cfg.Metrics.Textfile)
	assert.Equal(t, "/tmp/out/ratings-out.txt", cfg.RatingsPath())
	assert.Equal(t, "/tmp/out/summary.json", cfg.SummaryPath())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.Solver.Epsilon)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("solver: [unclosed"), 0644))

	_, err := Load(configFile)
	assert.Error(t, err)
	assert.True(t, pkgerrors.IsConfigError(err))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RATINGS_SOLVER_MAX_ITERATIONS", "42")
	t.Setenv("RATINGS_LOG_FORMAT", "json")

	cfg, err := LoadFromReader("yaml", []byte("solver:\n  epsilon: 0.5\n"))
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Solver.MaxIterations)
	assert.Equal(t, 0.5, cfg.Solver.Epsilon)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.1, cfg.Solver.Epsilon)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero epsilon", func(c *Config) { c.Solver.Epsilon = 0 }, true},
		{"negative cap", func(c *Config) { c.Solver.MaxIterations = -1 }, true},
		{"negative workers", func(c *Config) { c.Solver.Workers = -1 }, true},
		{"nan base step", func(c *Config) { c.Solver.BaseStep = math.NaN() }, true},
		{"zero base step", func(c *Config) { c.Solver.BaseStep = 0 }, true},
		{"inf burst step", func(c *Config) { c.Solver.BurstStep = math.Inf(1) }, true},
		{"negative burst step", func(c *Config) { c.Solver.BurstStep = -1 }, true},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }, true},
		{"cos without bucket", func(c *Config) {
			c.Storage.Enabled = true
			c.Storage.Type = "cos"
		}, true},
		{"cos complete", func(c *Config) {
			c.Storage.Enabled = true
			c.Storage.Type = "cos"
			c.Storage.Bucket = "ratings-1250000000"
			c.Storage.Region = "ap-guangzhou"
		}, false},
		{"unknown storage", func(c *Config) {
			c.Storage.Enabled = true
			c.Storage.Type = "s3"
		}, true},
		{"unknown storage ignored when disabled", func(c *Config) { c.Storage.Type = "s3" }, false},
		{"unknown database", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Type = "oracle"
		}, true},
		{"mysql without host", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Type = "mysql"
			c.Database.Host = ""
		}, true},
		{"sqlite", func(c *Config) { c.Database.Enabled = true }, false},
		{"leaderboard without key", func(c *Config) {
			c.Leaderboard.Enabled = true
			c.Leaderboard.Key = ""
		}, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, pkgerrors.IsConfigError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnsureOutputDir(t *testing.T) {
	cfg := Default()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "nested", "out")

	require.NoError(t, cfg.EnsureOutputDir())
	info, err := os.Stat(cfg.Output.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadFromReader_RejectsNaNStep(t *testing.T) {
	_, err := LoadFromReader("yaml", []byte("solver:\n  base_step: .nan\n"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfigError(err))
	assert.Contains(t, err.Error(), "base_step")
}
