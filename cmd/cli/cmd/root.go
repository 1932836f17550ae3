package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pairwise-ratings/pkg/config"
	"github.com/pairwise-ratings/pkg/telemetry"
	"github.com/pairwise-ratings/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger            utils.Logger
	appConfig         *config.Config
	shutdownTelemetry telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rating-solver",
	Short: "Pairwise rating solver for game records",
	Long: `rating-solver computes player strength ratings from a file of
pairwise game outcomes.

Each input line has the form white:black:outcome where outcome is
w (white win), b (black win) or d (draw). Ratings are iterated in parallel
until the summed score error falls below epsilon, then written as a ranked
report and optionally published to object storage, a database and a Redis
leaderboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadDotEnv(".env"); err != nil {
			return err
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appConfig = cfg

		logger = newLogger(cfg.Log, verbose, os.Stdout)

		shutdown, err := telemetry.Init(cmd.Context())
		if err != nil {
			logger.Warn("Tracing disabled: %v", err)
			shutdown = func(context.Context) error { return nil }
		}
		shutdownTelemetry = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTelemetry != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Warn("Failed to flush traces: %v", err)
			}
		}
		syncLogger(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	binName := BinName()
	rootCmd.Example = `  # Solve a game file and write ./output/ratings-out.txt
  ` + binName + ` solve -i games.txt

  # Solve with a tighter tolerance and browse the result
  ` + binName + ` solve -i games.txt --epsilon 0.01 --serve --port 9090

  # Use a configuration file
  ` + binName + ` solve -c ./configs/config.yaml -i games.txt`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	if logger == nil {
		return &utils.NullLogger{}
	}
	return logger
}

// newLogger builds the zap logger from the log section; --verbose raises
// it to debug.
func newLogger(cfg config.LogConfig, verbose bool, out io.Writer) *utils.ZapLogger {
	l := utils.NewLogger(utils.ParseLogLevel(cfg.Level), out, cfg.Format)
	if verbose {
		l.SetLevel(utils.LevelDebug)
	}
	return l
}

// syncLogger flushes buffered entries. Sync on a terminal stdout reports
// EINVAL or ENOTTY, which is ignored.
func syncLogger(l utils.Logger) {
	if s, ok := l.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

// loadDotEnv loads path into the environment when it exists. Variables
// already set are kept.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
