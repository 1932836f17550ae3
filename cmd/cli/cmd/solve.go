package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pairwise-ratings/internal/service"
	"github.com/pairwise-ratings/pkg/config"
	"github.com/pairwise-ratings/pkg/utils"
)

var (
	// Solve command flags
	inputFile  string
	outputDir  string
	maxIter    int
	epsilon    float64
	workers    int
	noErrors   bool
	serveAfter bool
	servePort  int
)

// solveCmd represents the solve command
var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Compute ratings from a game file",
	Long: `Compute ratings from a file of white:black:outcome records.

The solve command:
  - Loads and validates every record (any malformed line aborts the run)
  - Iterates ratings on all cores until the total error drops below epsilon
  - Writes "name: rating, error" lines sorted by descending rating
  - Publishes the report to the sinks enabled in the configuration`,
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)

	binName := BinName()
	solveCmd.Example = `  # Solve with defaults
  ` + binName + ` solve -i games.txt

  # Write to a custom directory without the error column
  ` + binName + ` solve -i games.txt -o ./ratings --no-errors

  # Cap the iteration count
  ` + binName + ` solve -i games.txt --max-iter 5000`

	solveCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input game file (required)")
	solveCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default from config)")
	solveCmd.Flags().IntVar(&maxIter, "max-iter", 0, "Maximum number of adjustment iterations")
	solveCmd.Flags().Float64Var(&epsilon, "epsilon", 0, "Convergence threshold on the summed absolute error")
	solveCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker threads (0 = all cores)")
	solveCmd.Flags().BoolVar(&noErrors, "no-errors", false, "Omit the error column from the report")
	solveCmd.Flags().BoolVar(&serveAfter, "serve", false, "Start the viewer after solving")
	solveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port for the viewer (default from config)")
	solveCmd.MarkFlagRequired("input")
}

func runSolve(cmd *cobra.Command, args []string) error {
	if err := applySolveFlags(appConfig, cmd.Flags()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := GetLogger()
	out, p, err := solve(ctx, appConfig, inputFile, log)
	if err != nil {
		return err
	}
	defer p.Close()

	if !serveAfter {
		return nil
	}
	return startServeMode(ctx, out, p, appConfig.Server.Port, log)
}

// applySolveFlags copies the flags set on the command line over cfg.
func applySolveFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	if flags.Changed("output") {
		cfg.Output.Dir = outputDir
	}
	if flags.Changed("max-iter") {
		cfg.Solver.MaxIterations = maxIter
	}
	if flags.Changed("epsilon") {
		cfg.Solver.Epsilon = epsilon
	}
	if flags.Changed("workers") {
		cfg.Solver.Workers = workers
	}
	if flags.Changed("no-errors") {
		cfg.Output.WithErrors = !noErrors
	}
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	return cfg.Validate()
}

// solve runs the pipeline once. The caller closes the returned pipeline.
func solve(ctx context.Context, cfg *config.Config, input string, log utils.Logger) (*service.Outcome, *service.Pipeline, error) {
	p := service.New(cfg, log)
	if err := p.Initialize(ctx); err != nil {
		p.Close()
		return nil, nil, err
	}

	out, err := p.Run(ctx, input)
	if err != nil {
		p.Close()
		return nil, nil, err
	}

	log.Info("Solved %d players in %d iterations (total error %.6f, converged=%v) in %v",
		out.Players, out.Result.Iterations, out.Result.TotalError, out.Result.Converged, out.Duration)
	for _, f := range out.Files {
		log.Info("  - %s", f)
	}
	for _, u := range out.URLs {
		log.Info("  - published %s", u)
	}
	return out, p, nil
}
