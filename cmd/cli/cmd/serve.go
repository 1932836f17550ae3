package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pairwise-ratings/internal/service"
	"github.com/pairwise-ratings/internal/webui"
	"github.com/pairwise-ratings/pkg/utils"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Solve a game file and serve the ratings over HTTP",
	Long: `Solve a game file and start an HTTP server exposing the result.

Endpoints:
  GET /healthz               liveness
  GET /api/summary           run statistics and rating distribution
  GET /api/ratings?limit=N   ranked ratings
  GET /api/ratings/{name}    one player
  GET /metrics               Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	binName := BinName()
	serveCmd.Example = `  # Serve on the configured port
  ` + binName + ` serve -i games.txt

  # Serve on port 9090 with verbose logging
  ` + binName + ` serve -i games.txt -p 9090 -v`

	serveCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input game file (required)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port for the viewer (default from config)")
	serveCmd.MarkFlagRequired("input")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	return startServeMode(ctx, out, p, appConfig.Server.Port, log)
}

// startServeMode is shared between solve --serve and the serve command.
// It blocks until ctx is cancelled.
func startServeMode(ctx context.Context, out *service.Outcome, p *service.Pipeline, port int, log utils.Logger) error {
	server := webui.NewServer(out.Snapshot(), p.Metrics(), port, log)

	go func() {
		<-ctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Server shutdown: %v", err)
		}
	}()

	log.Info("Open in browser: http://localhost:%d/api/ratings", port)
	log.Info("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
