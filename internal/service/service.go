// Package service runs the rating pipeline: load, finalize, solve, report
// and publish.
package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/pairwise-ratings/internal/graph"
	"github.com/pairwise-ratings/internal/ingest"
	"github.com/pairwise-ratings/internal/leaderboard"
	"github.com/pairwise-ratings/internal/report"
	"github.com/pairwise-ratings/internal/repository"
	"github.com/pairwise-ratings/internal/solver"
	"github.com/pairwise-ratings/internal/storage"
	"github.com/pairwise-ratings/internal/webui"
	"github.com/pairwise-ratings/pkg/config"
	pkgerrors "github.com/pairwise-ratings/pkg/errors"
	"github.com/pairwise-ratings/pkg/metrics"
	"github.com/pairwise-ratings/pkg/telemetry"
	"github.com/pairwise-ratings/pkg/utils"
	"github.com/pairwise-ratings/pkg/writer"
)

// Phase names recorded by the timer and the metrics.
const (
	PhaseLoad     = "load"
	PhaseFinalize = "finalize"
	PhaseSolve    = "solve"
	PhaseReport   = "report"
	PhasePublish  = "publish"
)

// LeaderboardPublisher publishes ranked entries to a live leaderboard.
type LeaderboardPublisher interface {
	Publish(ctx context.Context, entries []report.Entry) error
	Close() error
}

// Pipeline is the main application service.
type Pipeline struct {
	config  *config.Config
	logger  utils.Logger
	metrics *metrics.Metrics
	clock   utils.Clock
	newID   func() string

	storage storage.Storage
	store   *repository.Store
	runs    repository.RunRepository
	board   LeaderboardPublisher
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithStorage sets the artifact storage, overriding the storage section.
func WithStorage(st storage.Storage) Option {
	return func(p *Pipeline) {
		p.storage = st
	}
}

// WithStore sets the run store, overriding the database section. The
// pipeline closes it.
func WithStore(store *repository.Store) Option {
	return func(p *Pipeline) {
		p.store = store
		p.runs = store.Runs
	}
}

// WithRunRepository sets where runs are recorded without handing over a
// connection.
func WithRunRepository(runs repository.RunRepository) Option {
	return func(p *Pipeline) {
		p.runs = runs
	}
}

// WithLeaderboard sets the leaderboard publisher, overriding the
// leaderboard section.
func WithLeaderboard(board LeaderboardPublisher) Option {
	return func(p *Pipeline) {
		p.board = board
	}
}

// WithClock sets the clock used for run durations.
func WithClock(clock utils.Clock) Option {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

// WithRunID sets the run id generator.
func WithRunID(fn func() string) Option {
	return func(p *Pipeline) {
		p.newID = fn
	}
}

// New creates a new Pipeline.
func New(cfg *config.Config, logger utils.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	p := &Pipeline{
		config: cfg,
		logger: logger,
		clock:  utils.RealClock{},
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = metrics.New()
	}
	return p
}

// Metrics returns the collectors the pipeline records into.
func (p *Pipeline) Metrics() *metrics.Metrics {
	return p.metrics
}

// Initialize connects the publishers enabled in the configuration that
// were not supplied as options.
func (p *Pipeline) Initialize(ctx context.Context) error {
	if p.config.Storage.Enabled && p.storage == nil {
		p.logger.Info("Initializing storage (%s)...", p.config.Storage.Type)
		st, err := storage.NewStorage(&p.config.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		p.storage = st
	}

	if p.config.Database.Enabled && p.runs == nil {
		p.logger.Info("Connecting to database (%s)...", p.config.Database.Type)
		db, err := repository.NewGormDB(ctx, &p.config.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		store := repository.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return err
		}
		p.store = store
		p.runs = store.Runs
	}

	if p.config.Leaderboard.Enabled && p.board == nil {
		p.logger.Info("Connecting to leaderboard at %s", p.config.Leaderboard.Addr)
		p.board = leaderboard.NewPublisher(&p.config.Leaderboard, p.logger)
	}

	return nil
}

// Close releases the database and leaderboard connections.
func (p *Pipeline) Close() error {
	var firstErr error
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.logger.Error("Failed to close database connection: %v", err)
			firstErr = err
		}
	}
	if p.board != nil {
		if err := p.board.Close(); err != nil {
			p.logger.Error("Failed to close leaderboard connection: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// HealthCheck verifies the database connection when one is configured.
func (p *Pipeline) HealthCheck(ctx context.Context) error {
	if p.store != nil {
		if err := p.store.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
	}
	return nil
}

// Outcome is the result of one pipeline run.
type Outcome struct {
	RunID   string
	Input   string
	Stats   ingest.LoadStats
	Players int
	Edges   int
	Games   int
	Workers int
	Result  solver.Result
	Entries []report.Entry
	Summary report.Summary
	// Files lists the report files written, ratings first.
	Files []string
	// URLs lists the published artifact locations, in Files order.
	URLs []string
	// Duration covers load through report.
	Duration time.Duration
}

// Snapshot returns the viewer state of the outcome.
func (o *Outcome) Snapshot() *webui.Snapshot {
	return &webui.Snapshot{
		RunID:      o.RunID,
		Input:      o.Input,
		Players:    o.Players,
		Edges:      o.Edges,
		Games:      o.Games,
		Iterations: o.Result.Iterations,
		TotalError: o.Result.TotalError,
		Converged:  o.Result.Converged,
		Summary:    o.Summary,
		Entries:    o.Entries,
	}
}

// Run solves the games in inputPath and writes and publishes the ratings.
// A run that stops at the iteration cap is not an error; the outcome's
// Result.Converged is false.
func (p *Pipeline) Run(ctx context.Context, inputPath string) (*Outcome, error) {
	runID := p.newID()
	logger := p.logger.WithField("run", runID)
	timer := utils.NewTimer("rating-solver", utils.WithLogger(logger), utils.WithClock(p.clock))

	ctx, span := telemetry.StartSpan(ctx, "pipeline.run",
		attribute.String("run.id", runID),
		attribute.String("input.path", inputPath),
	)
	out, err := p.run(ctx, runID, inputPath, timer, logger)
	telemetry.EndSpan(span, err)

	timer.Log()
	p.metrics.ObservePhases(timer.Durations())
	if path := p.config.Metrics.Textfile; path != "" {
		if werr := p.metrics.WriteTextfile(path); werr != nil {
			logger.Error("Failed to write metrics to %s: %v", path, werr)
		}
	}

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, runID, inputPath string, timer *utils.Timer, logger utils.Logger) (*Outcome, error) {
	started := p.clock.Now()
	out := &Outcome{RunID: runID, Input: inputPath}

	b := graph.NewBuilder()
	err := p.phase(ctx, timer, PhaseLoad, func(context.Context) error {
		stats, err := ingest.LoadFile(inputPath, b, logger)
		out.Stats = stats
		return err
	})
	if err != nil {
		return nil, err
	}

	var g *graph.Graph
	_ = p.phase(ctx, timer, PhaseFinalize, func(context.Context) error {
		g = b.Finalize()
		out.Players, out.Edges, out.Games = g.NumPlayers(), g.NumEdges(), g.NumGames()
		return nil
	})
	p.metrics.ObserveGraph(out.Players, out.Edges, out.Games)
	logger.Debug("Graph has %d players, %d edges, %d games", out.Players, out.Edges, out.Games)

	err = p.phase(ctx, timer, PhaseSolve, func(context.Context) error {
		s, err := solver.New(g, p.solverConfig(), solver.WithLogger(logger))
		if err != nil {
			return err
		}
		defer s.Close()
		out.Workers = s.Workers()
		out.Result = s.Run()
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveSolve(out.Result.Iterations, out.Result.TotalError, out.Result.Converged)
	if err := out.Result.Err(); err != nil {
		logger.Warn("Emitting unconverged ratings: %v", err)
	}

	err = p.phase(ctx, timer, PhaseReport, func(context.Context) error {
		out.Entries = report.Build(g, out.Result)
		out.Summary = report.Summarize(out.Entries)
		files, err := p.writeReports(out, logger)
		out.Files = files
		return err
	})
	if err != nil {
		return nil, err
	}
	out.Duration = p.clock.Now().Sub(started)

	err = p.phase(ctx, timer, PhasePublish, func(ctx context.Context) error {
		urls, err := p.publish(ctx, out)
		out.URLs = urls
		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// phase times fn under name and traces it as a child span.
func (p *Pipeline) phase(ctx context.Context, timer *utils.Timer, name string, fn func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, "pipeline."+name)
	_, err := timer.Time(name, func() error {
		return fn(ctx)
	})
	telemetry.EndSpan(span, err)
	return err
}

func (p *Pipeline) solverConfig() solver.Config {
	sc := p.config.Solver
	return solver.Config{
		Epsilon:       sc.Epsilon,
		MaxIterations: sc.MaxIterations,
		Workers:       sc.Workers,
		Schedule: solver.StepSchedule{
			Base:       sc.BaseStep,
			Burst:      sc.BurstStep,
			BurstEvery: sc.BurstEvery,
		},
		LogEvery: sc.LogEvery,
	}
}

// writeReports writes the text report and, when enabled, the JSON summary
// and the gzipped archive.
func (p *Pipeline) writeReports(out *Outcome, logger utils.Logger) ([]string, error) {
	if err := p.config.EnsureOutputDir(); err != nil {
		return nil, pkgerrors.FileAccess(p.config.Output.Dir, err)
	}

	ratingsPath := p.config.RatingsPath()
	if err := writeText(ratingsPath, out.Entries, p.config.Output.WithErrors); err != nil {
		return nil, err
	}
	files := []string{ratingsPath}
	logger.Info("Wrote %d ratings to %s", len(out.Entries), ratingsPath)

	if p.config.Output.Summary {
		path := p.config.SummaryPath()
		if err := writer.NewPrettyJSONWriter[*webui.Snapshot]().WriteToFile(out.Snapshot(), path); err != nil {
			return files, pkgerrors.FileAccess(path, err)
		}
		files = append(files, path)
	}

	if p.config.Output.Archive {
		path := p.config.ArchivePath()
		res, err := writer.NewGzipWriter[[]report.Entry]().WriteToFile(out.Entries, path)
		if err != nil {
			return files, pkgerrors.FileAccess(path, err)
		}
		logger.Debug("Archived ratings to %s (%d -> %d bytes, ratio %.2f)", path, res.JSONSize, res.CompressedSize, res.Ratio())
		files = append(files, path)
	}

	return files, nil
}

func writeText(path string, entries []report.Entry, withErrors bool) error {
	f, err := os.Create(path)
	if err != nil {
		return pkgerrors.FileAccess(path, err)
	}
	if err := report.WriteText(f, entries, withErrors); err != nil {
		f.Close()
		return pkgerrors.FileAccess(path, err)
	}
	if err := f.Close(); err != nil {
		return pkgerrors.FileAccess(path, err)
	}
	return nil
}

// publish fans the outcome out to every configured sink and waits for all
// of them. The first failure cancels the others.
func (p *Pipeline) publish(ctx context.Context, out *Outcome) ([]string, error) {
	g, gctx := errgroup.WithContext(ctx)

	var urls []string
	if p.storage != nil {
		g.Go(func() error {
			u, err := storage.PublishFiles(gctx, p.storage, p.config.Storage.Prefix, out.RunID, out.Files)
			urls = u
			return err
		})
	}
	if p.runs != nil {
		g.Go(func() error {
			return p.runs.SaveRun(gctx, p.runRecord(out), ratingRows(out.Entries))
		})
	}
	if p.board != nil {
		g.Go(func() error {
			return p.board.Publish(gctx, out.Entries)
		})
	}

	if err := g.Wait(); err != nil {
		return urls, err
	}
	return urls, nil
}

func (p *Pipeline) runRecord(out *Outcome) *repository.RatingRun {
	return &repository.RatingRun{
		RunID:      out.RunID,
		InputPath:  out.Input,
		Players:    out.Players,
		Edges:      out.Edges,
		Games:      out.Games,
		Workers:    out.Workers,
		Iterations: out.Result.Iterations,
		TotalError: out.Result.TotalError,
		Epsilon:    p.config.Solver.Epsilon,
		Converged:  out.Result.Converged,
		DurationMs: out.Duration.Milliseconds(),
	}
}

func ratingRows(entries []report.Entry) []repository.PlayerRating {
	rows := make([]repository.PlayerRating, len(entries))
	for i, e := range entries {
		rows[i] = repository.PlayerRating{
			Rank:   e.Rank,
			Name:   e.Name,
			Rating: e.Rating,
			Error:  e.Error,
			Games:  e.Games,
			Raw:    e.Raw,
		}
	}
	return rows
}
