// Package solver drives the iterative pairwise rating fixed point over a
// finalized graph, fanning each phase out over a solver-owned thread pool.
package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/pairwise-ratings/internal/graph"
	"github.com/pairwise-ratings/internal/partition"
	pkgerrors "github.com/pairwise-ratings/pkg/errors"
	"github.com/pairwise-ratings/pkg/parallel"
	"github.com/pairwise-ratings/pkg/utils"
)

// Config holds the solver configuration.
type Config struct {
	// Epsilon stops the loop once the L1 norm of the error vector drops below it.
	// Default: 0.1
	Epsilon float64

	// MaxIterations caps the number of adjustment passes.
	// Default: 100000
	MaxIterations int

	// Workers is the pool size. Zero means runtime.NumCPU().
	Workers int

	// Schedule is the step-size schedule.
	Schedule StepSchedule

	// LogEvery logs progress every N iterations. Zero disables progress logs.
	// Default: 100
	LogEvery int
}

// DefaultConfig returns the default solver configuration.
func DefaultConfig() Config {
	return Config{
		Epsilon:       0.1,
		MaxIterations: 100000,
		Schedule:      DefaultSchedule(),
		LogEvery:      100,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !(c.Epsilon > 0) || math.IsInf(c.Epsilon, 0) {
		return pkgerrors.New(pkgerrors.CodeConfigError, fmt.Sprintf("epsilon must be a positive finite number, got %v", c.Epsilon))
	}
	if c.MaxIterations < 0 {
		return pkgerrors.New(pkgerrors.CodeConfigError, fmt.Sprintf("max iterations must not be negative, got %d", c.MaxIterations))
	}
	if c.Workers < 0 {
		return pkgerrors.New(pkgerrors.CodeConfigError, fmt.Sprintf("workers must not be negative, got %d", c.Workers))
	}
	if c.LogEvery < 0 {
		return pkgerrors.New(pkgerrors.CodeConfigError, fmt.Sprintf("log interval must not be negative, got %d", c.LogEvery))
	}
	return c.Schedule.Validate()
}

// Observer receives the total error and the step size chosen for every
// iteration. k is zero on the final iteration, where no adjustment follows.
type Observer func(iteration int, totalError, k float64)

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers a per-iteration callback. It runs on the
// goroutine that called Run, between the two phases.
func WithObserver(fn Observer) Option {
	return func(s *Solver) {
		s.observer = fn
	}
}

// Result is the outcome of a solver run.
type Result struct {
	// Iterations is the number of adjustment passes applied.
	Iterations int
	// TotalError is the L1 norm of Errors.
	TotalError float64
	// Converged reports whether TotalError dropped below epsilon.
	Converged bool
	// Ratings holds the multiplicative strength per player id.
	Ratings []float64
	// Errors holds score minus expected score per player id, computed
	// against Ratings.
	Errors []float64
}

// Err returns an error matching errors.ErrIterationCap when the run
// stopped at the iteration cap, nil otherwise.
func (r Result) Err() error {
	if r.Converged {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeIterationCap,
		fmt.Sprintf("stopped after %d iterations with total error %g", r.Iterations, r.TotalError), nil)
}

// Solver owns the rating and error vectors, the thread pool and the two
// barriers. It is not safe for concurrent use.
type Solver struct {
	config   Config
	graph    *graph.Graph
	state    *state
	pool     *parallel.ThreadPool
	logger   utils.Logger
	observer Observer

	errorJobs  []JobSpec
	adjustJobs []JobSpec

	errorBarrier  *parallel.Barrier
	adjustBarrier *parallel.Barrier

	closed bool
}

// New plans the partitions for g, starts the pool and registers the jobs
// of both phases. Call Close to stop the pool.
func New(g *graph.Graph, config Config, opts ...Option) (*Solver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidInput, "graph is inconsistent", err)
	}

	s := &Solver{
		config: config,
		graph:  g,
		state:  newState(g),
		logger: &utils.NullLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}

	poolConfig := parallel.DefaultPoolConfig()
	if config.Workers > 0 {
		poolConfig = poolConfig.WithWorkers(config.Workers)
	}
	s.pool = parallel.NewThreadPool(poolConfig)
	workers := s.pool.Size()

	n := g.NumPlayers()
	s.errorJobs = specs(KindErrors, partition.ByWeight(g.Played(), workers))
	s.adjustJobs = specs(KindAdjust, partition.ByCount(n, workers))

	s.errorBarrier = parallel.NewBarrier(s.jobs(s.errorJobs))
	s.adjustBarrier = parallel.NewBarrier(s.jobs(s.adjustJobs))

	s.logger.Debug("Solver ready: %d players, %d edges, %d workers", n, g.NumEdges(), workers)
	for i, spec := range s.errorJobs {
		s.logger.Debug("Error job %d: players %s (%d games)", i, spec.Range, partition.Weight(g.Played(), spec.Range))
	}

	return s, nil
}

func specs(kind JobKind, ranges []partition.Range) []JobSpec {
	out := make([]JobSpec, len(ranges))
	for i, r := range ranges {
		out[i] = JobSpec{Kind: kind, Range: r}
	}
	return out
}

func (s *Solver) jobs(list []JobSpec) []parallel.Job {
	jobs := make([]parallel.Job, len(list))
	for i, spec := range list {
		spec := spec
		jobs[i] = func() { s.state.dispatch(spec) }
	}
	return jobs
}

// Workers returns the pool size.
func (s *Solver) Workers() int {
	return s.pool.Size()
}

// ErrorJobs returns the descriptors of the error phase.
func (s *Solver) ErrorJobs() []JobSpec {
	return s.errorJobs
}

// AdjustJobs returns the descriptors of the adjustment phase.
func (s *Solver) AdjustJobs() []JobSpec {
	return s.adjustJobs
}

// Run iterates from all ratings equal to 1.0 until the total error drops
// below epsilon or MaxIterations adjustments have been applied. The
// returned vectors are copies.
func (s *Solver) Run() Result {
	if s.closed {
		panic("solver: Run after Close")
	}
	s.state.reset()

	var (
		total     float64
		converged bool
		i         int
	)
	for i = 0; ; i++ {
		s.errorBarrier.RunAndWait(s.pool)
		total = floats.Norm(s.state.errors, 1)

		if total < s.config.Epsilon {
			converged = true
			s.observe(i, total, 0)
			break
		}
		if i >= s.config.MaxIterations {
			s.observe(i, total, 0)
			break
		}

		s.state.k = s.config.Schedule.K(i)
		s.observe(i, total, s.state.k)
		s.adjustBarrier.RunAndWait(s.pool)
	}

	if converged {
		s.logger.Info("Converged after %d iterations, total error %.6f", i, total)
	} else {
		s.logger.Warn("Iteration cap %d reached, total error %.6f", s.config.MaxIterations, total)
	}

	return Result{
		Iterations: i,
		TotalError: total,
		Converged:  converged,
		Ratings:    append([]float64(nil), s.state.ratings...),
		Errors:     append([]float64(nil), s.state.errors...),
	}
}

func (s *Solver) observe(i int, total, k float64) {
	if s.config.LogEvery > 0 && i%s.config.LogEvery == 0 {
		s.logger.Info("Iteration %d: total error %.6f, K %.2f", i, total, k)
	}
	if s.observer != nil {
		s.observer(i, total, k)
	}
}

// Close stops the pool. No Run may be in flight.
func (s *Solver) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.pool.Close()
}

// Solve is a convenience wrapper that builds a Solver, runs it once and
// closes it.
func Solve(g *graph.Graph, config Config, opts ...Option) (Result, error) {
	s, err := New(g, config, opts...)
	if err != nil {
		return Result{}, err
	}
	defer s.Close()
	return s.Run(), nil
}
