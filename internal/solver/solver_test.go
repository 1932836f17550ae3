package solver

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairwise-ratings/internal/graph"
	"github.com/pairwise-ratings/internal/partition"
	pkgerrors "github.com/pairwise-ratings/pkg/errors"
)

func buildGraph(t *testing.T, records ...string) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder()
	for _, rec := range records {
		fields := strings.Split(rec, ":")
		require.Len(t, fields, 3, rec)
		outcome, ok := graph.ParseOutcome(fields[2][0])
		require.True(t, ok, rec)
		_, err := b.AddGame(fields[0], fields[1], outcome)
		require.NoError(t, err)
	}
	return b.Finalize()
}

func testConfig(workers int) Config {
	cfg := DefaultConfig()
	cfg.Workers = workers
	return cfg
}

func display(r float64) float64 {
	return 400*math.Log10(r) + 1500
}

func TestStepSchedule(t *testing.T) {
	s := DefaultSchedule()

	tests := []struct {
		iteration int
		expected  float64
	}{
		{0, 33},
		{1, 1.6},
		{20, 1.6},
		{21, 33},
		{22, 1.6},
		{42, 33},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, s.K(tt.iteration), "iteration %d", tt.iteration)
	}

	flat := StepSchedule{Base: 2, Burst: 50}
	assert.Equal(t, 2.0, flat.K(0))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero epsilon", func(c *Config) { c.Epsilon = 0 }},
		{"nan epsilon", func(c *Config) { c.Epsilon = math.NaN() }},
		{"inf epsilon", func(c *Config) { c.Epsilon = math.Inf(1) }},
		{"negative cap", func(c *Config) { c.MaxIterations = -1 }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
		{"negative log interval", func(c *Config) { c.LogEvery = -1 }},
		{"nan base step", func(c *Config) { c.Schedule.Base = math.NaN() }},
		{"zero base step", func(c *Config) { c.Schedule.Base = 0 }},
		{"inf burst step", func(c *Config) { c.Schedule.Burst = math.Inf(1) }},
		{"negative burst step", func(c *Config) { c.Schedule.Burst = -33 }},
		{"negative burst interval", func(c *Config) { c.Schedule.BurstEvery = -1 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.True(t, pkgerrors.IsConfigError(err))
		})
	}
}

func TestSolver_TwoPlayers(t *testing.T) {
	g := buildGraph(t, "A:B:w")

	var totals, steps []float64
	res, err := Solve(g, testConfig(2), WithObserver(func(i int, total, k float64) {
		totals = append(totals, total)
		steps = append(steps, k)
	}))
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.NoError(t, res.Err())
	assert.Equal(t, 1, res.Iterations)
	assert.Less(t, res.TotalError, 0.1)
	assert.Greater(t, display(res.Ratings[0]), display(res.Ratings[1]))

	assert.Equal(t, []float64{1.0, res.TotalError}, totals)
	assert.Equal(t, []float64{33, 0}, steps)
}

func TestSolver_Cycle(t *testing.T) {
	g := buildGraph(t, "A:B:w", "B:C:w", "C:A:w")

	res, err := Solve(g, testConfig(3))
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 0.0, res.TotalError)
	assert.InDelta(t, res.Ratings[0], res.Ratings[1], 0.1)
	assert.InDelta(t, res.Ratings[1], res.Ratings[2], 0.1)
}

func TestSolver_SingleDraw(t *testing.T) {
	g := buildGraph(t, "A:B:d")

	st := newState(g)
	all := partition.Range{Start: 0, End: g.NumPlayers()}
	st.computeErrors(all)
	assert.Equal(t, []float64{0, 0}, st.errors)

	st.k = DefaultSchedule().K(0)
	st.adjust(all)
	assert.Equal(t, []float64{1, 1}, st.ratings)

	res, err := Solve(g, testConfig(0))
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, []float64{1, 1}, res.Ratings)
}

func TestSolver_EmptyGraph(t *testing.T) {
	g := graph.NewBuilder().Finalize()

	s, err := New(g, testConfig(4))
	require.NoError(t, err)
	defer s.Close()

	assert.Empty(t, s.ErrorJobs())
	assert.Empty(t, s.AdjustJobs())

	res := s.Run()
	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 0.0, res.TotalError)
	assert.Empty(t, res.Ratings)
}

func TestSolver_SinglePlayer(t *testing.T) {
	g := buildGraph(t, "A:A:d")

	res, err := Solve(g, testConfig(4))
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, []float64{1}, res.Ratings)
}

func TestSolver_IterationCap(t *testing.T) {
	g := buildGraph(t, "A:B:w", "A:B:w", "B:A:w")

	cfg := testConfig(2)
	cfg.MaxIterations = 5
	cfg.Epsilon = 1e-12

	var calls int
	res, err := Solve(g, cfg, WithObserver(func(i int, total, k float64) {
		calls++
		assert.False(t, math.IsNaN(total))
		assert.False(t, math.IsInf(total, 0))
		assert.GreaterOrEqual(t, total, 0.0)
	}))
	require.NoError(t, err)

	assert.False(t, res.Converged)
	assert.Equal(t, 5, res.Iterations)
	assert.Equal(t, 6, calls)
	assert.True(t, pkgerrors.IsIterationCap(res.Err()))
	assert.Greater(t, res.Ratings[0], res.Ratings[1])

	var sum float64
	for _, e := range res.Errors {
		sum += math.Abs(e)
	}
	assert.InDelta(t, sum, res.TotalError, 1e-12)
}

func TestSolver_ZeroCap(t *testing.T) {
	g := buildGraph(t, "A:B:w")

	cfg := testConfig(1)
	cfg.MaxIterations = 0

	res, err := Solve(g, cfg)
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 1.0, res.TotalError)
	assert.Equal(t, []float64{1, 1}, res.Ratings)
}

// randomGraph links every player to the next one with a draw so that no
// player wins or loses every game, then adds skewed decisive games.
func randomGraph(t *testing.T, players, games int, seed int64) *graph.Graph {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	var records []string
	for i := 0; i < players; i++ {
		records = append(records, fmt.Sprintf("p%d:p%d:d", i, (i+1)%players))
	}
	for i := 0; i < games; i++ {
		white := rng.Intn(players)
		if rng.Intn(3) == 0 {
			white = rng.Intn(3)
		}
		black := rng.Intn(players)
		code := "wb"[rng.Intn(2)]
		records = append(records, fmt.Sprintf("p%d:p%d:%c", white, black, code))
	}
	return buildGraph(t, records...)
}

func TestSolver_DeterministicAcrossWorkerCounts(t *testing.T) {
	g := randomGraph(t, 120, 2000, 7)

	cfg := testConfig(1)
	cfg.MaxIterations = 300

	base, err := Solve(g, cfg)
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8, 16} {
		cfg.Workers = workers
		res, err := Solve(g, cfg)
		require.NoError(t, err)
		assert.Equal(t, base, res, "workers=%d", workers)
	}

	for _, r := range base.Ratings {
		assert.Greater(t, r, 0.0)
	}
}

func TestSolver_RepeatedRuns(t *testing.T) {
	g := randomGraph(t, 40, 400, 11)

	s, err := New(g, testConfig(4))
	require.NoError(t, err)
	defer s.Close()

	first := s.Run()
	second := s.Run()
	assert.Equal(t, first, second)
}

func TestSolver_JobPlanning(t *testing.T) {
	g := randomGraph(t, 50, 500, 3)

	s, err := New(g, testConfig(6))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 6, s.Workers())
	require.Len(t, s.ErrorJobs(), 6)
	require.Len(t, s.AdjustJobs(), 6)

	var errorRanges, adjustRanges []partition.Range
	for _, spec := range s.ErrorJobs() {
		assert.Equal(t, KindErrors, spec.Kind)
		errorRanges = append(errorRanges, spec.Range)
	}
	for _, spec := range s.AdjustJobs() {
		assert.Equal(t, KindAdjust, spec.Kind)
		adjustRanges = append(adjustRanges, spec.Range)
	}
	assert.NoError(t, partition.Validate(errorRanges, g.NumPlayers()))
	assert.NoError(t, partition.Validate(adjustRanges, g.NumPlayers()))
}

func TestState_UnrolledMatchesPlainLoop(t *testing.T) {
	g := randomGraph(t, 30, 300, 5)
	st := newState(g)

	rng := rand.New(rand.NewSource(1))
	for p := range st.ratings {
		st.ratings[p] = 0.1 + rng.Float64()*10
	}
	st.computeErrors(partition.Range{Start: 0, End: g.NumPlayers()})

	for p := 0; p < g.NumPlayers(); p++ {
		opps, played := g.Edges(graph.PlayerID(p))
		rp := st.ratings[p]
		var expected float64
		for j, opp := range opps {
			expected += float64(played[j]) * rp / (rp + st.ratings[opp])
		}
		assert.Equal(t, g.TotalScore(graph.PlayerID(p))-expected, st.errors[p], "player %d", p)
	}
}

func TestState_DispatchByRange(t *testing.T) {
	g := buildGraph(t, "A:B:w", "B:C:w", "C:D:w")
	st := newState(g)

	st.dispatch(JobSpec{Kind: KindErrors, Range: partition.Range{Start: 1, End: 3}})
	assert.Equal(t, 0.0, st.errors[0])
	assert.Equal(t, 0.0, st.errors[1]) // B: 1 win, 1 loss at equal ratings
	assert.Equal(t, 0.0, st.errors[2])
	assert.Equal(t, 0.0, st.errors[3])

	st.dispatch(JobSpec{Kind: KindErrors, Range: partition.Range{Start: 0, End: 4}})
	assert.Equal(t, []float64{0.5, 0, 0, -0.5}, st.errors)

	st.k = 2
	st.dispatch(JobSpec{Kind: KindAdjust, Range: partition.Range{Start: 0, End: 1}})
	assert.Equal(t, 10.0, st.ratings[0])
	assert.Equal(t, 1.0, st.ratings[3])

	assert.Panics(t, func() { st.dispatch(JobSpec{Kind: JobKind(9)}) })
	assert.Equal(t, "adjust", KindAdjust.String())
	assert.Equal(t, "JobKind(9)", JobKind(9).String())
}

func TestSolver_CloseIsIdempotent(t *testing.T) {
	g := buildGraph(t, "A:B:w")
	s, err := New(g, testConfig(2))
	require.NoError(t, err)

	s.Close()
	s.Close()
	assert.Panics(t, func() { s.Run() })
}

func TestSolver_IndependentSolversInParallel(t *testing.T) {
	g := randomGraph(t, 60, 600, 9)
	cfg := testConfig(3)
	cfg.MaxIterations = 100

	want, err := Solve(g, cfg)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Result, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := Solve(g, cfg)
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.Equal(t, want, res)
	}
}
