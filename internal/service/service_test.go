package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/pairwise-ratings/internal/mock"
	"github.com/pairwise-ratings/internal/report"
	"github.com/pairwise-ratings/internal/repository"
	"github.com/pairwise-ratings/internal/storage"
	"github.com/pairwise-ratings/internal/testutil"
	"github.com/pairwise-ratings/pkg/config"
	pkgerrors "github.com/pairwise-ratings/pkg/errors"
	"github.com/pairwise-ratings/pkg/utils"
)

type fakeBoard struct {
	mu        sync.Mutex
	published []report.Entry
	err       error
	closed    bool
}

func (f *fakeBoard) Publish(ctx context.Context, entries []report.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePublishError, "leaderboard unavailable", f.err)
	}
	f.published = append([]report.Entry(nil), entries...)
	return nil
}

func (f *fakeBoard) Close() error {
	f.closed = true
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	cfg.Solver.Workers = 2
	cfg.Solver.LogEvery = 0
	return cfg
}

func fixedID(id string) Option {
	return WithRunID(func() string { return id })
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Output.Archive = true
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "ratings.prom")

	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	db, err := repository.Open(ctx, sqlite.Open(":memory:"), 1)
	require.NoError(t, err)
	store := repository.NewStore(db)
	require.NoError(t, store.Migrate(ctx))

	board := &fakeBoard{}
	p := New(cfg, &utils.NullLogger{}, fixedID("run-1"), WithStorage(st), WithStore(store), WithLeaderboard(board))
	defer p.Close()

	out, err := p.Run(ctx, testutil.WriteGameFile(t, "alice:bob:w", "alice:carol:w", "carol:bob:d"))
	require.NoError(t, err)

	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, 3, out.Players)
	assert.Equal(t, 3, out.Games)
	assert.Equal(t, 3, out.Stats.Lines)
	assert.Equal(t, 2, out.Workers)
	assert.True(t, out.Result.Converged)
	require.Len(t, out.Entries, 3)
	assert.Equal(t, "alice", out.Entries[0].Name)
	assert.Equal(t, 3, out.Summary.Players)

	require.Equal(t, []string{cfg.RatingsPath(), cfg.SummaryPath(), cfg.ArchivePath()}, out.Files)
	text, err := os.ReadFile(cfg.RatingsPath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(text)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "alice: "))
	assert.Contains(t, lines[0], ", ")

	summary, err := os.ReadFile(cfg.SummaryPath())
	require.NoError(t, err)
	assert.Contains(t, string(summary), `"run_id": "run-1"`)

	require.Len(t, out.URLs, 3)
	exists, err := st.Exists(ctx, storage.ArtifactKey(cfg.Storage.Prefix, "run-1", cfg.Output.RatingsFile))
	require.NoError(t, err)
	assert.True(t, exists)

	run, err := store.Runs.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 3, run.Players)
	assert.Equal(t, out.Result.Iterations, run.Iterations)
	rows, err := store.Runs.ListRatings(ctx, "run-1", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0].Name)

	assert.Equal(t, out.Entries, board.published)

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "ratings_players 3")
	assert.Contains(t, string(prom), `phase="solve"`)
}

func TestPipeline_RatingsWithoutErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.WithErrors = false
	cfg.Output.Summary = false

	clock := utils.NewMockClock(time.Unix(0, 0))
	out, err := New(cfg, &utils.NullLogger{}, WithClock(clock)).Run(context.Background(), testutil.WriteGameFile(t, "a:b:w"))
	require.NoError(t, err)
	assert.Equal(t, []string{cfg.RatingsPath()}, out.Files)
	assert.Zero(t, out.Duration)
	assert.Empty(t, out.URLs)

	for _, line := range testutil.ReadLines(t, cfg.RatingsPath()) {
		assert.NotContains(t, line, ",")
	}
}

func TestPipeline_ParseErrorAborts(t *testing.T) {
	cfg := testConfig(t)
	board := &fakeBoard{}
	p := New(cfg, &utils.NullLogger{}, WithLeaderboard(board))

	_, err := p.Run(context.Background(), testutil.WriteGameFile(t, "a:b:w", "a:b"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsParseError(err))

	_, statErr := os.Stat(cfg.RatingsPath())
	assert.True(t, os.IsNotExist(statErr))
	assert.Nil(t, board.published)
}

func TestPipeline_MissingInput(t *testing.T) {
	p := New(testConfig(t), &utils.NullLogger{})

	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsFileAccessError(err))
}

func TestPipeline_IterationCapIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Solver.MaxIterations = 0
	cfg.Solver.Epsilon = 1e-9

	out, err := New(cfg, &utils.NullLogger{}).Run(context.Background(), testutil.WriteGameFile(t, "a:b:w", "b:a:w", "a:b:w"))
	require.NoError(t, err)
	assert.False(t, out.Result.Converged)
	assert.Equal(t, 0, out.Result.Iterations)
	assert.True(t, pkgerrors.IsIterationCap(out.Result.Err()))
	assert.FileExists(t, cfg.RatingsPath())
}

func TestPipeline_PublishFailure(t *testing.T) {
	cfg := testConfig(t)
	board := &fakeBoard{err: errors.New("connection refused")}

	_, err := New(cfg, &utils.NullLogger{}, WithLeaderboard(board)).Run(context.Background(), testutil.WriteGameFile(t, "a:b:w"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePublishError, pkgerrors.GetErrorCode(err))
	assert.FileExists(t, cfg.RatingsPath())
}

func TestPipeline_Initialize(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Storage.Enabled = true
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = t.TempDir()
	cfg.Database.Enabled = true
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "ratings.db")

	p := New(cfg, &utils.NullLogger{}, fixedID("init-run"))
	require.NoError(t, p.Initialize(ctx))
	require.NoError(t, p.HealthCheck(ctx))

	out, err := p.Run(ctx, testutil.WriteGameFile(t, "a:b:d"))
	require.NoError(t, err)
	assert.Len(t, out.URLs, len(out.Files))

	run, err := p.store.Runs.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "init-run", run.RunID)

	require.NoError(t, p.Close())
}

func TestPipeline_CloseReleasesBoard(t *testing.T) {
	board := &fakeBoard{}
	p := New(testConfig(t), nil, WithLeaderboard(board))
	require.NoError(t, p.Close())
	assert.True(t, board.closed)
}

func TestOutcome_Snapshot(t *testing.T) {
	out := &Outcome{
		RunID:   "r",
		Input:   "games.txt",
		Players: 2,
		Edges:   2,
		Games:   1,
		Entries: []report.Entry{{Rank: 1, Name: "a"}, {Rank: 2, Name: "b"}},
	}
	out.Result.Iterations = 4
	out.Result.Converged = true

	snap := out.Snapshot()
	assert.Equal(t, "r", snap.RunID)
	assert.Equal(t, 4, snap.Iterations)
	assert.True(t, snap.Converged)
	assert.Len(t, snap.Entries, 2)
}

func TestPipeline_RecordsRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Summary = false

	runs := &mock.MockRunRepository{}
	var saved *repository.RatingRun
	var rows []repository.PlayerRating
	runs.ExpectSaveRun(nil).Run(func(args testifymock.Arguments) {
		saved = args.Get(1).(*repository.RatingRun)
		rows = args.Get(2).([]repository.PlayerRating)
	}).Once()

	p := New(cfg, &utils.NullLogger{}, fixedID("mocked"), WithRunRepository(runs))
	out, err := p.Run(context.Background(), testutil.WriteGameFile(t, testutil.RandomGames(7, 20, 200)...))
	require.NoError(t, err)
	runs.AssertExpectations(t)

	require.NotNil(t, saved)
	assert.Equal(t, "mocked", saved.RunID)
	assert.Equal(t, 20, saved.Players)
	assert.Equal(t, 220, saved.Games)
	assert.Equal(t, cfg.Solver.Epsilon, saved.Epsilon)
	assert.Equal(t, out.Result.Converged, saved.Converged)
	require.Len(t, rows, 20)
	for i, row := range rows {
		assert.Equal(t, i+1, row.Rank)
		assert.Equal(t, out.Entries[i].Name, row.Name)
	}
}

func TestPipeline_StorageFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Summary = false

	st := &mock.MockStorage{}
	st.ExpectAnyUploadFile(pkgerrors.Wrap(pkgerrors.CodeStorageError, "upload failed", errors.New("403")))

	runs := &mock.MockRunRepository{}
	runs.ExpectSaveRun(nil).Maybe()

	_, err := New(cfg, &utils.NullLogger{}, WithStorage(st), WithRunRepository(runs)).
		Run(context.Background(), testutil.WriteGameFile(t, "a:b:w"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStorageError, pkgerrors.GetErrorCode(err))
	st.AssertNotCalled(t, "GetURL", testifymock.Anything)
}

func TestPipeline_PublishesArtifactURLs(t *testing.T) {
	cfg := testConfig(t)

	st := &mock.MockStorage{}
	st.ExpectUploadFile(storage.ArtifactKey(cfg.Storage.Prefix, "r1", cfg.Output.RatingsFile), cfg.RatingsPath(), nil)
	st.ExpectUploadFile(storage.ArtifactKey(cfg.Storage.Prefix, "r1", "summary.json"), cfg.SummaryPath(), nil)
	st.ExpectGetURL()

	out, err := New(cfg, &utils.NullLogger{}, fixedID("r1"), WithStorage(st)).
		Run(context.Background(), testutil.WriteGameFile(t, "a:b:d"))
	require.NoError(t, err)
	st.AssertExpectations(t)
	assert.Equal(t, []string{
		"mock://ratings/r1/ratings-out.txt",
		"mock://ratings/r1/summary.json",
	}, out.URLs)
}
