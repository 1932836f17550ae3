package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGraph(t *testing.T) {
	m := New()
	m.ObserveGraph(3, 4, 5)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Players))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Edges))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Games))
}

func TestObserveSolve(t *testing.T) {
	m := New()

	m.ObserveSolve(12, 0.05, true)
	assert.Equal(t, 12.0, testutil.ToFloat64(m.Iterations))
	assert.Equal(t, 0.05, testutil.ToFloat64(m.TotalError))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Converged))

	m.ObserveSolve(100, 3.5, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Converged))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("converged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("capped")))
}

func TestObservePhases(t *testing.T) {
	m := New()
	m.ObservePhases(map[string]time.Duration{
		"load":  10 * time.Millisecond,
		"solve": time.Second,
	})

	assert.Equal(t, 2, testutil.CollectAndCount(m.Phase))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveGraph(2, 2, 1)

	path := filepath.Join(t.TempDir(), "ratings.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ratings_players 2")
	assert.Contains(t, string(data), "ratings_games 1")
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveSolve(7, 0.01, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ratings_solver_iterations 7")
}
