package solver

import (
	"fmt"
	"math"

	"github.com/pairwise-ratings/internal/graph"
	"github.com/pairwise-ratings/internal/partition"
)

// JobKind selects the computation a job performs.
type JobKind uint8

const (
	// KindErrors computes error[p] for every player in the range.
	KindErrors JobKind = iota
	// KindAdjust applies the multiplicative rating update to the range.
	KindAdjust
)

// String returns the kind name.
func (k JobKind) String() string {
	switch k {
	case KindErrors:
		return "errors"
	case KindAdjust:
		return "adjust"
	default:
		return fmt.Sprintf("JobKind(%d)", uint8(k))
	}
}

// JobSpec is a static job descriptor: one kind of work over one range.
type JobSpec struct {
	Kind  JobKind
	Range partition.Range
}

// state holds the read-only graph arrays and the two per-iteration vectors.
// Jobs touch disjoint index ranges of ratings and errors, so no locking is
// needed inside a phase.
type state struct {
	offsets    []int
	opponents  []graph.PlayerID
	edgePlayed []int32
	scores     []float64
	played     []int32

	ratings []float64
	errors  []float64

	// k is written between phases only.
	k float64
}

func newState(g *graph.Graph) *state {
	n := g.NumPlayers()
	st := &state{
		offsets:    g.Offsets(),
		opponents:  g.EdgeOpponents(),
		edgePlayed: g.EdgePlayed(),
		scores:     g.Scores(),
		played:     g.Played(),
		ratings:    make([]float64, n),
		errors:     make([]float64, n),
	}
	st.reset()
	return st
}

func (st *state) reset() {
	for p := range st.ratings {
		st.ratings[p] = 1.0
		st.errors[p] = 0
	}
}

// dispatch runs the work described by spec.
func (st *state) dispatch(spec JobSpec) {
	switch spec.Kind {
	case KindErrors:
		st.computeErrors(spec.Range)
	case KindAdjust:
		st.adjust(spec.Range)
	default:
		panic(fmt.Sprintf("solver: unknown job kind %d", spec.Kind))
	}
}

// computeErrors sets error[p] = score[p] - sum(played * r[p] / (r[p] + r[opp]))
// for each p in r. Edges are consumed two at a time but added to the
// accumulator one by one, so the result matches a plain loop bit for bit.
func (st *state) computeErrors(r partition.Range) {
	ratings := st.ratings
	for p := r.Start; p < r.End; p++ {
		rp := ratings[p]
		var expected float64

		e, end := st.offsets[p], st.offsets[p+1]
		for ; e+1 < end; e += 2 {
			x0 := float64(st.edgePlayed[e]) * rp / (rp + ratings[st.opponents[e]])
			x1 := float64(st.edgePlayed[e+1]) * rp / (rp + ratings[st.opponents[e+1]])
			expected += x0
			expected += x1
		}
		if e < end {
			expected += float64(st.edgePlayed[e]) * rp / (rp + ratings[st.opponents[e]])
		}

		st.errors[p] = st.scores[p] - expected
	}
}

// adjust applies rating[p] *= 10^(k * error[p] / played[p]) for each p in r.
func (st *state) adjust(r partition.Range) {
	k := st.k
	for p := r.Start; p < r.End; p++ {
		if st.played[p] == 0 {
			continue
		}
		st.ratings[p] *= math.Pow(10, k*st.errors[p]/float64(st.played[p]))
	}
}
