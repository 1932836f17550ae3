// Package report converts solver ratings into the ranked, human-readable
// output and its summary statistics.
package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pairwise-ratings/internal/graph"
	"github.com/pairwise-ratings/internal/solver"
)

// DisplayRating maps a multiplicative strength to the familiar
// 1500-centered logarithmic scale.
func DisplayRating(r float64) float64 {
	return 400*math.Log10(r) + 1500
}

// Entry is one ranked player.
type Entry struct {
	Rank   int     `json:"rank"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
	Error  float64 `json:"error"`
	Games  int     `json:"games"`
	Raw    float64 `json:"raw"`
}

// Build ranks every player of g by descending rating. Ties keep id order.
func Build(g *graph.Graph, res solver.Result) []Entry {
	n := g.NumPlayers()
	entries := make([]Entry, n)
	for p := 0; p < n; p++ {
		id := graph.PlayerID(p)
		entries[p] = Entry{
			Name:   g.Name(id),
			Rating: DisplayRating(res.Ratings[p]),
			Error:  res.Errors[p],
			Games:  g.GamesPlayed(id),
			Raw:    res.Ratings[p],
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Raw > entries[j].Raw
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// WriteText writes one "name: rating[, error]" line per entry.
func WriteText(w io.Writer, entries []Entry, withErrors bool) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		var err error
		if withErrors {
			_, err = fmt.Fprintf(bw, "%s: %.2f, %.6g\n", e.Name, e.Rating, e.Error)
		} else {
			_, err = fmt.Fprintf(bw, "%s: %.2f\n", e.Name, e.Rating)
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Summary describes the distribution of display ratings.
type Summary struct {
	Players int     `json:"players"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summarize computes count, mean, sample standard deviation, min and max.
func Summarize(entries []Entry) Summary {
	if len(entries) == 0 {
		return Summary{}
	}

	ratings := make([]float64, len(entries))
	for i, e := range entries {
		ratings[i] = e.Rating
	}

	s := Summary{
		Players: len(ratings),
		Min:     floats.Min(ratings),
		Max:     floats.Max(ratings),
	}
	if len(ratings) == 1 {
		s.Mean = ratings[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(ratings, nil)
	return s
}

// Find returns the entry for name.
func Find(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
