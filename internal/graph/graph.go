package graph

import "fmt"

// Graph is the finalized, immutable compact adjacency of all players.
//
// Player p's edges occupy [offsets[p], offsets[p+1]) of the parallel
// edgeOpponent and edgePlayed arrays. The accessor slices are shared with
// the Graph and must be treated as read-only; concurrent readers need no
// synchronization.
type Graph struct {
	names        []string
	scores       []float64
	played       []int32
	offsets      []int
	edgeOpponent []PlayerID
	edgePlayed   []int32
	games        int
}

// NumPlayers returns the number of players.
func (g *Graph) NumPlayers() int {
	return len(g.names)
}

// NumEdges returns the total number of (player, opponent) edges.
func (g *Graph) NumEdges() int {
	return len(g.edgeOpponent)
}

// NumGames returns the number of ingested games.
func (g *Graph) NumGames() int {
	return g.games
}

// Name returns the display name of player p.
func (g *Graph) Name(p PlayerID) string {
	return g.names[p]
}

// Names returns all player names indexed by id.
func (g *Graph) Names() []string {
	return g.names
}

// TotalScore returns the summed per-game credit of player p.
func (g *Graph) TotalScore(p PlayerID) float64 {
	return g.scores[p]
}

// GamesPlayed returns the number of games player p took part in.
func (g *Graph) GamesPlayed(p PlayerID) int {
	return int(g.played[p])
}

// Edges returns player p's opponents and the games played against each.
func (g *Graph) Edges(p PlayerID) ([]PlayerID, []int32) {
	lo, hi := g.offsets[p], g.offsets[p+1]
	return g.edgeOpponent[lo:hi], g.edgePlayed[lo:hi]
}

// Scores returns total scores indexed by player id.
func (g *Graph) Scores() []float64 { return g.scores }

// Played returns games played indexed by player id.
func (g *Graph) Played() []int32 { return g.played }

// Offsets returns the N+1 edge offsets.
func (g *Graph) Offsets() []int { return g.offsets }

// EdgeOpponents returns the flattened opponent array.
func (g *Graph) EdgeOpponents() []PlayerID { return g.edgeOpponent }

// EdgePlayed returns the flattened per-edge play counts.
func (g *Graph) EdgePlayed() []int32 { return g.edgePlayed }

// Validate checks the structural invariants of the compact layout.
func (g *Graph) Validate() error {
	n := len(g.names)
	if len(g.offsets) != n+1 || len(g.scores) != n || len(g.played) != n {
		return fmt.Errorf("graph: inconsistent lengths: players=%d offsets=%d", n, len(g.offsets))
	}
	if len(g.edgeOpponent) != len(g.edgePlayed) {
		return fmt.Errorf("graph: edge arrays differ: %d opponents, %d counts", len(g.edgeOpponent), len(g.edgePlayed))
	}
	if g.offsets[0] != 0 || g.offsets[n] != len(g.edgeOpponent) {
		return fmt.Errorf("graph: offsets must span [0,%d], got [%d,%d]", len(g.edgeOpponent), g.offsets[0], g.offsets[n])
	}

	for p := 0; p < n; p++ {
		lo, hi := g.offsets[p], g.offsets[p+1]
		if hi < lo {
			return fmt.Errorf("graph: offsets decrease at player %d", p)
		}
		var sum int64
		for j := lo; j < hi; j++ {
			opp := g.edgeOpponent[j]
			if opp < 0 || int(opp) >= n {
				return fmt.Errorf("graph: player %d has opponent %d out of range", p, opp)
			}
			if j > lo && g.edgeOpponent[j-1] >= opp {
				return fmt.Errorf("graph: player %d opponents not strictly ascending", p)
			}
			sum += int64(g.edgePlayed[j])
		}
		if sum != int64(g.played[p]) {
			return fmt.Errorf("graph: player %d edge plays sum to %d, games played %d", p, sum, g.played[p])
		}
	}
	return nil
}
