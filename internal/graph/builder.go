package graph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrFinalized is returned when the builder is mutated after Finalize.
var ErrFinalized = errors.New("graph already finalized")

// matchup accumulates every game a player has against one opponent.
type matchup struct {
	played int32
	score  float64
}

type playerAccum struct {
	totalScore float64
	played     int32
	opponents  map[PlayerID]*matchup
}

// Builder ingests game records and produces an immutable Graph. It is not
// safe for concurrent use.
type Builder struct {
	ids     map[string]PlayerID
	names   []string
	players []playerAccum
	games   int
	graph   *Graph
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{ids: make(map[string]PlayerID)}
}

// InsertPlayer returns the id for name, assigning the next dense id on
// first sight.
func (b *Builder) InsertPlayer(name string) (PlayerID, error) {
	if id, ok := b.ids[name]; ok {
		return id, nil
	}
	if b.graph != nil {
		return 0, fmt.Errorf("insert player %q: %w", name, ErrFinalized)
	}

	id := PlayerID(len(b.names))
	b.ids[name] = id
	b.names = append(b.names, name)
	b.players = append(b.players, playerAccum{opponents: make(map[PlayerID]*matchup)})
	return id, nil
}

// AddMatch folds one game into both players' aggregates.
//
// Each side's total score and games played are credited, and each side's
// accumulator against the other records one more game. A decisive game
// credits the winner's edge with 1.0 and the loser's edge with 0.0; a draw
// credits both with 0.5.
func (b *Builder) AddMatch(rec GameRecord) error {
	if b.graph != nil {
		return fmt.Errorf("add match: %w", ErrFinalized)
	}
	n := PlayerID(len(b.players))
	if rec.White < 0 || rec.White >= n || rec.Black < 0 || rec.Black >= n {
		return fmt.Errorf("add match: player id out of range [0,%d): white=%d black=%d", n, rec.White, rec.Black)
	}
	if !rec.Outcome.Valid() {
		return fmt.Errorf("add match: invalid outcome %d", rec.Outcome)
	}

	whiteScore, blackScore := rec.Outcome.Scores()

	white := &b.players[rec.White]
	white.totalScore += whiteScore
	white.played++
	white.addMatchup(rec.Black, whiteScore)

	black := &b.players[rec.Black]
	black.totalScore += blackScore
	black.played++
	black.addMatchup(rec.White, blackScore)

	b.games++
	return nil
}

// AddGame inserts both players by name and folds the game in.
func (b *Builder) AddGame(white, black string, outcome Outcome) (GameRecord, error) {
	w, err := b.InsertPlayer(white)
	if err != nil {
		return GameRecord{}, err
	}
	bl, err := b.InsertPlayer(black)
	if err != nil {
		return GameRecord{}, err
	}
	rec := GameRecord{White: w, Black: bl, Outcome: outcome}
	return rec, b.AddMatch(rec)
}

func (p *playerAccum) addMatchup(opponent PlayerID, score float64) {
	m, ok := p.opponents[opponent]
	if !ok {
		m = &matchup{}
		p.opponents[opponent] = m
	}
	m.played++
	m.score += score
}

// NumPlayers returns the number of distinct players seen so far.
func (b *Builder) NumPlayers() int {
	return len(b.names)
}

// NumGames returns the number of games ingested so far.
func (b *Builder) NumGames() int {
	return b.games
}

// MatchupScore returns the accumulated score of player against opponent
// before finalization. It reports false once the builder is finalized or if
// the pair never met.
func (b *Builder) MatchupScore(player, opponent PlayerID) (float64, bool) {
	if b.graph != nil || int(player) >= len(b.players) || player < 0 {
		return 0, false
	}
	m, ok := b.players[player].opponents[opponent]
	if !ok {
		return 0, false
	}
	return m.score, true
}

// Finalize flattens the aggregates into a Graph. Opponents are laid out
// player-major in ascending id order and only the play counts survive.
// Calling Finalize again returns the same Graph.
func (b *Builder) Finalize() *Graph {
	if b.graph != nil {
		return b.graph
	}

	n := len(b.players)
	edges := 0
	for i := range b.players {
		edges += len(b.players[i].opponents)
	}

	g := &Graph{
		names:        b.names,
		scores:       make([]float64, n),
		played:       make([]int32, n),
		offsets:      make([]int, n+1),
		edgeOpponent: make([]PlayerID, 0, edges),
		edgePlayed:   make([]int32, 0, edges),
		games:        b.games,
	}

	ids := make([]PlayerID, 0)
	for p := range b.players {
		acc := &b.players[p]
		g.scores[p] = acc.totalScore
		g.played[p] = acc.played
		g.offsets[p] = len(g.edgeOpponent)

		ids = ids[:0]
		for opp := range acc.opponents {
			ids = append(ids, opp)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, opp := range ids {
			g.edgeOpponent = append(g.edgeOpponent, opp)
			g.edgePlayed = append(g.edgePlayed, acc.opponents[opp].played)
		}
		acc.opponents = nil
	}
	g.offsets[n] = len(g.edgeOpponent)

	b.players = nil
	b.graph = g
	return g
}
