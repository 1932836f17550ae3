// Package graph aggregates pairwise game outcomes per player and flattens
// them into an offset-indexed adjacency structure for the solver.
package graph

import "fmt"

// PlayerID is a dense player index in [0, NumPlayers).
type PlayerID int32

// Outcome is the result of a single game from white's point of view.
type Outcome uint8

const (
	// WhiteWin means white won the game.
	WhiteWin Outcome = iota
	// BlackWin means black won the game.
	BlackWin
	// Draw means the game was drawn.
	Draw
)

// ParseOutcome maps the one-character input code to an Outcome.
func ParseOutcome(code byte) (Outcome, bool) {
	switch code {
	case 'w':
		return WhiteWin, true
	case 'b':
		return BlackWin, true
	case 'd':
		return Draw, true
	default:
		return 0, false
	}
}

// String returns the input code for the outcome.
func (o Outcome) String() string {
	switch o {
	case WhiteWin:
		return "w"
	case BlackWin:
		return "b"
	case Draw:
		return "d"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Valid reports whether o is one of the defined outcomes.
func (o Outcome) Valid() bool {
	return o <= Draw
}

// Scores returns the per-game credit of white and black.
func (o Outcome) Scores() (white, black float64) {
	switch o {
	case WhiteWin:
		return 1, 0
	case BlackWin:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}

// GameRecord is one ingested game. It is discarded once folded into the
// builder's aggregates.
type GameRecord struct {
	White   PlayerID
	Black   PlayerID
	Outcome Outcome
}
