// Package repository persists solver runs and their per-player ratings.
package repository

import (
	"context"
	"errors"
)

// ErrRunNotFound is returned when no run matches the lookup.
var ErrRunNotFound = errors.New("rating run not found")

// RunRepository stores solver runs.
type RunRepository interface {
	// Migrate creates or updates the tables.
	Migrate(ctx context.Context) error

	// SaveRun stores run and its ratings in one transaction. The ratings'
	// RunID is set from run.
	SaveRun(ctx context.Context, run *RatingRun, ratings []PlayerRating) error

	// GetRun returns the run with the given id.
	GetRun(ctx context.Context, runID string) (*RatingRun, error)

	// LatestRun returns the most recently stored run.
	LatestRun(ctx context.Context) (*RatingRun, error)

	// ListRatings returns the ratings of a run by rank. limit <= 0 means all.
	ListRatings(ctx context.Context, runID string, limit int) ([]PlayerRating, error)
}
