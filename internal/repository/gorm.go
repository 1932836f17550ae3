package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	pkgerrors "github.com/pairwise-ratings/pkg/errors"
)

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 500

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

func dbError(msg string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDatabaseError, msg, err)
}

// Migrate creates or updates the tables.
func (r *GormRunRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&RatingRun{}, &PlayerRating{}); err != nil {
		return dbError("failed to migrate tables", err)
	}
	return nil
}

// SaveRun stores run and its ratings in one transaction.
func (r *GormRunRepository) SaveRun(ctx context.Context, run *RatingRun, ratings []PlayerRating) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if len(ratings) == 0 {
			return nil
		}
		for i := range ratings {
			ratings[i].RunID = run.RunID
		}
		if err := tx.CreateInBatches(ratings, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert ratings: %w", err)
		}
		return nil
	})
	if err != nil {
		return dbError(fmt.Sprintf("failed to save run %s", run.RunID), err)
	}
	return nil
}

// GetRun returns the run with the given id.
func (r *GormRunRepository) GetRun(ctx context.Context, runID string) (*RatingRun, error) {
	var run RatingRun
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, dbError("failed to get run", err)
	}
	return &run, nil
}

// LatestRun returns the most recently stored run.
func (r *GormRunRepository) LatestRun(ctx context.Context) (*RatingRun, error) {
	var run RatingRun
	err := r.db.WithContext(ctx).Order("id DESC").First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, dbError("failed to get latest run", err)
	}
	return &run, nil
}

// ListRatings returns the ratings of a run ordered by rank.
func (r *GormRunRepository) ListRatings(ctx context.Context, runID string, limit int) ([]PlayerRating, error) {
	var ratings []PlayerRating

	query := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("player_rank ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&ratings).Error; err != nil {
		return nil, dbError("failed to list ratings", err)
	}
	return ratings, nil
}
