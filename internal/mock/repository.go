package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pairwise-ratings/internal/repository"
)

var _ repository.RunRepository = (*MockRunRepository)(nil)

// MockRunRepository is a mock implementation of the RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

// Migrate mocks the Migrate method.
func (m *MockRunRepository) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// SaveRun mocks the SaveRun method.
func (m *MockRunRepository) SaveRun(ctx context.Context, run *repository.RatingRun, ratings []repository.PlayerRating) error {
	args := m.Called(ctx, run, ratings)
	return args.Error(0)
}

// GetRun mocks the GetRun method.
func (m *MockRunRepository) GetRun(ctx context.Context, runID string) (*repository.RatingRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.RatingRun), args.Error(1)
}

// LatestRun mocks the LatestRun method.
func (m *MockRunRepository) LatestRun(ctx context.Context) (*repository.RatingRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.RatingRun), args.Error(1)
}

// ListRatings mocks the ListRatings method.
func (m *MockRunRepository) ListRatings(ctx context.Context, runID string, limit int) ([]repository.PlayerRating, error) {
	args := m.Called(ctx, runID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.PlayerRating), args.Error(1)
}

// ExpectSaveRun sets up an expectation for any SaveRun call.
func (m *MockRunRepository) ExpectSaveRun(err error) *mock.Call {
	return m.On("SaveRun", mock.Anything, mock.Anything, mock.Anything).Return(err)
}
