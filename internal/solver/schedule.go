package solver

import (
	"fmt"
	"math"

	pkgerrors "github.com/pairwise-ratings/pkg/errors"
)

// Schedule yields the step size K applied during the adjustment phase of
// a given iteration.
type Schedule interface {
	K(iteration int) float64
}

// StepSchedule is the fixed annealing heuristic: Burst on every
// BurstEvery-th iteration (starting with iteration 0) and Base otherwise.
// K depends on the iteration only. There is no error-driven fine step and
// no separate starting K.
type StepSchedule struct {
	Base       float64
	Burst      float64
	BurstEvery int
}

// DefaultSchedule returns K(i) = 33 when i%21 == 0, else 1.6.
func DefaultSchedule() StepSchedule {
	return StepSchedule{
		Base:       1.6,
		Burst:      33,
		BurstEvery: 21,
	}
}

// K implements Schedule. A non-positive BurstEvery disables bursts.
func (s StepSchedule) K(iteration int) float64 {
	if s.BurstEvery > 0 && iteration%s.BurstEvery == 0 {
		return s.Burst
	}
	return s.Base
}

// Validate rejects step sizes that would poison the ratings: both steps
// must be positive and finite.
func (s StepSchedule) Validate() error {
	for _, step := range []struct {
		name  string
		value float64
	}{{"base step", s.Base}, {"burst step", s.Burst}} {
		if !(step.value > 0) || math.IsInf(step.value, 0) {
			return pkgerrors.New(pkgerrors.CodeConfigError, fmt.Sprintf("%s must be a positive finite number, got %v", step.name, step.value))
		}
	}
	if s.BurstEvery < 0 {
		return pkgerrors.New(pkgerrors.CodeConfigError, fmt.Sprintf("burst interval must not be negative, got %d", s.BurstEvery))
	}
	return nil
}
