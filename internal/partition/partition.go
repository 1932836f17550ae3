// Package partition splits the player index space into contiguous ranges,
// one per worker, for the solver's two parallel phases.
package partition

import (
	"fmt"
	"sort"
)

// Range is the half-open player interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices in r.
func (r Range) Len() int {
	return r.End - r.Start
}

// String renders r as "start--end".
func (r Range) String() string {
	return fmt.Sprintf("%d--%d", r.Start, r.End)
}

// ByWeight splits [0, len(weights)) into parts contiguous ranges so that
// every range carries roughly the same total weight.
//
// With accum[p] = weights[0] + ... + weights[p] and target
// t_i = round(total*i/parts), boundary i is the first p with accum[p] > t_i.
// A player heavier than a whole share yields empty neighbouring ranges
// rather than being split. Returns nil when there is nothing to split.
func ByWeight(weights []int32, parts int) []Range {
	n := len(weights)
	if n == 0 || parts <= 0 {
		return nil
	}

	accum := make([]int64, n)
	var total int64
	for p, w := range weights {
		total += int64(w)
		accum[p] = total
	}

	ranges := make([]Range, parts)
	start := 0
	for i := 1; i <= parts; i++ {
		target := roundDiv(total*int64(i), int64(parts))
		end := sort.Search(n, func(p int) bool { return accum[p] > target })
		if end < start {
			end = start
		}
		if i == parts {
			end = n
		}
		ranges[i-1] = Range{Start: start, End: end}
		start = end
	}
	return ranges
}

// ByCount splits [0, n) into parts contiguous ranges whose sizes differ by
// at most one. Returns nil when n is zero.
func ByCount(n, parts int) []Range {
	if n <= 0 || parts <= 0 {
		return nil
	}

	ranges := make([]Range, parts)
	for i := 0; i < parts; i++ {
		ranges[i] = Range{
			Start: int(int64(n) * int64(i) / int64(parts)),
			End:   int(int64(n) * int64(i+1) / int64(parts)),
		}
	}
	return ranges
}

// Validate checks that ranges tile [0, n) exactly, in order, with no gap
// or overlap.
func Validate(ranges []Range, n int) error {
	if n == 0 {
		for _, r := range ranges {
			if r.Len() != 0 {
				return fmt.Errorf("partition: non-empty range %s over empty index space", r)
			}
		}
		return nil
	}
	if len(ranges) == 0 {
		return fmt.Errorf("partition: no ranges for %d indices", n)
	}

	next := 0
	for i, r := range ranges {
		if r.Start != next {
			return fmt.Errorf("partition: range %d starts at %d, expected %d", i, r.Start, next)
		}
		if r.End < r.Start {
			return fmt.Errorf("partition: range %d is inverted: %s", i, r)
		}
		next = r.End
	}
	if next != n {
		return fmt.Errorf("partition: ranges end at %d, expected %d", next, n)
	}
	return nil
}

// Weight returns the sum of weights covered by r.
func Weight(weights []int32, r Range) int64 {
	var sum int64
	for _, w := range weights[r.Start:r.End] {
		sum += int64(w)
	}
	return sum
}

// roundDiv returns num/den rounded half up, for non-negative operands.
func roundDiv(num, den int64) int64 {
	return (2*num + den) / (2 * den)
}
