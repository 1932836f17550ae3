package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByWeight_Uniform(t *testing.T) {
	weights := []int32{1, 1, 1, 1, 1, 1, 1, 1}
	ranges := ByWeight(weights, 4)

	require.NoError(t, Validate(ranges, len(weights)))
	assert.Equal(t, []Range{{0, 2}, {2, 4}, {4, 6}, {6, 8}}, ranges)
}

func TestByWeight_Skewed(t *testing.T) {
	// One heavy player followed by many light ones.
	weights := []int32{40, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 10, 10, 10, 10}
	ranges := ByWeight(weights, 4)
	require.NoError(t, Validate(ranges, len(weights)))

	// total 90, targets 23 / 45 / 68 / 90
	assert.Equal(t, []Range{{0, 0}, {0, 6}, {6, 12}, {12, 15}}, ranges)
	assert.Equal(t, int64(0), Weight(weights, ranges[0]))
	assert.Equal(t, int64(45), Weight(weights, ranges[1]))
}

func TestByWeight_BalancesBetterThanCount(t *testing.T) {
	weights := make([]int32, 100)
	for i := range weights {
		weights[i] = 1
	}
	weights[0] = 500
	weights[1] = 500

	maxLoad := func(rs []Range) int64 {
		var m int64
		for _, r := range rs {
			if w := Weight(weights, r); w > m {
				m = w
			}
		}
		return m
	}

	byWeight := ByWeight(weights, 4)
	byCount := ByCount(len(weights), 4)
	require.NoError(t, Validate(byWeight, len(weights)))
	require.NoError(t, Validate(byCount, len(weights)))
	assert.Less(t, maxLoad(byWeight), maxLoad(byCount))
}

func TestByWeight_Star(t *testing.T) {
	// Player 0 plays everyone once; everyone else plays only player 0.
	const n = 50
	weights := make([]int32, n)
	weights[0] = n - 1
	for i := 1; i < n; i++ {
		weights[i] = 1
	}

	for _, parts := range []int{1, 2, 3, 8, 64} {
		ranges := ByWeight(weights, parts)
		assert.Len(t, ranges, parts)
		assert.NoError(t, Validate(ranges, n), "parts=%d", parts)
	}
}

func TestByWeight_SinglePlayer(t *testing.T) {
	ranges := ByWeight([]int32{3}, 4)
	require.NoError(t, Validate(ranges, 1))
	assert.Len(t, ranges, 4)
}

func TestByWeight_Empty(t *testing.T) {
	assert.Nil(t, ByWeight(nil, 4))
	assert.NoError(t, Validate(nil, 0))
}

func TestByCount(t *testing.T) {
	tests := []struct {
		n, parts int
		expected []Range
	}{
		{0, 4, nil},
		{1, 4, []Range{{0, 0}, {0, 0}, {0, 0}, {0, 1}}},
		{10, 3, []Range{{0, 3}, {3, 6}, {6, 10}}},
		{8, 4, []Range{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
	}

	for _, tt := range tests {
		ranges := ByCount(tt.n, tt.parts)
		assert.Equal(t, tt.expected, ranges)
		assert.NoError(t, Validate(ranges, tt.n))
	}
}

func TestValidate_Rejects(t *testing.T) {
	assert.Error(t, Validate([]Range{{0, 2}, {3, 4}}, 4), "gap")
	assert.Error(t, Validate([]Range{{0, 3}, {2, 4}}, 4), "overlap")
	assert.Error(t, Validate([]Range{{0, 2}}, 4), "short")
	assert.Error(t, Validate([]Range{{0, 5}}, 4), "long")
	assert.Error(t, Validate(nil, 3), "missing")
	assert.Error(t, Validate([]Range{{0, 1}}, 0), "non-empty over nothing")
}

func TestRange_String(t *testing.T) {
	assert.Equal(t, "3--7", Range{3, 7}.String())
	assert.Equal(t, 4, Range{3, 7}.Len())
}
