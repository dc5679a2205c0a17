package sort

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceSortAscendingWithSentinelTail(t *testing.T) {
	keys := []uint32{
		pack(5, 0, 3),
		SentinelAt(1),
		pack(2, 0, 1),
		pack(9, 1, 2),
		SentinelAt(7),
		pack(0, 0, 1),
	}

	sorted := ReferenceSort(keys)
	require.Len(t, sorted, len(keys))

	for i := 0; i+1 < len(sorted); i++ {
		assert.LessOrEqual(t, sorted[i]&KeyMask, sorted[i+1]&KeyMask)
	}

	// sentinels occupy a contiguous tail
	firstSentinel := -1
	for i, k := range sorted {
		if k == 0xFFFFFFFF {
			firstSentinel = i
			break
		}
	}
	require.NotEqual(t, -1, firstSentinel)
	for i := firstSentinel; i < len(sorted); i++ {
		assert.Equal(t, uint32(0xFFFFFFFF), sorted[i])
	}
}

func TestReferenceSortConservation(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	keys := make([]uint32, 500)
	for i := range keys {
		keys[i] = pack(uint32(i), uint32(i%2), uint32(r.Intn(2048)))
	}

	sorted := ReferenceSort(keys)

	want := map[uint32]int{}
	for _, k := range keys {
		want[k]++
	}
	got := map[uint32]int{}
	for _, k := range sorted {
		got[k]++
	}
	assert.Equal(t, want, got, "sort must be a permutation, not lossy")
}

func TestReferenceSortStablePerBucket(t *testing.T) {
	// Multiple keys sharing the same (pass, count_index) must keep their
	// input instance_index order in the output.
	keys := []uint32{
		pack(3, 0, 5),
		pack(1, 0, 5),
		pack(2, 0, 5),
		pack(0, 0, 5),
	}

	sorted := ReferenceSort(keys)
	require.Len(t, sorted, 4)

	var order []uint32
	for _, k := range sorted {
		order = append(order, k>>12)
	}
	assert.Equal(t, []uint32{3, 1, 2, 0}, order, "equal-bucket keys preserve input order")
}

func TestNumThreadGroupsRoundsUp(t *testing.T) {
	assert.Equal(t, uint32(1), NumThreadGroups(1))
	assert.Equal(t, uint32(1), NumThreadGroups(elementsPerGroup))
	assert.Equal(t, uint32(2), NumThreadGroups(elementsPerGroup+1))
}

func pack(instanceIndex, pass, countIndex uint32) uint32 {
	return (instanceIndex << 12) | (pass << 11) | (countIndex & 0x7FF)
}

func SentinelAt(_ uint32) uint32 {
	return 0xFFFFFFFF
}
