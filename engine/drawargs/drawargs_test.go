package drawargs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage-render/crowdgpu/engine/resourcemanager"
)

func TestExclusivePrefixSumBasic(t *testing.T) {
	counts := []uint32{3, 0, 5, 2, 0, 0, 0, 0}
	starts := ExclusivePrefixSum(counts)
	require.Len(t, starts, len(counts))
	assert.Equal(t, []uint32{0, 3, 3, 8, 10, 10, 10, 10}, starts)
}

func TestExclusivePrefixSumAllZero(t *testing.T) {
	counts := make([]uint32, 16)
	starts := ExclusivePrefixSum(counts)
	for _, s := range starts {
		assert.Equal(t, uint32(0), s)
	}
}

func TestSetDrawArgsSkipsEmptyBins(t *testing.T) {
	counts := []uint32{4, 0, 2, 0}
	typeData := map[int]resourcemanager.GPUInstanceTypeData{
		0: resourcemanager.PackInstanceTypeData(1, 0),
		2: resourcemanager.PackInstanceTypeData(2, 1),
	}

	entries := SetDrawArgs(counts, func(bin int) resourcemanager.GPUInstanceTypeData { return typeData[bin] })
	require.Len(t, entries, 2)

	assert.Equal(t, uint32(4), entries[0].InstanceCount)
	assert.Equal(t, uint32(0), entries[0].InstanceStart)
	assert.Equal(t, uint32(1), entries[0].DrawCallCount)

	assert.Equal(t, uint32(2), entries[1].InstanceCount)
	assert.Equal(t, uint32(4), entries[1].InstanceStart, "bin 2 starts after bin 0's 4 instances")
	assert.Equal(t, uint32(2), entries[1].DrawCallCount)
	assert.Equal(t, uint32(1), entries[1].DrawArgsBase)
}

func TestApplyDrawArgsPreservesRegistrationFields(t *testing.T) {
	drawArgs := []resourcemanager.GPUDrawArgs{
		{IndexCount: 900, IndexStart: 10, BaseVertex: 5},
		{IndexCount: 900, IndexStart: 10, BaseVertex: 5},
	}
	entries := []InstanceTypeEntry{
		{InstanceCount: 7, InstanceStart: 3, DrawCallCount: 2, DrawArgsBase: 0},
	}

	ApplyDrawArgs(drawArgs, entries)

	for _, d := range drawArgs {
		assert.Equal(t, uint32(900), d.IndexCount, "index_count must be untouched")
		assert.Equal(t, uint32(10), d.IndexStart)
		assert.Equal(t, uint32(5), d.BaseVertex)
		assert.Equal(t, uint32(7), d.InstanceCount)
		assert.Equal(t, uint32(3), d.InstanceStart)
	}
}
