package resourcemanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureInstanceCapacityGrowsByDoubling(t *testing.T) {
	m := NewResourceManager("test")
	require.True(t, m.NeedsRebuild(), "a fresh manager starts dirty")

	m.EnsureInstanceCapacity(5)
	assert.Equal(t, uint32(minCapacity), m.InstanceCapacity())

	m.EnsureInstanceCapacity(9)
	assert.Equal(t, uint32(16), m.InstanceCapacity())

	m.EnsureInstanceCapacity(16)
	assert.Equal(t, uint32(16), m.InstanceCapacity(), "requesting the current capacity must not grow")
}

func TestEnsureCapacityNeverShrinks(t *testing.T) {
	m := NewResourceManager("test")
	m.EnsureBinCapacity(100)
	cap1 := m.BinCapacity()

	m.EnsureBinCapacity(1)
	assert.Equal(t, cap1, m.BinCapacity(), "capacity must only ever grow")
}

func TestEnsureDrawArgCapacitySetsNeedsRebuild(t *testing.T) {
	m := NewResourceManager("test")
	m.needsRebuild = false

	m.EnsureDrawArgCapacity(64)
	assert.True(t, m.NeedsRebuild())
}

func TestPackInstanceTypeDataRoundTrip(t *testing.T) {
	d := PackInstanceTypeData(12, 4200)
	assert.Equal(t, uint32(12), d.DrawCallCount())
	assert.Equal(t, uint32(4200), d.DrawArgsBase())
}

func TestGPUInstanceDataSizeIs48Bytes(t *testing.T) {
	var d GPUInstanceData
	assert.Equal(t, 48, d.Size())
	assert.Len(t, d.Marshal(), 48)
}

func TestGPUDrawArgsSizeIs20Bytes(t *testing.T) {
	var d GPUDrawArgs
	assert.Equal(t, 20, d.Size())
	assert.Len(t, d.Marshal(), 20)
}

func TestGPUInstancePropertiesSizeIs112Bytes(t *testing.T) {
	var p GPUInstanceProperties
	assert.Equal(t, 112, p.Size())
	assert.Len(t, p.Marshal(), 112)
}

func TestEnsureSortScratchCapacityForGroupsSetsNeedsRebuild(t *testing.T) {
	m := NewResourceManager("test")
	m.needsRebuild = false

	m.EnsureSortScratchCapacityForGroups(8)
	assert.True(t, m.NeedsRebuild())
	assert.Equal(t, uint32(8), m.sortGroupCapacity)
}

func TestEnsureSortScratchCapacityForGroupsNeverShrinks(t *testing.T) {
	m := NewResourceManager("test")
	m.EnsureSortScratchCapacityForGroups(32)
	cap1 := m.sortGroupCapacity

	m.EnsureSortScratchCapacityForGroups(4)
	assert.Equal(t, cap1, m.sortGroupCapacity, "capacity must only ever grow")
}

func TestSetPassCountSetsNeedsRebuildOnChange(t *testing.T) {
	m := NewResourceManager("test")
	m.needsRebuild = false

	m.SetPassCount(1)
	assert.False(t, m.NeedsRebuild(), "setting the same pass count must not force a rebuild")

	m.SetPassCount(2)
	assert.True(t, m.NeedsRebuild())
}
