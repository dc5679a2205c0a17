package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage-render/crowdgpu/engine/registry"
)

func TestSliceProviderAddInstanceGrows(t *testing.T) {
	p := NewSliceProvider(registry.RenderState{LodCount: 1}, nil)
	require.Zero(t, p.InstanceCount())

	for i := 0; i < 20; i++ {
		idx := p.AddInstance(registry.Instance{Scale: float32(i)})
		assert.Equal(t, uint32(i), idx)
	}
	assert.Equal(t, uint32(20), p.InstanceCount())

	_, _, instances := p.GetState()
	require.Len(t, instances, 20)
	assert.Equal(t, float32(19), instances[19].Scale)
}

func TestSliceProviderRemoveInstanceSwapsLast(t *testing.T) {
	p := NewSliceProvider(registry.RenderState{LodCount: 1}, nil)
	for i := 0; i < 5; i++ {
		p.AddInstance(registry.Instance{Scale: float32(i)})
	}

	oldLast, swapped := p.RemoveInstance(1)
	assert.True(t, swapped)
	assert.Equal(t, uint32(4), oldLast)

	_, _, instances := p.GetState()
	require.Len(t, instances, 4)
	assert.Equal(t, float32(4), instances[1].Scale, "last live instance was swapped into the removed slot")
}

func TestSliceProviderRemoveLastInstanceDoesNotSwap(t *testing.T) {
	p := NewSliceProvider(registry.RenderState{LodCount: 1}, nil)
	p.AddInstance(registry.Instance{})
	p.AddInstance(registry.Instance{})

	oldLast, swapped := p.RemoveInstance(1)
	assert.False(t, swapped)
	assert.Equal(t, uint32(1), oldLast)
	assert.Equal(t, uint32(1), p.InstanceCount())
}

func TestSliceProviderRemoveInstanceOutOfRange(t *testing.T) {
	p := NewSliceProvider(registry.RenderState{}, nil)
	_, swapped := p.RemoveInstance(0)
	assert.False(t, swapped)
}

func TestSliceProviderDirtyFlagsClear(t *testing.T) {
	p := NewSliceProvider(registry.RenderState{LodCount: 1}, nil)
	assert.NotZero(t, p.DirtyFlags())

	p.ClearDirtyFlags()
	assert.Zero(t, p.DirtyFlags())

	p.AddInstance(registry.Instance{})
	flags := p.DirtyFlags()
	assert.True(t, flags.Has(registry.DirtyInstanceCount))
	assert.True(t, flags.Has(registry.DirtyPerInstanceData))
}

func TestSliceProviderSetRenderStateMarksDirty(t *testing.T) {
	p := NewSliceProvider(registry.RenderState{LodCount: 1}, nil)
	p.ClearDirtyFlags()

	p.SetRenderState(registry.RenderState{LodCount: 3})
	flags := p.DirtyFlags()
	assert.True(t, flags.Has(registry.DirtyMesh))
	assert.True(t, flags.Has(registry.DirtyLods))

	rs, _, _ := p.GetState()
	assert.Equal(t, uint32(3), rs.LodCount)
}

func TestSliceProviderSatisfiesInstanceProvider(t *testing.T) {
	var _ registry.InstanceProvider = NewSliceProvider(registry.RenderState{}, nil)
}
