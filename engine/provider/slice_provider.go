// Package provider implements the InstanceProvider capability record: a
// struct of read-only data views plus a dirty-flag bitset, with no
// inheritance or interface polymorphism involved. SliceProvider is a
// reference implementation backing one instance type with a flat Go slice.
package provider

import (
	"sync"

	"github.com/vantage-render/crowdgpu/engine/registry"
)

// SliceProvider is a reference InstanceProvider implementation: one
// render-state key (mesh/material/animation-set/LOD config) backed by a
// growable slice of instances, with swap-remove deletion.
type SliceProvider struct {
	mu sync.RWMutex

	renderState registry.RenderState
	subMeshes   []registry.SubMesh
	instances   []registry.Instance

	count uint32
	dirty registry.DirtyFlags
}

// NewSliceProvider creates a SliceProvider for the given render state and
// submesh table. The instance slice starts empty.
func NewSliceProvider(renderState registry.RenderState, subMeshes []registry.SubMesh) *SliceProvider {
	return &SliceProvider{
		renderState: renderState,
		subMeshes:   subMeshes,
		dirty:       registry.DirtyMesh | registry.DirtySubMeshes | registry.DirtyMaterials | registry.DirtyLods | registry.DirtyAnimation,
	}
}

var _ registry.InstanceProvider = &SliceProvider{}

// AddInstance appends a new instance and returns its slot index, growing the
// backing slice if needed.
//
// Returns:
//   - uint32: the new instance's slot index
func (p *SliceProvider) AddInstance(inst registry.Instance) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(p.count) >= len(p.instances) {
		p.grow(max32(uint32(len(p.instances))*2, 8))
	}
	idx := p.count
	p.instances[idx] = inst
	p.count++
	p.dirty |= registry.DirtyInstanceCount | registry.DirtyPerInstanceData
	return idx
}

// SetInstance overwrites the instance at index and marks it dirty.
func (p *SliceProvider) SetInstance(index uint32, inst registry.Instance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index >= p.count {
		return
	}
	p.instances[index] = inst
	p.dirty |= registry.DirtyPerInstanceData
}

// RemoveInstance removes the instance at index using swap-remove: the last
// live instance's data is copied into the removed slot and the count is
// decremented. Callers that track a per-object slot index can update it from
// the returned values.
//
// Returns:
//   - uint32: the old last index that was swapped into the removed slot (only meaningful when swapped is true)
//   - bool: true if a swap was performed (the removed index was not the last one)
func (p *SliceProvider) RemoveInstance(index uint32) (swappedFrom uint32, swapped bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count == 0 || index >= p.count {
		return 0, false
	}

	last := p.count - 1
	swapped = index != last
	if swapped {
		p.instances[index] = p.instances[last]
	}
	p.instances[last] = registry.Instance{}
	p.count--
	p.dirty |= registry.DirtyInstanceCount | registry.DirtyPerInstanceData
	return last, swapped
}

// Grow ensures the backing slice can hold at least newCap instances.
func (p *SliceProvider) Grow(newCap uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grow(newCap)
}

// grow must be called with p.mu held.
func (p *SliceProvider) grow(newCap uint32) {
	if int(newCap) <= len(p.instances) {
		return
	}
	grown := make([]registry.Instance, newCap)
	copy(grown, p.instances)
	p.instances = grown
}

// InstanceCount returns the number of live instances.
func (p *SliceProvider) InstanceCount() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.count
}

// SetRenderState replaces the provider's render state (mesh/material/LOD
// configuration) and marks the relevant dirty flags.
func (p *SliceProvider) SetRenderState(rs registry.RenderState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renderState = rs
	p.dirty |= registry.DirtyMesh | registry.DirtyMaterials | registry.DirtyLods | registry.DirtyAnimation
}

// DirtyFlags reports which published views changed since the last
// ClearDirtyFlags call.
func (p *SliceProvider) DirtyFlags() registry.DirtyFlags {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dirty
}

// GetState publishes read-only views of the provider's current state. The
// renderer may read the returned slices until ClearDirtyFlags is called;
// callers of AddInstance/RemoveInstance/SetInstance during that window would
// violate the "no mutation between GetState and ClearDirtyFlags" contract, so
// none of this provider's mutators are safe to call concurrently with a frame
// in flight.
func (p *SliceProvider) GetState() (registry.RenderState, []registry.SubMesh, []registry.Instance) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.renderState, p.subMeshes, p.instances[:p.count]
}

// ClearDirtyFlags resets the dirty bitset. Called exactly once per frame
// after the renderer has refreshed its GPU-side copy of this provider's state.
func (p *SliceProvider) ClearDirtyFlags() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dirty = 0
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
