// Package resourcemanager owns the GPU buffer set the frame pipeline reads
// and writes: the LOD table, animation table, instance-type table, bin
// counts, instance data, sort keys/scratch, dense instance properties, and
// draw-argument slots. Buffers only grow; growing any of them triggers a
// full rebind of the dependent compute passes' bind groups, mirroring the
// animator backends' needsRebuild convention.
package resourcemanager

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/vantage-render/crowdgpu/engine/renderer"
	"github.com/vantage-render/crowdgpu/engine/renderer/bind_group_provider"
	"github.com/vantage-render/crowdgpu/engine/renderer/shader"
	"github.com/vantage-render/crowdgpu/engine/sort"
)

// Binding indices within the shared buffer-set bind group. Every compute
// pass that touches one of these buffers references this same binding
// layout when it builds its own per-pass BindGroupProvider.
// The radix sort's Scatter kernel needs two physical SortKeys buffers to
// ping-pong between passes (src_keys/dst_keys must never alias), and its
// Count/CountReduce/Scan/ScanAdd kernels each need their own physical scratch
// buffer rather than sharing byte ranges of one buffer — BindGroupProvider's
// SetBuffer binds a whole buffer, with no sub-range view, so every logical
// scratch table gets its own binding.
const (
	BindingLodData            = 0
	BindingAnimationData      = 1
	BindingInstanceTypeData   = 2
	BindingInstanceCounts     = 3
	BindingInstanceData       = 4
	BindingSortKeys           = 5
	BindingSortKeysAlt        = 6
	BindingSumTable           = 7
	BindingReduceTable        = 8
	BindingScanScratch        = 9
	BindingBinOffsetCache     = 10
	BindingInstanceProperties = 11
	BindingDrawArgs           = 12
)

const minCapacity = 8

// ResourceManager owns the GPU buffers backing the frame pipeline and
// tracks the capacity each is currently sized for.
type ResourceManager struct {
	mu sync.RWMutex

	bgp bind_group_provider.BindGroupProvider

	meshCapacity         uint32
	animationCapacity    uint32
	instanceTypeCapacity uint32
	binCapacity          uint32
	instanceCapacity     uint32
	sortGroupCapacity    uint32
	drawArgCapacity      uint32
	passCount            uint32

	needsRebuild bool
}

// NewResourceManager creates a ResourceManager with zero capacity; the first
// Ensure* calls followed by Rebuild will size it to its initial workload.
func NewResourceManager(label string) *ResourceManager {
	return &ResourceManager{
		bgp:          bind_group_provider.NewBindGroupProvider(label + "_resources"),
		passCount:    1,
		needsRebuild: true,
	}
}

// SetPassCount sets the number of sort/compact passes (1, or 2 when shadows
// are enabled) that size SortKeys and InstanceProperties.
func (m *ResourceManager) SetPassCount(n uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n == m.passCount {
		return
	}
	m.passCount = n
	m.needsRebuild = true
}

func grow(current, want uint32) (uint32, bool) {
	if want <= current {
		return current, false
	}
	next := current
	if next == 0 {
		next = minCapacity
	}
	for next < want {
		next *= 2
	}
	return next, true
}

// EnsureMeshCapacity grows the LodData buffer to hold at least n meshes.
func (m *ResourceManager) EnsureMeshCapacity(n uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next, grew := grow(m.meshCapacity, n); grew {
		m.meshCapacity = next
		m.needsRebuild = true
	}
}

// EnsureAnimationCapacity grows the AnimationData buffer to hold at least n animations.
func (m *ResourceManager) EnsureAnimationCapacity(n uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next, grew := grow(m.animationCapacity, n); grew {
		m.animationCapacity = next
		m.needsRebuild = true
	}
}

// EnsureInstanceTypeCapacity grows the InstanceTypeData buffer to hold at
// least n entries. No upper limit is checked here; the scene's RegisterProvider
// rejects reservations past its 2^11-bin limit before calling this.
func (m *ResourceManager) EnsureInstanceTypeCapacity(n uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next, grew := grow(m.instanceTypeCapacity, n); grew {
		m.instanceTypeCapacity = next
		m.needsRebuild = true
	}
}

// EnsureBinCapacity grows the InstanceCounts buffer to hold at least n bins
// (already accounting for the shadow-pass doubling, if applicable).
func (m *ResourceManager) EnsureBinCapacity(n uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next, grew := grow(m.binCapacity, n); grew {
		m.binCapacity = next
		m.needsRebuild = true
	}
}

// EnsureInstanceCapacity grows InstanceData, SortKeys, and InstanceProperties
// to hold at least n instances (per pass, for the latter two).
func (m *ResourceManager) EnsureInstanceCapacity(n uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next, grew := grow(m.instanceCapacity, n); grew {
		m.instanceCapacity = next
		m.needsRebuild = true
	}
}

// EnsureSortScratchCapacityForGroups grows SumTable and BinOffsetCache to
// hold at least numGroups thread groups' worth of per-bin entries. ReduceTable
// and ScanScratch are always exactly NumBins words and never grow.
func (m *ResourceManager) EnsureSortScratchCapacityForGroups(numGroups uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next, grew := grow(m.sortGroupCapacity, numGroups); grew {
		m.sortGroupCapacity = next
		m.needsRebuild = true
	}
}

// EnsureDrawArgCapacity grows the DrawArgs buffer to hold at least n slots.
func (m *ResourceManager) EnsureDrawArgCapacity(n uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next, grew := grow(m.drawArgCapacity, n); grew {
		m.drawArgCapacity = next
		m.needsRebuild = true
	}
}

// NeedsRebuild reports whether any buffer grew since the last Rebuild.
func (m *ResourceManager) NeedsRebuild() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.needsRebuild
}

// Rebuild (re)creates the buffer set at its current capacities against the
// given shader's bind group layout and clears the needsRebuild flag. Safe
// to call unconditionally each frame; it is a no-op when nothing grew.
func (m *ResourceManager) Rebuild(r renderer.Renderer, bufferShader shader.Shader, groupIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.needsRebuild {
		return nil
	}

	var instanceData GPUInstanceData
	var animData GPUAnimationData
	var lodData GPULodData
	var props GPUInstanceProperties
	var drawArgs GPUDrawArgs

	keysSize := uint64(m.instanceCapacity) * uint64(m.passCount) * 4
	perGroupScratchSize := uint64(m.sortGroupCapacity) * uint64(sort.NumBins) * 4
	fixedScratchSize := uint64(sort.NumBins) * 4

	sizeOverrides := map[int]uint64{
		BindingLodData:            uint64(m.meshCapacity) * uint64(lodData.Size()),
		BindingAnimationData:      uint64(m.animationCapacity) * uint64(animData.Size()),
		BindingInstanceTypeData:   uint64(m.instanceTypeCapacity) * 4,
		BindingInstanceCounts:     uint64(m.binCapacity) * 4,
		BindingInstanceData:       uint64(m.instanceCapacity) * uint64(instanceData.Size()),
		BindingSortKeys:           keysSize,
		BindingSortKeysAlt:        keysSize,
		BindingSumTable:           perGroupScratchSize,
		BindingReduceTable:        fixedScratchSize,
		BindingScanScratch:        fixedScratchSize,
		BindingBinOffsetCache:     perGroupScratchSize,
		BindingInstanceProperties: uint64(m.instanceCapacity) * uint64(m.passCount) * uint64(props.Size()),
		BindingDrawArgs:           uint64(m.drawArgCapacity) * uint64(drawArgs.Size()),
	}

	descriptor := bufferShader.BindGroupLayoutDescriptor(groupIndex)
	if err := r.InitBindGroup(m.bgp, descriptor, nil, sizeOverrides); err != nil {
		return err
	}
	m.needsRebuild = false
	return nil
}

// BindGroupProvider returns the BindGroupProvider backing the buffer set, for
// compute passes that need to read or share its buffers.
func (m *ResourceManager) BindGroupProvider() bind_group_provider.BindGroupProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bgp
}

// Buffer returns the raw GPU buffer at the given binding index, or nil if
// the buffer set has not been built yet.
func (m *ResourceManager) Buffer(binding int) *wgpu.Buffer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bgp.Buffer(binding)
}

// stage appends a single BufferWrite at the given binding and byte offset.
func (m *ResourceManager) stage(writes *[]bind_group_provider.BufferWrite, binding int, offset uint64, data []byte) {
	*writes = append(*writes, bind_group_provider.BufferWrite{
		Provider: m.bgp,
		Binding:  binding,
		Offset:   offset,
		Data:     data,
	})
}

// StageLodData queues an upload of a single LodData entry at mesh index idx.
func (m *ResourceManager) StageLodData(writes *[]bind_group_provider.BufferWrite, idx uint32, v GPULodData) {
	m.stage(writes, BindingLodData, uint64(idx)*uint64(v.Size()), v.Marshal())
}

// StageAnimationData queues an upload of a single AnimationData entry at animation index idx.
func (m *ResourceManager) StageAnimationData(writes *[]bind_group_provider.BufferWrite, idx uint32, v GPUAnimationData) {
	m.stage(writes, BindingAnimationData, uint64(idx)*uint64(v.Size()), v.Marshal())
}

// StageInstanceTypeData queues an upload of a single InstanceTypeData word at type index idx.
func (m *ResourceManager) StageInstanceTypeData(writes *[]bind_group_provider.BufferWrite, idx uint32, v GPUInstanceTypeData) {
	m.stage(writes, BindingInstanceTypeData, uint64(idx)*4, v.Marshal())
}

// StageInstanceData queues an upload of a single InstanceData entry at instance index idx.
func (m *ResourceManager) StageInstanceData(writes *[]bind_group_provider.BufferWrite, idx uint32, v GPUInstanceData) {
	m.stage(writes, BindingInstanceData, uint64(idx)*uint64(v.Size()), v.Marshal())
}

// StageDrawArgs queues an upload of a single DrawArgs slot at index idx.
func (m *ResourceManager) StageDrawArgs(writes *[]bind_group_provider.BufferWrite, idx uint32, v GPUDrawArgs) {
	m.stage(writes, BindingDrawArgs, uint64(idx)*uint64(v.Size()), v.Marshal())
}

// ZeroInstanceCounts clears the InstanceCounts buffer. Cull's atomic
// increments only ever add to a bin's count; nothing in the compute
// pipeline resets it, so the caller must zero it once per frame before
// dispatching Cull.
func (m *ResourceManager) ZeroInstanceCounts(r renderer.Renderer) {
	m.mu.RLock()
	n := m.binCapacity
	m.mu.RUnlock()
	if n == 0 {
		return
	}
	r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: m.bgp,
		Binding:  BindingInstanceCounts,
		Offset:   0,
		Data:     make([]byte, uint64(n)*4),
	}})
}

// Flush uploads all staged writes in one batch and clears the slice.
func (m *ResourceManager) Flush(r renderer.Renderer, writes *[]bind_group_provider.BufferWrite) {
	if len(*writes) == 0 {
		return
	}
	r.WriteBuffers(*writes)
	*writes = (*writes)[:0]
}

// MeshCapacity returns the current LodData buffer capacity, in elements.
func (m *ResourceManager) MeshCapacity() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meshCapacity
}

// InstanceCapacity returns the current InstanceData buffer capacity, in elements.
func (m *ResourceManager) InstanceCapacity() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instanceCapacity
}

// BinCapacity returns the current InstanceCounts buffer capacity, in elements.
func (m *ResourceManager) BinCapacity() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.binCapacity
}

// DrawArgCapacity returns the current DrawArgs buffer capacity, in elements.
func (m *ResourceManager) DrawArgCapacity() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drawArgCapacity
}
