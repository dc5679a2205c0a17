// Package cull implements the culling compute pass: per-instance frustum
// test, LOD selection, and the atomic bin increment that seeds the radix
// sort. The GPU kernel (assets/cull.wgsl) and the CPU reference below
// (SelectLOD/FrustumVisible/InsideBounds) implement the same algorithm; the
// CPU version backs the conformance tests in cull_test.go and the end-to-end
// scenarios that don't require a GPU device.
package cull

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vantage-render/crowdgpu/engine/renderer"
	"github.com/vantage-render/crowdgpu/engine/renderer/bind_group_provider"
	"github.com/vantage-render/crowdgpu/engine/renderer/shader"
)

// BindingGlobalData is the culling kernel's uniform binding slot for
// GPUGlobalData within its own bind group (distinct from resourcemanager's
// binding indices, which the kernel's other slots alias via SetBuffer).
const BindingGlobalData = 0

// SentinelKey marks a culled instance in the sort-key buffer. Sorting
// ascending places it past every surviving key.
const SentinelKey uint32 = 0xFFFFFFFF

// SelectLOD implements spec §4.3 step 4: given the camera distance to an
// instance and its projected screen-height table, returns the selected LOD
// index and whether the instance is culled (beyond the last LOD's cull
// distance).
//
// Parameters:
//   - cameraDistance: distance from the camera to the instance's world center
//   - lodScale: 1/(2*tan(fov/2))
//   - maxExtent: the instance's largest bounds half-extent
//   - lodBias: the configured LOD bias multiplier
//   - screenHeights: monotonically decreasing screen-height thresholds, screenHeights[:lodCount] valid
//   - lodCount: number of valid LOD entries
//
// Returns:
//   - int: the selected LOD index, clamped to [0, lodCount-1]
//   - bool: true if the instance should be culled entirely
func SelectLOD(cameraDistance, lodScale, maxExtent, lodBias float32, screenHeights []float32, lodCount int) (int, bool) {
	lodFactor := lodScale * maxExtent
	lodDistance := cameraDistance / lodBias

	selected := 0
	for k := 0; k < lodCount; k++ {
		if lodFactor/screenHeights[k] < lodDistance {
			selected++
		}
	}
	if selected > lodCount-1 {
		selected = lodCount - 1
	}

	cullDistance := lodFactor / screenHeights[lodCount-1]
	culled := lodDistance >= cullDistance
	return selected, culled
}

// FrustumVisible implements spec §4.3 step 3: transforms the 8 bounds
// corners by the view-projection matrix and reports whether any corner lies
// within the clip volume (|x|<=w, |y|<=w, 0<=z<=w).
func FrustumVisible(mvp mgl32.Mat4, center, extents mgl32.Vec3) bool {
	signs := [8]mgl32.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {-1, 1, -1}, {1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {-1, 1, 1}, {1, 1, 1},
	}
	for _, s := range signs {
		corner := center.Add(mgl32.Vec3{s[0] * extents[0], s[1] * extents[1], s[2] * extents[2]})
		clip := mvp.Mul4x1(mgl32.Vec4{corner[0], corner[1], corner[2], 1})
		w := clip[3]
		if w < 0 {
			w = -w
		}
		if absF(clip[0]) <= w && absF(clip[1]) <= w && clip[2] >= 0 && clip[2] <= w {
			return true
		}
	}
	return false
}

// InsideBounds implements spec §4.3's inside-bounds shortcut: an instance is
// forced visible if the camera position lies within its scaled world AABB.
func InsideBounds(cameraPos, center, extents mgl32.Vec3, scale float32) bool {
	for axis := 0; axis < 3; axis++ {
		half := extents[axis] * scale
		if half == 0 {
			// Degenerate bounds are always-visible per spec §4.3 edge policy.
			continue
		}
		if cameraPos[axis] < center[axis]-half || cameraPos[axis] > center[axis]+half {
			return false
		}
	}
	return true
}

func absF(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// PipelineKey is the registered compute pipeline name for the culling kernel.
const PipelineKey = "cull_compute"

// Pass owns the culling kernel's bind group and dispatches it against a
// shared buffer set from resourcemanager.
type Pass struct {
	bgp bind_group_provider.BindGroupProvider
}

// NewPass creates a culling Pass with a fresh bind group provider.
func NewPass(label string) *Pass {
	return &Pass{bgp: bind_group_provider.NewBindGroupProvider(label + "_cull")}
}

// BindGroupProvider returns the pass's bind group provider, for binding its
// buffers alongside the resource manager's shared buffer set.
func (p *Pass) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return p.bgp
}

// Init creates the culling kernel's own GlobalData uniform buffer against
// the registered compute pipeline's bind group layout. Must be called once
// before the first WriteGlobals/Dispatch; the instances/lods/instance_counts/
// sort_keys slots it shares with resourcemanager are wired separately via
// BindGroupProvider().SetBuffer once resourcemanager's buffers exist.
func (p *Pass) Init(r renderer.Renderer) error {
	var g GPUGlobalData
	sizeOverrides := map[int]uint64{BindingGlobalData: uint64(g.Size())}
	shdr := r.Pipeline(PipelineKey).Shader(shader.ShaderTypeCompute)
	return r.InitBindGroup(p.bgp, shdr.BindGroupLayoutDescriptor(0), nil, sizeOverrides)
}

// WriteGlobals uploads this frame's GlobalData uniform (camera transform,
// LOD parameters, shadow toggle).
func (p *Pass) WriteGlobals(r renderer.Renderer, g GPUGlobalData) {
	r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: p.bgp,
		Binding:  BindingGlobalData,
		Offset:   0,
		Data:     g.Marshal(),
	}})
}

// Dispatch issues the culling compute dispatch for instanceCount instances.
// Must be called within a BeginComputeFrame/EndComputeFrame block.
func (p *Pass) Dispatch(r renderer.Renderer, instanceCount uint32) {
	r.DispatchCompute(PipelineKey, p.bgp, WorkGroupCount(instanceCount))
}
