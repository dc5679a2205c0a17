// Package drawargs implements the SetDrawArgs pass: a single-workgroup
// Blelloch exclusive prefix-sum over InstanceCounts turns bin counts into
// instance_start offsets, then each occupied bin's InstanceTypeData entry is
// unpacked to fan its (instance_count, instance_start) pair out across its
// draw_call_count consecutive DrawArgs slots. This is the one serialization
// point in the frame pipeline; everything before and after it is
// data-parallel.
package drawargs

import (
	_ "embed"

	"github.com/vantage-render/crowdgpu/engine/renderer"
	"github.com/vantage-render/crowdgpu/engine/renderer/bind_group_provider"
	"github.com/vantage-render/crowdgpu/engine/renderer/shader"
	"github.com/vantage-render/crowdgpu/engine/resourcemanager"
)

//go:embed assets/set_draw_args.wgsl
var Source string

// ExclusivePrefixSum computes the Blelloch exclusive scan of counts,
// returning the start offset of each bin. Mirrors the GPU kernel's
// shared-memory up-sweep/down-sweep sequence exactly, just run serially.
func ExclusivePrefixSum(counts []uint32) []uint32 {
	n := len(counts)
	starts := make([]uint32, n)
	copy(starts, counts)

	// Up-sweep (reduce).
	for d := 1; d < n; d *= 2 {
		for i := 0; i < n; i += d * 2 {
			if i+2*d-1 < n {
				starts[i+2*d-1] += starts[i+d-1]
			}
		}
	}

	if n > 0 {
		starts[n-1] = 0
	}

	// Down-sweep.
	for d := n / 2; d >= 1; d /= 2 {
		for i := 0; i < n; i += d * 2 {
			if i+2*d-1 < n {
				t := starts[i+d-1]
				starts[i+d-1] = starts[i+2*d-1]
				starts[i+2*d-1] += t
			}
		}
	}
	return starts
}

// InstanceTypeEntry is the fields of an occupied bin needed to fan its slot
// out across DrawArgs.
type InstanceTypeEntry struct {
	InstanceCount uint32
	InstanceStart uint32
	DrawCallCount uint32
	DrawArgsBase  uint32
}

// SetDrawArgs is the CPU reference for the full pass: given the raw
// InstanceCounts and a lookup from bin index to its packed InstanceTypeData,
// computes instance_start via ExclusivePrefixSum and returns, for every
// occupied bin, the slots it must write. index_count/index_start/base_vertex
// are registration-time constants untouched by this pass — callers merge
// this result into the existing DrawArgs entries rather than overwrite them
// wholesale.
func SetDrawArgs(counts []uint32, instanceTypeFor func(bin int) resourcemanager.GPUInstanceTypeData) []InstanceTypeEntry {
	starts := ExclusivePrefixSum(counts)

	var entries []InstanceTypeEntry
	for bin, count := range counts {
		if count == 0 {
			continue
		}
		typeData := instanceTypeFor(bin)
		entries = append(entries, InstanceTypeEntry{
			InstanceCount: count,
			InstanceStart: starts[bin],
			DrawCallCount: typeData.DrawCallCount(),
			DrawArgsBase:  typeData.DrawArgsBase(),
		})
	}
	return entries
}

// ApplyDrawArgs fans each InstanceTypeEntry's (instance_count, instance_start)
// pair across its draw_call_count consecutive DrawArgs slots, preserving the
// index_count/index_start/base_vertex fields already present at those slots.
func ApplyDrawArgs(drawArgs []resourcemanager.GPUDrawArgs, entries []InstanceTypeEntry) {
	for _, e := range entries {
		for k := uint32(0); k < e.DrawCallCount; k++ {
			slot := e.DrawArgsBase + k
			if int(slot) >= len(drawArgs) {
				continue
			}
			drawArgs[slot].InstanceCount = e.InstanceCount
			drawArgs[slot].InstanceStart = e.InstanceStart
		}
	}
}

const PipelineKey = "set_draw_args_compute"
const ThreadGroupSize = 1024

// Pass owns the SetDrawArgs kernel's bind group. It always dispatches a
// single thread-group regardless of bin count (the kernel processes two
// elements per thread, up to 2048 bins per dispatch).
type Pass struct {
	bgp bind_group_provider.BindGroupProvider
}

func NewPass(label string) *Pass {
	return &Pass{bgp: bind_group_provider.NewBindGroupProvider(label + "_draw_args")}
}

func (p *Pass) BindGroupProvider() bind_group_provider.BindGroupProvider { return p.bgp }

// Init creates the SetDrawArgs kernel's bind group against the registered
// compute pipeline's layout. The kernel has no uniform of its own — every
// slot (instance_counts/instance_type_data/draw_args) is wired separately
// via BindGroupProvider().SetBuffer once resourcemanager's buffers exist.
func (p *Pass) Init(r renderer.Renderer) error {
	shdr := r.Pipeline(PipelineKey).Shader(shader.ShaderTypeCompute)
	return r.InitBindGroup(p.bgp, shdr.BindGroupLayoutDescriptor(0), nil, nil)
}

func (p *Pass) Dispatch(r renderer.Renderer) {
	r.DispatchCompute(PipelineKey, p.bgp, [3]uint32{1, 1, 1})
}
