// Package compact implements the compaction pass: for each surviving sorted
// key, dereference its InstanceData, decompress the transform, invert the
// model matrix, and write a dense InstanceProperties record. The GPU kernel
// (assets/compact.wgsl) and the CPU reference (Compact) implement the same
// algorithm; the latter backs the conformance tests.
package compact

import (
	_ "embed"
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vantage-render/crowdgpu/common"
	"github.com/vantage-render/crowdgpu/engine/renderer"
	"github.com/vantage-render/crowdgpu/engine/renderer/bind_group_provider"
	"github.com/vantage-render/crowdgpu/engine/renderer/shader"
	"github.com/vantage-render/crowdgpu/engine/resourcemanager"
	"github.com/vantage-render/crowdgpu/internal/compress"
)

//go:embed assets/compact.wgsl
var Source string

// SentinelKey marks a culled slot; Compact must skip it and write nothing.
const SentinelKey uint32 = 0xFFFFFFFF

// Entry is the minimal per-instance input Compact needs: its packed transform
// and the animation state carried straight through to InstanceProperties.
type Entry struct {
	Transform      compress.CompressedTransform
	AnimationIndex uint32
	AnimationTime  float32
}

// Compact runs the CPU reference compaction: walks sortedKeys in order,
// skips sentinels, dereferences fetch(instance_index), decompresses and
// inverts its transform (cofactor method via common.Invert4 — the transform
// is affine with uniform scale, so the inverse is always well-conditioned
// for nonzero scale), and appends one InstanceProperties per survivor. The
// output is dense: output[k] corresponds to thread_id k, matching the GPU
// kernel's one-survivor-per-compacted-slot contract.
func Compact(sortedKeys []uint32, fetch func(instanceIndex uint32) Entry) []resourcemanager.GPUInstanceProperties {
	out := make([]resourcemanager.GPUInstanceProperties, 0, len(sortedKeys))
	for _, key := range sortedKeys {
		if key == SentinelKey {
			continue
		}
		instanceIndex := key >> 12
		e := fetch(instanceIndex)

		model := e.Transform.ModelMatrix()
		var inv mgl32.Mat4
		common.Invert4(inv[:], model[:])

		out = append(out, resourcemanager.GPUInstanceProperties{
			Model:          affine3x4(model),
			ModelInverse:   affine3x4(inv),
			AnimationIndex: e.AnimationIndex,
			AnimationTime:  e.AnimationTime,
		})
	}
	return out
}

// affine3x4 drops a column-major 4x4's implicit [0,0,0,1] last row, keeping
// the 12 values (4 columns of 3) that fully describe an affine transform.
func affine3x4(m mgl32.Mat4) [12]float32 {
	var out [12]float32
	for col := 0; col < 4; col++ {
		out[col*3+0] = m[col*4+0]
		out[col*3+1] = m[col*4+1]
		out[col*3+2] = m[col*4+2]
	}
	return out
}

const PipelineKey = "compact_compute"
const ThreadGroupSize = 64

func WorkGroupCount(keyCount uint32) [3]uint32 {
	groups := (keyCount + ThreadGroupSize - 1) / ThreadGroupSize
	if groups == 0 {
		groups = 1
	}
	return [3]uint32{groups, 1, 1}
}

// BindingKeyCount is the compaction kernel's uniform binding slot for the
// bare key_count u32 (distinct from the sorted_keys/instances/properties
// slots it shares with resourcemanager).
const BindingKeyCount = 0

// Pass owns the compaction kernel's bind group and dispatches it.
type Pass struct {
	bgp bind_group_provider.BindGroupProvider
}

func NewPass(label string) *Pass {
	return &Pass{bgp: bind_group_provider.NewBindGroupProvider(label + "_compact")}
}

func (p *Pass) BindGroupProvider() bind_group_provider.BindGroupProvider { return p.bgp }

// Init creates the compaction kernel's own key_count uniform buffer against
// the registered compute pipeline's bind group layout. Must be called once
// before the first WriteKeyCount/Dispatch; the sorted_keys/instances/
// properties slots it shares with resourcemanager are wired separately via
// BindGroupProvider().SetBuffer once resourcemanager's buffers exist.
func (p *Pass) Init(r renderer.Renderer) error {
	sizeOverrides := map[int]uint64{BindingKeyCount: 4}
	shdr := r.Pipeline(PipelineKey).Shader(shader.ShaderTypeCompute)
	return r.InitBindGroup(p.bgp, shdr.BindGroupLayoutDescriptor(0), nil, sizeOverrides)
}

// WriteKeyCount uploads this frame's key_count uniform.
func (p *Pass) WriteKeyCount(r renderer.Renderer, keyCount uint32) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, keyCount)
	r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: p.bgp,
		Binding:  BindingKeyCount,
		Offset:   0,
		Data:     buf,
	}})
}

func (p *Pass) Dispatch(r renderer.Renderer, keyCount uint32) {
	r.DispatchCompute(PipelineKey, p.bgp, WorkGroupCount(keyCount))
}
