// Package sort implements the three-pass GPU radix sort over the low 12 bits
// of the instance sort key (pass:1 | count_index:11), and a CPU reference
// used by the conformance tests and anywhere a GPU device isn't available.
package sort

import (
	_ "embed"
	"encoding/binary"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/vantage-render/crowdgpu/engine/renderer"
	"github.com/vantage-render/crowdgpu/engine/renderer/bind_group_provider"
	"github.com/vantage-render/crowdgpu/engine/renderer/shader"
)

//go:embed assets/count.wgsl
var SourceCount string

//go:embed assets/count_reduce.wgsl
var SourceCountReduce string

//go:embed assets/scan.wgsl
var SourceScan string

//go:embed assets/scan_add.wgsl
var SourceScanAdd string

//go:embed assets/scatter.wgsl
var SourceScatter string

const (
	PassBits  = 4
	NumPasses = 3
	NumBins   = 1 << PassBits // 16
	KeyMask   = (1 << (PassBits * NumPasses)) - 1

	ThreadsPerGroup      = 128
	ElementsPerThread    = 4
	BlocksPerThreadGroup = 4
	elementsPerGroup     = ThreadsPerGroup * ElementsPerThread * BlocksPerThreadGroup
)

// NumThreadGroups returns the thread-group count for Count/Scatter given the
// total key count (instance capacity times pass count).
func NumThreadGroups(keyCount uint32) uint32 {
	groups := (keyCount + elementsPerGroup - 1) / elementsPerGroup
	if groups == 0 {
		groups = 1
	}
	return groups
}

func digit(key uint32, pass int) uint32 {
	return (key >> uint32(pass*PassBits)) & (NumBins - 1)
}

// ReferenceSort performs a stable three-pass LSD radix sort over the low 12
// bits of each key, ascending. It is a direct counting-sort implementation of
// the Count/Scan/Scatter sequence the GPU kernels perform per pass: each pass
// builds a 16-bin histogram, turns it into exclusive prefix offsets, then
// scatters keys to their destination using those offsets. Counting sort is
// stable by construction, matching the scatter kernel's local-sort ordering
// guarantee. The sentinel 0xFFFFFFFF has low-12-bit pattern 0xFFF, the
// maximum digit value in every pass, so it naturally sorts to the tail
// without special-casing.
func ReferenceSort(keys []uint32) []uint32 {
	src := make([]uint32, len(keys))
	copy(src, keys)
	dst := make([]uint32, len(keys))

	for pass := 0; pass < NumPasses; pass++ {
		var counts [NumBins]uint32
		for _, k := range src {
			counts[digit(k, pass)]++
		}
		var offsets [NumBins]uint32
		var sum uint32
		for b := 0; b < NumBins; b++ {
			offsets[b] = sum
			sum += counts[b]
		}
		for _, k := range src {
			d := digit(k, pass)
			dst[offsets[d]] = k
			offsets[d]++
		}
		src, dst = dst, src
	}
	return src
}

const (
	CountPipelineKey       = "sort_count"
	CountReducePipelineKey = "sort_count_reduce"
	ScanPipelineKey        = "sort_scan"
	ScanAddPipelineKey     = "sort_scan_add"
	ScatterPipelineKey     = "sort_scatter"
)

// BindingParams is the uniform binding slot (binding 0 of their bind group)
// at which Count, CountReduce, ScanAdd and Scatter read their SortParams.
// Scan has no uniform; its binding 0 is the reduce table.
const BindingParams = 0

// GPUSortParams is the per-dispatch uniform Count, CountReduce, ScanAdd, and
// Scatter read: which 4-bit digit this pass extracts (shift), the total key
// count, and the thread-group count the histogram/offset tables are sized
// for. Size: 16 bytes (std430 aligned).
type GPUSortParams struct {
	KeyCount  uint32
	Shift     uint32
	NumGroups uint32
	_pad      uint32
}

// Size returns the size of the GPUSortParams struct in bytes.
func (g *GPUSortParams) Size() int { return int(unsafe.Sizeof(*g)) }

// Marshal serializes the GPUSortParams struct into a byte buffer suitable for GPU upload.
func (g *GPUSortParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], g.KeyCount)
	binary.LittleEndian.PutUint32(buf[4:8], g.Shift)
	binary.LittleEndian.PutUint32(buf[8:12], g.NumGroups)
	binary.LittleEndian.PutUint32(buf[12:16], 0) // _pad
	return buf
}

// Pass owns the bind group providers for the five radix-sort kernels and
// drives the three-pass dispatch sequence. Each of the three passes runs all
// five kernels in order; passes are separated by the implicit barrier between
// compute dispatches since pass N+1 reads the keys pass N wrote.
//
// True LSD ping-pong requires src_keys and dst_keys to never alias: keysA and
// keysB (set via SetKeyBuffers) swap roles every pass, so pass N's dst_keys
// becomes pass N+1's src_keys. NumPasses is odd, so the fully sorted result
// always lands in keysB — see FinalKeysBuffer.
type Pass struct {
	count       bind_group_provider.BindGroupProvider
	countReduce bind_group_provider.BindGroupProvider
	scan        bind_group_provider.BindGroupProvider
	scanAdd     bind_group_provider.BindGroupProvider
	scatter     bind_group_provider.BindGroupProvider

	keysA, keysB *wgpu.Buffer
}

// SetKeyBuffers records the two physical SortKeys buffers Dispatch alternates
// between as src/dst across the three passes. Must be called (and re-called
// after any resourcemanager.Rebuild) before Dispatch.
func (p *Pass) SetKeyBuffers(a, b *wgpu.Buffer) {
	p.keysA, p.keysB = a, b
}

// FinalKeysBuffer returns the physical buffer holding the fully sorted keys
// after Dispatch completes: with NumPasses odd, that is always keysB.
func (p *Pass) FinalKeysBuffer() *wgpu.Buffer {
	if NumPasses%2 == 1 {
		return p.keysB
	}
	return p.keysA
}

func NewPass(label string) *Pass {
	return &Pass{
		count:       bind_group_provider.NewBindGroupProvider(label + "_sort_count"),
		countReduce: bind_group_provider.NewBindGroupProvider(label + "_sort_count_reduce"),
		scan:        bind_group_provider.NewBindGroupProvider(label + "_sort_scan"),
		scanAdd:     bind_group_provider.NewBindGroupProvider(label + "_sort_scan_add"),
		scatter:     bind_group_provider.NewBindGroupProvider(label + "_sort_scatter"),
	}
}

func (p *Pass) CountBindGroupProvider() bind_group_provider.BindGroupProvider       { return p.count }
func (p *Pass) CountReduceBindGroupProvider() bind_group_provider.BindGroupProvider { return p.countReduce }
func (p *Pass) ScanBindGroupProvider() bind_group_provider.BindGroupProvider        { return p.scan }
func (p *Pass) ScanAddBindGroupProvider() bind_group_provider.BindGroupProvider     { return p.scanAdd }
func (p *Pass) ScatterBindGroupProvider() bind_group_provider.BindGroupProvider     { return p.scatter }

// Init creates the five kernels' own uniform buffers (SortParams, or nothing
// for Scan) against their registered compute pipelines' bind group layouts.
// Must be called once before the first Dispatch; the keys/sum_table/
// reduce_table/scan_scratch/bin_offset_cache slots each kernel shares with
// resourcemanager are wired separately via each *BindGroupProvider's
// SetBuffer once resourcemanager's buffers exist.
func (p *Pass) Init(r renderer.Renderer) error {
	var params GPUSortParams
	sizeOverrides := map[int]uint64{BindingParams: uint64(params.Size())}
	withParams := map[string]bind_group_provider.BindGroupProvider{
		CountPipelineKey:       p.count,
		CountReducePipelineKey: p.countReduce,
		ScanAddPipelineKey:     p.scanAdd,
		ScatterPipelineKey:     p.scatter,
	}
	for pipelineKey, bgp := range withParams {
		shdr := r.Pipeline(pipelineKey).Shader(shader.ShaderTypeCompute)
		if err := r.InitBindGroup(bgp, shdr.BindGroupLayoutDescriptor(0), nil, sizeOverrides); err != nil {
			return err
		}
	}
	shdr := r.Pipeline(ScanPipelineKey).Shader(shader.ShaderTypeCompute)
	return r.InitBindGroup(p.scan, shdr.BindGroupLayoutDescriptor(0), nil, nil)
}

func (p *Pass) writeParams(r renderer.Renderer, bgp bind_group_provider.BindGroupProvider, params GPUSortParams) {
	r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: bgp,
		Binding:  BindingParams,
		Offset:   0,
		Data:     params.Marshal(),
	}})
}

// Dispatch runs the three radix passes, five kernels each, over keyCount
// keys, swapping src/dst between keysA and keysB every pass. Must be called
// within a BeginComputeFrame/EndComputeFrame block, after SetKeyBuffers.
func (p *Pass) Dispatch(r renderer.Renderer, keyCount uint32) {
	groups := NumThreadGroups(keyCount)
	workGroupCount := [3]uint32{groups, 1, 1}
	single := [3]uint32{1, 1, 1}

	for pass := 0; pass < NumPasses; pass++ {
		src, dst := p.keysA, p.keysB
		if pass%2 == 1 {
			src, dst = p.keysB, p.keysA
		}
		p.count.SetBuffer(1, src)
		p.scatter.SetBuffer(1, src)
		p.scatter.SetBuffer(3, dst)

		params := GPUSortParams{KeyCount: keyCount, Shift: uint32(pass * PassBits), NumGroups: groups}
		p.writeParams(r, p.count, params)
		p.writeParams(r, p.countReduce, params)
		p.writeParams(r, p.scanAdd, params)
		p.writeParams(r, p.scatter, params)

		r.DispatchCompute(CountPipelineKey, p.count, workGroupCount)
		r.DispatchCompute(CountReducePipelineKey, p.countReduce, single)
		r.DispatchCompute(ScanPipelineKey, p.scan, single)
		r.DispatchCompute(ScanAddPipelineKey, p.scanAdd, workGroupCount)
		r.DispatchCompute(ScatterPipelineKey, p.scatter, workGroupCount)
	}
}
