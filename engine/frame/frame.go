// Package frame orchestrates the per-camera frame pipeline: upload dirty
// provider state in one batch, dispatch Cull → Sort → Compact → SetDrawArgs
// as a single compute command stream, then submit the resulting indirect
// draws. Grounded on the scene frame loop's two-phase pattern: collect every
// provider's BufferWrites into one WriteBuffers call before dispatching any
// compute, so N provider sources cost one mutex acquisition instead of N.
package frame

import (
	"github.com/vantage-render/crowdgpu/engine/compact"
	"github.com/vantage-render/crowdgpu/engine/cull"
	"github.com/vantage-render/crowdgpu/engine/drawargs"
	"github.com/vantage-render/crowdgpu/engine/profiler"
	"github.com/vantage-render/crowdgpu/engine/renderer"
	"github.com/vantage-render/crowdgpu/engine/renderer/bind_group_provider"
	"github.com/vantage-render/crowdgpu/engine/resourcemanager"
	"github.com/vantage-render/crowdgpu/engine/sort"
)

// DrawSlot describes one indirect draw submission: the pipeline and mesh it
// targets, any extra per-material bind groups, and which DrawArgs slot (byte
// offset into the shared DrawArgs buffer) it reads instance_count/
// instance_start from.
type DrawSlot struct {
	PipelineKey  string
	MeshProvider bind_group_provider.BindGroupProvider
	BindGroups   []bind_group_provider.BindGroupProvider
	DrawArgsSlot uint32
}

// Orchestrator drives the compute pipeline and draw submission for one
// camera. A scene typically owns one Orchestrator per camera (or one shared
// instance re-run per camera, since the passes are stateless beyond their
// bind groups).
type Orchestrator struct {
	resources    *resourcemanager.ResourceManager
	cullPass     *cull.Pass
	sortPass     *sort.Pass
	compactPass  *compact.Pass
	drawArgsPass *drawargs.Pass
	profiler     *profiler.Profiler
}

// SetProfiler attaches a profiler whose BeginSpan is wrapped around each
// compute phase and the indirect draw submission. Pass nil to disable
// per-phase timing; RunCompute/Submit are no-ops around profiling either way.
func (o *Orchestrator) SetProfiler(p *profiler.Profiler) {
	o.profiler = p
}

func (o *Orchestrator) span(name string) func() {
	if o.profiler == nil {
		return func() {}
	}
	return o.profiler.BeginSpan(name)
}

func NewOrchestrator(label string, resources *resourcemanager.ResourceManager) *Orchestrator {
	return &Orchestrator{
		resources:    resources,
		cullPass:     cull.NewPass(label),
		sortPass:     sort.NewPass(label),
		compactPass:  compact.NewPass(label),
		drawArgsPass: drawargs.NewPass(label),
	}
}

func (o *Orchestrator) CullPass() *cull.Pass         { return o.cullPass }
func (o *Orchestrator) SortPass() *sort.Pass         { return o.sortPass }
func (o *Orchestrator) CompactPass() *compact.Pass   { return o.compactPass }
func (o *Orchestrator) DrawArgsPass() *drawargs.Pass { return o.drawArgsPass }

// Init creates each pass's own uniform bind group against its registered
// compute pipeline. Must be called once, after pipelines are registered and
// before the first RunCompute. The buffer slots each pass shares with
// resources (instances, lods, sort keys, and so on) are wired separately —
// see WireSharedBuffers — once resources' buffers exist.
func (o *Orchestrator) Init(r renderer.Renderer) error {
	if err := o.cullPass.Init(r); err != nil {
		return err
	}
	if err := o.sortPass.Init(r); err != nil {
		return err
	}
	if err := o.compactPass.Init(r); err != nil {
		return err
	}
	return o.drawArgsPass.Init(r)
}

// WireSharedBuffers re-points every pass's shared storage-buffer bindings at
// resources' current physical buffers. Must be called once after Init, and
// again any time resources.Rebuild reallocates a buffer (growth invalidates
// every bind group aliasing the old one).
//
// Count/CountReduce/Scan/ScanAdd each get their own physical sum_table/
// reduce_table/scan_scratch/bin_offset_cache buffer instead of sharing byte
// ranges of one — BindGroupProvider.SetBuffer binds a whole buffer with no
// sub-range view. Sort's src_keys/dst_keys alternate between keysPrimary and
// keysAlt every pass (see sort.Pass.SetKeyBuffers); Compact reads whichever
// of the two holds the fully sorted result once Dispatch finishes.
func (o *Orchestrator) WireSharedBuffers() {
	lods := o.resources.Buffer(resourcemanager.BindingLodData)
	animations := o.resources.Buffer(resourcemanager.BindingAnimationData)
	instances := o.resources.Buffer(resourcemanager.BindingInstanceData)
	counts := o.resources.Buffer(resourcemanager.BindingInstanceCounts)
	keysPrimary := o.resources.Buffer(resourcemanager.BindingSortKeys)
	keysAlt := o.resources.Buffer(resourcemanager.BindingSortKeysAlt)
	sumTable := o.resources.Buffer(resourcemanager.BindingSumTable)
	reduceTable := o.resources.Buffer(resourcemanager.BindingReduceTable)
	scanScratch := o.resources.Buffer(resourcemanager.BindingScanScratch)
	binOffsetCache := o.resources.Buffer(resourcemanager.BindingBinOffsetCache)
	types := o.resources.Buffer(resourcemanager.BindingInstanceTypeData)
	properties := o.resources.Buffer(resourcemanager.BindingInstanceProperties)
	drawArgs := o.resources.Buffer(resourcemanager.BindingDrawArgs)

	cullBgp := o.cullPass.BindGroupProvider()
	cullBgp.SetBuffer(1, lods)
	cullBgp.SetBuffer(2, instances)
	cullBgp.SetBuffer(3, counts)
	cullBgp.SetBuffer(4, keysPrimary)
	cullBgp.SetBuffer(5, animations)

	o.sortPass.SetKeyBuffers(keysPrimary, keysAlt)

	count := o.sortPass.CountBindGroupProvider()
	count.SetBuffer(2, sumTable)

	countReduce := o.sortPass.CountReduceBindGroupProvider()
	countReduce.SetBuffer(1, sumTable)
	countReduce.SetBuffer(2, reduceTable)

	scan := o.sortPass.ScanBindGroupProvider()
	scan.SetBuffer(0, reduceTable)
	scan.SetBuffer(1, scanScratch)

	scanAdd := o.sortPass.ScanAddBindGroupProvider()
	scanAdd.SetBuffer(1, sumTable)
	scanAdd.SetBuffer(2, scanScratch)
	scanAdd.SetBuffer(3, binOffsetCache)

	scatter := o.sortPass.ScatterBindGroupProvider()
	scatter.SetBuffer(2, binOffsetCache)

	compactBgp := o.compactPass.BindGroupProvider()
	compactBgp.SetBuffer(1, o.sortPass.FinalKeysBuffer())
	compactBgp.SetBuffer(2, instances)
	compactBgp.SetBuffer(3, properties)

	drawArgsBgp := o.drawArgsPass.BindGroupProvider()
	drawArgsBgp.SetBuffer(0, counts)
	drawArgsBgp.SetBuffer(1, types)
	drawArgsBgp.SetBuffer(2, drawArgs)
}

// RunCompute dispatches Cull, the three-pass Sort, Compact, and SetDrawArgs
// as a single batched compute command stream. The caller is responsible for
// staging and flushing any dirty instance/mesh/animation data beforehand
// (via resourcemanager's Stage*/Flush) and for calling Rebuild if any buffer
// grew — RunCompute only drives the GPU dispatch ordering in §5's "Cull
// happens-before Sort; all three radix passes finish before Compact"
// sequence, which a single command stream gives for free via the implicit
// inter-dispatch barrier.
func (o *Orchestrator) RunCompute(r renderer.Renderer, globals cull.GPUGlobalData, instanceCount, keyCount uint32) error {
	o.cullPass.WriteGlobals(r, globals)
	o.compactPass.WriteKeyCount(r, keyCount)
	o.resources.ZeroInstanceCounts(r)

	if err := r.BeginComputeFrame(); err != nil {
		return err
	}

	endCull := o.span("cull")
	o.cullPass.Dispatch(r, instanceCount)
	endCull()

	endSort := o.span("sort")
	o.sortPass.Dispatch(r, keyCount)
	endSort()

	endCompact := o.span("compact")
	o.compactPass.Dispatch(r, keyCount)
	endCompact()

	endDrawArgs := o.span("set_draw_args")
	o.drawArgsPass.Dispatch(r)
	endDrawArgs()

	r.EndComputeFrame()
	return nil
}

// Submit issues one indirect draw per DrawSlot against the resource
// manager's shared DrawArgs buffer, offset to that slot's 20-byte record.
func (o *Orchestrator) Submit(r renderer.Renderer, slots []DrawSlot) error {
	if err := r.BeginFrame(); err != nil {
		return err
	}
	drawArgsBuffer := o.resources.Buffer(resourcemanager.BindingDrawArgs)
	var drawArgs resourcemanager.GPUDrawArgs
	recordSize := uint64(drawArgs.Size())

	defer o.span("draw")()
	for _, slot := range slots {
		bindGroups := append([]bind_group_provider.BindGroupProvider{o.resources.BindGroupProvider()}, slot.BindGroups...)
		offset := uint64(slot.DrawArgsSlot) * recordSize
		if err := r.DrawCallIndirect(slot.PipelineKey, slot.MeshProvider, drawArgsBuffer, offset, bindGroups); err != nil {
			return err
		}
	}
	r.EndFrame()
	return nil
}
