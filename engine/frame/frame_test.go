package frame

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage-render/crowdgpu/common"
	"github.com/vantage-render/crowdgpu/engine/cull"
	"github.com/vantage-render/crowdgpu/engine/renderer"
	"github.com/vantage-render/crowdgpu/engine/renderer/bind_group_provider"
	"github.com/vantage-render/crowdgpu/engine/renderer/pipeline"
	"github.com/vantage-render/crowdgpu/engine/resourcemanager"
)

// fakeRenderer is a minimal renderer.Renderer implementation that records
// the order compute dispatches and draw calls happen in, without touching a
// real GPU device.
type fakeRenderer struct {
	dispatched []string
	drawCalls  []drawCallRecord
}

type drawCallRecord struct {
	pipelineKey string
	offset      uint64
}

var _ renderer.Renderer = &fakeRenderer{}

func (f *fakeRenderer) Pipeline(key string) pipeline.Pipeline            { return nil }
func (f *fakeRenderer) Pipelines() map[string]pipeline.Pipeline          { return nil }
func (f *fakeRenderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error { return nil }
func (f *fakeRenderer) SetPipeline(key string, p pipeline.Pipeline)      {}
func (f *fakeRenderer) SetPipelines(pipelines map[string]pipeline.Pipeline) {}
func (f *fakeRenderer) Resize(width, height int)                        {}

func (f *fakeRenderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return nil
}
func (f *fakeRenderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return nil
}
func (f *fakeRenderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return nil
}
func (f *fakeRenderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return nil
}
func (f *fakeRenderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {}

func (f *fakeRenderer) BeginComputeFrame() error {
	f.dispatched = append(f.dispatched, "begin_compute")
	return nil
}
func (f *fakeRenderer) EndComputeFrame() {
	f.dispatched = append(f.dispatched, "end_compute")
}
func (f *fakeRenderer) DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) {
	f.dispatched = append(f.dispatched, pipelineKey)
}

func (f *fakeRenderer) BeginFrame() error { return nil }
func (f *fakeRenderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	return nil
}
func (f *fakeRenderer) DrawCallIndirect(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, indirectBuffer *wgpu.Buffer, indirectOffset uint64, bindGroups []bind_group_provider.BindGroupProvider) error {
	f.drawCalls = append(f.drawCalls, drawCallRecord{pipelineKey: pipelineKey, offset: indirectOffset})
	return nil
}
func (f *fakeRenderer) EndFrame() {}
func (f *fakeRenderer) Present()  {}
func (f *fakeRenderer) SetPresentMode(mode renderer.PresentMode) {}

func (f *fakeRenderer) CreateShadowDepthTexture(width, height int) (*wgpu.TextureView, *wgpu.Texture, error) {
	return nil, nil, nil
}
func (f *fakeRenderer) CreateComparisonSampler() (*wgpu.Sampler, error) { return nil, nil }
func (f *fakeRenderer) RegisterShadowPipeline(p pipeline.Pipeline) error { return nil }
func (f *fakeRenderer) BeginShadowFrame() error                         { return nil }
func (f *fakeRenderer) BeginShadowPass(depthView *wgpu.TextureView)     {}
func (f *fakeRenderer) ShadowDrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	return nil
}
func (f *fakeRenderer) ShadowDrawCallIndirect(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, indirectBuffer *wgpu.Buffer, indirectOffset uint64, bindGroups []bind_group_provider.BindGroupProvider) error {
	return nil
}
func (f *fakeRenderer) EndShadowPass()  {}
func (f *fakeRenderer) EndShadowFrame() {}

func TestRunComputeDispatchesInSpecOrder(t *testing.T) {
	resources := resourcemanager.NewResourceManager("test")
	o := NewOrchestrator("test", resources)
	r := &fakeRenderer{}

	require.NoError(t, o.RunCompute(r, cull.GPUGlobalData{InstanceCount: 100}, 100, 200))

	assert.Equal(t, []string{
		"begin_compute",
		"cull_compute",
		"sort_count", "sort_count_reduce", "sort_scan", "sort_scan_add", "sort_scatter",
		"sort_count", "sort_count_reduce", "sort_scan", "sort_scan_add", "sort_scatter",
		"sort_count", "sort_count_reduce", "sort_scan", "sort_scan_add", "sort_scatter",
		"compact_compute",
		"set_draw_args_compute",
		"end_compute",
	}, r.dispatched, "Cull must precede Sort, all three sort passes must finish before Compact, and Compact before SetDrawArgs")
}

func TestSubmitOffsetsEachDrawByItsSlot(t *testing.T) {
	resources := resourcemanager.NewResourceManager("test")
	o := NewOrchestrator("test", resources)
	r := &fakeRenderer{}

	var drawArgs resourcemanager.GPUDrawArgs
	recordSize := uint64(drawArgs.Size())

	slots := []DrawSlot{
		{PipelineKey: "mat_a", DrawArgsSlot: 0},
		{PipelineKey: "mat_a", DrawArgsSlot: 3},
		{PipelineKey: "mat_b", DrawArgsSlot: 7},
	}

	require.NoError(t, o.Submit(r, slots))
	require.Len(t, r.drawCalls, 3)

	assert.Equal(t, uint64(0), r.drawCalls[0].offset)
	assert.Equal(t, 3*recordSize, r.drawCalls[1].offset)
	assert.Equal(t, 7*recordSize, r.drawCalls[2].offset)
}
