// Package scene ties the registry, resource manager, and frame pipeline
// together into the per-camera entry point an application drives each frame:
// register meshes/materials/animation sets/providers, call PrepareCompute
// once per frame to stage dirty instance data and run the GPU compute
// pipeline, then call DrawCalls to submit the resulting indirect draws.
package scene

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vantage-render/crowdgpu/engine/camera"
	"github.com/vantage-render/crowdgpu/engine/cull"
	"github.com/vantage-render/crowdgpu/engine/frame"
	"github.com/vantage-render/crowdgpu/engine/registry"
	"github.com/vantage-render/crowdgpu/engine/renderer"
	"github.com/vantage-render/crowdgpu/engine/renderer/bind_group_provider"
	"github.com/vantage-render/crowdgpu/engine/renderer/shader"
	"github.com/vantage-render/crowdgpu/engine/resourcemanager"
	radixsort "github.com/vantage-render/crowdgpu/engine/sort"
	"github.com/vantage-render/crowdgpu/internal/compress"
	"github.com/vantage-render/crowdgpu/internal/rendererr"
)

// maxBins is the 11-bit count_index field's range: every provider's camera-
// and shadow-pass bins together must fit under this ceiling (open-question
// decision recorded in DESIGN.md: instance_type_count * 2 * lod_count <= 2^11).
const maxBins = 1 << 11

// Scene is the per-camera orchestration surface: it owns a Registry, a
// resourcemanager.ResourceManager, and a frame.Orchestrator, and drives them
// each frame from a Camera and Renderer.
type Scene interface {
	Name() string
	SetName(name string)

	Active() bool
	SetActive(active bool)

	Camera() camera.Camera
	SetCamera(cam camera.Camera)

	Renderer() renderer.Renderer
	SetRenderer(r renderer.Renderer)

	// CullingDisabled reports whether frustum/distance culling is bypassed —
	// every live instance is treated as visible at LOD 0.
	CullingDisabled() bool
	SetCullingDisabled(disabled bool)

	Config() renderer.Config
	SetConfig(cfg renderer.Config)

	// Registry returns the scene's mesh/material/animation-set/provider
	// registry, for direct registration or lookups.
	Registry() *registry.Registry

	// Init creates every compute pass's own uniform bind group. Must be
	// called once, after the renderer's compute pipelines are registered and
	// before the first PrepareCompute.
	Init() error

	// RegisterMesh registers a mesh and, on first registration, stages its
	// LOD table into the resource manager.
	RegisterMesh(key any, entry registry.MeshEntry) (registry.MeshHandle, error)
	DeregisterMesh(h registry.MeshHandle) bool

	RegisterMaterial(key any, entry registry.MaterialEntry) (registry.MaterialHandle, error)
	DeregisterMaterial(h registry.MaterialHandle) bool

	// RegisterAnimationSet registers an animation set and, on first
	// registration, stages its clip table (bounds + atlas regions) into the
	// resource manager.
	RegisterAnimationSet(key any, entry registry.AnimationSetEntry) (registry.AnimationSetHandle, error)
	DeregisterAnimationSet(h registry.AnimationSetHandle) bool

	// RegisterProvider registers an instance provider and reserves its
	// bin/draw-args slot range. Must be called before the provider's
	// instances are visible to PrepareCompute.
	RegisterProvider(p registry.InstanceProvider) (registry.ProviderID, error)
	DeregisterProvider(p registry.InstanceProvider)

	// PrepareCompute stages every provider's instance data, uploads it in one
	// batch, and dispatches Cull->Sort->Compact->SetDrawArgs for this frame.
	PrepareCompute(deltaTime float32) error

	// SetPipelineKeyFunc registers the function DrawCalls uses to resolve
	// each submesh's render pipeline from its mesh and material handles.
	// Must be set before the first DrawCalls.
	SetPipelineKeyFunc(f func(mesh registry.MeshHandle, material registry.MaterialHandle) string)

	// DrawCalls submits one indirect draw per (LOD x submesh) slot of every
	// registered provider, using the function set via SetPipelineKeyFunc to
	// resolve each submesh's render pipeline from its mesh and material
	// handles.
	DrawCalls() error
}

// providerBinding is the slot range a registered provider owns: a run of
// bins in InstanceCounts (2*LodCount — the camera-pass half, then the
// shadow-pass half that the culling kernel fills when shadows are enabled) and
// a matching run of DrawArgs slots (2*LodCount*SubMeshCount). DrawCalls
// submits draws for the camera-pass slots only. instanceBase is
// not part of the reservation: PrepareCompute recomputes it every frame as a
// prefix sum over live provider instance counts.
type providerBinding struct {
	mesh          registry.MeshHandle
	meshRow       uint32
	lodCount      uint32
	subMeshCount  uint32
	binBase       uint32
	drawArgsBase  uint32
	instanceBase  uint32
	instanceCount uint32
}

func (b *providerBinding) drawCallCount() uint32 { return b.lodCount * b.subMeshCount }

type scene struct {
	mu sync.RWMutex

	name            string
	active          bool
	cullingDisabled bool
	config          renderer.Config

	cam camera.Camera
	r   renderer.Renderer

	reg          *registry.Registry
	resources    *resourcemanager.ResourceManager
	orchestrator *frame.Orchestrator
	bufferShader shader.Shader
	groupIndex   int

	bindings         map[registry.InstanceProvider]*providerBinding
	nextBin          uint32
	nextDrawArgsSlot uint32

	meshIndex   map[registry.MeshHandle]uint32
	nextMeshRow uint32

	animBase    map[registry.AnimationSetHandle]uint32
	nextAnimRow uint32

	computePool    worker.DynamicWorkerPool
	computeWorkers int

	pipelineKeyFor func(mesh registry.MeshHandle, material registry.MaterialHandle) string

	writePool []bind_group_provider.BufferWrite
}

// NewScene creates a Scene. bufferShader/groupIndex identify the compute
// shader and bind group whose layout resourcemanager.Rebuild uses to size
// the shared buffer set — typically the culling kernel's own shader, since
// every shared-buffer binding the frame pipeline's other passes use is a
// subset of the culling kernel's bind group layout.
func NewScene(name string, bufferShader shader.Shader, groupIndex int, opts ...SceneBuilderOption) Scene {
	s := &scene{
		name:           name,
		active:         true,
		config:         renderer.NewConfig(),
		reg:            registry.NewRegistry(),
		resources:      resourcemanager.NewResourceManager(name),
		bufferShader:   bufferShader,
		groupIndex:     groupIndex,
		bindings:       make(map[registry.InstanceProvider]*providerBinding),
		meshIndex:      make(map[registry.MeshHandle]uint32),
		animBase:       make(map[registry.AnimationSetHandle]uint32),
		computeWorkers: runtime.NumCPU() - 1,
	}
	if s.computeWorkers < 1 {
		s.computeWorkers = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	// set_draw_args.wgsl always scans the full 2048-bin range in one
	// fixed-size dispatch (MAX_BINS), so InstanceCounts/InstanceTypeData must
	// be allocated at that width from the start rather than grown lazily —
	// unlike every other buffer, a too-small allocation here is a kernel
	// out-of-bounds read, not just a missing draw.
	s.resources.EnsureBinCapacity(maxBins)
	s.resources.EnsureInstanceTypeCapacity(maxBins)
	s.orchestrator = frame.NewOrchestrator(name, s.resources)
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string { s.mu.RLock(); defer s.mu.RUnlock(); return s.name }
func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool { s.mu.RLock(); defer s.mu.RUnlock(); return s.active }
func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera { s.mu.RLock(); defer s.mu.RUnlock(); return s.cam }
func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Renderer() renderer.Renderer { s.mu.RLock(); defer s.mu.RUnlock(); return s.r }
func (s *scene) SetRenderer(r renderer.Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r = r
}

func (s *scene) CullingDisabled() bool { s.mu.RLock(); defer s.mu.RUnlock(); return s.cullingDisabled }
func (s *scene) SetCullingDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cullingDisabled = disabled
}

func (s *scene) Config() renderer.Config { s.mu.RLock(); defer s.mu.RUnlock(); return s.config }
func (s *scene) SetConfig(cfg renderer.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

func (s *scene) Registry() *registry.Registry { return s.reg }

func (s *scene) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.r == nil {
		return fmt.Errorf("scene %q: Init called with no renderer attached", s.name)
	}
	return s.orchestrator.Init(s.r)
}

func (s *scene) RegisterMesh(key any, entry registry.MeshEntry) (registry.MeshHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.reg.RegisterMesh(key, entry)
	if err != nil {
		return h, err
	}
	if _, staged := s.meshIndex[h]; staged {
		return h, nil
	}

	idx := s.nextMeshRow
	s.nextMeshRow++
	s.meshIndex[h] = idx
	s.resources.EnsureMeshCapacity(s.nextMeshRow)

	shadowLodIndices := entry.Lods.ShadowLodIndices
	if shadowLodIndices == 0 {
		shadowLodIndices = deriveShadowLodIndices(entry.Lods.LodCount, s.config.ShadowLodOffset)
	}
	lod := resourcemanager.GPULodData{
		LodCount:         entry.Lods.LodCount,
		ScreenHeights:    entry.Lods.ScreenHeights,
		ShadowLodIndices: shadowLodIndices,
	}
	s.resources.StageLodData(&s.writePool, idx, lod)
	return h, nil
}

// deriveShadowLodIndices packs a shadow_lod_indices table (3 bits per primary
// LOD) from Config.ShadowLodOffset, for meshes that don't supply an explicit
// table: the shadow pass renders offset steps coarser than the camera pass's
// selected LOD, clamped to the mesh's coarsest LOD.
func deriveShadowLodIndices(lodCount uint32, offset int) uint32 {
	var packed uint32
	for i := 0; i < int(lodCount) && i < 5; i++ {
		shadow := i + offset
		if shadow < 0 {
			shadow = 0
		}
		if shadow > int(lodCount)-1 {
			shadow = int(lodCount) - 1
		}
		packed |= uint32(shadow&0x7) << uint(i*3)
	}
	return packed
}

func (s *scene) DeregisterMesh(h registry.MeshHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.DeregisterMesh(h)
}

func (s *scene) RegisterMaterial(key any, entry registry.MaterialEntry) (registry.MaterialHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.RegisterMaterial(key, entry)
}

func (s *scene) DeregisterMaterial(h registry.MaterialHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.DeregisterMaterial(h)
}

func (s *scene) RegisterAnimationSet(key any, entry registry.AnimationSetEntry) (registry.AnimationSetHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.reg.RegisterAnimationSet(key, entry)
	if err != nil {
		return h, err
	}
	if _, staged := s.animBase[h]; staged {
		return h, nil
	}

	base := s.nextAnimRow
	s.animBase[h] = base
	s.nextAnimRow += uint32(len(entry.Animations))
	s.resources.EnsureAnimationCapacity(s.nextAnimRow)

	for i, clip := range entry.Animations {
		data := resourcemanager.GPUAnimationData{
			BoundsCenter:  clip.BoundsCenter,
			BoundsExtents: clip.BoundsExtents,
			TexRegionMin:  [2]float32{float32(clip.RegionMin[0]), float32(clip.RegionMin[1])},
			TexRegionMax:  [2]float32{float32(clip.RegionMax[0]), float32(clip.RegionMax[1])},
		}
		s.resources.StageAnimationData(&s.writePool, base+uint32(i), data)
	}
	return h, nil
}

func (s *scene) DeregisterAnimationSet(h registry.AnimationSetHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.DeregisterAnimationSet(h)
}

func (s *scene) RegisterProvider(p registry.InstanceProvider) (registry.ProviderID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.reg.RegisterInstanceProvider(p)
	if _, ok := s.bindings[p]; ok {
		return id, nil
	}

	state, subMeshes, _ := p.GetState()
	mesh, ok := s.reg.Mesh(state.Mesh)
	if !ok {
		return id, fmt.Errorf("scene %q: provider's mesh handle is not registered", s.name)
	}

	binding := &providerBinding{
		mesh:         state.Mesh,
		meshRow:      s.meshIndex[state.Mesh],
		lodCount:     state.LodCount,
		subMeshCount: mesh.SubMeshCount,
		binBase:      s.nextBin,
		drawArgsBase: s.nextDrawArgsSlot,
	}

	reserveBins := 2 * binding.lodCount
	reserveSlots := 2 * binding.lodCount * binding.subMeshCount
	if s.nextBin+reserveBins > maxBins {
		s.reg.DeregisterInstanceProvider(p)
		return id, fmt.Errorf("scene %q: provider needs bins [%d,%d), exceeding the %d-bin limit: %w", s.name, s.nextBin, s.nextBin+reserveBins, maxBins, rendererr.ErrCapacityExceeded)
	}

	s.nextBin += reserveBins
	s.nextDrawArgsSlot += reserveSlots
	s.bindings[p] = binding

	s.resources.EnsureBinCapacity(s.nextBin)
	s.resources.EnsureInstanceTypeCapacity(s.nextBin)
	s.resources.EnsureDrawArgCapacity(s.nextDrawArgsSlot)

	// set_draw_args.wgsl indexes instance_type_data by bin (count_index), not
	// by provider: every LOD bin — camera-pass bins [binBase, binBase+lodCount)
	// and shadow-pass bins [binBase+lodCount, binBase+2*lodCount) — gets its
	// own draw-call-count/draw-args-base pair so the bin's prefix-summed
	// instance_start can fan out across that LOD's submeshes. The shadow pass
	// draws the same per-LOD submesh geometry as the camera pass, just from a
	// separate bin/slot range so the two passes' draw counts never collide.
	shadowBinBase := binding.binBase + binding.lodCount
	shadowDrawArgsBase := binding.drawArgsBase + binding.lodCount*binding.subMeshCount
	for lod := uint32(0); lod < binding.lodCount; lod++ {
		cameraArgsBase := binding.drawArgsBase + lod*binding.subMeshCount
		typeData := resourcemanager.PackInstanceTypeData(binding.subMeshCount, cameraArgsBase)
		s.resources.StageInstanceTypeData(&s.writePool, binding.binBase+lod, typeData)

		shadowArgsBase := shadowDrawArgsBase + lod*binding.subMeshCount
		shadowTypeData := resourcemanager.PackInstanceTypeData(binding.subMeshCount, shadowArgsBase)
		s.resources.StageInstanceTypeData(&s.writePool, shadowBinBase+lod, shadowTypeData)
	}

	camSlots := binding.lodCount * binding.subMeshCount
	for k, sm := range subMeshes {
		if uint32(k) >= camSlots {
			break
		}
		args := resourcemanager.GPUDrawArgs{
			IndexCount: sm.IndexCount,
			IndexStart: sm.IndexStart,
			BaseVertex: sm.BaseVertex,
		}
		s.resources.StageDrawArgs(&s.writePool, binding.drawArgsBase+uint32(k), args)
		s.resources.StageDrawArgs(&s.writePool, shadowDrawArgsBase+uint32(k), args)
	}
	return id, nil
}

func (s *scene) DeregisterProvider(p registry.InstanceProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg.DeregisterInstanceProvider(p)
	delete(s.bindings, p)
}

// orderedProviders returns the scene's registered providers sorted by their
// stable ProviderID, so the instanceBase prefix sum below lands at the same
// per-provider offsets run to run for an unchanged provider set — Registry's
// own Providers() order is unspecified.
func (s *scene) orderedProviders() []registry.InstanceProvider {
	providers := s.reg.Providers()
	sort.Slice(providers, func(i, j int) bool {
		idI, _ := s.reg.ProviderID(providers[i])
		idJ, _ := s.reg.ProviderID(providers[j])
		return idI.Index() < idJ.Index()
	})
	return providers
}

func (s *scene) PrepareCompute(deltaTime float32) error {
	s.mu.Lock()
	if s.r == nil {
		s.mu.Unlock()
		return fmt.Errorf("scene %q: PrepareCompute called with no renderer attached", s.name)
	}
	if s.cam == nil {
		s.mu.Unlock()
		return fmt.Errorf("scene %q: PrepareCompute called with no camera attached", s.name)
	}

	providers := s.orderedProviders()

	var instanceTotal uint32
	for _, p := range providers {
		binding, ok := s.bindings[p]
		if !ok {
			continue
		}
		_, _, instances := p.GetState()
		binding.instanceBase = instanceTotal
		binding.instanceCount = uint32(len(instances))
		instanceTotal += binding.instanceCount
	}
	s.resources.EnsureInstanceCapacity(instanceTotal)

	// One sort key per instance per pass: camera-pass keys occupy
	// [0, instanceTotal), shadow-pass keys (when enabled) occupy
	// [instanceTotal, 2*instanceTotal) within the same Sort/Compact/
	// SetDrawArgs dispatch — see cull.wgsl's shadow-bin emission.
	passCount := uint32(1)
	if s.config.ShadowsEnabled {
		passCount = 2
	}
	s.resources.SetPassCount(passCount)
	keyCount := instanceTotal * passCount
	s.resources.EnsureSortScratchCapacityForGroups(radixsort.NumThreadGroups(keyCount))

	if s.resources.NeedsRebuild() {
		if err := s.resources.Rebuild(s.r, s.bufferShader, s.groupIndex); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("scene %q: resource rebuild failed: %w", s.name, err)
		}
		s.orchestrator.WireSharedBuffers()
	}

	viewProj := mgl32.Mat4(s.cam.ViewProjectionMatrix())
	camX, camY, camZ := s.cam.Controller().Position()
	cameraPos := mgl32.Vec3{camX, camY, camZ}
	lodScale := float32(1.0 / (2.0 * math.Tan(float64(s.cam.Fov())/2.0)))
	lodBias := s.config.LodBias
	cullingDisabled := s.cullingDisabled
	bgp := s.resources.BindGroupProvider()

	type job struct {
		p       registry.InstanceProvider
		binding *providerBinding
	}
	var jobs []job
	for _, p := range providers {
		binding, ok := s.bindings[p]
		if !ok || binding.instanceCount == 0 {
			continue
		}
		jobs = append(jobs, job{p: p, binding: binding})
	}

	animBase := s.animBase
	pool := s.computePool
	s.mu.Unlock()

	perJobWrites := make([][]bind_group_provider.BufferWrite, len(jobs))
	thunks := make([]func(), len(jobs))
	for i, j := range jobs {
		i, j := i, j
		thunks[i] = func() {
			perJobWrites[i] = stageProviderInstances(bgp, j.p, j.binding, animBase)
		}
	}
	frame.StageParallel(pool, thunks)

	s.mu.Lock()
	pending := s.writePool
	s.writePool = nil
	s.mu.Unlock()
	for _, w := range perJobWrites {
		pending = append(pending, w...)
	}

	if len(pending) > 0 {
		s.r.WriteBuffers(pending)
	}

	for _, p := range providers {
		p.ClearDirtyFlags()
	}

	globals := cull.GPUGlobalData{
		ViewProj:       [16]float32(viewProj),
		CameraPosition: [3]float32{cameraPos[0], cameraPos[1], cameraPos[2]},
		LodScale:       lodScale,
		LodBias:        lodBias,
		ShadowDistance: s.config.ShadowDistance,
		InstanceCount:  instanceTotal,
	}
	if s.config.ShadowsEnabled {
		globals.ShadowsEnabled = 1
	}
	if cullingDisabled {
		globals.CullingDisabled = 1
	}

	return s.orchestrator.RunCompute(s.r, globals, instanceTotal, keyCount)
}

// stageProviderInstances computes one provider's GPUInstanceData uploads:
// smallest-three transform compression plus the indices the culling kernel
// needs to do its own frustum test, LOD selection, and shadow-bin emission
// (spec §4.3 steps 3-6) — this function no longer runs any of that math
// itself. LodIndexIntoType carries the mesh's LodData row so the kernel can
// look up screen-height thresholds and the shadow_lod_indices table; bounds
// come from the AnimationData entry the kernel already addresses via
// AnimationBaseIndex/AnimationIndex.
func stageProviderInstances(bgp bind_group_provider.BindGroupProvider, p registry.InstanceProvider, binding *providerBinding, animBase map[registry.AnimationSetHandle]uint32) []bind_group_provider.BufferWrite {
	_, _, instances := p.GetState()

	writes := make([]bind_group_provider.BufferWrite, 0, len(instances))
	for i, inst := range instances {
		idx := binding.instanceBase + uint32(i)

		pos := mgl32.Vec3{inst.Position[0], inst.Position[1], inst.Position[2]}
		rot := mgl32.Quat{W: inst.Rotation[0], V: mgl32.Vec3{inst.Rotation[1], inst.Rotation[2], inst.Rotation[3]}}
		transform := compress.CompressTransform(pos, rot, inst.Scale)

		data := resourcemanager.GPUInstanceData{
			Position:           transform.Position,
			RotationPacked:     transform.RotationPacked,
			Scale:              transform.Scale,
			LodIndexIntoType:   binding.meshRow,
			CountBaseIndex:     binding.binBase,
			AnimationBaseIndex: animBase[inst.AnimationSet],
			AnimationIndex:     inst.AnimationIndex,
			AnimationTime:      inst.AnimationTime,
		}

		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: bgp,
			Binding:  resourcemanager.BindingInstanceData,
			Offset:   uint64(idx) * uint64(data.Size()),
			Data:     data.Marshal(),
		})
	}
	return writes
}

func maxu32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func (s *scene) SetPipelineKeyFunc(f func(mesh registry.MeshHandle, material registry.MaterialHandle) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelineKeyFor = f
}

func (s *scene) DrawCalls() error {
	s.mu.RLock()
	if s.r == nil {
		s.mu.RUnlock()
		return fmt.Errorf("scene %q: DrawCalls called with no renderer attached", s.name)
	}
	if s.pipelineKeyFor == nil {
		s.mu.RUnlock()
		return fmt.Errorf("scene %q: DrawCalls called with no pipeline key function set", s.name)
	}
	r := s.r
	reg := s.reg
	pipelineKeyFor := s.pipelineKeyFor
	bindings := make(map[registry.InstanceProvider]*providerBinding, len(s.bindings))
	for p, b := range s.bindings {
		bindings[p] = b
	}
	orchestrator := s.orchestrator
	s.mu.RUnlock()

	var slots []frame.DrawSlot
	for p, binding := range bindings {
		state, subMeshes, _ := p.GetState()
		mesh, ok := reg.Mesh(binding.mesh)
		if !ok {
			continue
		}
		meshProvider, _ := mesh.GPUMesh.(bind_group_provider.BindGroupProvider)

		callCount := binding.drawCallCount()
		for k := range subMeshes {
			if uint32(k) >= callCount {
				break
			}
			materialIdx := uint32(k) % maxu32(binding.subMeshCount, 1)
			var material registry.MaterialHandle
			if int(materialIdx) < len(state.Materials) {
				material = state.Materials[materialIdx]
			}
			slots = append(slots, frame.DrawSlot{
				PipelineKey:  pipelineKeyFor(binding.mesh, material),
				MeshProvider: meshProvider,
				DrawArgsSlot: binding.drawArgsBase + uint32(k),
			})
		}
	}

	return orchestrator.Submit(r, slots)
}
