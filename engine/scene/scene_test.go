package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage-render/crowdgpu/engine/provider"
	"github.com/vantage-render/crowdgpu/engine/registry"
	"github.com/vantage-render/crowdgpu/engine/renderer"
)

func newTestScene(t *testing.T) *scene {
	t.Helper()
	s := NewScene("test", nil, 0).(*scene)
	return s
}

func registerMesh(t *testing.T, s *scene, lodCount, subMeshCount uint32) registry.MeshHandle {
	t.Helper()
	h, err := s.RegisterMesh(t.Name(), registry.MeshEntry{
		SubMeshCount: subMeshCount,
		Lods: registry.LodData{
			LodCount:      lodCount,
			ScreenHeights: [5]float32{1, 0.5, 0.25, 0.1, 0.01},
		},
	})
	require.NoError(t, err)
	return h
}

func TestRegisterProviderReservesBinsAndDrawArgSlots(t *testing.T) {
	s := newTestScene(t)
	mesh := registerMesh(t, s, 2, 3)

	p := provider.NewSliceProvider(registry.RenderState{
		Mesh:          mesh,
		LodCount:      2,
		ScreenHeights: [5]float32{1, 0.5, 0.25, 0.1, 0.01},
	}, []registry.SubMesh{{}, {}, {}})

	_, err := s.RegisterProvider(p)
	require.NoError(t, err)

	binding := s.bindings[p]
	require.NotNil(t, binding)
	assert.Equal(t, uint32(0), binding.binBase)
	assert.Equal(t, uint32(0), binding.drawArgsBase)
	assert.Equal(t, uint32(3), binding.subMeshCount)
	// 2 LODs * 2 (camera+shadow halves) = 4 bins reserved.
	assert.Equal(t, uint32(4), s.nextBin)
	// 4 bins * 3 submeshes = 12 draw-arg slots reserved.
	assert.Equal(t, uint32(12), s.nextDrawArgsSlot)
}

func TestRegisterProviderIsIdempotent(t *testing.T) {
	s := newTestScene(t)
	mesh := registerMesh(t, s, 1, 1)
	p := provider.NewSliceProvider(registry.RenderState{Mesh: mesh, LodCount: 1}, []registry.SubMesh{{}})

	id1, err := s.RegisterProvider(p)
	require.NoError(t, err)
	reservedAfterFirst := s.nextBin

	id2, err := s.RegisterProvider(p)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, reservedAfterFirst, s.nextBin, "re-registering an already-bound provider must not reserve a second range")
}

func TestRegisterProviderUnregisteredMeshErrors(t *testing.T) {
	s := newTestScene(t)
	p := provider.NewSliceProvider(registry.RenderState{Mesh: registry.MeshHandle(999), LodCount: 1}, nil)

	_, err := s.RegisterProvider(p)
	assert.Error(t, err)
}

func TestRegisterProviderExceedsBinCapacity(t *testing.T) {
	s := newTestScene(t)
	mesh := registerMesh(t, s, 5, 1)

	// Each provider reserves 2*5 = 10 bins; maxBins/10 + 1 providers overflows.
	var lastErr error
	for i := 0; i < maxBins/10+2; i++ {
		p := provider.NewSliceProvider(registry.RenderState{Mesh: mesh, LodCount: 5}, []registry.SubMesh{{}})
		_, lastErr = s.RegisterProvider(p)
		if lastErr != nil {
			break
		}
	}
	require.Error(t, lastErr)
}

func TestOrderedProvidersIsStableByProviderID(t *testing.T) {
	s := newTestScene(t)
	mesh := registerMesh(t, s, 1, 1)

	var providers []registry.InstanceProvider
	for i := 0; i < 5; i++ {
		p := provider.NewSliceProvider(registry.RenderState{Mesh: mesh, LodCount: 1}, []registry.SubMesh{{}})
		_, err := s.RegisterProvider(p)
		require.NoError(t, err)
		providers = append(providers, p)
	}

	first := s.orderedProviders()
	second := s.orderedProviders()
	assert.Equal(t, first, second, "ordering must be stable across repeated calls with no registration changes")

	for i := 1; i < len(first); i++ {
		idPrev, _ := s.reg.ProviderID(first[i-1])
		idNext, _ := s.reg.ProviderID(first[i])
		assert.Less(t, idPrev.Index(), idNext.Index())
	}
}

func TestStageProviderInstancesCarriesMeshRowAndBinBaseForTheCullingKernel(t *testing.T) {
	s := newTestScene(t)
	mesh := registerMesh(t, s, 1, 1)
	animSet, err := s.RegisterAnimationSet(t.Name(), registry.AnimationSetEntry{
		Animations: []registry.AnimationEntry{{
			RegionMin:     [2]uint32{0, 0},
			RegionMax:     [2]uint32{1, 1},
			LengthSeconds: 1,
			BoundsExtents: [3]float32{1, 1, 1},
		}},
	})
	require.NoError(t, err)

	p := provider.NewSliceProvider(registry.RenderState{
		Mesh:          mesh,
		LodCount:      1,
		ScreenHeights: [5]float32{0.01},
	}, []registry.SubMesh{{}})
	p.AddInstance(registry.Instance{
		Position:     [3]float32{10, 20, 30},
		Rotation:     [4]float32{1, 0, 0, 0},
		Scale:        1,
		AnimationSet: animSet,
	})

	_, err = s.RegisterProvider(p)
	require.NoError(t, err)
	binding := s.bindings[p]

	writes := stageProviderInstances(s.resources.BindGroupProvider(), p, binding, s.animBase)
	require.Len(t, writes, 1)

	// The culling kernel selects LOD and bin itself every frame; staging's
	// only job is to hand it the row indices to look that data up with.
	assert.Equal(t, binding.meshRow, readUint32(writes[0].Data[20:24]), "LodIndexIntoType must carry the mesh's LodData row")
	assert.Equal(t, binding.binBase, readUint32(writes[0].Data[24:28]), "CountBaseIndex must carry the provider's reserved bin range")
	assert.False(t, math.IsNaN(float64(readFloat32(writes[0].Data[0:4]))), "staging never emits the NaN culling sentinel anymore, the kernel does")
}

func TestStageProviderInstancesUsesPerInstanceAnimationSet(t *testing.T) {
	s := newTestScene(t)
	mesh := registerMesh(t, s, 1, 1)

	validClip := registry.AnimationEntry{RegionMin: [2]uint32{0, 0}, RegionMax: [2]uint32{1, 1}, LengthSeconds: 1}
	animA, err := s.RegisterAnimationSet("A", registry.AnimationSetEntry{Animations: []registry.AnimationEntry{validClip}})
	require.NoError(t, err)
	animB, err := s.RegisterAnimationSet("B", registry.AnimationSetEntry{Animations: []registry.AnimationEntry{validClip, validClip}})
	require.NoError(t, err)

	p := provider.NewSliceProvider(registry.RenderState{Mesh: mesh, LodCount: 1, ScreenHeights: [5]float32{0.01}}, []registry.SubMesh{{}})
	p.AddInstance(registry.Instance{AnimationSet: animA, Rotation: [4]float32{1, 0, 0, 0}, Scale: 1})
	p.AddInstance(registry.Instance{AnimationSet: animB, Rotation: [4]float32{1, 0, 0, 0}, Scale: 1})

	_, err = s.RegisterProvider(p)
	require.NoError(t, err)
	binding := s.bindings[p]

	writes := stageProviderInstances(s.resources.BindGroupProvider(), p, binding, s.animBase)
	require.Len(t, writes, 2)

	assert.Equal(t, s.animBase[animA], readUint32(writes[0].Data[28:32]))
	assert.Equal(t, s.animBase[animB], readUint32(writes[1].Data[28:32]))
	assert.NotEqual(t, s.animBase[animA], s.animBase[animB], "distinct animation sets must stage distinct base rows")
}

// fakeRenderer satisfies renderer.Renderer by embedding the interface with a
// nil value: enough to make DrawCalls' nil-renderer check pass without needing a
// real GPU backend, since the error paths exercised below never invoke a
// method on it.
type fakeRenderer struct {
	renderer.Renderer
}

func TestDrawCallsRequiresRendererAndPipelineKeyFunc(t *testing.T) {
	s := newTestScene(t)
	err := s.DrawCalls()
	assert.Error(t, err, "DrawCalls with no renderer attached must fail")

	s.SetRenderer(fakeRenderer{})
	err = s.DrawCalls()
	assert.Error(t, err, "DrawCalls with no pipeline key function set must fail")
}

func readFloat32(b []byte) float32 {
	bits := readUint32(b)
	return math.Float32frombits(bits)
}

func readUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
