package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage-render/crowdgpu/internal/rendererr"
)

func TestRegisterMeshDedupesByKey(t *testing.T) {
	r := NewRegistry()
	entry := MeshEntry{SubMeshCount: 2, Lods: LodData{LodCount: 2, ScreenHeights: [5]float32{0.5, 0.1}}}

	h1, err := r.RegisterMesh("sword", entry)
	require.NoError(t, err)
	h2, err := r.RegisterMesh("sword", entry)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, r.MeshCount())
}

func TestDeregisterMeshFreesAtZeroRefCount(t *testing.T) {
	r := NewRegistry()
	entry := MeshEntry{SubMeshCount: 1, Lods: LodData{LodCount: 1}}

	h, err := r.RegisterMesh("rock", entry)
	require.NoError(t, err)
	_, err = r.RegisterMesh("rock", entry)
	require.NoError(t, err)

	assert.False(t, r.DeregisterMesh(h), "still referenced once more")
	assert.True(t, r.DeregisterMesh(h), "last reference released")
	assert.Equal(t, 0, r.MeshCount())

	_, ok := r.Mesh(h)
	assert.False(t, ok, "stale handle must not resolve after release")
}

func TestRegisterMeshRejectsOversizedLodCount(t *testing.T) {
	r := NewRegistry()
	_, err := r.RegisterMesh("bad", MeshEntry{Lods: LodData{LodCount: 6}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rendererr.ErrCapacityExceeded))
}

func TestRegisterMeshRejectsNonTriangleListTopology(t *testing.T) {
	r := NewRegistry()
	_, err := r.RegisterMesh("bad", MeshEntry{Lods: LodData{LodCount: 1}, Topology: TopologyOther})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rendererr.ErrMalformedBakeArtifact))
}

func TestRegisterMeshRejectsNon16BitIndexFormat(t *testing.T) {
	r := NewRegistry()
	_, err := r.RegisterMesh("bad", MeshEntry{Lods: LodData{LodCount: 1}, IndexFormat: IndexFormatUint32})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rendererr.ErrMalformedBakeArtifact))
}

func TestRegisterAnimationSetRejectsNonPositiveLength(t *testing.T) {
	r := NewRegistry()
	_, err := r.RegisterAnimationSet("bad", AnimationSetEntry{
		Animations: []AnimationEntry{{RegionMin: [2]uint32{0, 0}, RegionMax: [2]uint32{1, 1}, LengthSeconds: 0}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rendererr.ErrMalformedBakeArtifact))
}

func TestRegisterAnimationSetRejectsInvertedRegion(t *testing.T) {
	r := NewRegistry()
	_, err := r.RegisterAnimationSet("bad", AnimationSetEntry{
		Animations: []AnimationEntry{{RegionMin: [2]uint32{4, 4}, RegionMax: [2]uint32{4, 4}, LengthSeconds: 1}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rendererr.ErrMalformedBakeArtifact))
}

func TestRegisterAnimationSetRejectsRegionOutsideTexture(t *testing.T) {
	r := NewRegistry()
	_, err := r.RegisterAnimationSet("bad", AnimationSetEntry{
		TextureWidth:  8,
		TextureHeight: 8,
		Animations:    []AnimationEntry{{RegionMin: [2]uint32{0, 0}, RegionMax: [2]uint32{16, 4}, LengthSeconds: 1}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rendererr.ErrMalformedBakeArtifact))
}

func TestHandleGenerationRejectsStaleReuse(t *testing.T) {
	r := NewRegistry()
	entryA := MeshEntry{Lods: LodData{LodCount: 1}}
	entryB := MeshEntry{Lods: LodData{LodCount: 1}}

	hA, err := r.RegisterMesh("a", entryA)
	require.NoError(t, err)
	require.True(t, r.DeregisterMesh(hA))

	hB, err := r.RegisterMesh("b", entryB)
	require.NoError(t, err)

	_, ok := r.Mesh(hA)
	assert.False(t, ok, "handle from a freed slot must not resolve even if the slot was reused")
	_, ok = r.Mesh(hB)
	assert.True(t, ok)
}

type fakeProvider struct{ id int }

func (f *fakeProvider) DirtyFlags() DirtyFlags                                { return 0 }
func (f *fakeProvider) GetState() (RenderState, []SubMesh, []Instance)        { return RenderState{}, nil, nil }
func (f *fakeProvider) ClearDirtyFlags()                                      {}

func TestRegisterInstanceProviderIsIdempotent(t *testing.T) {
	r := NewRegistry()
	p := &fakeProvider{}

	id1 := r.RegisterInstanceProvider(p)
	id2 := r.RegisterInstanceProvider(p)

	assert.Equal(t, id1, id2)
	assert.Len(t, r.Providers(), 1)

	r.DeregisterInstanceProvider(p)
	assert.Len(t, r.Providers(), 0)

	// Deregistering an unknown provider is a no-op.
	r.DeregisterInstanceProvider(&fakeProvider{})
}
