package registry

import (
	"fmt"

	"github.com/vantage-render/crowdgpu/internal/rendererr"
)

// DirtyFlags is a bitset of the regions of a provider's published state that
// changed since the last ClearDirtyFlags call. Each bit selects the
// minimum set of GPU buffers the resource manager must re-upload.
type DirtyFlags uint8

const (
	DirtyInstanceCount DirtyFlags = 1 << iota
	DirtyPerInstanceData
	DirtyMesh
	DirtySubMeshes
	DirtyMaterials
	DirtyLods
	DirtyAnimation
)

// Has reports whether all bits in want are set in f.
func (f DirtyFlags) Has(want DirtyFlags) bool {
	return f&want == want
}

// SubMesh is one drawable range within a mesh's index buffer.
type SubMesh struct {
	IndexStart uint32
	IndexCount uint32
	BaseVertex uint32
}

// Instance is the CPU-resident, per-instance state a provider publishes each
// frame: world transform and animation phase. The renderer compresses
// Rotation into the GPU's smallest-three encoding during the CPU scatter step.
type Instance struct {
	Position      [3]float32
	Rotation      [4]float32 // unit quaternion, W first
	Scale         float32
	AnimationSet  AnimationSetHandle
	AnimationIndex uint32
	AnimationTime float32 // normalized phase in [0, 1)
}

// RenderState is the mesh/material/LOD configuration shared by every
// instance a provider publishes this frame — the "instance type" key.
type RenderState struct {
	Mesh             MeshHandle
	Materials        []MaterialHandle // one per submesh
	AnimationSet     AnimationSetHandle
	LodCount         uint32
	ScreenHeights    [5]float32
	ShadowLodIndices uint32 // packed 3 bits per primary LOD, 15 bits used
	ShadowCasting    bool
}

// InstanceProvider is the capability record an application implements to feed
// instances into the renderer. It replaces provider-interface polymorphism
// with a struct of read-only data views plus a dirty-flag bitset: DirtyFlags
// reports what changed, GetState publishes read-only views the renderer may
// read until ClearDirtyFlags is called, and ClearDirtyFlags is invoked exactly
// once per frame after upload. Providers must not mutate their published
// views between GetState and ClearDirtyFlags.
type InstanceProvider interface {
	DirtyFlags() DirtyFlags
	GetState() (RenderState, []SubMesh, []Instance)
	ClearDirtyFlags()
}

// IndexFormat records the bit width a mesh's baked index buffer was produced
// with. IndexFormatUint16 is the zero value: the vertex-skinning kernel only
// ever reads 16-bit indices, so a MeshEntry built without setting this field
// defaults to the valid case.
type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// Topology records a mesh's baked primitive topology. TopologyTriangleList is
// the zero value: the draw-indirect pipeline only ever assembles triangle
// lists, so a MeshEntry built without setting this field defaults to the
// valid case.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyOther
)

// MeshEntry is the registry's record of a registered mesh: opaque GPU handle
// data, the count of non-LOD submeshes, its LOD table, and the baked index
// format/topology the vertex-skinning and draw-indirect kernels require.
type MeshEntry struct {
	GPUMesh      any
	SubMeshCount uint32
	Lods         LodData
	IndexFormat  IndexFormat
	Topology     Topology
}

// LodData describes a mesh's level-of-detail configuration.
type LodData struct {
	LodCount         uint32
	ScreenHeights    [5]float32
	ShadowLodIndices uint32 // packed 3 bits per primary LOD
}

// MaterialEntry is the registry's record of a registered material.
type MaterialEntry struct {
	GPUMaterial any
}

// AnimationEntry describes a single animation clip within an animation set.
type AnimationEntry struct {
	RegionMin     [2]uint32
	RegionMax     [2]uint32
	LengthSeconds float32
	BoundsCenter  [3]float32
	BoundsExtents [3]float32
}

// AnimationSetEntry is the registry's record of a registered animation set: a
// texture atlas handle, its dimensions (used only to validate that each
// clip's region lies within the atlas), and its animation clip table. A zero
// TextureWidth/TextureHeight skips the atlas-bounds check (dimensions not
// yet known at registration) without disabling the other malformed-clip
// checks.
type AnimationSetEntry struct {
	Texture      any
	TextureWidth  uint32
	TextureHeight uint32
	Animations   []AnimationEntry
}

// Registry is the process-wide table of meshes, materials, animation sets,
// and instance providers. It hands out opaque handles, reference-counts
// shared resources, and coordinates per-frame provider state collection.
type Registry struct {
	meshes    *arena[MeshEntry]
	materials *arena[MaterialEntry]
	animSets  *arena[AnimationSetEntry]

	meshKeys    map[any]MeshHandle
	materialKeys map[any]MaterialHandle
	animSetKeys map[any]AnimationSetHandle

	providers      map[ProviderID]InstanceProvider
	providerLookup map[InstanceProvider]ProviderID
	nextProviderID uint32
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		meshes:         newArena[MeshEntry](),
		materials:      newArena[MaterialEntry](),
		animSets:       newArena[AnimationSetEntry](),
		meshKeys:       make(map[any]MeshHandle),
		materialKeys:   make(map[any]MaterialHandle),
		animSetKeys:    make(map[any]AnimationSetHandle),
		providers:      make(map[ProviderID]InstanceProvider),
		providerLookup: make(map[InstanceProvider]ProviderID),
	}
}

// RegisterMesh registers a mesh under the given dedup key, reference-counting
// it: registering an already-known key returns the existing handle with its
// reference count bumped instead of allocating a new entry.
//
// Parameters:
//   - key: a comparable identity for the underlying mesh resource
//   - entry: the mesh's GPU handle and LOD data
//
// Returns:
//   - MeshHandle: the handle (new or existing)
//   - error: wraps rendererr.ErrCapacityExceeded if the mesh's LOD/submesh
//     counts exceed the fixed limits, or rendererr.ErrMalformedBakeArtifact if
//     the mesh was baked with a non-16-bit index format or a non-triangle-list
//     topology
func (r *Registry) RegisterMesh(key any, entry MeshEntry) (MeshHandle, error) {
	if entry.Lods.LodCount == 0 || entry.Lods.LodCount > 5 {
		return MeshHandle(InvalidHandle), fmt.Errorf("registry: lod_count %d out of range [1,5]: %w", entry.Lods.LodCount, rendererr.ErrCapacityExceeded)
	}
	if entry.SubMeshCount > 5 {
		return MeshHandle(InvalidHandle), fmt.Errorf("registry: submesh_count %d exceeds limit of 5: %w", entry.SubMeshCount, rendererr.ErrCapacityExceeded)
	}
	if entry.IndexFormat != IndexFormatUint16 {
		return MeshHandle(InvalidHandle), fmt.Errorf("registry: mesh was baked with a non-16-bit index format: %w", rendererr.ErrMalformedBakeArtifact)
	}
	if entry.Topology != TopologyTriangleList {
		return MeshHandle(InvalidHandle), fmt.Errorf("registry: mesh was baked with a non-triangle-list topology: %w", rendererr.ErrMalformedBakeArtifact)
	}

	if h, ok := r.meshKeys[key]; ok {
		r.meshes.retain(Handle(h))
		return h, nil
	}

	h := MeshHandle(r.meshes.insert(entry))
	r.meshKeys[key] = h
	return h, nil
}

// DeregisterMesh decrements the mesh's reference count, freeing it at zero.
//
// Returns:
//   - bool: true if the mesh was actually released
func (r *Registry) DeregisterMesh(h MeshHandle) bool {
	released, ok := r.meshes.release(Handle(h))
	if !ok {
		return false
	}
	if released {
		for k, v := range r.meshKeys {
			if v == h {
				delete(r.meshKeys, k)
				break
			}
		}
	}
	return released
}

// Mesh looks up a registered mesh entry by handle.
func (r *Registry) Mesh(h MeshHandle) (MeshEntry, bool) {
	v, ok := r.meshes.get(Handle(h))
	if !ok {
		return MeshEntry{}, false
	}
	return *v, true
}

// RegisterMaterial registers a material under the given dedup key.
func (r *Registry) RegisterMaterial(key any, entry MaterialEntry) (MaterialHandle, error) {
	if h, ok := r.materialKeys[key]; ok {
		r.materials.retain(Handle(h))
		return h, nil
	}
	h := MaterialHandle(r.materials.insert(entry))
	r.materialKeys[key] = h
	return h, nil
}

// DeregisterMaterial decrements the material's reference count, freeing it at
// zero.
//
// Returns:
//   - bool: true if the material was actually released
func (r *Registry) DeregisterMaterial(h MaterialHandle) bool {
	released, ok := r.materials.release(Handle(h))
	if !ok {
		return false
	}
	if released {
		for k, v := range r.materialKeys {
			if v == h {
				delete(r.materialKeys, k)
				break
			}
		}
	}
	return released
}

// Material looks up a registered material entry by handle.
func (r *Registry) Material(h MaterialHandle) (MaterialEntry, bool) {
	v, ok := r.materials.get(Handle(h))
	if !ok {
		return MaterialEntry{}, false
	}
	return *v, true
}

// RegisterAnimationSet registers an animation set under the given dedup key.
//
// Returns:
//   - AnimationSetHandle: the handle (new or existing)
//   - error: wraps rendererr.ErrMalformedBakeArtifact if any clip has a
//     non-positive length or a region that is empty, inverted, or (when the
//     atlas dimensions are known) outside the atlas texture
func (r *Registry) RegisterAnimationSet(key any, entry AnimationSetEntry) (AnimationSetHandle, error) {
	for i, clip := range entry.Animations {
		if clip.LengthSeconds <= 0 {
			return AnimationSetHandle(InvalidHandle), fmt.Errorf("registry: animation %d length_seconds %.3f <= 0: %w", i, clip.LengthSeconds, rendererr.ErrMalformedBakeArtifact)
		}
		if clip.RegionMax[0] <= clip.RegionMin[0] || clip.RegionMax[1] <= clip.RegionMin[1] {
			return AnimationSetHandle(InvalidHandle), fmt.Errorf("registry: animation %d region [%v,%v) is empty or inverted: %w", i, clip.RegionMin, clip.RegionMax, rendererr.ErrMalformedBakeArtifact)
		}
		if entry.TextureWidth > 0 && clip.RegionMax[0] > entry.TextureWidth {
			return AnimationSetHandle(InvalidHandle), fmt.Errorf("registry: animation %d region_max.x %d exceeds texture width %d: %w", i, clip.RegionMax[0], entry.TextureWidth, rendererr.ErrMalformedBakeArtifact)
		}
		if entry.TextureHeight > 0 && clip.RegionMax[1] > entry.TextureHeight {
			return AnimationSetHandle(InvalidHandle), fmt.Errorf("registry: animation %d region_max.y %d exceeds texture height %d: %w", i, clip.RegionMax[1], entry.TextureHeight, rendererr.ErrMalformedBakeArtifact)
		}
	}

	if h, ok := r.animSetKeys[key]; ok {
		r.animSets.retain(Handle(h))
		return h, nil
	}
	h := AnimationSetHandle(r.animSets.insert(entry))
	r.animSetKeys[key] = h
	return h, nil
}

// DeregisterAnimationSet decrements the animation set's reference count,
// freeing it at zero.
//
// Returns:
//   - bool: true if the animation set was actually released
func (r *Registry) DeregisterAnimationSet(h AnimationSetHandle) bool {
	released, ok := r.animSets.release(Handle(h))
	if !ok {
		return false
	}
	if released {
		for k, v := range r.animSetKeys {
			if v == h {
				delete(r.animSetKeys, k)
				break
			}
		}
	}
	return released
}

// AnimationSet looks up a registered animation set entry by handle.
func (r *Registry) AnimationSet(h AnimationSetHandle) (AnimationSetEntry, bool) {
	v, ok := r.animSets.get(Handle(h))
	if !ok {
		return AnimationSetEntry{}, false
	}
	return *v, true
}

// RegisterInstanceProvider registers a provider. Idempotent: registering the
// same provider twice is silently ignored and returns the existing ID.
func (r *Registry) RegisterInstanceProvider(p InstanceProvider) ProviderID {
	if id, ok := r.providerLookup[p]; ok {
		return id
	}
	r.nextProviderID++
	id := ProviderID(newHandle(r.nextProviderID, 1))
	r.providers[id] = p
	r.providerLookup[p] = id
	return id
}

// DeregisterInstanceProvider removes a provider from the registry. Idempotent:
// deregistering an unknown provider is a no-op.
func (r *Registry) DeregisterInstanceProvider(p InstanceProvider) {
	id, ok := r.providerLookup[p]
	if !ok {
		return
	}
	delete(r.providerLookup, p)
	delete(r.providers, id)
}

// Providers returns the currently registered instance providers. The slice
// order is unspecified — spec.md §5 guarantees no ordering contract between
// providers.
func (r *Registry) Providers() []InstanceProvider {
	out := make([]InstanceProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

// ProviderID returns the stable ID a registered provider was assigned at
// RegisterInstanceProvider time. Callers that need a deterministic
// frame-to-frame iteration order over Providers() (which is otherwise
// unspecified) can sort by this ID.
func (r *Registry) ProviderID(p InstanceProvider) (ProviderID, bool) {
	id, ok := r.providerLookup[p]
	return id, ok
}

// MeshCount returns the number of currently live (non-deregistered) meshes.
func (r *Registry) MeshCount() int { return r.meshes.len() }

// MaterialCount returns the number of currently live materials.
func (r *Registry) MaterialCount() int { return r.materials.len() }

// AnimationSetCount returns the number of currently live animation sets.
func (r *Registry) AnimationSetCount() int { return r.animSets.len() }
