// Package registry implements the process-wide table of meshes, materials,
// animation sets, and instance providers. It hands out opaque integer handles,
// reference-counts shared resources, and collates per-frame provider state for
// the frame pipeline to consume.
package registry

import "fmt"

// handleIndexBits is the width of the arena-index portion of a handle; the
// remaining bits carry the generation counter used to detect stale handles.
const handleIndexBits = 32

// Handle is an opaque reference to a registered resource. It packs a
// free-list arena index and a generation counter so a stale handle (reused
// slot, old generation) can be detected and rejected instead of silently
// aliasing a different resource. The zero Handle is always invalid.
type Handle uint64

// InvalidHandle is returned by lookups that fail; it is also the zero value.
const InvalidHandle Handle = 0

func newHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<handleIndexBits | uint64(index))
}

func (h Handle) index() uint32 {
	return uint32(h)
}

func (h Handle) generation() uint32 {
	return uint32(h >> handleIndexBits)
}

// Valid reports whether h is non-zero.
func (h Handle) Valid() bool {
	return h != InvalidHandle
}

func (h Handle) String() string {
	return fmt.Sprintf("Handle{index:%d, gen:%d}", h.index(), h.generation())
}

// MeshHandle references a registered mesh.
type MeshHandle Handle

// Valid reports whether the handle is non-zero.
func (h MeshHandle) Valid() bool { return Handle(h).Valid() }

// Index returns the handle's arena-index component, a stable small integer
// unique among currently live mesh handles. Used to key scene-side GPU
// tables (e.g. LodData rows) by mesh without exposing arena internals.
func (h MeshHandle) Index() uint32 { return Handle(h).index() }

// MaterialHandle references a registered material.
type MaterialHandle Handle

// Valid reports whether the handle is non-zero.
func (h MaterialHandle) Valid() bool { return Handle(h).Valid() }

// AnimationSetHandle references a registered animation set.
type AnimationSetHandle Handle

// Valid reports whether the handle is non-zero.
func (h AnimationSetHandle) Valid() bool { return Handle(h).Valid() }

// Index returns the handle's arena-index component, a stable small integer
// unique among currently live animation set handles. Used to key scene-side
// GPU tables (e.g. AnimationData rows) by animation set.
func (h AnimationSetHandle) Index() uint32 { return Handle(h).index() }

// ProviderID identifies a registered instance provider. Providers are
// single-use (no reference counting) and registration is idempotent.
type ProviderID Handle

// Valid reports whether the handle is non-zero.
func (h ProviderID) Valid() bool { return Handle(h).Valid() }

// Index returns the ID's arena-index component, used as a deterministic
// per-frame allocation-ordering key since Registry.Providers' slice order is
// otherwise unspecified.
func (h ProviderID) Index() uint32 { return Handle(h).index() }
