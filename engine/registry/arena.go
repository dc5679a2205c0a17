package registry

// arenaSlot holds one entry in a free-list arena: either a live value with a
// reference count, or a free slot linking to the next free index.
type arenaSlot[T any] struct {
	generation uint32
	refCount   int
	value      T
	live       bool
	nextFree   uint32 // valid only when !live
}

// arena is a free-list-backed, generation-counted table. Lookups against a
// stale handle (reused slot, old generation) fail rather than aliasing the
// new occupant.
type arena[T any] struct {
	slots     []arenaSlot[T]
	freeHead  uint32
	freeCount uint32
}

const arenaNoFree = ^uint32(0)

func newArena[T any]() *arena[T] {
	return &arena[T]{freeHead: arenaNoFree}
}

// insert reference-counts: if equal already exists (caller-supplied matcher),
// callers should check before calling insert. insert always allocates a new
// slot and returns a handle with refCount 1.
func (a *arena[T]) insert(v T) Handle {
	if a.freeHead != arenaNoFree {
		idx := a.freeHead
		slot := &a.slots[idx]
		a.freeHead = slot.nextFree
		a.freeCount--
		slot.value = v
		slot.live = true
		slot.refCount = 1
		return newHandle(idx, slot.generation)
	}

	idx := uint32(len(a.slots))
	a.slots = append(a.slots, arenaSlot[T]{generation: 1, value: v, live: true, refCount: 1})
	return newHandle(idx, 1)
}

func (a *arena[T]) get(h Handle) (*T, bool) {
	idx := h.index()
	if int(idx) >= len(a.slots) {
		return nil, false
	}
	slot := &a.slots[idx]
	if !slot.live || slot.generation != h.generation() {
		return nil, false
	}
	return &slot.value, true
}

// retain increments the reference count of the slot behind h.
func (a *arena[T]) retain(h Handle) bool {
	idx := h.index()
	if int(idx) >= len(a.slots) {
		return false
	}
	slot := &a.slots[idx]
	if !slot.live || slot.generation != h.generation() {
		return false
	}
	slot.refCount++
	return true
}

// release decrements the reference count behind h and frees the slot (bumping
// its generation so old handles become stale) when it reaches zero. Returns
// whether the resource was actually released.
func (a *arena[T]) release(h Handle) (released bool, ok bool) {
	idx := h.index()
	if int(idx) >= len(a.slots) {
		return false, false
	}
	slot := &a.slots[idx]
	if !slot.live || slot.generation != h.generation() {
		return false, false
	}
	slot.refCount--
	if slot.refCount > 0 {
		return false, true
	}

	var zero T
	slot.value = zero
	slot.live = false
	slot.generation++
	slot.nextFree = a.freeHead
	a.freeHead = idx
	a.freeCount++
	return true, true
}

func (a *arena[T]) len() int {
	return len(a.slots) - int(a.freeCount)
}
