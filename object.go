package neurogc

import (
	"math/bits"

	"github.com/sasha-s/go-deadlock"
)

// propSlot is one entry of an Object's inline property array: an
// identifier, claimed under the object's write lock, and the value
// stored under it. A slot is free iff its id equals EmptyID.
type propSlot struct {
	id    uint32 // Identifier, or EmptyID while the slot is free
	value Value
}

// Object is a classless record: its own self-handle plus an
// open-addressed property map sized at creation time. Property
// lookup probes eight rotated hash positions before falling back to a
// linear scan, matching the two-stage probe this object model is built
// around; a generic hash map is deliberately not substituted.
type Object struct {
	mu   deadlock.RWMutex
	self Handle[Object]

	slots  []propSlot
	length int // count of occupied slots, guarded by mu

	onMoveCbs    []func(Handle[Object])
	onDestroyCbs []func()
}

func rotatedProbe(id Identifier, capacity uint32, i uint32) uint32 {
	amount := (capacity * i) % 32
	return bits.RotateLeft32(uint32(id), int(amount)) % capacity
}

// Capacity returns the size of the property array.
func (o *Object) Capacity() uint32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return uint32(len(o.slots))
}

// Length returns the number of properties currently set.
func (o *Object) Length() uint32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return uint32(o.length)
}

// Self returns the object's own managed handle.
func (o *Object) Self() Handle[Object] {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.self
}

// getConstProp implements the read-only two-stage probe: eight rotated
// hash positions, then a linear fallback from id mod capacity wrapping
// once. Returns ok=false without allocating if id is not present.
func (o *Object) getConstProp(id Identifier) (Value, bool) {
	cap := uint32(len(o.slots))
	if cap == 0 {
		return Undefined, false
	}

	for i := uint32(0); i < 8; i++ {
		pos := rotatedProbe(id, cap, i)
		if Identifier(o.slots[pos].id) == id {
			return o.slots[pos].value, true
		}
	}

	start := uint32(id) % cap
	for i := uint32(0); i < cap; i++ {
		pos := (start + i) % cap
		if Identifier(o.slots[pos].id) == id {
			return o.slots[pos].value, true
		}
	}
	return Undefined, false
}

// GetProperty returns the value stored under id, or Undefined if not
// present. Never allocates; it takes only the read lock, so it waits
// while a writer holds the object.
func (o *Object) GetProperty(id Identifier) Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, _ := o.getConstProp(id)
	return v
}

// claimSlot finds (or claims) the slot id belongs in under the write
// lock, growing the object's backing storage via recreateObject if the
// map is full. It must be called with o.mu held for writing; if growth
// is needed it returns the replacement object, which the caller must
// use for the remainder of the operation (the original o is stale).
func (o *Object) claimSlot(id Identifier) (*Object, *propSlot) {
	cap := uint32(len(o.slots))

	for i := uint32(0); i < 8; i++ {
		pos := rotatedProbe(id, cap, i)
		s := &o.slots[pos]
		if Identifier(s.id) == id {
			return o, s
		}
		if s.id == uint32(EmptyID) {
			s.id = uint32(id)
			o.length++
			return o, s
		}
	}

	start := uint32(id) % cap
	for i := uint32(0); i < cap; i++ {
		pos := (start + i) % cap
		s := &o.slots[pos]
		if Identifier(s.id) == id {
			return o, s
		}
		if s.id == uint32(EmptyID) {
			s.id = uint32(id)
			o.length++
			return o, s
		}
	}

	grown := recreateObjectLocked(o, cap+1, 0)
	return grown.claimSlot(id)
}

// SetProperty stores v under id, growing the property map if
// necessary. Growth reallocates the object's backing storage and
// updates the collector's indirection record in place, so callers
// should re-resolve the object through its Handle afterward rather
// than keep using an *Object captured before the call.
func (o *Object) SetProperty(id Identifier, v Value) {
	o.mu.Lock()
	target, slot := o.claimSlot(id)
	slot.value = v
	if target != o {
		target.mu.Unlock()
	} else {
		o.mu.Unlock()
	}
}

// fireOnMove fires every registered move callback with the object's
// (possibly just-updated) self handle.
func (o *Object) fireOnMove() {
	for _, cb := range o.onMoveCbs {
		cb(o.self)
	}
}

// fireOnDestroy fires every registered destroy callback. Called through
// the object's bookkeeping destroy callback, from sweep or from
// Destroy; the property slots are left as they are.
func (o *Object) fireOnDestroy() {
	for _, cb := range o.onDestroyCbs {
		cb()
	}
}

// RegisterOnMove appends a move callback.
func (o *Object) RegisterOnMove(cb func(Handle[Object])) {
	o.mu.Lock()
	o.onMoveCbs = append(o.onMoveCbs, cb)
	o.mu.Unlock()
}

// RegisterOnDestroy appends a destroy callback.
func (o *Object) RegisterOnDestroy(cb func()) {
	o.mu.Lock()
	o.onDestroyCbs = append(o.onDestroyCbs, cb)
	o.mu.Unlock()
}

// Properties returns the object's occupied (id, value) pairs in slot
// order, skipping empty slots — the moral equivalent of begin()/end()
// iteration.
func (o *Object) Properties() []struct {
	ID    Identifier
	Value Value
} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]struct {
		ID    Identifier
		Value Value
	}, 0, o.length)
	for _, s := range o.slots {
		if Identifier(s.id) != EmptyID {
			out = append(out, struct {
				ID    Identifier
				Value Value
			}{Identifier(s.id), s.value})
		}
	}
	return out
}

// recreateObjectLocked allocates a new Object with the requested
// capacity, rehashes every live property from old into it, fires
// onMove, and reallocates old's handle to point at the new object via
// the active collector. old must be locked for writing by the caller;
// the returned object is locked for writing on return and the caller
// is responsible for unlocking it (and only it — old's lock is
// consumed by this call as part of the handle swap).
//
// The requested capacity is clamped up to old's current live property
// count: shrinking below what's already stored would either drop
// properties or force an immediate second growth mid-rehash, neither
// of which a caller asking for a specific capacity should get silently.
func recreateObjectLocked(old *Object, propCount uint32, slack uint32) *Object {
	capacity := propCount + slack
	if capacity < uint32(old.length) {
		capacity = uint32(old.length)
	}
	if capacity == uint32(len(old.slots)) {
		return old
	}

	fresh := &Object{slots: make([]propSlot, capacity)}
	for i := range fresh.slots {
		fresh.slots[i].id = uint32(EmptyID)
	}
	fresh.mu.Lock()

	for _, s := range old.slots {
		if Identifier(s.id) == EmptyID {
			continue
		}
		_, slot := fresh.claimSlot(Identifier(s.id))
		slot.value = s.value
	}

	c := activeCollector()
	if c != nil {
		fresh.self = old.self
		c.reallocateObject(old.self, fresh)
	}

	fresh.onMoveCbs = old.onMoveCbs
	fresh.onDestroyCbs = old.onDestroyCbs
	fresh.fireOnMove()

	old.mu.Unlock()
	return fresh
}

// RecreateObject resolves h and, if its current capacity differs from
// propsCount+slack, replaces its backing storage with one of the new
// capacity, preserving every live property.
func RecreateObject(h Handle[Object], propsCount uint32, slack uint32) Handle[Object] {
	c := activeCollector()
	if c == nil {
		return h
	}
	obj := c.resolveObject(h)
	if obj == nil {
		return h
	}
	obj.mu.Lock()
	grown := recreateObjectLocked(obj, propsCount, slack)
	grown.mu.Unlock()
	return h
}

// CreateObject allocates a fresh object with capacity propCount+slack
// through the active collector, registering it in the indirection
// table and returning its handle.
func CreateObject(propCount uint32, slack uint32) Handle[Object] {
	c := activeCollector()
	if c == nil {
		panic("neurogc: no active collector")
	}
	return c.createObject(propCount, slack)
}
