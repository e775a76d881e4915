package neurogc

// objectPlaceholderSize is the nominal size of the bookkeeping
// allocation every Object gets in the non-trivial arena. The object's
// real storage is the Go heap value the table's record points at;
// this placeholder exists only so compaction has byte-range
// accounting to walk, the same as every other non-trivial allocation.
const objectPlaceholderSize = 1

// createObject allocates a fresh Object with capacity propCount+slack,
// registers it in the indirection table, and returns its handle.
func (c *Collector) createObject(propCount, slack uint32) Handle[Object] {
	capacity := propCount + slack
	obj := &Object{slots: make([]propSlot, capacity)}
	for i := range obj.slots {
		obj.slots[i].id = uint32(EmptyID)
	}

	header, rec, _ := c.allocateHeaderOnly(false, objectPlaceholderSize, 1, objectCopyDelegate, objectDestroyDelegate(obj))
	h := c.table.AddPointer(header, obj)
	rec.handle = h

	obj.self = As[Object](h)
	return obj.self
}

// objectCopyDelegate is the no-op copy callback used by every
// object's bookkeeping allocation: the placeholder carries no data, so
// relocating it has nothing to copy.
func objectCopyDelegate(dst, src []byte) {}

// objectDestroyDelegate binds obj's onDestroy multicast to the
// bookkeeping allocation's destroy callback, invoked once by sweep.
func objectDestroyDelegate(obj *Object) DestroyDelegate {
	return func([]byte) {
		obj.fireOnDestroy()
	}
}

// resolveObject resolves h to its current *Object, or nil if h is
// stale or does not reference an object.
func (c *Collector) resolveObject(h Handle[Object]) *Object {
	payload := c.table.Get(AsAny(h))
	obj, _ := payload.(*Object)
	return obj
}

// reallocateObject updates h's table record to point at fresh in
// place of whatever object previously occupied it. Used by
// recreateObjectLocked when a property map outgrows its capacity; h's
// (tableIndex, rowUid) never changes, so every other handle value
// equal to h keeps resolving correctly.
func (c *Collector) reallocateObject(h Handle[Object], fresh *Object) {
	raw := AsAny(h)
	header := c.table.GetHeader(raw)
	c.table.ReplacePointer(raw, header, fresh)
}

// scanObjects is the default registered scanner: it traces the object
// graph from the roots, removing every handle it visits from the
// suspected set.
func (c *Collector) scanObjects(suspected map[Handle[any]]struct{}) {
	roots := c.roots.Snapshot()
	visited := make(map[Handle[any]]struct{}, len(roots))
	queue := make([]Handle[any], 0, len(roots))

	for _, r := range roots {
		delete(suspected, r)
		if _, ok := visited[r]; !ok {
			visited[r] = struct{}{}
			queue = append(queue, r)
		}
	}

	for len(queue) > 0 && len(suspected) > 0 {
		h := queue[0]
		queue = queue[1:]

		obj, _ := c.table.Get(h).(*Object)
		if obj == nil {
			continue
		}
		for _, p := range obj.Properties() {
			if p.Value.Tag() != TagManagedObject {
				continue
			}
			mh := p.Value.ManagedObject()
			delete(suspected, mh)
			if _, ok := visited[mh]; !ok {
				visited[mh] = struct{}{}
				queue = append(queue, mh)
			}
		}
	}
}
