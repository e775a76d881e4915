package neurogc

// Resolvable reports whether h currently has a resolvable, non-null
// target in the active collector's table. Used for Value's truthiness
// rule and as a cheap liveness probe.
func (h Handle[T]) Resolvable() bool {
	c := activeCollector()
	if c == nil {
		return false
	}
	return c.table.Get(Handle[any]{TableIndex: h.TableIndex, RowUid: h.RowUid}) != nil
}

// Get resolves h to the payload bytes starting at elementIndex, or nil
// if the handle is stale, removed, points past the live collector, or
// does not back a raw byte allocation (a handle to a generic object
// resolves through Collector.Resolve to a *Object). elementIndex is measured in elements of the
// handle's element size, matching the header's elementSize × count
// accounting.
func (h Handle[T]) Get(elementIndex int) []byte {
	c := activeCollector()
	if c == nil {
		return nil
	}
	raw := Handle[any]{TableIndex: h.TableIndex, RowUid: h.RowUid}
	payload, ok := c.table.Get(raw).([]byte)
	if !ok {
		return nil
	}
	header := c.table.GetHeader(raw)
	if header == nil {
		return nil
	}
	sz := int(header.ElementSize())
	start := elementIndex * sz
	if start < 0 || start+sz > len(payload) {
		return nil
	}
	return payload[start : start+sz]
}

// AsAny erases h's element type, for storage inside a Value or a
// property slot.
func AsAny[T any](h Handle[T]) Handle[any] {
	return Handle[any]{TableIndex: h.TableIndex, RowUid: h.RowUid}
}

// As re-attaches an element type to a previously erased handle. The
// caller is responsible for the type actually matching; nothing here
// checks it.
func As[T any](h Handle[any]) Handle[T] {
	return Handle[T]{TableIndex: h.TableIndex, RowUid: h.RowUid}
}
