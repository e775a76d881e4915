package neurogc

import "sync/atomic"

// compact defragments both arenas independently. Swept allocations are
// simply dropped; live ones are relocated into a freshly built segment
// chain, and any raw-byte handle that moved gets its table record
// updated via ReplacePointer. Generic objects never move (their real
// storage is the *Object value the table already points at; only
// their bookkeeping placeholder bytes get relocated), so their table
// records are left untouched.
func (c *Collector) compact() {
	c.compactArena(&c.trivialHead, true)
	c.compactArena(&c.nonTrivialHead, false)
	c.table.FindGaps(c.cfg.GapMinRunLength)
}

func (c *Collector) compactArena(head *atomic.Pointer[Segment], trivial bool) {
	var segs []*Segment
	anySwept := false
	for seg := head.Load(); seg != nil; seg = seg.Next() {
		segs = append(segs, seg)
		for _, rec := range seg.Entries() {
			if rec.overhead.State() == Swept {
				anySwept = true
			}
		}
	}
	if !anySwept {
		return
	}

	for _, seg := range segs {
		seg.SetCompacting(true)
	}

	var newHead atomic.Pointer[Segment]
	for _, seg := range segs {
		for _, rec := range seg.Entries() {
			if rec.overhead.State() == Swept {
				continue
			}

			oldPayload := seg.Payload(rec)
			newRec, newPayload := allocateInner(&newHead, rec.overhead, rec.length)
			newRec.handle = rec.handle

			if trivial {
				copy(newPayload, oldPayload)
			} else if cb := rec.overhead.CopyDelegate(); cb != nil {
				cb(newPayload, oldPayload)
			}

			if _, isRawBytes := c.table.Get(rec.handle).([]byte); isRawBytes {
				c.table.ReplacePointer(rec.handle, rec.overhead, newPayload)
			}
		}
	}

	// Safe to replace the chain wholesale: appendSegment refuses to link
	// onto a tail marked Compacting, so nothing can have grown segs since
	// the SetCompacting loop above. A mutator racing allocateInner just
	// spins until this store lands, then resumes against the rebuilt
	// chain.
	head.Store(newHead.Load())
	segmentLog.Debugf("compacted arena: %d segments reclaimed or merged", len(segs))
}
