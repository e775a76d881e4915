package neurogc

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"github.com/zeebo/xxh3"
)

const pageSize = 1000

// record is one indirection-table slot: a pointer to the current
// header for some allocation plus the salted uid that disambiguates
// this occupancy of the slot from any that came before or after it.
// uid == 0 marks the slot empty.
type record struct {
	header  *Overhead
	payload any
	uid     uint64
}

// gapRange is a half-open range of reclaimed record indices available
// for reuse, tracked lazily rather than eagerly as each slot empties.
type gapRange struct {
	start atomic.Uint64
	end   uint64
}

// Table is the page-based, many-readers-one-writer indirection table
// mapping opaque handles to the current address of their payload.
// Growing the page array is exclusive; everything else proceeds under
// shared access, since pages themselves are never moved once
// allocated.
type Table struct {
	growLock *RevSem

	pages     []*[pageSize]record
	pageMu    deadlock.RWMutex // guards the pages slice header itself
	nextIndex atomic.Uint64

	gapsMu   deadlock.Mutex
	gaps     []*gapRange
	gapsLock *RevSem

	salt atomic.Uint64
}

// NewTable returns an empty indirection table.
func NewTable() *Table {
	t := &Table{growLock: NewRevSem(), gapsLock: NewRevSem()}
	seed := uuid.New()
	var s uint64
	for _, b := range seed[:8] {
		s = s<<8 | uint64(b)
	}
	t.salt.Store(s)
	return t
}

// Handle is the value type mutators carry around: an indirection-table
// index plus the generation-like uid that must still match for the
// handle to resolve to anything.
type Handle[T any] struct {
	TableIndex uint64
	RowUid     uint64
}

// Zero reports whether h is the zero Handle. Index 0 is a legitimate
// first allocation, so this only checks RowUid, matching the liveness
// check the rest of the table uses (uid == 0 means empty).
func (h Handle[T]) Zero() bool {
	return h.RowUid == 0
}

func combineOrdered(a, b uint64) uint64 {
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(a >> (8 * i))
		buf[8+i] = byte(b >> (8 * i))
	}
	return xxh3.Hash(buf[:])
}

func (t *Table) pageFor(idx uint64) *[pageSize]record {
	t.pageMu.RLock()
	defer t.pageMu.RUnlock()
	p := idx / pageSize
	if p >= uint64(len(t.pages)) {
		return nil
	}
	return t.pages[p]
}

// ensurePage grows the page slice, under the writer-priority lock, so
// that index idx has a backing page. Double-checked: the caller's
// pageFor may be retried after this returns.
func (t *Table) ensurePage(idx uint64) {
	need := idx/pageSize + 1

	t.growLock.Lock()
	defer t.growLock.Unlock()

	t.pageMu.Lock()
	defer t.pageMu.Unlock()
	for uint64(len(t.pages)) < need {
		t.pages = append(t.pages, &[pageSize]record{})
	}
	tableLog.Debugf("grew to %d pages", len(t.pages))
}

// claimIndex implements the two-path claim: first try to reuse a gap
// left by a removed record, falling back to the monotonic counter.
func (t *Table) claimIndex() uint64 {
	if t.gapsLock.TryLockShared() {
		defer t.gapsLock.UnlockShared()

		t.gapsMu.Lock()
		for _, g := range t.gaps {
			for {
				start := g.start.Load()
				if start >= g.end {
					break
				}
				if g.start.CompareAndSwap(start, start+1) {
					t.gapsMu.Unlock()
					return start
				}
			}
		}
		t.gapsMu.Unlock()
	}
	return t.nextIndex.Add(1) - 1
}

// AddPointer registers a freshly allocated header, returning the
// handle future resolves will use to find it.
func (t *Table) AddPointer(header *Overhead, payload any) Handle[any] {
	idx := t.claimIndex()

	if page := t.pageFor(idx); page == nil {
		t.ensurePage(idx)
	}

	var uid uint64
	for uid == 0 {
		uid = combineOrdered(headerHash(header), t.salt.Add(1)-1)
	}

	page := t.pageFor(idx)
	slot := &page[idx%pageSize]
	slot.header = header
	slot.payload = payload
	slot.uid = uid

	return Handle[any]{TableIndex: idx, RowUid: uid}
}

// headerHash derives a stable-enough hash seed from the header's
// identity for uid combining: it hashes the header's address as
// formatted by %p, without unsafe pointer arithmetic.
func headerHash(header *Overhead) uint64 {
	return xxh3.HashString(fmt.Sprintf("%p", header))
}

// ReplacePointer updates the record's header/payload if h's uid still
// matches the slot's occupant, returning false on a stale or empty
// handle.
func (t *Table) ReplacePointer(h Handle[any], newHeader *Overhead, newPayload any) bool {
	page := t.pageFor(h.TableIndex)
	if page == nil {
		return false
	}
	slot := &page[h.TableIndex%pageSize]
	if slot.uid != h.RowUid {
		return false
	}
	slot.header = newHeader
	slot.payload = newPayload
	return true
}

// RemovePointer empties the slot if h's uid still matches, recording
// the index as a reusable gap. Returns false on a stale or already
// empty handle.
func (t *Table) RemovePointer(h Handle[any]) bool {
	page := t.pageFor(h.TableIndex)
	if page == nil {
		return false
	}
	slot := &page[h.TableIndex%pageSize]
	if slot.uid != h.RowUid {
		return false
	}
	slot.header = nil
	slot.payload = nil
	slot.uid = 0

	if t.gapsLock.TryLockShared() {
		g := &gapRange{end: h.TableIndex + 1}
		g.start.Store(h.TableIndex)
		t.gapsMu.Lock()
		t.gaps = append(t.gaps, g)
		t.gapsMu.Unlock()
		t.gapsLock.UnlockShared()
	}
	return true
}

// Get resolves h to its current payload, or nil if h is stale or
// points at an emptied slot. The concrete type is whatever AddPointer
// was called with: a []byte for raw trivial/non-trivial allocations,
// or a *Object for generic objects.
func (t *Table) Get(h Handle[any]) any {
	page := t.pageFor(h.TableIndex)
	if page == nil {
		return nil
	}
	slot := &page[h.TableIndex%pageSize]
	if slot.uid != h.RowUid || slot.uid == 0 {
		return nil
	}
	return slot.payload
}

// GetHeader resolves h to its current header, or nil if stale.
func (t *Table) GetHeader(h Handle[any]) *Overhead {
	page := t.pageFor(h.TableIndex)
	if page == nil {
		return nil
	}
	slot := &page[h.TableIndex%pageSize]
	if slot.uid != h.RowUid || slot.uid == 0 {
		return nil
	}
	return slot.header
}

// Collect returns a handle for every currently occupied record.
func (t *Table) Collect() []Handle[any] {
	t.pageMu.RLock()
	defer t.pageMu.RUnlock()

	var out []Handle[any]
	for pi, page := range t.pages {
		for ri, slot := range page {
			if slot.uid != 0 {
				out = append(out, Handle[any]{TableIndex: uint64(pi)*pageSize + uint64(ri), RowUid: slot.uid})
			}
		}
	}
	return out
}

// All is a range-over-func iterator over every currently occupied
// record's handle, for callers that would rather not build the
// intermediate slice Collect returns.
func (t *Table) All(yield func(Handle[any]) bool) {
	t.pageMu.RLock()
	defer t.pageMu.RUnlock()

	for pi, page := range t.pages {
		for ri, slot := range page {
			if slot.uid == 0 {
				continue
			}
			h := Handle[any]{TableIndex: uint64(pi)*pageSize + uint64(ri), RowUid: slot.uid}
			if !yield(h) {
				return
			}
		}
	}
}

// EstimateLiveCount is an O(1) estimate: claimed index count minus the
// lazily-tracked gap total. Gaps are only as fresh as the last
// RemovePointer/FindGaps call, so this can overcount slots emptied
// since then; it is meant for the collector's own decision of whether
// a cycle is worth running, not an exact census.
func (t *Table) EstimateLiveCount() int {
	claimed := int(t.nextIndex.Load())

	t.gapsMu.Lock()
	gapTotal := 0
	for _, g := range t.gaps {
		if remaining := int(g.end - g.start.Load()); remaining > 0 {
			gapTotal += remaining
		}
	}
	t.gapsMu.Unlock()

	n := claimed - gapTotal
	if n < 0 {
		n = 0
	}
	return n
}

// FindGaps rebuilds the gap-ranges set by walking every page looking
// for empty slots. Intended to run on the collector thread only,
// between scan cycles, since it is not safe against concurrent
// RemovePointer calls mutating the set it is rebuilding.
func (t *Table) FindGaps(minSize int) {
	t.gapsLock.Lock()
	defer t.gapsLock.Unlock()

	t.pageMu.RLock()
	defer t.pageMu.RUnlock()

	var fresh []*gapRange
	var runStart uint64
	inRun := false

	flush := func(end uint64) {
		if inRun && int(end-runStart) >= minSize {
			g := &gapRange{end: end}
			g.start.Store(runStart)
			fresh = append(fresh, g)
		}
		inRun = false
	}

	// Slots at or past nextIndex were never claimed; they stay the
	// counter's to hand out and are not recorded as gaps.
	limit := t.nextIndex.Load()
	if total := uint64(len(t.pages)) * pageSize; limit > total {
		limit = total
	}

	for pi, page := range t.pages {
		for ri, slot := range page {
			idx := uint64(pi)*pageSize + uint64(ri)
			if idx >= limit {
				break
			}
			if slot.uid == 0 {
				if !inRun {
					inRun = true
					runStart = idx
				}
			} else {
				flush(idx)
			}
		}
	}
	flush(limit)

	t.gapsMu.Lock()
	t.gaps = fresh
	t.gapsMu.Unlock()
}
