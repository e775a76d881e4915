package neurogc

import (
	"runtime"
	"sync/atomic"
)

const minSegmentSize = 2 << 20 // 2 MiB

// segRecord pairs a header with the bounds of its payload inside the
// owning segment's buffer. This stands in for "header immediately
// followed by payload bytes" inline layout without resorting to
// unsafe pointer arithmetic: the header is a real Go object, and the
// record just remembers where its bytes live.
type segRecord struct {
	overhead *Overhead
	offset   int
	length   int
	handle   Handle[any]
}

// Segment is one contiguous bump-allocated arena chunk. Segments of a
// given triviality class form a singly-linked list whose head the
// collector holds; allocation walks the list looking for room,
// appending a fresh segment via CAS when none has any.
type Segment struct {
	buf  []byte
	size int

	spin       atomic.Bool
	compacting atomic.Bool
	dormant    bool

	cursor  int
	entries []*segRecord

	next atomic.Pointer[Segment]
}

func newSegment(minBytes int) *Segment {
	size := minBytes
	if size < minSegmentSize {
		size = minSegmentSize
	}
	return &Segment{buf: make([]byte, size), size: size}
}

func (s *Segment) lock() {
	for !s.spin.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (s *Segment) unlock() {
	s.spin.Store(false)
}

// SetCompacting marks or unmarks this segment as excluded from new
// allocations while the compact phase relocates its contents.
func (s *Segment) SetCompacting(v bool) {
	s.compacting.Store(v)
}

// Compacting reports whether the segment currently excludes allocation.
func (s *Segment) Compacting() bool {
	return s.compacting.Load()
}

// Reset clears a segment's bump cursor and allocation records,
// reclaiming it for reuse once compaction has relocated everything it
// held. Callers must hold the segment in its compacting state first.
func (s *Segment) Reset() {
	s.lock()
	defer s.unlock()
	s.cursor = 0
	s.entries = s.entries[:0]
}

// Entries returns a snapshot of the segment's allocation records in
// bump order, for the compact phase to classify into live/dead runs.
func (s *Segment) Entries() []*segRecord {
	s.lock()
	defer s.unlock()
	out := make([]*segRecord, len(s.entries))
	copy(out, s.entries)
	return out
}

// Payload returns the byte slice backing a record.
func (s *Segment) Payload(r *segRecord) []byte {
	return s.buf[r.offset : r.offset+r.length]
}

// Next returns the next segment in the list, or nil at the tail.
func (s *Segment) Next() *Segment {
	return s.next.Load()
}

// allocateInner walks the list rooted at head looking for a segment
// with room for bytes of payload belonging to overhead; on success it
// claims a span of that segment's buffer and records it for later
// compaction. Finding no room anywhere, it allocates and appends a
// fresh segment sized to fit, then resumes the walk, which is
// guaranteed to find room on the newly appended segment. While the
// chain's tail is mid-compaction, appendSegment refuses to link onto
// it, so this spins until compactArena swaps in the rebuilt head
// rather than ever append somewhere that's about to be discarded.
func allocateInner(head *atomic.Pointer[Segment], overhead *Overhead, bytes int) (*segRecord, []byte) {
	var fresh *Segment
	for {
		for seg := head.Load(); seg != nil; seg = seg.next.Load() {
			if rec, payload, ok := seg.tryClaim(overhead, bytes); ok {
				return rec, payload
			}
		}
		if fresh == nil {
			fresh = newSegment(bytes)
		}
		if appendSegment(head, fresh) {
			fresh = nil
			continue
		}
		runtime.Gosched()
	}
}

// appendSegment CAS-links a freshly allocated segment onto the tail of
// the list rooted at head, so concurrent allocators racing to grow the
// list never drop one another's segment. Refuses to link onto a chain
// whose tail is mid-compaction: compactArena is about to replace head
// wholesale with a rebuilt chain, and anything appended behind its back
// in the meantime would be silently orphaned the moment that swap
// happens. The caller retries once the swap lands.
func appendSegment(head *atomic.Pointer[Segment], fresh *Segment) bool {
	for {
		tail := head.Load()
		if tail == nil {
			if head.CompareAndSwap(nil, fresh) {
				return true
			}
			continue
		}
		last := tail
		for next := last.next.Load(); next != nil; next = last.next.Load() {
			last = next
		}
		if last.Compacting() {
			return false
		}
		if last.next.CompareAndSwap(nil, fresh) {
			return true
		}
	}
}

// tryClaim attempts to bump-allocate bytes from this segment for
// overhead. It fails if the segment is mid-compaction or has
// insufficient room, in which case the caller moves on to the next
// segment in the list.
func (s *Segment) tryClaim(overhead *Overhead, bytes int) (*segRecord, []byte, bool) {
	s.lock()
	defer s.unlock()

	if s.compacting.Load() {
		return nil, nil, false
	}
	if s.cursor+bytes > s.size {
		return nil, nil, false
	}

	offset := s.cursor
	s.cursor += bytes
	rec := &segRecord{overhead: overhead, offset: offset, length: bytes}
	s.entries = append(s.entries, rec)
	return rec, s.buf[offset : offset+bytes], true
}
