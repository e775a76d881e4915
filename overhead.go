package neurogc

import "sync/atomic"

// GarbageState tracks an allocation's position in the collection
// pipeline.
type GarbageState uint8

const (
	// Live allocations are reachable (or not yet scanned).
	Live GarbageState = iota
	// Marked is part of the state set; no code path in this package
	// assigns it (scan tracks reachability in its suspected set instead).
	Marked
	// Dying is part of the state set; no code path in this package
	// assigns it (scan queues unreachable allocations without changing
	// their state).
	Dying
	// Swept allocations have had their destroy callback invoked and are
	// awaiting segment reclamation at compact time.
	Swept
)

func (s GarbageState) String() string {
	switch s {
	case Live:
		return "Live"
	case Marked:
		return "Marked"
	case Dying:
		return "Dying"
	case Swept:
		return "Swept"
	default:
		return "Unknown"
	}
}

// CopyDelegate relocates a non-trivial allocation's payload bytes from
// src to dst: the whole payload during compaction, the overlapping
// prefix during reallocation.
type CopyDelegate func(dst, src []byte)

// DestroyDelegate finalizes a non-trivial allocation's payload at sweep
// time, before its bytes are reclaimed.
type DestroyDelegate func(payload []byte)

// Overhead is the fixed-layout header prefixing every managed
// allocation, carrying everything the collector needs to relocate or
// reclaim the payload without consulting anything else.
//
// Overhead values are ordinary Go objects, not bytes embedded in a
// segment: segment.go pairs each one with its payload span through a
// segRecord, so no code computes offsets from this struct's size.
type Overhead struct {
	elementSize uint32
	count       uint32
	isTrivial   bool
	state       atomic.Uint32 // GarbageState, accessed concurrently by scan/sweep

	copyDelegate    CopyDelegate
	destroyDelegate DestroyDelegate
}

// NewOverhead constructs a header describing count elements of
// elementSize bytes each, initially Live.
func NewOverhead(elementSize, count uint32, isTrivial bool, copyCb CopyDelegate, destroyCb DestroyDelegate) *Overhead {
	o := &Overhead{
		elementSize:     elementSize,
		count:           count,
		isTrivial:       isTrivial,
		copyDelegate:    copyCb,
		destroyDelegate: destroyCb,
	}
	o.state.Store(uint32(Live))
	return o
}

// ElementSize returns the size in bytes of one element.
func (o *Overhead) ElementSize() uint32 { return o.elementSize }

// Count returns the element count.
func (o *Overhead) Count() uint32 { return o.count }

// PayloadBytes returns the total payload size in bytes.
func (o *Overhead) PayloadBytes() uint32 { return o.elementSize * o.count }

// IsTrivial reports whether this allocation may be memcpy'd and
// destroyed without per-element callbacks.
func (o *Overhead) IsTrivial() bool { return o.isTrivial }

// State returns the current garbage state.
func (o *Overhead) State() GarbageState { return GarbageState(o.state.Load()) }

// SetState updates the garbage state.
func (o *Overhead) SetState(s GarbageState) { o.state.Store(uint32(s)) }

// CompareAndSwapState atomically transitions the state from old to new,
// reporting whether it did. The collector's own phases use SetState.
func (o *Overhead) CompareAndSwapState(old, new GarbageState) bool {
	return o.state.CompareAndSwap(uint32(old), uint32(new))
}

// CopyDelegate returns the registered relocation callback, or nil for
// trivial allocations.
func (o *Overhead) CopyDelegate() CopyDelegate { return o.copyDelegate }

// DestroyDelegate returns the registered finalizer, or nil for trivial
// allocations.
func (o *Overhead) DestroyDelegate() DestroyDelegate { return o.destroyDelegate }
