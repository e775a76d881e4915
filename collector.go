package neurogc

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sync/errgroup"
)

// ScannerFunc is a registered reachability scanner: given mutable
// access to the current suspected-garbage set, it removes every
// handle it can prove reachable under its own type discipline.
type ScannerFunc func(suspected map[Handle[any]]struct{})

// markedItem is one allocation the scan phase has proven unreachable,
// captured before its table record is torn down so sweep can still
// find its header and payload.
type markedItem struct {
	handle  Handle[any]
	header  *Overhead
	payload any
}

// Collector owns the indirection table, the two segment arenas, the
// root set, the marked-for-sweep buffer, and the scanner multicast. A
// single background goroutine drives scan → sweep → compact on a
// timer; any number of mutator goroutines allocate and resolve
// concurrently with it.
type Collector struct {
	cfg Config

	table *Table
	roots *Roots

	trivialHead    atomic.Pointer[Segment]
	nonTrivialHead atomic.Pointer[Segment]

	scannersMu deadlock.Mutex
	scanners   []ScannerFunc

	markedMu deadlock.Mutex
	marked   []markedItem

	group  *errgroup.Group
	cancel context.CancelFunc
}

var singleton atomic.Pointer[Collector]

// activeCollector returns the process singleton, or nil if Init has
// not run (or Destroy already has).
func activeCollector() *Collector {
	return singleton.Load()
}

// Instance is the public accessor named by the library surface.
func Instance() *Collector {
	return activeCollector()
}

// Init creates the singleton collector: its indirection table, initial
// arenas, roots, and background thread, and registers the default
// object scanner. Calling Init twice returns an error without
// disturbing the existing collector.
func Init(cfg Config) error {
	if !singleton.CompareAndSwap(nil, &Collector{}) {
		return NewError(KindInvalidState, "collector already initialized")
	}

	configureLockDiagnostics(cfg)

	c := singleton.Load()
	c.cfg = cfg
	c.table = NewTable()
	c.roots = NewRoots()
	c.trivialHead.Store(newSegment(cfg.InitialSegmentSize))
	c.nonTrivialHead.Store(newSegment(cfg.InitialSegmentSize))
	c.RegisterMemoryScanner(c.scanObjects)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	group, gctx := errgroup.WithContext(ctx)
	c.group = group
	group.Go(func() error {
		return c.threadMain(gctx)
	})

	log.Infof("collector initialized, scan interval %s", cfg.ScanInterval)
	return nil
}

// Destroy stops the background thread, finalizes every live
// non-trivial allocation by invoking its destroy callback, and drops
// the singleton. Calling Destroy when no collector is active returns
// an error.
func Destroy() error {
	c := singleton.Load()
	if c == nil {
		return NewError(KindInvalidState, "collector not initialized")
	}

	c.cancel()
	_ = c.group.Wait()

	for _, h := range c.table.Collect() {
		header := c.table.GetHeader(h)
		payload := c.table.Get(h)
		if header != nil && !header.IsTrivial() && header.DestroyDelegate() != nil {
			invokeDestroy(header, payload)
		}
	}

	singleton.Store(nil)
	log.Info("collector destroyed")
	return nil
}

func invokeDestroy(header *Overhead, payload any) {
	cb := header.DestroyDelegate()
	if cb == nil {
		return
	}
	if b, ok := payload.([]byte); ok {
		cb(b)
		return
	}
	cb(nil)
}

// threadMain is the background collector loop: every ScanInterval, run
// one scan; if it found garbage, sweep then compact.
func (c *Collector) threadMain(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.runCycle()
		}
	}
}

// runCycle executes one scan → sweep → compact pass. Exposed
// separately from threadMain so tests can drive cycles deterministically
// instead of waiting on the ticker.
func (c *Collector) runCycle() {
	if c.scan() {
		collectorLog.Debug("scan found garbage, running sweep and compact")
		c.sweep()
		c.compact()
	}
}

// RunCycle runs one scan/sweep/compact pass on demand, outside the
// background thread's own timer. Intended for callers — hosts doing
// explicit GC requests, or a harness driving deterministic cycles —
// that need a cycle to happen now rather than on the next tick.
func (c *Collector) RunCycle() {
	c.runCycle()
}

// RegisterMemoryScanner appends fn to the scanner multicast.
func (c *Collector) RegisterMemoryScanner(fn ScannerFunc) {
	c.scannersMu.Lock()
	c.scanners = append(c.scanners, fn)
	c.scannersMu.Unlock()
}

// Root registers h as a root.
func (c *Collector) Root(h Handle[any]) { c.roots.Root(h) }

// Unroot removes h from the root set.
func (c *Collector) Unroot(h Handle[any]) { c.roots.Unroot(h) }

// Resolve delegates to the indirection table.
func (c *Collector) Resolve(h Handle[any]) any { return c.table.Get(h) }

// allocateHeaderOnly bump-allocates space for a header's payload and
// records it for later compaction, without yet registering it in the
// indirection table. Returns the claimed segment record (so the
// caller can attach a handle to it once one exists) and the claimed
// byte span.
func (c *Collector) allocateHeaderOnly(trivial bool, elementSize, count uint32, copyCb CopyDelegate, destroyCb DestroyDelegate) (*Overhead, *segRecord, []byte) {
	header := NewOverhead(elementSize, count, trivial, copyCb, destroyCb)
	head := &c.nonTrivialHead
	if trivial {
		head = &c.trivialHead
	}
	rec, payload := allocateInner(head, header, int(elementSize)*int(count))
	return header, rec, payload
}

// AllocateTrivial bump-allocates count elements of elementSize bytes
// in the trivial arena and registers the resulting header in the
// indirection table.
func (c *Collector) AllocateTrivial(elementSize, count uint32) Handle[any] {
	header, rec, payload := c.allocateHeaderOnly(true, elementSize, count, nil, nil)
	h := c.table.AddPointer(header, payload)
	rec.handle = h
	return h
}

// AllocateNonTrivial is AllocateTrivial's non-trivial counterpart,
// storing the relocation and finalization callbacks on the header.
func (c *Collector) AllocateNonTrivial(elementSize, count uint32, copyCb CopyDelegate, destroyCb DestroyDelegate) Handle[any] {
	header, rec, payload := c.allocateHeaderOnly(false, elementSize, count, copyCb, destroyCb)
	h := c.table.AddPointer(header, payload)
	rec.handle = h
	return h
}

// Reallocate replaces h's backing storage with a freshly allocated
// region of the requested shape in the same arena as the original,
// optionally copying the overlapping prefix of the old payload into
// the new one. The handle itself is unchanged; only the table record
// it resolves to is updated.
func (c *Collector) Reallocate(h Handle[any], elementSize, count uint32, autoCopy bool) error {
	oldHeader := c.table.GetHeader(h)
	if oldHeader == nil {
		return NewError(KindNullPointer, "reallocate of unresolved handle")
	}
	oldPayload, _ := c.table.Get(h).([]byte)

	newHeader, rec, newPayload := c.allocateHeaderOnly(oldHeader.IsTrivial(), elementSize, count, oldHeader.CopyDelegate(), oldHeader.DestroyDelegate())
	rec.handle = h

	if autoCopy && oldPayload != nil {
		n := len(oldPayload)
		if len(newPayload) < n {
			n = len(newPayload)
		}
		if oldHeader.IsTrivial() {
			copy(newPayload, oldPayload[:n])
		} else if cb := oldHeader.CopyDelegate(); cb != nil {
			cb(newPayload[:n], oldPayload[:n])
		}
	}

	if !c.table.ReplacePointer(h, newHeader, newPayload) {
		return NewError(KindInvalidState, "reallocate target handle vanished")
	}

	// The old region is now unreachable through the table (h resolves to
	// newHeader/newPayload), but its segRecord is still sitting in the old
	// segment carrying the same handle. Mark it Swept so compact drops it
	// outright instead of relocating it and re-pointing h at stale bytes.
	oldHeader.SetState(Swept)
	return nil
}
