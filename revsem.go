package neurogc

import "sync"

// RevSem is a writer-priority many-readers-one-writer lock: the
// "reverse" of a semaphore, in that while readers hold the lock, a
// writer that calls Lock blocks new readers immediately and waits for
// the current readers to drain, instead of waiting behind them.
//
// Go's sync.RWMutex does not guarantee writer priority (a steady stream
// of readers can starve a writer indefinitely), so it cannot stand in
// here.
type RevSem struct {
	mu   sync.Mutex // guards numShared and exclusiveRequested
	cond *sync.Cond

	exclusiveMu sync.Mutex // serializes writers waiting to become exclusive

	numShared          int
	exclusiveRequested bool
}

// NewRevSem returns a ready-to-use reverse semaphore.
func NewRevSem() *RevSem {
	rs := &RevSem{}
	rs.cond = sync.NewCond(&rs.mu)
	return rs
}

// LockShared blocks while a writer is queued or active, then registers
// this goroutine as a shared user. Supports recursive/concurrent shared
// acquisition from multiple goroutines; every LockShared needs a
// matching UnlockShared.
func (rs *RevSem) LockShared() {
	rs.mu.Lock()
	for rs.exclusiveRequested {
		rs.cond.Wait()
	}
	rs.numShared++
	rs.mu.Unlock()
}

// UnlockShared releases one shared acquisition.
func (rs *RevSem) UnlockShared() {
	rs.mu.Lock()
	rs.numShared--
	rs.cond.Broadcast()
	rs.mu.Unlock()
}

// TryLockShared attempts LockShared without blocking. Returns false if
// a writer is currently queued or active.
func (rs *RevSem) TryLockShared() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.exclusiveRequested {
		return false
	}
	rs.numShared++
	return true
}

// HasSharedUsers reports whether one or more shared users currently
// hold the lock. Debugging/testing only; prefer TryLockShared to test
// for safe acquisition, since this is racy by construction.
func (rs *RevSem) HasSharedUsers() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.numShared > 0
}

// Lock acquires exclusive access: it first serializes against any other
// writer via exclusiveMu (so writers queue up, never interleave), then
// sets exclusiveRequested so no new shared acquisitions can start, then
// waits for existing shared users to drain.
func (rs *RevSem) Lock() {
	rs.exclusiveMu.Lock()

	rs.mu.Lock()
	rs.exclusiveRequested = true
	for rs.numShared != 0 {
		rs.cond.Wait()
	}
	rs.mu.Unlock()
}

// Unlock releases exclusive access, allowing both new readers and the
// next queued writer to proceed.
func (rs *RevSem) Unlock() {
	rs.mu.Lock()
	rs.exclusiveRequested = false
	rs.cond.Broadcast()
	rs.mu.Unlock()

	rs.exclusiveMu.Unlock()
}

// TryLock attempts Lock without blocking. Returns false if another
// writer already holds or is queued for exclusive access, or if shared
// users are still active.
func (rs *RevSem) TryLock() bool {
	if !rs.exclusiveMu.TryLock() {
		return false
	}

	rs.mu.Lock()
	if rs.numShared > 0 {
		rs.mu.Unlock()
		rs.exclusiveMu.Unlock()
		return false
	}
	rs.exclusiveRequested = true
	rs.mu.Unlock()
	return true
}

// HasExclusiveUsers reports whether a writer currently holds exclusive
// access: one has requested it and no shared users remain. A writer
// still waiting for shared users to drain is not counted.
// Debugging/testing only.
func (rs *RevSem) HasExclusiveUsers() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.exclusiveRequested && rs.numShared == 0
}
