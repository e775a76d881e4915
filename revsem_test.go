package neurogc

import (
	"sync"
	"testing"
	"time"
)

func TestRevSemSharedConcurrent(t *testing.T) {
	rs := NewRevSem()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rs.LockShared()
			defer rs.UnlockShared()
			time.Sleep(time.Millisecond)
		}()
	}
	wg.Wait()
	if rs.HasSharedUsers() {
		t.Fatal("expected no shared users after all released")
	}
}

func TestRevSemWriterPriority(t *testing.T) {
	rs := NewRevSem()

	rs.LockShared() // Thread A

	var events []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}

	writerAcquired := make(chan struct{})
	go func() {
		rs.Lock() // Thread B
		record("writer-acquired")
		close(writerAcquired)
		time.Sleep(30 * time.Millisecond)
		rs.Unlock()
	}()

	time.Sleep(10 * time.Millisecond) // let B queue up as exclusiveRequested

	readerAcquired := make(chan struct{})
	go func() {
		rs.LockShared() // Thread C, must wait for B
		record("reader-acquired")
		close(readerAcquired)
		rs.UnlockShared()
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-readerAcquired:
		t.Fatal("reader acquired shared lock before writer got priority")
	default:
	}

	rs.UnlockShared() // Thread A releases, letting writer through

	<-writerAcquired
	<-readerAcquired

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[0] != "writer-acquired" || events[1] != "reader-acquired" {
		t.Fatalf("expected writer to acquire before reader, got %v", events)
	}
}

func TestRevSemTryLockShared(t *testing.T) {
	rs := NewRevSem()
	rs.Lock()
	if rs.TryLockShared() {
		t.Fatal("TryLockShared should fail while writer holds exclusive access")
	}
	rs.Unlock()
	if !rs.TryLockShared() {
		t.Fatal("TryLockShared should succeed once writer released")
	}
	rs.UnlockShared()
}

func TestRevSemTryLock(t *testing.T) {
	rs := NewRevSem()
	rs.LockShared()
	if rs.TryLock() {
		t.Fatal("TryLock should fail while a shared user holds the lock")
	}
	rs.UnlockShared()
	if !rs.TryLock() {
		t.Fatal("TryLock should succeed once shared users drained")
	}
	rs.Unlock()
}
