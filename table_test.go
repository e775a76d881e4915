package neurogc

import (
	"sync"
	"testing"
)

func TestTableAddAndGet(t *testing.T) {
	tbl := NewTable()
	header := NewOverhead(4, 1, true, nil, nil)
	h := tbl.AddPointer(header, []byte{1, 2, 3, 4})

	got, ok := tbl.Get(h).([]byte)
	if !ok {
		t.Fatal("expected []byte payload")
	}
	if len(got) != 4 || got[0] != 1 {
		t.Fatalf("unexpected payload %v", got)
	}
	if tbl.GetHeader(h) != header {
		t.Fatal("GetHeader should return the same header pointer")
	}
}

func TestTableHandlesAreDistinctAcrossAdds(t *testing.T) {
	tbl := NewTable()
	header := NewOverhead(1, 1, true, nil, nil)
	seen := make(map[Handle[any]]struct{})
	for i := 0; i < 200; i++ {
		h := tbl.AddPointer(header, []byte{byte(i)})
		if _, dup := seen[h]; dup {
			t.Fatalf("handle %v issued twice", h)
		}
		seen[h] = struct{}{}
	}
}

func TestTableRemovePointerInvalidatesHandle(t *testing.T) {
	tbl := NewTable()
	header := NewOverhead(1, 1, true, nil, nil)
	h := tbl.AddPointer(header, []byte{9})

	if !tbl.RemovePointer(h) {
		t.Fatal("expected first removal to succeed")
	}
	if tbl.RemovePointer(h) {
		t.Fatal("expected second removal of the same handle to fail")
	}
	if tbl.Get(h) != nil {
		t.Fatal("expected a removed handle to resolve to nil")
	}
	if tbl.GetHeader(h) != nil {
		t.Fatal("expected a removed handle's header to resolve to nil")
	}
}

func TestTableReusedSlotDisambiguatesStaleHandle(t *testing.T) {
	tbl := NewTable()
	header := NewOverhead(1, 1, true, nil, nil)

	first := tbl.AddPointer(header, []byte{1})
	tbl.RemovePointer(first)
	second := tbl.AddPointer(header, []byte{2})

	if first.TableIndex != second.TableIndex {
		t.Skip("gap reuse did not land on the same index this run")
	}
	if first.RowUid == second.RowUid {
		t.Fatal("reused slot must issue a distinct row uid")
	}
	if tbl.Get(first) != nil {
		t.Fatal("stale handle into a reused slot must not resolve")
	}
	got, ok := tbl.Get(second).([]byte)
	if !ok || got[0] != 2 {
		t.Fatal("fresh handle into the reused slot should resolve to the new payload")
	}
}

func TestTableReplacePointer(t *testing.T) {
	tbl := NewTable()
	header := NewOverhead(1, 1, true, nil, nil)
	h := tbl.AddPointer(header, []byte{1})

	newHeader := NewOverhead(2, 1, true, nil, nil)
	if !tbl.ReplacePointer(h, newHeader, []byte{5, 6}) {
		t.Fatal("expected replace to succeed on a live handle")
	}
	got, _ := tbl.Get(h).([]byte)
	if len(got) != 2 || got[0] != 5 {
		t.Fatalf("unexpected payload after replace: %v", got)
	}
	if tbl.GetHeader(h) != newHeader {
		t.Fatal("expected replaced header to be visible")
	}

	tbl.RemovePointer(h)
	if tbl.ReplacePointer(h, newHeader, []byte{7}) {
		t.Fatal("expected replace on a removed handle to fail")
	}
}

func TestTableGrowsAcrossPageBoundary(t *testing.T) {
	tbl := NewTable()
	header := NewOverhead(1, 1, true, nil, nil)
	var last Handle[any]
	for i := 0; i < pageSize+5; i++ {
		last = tbl.AddPointer(header, []byte{byte(i)})
	}
	if tbl.Get(last) == nil {
		t.Fatal("expected the record just past the first page to resolve")
	}
}

func TestTableCollectAndAll(t *testing.T) {
	tbl := NewTable()
	header := NewOverhead(1, 1, true, nil, nil)
	const n = 10
	handles := make([]Handle[any], n)
	for i := range handles {
		handles[i] = tbl.AddPointer(header, []byte{byte(i)})
	}
	tbl.RemovePointer(handles[3])

	collected := tbl.Collect()
	if len(collected) != n-1 {
		t.Fatalf("expected %d live handles, got %d", n-1, len(collected))
	}

	count := 0
	tbl.All(func(Handle[any]) bool {
		count++
		return true
	})
	if count != n-1 {
		t.Fatalf("All iterated %d times, want %d", count, n-1)
	}

	if got := tbl.EstimateLiveCount(); got != n-1 {
		t.Fatalf("EstimateLiveCount = %d, want %d", got, n-1)
	}
}

func TestTableAllEarlyStop(t *testing.T) {
	tbl := NewTable()
	header := NewOverhead(1, 1, true, nil, nil)
	for i := 0; i < 5; i++ {
		tbl.AddPointer(header, []byte{byte(i)})
	}
	seen := 0
	tbl.All(func(Handle[any]) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Fatalf("expected iteration to stop after the first yield, saw %d", seen)
	}
}

func TestTableFindGaps(t *testing.T) {
	tbl := NewTable()
	header := NewOverhead(1, 1, true, nil, nil)
	handles := make([]Handle[any], 5)
	for i := range handles {
		handles[i] = tbl.AddPointer(header, []byte{byte(i)})
	}
	for _, h := range handles[1:4] {
		tbl.RemovePointer(h)
	}
	tbl.FindGaps(1)

	tbl.gapsMu.Lock()
	n := len(tbl.gaps)
	tbl.gapsMu.Unlock()
	if n == 0 {
		t.Fatal("expected FindGaps to discover at least one gap run")
	}
}

func TestTableConcurrentAddRemove(t *testing.T) {
	tbl := NewTable()
	header := NewOverhead(1, 1, true, nil, nil)

	const workers = 64
	var wg sync.WaitGroup
	handlesCh := make(chan Handle[any], workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := tbl.AddPointer(header, []byte{byte(i)})
			handlesCh <- h
		}(i)
	}
	wg.Wait()
	close(handlesCh)

	var toRemove []Handle[any]
	for h := range handlesCh {
		toRemove = append(toRemove, h)
	}

	var wg2 sync.WaitGroup
	for _, h := range toRemove {
		wg2.Add(1)
		go func(h Handle[any]) {
			defer wg2.Done()
			tbl.RemovePointer(h)
		}(h)
	}
	wg2.Wait()

	if got := tbl.EstimateLiveCount(); got != 0 {
		t.Fatalf("expected all records removed, got %d live", got)
	}
}
