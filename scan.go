package neurogc

// scan runs one reachability pass: every live handle starts out
// suspected, then each registered scanner removes what it can prove
// reachable. Whatever remains is unreachable; it is torn out of the
// indirection table immediately (so resolves start failing right
// away) and queued for sweep. Returns whether any garbage was found.
func (c *Collector) scan() bool {
	suspected := make(map[Handle[any]]struct{})
	c.table.All(func(h Handle[any]) bool {
		suspected[h] = struct{}{}
		return true
	})

	c.scannersMu.Lock()
	scanners := make([]ScannerFunc, len(c.scanners))
	copy(scanners, c.scanners)
	c.scannersMu.Unlock()

	for _, s := range scanners {
		s(suspected)
		if len(suspected) == 0 {
			break
		}
	}

	if len(suspected) == 0 {
		return false
	}

	c.markedMu.Lock()
	defer c.markedMu.Unlock()
	for h := range suspected {
		header := c.table.GetHeader(h)
		payload := c.table.Get(h)
		c.table.RemovePointer(h)
		c.marked = append(c.marked, markedItem{handle: h, header: header, payload: payload})
	}
	return true
}
