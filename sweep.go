package neurogc

// sweep drains the marked-for-sweep buffer the most recent scan filled,
// invoking each non-trivial allocation's destroy callback exactly once
// and marking its header Swept. Sweep never frees segment bytes; that
// is compact's job.
func (c *Collector) sweep() {
	c.markedMu.Lock()
	items := c.marked
	c.marked = nil
	c.markedMu.Unlock()

	for _, item := range items {
		if item.header == nil {
			continue
		}
		if !item.header.IsTrivial() {
			invokeDestroy(item.header, item.payload)
		}
		item.header.SetState(Swept)
	}
}
