package neurogc

import "github.com/sasha-s/go-deadlock"

// Roots is an insertion-ordered set of handles held by the mutator
// outside the managed object graph. Duplicates are allowed; the scan
// phase tolerates seeing the same root more than once.
type Roots struct {
	mu   deadlock.Mutex
	list []Handle[any]
}

// NewRoots returns an empty root set.
func NewRoots() *Roots {
	return &Roots{}
}

// Root appends h to the root set.
func (r *Roots) Root(h Handle[any]) {
	r.mu.Lock()
	r.list = append(r.list, h)
	r.mu.Unlock()
}

// Unroot removes the first occurrence of h from the root set, if
// present.
func (r *Roots) Unroot(h Handle[any]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.list {
		if v == h {
			r.list = append(r.list[:i], r.list[i+1:]...)
			return
		}
	}
}

// Snapshot returns a copy of the current root list, safe to walk
// without holding the roots lock.
func (r *Roots) Snapshot() []Handle[any] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handle[any], len(r.list))
	copy(out, r.list)
	return out
}

// Len reports the number of roots currently registered (counting
// duplicates).
func (r *Roots) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list)
}
