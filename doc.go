// Package neurogc implements a concurrent, compacting, tracing garbage
// collector and the classless generic object model built on top of it.
//
// This package contains:
//   - Identifier interning (identifier.go)
//   - Allocation headers and bump-allocated segment arenas (overhead.go, segment.go)
//   - The page-based indirection table and its opaque handles (table.go, handle.go)
//   - The tagged-union value representation (value.go)
//   - Generic open-addressed objects (object.go, objects_collector.go)
//   - The collector core and its scan/sweep/compact pipeline (collector.go, scan.go, sweep.go, compact.go)
package neurogc
