// Package pkgtable holds the in-memory table model shared by the merge engine,
// the HTTP service and the CLI, together with its CSV codec.
//
// A Table is immutable once built. Rows are positional and aligned with the
// table headers; each cell records whether a value was present in the source,
// so an absent cell and an empty string stay distinguishable.
package pkgtable
