// Package registry holds a project's floors and their windows.
//
// The Registry owns identity (UUIDs by default), ordering and the floor
// numbering invariant: after every mutation floors are numbered 1..N in
// insertion order and at least one floor exists. Windows are stored only in
// fully-derived form: AddWindow and UpdateWindow run tolerance.Evaluate before
// the record replaces any previous state, and SetWarningMultiplier re-derives
// every stored window.
//
// Floors returns deep copies, so aggregation and export work on a consistent
// snapshot while the registry keeps accepting writes. All exported methods are
// safe for concurrent use.
package registry
