// Package tolerance derives geometric quantities from raw window measurements
// and classifies each window's conformance.
//
// derive.go provides the pure Derive(Input) function: three width samples
// (top/middle/bottom) and three height samples (left/middle/right) are reduced
// to means and ranges, and the theoretical diagonal (from nominal dimensions)
// is compared against the actual diagonal (from mean dimensions).
//
// classify.go provides Classify, which maps the derived values and a
// per-window limit T to a status:
//
//	pass     every tolerance and the diagonal diff ≤ T, both ranges ≤ 2T
//	warning  the same five checks hold against k·T and 2·k·T
//	fail     otherwise
//
// k is the process-wide warning multiplier (DefaultWarningMultiplier = 1.5).
// Equality counts as conforming at every threshold.
//
// validate.go holds the input sanity rules applied before a window is stored.
// Derive and Classify themselves never reject input.
package tolerance
