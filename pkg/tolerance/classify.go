package tolerance

import "math"

// Status is the conformance state of a window.
type Status string

// Status values returned by Classify.
const (
	StatusPass    Status = "pass"
	StatusWarning Status = "warning"
	StatusFail    Status = "fail"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusPass, StatusWarning, StatusFail}

// DefaultWarningMultiplier is the factor applied to a window's limit to
// obtain the outer warning boundary.
const DefaultWarningMultiplier = 1.5

// rangeFactor scales the limit for the max−min sample ranges.
const rangeFactor = 2.0

// Result is the full evaluation of one Input.
type Result struct {
	Derived
	Status Status
}

// Evaluate derives and classifies in using warning multiplier k.
func Evaluate(in Input, k float64) Result {
	d := Derive(in)
	return Result{Derived: d, Status: Classify(d, in.Limit, k)}
}

// Classify maps the derived tolerances of a window to a Status given the
// window's limit and the warning multiplier k. A non-positive or non-finite
// k is replaced by DefaultWarningMultiplier.
//
// Classify is total: it never panics and always returns one of the three
// statuses. It does not check limit; callers reject limit ≤ 0 upstream.
func Classify(d Derived, limit, k float64) Status {
	k = EffectiveMultiplier(k)
	switch {
	case within(d, limit):
		return StatusPass
	case within(d, k*limit):
		return StatusWarning
	default:
		return StatusFail
	}
}

// EffectiveMultiplier returns k, or DefaultWarningMultiplier when k is not
// a usable multiplier.
func EffectiveMultiplier(k float64) float64 {
	if k <= 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return DefaultWarningMultiplier
	}
	return k
}

// within reports whether all five checks hold against threshold t.
func within(d Derived, t float64) bool {
	return d.WidthTolerance <= t &&
		d.HeightTolerance <= t &&
		d.DiagonalDiff <= t &&
		d.WidthRange <= rangeFactor*t &&
		d.HeightRange <= rangeFactor*t
}

// Check is one of the five comparisons behind Classify.
type Check struct {
	Name  string  // width_tolerance, height_tolerance, diagonal_diff, width_range, height_range
	Value float64 // measured deviation in mm
	Limit float64 // pass threshold; the warning threshold is k times this
}

// Checks returns the comparisons Classify makes for d against limit.
func Checks(d Derived, limit float64) []Check {
	return []Check{
		{"width_tolerance", d.WidthTolerance, limit},
		{"height_tolerance", d.HeightTolerance, limit},
		{"diagonal_diff", d.DiagonalDiff, limit},
		{"width_range", d.WidthRange, rangeFactor * limit},
		{"height_range", d.HeightRange, rangeFactor * limit},
	}
}

// Label returns the human-readable name of s.
func (s Status) Label() string {
	switch s {
	case StatusPass:
		return "Pass"
	case StatusWarning:
		return "Warning"
	case StatusFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPass || s == StatusWarning || s == StatusFail
}
