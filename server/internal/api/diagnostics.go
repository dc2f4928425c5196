package api

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
)

// DiagnosticHint is one human-readable finding about a window. The UI shows
// these as chips on the window row; Detail is the explanation on hover.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (the check name).
	Key string `json:"key"`
	// Level is "ok" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip.
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is the measured deviation in mm.
	Value *float64 `json:"value,omitempty"`
}

var checkTitles = map[string]string{
	"width_tolerance":  "Width off nominal",
	"height_tolerance": "Height off nominal",
	"diagonal_diff":    "Out of square",
	"width_range":      "Width not parallel",
	"height_range":     "Height not parallel",
}

var checkDetails = map[string]string{
	"width_tolerance":  "The mean of the three width readings is %.1f mm away from the nominal width. The allowed deviation is %.1f mm.",
	"height_tolerance": "The mean of the three height readings is %.1f mm away from the nominal height. The allowed deviation is %.1f mm.",
	"diagonal_diff":    "The diagonal computed from the measured means differs from the design diagonal by %.1f mm, so the frame is racked. The allowed difference is %.1f mm.",
	"width_range":      "The top, middle and bottom widths spread over %.1f mm, so the jambs bow or lean. The allowed spread is %.1f mm.",
	"height_range":     "The left, middle and right heights spread over %.1f mm, so the head or sill is not level. The allowed spread is %.1f mm.",
}

// computeDiagnostics explains which checks in d exceed limit, critical first.
// A window with no exceeded check gets a single "ok" hint.
func computeDiagnostics(d tolerance.Derived, limit, k float64) []DiagnosticHint {
	k = tolerance.EffectiveMultiplier(k)

	var hints []DiagnosticHint
	for _, c := range tolerance.Checks(d, limit) {
		if c.Value <= c.Limit {
			continue
		}
		level := "warning"
		if c.Value > k*c.Limit {
			level = "critical"
		}
		v := c.Value
		hints = append(hints, DiagnosticHint{
			Key:    c.Name,
			Level:  level,
			Title:  checkTitles[c.Name],
			Detail: fmt.Sprintf(checkDetails[c.Name], c.Value, c.Limit),
			Value:  &v,
		})
	}

	if len(hints) == 0 {
		return []DiagnosticHint{{
			Key:    "within_limits",
			Level:  "ok",
			Title:  "Within limits",
			Detail: fmt.Sprintf("Every check is within the %.1f mm limit.", limit),
		}}
	}

	slices.SortStableFunc(hints, func(a, b DiagnosticHint) int {
		return cmp.Compare(levelRank(a.Level), levelRank(b.Level))
	})
	return hints
}

func levelRank(level string) int {
	switch level {
	case "critical":
		return 0
	case "warning":
		return 1
	default:
		return 2
	}
}
