// Package aggregate produces per-floor and project-wide statistics from a
// registry snapshot. Every function is pure and read-only: results are
// computed fresh from the floors passed in and nothing is cached.
//
// Zero-data results are always well defined: PassRate is 0 when there are no
// windows and MaxDeviation is 0 when there is nothing to compare.
package aggregate

import (
	"github.com/tolerancevision/tolerancevision/pkg/registry"
	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
)

// Counts is the number of windows in each status.
type Counts struct {
	Pass    int `json:"pass"`
	Warning int `json:"warning"`
	Fail    int `json:"fail"`
	Total   int `json:"total"`
}

// Of returns the count for a single status.
func (c Counts) Of(s tolerance.Status) int {
	switch s {
	case tolerance.StatusPass:
		return c.Pass
	case tolerance.StatusWarning:
		return c.Warning
	case tolerance.StatusFail:
		return c.Fail
	default:
		return 0
	}
}

func (c Counts) add(o Counts) Counts {
	return Counts{
		Pass:    c.Pass + o.Pass,
		Warning: c.Warning + o.Warning,
		Fail:    c.Fail + o.Fail,
		Total:   c.Total + o.Total,
	}
}

// FloorSummary is the roll-up for one floor.
type FloorSummary struct {
	FloorID      string
	Number       int
	Label        string
	Counts       Counts
	PassRate     float64
	MaxDeviation float64 // largest DiagonalDiff on the floor
}

// Summary is the roll-up for the whole project.
type Summary struct {
	FloorCount   int
	Counts       Counts
	PassRate     float64 // percent, 0–100
	MaxDeviation float64 // largest DiagonalDiff across all floors

	// AverageTolerance is the mean over all windows of
	// (WidthTolerance + HeightTolerance) / 2.
	AverageTolerance float64

	Floors []FloorSummary
}

// Count tallies windows by status. Windows with an unrecognised status are
// counted in Total only.
func Count(windows []registry.Window) Counts {
	var c Counts
	for _, w := range windows {
		c.Total++
		switch w.Status {
		case tolerance.StatusPass:
			c.Pass++
		case tolerance.StatusWarning:
			c.Warning++
		case tolerance.StatusFail:
			c.Fail++
		}
	}
	return c
}

// PassRate returns Pass / Total × 100, or 0 when Total is 0.
func PassRate(c Counts) float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Pass) / float64(c.Total) * 100
}

// MaxDeviation returns the largest DiagonalDiff across all windows of all
// floors, or 0 when there are no windows.
func MaxDeviation(floors []registry.Floor) float64 {
	var m float64
	for _, f := range floors {
		m = max(m, maxDiagonalDiff(f.Windows))
	}
	return m
}

// SummarizeFloor rolls up a single floor.
func SummarizeFloor(f registry.Floor) FloorSummary {
	c := Count(f.Windows)
	return FloorSummary{
		FloorID:      f.ID,
		Number:       f.Number,
		Label:        f.Label(),
		Counts:       c,
		PassRate:     PassRate(c),
		MaxDeviation: maxDiagonalDiff(f.Windows),
	}
}

// Summarize rolls up every floor and the project as a whole.
func Summarize(floors []registry.Floor) Summary {
	s := Summary{
		FloorCount: len(floors),
		Floors:     make([]FloorSummary, 0, len(floors)),
	}
	var tolSum float64
	for _, f := range floors {
		fs := SummarizeFloor(f)
		s.Floors = append(s.Floors, fs)
		s.Counts = s.Counts.add(fs.Counts)
		s.MaxDeviation = max(s.MaxDeviation, fs.MaxDeviation)
		for _, w := range f.Windows {
			tolSum += (w.WidthTolerance + w.HeightTolerance) / 2
		}
	}
	s.PassRate = PassRate(s.Counts)
	if s.Counts.Total > 0 {
		s.AverageTolerance = tolSum / float64(s.Counts.Total)
	}
	return s
}

// maxDiagonalDiff starts from 0 so an empty list yields 0. DiagonalDiff is
// non-negative by construction.
func maxDiagonalDiff(ws []registry.Window) float64 {
	var m float64
	for _, w := range ws {
		m = max(m, w.DiagonalDiff)
	}
	return m
}
