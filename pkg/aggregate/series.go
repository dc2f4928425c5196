package aggregate

import (
	"github.com/tolerancevision/tolerancevision/pkg/registry"
	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
)

// SeriesPoint is one floor's entry in the bar/line chart series.
type SeriesPoint struct {
	Label   string
	Pass    int
	Warning int
	Fail    int
	Total   int
}

// Slice is one segment of the project-wide status distribution.
type Slice struct {
	Key        tolerance.Status
	Name       string
	Value      int
	Percentage float64 // share of all windows, 0 when there are none
}

// FloorSeries returns the (pass, warning, fail) triple per floor, keyed by
// floor label, in floor order.
func FloorSeries(floors []registry.Floor) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(floors))
	for _, f := range floors {
		c := Count(f.Windows)
		out = append(out, SeriesPoint{
			Label:   f.Label(),
			Pass:    c.Pass,
			Warning: c.Warning,
			Fail:    c.Fail,
			Total:   c.Total,
		})
	}
	return out
}

// Distribution returns the project-wide status distribution, one Slice per
// status in pass, warning, fail order.
func Distribution(floors []registry.Floor) []Slice {
	var c Counts
	for _, f := range floors {
		c = c.add(Count(f.Windows))
	}

	out := make([]Slice, 0, len(tolerance.Statuses))
	for _, s := range tolerance.Statuses {
		sl := Slice{Key: s, Name: s.Label(), Value: c.Of(s)}
		if c.Total > 0 {
			sl.Percentage = float64(sl.Value) / float64(c.Total) * 100
		}
		out = append(out, sl)
	}
	return out
}
