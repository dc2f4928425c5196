package aggregate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tolerancevision/tolerancevision/pkg/registry"
	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// win builds a stored window with only the fields the aggregator reads.
func win(status tolerance.Status, diagDiff float64) registry.Window {
	w := registry.Window{}
	w.Status = status
	w.DiagonalDiff = diagDiff
	w.WidthTolerance = diagDiff
	w.HeightTolerance = diagDiff
	return w
}

func floor(n int, name string, ws ...registry.Window) registry.Floor {
	return registry.Floor{ID: name + "-id", Number: n, Name: name, Windows: ws}
}

func sampleFloors() []registry.Floor {
	return []registry.Floor{
		floor(1, "",
			win(tolerance.StatusPass, 0.5),
			win(tolerance.StatusPass, 1.0),
			win(tolerance.StatusFail, 7.25),
		),
		floor(2, "Roof",
			win(tolerance.StatusWarning, 3.5),
		),
		floor(3, ""),
	}
}

func TestCount(t *testing.T) {
	c := Count(sampleFloors()[0].Windows)
	want := Counts{Pass: 2, Warning: 0, Fail: 1, Total: 3}
	if c != want {
		t.Errorf("Count = %+v, want %+v", c, want)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleFloors())

	if s.FloorCount != 3 {
		t.Errorf("FloorCount = %d, want 3", s.FloorCount)
	}
	want := Counts{Pass: 2, Warning: 1, Fail: 1, Total: 4}
	if s.Counts != want {
		t.Errorf("Counts = %+v, want %+v", s.Counts, want)
	}
	if !almostEqual(s.PassRate, 50, 1e-9) {
		t.Errorf("PassRate = %v, want 50", s.PassRate)
	}
	if s.MaxDeviation != 7.25 {
		t.Errorf("MaxDeviation = %v, want 7.25", s.MaxDeviation)
	}
	// (0.5 + 1 + 7.25 + 3.5) / 4
	if !almostEqual(s.AverageTolerance, 3.0625, 1e-9) {
		t.Errorf("AverageTolerance = %v, want 3.0625", s.AverageTolerance)
	}

	if len(s.Floors) != 3 {
		t.Fatalf("Floors = %d, want 3", len(s.Floors))
	}
	f1 := s.Floors[0]
	if f1.Label != "Floor 1" || f1.MaxDeviation != 7.25 || !almostEqual(f1.PassRate, 66.6667, 1e-3) {
		t.Errorf("floor 1 summary = %+v", f1)
	}
	if s.Floors[2].PassRate != 0 || s.Floors[2].MaxDeviation != 0 {
		t.Errorf("empty floor summary = %+v, want zeros", s.Floors[2])
	}
}

func TestSummarize_CountsAddUp(t *testing.T) {
	s := Summarize(sampleFloors())
	check := func(name string, c Counts) {
		if c.Pass+c.Warning+c.Fail != c.Total {
			t.Errorf("%s: %d+%d+%d != %d", name, c.Pass, c.Warning, c.Fail, c.Total)
		}
	}
	check("project", s.Counts)
	for _, f := range s.Floors {
		check(f.Label, f.Counts)
	}
}

func TestSummarize_EmptyProject(t *testing.T) {
	tests := []struct {
		name   string
		floors []registry.Floor
	}{
		{"no floors", nil},
		{"floors without windows", []registry.Floor{floor(1, ""), floor(2, "")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Summarize(tc.floors)
			if s.PassRate != 0 || math.IsNaN(s.PassRate) {
				t.Errorf("PassRate = %v, want 0", s.PassRate)
			}
			if s.MaxDeviation != 0 || math.IsInf(s.MaxDeviation, 0) {
				t.Errorf("MaxDeviation = %v, want 0", s.MaxDeviation)
			}
			if s.AverageTolerance != 0 {
				t.Errorf("AverageTolerance = %v, want 0", s.AverageTolerance)
			}
		})
	}
}

func TestPassRate(t *testing.T) {
	tests := []struct {
		c    Counts
		want float64
	}{
		{Counts{}, 0},
		{Counts{Pass: 1, Total: 1}, 100},
		{Counts{Pass: 1, Fail: 3, Total: 4}, 25},
	}
	for _, tc := range tests {
		if got := PassRate(tc.c); got != tc.want {
			t.Errorf("PassRate(%+v) = %v, want %v", tc.c, got, tc.want)
		}
	}
}

func TestMaxDeviation(t *testing.T) {
	if got := MaxDeviation(sampleFloors()); got != 7.25 {
		t.Errorf("MaxDeviation = %v, want 7.25", got)
	}
	if got := MaxDeviation(nil); got != 0 {
		t.Errorf("MaxDeviation(nil) = %v, want 0", got)
	}
}

func TestFloorSeries(t *testing.T) {
	got := FloorSeries(sampleFloors())
	want := []SeriesPoint{
		{Label: "Floor 1", Pass: 2, Warning: 0, Fail: 1, Total: 3},
		{Label: "Roof", Pass: 0, Warning: 1, Fail: 0, Total: 1},
		{Label: "Floor 3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FloorSeries (-want +got):\n%s", diff)
	}
}

func TestDistribution(t *testing.T) {
	got := Distribution(sampleFloors())
	want := []Slice{
		{Key: tolerance.StatusPass, Name: "Pass", Value: 2, Percentage: 50},
		{Key: tolerance.StatusWarning, Name: "Warning", Value: 1, Percentage: 25},
		{Key: tolerance.StatusFail, Name: "Fail", Value: 1, Percentage: 25},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Distribution (-want +got):\n%s", diff)
	}
}

func TestDistribution_Empty(t *testing.T) {
	for _, sl := range Distribution(nil) {
		if sl.Value != 0 || sl.Percentage != 0 {
			t.Errorf("slice %+v, want zero", sl)
		}
	}
}

// TestSummarize_FromRegistry runs the aggregator over a real registry snapshot.
func TestSummarize_FromRegistry(t *testing.T) {
	r := registry.New()
	f := r.Floors()[0]
	pass := tolerance.Input{
		Code: "P", NominalWidth: 1200, NominalHeight: 1500, Limit: 3,
		WidthTop: 1198, WidthMiddle: 1201, WidthBottom: 1199,
		HeightLeft: 1499, HeightMiddle: 1502, HeightRight: 1500,
	}
	fail := pass
	fail.Code = "F"
	fail.WidthTop, fail.WidthMiddle, fail.WidthBottom = 1190, 1210, 1195

	if _, err := r.AddWindow(f.ID, pass); err != nil {
		t.Fatal(err)
	}
	if _, err := r.AddWindow(f.ID, fail); err != nil {
		t.Fatal(err)
	}
	r.AddFloor("")

	s := Summarize(r.Floors())
	if s.Counts.Pass != 1 || s.Counts.Fail != 1 || s.FloorCount != 2 {
		t.Errorf("Summary = %+v", s)
	}
	if !almostEqual(s.MaxDeviation, 0.7803, 1e-3) {
		t.Errorf("MaxDeviation = %v, want ≈0.7803", s.MaxDeviation)
	}
}
