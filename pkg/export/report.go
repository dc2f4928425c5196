// Package export flattens a registry snapshot and project metadata into the
// record set handed to document exporters.
//
// Build produces a Report: the project metadata, one Sheet per floor holding
// a Record per window (every input and derived field), and project-wide
// status counts. Record.Cells renders numbers to one decimal place, with
// non-finite values written as 0.0. WriteCSV is a flat rendering of the same
// record set; spreadsheet styling belongs to the consumer.
package export

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tolerancevision/tolerancevision/pkg/aggregate"
	"github.com/tolerancevision/tolerancevision/pkg/registry"
	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
	"github.com/tolerancevision/tolerancevision/pkg/types"
)

// Errors returned by Build.
var (
	ErrIncompleteProject = errors.New("export: building name is required")
	ErrNoWindows         = errors.New("export: at least one window is required")
)

// Columns is the header row of every floor sheet, in Record.Cells order.
var Columns = []string{
	"Code",
	"Nominal width", "Nominal height", "Limit",
	"Width top", "Width middle", "Width bottom",
	"Height left", "Height middle", "Height right",
	"Width mean", "Height mean",
	"Width range", "Height range",
	"Theoretical diagonal", "Actual diagonal", "Diagonal diff",
	"Width tolerance", "Height tolerance",
	"Status",
}

// Record is one window, fully derived.
type Record struct {
	ID   string `json:"id"`
	Code string `json:"code"`

	NominalWidth  float64 `json:"nominal_width"`
	NominalHeight float64 `json:"nominal_height"`
	Limit         float64 `json:"limit"`

	WidthTop     float64 `json:"width_top"`
	WidthMiddle  float64 `json:"width_middle"`
	WidthBottom  float64 `json:"width_bottom"`
	HeightLeft   float64 `json:"height_left"`
	HeightMiddle float64 `json:"height_middle"`
	HeightRight  float64 `json:"height_right"`

	WidthMean           float64 `json:"width_mean"`
	HeightMean          float64 `json:"height_mean"`
	WidthRange          float64 `json:"width_range"`
	HeightRange         float64 `json:"height_range"`
	TheoreticalDiagonal float64 `json:"theoretical_diagonal"`
	ActualDiagonal      float64 `json:"actual_diagonal"`
	DiagonalDiff        float64 `json:"diagonal_diff"`
	WidthTolerance      float64 `json:"width_tolerance"`
	HeightTolerance     float64 `json:"height_tolerance"`

	Status tolerance.Status `json:"status"`
}

// Sheet is one floor's records in display order.
type Sheet struct {
	FloorID     string   `json:"floor_id"`
	FloorNumber int      `json:"floor_number"`
	Label       string   `json:"label"`
	Records     []Record `json:"records"`
}

// Report is the complete export payload.
type Report struct {
	Project     types.ProjectMetadata `json:"project"`
	FloorCount  int                   `json:"floor_count"`
	Sheets      []Sheet               `json:"sheets"`
	Totals      aggregate.Counts      `json:"totals"`
	PassRate    float64               `json:"pass_rate"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// Build assembles a Report. It refuses to export a project without a building
// name or without any windows.
func Build(meta types.ProjectMetadata, floors []registry.Floor, now time.Time) (Report, error) {
	if strings.TrimSpace(meta.BuildingName) == "" {
		return Report{}, ErrIncompleteProject
	}

	sum := aggregate.Summarize(floors)
	if sum.Counts.Total == 0 {
		return Report{}, ErrNoWindows
	}

	rep := Report{
		Project:     meta,
		FloorCount:  len(floors),
		Sheets:      make([]Sheet, 0, len(floors)),
		Totals:      sum.Counts,
		PassRate:    sum.PassRate,
		GeneratedAt: now,
	}
	for _, f := range floors {
		sh := Sheet{
			FloorID:     f.ID,
			FloorNumber: f.Number,
			Label:       f.Label(),
			Records:     make([]Record, 0, len(f.Windows)),
		}
		for _, w := range f.Windows {
			sh.Records = append(sh.Records, FromWindow(w))
		}
		rep.Sheets = append(rep.Sheets, sh)
	}
	return rep, nil
}

// FromWindow maps a stored window to its export record.
func FromWindow(w registry.Window) Record {
	return Record{
		ID:                  w.ID,
		Code:                w.Code,
		NominalWidth:        w.NominalWidth,
		NominalHeight:       w.NominalHeight,
		Limit:               w.Limit,
		WidthTop:            w.WidthTop,
		WidthMiddle:         w.WidthMiddle,
		WidthBottom:         w.WidthBottom,
		HeightLeft:          w.HeightLeft,
		HeightMiddle:        w.HeightMiddle,
		HeightRight:         w.HeightRight,
		WidthMean:           w.WidthMean,
		HeightMean:          w.HeightMean,
		WidthRange:          w.WidthRange,
		HeightRange:         w.HeightRange,
		TheoreticalDiagonal: w.TheoreticalDiagonal,
		ActualDiagonal:      w.ActualDiagonal,
		DiagonalDiff:        w.DiagonalDiff,
		WidthTolerance:      w.WidthTolerance,
		HeightTolerance:     w.HeightTolerance,
		Status:              w.Status,
	}
}

// Cells renders r as text in Columns order.
func (r Record) Cells() []string {
	nums := []float64{
		r.NominalWidth, r.NominalHeight, r.Limit,
		r.WidthTop, r.WidthMiddle, r.WidthBottom,
		r.HeightLeft, r.HeightMiddle, r.HeightRight,
		r.WidthMean, r.HeightMean,
		r.WidthRange, r.HeightRange,
		r.TheoreticalDiagonal, r.ActualDiagonal, r.DiagonalDiff,
		r.WidthTolerance, r.HeightTolerance,
	}
	out := make([]string, 0, len(Columns))
	out = append(out, r.Code)
	for _, v := range nums {
		out = append(out, FormatMM(v))
	}
	return append(out, r.Status.Label())
}

// FormatMM renders v with one decimal place. NaN and ±Inf render as "0.0".
func FormatMM(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
