package api

import (
	"time"

	"github.com/tolerancevision/tolerancevision/pkg/aggregate"
	"github.com/tolerancevision/tolerancevision/pkg/export"
	"github.com/tolerancevision/tolerancevision/pkg/registry"
	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
	"github.com/tolerancevision/tolerancevision/pkg/types"
)

// --- requests ---------------------------------------------------------------

// WindowRequest is the body of POST /api/v1/floors/{floorID}/windows and
// POST /api/v1/evaluate. A missing limit takes the configured default.
type WindowRequest struct {
	Code          string   `json:"code"`
	NominalWidth  float64  `json:"nominal_width"`
	NominalHeight float64  `json:"nominal_height"`
	Limit         *float64 `json:"limit,omitempty"`
	WidthTop      float64  `json:"width_top"`
	WidthMiddle   float64  `json:"width_middle"`
	WidthBottom   float64  `json:"width_bottom"`
	HeightLeft    float64  `json:"height_left"`
	HeightMiddle  float64  `json:"height_middle"`
	HeightRight   float64  `json:"height_right"`
}

// Input converts r to an engine input.
func (r WindowRequest) Input(defaultLimit float64) tolerance.Input {
	limit := defaultLimit
	if r.Limit != nil {
		limit = *r.Limit
	}
	return tolerance.Input{
		Code:          r.Code,
		NominalWidth:  r.NominalWidth,
		NominalHeight: r.NominalHeight,
		Limit:         limit,
		WidthTop:      r.WidthTop,
		WidthMiddle:   r.WidthMiddle,
		WidthBottom:   r.WidthBottom,
		HeightLeft:    r.HeightLeft,
		HeightMiddle:  r.HeightMiddle,
		HeightRight:   r.HeightRight,
	}
}

// PatchRequest is the body of PATCH /api/v1/floors/{floorID}/windows/{windowID}.
// Absent fields are left unchanged.
type PatchRequest struct {
	Code          *string  `json:"code,omitempty"`
	NominalWidth  *float64 `json:"nominal_width,omitempty"`
	NominalHeight *float64 `json:"nominal_height,omitempty"`
	Limit         *float64 `json:"limit,omitempty"`
	WidthTop      *float64 `json:"width_top,omitempty"`
	WidthMiddle   *float64 `json:"width_middle,omitempty"`
	WidthBottom   *float64 `json:"width_bottom,omitempty"`
	HeightLeft    *float64 `json:"height_left,omitempty"`
	HeightMiddle  *float64 `json:"height_middle,omitempty"`
	HeightRight   *float64 `json:"height_right,omitempty"`
}

// Patch converts r to a registry patch.
func (r PatchRequest) Patch() registry.Patch {
	return registry.Patch{
		Code:          r.Code,
		NominalWidth:  r.NominalWidth,
		NominalHeight: r.NominalHeight,
		Limit:         r.Limit,
		WidthTop:      r.WidthTop,
		WidthMiddle:   r.WidthMiddle,
		WidthBottom:   r.WidthBottom,
		HeightLeft:    r.HeightLeft,
		HeightMiddle:  r.HeightMiddle,
		HeightRight:   r.HeightRight,
	}
}

// FloorRequest is the body of POST /api/v1/floors and PATCH /api/v1/floors/{floorID}.
type FloorRequest struct {
	Name string `json:"name"`
}

// SelectionRequest is the body of PUT /api/v1/selection.
type SelectionRequest struct {
	Index int `json:"index"`
}

// SettingsRequest is the body of PUT /api/v1/settings.
type SettingsRequest struct {
	WarningMultiplier float64 `json:"warning_multiplier"`
}

// --- responses --------------------------------------------------------------

// WindowResponse is one evaluated window.
type WindowResponse struct {
	ID      string `json:"id,omitempty"`
	FloorID string `json:"floor_id,omitempty"`
	Code    string `json:"code"`

	NominalWidth  float64 `json:"nominal_width"`
	NominalHeight float64 `json:"nominal_height"`
	Limit         float64 `json:"limit"`
	WidthTop      float64 `json:"width_top"`
	WidthMiddle   float64 `json:"width_middle"`
	WidthBottom   float64 `json:"width_bottom"`
	HeightLeft    float64 `json:"height_left"`
	HeightMiddle  float64 `json:"height_middle"`
	HeightRight   float64 `json:"height_right"`

	WidthMean           float64 `json:"width_mean"`
	HeightMean          float64 `json:"height_mean"`
	WidthRange          float64 `json:"width_range"`
	HeightRange         float64 `json:"height_range"`
	TheoreticalDiagonal float64 `json:"theoretical_diagonal"`
	ActualDiagonal      float64 `json:"actual_diagonal"`
	DiagonalDiff        float64 `json:"diagonal_diff"`
	WidthTolerance      float64 `json:"width_tolerance"`
	HeightTolerance     float64 `json:"height_tolerance"`
	WorstDeviation      float64 `json:"worst_deviation"`

	Status      tolerance.Status `json:"status"`
	StatusLabel string           `json:"status_label"`
	UpdatedAt   string           `json:"updated_at,omitempty"` // RFC3339

	Diagnostics []DiagnosticHint `json:"diagnostics"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// CountsResponse is a status tally.
type CountsResponse struct {
	Total   int `json:"total"`
	Pass    int `json:"pass"`
	Warning int `json:"warning"`
	Fail    int `json:"fail"`
}

// FloorResponse is one floor with its windows.
type FloorResponse struct {
	ID           string           `json:"id"`
	Number       int              `json:"number"`
	Name         string           `json:"name,omitempty"`
	Label        string           `json:"label"`
	Counts       CountsResponse   `json:"counts"`
	PassRate     float64          `json:"pass_rate"`
	MaxDeviation float64          `json:"max_deviation"`
	Windows      []WindowResponse `json:"windows"`
	CreatedAt    string           `json:"created_at"` // RFC3339
}

// FloorSummaryResponse is one floor's roll-up inside SummaryResponse.
type FloorSummaryResponse struct {
	ID           string         `json:"id"`
	Number       int            `json:"number"`
	Label        string         `json:"label"`
	Counts       CountsResponse `json:"counts"`
	PassRate     float64        `json:"pass_rate"`
	MaxDeviation float64        `json:"max_deviation"`
}

// SummaryResponse is the payload for GET /api/v1/summary and the WebSocket stream.
type SummaryResponse struct {
	FloorCount        int                    `json:"floor_count"`
	CurrentFloor      int                    `json:"current_floor"` // 0-based index
	Counts            CountsResponse         `json:"counts"`
	PassRate          float64                `json:"pass_rate"`
	MaxDeviation      float64                `json:"max_deviation"`
	AverageTolerance  float64                `json:"average_tolerance"`
	WarningMultiplier float64                `json:"warning_multiplier"`
	Floors            []FloorSummaryResponse `json:"floors"`
	GeneratedAt       string                 `json:"generated_at"` // RFC3339
}

// SeriesPointResponse is one floor in GET /api/v1/charts/floors.
type SeriesPointResponse struct {
	Label   string `json:"label"`
	Pass    int    `json:"pass"`
	Warning int    `json:"warning"`
	Fail    int    `json:"fail"`
	Total   int    `json:"total"`
}

// SliceResponse is one status in GET /api/v1/charts/distribution.
type SliceResponse struct {
	Name       string           `json:"name"`
	Key        tolerance.Status `json:"key"`
	Value      int              `json:"value"`
	Percentage float64          `json:"percentage"`
}

// SelectionResponse is the payload for GET/PUT /api/v1/selection.
type SelectionResponse struct {
	Index int           `json:"index"`
	Floor FloorResponse `json:"floor"`
}

// ProjectResponse is the payload for GET/PUT /api/v1/project.
type ProjectResponse struct {
	types.ProjectMetadata
	FloorCount int `json:"floor_count"`
}

// SettingsResponse is the payload for GET/PUT /api/v1/settings.
type SettingsResponse struct {
	WarningMultiplier float64 `json:"warning_multiplier"`
	DefaultLimit      float64 `json:"default_limit"`
	Reclassified      int     `json:"reclassified,omitempty"`
}

// SheetResponse is one floor of an export.
type SheetResponse struct {
	FloorID     string     `json:"floor_id"`
	FloorNumber int        `json:"floor_number"`
	Label       string     `json:"label"`
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
	WindowCount int        `json:"window_count"`
}

// ExportResponse is the payload for GET /api/v1/export?format=json.
type ExportResponse struct {
	Project     types.ProjectMetadata `json:"project"`
	FloorCount  int                   `json:"floor_count"`
	Sheets      []SheetResponse       `json:"sheets"`
	Totals      CountsResponse        `json:"totals"`
	PassRate    float64               `json:"pass_rate"`
	GeneratedAt string                `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// --- mapping ----------------------------------------------------------------

func toCounts(c aggregate.Counts) CountsResponse {
	return CountsResponse{Total: c.Total, Pass: c.Pass, Warning: c.Warning, Fail: c.Fail}
}

func toWindowResponse(w registry.Window, k float64) WindowResponse {
	resp := evaluationResponse(w.Input, w.Result, k)
	resp.ID = w.ID
	resp.FloorID = w.FloorID
	if !w.UpdatedAt.IsZero() {
		resp.UpdatedAt = w.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func evaluationResponse(in tolerance.Input, res tolerance.Result, k float64) WindowResponse {
	return WindowResponse{
		Code:                in.Code,
		NominalWidth:        in.NominalWidth,
		NominalHeight:       in.NominalHeight,
		Limit:               in.Limit,
		WidthTop:            in.WidthTop,
		WidthMiddle:         in.WidthMiddle,
		WidthBottom:         in.WidthBottom,
		HeightLeft:          in.HeightLeft,
		HeightMiddle:        in.HeightMiddle,
		HeightRight:         in.HeightRight,
		WidthMean:           res.WidthMean,
		HeightMean:          res.HeightMean,
		WidthRange:          res.WidthRange,
		HeightRange:         res.HeightRange,
		TheoreticalDiagonal: res.TheoreticalDiagonal,
		ActualDiagonal:      res.ActualDiagonal,
		DiagonalDiff:        res.DiagonalDiff,
		WidthTolerance:      res.WidthTolerance,
		HeightTolerance:     res.HeightTolerance,
		WorstDeviation:      res.WorstDeviation(),
		Status:              res.Status,
		StatusLabel:         res.Status.Label(),
		Diagnostics:         computeDiagnostics(res.Derived, in.Limit, k),
	}
}

func toFloorResponse(f registry.Floor, k float64) FloorResponse {
	fs := aggregate.SummarizeFloor(f)
	windows := make([]WindowResponse, 0, len(f.Windows))
	for _, w := range f.Windows {
		windows = append(windows, toWindowResponse(w, k))
	}
	return FloorResponse{
		ID:           f.ID,
		Number:       f.Number,
		Name:         f.Name,
		Label:        f.Label(),
		Counts:       toCounts(fs.Counts),
		PassRate:     fs.PassRate,
		MaxDeviation: fs.MaxDeviation,
		Windows:      windows,
		CreatedAt:    f.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// BuildSummary computes the project summary from the current registry state.
// It is shared by GET /api/v1/summary and the WebSocket hub.
func BuildSummary(reg *registry.Registry, now time.Time) SummaryResponse {
	floors := reg.Floors()
	current, _ := reg.Current()
	sum := aggregate.Summarize(floors)

	out := SummaryResponse{
		FloorCount:        sum.FloorCount,
		CurrentFloor:      current,
		Counts:            toCounts(sum.Counts),
		PassRate:          sum.PassRate,
		MaxDeviation:      sum.MaxDeviation,
		AverageTolerance:  sum.AverageTolerance,
		WarningMultiplier: reg.WarningMultiplier(),
		Floors:            make([]FloorSummaryResponse, 0, len(sum.Floors)),
		GeneratedAt:       now.UTC().Format(time.RFC3339),
	}
	for _, f := range sum.Floors {
		out.Floors = append(out.Floors, FloorSummaryResponse{
			ID:           f.FloorID,
			Number:       f.Number,
			Label:        f.Label,
			Counts:       toCounts(f.Counts),
			PassRate:     f.PassRate,
			MaxDeviation: f.MaxDeviation,
		})
	}
	return out
}

func toExportResponse(rep export.Report) ExportResponse {
	out := ExportResponse{
		Project:     rep.Project,
		FloorCount:  rep.FloorCount,
		Sheets:      make([]SheetResponse, 0, len(rep.Sheets)),
		Totals:      toCounts(rep.Totals),
		PassRate:    rep.PassRate,
		GeneratedAt: rep.GeneratedAt.UTC().Format(time.RFC3339),
	}
	for _, sh := range rep.Sheets {
		rows := make([][]string, 0, len(sh.Records))
		for _, r := range sh.Records {
			rows = append(rows, r.Cells())
		}
		out.Sheets = append(out.Sheets, SheetResponse{
			FloorID:     sh.FloorID,
			FloorNumber: sh.FloorNumber,
			Label:       sh.Label,
			Columns:     export.Columns,
			Rows:        rows,
			WindowCount: len(sh.Records),
		})
	}
	return out
}
