package types

import "github.com/tolerancevision/tolerancevision/pkg/tolerance"

// ProjectMetadata describes the building under inspection. Only FloorCount
// is derived; everything else is operator-supplied.
type ProjectMetadata struct {
	BuildingName string `yaml:"building_name" json:"building_name"`
	EngineerName string `yaml:"engineer_name" json:"engineer_name"`
	Date         string `yaml:"date" json:"date"`
	Code         string `yaml:"code,omitempty" json:"code,omitempty"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ProjectFile is the on-disk form of a whole inspection. Floors are listed in
// order; their numbers are assigned on load.
type ProjectFile struct {
	Project ProjectMetadata `yaml:"project"`

	// WarningMultiplier overrides tolerance.DefaultWarningMultiplier when > 0.
	WarningMultiplier float64 `yaml:"warning_multiplier,omitempty"`

	// DefaultLimit is applied to windows that omit limit.
	DefaultLimit float64 `yaml:"default_limit,omitempty"`

	Floors []FloorFile `yaml:"floors"`
}

// FloorFile is one floor in a ProjectFile.
type FloorFile struct {
	Name    string       `yaml:"name,omitempty"`
	Windows []WindowFile `yaml:"windows"`
}

// WindowFile is one window's raw measurement. Width samples are top, middle,
// bottom; height samples are left, middle, right.
type WindowFile struct {
	Code          string     `yaml:"code"`
	NominalWidth  float64    `yaml:"nominal_width"`
	NominalHeight float64    `yaml:"nominal_height"`
	Limit         float64    `yaml:"limit,omitempty"`
	Width         [3]float64 `yaml:"width,flow"`
	Height        [3]float64 `yaml:"height,flow"`
}

// Input converts w to an engine input, applying defaultLimit when w has none.
func (w WindowFile) Input(defaultLimit float64) tolerance.Input {
	limit := w.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	return tolerance.Input{
		Code:          w.Code,
		NominalWidth:  w.NominalWidth,
		NominalHeight: w.NominalHeight,
		Limit:         limit,
		WidthTop:      w.Width[0],
		WidthMiddle:   w.Width[1],
		WidthBottom:   w.Width[2],
		HeightLeft:    w.Height[0],
		HeightMiddle:  w.Height[1],
		HeightRight:   w.Height[2],
	}
}
