package tolerance

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// MaxDimension is the largest accepted length for any measured or nominal
// field, in millimetres.
const MaxDimension = 10000.0

// ErrInvalidInput is wrapped by every error returned from Validate.
var ErrInvalidInput = errors.New("invalid window input")

// Validate applies the input sanity rules a window must satisfy before it is
// recorded: a non-blank code and every numeric field finite, > 0 and
// ≤ MaxDimension. All violations are reported together.
func Validate(in Input) error {
	var errs []error
	if strings.TrimSpace(in.Code) == "" {
		errs = append(errs, fmt.Errorf("%w: code is required", ErrInvalidInput))
	}
	for _, f := range in.numericFields() {
		if err := checkDimension(f.name, f.value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type namedValue struct {
	name  string
	value float64
}

func (in Input) numericFields() []namedValue {
	return []namedValue{
		{"nominal_width", in.NominalWidth},
		{"nominal_height", in.NominalHeight},
		{"limit", in.Limit},
		{"width_top", in.WidthTop},
		{"width_middle", in.WidthMiddle},
		{"width_bottom", in.WidthBottom},
		{"height_left", in.HeightLeft},
		{"height_middle", in.HeightMiddle},
		{"height_right", in.HeightRight},
	}
}

func checkDimension(name string, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, name)
	case v <= 0:
		return fmt.Errorf("%w: %s must be greater than zero", ErrInvalidInput, name)
	case v > MaxDimension:
		return fmt.Errorf("%w: %s must not exceed %.0f mm", ErrInvalidInput, name, MaxDimension)
	}
	return nil
}
