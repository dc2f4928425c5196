package tolerance

import "math"

// Input holds the raw values captured for one window. All lengths are in
// millimetres.
type Input struct {
	// Code is the operator-facing window label, e.g. "W-12".
	Code string

	// NominalWidth and NominalHeight are the design dimensions.
	NominalWidth  float64
	NominalHeight float64

	// Limit is the allowed tolerance T for this window. Must be > 0 for
	// classification to be meaningful.
	Limit float64

	// Width samples, measured at the top, middle and bottom of the frame.
	WidthTop    float64
	WidthMiddle float64
	WidthBottom float64

	// Height samples, measured at the left, middle and right of the frame.
	HeightLeft   float64
	HeightMiddle float64
	HeightRight  float64
}

// WidthSamples returns the three width readings in top, middle, bottom order.
func (in Input) WidthSamples() [3]float64 {
	return [3]float64{in.WidthTop, in.WidthMiddle, in.WidthBottom}
}

// HeightSamples returns the three height readings in left, middle, right order.
func (in Input) HeightSamples() [3]float64 {
	return [3]float64{in.HeightLeft, in.HeightMiddle, in.HeightRight}
}

// Derived is the set of geometric quantities computed from an Input.
type Derived struct {
	WidthMean  float64
	HeightMean float64

	// WidthRange and HeightRange are max−min of the three samples.
	WidthRange  float64
	HeightRange float64

	// TheoreticalDiagonal uses the nominal dimensions, ActualDiagonal the
	// mean measured dimensions.
	TheoreticalDiagonal float64
	ActualDiagonal      float64
	DiagonalDiff        float64 // |ActualDiagonal − TheoreticalDiagonal|

	// WidthTolerance and HeightTolerance are |mean − nominal|.
	WidthTolerance  float64
	HeightTolerance float64
}

// Derive computes the derived quantities for in. It has no side effects and
// does not validate: zero or negative inputs are computed faithfully.
func Derive(in Input) Derived {
	ws := in.WidthSamples()
	hs := in.HeightSamples()

	d := Derived{
		WidthMean:   mean(ws),
		HeightMean:  mean(hs),
		WidthRange:  spread(ws),
		HeightRange: spread(hs),
	}
	d.TheoreticalDiagonal = diagonal(in.NominalWidth, in.NominalHeight)
	d.ActualDiagonal = diagonal(d.WidthMean, d.HeightMean)
	d.DiagonalDiff = math.Abs(d.ActualDiagonal - d.TheoreticalDiagonal)
	d.WidthTolerance = math.Abs(d.WidthMean - in.NominalWidth)
	d.HeightTolerance = math.Abs(d.HeightMean - in.NominalHeight)
	return d
}

// WorstDeviation returns the single largest deviation of d, with ranges
// halved so they share a scale with the tolerances:
// max(WidthTolerance, HeightTolerance, DiagonalDiff, WidthRange/2, HeightRange/2).
func (d Derived) WorstDeviation() float64 {
	return max(d.WidthTolerance, d.HeightTolerance, d.DiagonalDiff, d.WidthRange/2, d.HeightRange/2)
}

func mean(xs [3]float64) float64 {
	return (xs[0] + xs[1] + xs[2]) / 3
}

// spread is max(xs) − min(xs).
func spread(xs [3]float64) float64 {
	return max(xs[0], xs[1], xs[2]) - min(xs[0], xs[1], xs[2])
}

// diagonal is the Pythagorean diagonal of a w × h rectangle.
func diagonal(w, h float64) float64 {
	return math.Sqrt(w*w + h*h)
}
