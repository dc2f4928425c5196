package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tolerancevision/tolerancevision/pkg/export"
	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
)

var evalFlags struct {
	code          string
	nominalWidth  float64
	nominalHeight float64
	limit         float64
	width         []float64
	height        []float64
	k             float64
	output        string
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate one window from its measurements",
	Long: `Derive the means, ranges, diagonals and tolerances of a single window
and classify it. Width samples are top,middle,bottom; height samples are
left,middle,right.`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	f := evalCmd.Flags()
	f.StringVar(&evalFlags.code, "code", "", "Window code (required)")
	f.Float64Var(&evalFlags.nominalWidth, "nominal-width", 0, "Design width in mm (required)")
	f.Float64Var(&evalFlags.nominalHeight, "nominal-height", 0, "Design height in mm (required)")
	f.Float64Var(&evalFlags.limit, "limit", 0, "Allowed tolerance T in mm (required)")
	f.Float64SliceVar(&evalFlags.width, "width", nil, "Three width samples: top,middle,bottom")
	f.Float64SliceVar(&evalFlags.height, "height", nil, "Three height samples: left,middle,right")
	f.Float64Var(&evalFlags.k, "k", tolerance.DefaultWarningMultiplier, "Warning multiplier")
	f.StringVarP(&evalFlags.output, "output", "o", "text", "Output format: text|json")

	for _, name := range []string{"code", "nominal-width", "nominal-height", "limit", "width", "height"} {
		_ = evalCmd.MarkFlagRequired(name)
	}
}

func runEval(cmd *cobra.Command, _ []string) error {
	if len(evalFlags.width) != 3 || len(evalFlags.height) != 3 {
		return fmt.Errorf("--width and --height take exactly three samples each")
	}
	in := tolerance.Input{
		Code:          evalFlags.code,
		NominalWidth:  evalFlags.nominalWidth,
		NominalHeight: evalFlags.nominalHeight,
		Limit:         evalFlags.limit,
		WidthTop:      evalFlags.width[0],
		WidthMiddle:   evalFlags.width[1],
		WidthBottom:   evalFlags.width[2],
		HeightLeft:    evalFlags.height[0],
		HeightMiddle:  evalFlags.height[1],
		HeightRight:   evalFlags.height[2],
	}
	if err := tolerance.Validate(in); err != nil {
		return err
	}
	return writeEval(cmd.OutOrStdout(), in, evalFlags.k, evalFlags.output)
}

type evalOutput struct {
	Code                string           `json:"code"`
	Limit               float64          `json:"limit"`
	WarningMultiplier   float64          `json:"warning_multiplier"`
	WidthMean           float64          `json:"width_mean"`
	HeightMean          float64          `json:"height_mean"`
	WidthRange          float64          `json:"width_range"`
	HeightRange         float64          `json:"height_range"`
	TheoreticalDiagonal float64          `json:"theoretical_diagonal"`
	ActualDiagonal      float64          `json:"actual_diagonal"`
	DiagonalDiff        float64          `json:"diagonal_diff"`
	WidthTolerance      float64          `json:"width_tolerance"`
	HeightTolerance     float64          `json:"height_tolerance"`
	WorstDeviation      float64          `json:"worst_deviation"`
	Status              tolerance.Status `json:"status"`
}

func writeEval(w io.Writer, in tolerance.Input, k float64, format string) error {
	k = tolerance.EffectiveMultiplier(k)
	res := tolerance.Evaluate(in, k)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(evalOutput{
			Code:                in.Code,
			Limit:               in.Limit,
			WarningMultiplier:   k,
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
		})
	case "text":
	default:
		return fmt.Errorf("unknown output format %q: want text|json", format)
	}

	fmt.Fprintf(w, "Window:   %s\n", in.Code)
	fmt.Fprintf(w, "Status:   %s\n", res.Status.Label())
	fmt.Fprintf(w, "Limit:    %s mm (warning up to %s mm)\n", export.FormatMM(in.Limit), export.FormatMM(k*in.Limit))
	fmt.Fprintln(w)

	t := newTable()
	t.Header("Check", "Value (mm)", "Limit (mm)", "Result")
	for _, c := range tolerance.Checks(res.Derived, in.Limit) {
		t.Row(c.Name, export.FormatMM(c.Value), export.FormatMM(c.Limit), checkResult(c, k))
	}
	t.RightAlign(2, 3)
	fmt.Fprintln(w, t.String())

	fmt.Fprintf(w, "Means:    width %s  height %s\n", export.FormatMM(res.WidthMean), export.FormatMM(res.HeightMean))
	fmt.Fprintf(w, "Diagonal: theoretical %s  actual %s\n", export.FormatMM(res.TheoreticalDiagonal), export.FormatMM(res.ActualDiagonal))
	return nil
}

func checkResult(c tolerance.Check, k float64) string {
	switch {
	case c.Value <= c.Limit:
		return "ok"
	case c.Value <= k*c.Limit:
		return "warning"
	default:
		return "fail"
	}
}
