package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tolerancevision/tolerancevision/pkg/aggregate"
	"github.com/tolerancevision/tolerancevision/pkg/export"
	"github.com/tolerancevision/tolerancevision/pkg/types"
	"github.com/tolerancevision/tolerancevision/qcctl/internal/projectfile"
)

var reportFlags struct {
	format string
	out    string
}

var reportCmd = &cobra.Command{
	Use:   "report <project.yaml>",
	Short: "Summarize or export a recorded inspection",
	Long: `Load a YAML project file, evaluate every window and print a per-floor
summary (text), the full export record set (json) or the CSV export (csv).`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.format, "format", "text", "Output format: text|json|csv")
	f.StringVarP(&reportFlags.out, "output", "o", "", "Write to this file instead of stdout")
}

func runReport(cmd *cobra.Command, args []string) error {
	pf, err := projectfile.Load(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if reportFlags.out != "" {
		f, err := os.Create(reportFlags.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writeReport(w, pf, reportFlags.format, time.Now())
}

func writeReport(w io.Writer, pf types.ProjectFile, format string, now time.Time) error {
	reg, err := projectfile.Build(pf)
	if err != nil {
		return err
	}
	floors := reg.Floors()

	switch format {
	case "text":
		return writeSummary(w, pf.Project, aggregate.Summarize(floors))
	case "json", "csv":
	default:
		return fmt.Errorf("unknown format %q: want text|json|csv", format)
	}

	rep, err := export.Build(pf.Project, floors, now)
	if err != nil {
		return err
	}
	if format == "csv" {
		return export.WriteCSV(w, rep)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func writeSummary(w io.Writer, meta types.ProjectMetadata, sum aggregate.Summary) error {
	fmt.Fprintf(w, "Building: %s\n", meta.BuildingName)
	fmt.Fprintf(w, "Engineer: %s\n", meta.EngineerName)
	fmt.Fprintf(w, "Date:     %s\n", meta.Date)
	if meta.Code != "" {
		fmt.Fprintf(w, "Code:     %s\n", meta.Code)
	}
	fmt.Fprintln(w)

	t := newTable()
	t.Header("Floor", "Pass", "Warning", "Fail", "Total", "Pass rate", "Max dev (mm)")
	for _, f := range sum.Floors {
		t.Row(f.Label, f.Counts.Pass, f.Counts.Warning, f.Counts.Fail, f.Counts.Total,
			percent(f.PassRate), export.FormatMM(f.MaxDeviation))
	}
	t.Footer("Project", sum.Counts.Pass, sum.Counts.Warning, sum.Counts.Fail, sum.Counts.Total,
		percent(sum.PassRate), export.FormatMM(sum.MaxDeviation))
	t.RightAlign(2, 3, 4, 5, 6, 7)
	fmt.Fprintln(w, t.String())

	fmt.Fprintf(w, "Average tolerance: %s mm\n", export.FormatMM(sum.AverageTolerance))
	return nil
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
