package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes rep as a single CSV document: a project block, one block
// per floor (label, header row, records, window count) and a summary block.
// Blocks are separated by empty lines.
func WriteCSV(w io.Writer, rep Report) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"Building", rep.Project.BuildingName},
		{"Engineer", rep.Project.EngineerName},
		{"Project code", orDash(rep.Project.Code)},
		{"Floor count", strconv.Itoa(rep.FloorCount)},
		{"Date", rep.Project.Date},
		{"Description", orDash(rep.Project.Description)},
		{},
	}
	for _, sh := range rep.Sheets {
		rows = append(rows, []string{"Floor", sh.Label}, Columns)
		for _, r := range sh.Records {
			rows = append(rows, r.Cells())
		}
		rows = append(rows, []string{"Window count", strconv.Itoa(len(sh.Records))}, []string{})
	}
	rows = append(rows,
		[]string{"Total windows", strconv.Itoa(rep.Totals.Total)},
		[]string{"Pass", strconv.Itoa(rep.Totals.Pass)},
		[]string{"Warning", strconv.Itoa(rep.Totals.Warning)},
		[]string{"Fail", strconv.Itoa(rep.Totals.Fail)},
		[]string{"Pass rate", strconv.FormatFloat(rep.PassRate, 'f', 2, 64) + "%"},
	)

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("export: write csv: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
