package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableBuilder is a thin wrapper over go-pretty with the terminal style used
// by every qcctl command.
type tableBuilder struct {
	w table.Writer
}

func newTable() *tableBuilder {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.Style().Format.Header = text.FormatDefault
	w.Style().Format.Footer = text.FormatDefault
	return &tableBuilder{w: w}
}

func (t *tableBuilder) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	t.w.AppendHeader(row)
}

func (t *tableBuilder) Row(vals ...any) {
	t.w.AppendRow(table.Row(vals))
}

func (t *tableBuilder) Footer(vals ...any) {
	t.w.AppendFooter(table.Row(vals))
}

// RightAlign right-aligns the given 1-based columns.
func (t *tableBuilder) RightAlign(cols ...int) {
	cfgs := make([]table.ColumnConfig, 0, len(cols))
	for _, n := range cols {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	t.w.SetColumnConfigs(cfgs)
}

func (t *tableBuilder) String() string {
	return t.w.Render()
}
