package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// reportTable is the one look every backbeat table shares: rounded borders,
// left-aligned headers, and numeric columns opted into right alignment at the
// call site.
type reportTable struct {
	writer  table.Writer
	columns int
}

func newReportTable(headers ...string) *reportTable {
	writer := table.NewWriter()
	writer.SetStyle(table.StyleRounded)
	row := make(table.Row, len(headers))
	for i, header := range headers {
		row[i] = header
	}
	writer.AppendHeader(row)
	return &reportTable{writer: writer, columns: len(headers)}
}

// rightAlign marks numeric columns by 1-based position. Call at most once per
// table, before rendering.
func (t *reportTable) rightAlign(positions ...int) {
	configs := make([]table.ColumnConfig, 0, len(positions))
	for _, pos := range positions {
		configs = append(configs, table.ColumnConfig{
			Number:      pos,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	t.writer.SetColumnConfigs(configs)
}

// addRow appends one row, padding short rows out to the header width.
func (t *reportTable) addRow(cells ...string) {
	row := make(table.Row, t.columns)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	t.writer.AppendRow(row)
}

func (t *reportTable) render() string {
	return t.writer.Render()
}
