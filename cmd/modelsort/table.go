package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type column struct {
	Header string
	Right  bool
}

func left(header string) column  { return column{Header: header} }
func right(header string) column { return column{Header: header, Right: true} }

// renderTable draws rows under columns. A non-empty footer is rendered as a
// totals row with its case preserved.
func renderTable(columns []column, rows [][]string, footer []string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	style := table.StyleRounded
	style.Format.Footer = text.FormatDefault
	tw.SetStyle(style)

	configs := make([]table.ColumnConfig, len(columns))
	header := make(table.Row, len(columns))
	for i, col := range columns {
		header[i] = col.Header
		align := text.AlignLeft
		if col.Right {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignFooter: align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		tw.AppendRow(padRow(row, len(columns)))
	}
	if len(footer) > 0 {
		tw.AppendFooter(padRow(footer, len(columns)))
	}
	return tw.Render() + "\n"
}

func padRow(values []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range width {
		if i < len(values) {
			row[i] = values[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
