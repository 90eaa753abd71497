package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"citetally/internal/extra"
	"citetally/internal/locale"
	"citetally/internal/sources"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// databaseColors tints each database's count in the citations column.
var databaseColors = map[string]text.Colors{
	sources.Crossref:        {text.FgHiBlue},
	sources.Inspire:         {text.FgGreen},
	sources.SemanticScholar: {text.FgRed},
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// citationCell renders the column view as counts separated by " / ". Colors
// apply only when requested and more than one database is shown.
func citationCell(view *extra.ColumnView, colorize bool) string {
	if view == nil {
		return ""
	}
	colorize = colorize && len(view.Databases) > 1
	parts := make([]string, len(view.Counts))
	for i, count := range view.Counts {
		parts[i] = count
		if colorize {
			if colors, ok := databaseColors[view.Databases[i]]; ok {
				parts[i] = colors.Sprint(count)
			}
		}
	}
	return strings.Join(parts, " / ")
}

// tooltipLines lists "<display>: <count>" for each database in the view.
func tooltipLines(view *extra.ColumnView) []string {
	if view == nil {
		return nil
	}
	lines := make([]string, len(view.Databases))
	for i, db := range view.Databases {
		lines[i] = locale.T(locale.TooltipCitationTally, sources.Display(db), view.Counts[i])
	}
	return lines
}
