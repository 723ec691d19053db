package main

import (
	"github.com/coachpo/swiperflix-gateway/pkg/ingestion"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var summaryCounts = []string{"Fetched", "Created", "Updated", "Seeded"}

// renderSummary prints one sync run as a single-row table with the counts
// right-aligned under their headers.
func renderSummary(res ingestion.Result, seeded int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := table.Row{"Directory"}
	for _, name := range summaryCounts {
		header = append(header, name)
	}
	tw.AppendHeader(header)
	tw.AppendRow(table.Row{res.Dir, res.Fetched, res.Created, res.Updated, seeded})

	configs := []table.ColumnConfig{{Name: "Directory", Align: text.AlignLeft}}
	for _, name := range summaryCounts {
		configs = append(configs, table.ColumnConfig{Name: name, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
