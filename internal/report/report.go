// Package report renders yearly leave/WFH usage as a terminal table.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"kyri56xcaesar/opscrm/internal/mleave"
	"kyri56xcaesar/opscrm/internal/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Options struct {
	// one column per month next to the yearly totals
	Monthly bool
	CSV     bool
}

// Write renders summaries sorted by staff name.
func Write(w io.Writer, year int, summaries []mleave.Summary, opts Options) {
	sorted := make([]mleave.Summary, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StaffName < sorted[j].StaffName })

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetTitle(fmt.Sprintf("Leave / WFH %d", year))

	header := table.Row{"Staff", "Leave", "WFH", "Leave left", "WFH left"}
	if opts.Monthly {
		for m := time.January; m <= time.December; m++ {
			header = append(header, m.String()[:3])
		}
	}
	t.AppendHeader(header)

	for _, s := range sorted {
		row := table.Row{
			s.StaffName,
			usage(s.TotalLeave, s.AllocatedLeaves),
			usage(s.TotalWFH, s.AllocatedWFH),
			remaining(s.AllocatedLeaves, s.RemainingLeaves()),
			remaining(s.AllocatedWFH, s.RemainingWFH()),
		}
		if opts.Monthly {
			row = append(row, utils.Map(s.MonthlySummary, func(m mleave.MonthUsage) any { return monthCell(m) })...)
		}
		t.AppendRow(row)
	}

	totalLeave := utils.Reduce(sorted, 0.0, func(acc float64, s mleave.Summary) float64 { return acc + s.TotalLeave })
	totalWFH := utils.Reduce(sorted, 0.0, func(acc float64, s mleave.Summary) float64 { return acc + s.TotalWFH })
	t.AppendFooter(table.Row{fmt.Sprintf("%d staff", len(sorted)), fmt.Sprintf("%g", totalLeave), fmt.Sprintf("%g", totalWFH)})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	if opts.CSV {
		t.RenderCSV()
		return
	}
	t.Render()
}

// usage renders "used / allocated", or only the usage when nothing is allocated.
func usage(used, allocated float64) string {
	if allocated == 0 {
		return fmt.Sprintf("%g", used)
	}
	return fmt.Sprintf("%g / %g", used, allocated)
}

func remaining(allocated, left float64) string {
	if allocated == 0 {
		return "-"
	}
	return fmt.Sprintf("%g", left)
}

// monthCell shows "leave+wfh", blank for an unused month.
func monthCell(m mleave.MonthUsage) string {
	if m.Leave == 0 && m.WFH == 0 {
		return ""
	}
	return fmt.Sprintf("%g+%g", m.Leave, m.WFH)
}
