package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/lrotava/stdcores/RULES/hdl"
)

func statusString(status hdl.TestStatus) string {
	switch status {
	case hdl.StatusPass:
		return "✓ pass"
	case hdl.StatusSkip:
		return "- skip"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// PrintSummary renders one row per test and a footer with the totals.
func PrintSummary(w io.Writer, result hdl.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Test Results (%s)", formatDuration(result.Duration)))
	t.AppendHeader(table.Row{"Test", "Duration", "Status", "Output"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
	})

	for _, test := range result.Tests {
		output := ""
		if test.Status == hdl.StatusFail {
			output = test.OutputPath
		}
		t.AppendRow(table.Row{test.Name, formatDuration(test.Duration), statusString(test.Status), output})
	}

	status := "✓ pass"
	if !result.OK() {
		status = "✗ fail"
	}
	if result.CompileFailed {
		status = "✗ compile error"
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d passed, %d failed, %d skipped", result.Passed(), result.Failed(), result.Skipped()),
		formatDuration(result.Duration),
		status,
		"",
	})
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.Render()
}
