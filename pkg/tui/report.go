// Package tui renders analysis results on the terminal.
// Simple streaming output, no interactive widgets.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/procsight/procsight/pkg/mining"
	"github.com/procsight/procsight/pkg/stats"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// PrintHeader prints the tool banner.
func PrintHeader(version string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("  PROCSIGHT") + mutedStyle.Render(" v"+version))
	fmt.Println(mutedStyle.Render("  Event log analysis for business processes"))
	fmt.Println()
}

// PrintAnalysisReport prints the KPI summary after an analysis run.
func PrintAnalysisReport(kpis *stats.KPISet, elapsed time.Duration) {
	fmt.Println()
	fmt.Println(successStyle.Render("  ✓ ANALYSIS COMPLETE"))
	fmt.Println()

	fmt.Printf("  %s %s events, %s cases, %s activities, %s resources\n",
		mutedStyle.Render("Log:"),
		titleStyle.Render(formatNumber(int64(kpis.Process.NumEvents))),
		titleStyle.Render(formatNumber(int64(kpis.Process.NumCases))),
		titleStyle.Render(formatNumber(int64(kpis.Process.NumActivities))),
		titleStyle.Render(formatNumber(int64(kpis.Process.NumResources))))

	fmt.Printf("  %s %s to %s\n",
		mutedStyle.Render("Range:"),
		kpis.TimeRangeStart.Format("2006-01-02"),
		kpis.TimeRangeEnd.Format("2006-01-02"))

	fmt.Printf("  %s mean %s, median %s, min %s, max %s\n",
		mutedStyle.Render("Cycle time:"),
		titleStyle.Render(formatHours(kpis.Time.MeanCycleTimeHours)),
		formatHours(kpis.Time.MedianCycleTimeHours),
		formatHours(kpis.Time.MinCycleTimeHours),
		formatHours(kpis.Time.MaxCycleTimeHours))

	fmt.Printf("  %s %.2f events/case, %.2f handovers/case\n",
		mutedStyle.Render("Flow:"),
		kpis.Process.EventsPerCase,
		kpis.Process.MeanHandovers)

	if kpis.Business != nil {
		fmt.Printf("  %s claim %s total, cost %s total (%s/case)\n",
			mutedStyle.Render("Business:"),
			titleStyle.Render(fmt.Sprintf("%.2f", kpis.Business.TotalClaimValue)),
			titleStyle.Render(fmt.Sprintf("%.2f", kpis.Business.TotalCost)),
			fmt.Sprintf("%.2f", kpis.Business.MeanCostPerCase))
	}

	if elapsed > 0 {
		fmt.Printf("  %s %s\n", mutedStyle.Render("Time:"), formatDuration(elapsed))
	}
	fmt.Println()
}

// PrintVariants prints the top trace variants.
func PrintVariants(variants []mining.Variant, limit int) {
	fmt.Println(accentStyle.Render("  ▸ TOP VARIANTS"))
	for i, v := range variants {
		if i >= limit {
			break
		}
		fmt.Printf("  %s %s %s\n",
			mutedStyle.Render(fmt.Sprintf("%2d.", i+1)),
			v.Key(),
			mutedStyle.Render(fmt.Sprintf("(%d cases, %.1f%%)", v.Count, v.Percent)))
	}
	fmt.Println()
}

// PrintInsight prints a model-generated narrative block.
func PrintInsight(title, text string) {
	fmt.Println(accentStyle.Render("  ▸ " + title))
	fmt.Println(text)
	fmt.Println()
}

// PrintError prints an error line.
func PrintError(err error) {
	fmt.Println(accentStyle.Render("  ✗ " + err.Error()))
}

// ShowProgress creates a progress bar for long reads.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// ClearLine clears the current line.
func ClearLine() {
	fmt.Print("\r\033[K")
}

func formatHours(h float64) string {
	if h < 1 {
		return fmt.Sprintf("%.0fm", h*60)
	}
	if h < 48 {
		return fmt.Sprintf("%.1fh", h)
	}
	return fmt.Sprintf("%.1fd", h/24)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// FormatBytes renders a byte count for file info output.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
