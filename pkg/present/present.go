// Package present reshapes analysis results into chart-ready and
// prompt-ready forms. It performs no computation of its own; every value
// comes from the stats or mining packages.
package present

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/procsight/procsight/internal/model"
	"github.com/procsight/procsight/pkg/mining"
	"github.com/procsight/procsight/pkg/stats"
)

// Point is one labeled value of a series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// CycleTimeSeries shapes per-case cycle times for a scatter or bar
// chart, ordered by case id.
func CycleTimeSeries(cycles []stats.CaseCycleTime) []Point {
	out := make([]Point, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, Point{Label: c.CaseID, Value: c.DurationHours})
	}
	return out
}

// ActivityFrequencies shapes activity counts for a bar chart, ordered by
// descending frequency.
func ActivityFrequencies(agg *stats.Aggregation) []Point {
	sorted := agg.SortedActivities()
	out := make([]Point, 0, len(sorted))
	for _, a := range sorted {
		out = append(out, Point{Label: a.Activity, Value: float64(a.Frequency)})
	}
	return out
}

// ResourceUtilization shapes resource event counts for a bar chart,
// ordered by descending frequency.
func ResourceUtilization(agg *stats.Aggregation) []Point {
	sorted := agg.SortedResources()
	out := make([]Point, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, Point{Label: r.Resource, Value: float64(r.Frequency)})
	}
	return out
}

// TimelineRow is one case on the timeline with its span.
type TimelineRow struct {
	CaseID string    `json:"case_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// TimelineRows shapes case spans for a timeline chart, ordered by start
// time, case id breaking ties.
func TimelineRows(agg *stats.Aggregation) []TimelineRow {
	out := make([]TimelineRow, 0, len(agg.Cases))
	for _, c := range agg.Cases {
		out = append(out, TimelineRow{CaseID: c.CaseID, Start: c.Start, End: c.End})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].CaseID < out[j].CaseID
	})
	return out
}

// DFGEdges shapes a discovered graph into an ordered edge list for JSON
// responses.
func DFGEdges(dfg *mining.DFG) []mining.EdgeCount {
	return dfg.SortedEdges()
}

// Summary renders a compact textual digest of a log's KPIs for use as
// LLM prompt context. It never exceeds a few hundred words regardless of
// log size.
func Summary(log *model.Log, kpis *stats.KPISet, agg *stats.Aggregation) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Process log: %d events across %d cases, %d activities, %d resources.\n",
		kpis.Process.NumEvents, kpis.Process.NumCases,
		kpis.Process.NumActivities, kpis.Process.NumResources)
	fmt.Fprintf(&sb, "Time range: %s to %s.\n",
		kpis.TimeRangeStart.Format("2006-01-02"), kpis.TimeRangeEnd.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Cycle time hours: mean %.2f, median %.2f, min %.2f, max %.2f.\n",
		kpis.Time.MeanCycleTimeHours, kpis.Time.MedianCycleTimeHours,
		kpis.Time.MinCycleTimeHours, kpis.Time.MaxCycleTimeHours)
	fmt.Fprintf(&sb, "Events per case: %.2f. Mean handovers: %.2f. Mean complexity: %.2f.\n",
		kpis.Process.EventsPerCase, kpis.Process.MeanHandovers, kpis.Process.MeanComplexity)

	if kpis.Business != nil {
		fmt.Fprintf(&sb, "Total claim value: %.2f (mean %.2f per case). Total cost: %.2f (%.2f per case, %.2f per event).\n",
			kpis.Business.TotalClaimValue, kpis.Business.MeanClaimValue,
			kpis.Business.TotalCost, kpis.Business.MeanCostPerCase, kpis.Business.CostPerEvent)
	}

	top := agg.SortedActivities()
	if len(top) > 5 {
		top = top[:5]
	}
	sb.WriteString("Top activities:")
	for _, a := range top {
		fmt.Fprintf(&sb, " %s (%d)", a.Activity, a.Frequency)
	}
	sb.WriteString(".\n")

	return sb.String()
}
