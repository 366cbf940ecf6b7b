package stats

import (
	"time"

	"github.com/procsight/procsight/internal/model"
	perrors "github.com/procsight/procsight/pkg/errors"
)

// TimeKPIs summarize case duration across the log.
type TimeKPIs struct {
	MeanCycleTimeHours   float64 `json:"mean_cycle_time_hours"`
	MedianCycleTimeHours float64 `json:"median_cycle_time_hours"`
	MinCycleTimeHours    float64 `json:"min_cycle_time_hours"`
	MaxCycleTimeHours    float64 `json:"max_cycle_time_hours"`
}

// ProcessKPIs summarize structural properties of the log.
type ProcessKPIs struct {
	NumEvents      int     `json:"num_events"`
	NumCases       int     `json:"num_cases"`
	NumActivities  int     `json:"num_activities"`
	NumResources   int     `json:"num_resources"`
	EventsPerCase  float64 `json:"events_per_case"`
	MeanHandovers  float64 `json:"mean_handovers"`
	MeanComplexity float64 `json:"mean_complexity"`
}

// BusinessKPIs summarize monetary properties. Present only when the
// source carries both claim value and cost columns.
type BusinessKPIs struct {
	TotalClaimValue float64 `json:"total_claim_value"`
	MeanClaimValue  float64 `json:"mean_claim_value"`
	TotalCost       float64 `json:"total_cost"`
	MeanCostPerCase float64 `json:"mean_cost_per_case"`
	CostPerEvent    float64 `json:"cost_per_event"`
}

// CostStats summarize event costs when a cost column exists on its own.
type CostStats struct {
	Total  float64 `json:"total"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// KPISet is the top-level KPI summary of a log.
type KPISet struct {
	Time     TimeKPIs      `json:"time"`
	Process  ProcessKPIs   `json:"process"`
	Business *BusinessKPIs `json:"business,omitempty"`
	Cost     *CostStats    `json:"cost,omitempty"`

	TimeRangeStart time.Time `json:"time_range_start"`
	TimeRangeEnd   time.Time `json:"time_range_end"`
}

// Summarize computes the KPI set from a log and its aggregation.
// Business KPIs are computed only when the source carries both a claim
// value and a cost column; cost stats only require the cost column.
func Summarize(log *model.Log, agg *Aggregation) (*KPISet, error) {
	if log.Empty() {
		return nil, perrors.EmptyLog("summarize")
	}

	durations := make([]float64, 0, len(agg.Cases))
	handovers := make([]float64, 0, len(agg.Cases))
	complexity := make([]float64, 0, len(agg.Cases))
	for _, c := range agg.Cases {
		durations = append(durations, c.DurationHours)
		handovers = append(handovers, float64(c.Handovers))
		complexity = append(complexity, c.ComplexityScore)
	}

	minDur, maxDur := durations[0], durations[0]
	for _, d := range durations[1:] {
		if d < minDur {
			minDur = d
		}
		if d > maxDur {
			maxDur = d
		}
	}

	start, end := log.Events[0].Timestamp, log.Events[0].Timestamp
	for i := range log.Events {
		ts := log.Events[i].Timestamp
		if ts.Before(start) {
			start = ts
		}
		if ts.After(end) {
			end = ts
		}
	}

	kpis := &KPISet{
		Time: TimeKPIs{
			MeanCycleTimeHours:   mean(durations),
			MedianCycleTimeHours: median(durations),
			MinCycleTimeHours:    minDur,
			MaxCycleTimeHours:    maxDur,
		},
		Process: ProcessKPIs{
			NumEvents:      log.NumEvents(),
			NumCases:       len(agg.Cases),
			NumActivities:  len(agg.Activities),
			NumResources:   len(agg.Resources),
			EventsPerCase:  float64(log.NumEvents()) / float64(len(agg.Cases)),
			MeanHandovers:  mean(handovers),
			MeanComplexity: mean(complexity),
		},
		TimeRangeStart: start,
		TimeRangeEnd:   end,
	}

	if log.Capabilities.HasCost {
		kpis.Cost = costStats(log)
	}
	if log.Capabilities.HasCost && log.Capabilities.HasClaimValue {
		kpis.Business = businessKPIs(log, agg)
	}

	return kpis, nil
}

func costStats(log *model.Log) *CostStats {
	costs := make([]float64, 0, len(log.Events))
	for i := range log.Events {
		if c := log.Events[i].Cost; c != nil {
			costs = append(costs, *c)
		}
	}
	return costStatsOf(costs)
}

// costStatsOf summarizes a cost sample, shared by the log-level KPI and
// the per-activity/per-resource groupings.
func costStatsOf(costs []float64) *CostStats {
	if len(costs) == 0 {
		return &CostStats{}
	}

	s := &CostStats{Min: costs[0], Max: costs[0]}
	for _, c := range costs {
		s.Total += c
		if c < s.Min {
			s.Min = c
		}
		if c > s.Max {
			s.Max = c
		}
	}
	s.Mean = mean(costs)
	s.Median = median(costs)
	return s
}

func businessKPIs(log *model.Log, agg *Aggregation) *BusinessKPIs {
	b := &BusinessKPIs{}

	// Claim value is a case-level attribute broadcast onto events; take
	// one value per case.
	claims := 0
	for _, c := range agg.Cases {
		if c.ClaimValue != nil {
			b.TotalClaimValue += *c.ClaimValue
			claims++
		}
		if c.TotalCost != nil {
			b.TotalCost += *c.TotalCost
		}
	}
	if claims > 0 {
		b.MeanClaimValue = b.TotalClaimValue / float64(claims)
	}
	if len(agg.Cases) > 0 {
		b.MeanCostPerCase = b.TotalCost / float64(len(agg.Cases))
	}
	if n := log.NumEvents(); n > 0 {
		b.CostPerEvent = b.TotalCost / float64(n)
	}
	return b
}
