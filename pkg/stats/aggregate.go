// Package stats computes the grouped aggregations and KPI summaries of a
// normalized event log: per-case, per-activity and per-resource metrics,
// cost statistics and the top-level KPI set.
package stats

import (
	"sort"
	"time"

	"github.com/procsight/procsight/internal/model"
	perrors "github.com/procsight/procsight/pkg/errors"
)

// CaseMetrics aggregates one case.
type CaseMetrics struct {
	CaseID          string    `json:"case_id"`
	NumEvents       int       `json:"num_events"`
	NumResources    int       `json:"num_resources"`
	Handovers       int       `json:"handovers"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationHours   float64   `json:"duration_hours"`
	TotalCost       *float64  `json:"total_cost,omitempty"`
	ClaimValue      *float64  `json:"claim_value,omitempty"`
	ComplexityScore float64   `json:"complexity_score"`
}

// ActivityMetrics aggregates one activity across all cases. MeanCaseHours
// averages the durations of the cases touching the activity, one sample
// per case regardless of how often the activity repeats within it.
type ActivityMetrics struct {
	Activity      string         `json:"activity"`
	Frequency     int            `json:"frequency"`
	NumCases      int            `json:"num_cases"`
	NumResources  int            `json:"num_resources"`
	ResourceDist  map[string]int `json:"resource_dist"`
	MeanWaitHours *float64       `json:"mean_wait_hours,omitempty"`
	MeanCaseHours float64        `json:"mean_case_hours"`
	Cost          *CostStats     `json:"cost,omitempty"`
}

// ResourceMetrics aggregates one resource across all cases. Same shape as
// ActivityMetrics with the activity distribution in place of the
// resource one.
type ResourceMetrics struct {
	Resource      string         `json:"resource"`
	Frequency     int            `json:"frequency"`
	NumCases      int            `json:"num_cases"`
	NumActivities int            `json:"num_activities"`
	ActivityDist  map[string]int `json:"activity_dist"`
	MeanWaitHours *float64       `json:"mean_wait_hours,omitempty"`
	MeanCaseHours float64        `json:"mean_case_hours"`
	Cost          *CostStats     `json:"cost,omitempty"`
}

// Aggregation bundles the three grouped views of a log.
type Aggregation struct {
	Cases      map[string]*CaseMetrics     `json:"cases"`
	Activities map[string]*ActivityMetrics `json:"activities"`
	Resources  map[string]*ResourceMetrics `json:"resources"`
}

// Aggregate computes per-case, per-activity and per-resource metrics in a
// single pass over the log. An empty log is an error; callers that want
// empty results must check first.
func Aggregate(log *model.Log) (*Aggregation, error) {
	if log.Empty() {
		return nil, perrors.EmptyLog("aggregate")
	}

	agg := &Aggregation{
		Cases:      make(map[string]*CaseMetrics),
		Activities: make(map[string]*ActivityMetrics),
		Resources:  make(map[string]*ResourceMetrics),
	}

	caseResources := make(map[string]map[string]struct{})
	activityCases := make(map[string]map[string]struct{})
	activityWaits := make(map[string][]float64)
	activityCaseHours := make(map[string][]float64)
	activityCosts := make(map[string][]float64)
	resourceCases := make(map[string]map[string]struct{})
	resourceCaseHours := make(map[string][]float64)
	resourceWaits := make(map[string][]float64)
	resourceCosts := make(map[string][]float64)

	for i := range log.Events {
		e := &log.Events[i]

		c, ok := agg.Cases[e.CaseID]
		if !ok {
			c = &CaseMetrics{
				CaseID:          e.CaseID,
				Start:           e.Timestamp,
				End:             e.Timestamp,
				DurationHours:   e.CaseDurationHours,
				ComplexityScore: e.ComplexityScore,
			}
			agg.Cases[e.CaseID] = c
			caseResources[e.CaseID] = make(map[string]struct{})
		}
		c.NumEvents++
		if e.Timestamp.Before(c.Start) {
			c.Start = e.Timestamp
		}
		if e.Timestamp.After(c.End) {
			c.End = e.Timestamp
		}
		caseResources[e.CaseID][e.Resource] = struct{}{}
		if e.Cost != nil {
			if c.TotalCost == nil {
				c.TotalCost = new(float64)
			}
			*c.TotalCost += *e.Cost
		}
		if e.ClaimValue != nil && c.ClaimValue == nil {
			v := *e.ClaimValue
			c.ClaimValue = &v
		}

		a, ok := agg.Activities[e.Activity]
		if !ok {
			a = &ActivityMetrics{Activity: e.Activity, ResourceDist: make(map[string]int)}
			agg.Activities[e.Activity] = a
			activityCases[e.Activity] = make(map[string]struct{})
		}
		a.Frequency++
		a.ResourceDist[e.Resource]++
		// One duration sample per case, however often the activity
		// repeats within it.
		if _, seen := activityCases[e.Activity][e.CaseID]; !seen {
			activityCases[e.Activity][e.CaseID] = struct{}{}
			activityCaseHours[e.Activity] = append(activityCaseHours[e.Activity], e.CaseDurationHours)
		}
		if e.WaitTime != nil {
			activityWaits[e.Activity] = append(activityWaits[e.Activity], *e.WaitTime)
		}
		if e.Cost != nil {
			activityCosts[e.Activity] = append(activityCosts[e.Activity], *e.Cost)
		}

		r, ok := agg.Resources[e.Resource]
		if !ok {
			r = &ResourceMetrics{Resource: e.Resource, ActivityDist: make(map[string]int)}
			agg.Resources[e.Resource] = r
			resourceCases[e.Resource] = make(map[string]struct{})
		}
		r.Frequency++
		r.ActivityDist[e.Activity]++
		if _, seen := resourceCases[e.Resource][e.CaseID]; !seen {
			resourceCases[e.Resource][e.CaseID] = struct{}{}
			resourceCaseHours[e.Resource] = append(resourceCaseHours[e.Resource], e.CaseDurationHours)
		}
		if e.WaitTime != nil {
			resourceWaits[e.Resource] = append(resourceWaits[e.Resource], *e.WaitTime)
		}
		if e.Cost != nil {
			resourceCosts[e.Resource] = append(resourceCosts[e.Resource], *e.Cost)
		}
	}

	for id, c := range agg.Cases {
		c.NumResources = len(caseResources[id])
		// A handover is a change of hands, so n distinct resources make
		// n-1 handovers at minimum.
		c.Handovers = c.NumResources - 1
	}
	for name, a := range agg.Activities {
		a.NumCases = len(activityCases[name])
		a.NumResources = len(a.ResourceDist)
		a.MeanCaseHours = mean(activityCaseHours[name])
		if waits := activityWaits[name]; len(waits) > 0 {
			m := mean(waits)
			a.MeanWaitHours = &m
		}
		if costs := activityCosts[name]; len(costs) > 0 {
			a.Cost = costStatsOf(costs)
		}
	}
	for name, r := range agg.Resources {
		r.NumCases = len(resourceCases[name])
		r.NumActivities = len(r.ActivityDist)
		r.MeanCaseHours = mean(resourceCaseHours[name])
		if waits := resourceWaits[name]; len(waits) > 0 {
			m := mean(waits)
			r.MeanWaitHours = &m
		}
		if costs := resourceCosts[name]; len(costs) > 0 {
			r.Cost = costStatsOf(costs)
		}
	}

	return agg, nil
}

// SortedCases returns case metrics ordered by case id.
func (a *Aggregation) SortedCases() []*CaseMetrics {
	out := make([]*CaseMetrics, 0, len(a.Cases))
	for _, c := range a.Cases {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CaseID < out[j].CaseID })
	return out
}

// SortedActivities returns activity metrics ordered by descending
// frequency, name breaking ties.
func (a *Aggregation) SortedActivities() []*ActivityMetrics {
	out := make([]*ActivityMetrics, 0, len(a.Activities))
	for _, m := range a.Activities {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Activity < out[j].Activity
	})
	return out
}

// SortedResources returns resource metrics ordered by descending
// frequency, name breaking ties.
func (a *Aggregation) SortedResources() []*ResourceMetrics {
	out := make([]*ResourceMetrics, 0, len(a.Resources))
	for _, m := range a.Resources {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Resource < out[j].Resource
	})
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
