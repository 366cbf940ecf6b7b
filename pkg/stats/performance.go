package stats

import (
	"sort"
	"time"

	"github.com/procsight/procsight/internal/model"
	perrors "github.com/procsight/procsight/pkg/errors"
)

// CaseCycleTime pairs a case with its full duration.
type CaseCycleTime struct {
	CaseID        string  `json:"case_id"`
	DurationHours float64 `json:"duration_hours"`
}

// CycleTimes returns one entry per case, ordered by case id.
func CycleTimes(log *model.Log) ([]CaseCycleTime, error) {
	if log.Empty() {
		return nil, perrors.EmptyLog("cycle_times")
	}

	seen := make(map[string]struct{})
	out := make([]CaseCycleTime, 0, 16)
	for i := range log.Events {
		e := &log.Events[i]
		if _, ok := seen[e.CaseID]; ok {
			continue
		}
		seen[e.CaseID] = struct{}{}
		out = append(out, CaseCycleTime{CaseID: e.CaseID, DurationHours: e.CaseDurationHours})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CaseID < out[j].CaseID })
	return out, nil
}

// WaitingTimes returns the mean waiting time in hours per activity
// transition, keyed "A -> B".
func WaitingTimes(log *model.Log) (map[string]float64, error) {
	if log.Empty() {
		return nil, perrors.EmptyLog("waiting_times")
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i := 1; i < len(log.Events); i++ {
		prev, cur := &log.Events[i-1], &log.Events[i]
		if prev.CaseID != cur.CaseID || cur.WaitTime == nil {
			continue
		}
		key := prev.Activity + " -> " + cur.Activity
		sums[key] += *cur.WaitTime
		counts[key]++
	}

	out := make(map[string]float64, len(sums))
	for key, sum := range sums {
		out[key] = sum / float64(counts[key])
	}
	return out, nil
}

// SojournStats summarize the time events of one activity sit in the
// process before the next activity starts.
type SojournStats struct {
	Activity  string  `json:"activity"`
	Count     int     `json:"count"`
	MinHours  float64 `json:"min_hours"`
	MaxHours  float64 `json:"max_hours"`
	MeanHours float64 `json:"mean_hours"`
}

// SojournTimes computes per-activity sojourn statistics from the gap
// between an event and its successor within the same case. Activities
// that only ever appear last in their case produce no entry.
func SojournTimes(log *model.Log) (map[string]SojournStats, error) {
	if log.Empty() {
		return nil, perrors.EmptyLog("sojourn_times")
	}

	gaps := make(map[string][]float64)
	for i := 0; i+1 < len(log.Events); i++ {
		cur, next := &log.Events[i], &log.Events[i+1]
		if cur.CaseID != next.CaseID {
			continue
		}
		gaps[cur.Activity] = append(gaps[cur.Activity], next.Timestamp.Sub(cur.Timestamp).Hours())
	}

	out := make(map[string]SojournStats, len(gaps))
	for activity, values := range gaps {
		s := SojournStats{
			Activity: activity,
			Count:    len(values),
			MinHours: values[0],
			MaxHours: values[0],
		}
		for _, v := range values {
			if v < s.MinHours {
				s.MinHours = v
			}
			if v > s.MaxHours {
				s.MaxHours = v
			}
		}
		s.MeanHours = mean(values)
		out[activity] = s
	}
	return out, nil
}

// TimeRange returns the first and last timestamp in the log.
func TimeRange(log *model.Log) (start, end time.Time) {
	if log.Empty() {
		return time.Time{}, time.Time{}
	}
	start, end = log.Events[0].Timestamp, log.Events[0].Timestamp
	for i := range log.Events {
		ts := log.Events[i].Timestamp
		if ts.Before(start) {
			start = ts
		}
		if ts.After(end) {
			end = ts
		}
	}
	return start, end
}
