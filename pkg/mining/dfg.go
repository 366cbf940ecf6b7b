// Package mining implements control-flow discovery over a normalized
// event log: the directly-follows graph, footprint relations and trace
// variants.
package mining

import (
	"sort"

	"github.com/procsight/procsight/internal/model"
	perrors "github.com/procsight/procsight/pkg/errors"
)

// Edge is a directed activity transition.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DFG is a directly-follows graph with absolute frequencies.
type DFG struct {
	// Edges maps each observed transition to its frequency.
	Edges map[Edge]int

	// StartActivities maps activities that begin a case to the number of
	// cases they begin; EndActivities likewise for case ends.
	StartActivities map[string]int
	EndActivities   map[string]int

	// Activities lists every activity in the log, sorted.
	Activities []string
}

// DiscoverDFG builds the directly-follows graph of a log. Each pair of
// consecutive events within a case contributes one edge observation.
func DiscoverDFG(log *model.Log) (*DFG, error) {
	if log.Empty() {
		return nil, perrors.EmptyLog("discover_dfg")
	}

	dfg := &DFG{
		Edges:           make(map[Edge]int),
		StartActivities: make(map[string]int),
		EndActivities:   make(map[string]int),
	}

	seen := make(map[string]struct{})
	for i := range log.Events {
		e := &log.Events[i]
		if _, ok := seen[e.Activity]; !ok {
			seen[e.Activity] = struct{}{}
			dfg.Activities = append(dfg.Activities, e.Activity)
		}

		first := i == 0 || log.Events[i-1].CaseID != e.CaseID
		last := i == len(log.Events)-1 || log.Events[i+1].CaseID != e.CaseID
		if first {
			dfg.StartActivities[e.Activity]++
		}
		if last {
			dfg.EndActivities[e.Activity]++
		}
		if !first {
			dfg.Edges[Edge{From: log.Events[i-1].Activity, To: e.Activity}]++
		}
	}

	sort.Strings(dfg.Activities)
	return dfg, nil
}

// Follows reports whether a directly precedes b anywhere in the log.
func (d *DFG) Follows(a, b string) bool {
	return d.Edges[Edge{From: a, To: b}] > 0
}

// NumEdges returns the number of distinct transitions.
func (d *DFG) NumEdges() int {
	return len(d.Edges)
}

// EdgeCount pairs an edge with its frequency for ordered output.
type EdgeCount struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// SortedEdges returns edges ordered by descending frequency, then
// lexicographically by endpoints.
func (d *DFG) SortedEdges() []EdgeCount {
	out := make([]EdgeCount, 0, len(d.Edges))
	for e, n := range d.Edges {
		out = append(out, EdgeCount{From: e.From, To: e.To, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// EdgePerformance computes the mean waiting time in hours per edge.
func EdgePerformance(log *model.Log) (map[Edge]float64, error) {
	if log.Empty() {
		return nil, perrors.EmptyLog("edge_performance")
	}

	sums := make(map[Edge]float64)
	counts := make(map[Edge]int)
	for i := 1; i < len(log.Events); i++ {
		prev, cur := &log.Events[i-1], &log.Events[i]
		if prev.CaseID != cur.CaseID || cur.WaitTime == nil {
			continue
		}
		edge := Edge{From: prev.Activity, To: cur.Activity}
		sums[edge] += *cur.WaitTime
		counts[edge]++
	}

	out := make(map[Edge]float64, len(sums))
	for edge, sum := range sums {
		out[edge] = sum / float64(counts[edge])
	}
	return out, nil
}
