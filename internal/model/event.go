// Package model defines core data structures for ProcSight.
package model

import "time"

// EventRecord represents a single normalized process event.
// CaseID, Activity, Timestamp and Resource are required after
// normalization; the remaining fields are optional and present only when
// the source schema carries them.
type EventRecord struct {
	// CaseID identifies the process instance (trace).
	CaseID string

	// Activity is the event name/activity label.
	Activity string

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Resource is the actor/resource performing the activity.
	Resource string

	// Cost is the event cost, nil when the source has no cost column.
	Cost *float64

	// ClaimValue is the case claim value carried on the event, nil when
	// the source has no claim value column.
	ClaimValue *float64

	// Business holds additional business attributes by column name
	// (risk_level, request_type, customer_segment, ...).
	Business map[string]string

	// WaitTime is the elapsed time in hours since the previous event of
	// the same case. Nil for the first event of a case.
	WaitTime *float64

	// CaseDurationHours is the full duration of the owning case,
	// broadcast to every event of that case.
	CaseDurationHours float64

	// ComplexityScore is a weighted combination of normalized event
	// count and normalized case duration. Normalization divides by the
	// batch maxima, so the score of a case depends on which other cases
	// were ingested with it.
	ComplexityScore float64
}

// Capabilities records which optional columns the source schema carried.
// Downstream consumers branch on these instead of probing for absent
// values.
type Capabilities struct {
	HasCost       bool `json:"has_cost"`
	HasClaimValue bool `json:"has_claim_value"`
	HasBusiness   bool `json:"has_business"`
}

// Log is an immutable snapshot of a normalized event log. Events are
// sorted by (case id, timestamp) ascending with input order breaking
// ties. A Log is never mutated after construction; cleaning and
// aggregation produce new values.
type Log struct {
	Events       []EventRecord
	Capabilities Capabilities
}

// Empty reports whether the log holds no events.
func (l *Log) Empty() bool {
	return l == nil || len(l.Events) == 0
}

// NumEvents returns the total event count.
func (l *Log) NumEvents() int {
	if l == nil {
		return 0
	}
	return len(l.Events)
}

// NumCases returns the number of distinct cases.
func (l *Log) NumCases() int {
	if l == nil {
		return 0
	}
	seen := make(map[string]struct{}, len(l.Events))
	for i := range l.Events {
		seen[l.Events[i].CaseID] = struct{}{}
	}
	return len(seen)
}

// CaseIDs returns the distinct case ids in first-appearance order.
// Events are sorted by case id, so this is also lexicographic order.
func (l *Log) CaseIDs() []string {
	if l == nil {
		return nil
	}
	ids := make([]string, 0, 16)
	seen := make(map[string]struct{})
	for i := range l.Events {
		id := l.Events[i].CaseID
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// Activities returns the distinct activity names in first-appearance
// order.
func (l *Log) Activities() []string {
	if l == nil {
		return nil
	}
	acts := make([]string, 0, 16)
	seen := make(map[string]struct{})
	for i := range l.Events {
		a := l.Events[i].Activity
		if _, ok := seen[a]; !ok {
			seen[a] = struct{}{}
			acts = append(acts, a)
		}
	}
	return acts
}

// Resources returns the distinct resource names in first-appearance
// order.
func (l *Log) Resources() []string {
	if l == nil {
		return nil
	}
	res := make([]string, 0, 16)
	seen := make(map[string]struct{})
	for i := range l.Events {
		r := l.Events[i].Resource
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			res = append(res, r)
		}
	}
	return res
}

// CaseEvents groups events by case id, preserving the per-case
// chronological order of the log.
func (l *Log) CaseEvents() map[string][]EventRecord {
	if l == nil {
		return nil
	}
	cases := make(map[string][]EventRecord)
	for i := range l.Events {
		e := l.Events[i]
		cases[e.CaseID] = append(cases[e.CaseID], e)
	}
	return cases
}
