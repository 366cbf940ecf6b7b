// Package ingest turns raw tabular input into a normalized, sorted event
// log with derived per-event fields, and provides the cleaning pass that
// drops invalid records and degenerate cases.
package ingest

import (
	"sort"
	"strconv"
	"time"

	"github.com/procsight/procsight/internal/model"
	perrors "github.com/procsight/procsight/pkg/errors"
	"github.com/procsight/procsight/pkg/parser"
	"github.com/procsight/procsight/pkg/schema"
)

// DefaultTimestampLayout is the expected textual timestamp pattern.
const DefaultTimestampLayout = "2006-01-02 15:04:05"

// DefaultRetentionDays bounds how old a timestamp may be before cleaning
// discards the record.
const DefaultRetentionDays = 365

// Config controls normalization.
type Config struct {
	Mapping         schema.Mapping
	TimestampLayout string
	RetentionDays   int

	// Now is the reference clock for the cleaning window. Nil means
	// time.Now; tests inject a fixed clock.
	Now func() time.Time
}

// DefaultConfig returns a Config with the XES-standard mapping.
func DefaultConfig() Config {
	return Config{
		Mapping:         schema.Default(),
		TimestampLayout: DefaultTimestampLayout,
		RetentionDays:   DefaultRetentionDays,
	}
}

// Normalizer converts raw tables into normalized event logs. It is a
// pure function of its input; no state survives between calls.
type Normalizer struct {
	cfg Config
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(cfg Config) *Normalizer {
	if cfg.TimestampLayout == "" {
		cfg.TimestampLayout = DefaultTimestampLayout
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	return &Normalizer{cfg: cfg}
}

// Normalize validates the column mapping against the table header,
// parses every row into an EventRecord, sorts the result by
// (case id, timestamp) ascending with a stable sort, and derives
// wait time, case duration and complexity score per record.
//
// Unparseable timestamps and numeric fields fail fast; there is no
// silent coercion. Empty required string fields survive normalization
// and are removed by Clean.
func (n *Normalizer) Normalize(table *parser.Table) (*model.Log, error) {
	idx, err := n.cfg.Mapping.Resolve(table.Header)
	if err != nil {
		return nil, err
	}

	events := make([]model.EventRecord, 0, table.NumRows())
	for row := 0; row < table.NumRows(); row++ {
		e := model.EventRecord{
			CaseID:   table.Field(row, idx.CaseID),
			Activity: table.Field(row, idx.Activity),
			Resource: table.Field(row, idx.Resource),
		}

		raw := table.Field(row, idx.Timestamp)
		ts, err := n.parseTimestamp(raw)
		if err != nil {
			return nil, perrors.InvalidTimestamp(raw, row)
		}
		e.Timestamp = ts

		if idx.Cost >= 0 {
			if e.Cost, err = parseOptionalFloat(table.Field(row, idx.Cost)); err != nil {
				return nil, perrors.InvalidNumber(n.cfg.Mapping.Cost, table.Field(row, idx.Cost), row)
			}
		}
		if idx.ClaimValue >= 0 {
			if e.ClaimValue, err = parseOptionalFloat(table.Field(row, idx.ClaimValue)); err != nil {
				return nil, perrors.InvalidNumber(n.cfg.Mapping.ClaimValue, table.Field(row, idx.ClaimValue), row)
			}
		}
		for _, b := range idx.Business {
			if v := table.Field(row, b.Pos); v != "" {
				if e.Business == nil {
					e.Business = make(map[string]string, len(idx.Business))
				}
				e.Business[b.Column] = v
			}
		}

		events = append(events, e)
	}

	sortEvents(events)
	deriveFields(events)

	return &model.Log{
		Events:       events,
		Capabilities: idx.Capabilities(),
	}, nil
}

// parseTimestamp parses the configured layout, falling back to RFC3339
// variants for XES-sourced tables.
func (n *Normalizer) parseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(n.cfg.TimestampLayout, raw)
	if err == nil {
		return t, nil
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05.000Z07:00", "2006-01-02T15:04:05"} {
		if t, err2 := time.Parse(layout, raw); err2 == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func parseOptionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// sortEvents sorts by (case id, timestamp) ascending. The sort is
// stable, so ties keep original input order.
func sortEvents(events []model.EventRecord) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CaseID != events[j].CaseID {
			return events[i].CaseID < events[j].CaseID
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// deriveFields computes wait time, case duration and complexity score.
// Must be called on events already sorted by (case id, timestamp).
func deriveFields(events []model.EventRecord) {
	type caseSpan struct {
		start, end time.Time
		count      int
	}
	spans := make(map[string]*caseSpan)

	for i := range events {
		e := &events[i]
		s, ok := spans[e.CaseID]
		if !ok {
			spans[e.CaseID] = &caseSpan{start: e.Timestamp, end: e.Timestamp, count: 1}
			continue
		}
		if e.Timestamp.Before(s.start) {
			s.start = e.Timestamp
		}
		if e.Timestamp.After(s.end) {
			s.end = e.Timestamp
		}
		s.count++
	}

	// Batch maxima for complexity normalization. A zero maximum yields a
	// normalized value of zero rather than dividing by zero.
	maxCount, maxDuration := 0, 0.0
	for _, s := range spans {
		if s.count > maxCount {
			maxCount = s.count
		}
		if d := s.end.Sub(s.start).Hours(); d > maxDuration {
			maxDuration = d
		}
	}

	for i := range events {
		e := &events[i]
		s := spans[e.CaseID]
		e.CaseDurationHours = s.end.Sub(s.start).Hours()

		normCount := 0.0
		if maxCount > 0 {
			normCount = float64(s.count) / float64(maxCount)
		}
		normDuration := 0.0
		if maxDuration > 0 {
			normDuration = e.CaseDurationHours / maxDuration
		}
		e.ComplexityScore = 0.5*normCount + 0.5*normDuration

		if i > 0 && events[i-1].CaseID == e.CaseID {
			wait := e.Timestamp.Sub(events[i-1].Timestamp).Hours()
			e.WaitTime = &wait
		} else {
			e.WaitTime = nil
		}
	}
}
