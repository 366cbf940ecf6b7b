package ingest

import (
	"time"

	"github.com/procsight/procsight/internal/model"
)

// Clean removes records that normalization kept but analysis cannot use:
// events with an empty required field (case id, activity, timestamp or
// resource), events outside the retention window, and whole cases whose
// first and last timestamps coincide (zero observable duration).
//
// Clean filters only; derived fields keep the values computed over the
// original batch. The input log is not mutated.
func (n *Normalizer) Clean(log *model.Log) *model.Log {
	now := time.Now()
	if n.cfg.Now != nil {
		now = n.cfg.Now()
	}
	cutoff := now.AddDate(0, 0, -n.cfg.RetentionDays)

	kept := make([]model.EventRecord, 0, len(log.Events))
	for _, e := range log.Events {
		if e.CaseID == "" || e.Activity == "" || e.Timestamp.IsZero() || e.Resource == "" {
			continue
		}
		if e.Timestamp.Before(cutoff) || e.Timestamp.After(now) {
			continue
		}
		kept = append(kept, e)
	}

	// Second pass drops zero-duration cases based on what survived the
	// record-level filters.
	type span struct {
		min, max time.Time
	}
	spans := make(map[string]*span)
	for _, e := range kept {
		s, ok := spans[e.CaseID]
		if !ok {
			spans[e.CaseID] = &span{min: e.Timestamp, max: e.Timestamp}
			continue
		}
		if e.Timestamp.Before(s.min) {
			s.min = e.Timestamp
		}
		if e.Timestamp.After(s.max) {
			s.max = e.Timestamp
		}
	}

	out := kept[:0:0]
	for _, e := range kept {
		s := spans[e.CaseID]
		if s.min.Equal(s.max) {
			continue
		}
		out = append(out, e)
	}

	return &model.Log{Events: out, Capabilities: log.Capabilities}
}
