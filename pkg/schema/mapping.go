// Package schema maps arbitrary source columns onto the semantic fields
// of a process event log and records which optional capabilities the
// source carries.
package schema

import (
	"strings"

	"github.com/procsight/procsight/internal/model"
	perrors "github.com/procsight/procsight/pkg/errors"
)

// XES-standard column names, used as defaults throughout.
const (
	DefaultCaseIDColumn    = "case:concept:name"
	DefaultActivityColumn  = "concept:name"
	DefaultTimestampColumn = "time:timestamp"
	DefaultResourceColumn  = "org:resource"
	DefaultCostColumn      = "costs"
	DefaultClaimColumn     = "claim_value"
)

// Mapping assigns source column names to semantic fields. The four
// required fields must all be mapped; the rest are optional and empty
// means "not present".
type Mapping struct {
	CaseID    string `json:"case_id_column" yaml:"case_id_column"`
	Activity  string `json:"activity_column" yaml:"activity_column"`
	Timestamp string `json:"timestamp_column" yaml:"timestamp_column"`
	Resource  string `json:"resource_column" yaml:"resource_column"`

	Cost       string `json:"cost_column,omitempty" yaml:"cost_column"`
	ClaimValue string `json:"claim_value_column,omitempty" yaml:"claim_value_column"`

	// Business lists additional business attribute columns to carry
	// onto each event (risk_level, request_type, ...).
	Business []string `json:"business_columns,omitempty" yaml:"business_columns"`
}

// Default returns the XES-standard mapping.
func Default() Mapping {
	return Mapping{
		CaseID:    DefaultCaseIDColumn,
		Activity:  DefaultActivityColumn,
		Timestamp: DefaultTimestampColumn,
		Resource:  DefaultResourceColumn,
	}
}

// Validate checks that every required field has a source column.
func (m Mapping) Validate() error {
	required := []struct {
		field  string
		column string
	}{
		{"case_id", m.CaseID},
		{"activity", m.Activity},
		{"timestamp", m.Timestamp},
		{"resource", m.Resource},
	}
	for _, r := range required {
		if r.column == "" {
			return perrors.UnmappedField(r.field)
		}
	}
	return nil
}

// Resolve locates each mapped column in a header row and returns the
// column indices. Required columns that are absent produce a
// MissingColumn error; optional columns resolve to -1 when absent.
func (m Mapping) Resolve(header []string) (Indices, error) {
	if err := m.Validate(); err != nil {
		return Indices{}, err
	}

	byName := make(map[string]int, len(header))
	for i, col := range header {
		byName[col] = i
	}

	find := func(col string) int {
		if idx, ok := byName[col]; ok {
			return idx
		}
		return -1
	}

	idx := Indices{
		CaseID:     find(m.CaseID),
		Activity:   find(m.Activity),
		Timestamp:  find(m.Timestamp),
		Resource:   find(m.Resource),
		Cost:       -1,
		ClaimValue: -1,
	}

	required := []struct {
		column string
		pos    int
	}{
		{m.CaseID, idx.CaseID},
		{m.Activity, idx.Activity},
		{m.Timestamp, idx.Timestamp},
		{m.Resource, idx.Resource},
	}
	for _, r := range required {
		if r.pos < 0 {
			return Indices{}, perrors.MissingColumn(r.column, header)
		}
	}

	if m.Cost != "" {
		idx.Cost = find(m.Cost)
	}
	if m.ClaimValue != "" {
		idx.ClaimValue = find(m.ClaimValue)
	}
	for _, col := range m.Business {
		if pos := find(col); pos >= 0 {
			idx.Business = append(idx.Business, BusinessIndex{Column: col, Pos: pos})
		}
	}

	return idx, nil
}

// Indices holds resolved column positions. Optional fields are -1 when
// the source does not carry them.
type Indices struct {
	CaseID     int
	Activity   int
	Timestamp  int
	Resource   int
	Cost       int
	ClaimValue int
	Business   []BusinessIndex
}

// BusinessIndex pairs a business column name with its position.
type BusinessIndex struct {
	Column string
	Pos    int
}

// Capabilities derives the capability set from resolved indices.
func (idx Indices) Capabilities() model.Capabilities {
	return model.Capabilities{
		HasCost:       idx.Cost >= 0,
		HasClaimValue: idx.ClaimValue >= 0,
		HasBusiness:   len(idx.Business) > 0,
	}
}

// Common column name patterns for auto-detection.
var (
	casePatterns      = []string{"case:concept:name", "case_id", "caseid", "case", "order_id", "orderid", "ticket_id"}
	activityPatterns  = []string{"concept:name", "activity", "activity_name", "event", "action", "step"}
	timestampPatterns = []string{"time:timestamp", "timestamp", "time", "datetime", "date", "created_at", "event_time"}
	resourcePatterns  = []string{"org:resource", "resource", "user", "agent", "handler", "operator", "employee"}
	costPatterns      = []string{"costs", "cost", "amount"}
	claimPatterns     = []string{"claim_value", "claim_amount"}
	businessPatterns  = []string{"risk_level", "request_type", "claim_category", "customer_segment"}
)

// AutoDetect attempts to detect a column mapping from header names.
// Fields that cannot be matched are left empty; the caller decides
// whether the result is usable via Validate.
func AutoDetect(header []string) Mapping {
	colLower := make(map[string]string, len(header))
	for _, col := range header {
		colLower[strings.ToLower(col)] = col
	}

	m := Mapping{
		CaseID:     matchPattern(colLower, casePatterns),
		Activity:   matchPattern(colLower, activityPatterns),
		Timestamp:  matchPattern(colLower, timestampPatterns),
		Resource:   matchPattern(colLower, resourcePatterns),
		Cost:       matchPattern(colLower, costPatterns),
		ClaimValue: matchPattern(colLower, claimPatterns),
	}

	for _, pattern := range businessPatterns {
		if original, ok := colLower[pattern]; ok {
			m.Business = append(m.Business, original)
		}
	}

	return m
}

// matchPattern finds the first column matching a pattern, trying exact
// matches before substring matches.
func matchPattern(columns map[string]string, patterns []string) string {
	for _, pattern := range patterns {
		if original, ok := columns[pattern]; ok {
			return original
		}
	}
	for _, pattern := range patterns {
		for lower, original := range columns {
			if strings.Contains(lower, pattern) {
				return original
			}
		}
	}
	return ""
}
