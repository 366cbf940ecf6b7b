package schema

import (
	"testing"

	perrors "github.com/procsight/procsight/pkg/errors"
)

func TestValidate(t *testing.T) {
	m := Default()
	if err := m.Validate(); err != nil {
		t.Fatalf("default mapping invalid: %v", err)
	}

	m.Timestamp = ""
	if perrors.CodeOf(m.Validate()) != perrors.CodeUnmappedField {
		t.Errorf("error code = %v, want %v", perrors.CodeOf(m.Validate()), perrors.CodeUnmappedField)
	}
}

func TestResolve(t *testing.T) {
	m := Mapping{
		CaseID:     "case_id",
		Activity:   "activity",
		Timestamp:  "timestamp",
		Resource:   "resource",
		Cost:       "costs",
		ClaimValue: "claim_value",
		Business:   []string{"risk_level", "missing_col"},
	}
	header := []string{"case_id", "activity", "timestamp", "resource", "costs", "risk_level"}

	idx, err := m.Resolve(header)
	if err != nil {
		t.Fatal(err)
	}

	if idx.CaseID != 0 || idx.Activity != 1 || idx.Timestamp != 2 || idx.Resource != 3 {
		t.Errorf("required indices = %+v", idx)
	}
	if idx.Cost != 4 {
		t.Errorf("cost index = %d, want 4", idx.Cost)
	}
	// claim_value is mapped but absent from the header
	if idx.ClaimValue != -1 {
		t.Errorf("claim value index = %d, want -1", idx.ClaimValue)
	}
	if len(idx.Business) != 1 || idx.Business[0].Column != "risk_level" || idx.Business[0].Pos != 5 {
		t.Errorf("business indices = %+v", idx.Business)
	}
}

func TestResolveMissingRequiredColumn(t *testing.T) {
	m := Mapping{CaseID: "case_id", Activity: "activity", Timestamp: "timestamp", Resource: "resource"}
	_, err := m.Resolve([]string{"case_id", "activity", "timestamp"})
	if perrors.CodeOf(err) != perrors.CodeMissingColumn {
		t.Errorf("error code = %v, want %v", perrors.CodeOf(err), perrors.CodeMissingColumn)
	}
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		name string
		idx  Indices
		cost bool
		clm  bool
		biz  bool
	}{
		{"none", Indices{Cost: -1, ClaimValue: -1}, false, false, false},
		{"cost only", Indices{Cost: 4, ClaimValue: -1}, true, false, false},
		{"all", Indices{Cost: 4, ClaimValue: 5, Business: []BusinessIndex{{"risk_level", 6}}}, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := tt.idx.Capabilities()
			if caps.HasCost != tt.cost || caps.HasClaimValue != tt.clm || caps.HasBusiness != tt.biz {
				t.Errorf("capabilities = %+v", caps)
			}
		})
	}
}

func TestAutoDetectExact(t *testing.T) {
	header := []string{"case:concept:name", "concept:name", "time:timestamp", "org:resource", "costs", "claim_value", "risk_level"}
	m := AutoDetect(header)

	if m.CaseID != "case:concept:name" || m.Activity != "concept:name" {
		t.Errorf("mapping = %+v", m)
	}
	if m.Cost != "costs" || m.ClaimValue != "claim_value" {
		t.Errorf("optional mapping = %+v", m)
	}
	if len(m.Business) != 1 || m.Business[0] != "risk_level" {
		t.Errorf("business = %v", m.Business)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("auto-detected mapping invalid: %v", err)
	}
}

func TestAutoDetectCaseInsensitive(t *testing.T) {
	header := []string{"Case_ID", "Activity", "Timestamp", "Resource"}
	m := AutoDetect(header)

	// Original header casing is preserved in the mapping.
	if m.CaseID != "Case_ID" || m.Activity != "Activity" || m.Timestamp != "Timestamp" || m.Resource != "Resource" {
		t.Errorf("mapping = %+v", m)
	}
}

func TestAutoDetectUnmatched(t *testing.T) {
	m := AutoDetect([]string{"foo", "bar"})
	if m.CaseID != "" {
		t.Errorf("case id = %q, want empty", m.CaseID)
	}
	if err := m.Validate(); err == nil {
		t.Error("expected validation failure for unmatched header")
	}
}
