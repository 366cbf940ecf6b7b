package ingest

import (
	"errors"
	"testing"
	"time"

	perrors "github.com/procsight/procsight/pkg/errors"
	"github.com/procsight/procsight/pkg/parser"
	"github.com/procsight/procsight/pkg/schema"
)

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Mapping = schema.Mapping{
		CaseID:     "case_id",
		Activity:   "activity",
		Timestamp:  "timestamp",
		Resource:   "resource",
		Cost:       "costs",
		ClaimValue: "claim_value",
	}
	cfg.Now = fixedClock
	return cfg
}

func simpleTable() *parser.Table {
	return &parser.Table{
		Header: []string{"case_id", "activity", "timestamp", "resource", "costs", "claim_value"},
		Rows: [][]string{
			{"A", "Review", "2024-05-10 12:00:00", "bob", "25.0", "1000"},
			{"A", "Submit", "2024-05-10 09:00:00", "alice", "10.5", "1000"},
			{"B", "Submit", "2024-05-11 08:00:00", "alice", "", ""},
			{"B", "Approve", "2024-05-11 14:00:00", "carol", "40", ""},
			{"B", "Close", "2024-05-11 20:00:00", "carol", "5", ""},
		},
	}
}

func TestNormalizeSortsByCaseThenTimestamp(t *testing.T) {
	n := NewNormalizer(testConfig())
	log, err := n.Normalize(simpleTable())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	want := []struct {
		caseID   string
		activity string
	}{
		{"A", "Submit"},
		{"A", "Review"},
		{"B", "Submit"},
		{"B", "Approve"},
		{"B", "Close"},
	}
	if len(log.Events) != len(want) {
		t.Fatalf("got %d events, want %d", len(log.Events), len(want))
	}
	for i, w := range want {
		e := log.Events[i]
		if e.CaseID != w.caseID || e.Activity != w.activity {
			t.Errorf("event %d = (%s, %s), want (%s, %s)", i, e.CaseID, e.Activity, w.caseID, w.activity)
		}
	}
}

func TestNormalizeIsIdempotentOnSortedInput(t *testing.T) {
	n := NewNormalizer(testConfig())
	first, err := n.Normalize(simpleTable())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	// Feed the sorted output back through as a table; order and derived
	// values must not change.
	table := &parser.Table{Header: []string{"case_id", "activity", "timestamp", "resource", "costs", "claim_value"}}
	for _, e := range first.Events {
		table.Rows = append(table.Rows, []string{
			e.CaseID, e.Activity, e.Timestamp.Format(DefaultTimestampLayout), e.Resource, "", "",
		})
	}
	second, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("second Normalize failed: %v", err)
	}

	for i := range first.Events {
		a, b := first.Events[i], second.Events[i]
		if a.CaseID != b.CaseID || a.Activity != b.Activity || !a.Timestamp.Equal(b.Timestamp) {
			t.Fatalf("event %d changed across normalization: %+v vs %+v", i, a, b)
		}
		if a.CaseDurationHours != b.CaseDurationHours || a.ComplexityScore != b.ComplexityScore {
			t.Fatalf("derived fields changed for event %d", i)
		}
	}
}

func TestNormalizeDerivedFields(t *testing.T) {
	n := NewNormalizer(testConfig())
	log, err := n.Normalize(simpleTable())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	// Case A spans 09:00 to 12:00.
	if got := log.Events[0].CaseDurationHours; got != 3.0 {
		t.Errorf("case A duration = %v, want 3.0", got)
	}
	if log.Events[0].WaitTime != nil {
		t.Errorf("first event of case A has wait time %v, want nil", *log.Events[0].WaitTime)
	}
	if log.Events[1].WaitTime == nil || *log.Events[1].WaitTime != 3.0 {
		t.Errorf("second event of case A wait = %v, want 3.0", log.Events[1].WaitTime)
	}

	// Case B: 3 events over 12 hours, so it carries the batch maxima and
	// complexity 1.0. Case A: 2/3 count, 3/12 duration.
	if got := log.Events[2].ComplexityScore; got != 1.0 {
		t.Errorf("case B complexity = %v, want 1.0", got)
	}
	wantA := 0.5*(2.0/3.0) + 0.5*(3.0/12.0)
	if got := log.Events[0].ComplexityScore; got != wantA {
		t.Errorf("case A complexity = %v, want %v", got, wantA)
	}
}

func TestNormalizeZeroDurationMaximum(t *testing.T) {
	n := NewNormalizer(testConfig())
	table := &parser.Table{
		Header: []string{"case_id", "activity", "timestamp", "resource", "costs", "claim_value"},
		Rows: [][]string{
			{"A", "Only", "2024-05-10 09:00:00", "alice", "", ""},
		},
	}
	log, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	// Single-event batch: duration maximum is zero, count maximum is one.
	want := 0.5 * 1.0
	if got := log.Events[0].ComplexityScore; got != want {
		t.Errorf("complexity = %v, want %v", got, want)
	}
}

func TestNormalizeCapabilities(t *testing.T) {
	n := NewNormalizer(testConfig())
	log, err := n.Normalize(simpleTable())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !log.Capabilities.HasCost || !log.Capabilities.HasClaimValue {
		t.Errorf("capabilities = %+v, want cost and claim value present", log.Capabilities)
	}
	if log.Capabilities.HasBusiness {
		t.Errorf("capabilities report business columns on a source without them")
	}
}

func TestNormalizeRFC3339Fallback(t *testing.T) {
	n := NewNormalizer(testConfig())
	table := &parser.Table{
		Header: []string{"case_id", "activity", "timestamp", "resource", "costs", "claim_value"},
		Rows: [][]string{
			{"A", "Submit", "2024-05-10T09:00:00+00:00", "alice", "", ""},
			{"A", "Review", "2024-05-10T12:00:00.000+00:00", "bob", "", ""},
		},
	}
	log, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got := log.Events[1].CaseDurationHours; got != 3.0 {
		t.Errorf("duration = %v, want 3.0", got)
	}
}

func TestNormalizeInvalidTimestamp(t *testing.T) {
	n := NewNormalizer(testConfig())
	table := simpleTable()
	table.Rows[2][2] = "yesterday"
	_, err := n.Normalize(table)
	if err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
	if !perrors.IsParse(err) {
		t.Errorf("error code = %v, want parse error", perrors.CodeOf(err))
	}
}

func TestNormalizeInvalidNumber(t *testing.T) {
	n := NewNormalizer(testConfig())
	table := simpleTable()
	table.Rows[0][4] = "twenty-five"
	_, err := n.Normalize(table)
	if err == nil {
		t.Fatal("expected error for malformed cost")
	}
	if perrors.CodeOf(err) != perrors.CodeInvalidNumber {
		t.Errorf("error code = %v, want %v", perrors.CodeOf(err), perrors.CodeInvalidNumber)
	}
}

func TestNormalizeMissingRequiredColumn(t *testing.T) {
	n := NewNormalizer(testConfig())
	table := simpleTable()
	table.Header[0] = "id"
	_, err := n.Normalize(table)
	if err == nil {
		t.Fatal("expected error for missing case id column")
	}
	var pe *perrors.Error
	if !errors.As(err, &pe) || pe.Code != perrors.CodeMissingColumn {
		t.Errorf("error = %v, want missing column", err)
	}
}

func TestCleanDropsEmptyRequiredFields(t *testing.T) {
	n := NewNormalizer(testConfig())
	table := simpleTable()
	table.Rows = append(table.Rows, []string{"", "Orphan", "2024-05-12 10:00:00", "dave", "", ""})
	table.Rows = append(table.Rows, []string{"C", "", "2024-05-12 10:00:00", "dave", "", ""})
	log, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	clean := n.Clean(log)
	if clean.NumEvents() != 5 {
		t.Errorf("clean kept %d events, want 5", clean.NumEvents())
	}
	for _, e := range clean.Events {
		if e.CaseID == "" || e.Activity == "" {
			t.Errorf("clean kept event with empty required field: %+v", e)
		}
	}
}

func TestCleanDropsEmptyResource(t *testing.T) {
	n := NewNormalizer(testConfig())
	table := simpleTable()
	table.Rows = append(table.Rows, []string{"R", "Submit", "2024-05-12 09:00:00", "erin", "", ""})
	table.Rows = append(table.Rows, []string{"R", "Review", "2024-05-12 10:00:00", "", "", ""})
	table.Rows = append(table.Rows, []string{"R", "Approve", "2024-05-12 11:00:00", "erin", "", ""})
	log, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	clean := n.Clean(log)
	for _, e := range clean.Events {
		if e.Resource == "" {
			t.Errorf("clean kept event with empty resource: case=%s activity=%s", e.CaseID, e.Activity)
		}
	}
	// Case R keeps its first and last events; only the resourceless one
	// is dropped.
	kept := 0
	for _, e := range clean.Events {
		if e.CaseID == "R" {
			kept++
		}
	}
	if kept != 2 {
		t.Errorf("case R kept %d events, want 2", kept)
	}
	if clean.NumEvents() != 7 {
		t.Errorf("clean kept %d events, want 7", clean.NumEvents())
	}
}

func TestCleanDropsRecordsOutsideRetentionWindow(t *testing.T) {
	n := NewNormalizer(testConfig())
	table := simpleTable()
	// Two years old and in the future.
	table.Rows = append(table.Rows, []string{"D", "Ancient", "2022-05-10 09:00:00", "alice", "", ""})
	table.Rows = append(table.Rows, []string{"D", "Ancient2", "2022-05-10 11:00:00", "alice", "", ""})
	table.Rows = append(table.Rows, []string{"E", "Future", "2025-01-01 09:00:00", "alice", "", ""})
	log, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	clean := n.Clean(log)
	for _, e := range clean.Events {
		if e.CaseID == "D" || e.CaseID == "E" {
			t.Errorf("clean kept out-of-window event: %+v", e)
		}
	}
	if clean.NumEvents() != 5 {
		t.Errorf("clean kept %d events, want 5", clean.NumEvents())
	}
}

func TestCleanDropsZeroDurationCases(t *testing.T) {
	n := NewNormalizer(testConfig())
	table := simpleTable()
	table.Rows = append(table.Rows, []string{"Z", "Instant", "2024-05-12 10:00:00", "dave", "", ""})
	table.Rows = append(table.Rows, []string{"Z", "Instant2", "2024-05-12 10:00:00", "dave", "", ""})
	log, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	clean := n.Clean(log)
	for _, e := range clean.Events {
		if e.CaseID == "Z" {
			t.Errorf("clean kept zero-duration case event: %+v", e)
		}
	}
}

func TestCleanPreservesDerivedValues(t *testing.T) {
	n := NewNormalizer(testConfig())
	table := simpleTable()
	table.Rows = append(table.Rows, []string{"D", "Ancient", "2022-05-10 09:00:00", "alice", "", ""})
	table.Rows = append(table.Rows, []string{"D", "Ancient2", "2022-06-10 11:00:00", "alice", "", ""})
	log, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	// Case D is the longest case in the batch, so case B's complexity was
	// normalized against it. Cleaning filters only; B keeps that score.
	var before float64
	for _, e := range log.Events {
		if e.CaseID == "B" {
			before = e.ComplexityScore
			break
		}
	}
	clean := n.Clean(log)
	for _, e := range clean.Events {
		if e.CaseID == "B" && e.ComplexityScore != before {
			t.Errorf("complexity changed after clean: %v vs %v", e.ComplexityScore, before)
		}
	}
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	n := NewNormalizer(testConfig())
	table := simpleTable()
	table.Rows = append(table.Rows, []string{"", "Orphan", "2024-05-12 10:00:00", "dave", "", ""})
	log, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	before := log.NumEvents()
	_ = n.Clean(log)
	if log.NumEvents() != before {
		t.Errorf("Clean mutated input log: %d events, had %d", log.NumEvents(), before)
	}
}
