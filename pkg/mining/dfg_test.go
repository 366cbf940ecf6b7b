package mining

import (
	"testing"
	"time"

	"github.com/procsight/procsight/internal/model"
	perrors "github.com/procsight/procsight/pkg/errors"
)

func ts(day, hour int) time.Time {
	return time.Date(2024, 5, day, hour, 0, 0, 0, time.UTC)
}

func fptr(v float64) *float64 { return &v }

// miningLog: case A follows Submit -> Review -> Approve, case B follows
// Submit -> Review -> Reject, case C repeats A's path.
func miningLog() *model.Log {
	return &model.Log{
		Events: []model.EventRecord{
			{CaseID: "A", Activity: "Submit", Timestamp: ts(10, 9)},
			{CaseID: "A", Activity: "Review", Timestamp: ts(10, 10), WaitTime: fptr(1)},
			{CaseID: "A", Activity: "Approve", Timestamp: ts(10, 12), WaitTime: fptr(2)},
			{CaseID: "B", Activity: "Submit", Timestamp: ts(11, 9)},
			{CaseID: "B", Activity: "Review", Timestamp: ts(11, 12), WaitTime: fptr(3)},
			{CaseID: "B", Activity: "Reject", Timestamp: ts(11, 13), WaitTime: fptr(1)},
			{CaseID: "C", Activity: "Submit", Timestamp: ts(12, 9)},
			{CaseID: "C", Activity: "Review", Timestamp: ts(12, 11), WaitTime: fptr(2)},
			{CaseID: "C", Activity: "Approve", Timestamp: ts(12, 14), WaitTime: fptr(3)},
		},
	}
}

func TestDiscoverDFGEmptyLog(t *testing.T) {
	_, err := DiscoverDFG(&model.Log{})
	if err == nil {
		t.Fatal("expected error for empty log")
	}
	if perrors.CodeOf(err) != perrors.CodeEmptyLog {
		t.Errorf("error code = %v, want %v", perrors.CodeOf(err), perrors.CodeEmptyLog)
	}
}

func TestDiscoverDFGEdges(t *testing.T) {
	dfg, err := DiscoverDFG(miningLog())
	if err != nil {
		t.Fatalf("DiscoverDFG failed: %v", err)
	}

	want := map[Edge]int{
		{From: "Submit", To: "Review"}:  3,
		{From: "Review", To: "Approve"}: 2,
		{From: "Review", To: "Reject"}:  1,
	}
	if dfg.NumEdges() != len(want) {
		t.Fatalf("got %d edges, want %d", dfg.NumEdges(), len(want))
	}
	for edge, n := range want {
		if dfg.Edges[edge] != n {
			t.Errorf("edge %v = %d, want %d", edge, dfg.Edges[edge], n)
		}
	}
}

func TestDiscoverDFGStartEnd(t *testing.T) {
	dfg, err := DiscoverDFG(miningLog())
	if err != nil {
		t.Fatalf("DiscoverDFG failed: %v", err)
	}
	if dfg.StartActivities["Submit"] != 3 || len(dfg.StartActivities) != 1 {
		t.Errorf("start activities = %v, want Submit:3 only", dfg.StartActivities)
	}
	if dfg.EndActivities["Approve"] != 2 || dfg.EndActivities["Reject"] != 1 {
		t.Errorf("end activities = %v, want Approve:2 Reject:1", dfg.EndActivities)
	}
}

func TestDiscoverDFGSingleEventCase(t *testing.T) {
	log := &model.Log{Events: []model.EventRecord{
		{CaseID: "X", Activity: "Only", Timestamp: ts(10, 9)},
	}}
	dfg, err := DiscoverDFG(log)
	if err != nil {
		t.Fatalf("DiscoverDFG failed: %v", err)
	}
	if dfg.NumEdges() != 0 {
		t.Errorf("single-event case produced %d edges, want 0", dfg.NumEdges())
	}
	if dfg.StartActivities["Only"] != 1 || dfg.EndActivities["Only"] != 1 {
		t.Errorf("activity must be both start and end: %v / %v",
			dfg.StartActivities, dfg.EndActivities)
	}
}

func TestSortedEdges(t *testing.T) {
	dfg, _ := DiscoverDFG(miningLog())
	edges := dfg.SortedEdges()
	if edges[0].From != "Submit" || edges[0].To != "Review" || edges[0].Count != 3 {
		t.Errorf("first edge = %+v, want Submit -> Review x3", edges[0])
	}
	for i := 1; i < len(edges); i++ {
		if edges[i].Count > edges[i-1].Count {
			t.Errorf("edges not sorted by descending count at %d", i)
		}
	}
}

func TestFootprintRelations(t *testing.T) {
	dfg, _ := DiscoverDFG(miningLog())
	fp := NewFootprint(dfg)

	if !fp.Causality("Submit", "Review") {
		t.Error("Submit must cause Review")
	}
	if fp.Causality("Review", "Submit") {
		t.Error("causality is directional")
	}
	if !fp.Choice("Approve", "Reject") {
		t.Error("Approve and Reject never follow each other")
	}
	if fp.Parallel("Submit", "Review") {
		t.Error("one-directional pair must not be parallel")
	}
	if got := fp.Relation("Submit", "Review"); got != RelationCausality {
		t.Errorf("Relation(Submit, Review) = %v, want causality", got)
	}
	if got := fp.Relation("Approve", "Reject"); got != RelationNone {
		t.Errorf("Relation(Approve, Reject) = %v, want none", got)
	}
}

func TestFootprintParallel(t *testing.T) {
	log := &model.Log{Events: []model.EventRecord{
		{CaseID: "A", Activity: "X", Timestamp: ts(10, 9)},
		{CaseID: "A", Activity: "Y", Timestamp: ts(10, 10)},
		{CaseID: "B", Activity: "Y", Timestamp: ts(11, 9)},
		{CaseID: "B", Activity: "X", Timestamp: ts(11, 10)},
	}}
	dfg, _ := DiscoverDFG(log)
	fp := NewFootprint(dfg)
	if !fp.Parallel("X", "Y") {
		t.Error("X and Y observed in both orders must be parallel")
	}
	if got := fp.Relation("X", "Y"); got != RelationParallel {
		t.Errorf("Relation(X, Y) = %v, want parallel", got)
	}
}

func TestVariants(t *testing.T) {
	variants, err := Variants(miningLog())
	if err != nil {
		t.Fatalf("Variants failed: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("got %d variants, want 2", len(variants))
	}
	if variants[0].Key() != "Submit -> Review -> Approve" || variants[0].Count != 2 {
		t.Errorf("top variant = %q x%d, want Submit -> Review -> Approve x2",
			variants[0].Key(), variants[0].Count)
	}
	wantPct := 100 * 2.0 / 3.0
	if variants[0].Percent != wantPct {
		t.Errorf("top variant percent = %v, want %v", variants[0].Percent, wantPct)
	}
	if variants[1].Count != 1 {
		t.Errorf("second variant count = %d, want 1", variants[1].Count)
	}
}

func TestEdgePerformance(t *testing.T) {
	perf, err := EdgePerformance(miningLog())
	if err != nil {
		t.Fatalf("EdgePerformance failed: %v", err)
	}
	if got := perf[Edge{From: "Submit", To: "Review"}]; got != 2.0 {
		t.Errorf("Submit -> Review mean wait = %v, want 2.0", got)
	}
	if got := perf[Edge{From: "Review", To: "Approve"}]; got != 2.5 {
		t.Errorf("Review -> Approve mean wait = %v, want 2.5", got)
	}
}
