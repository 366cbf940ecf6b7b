package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/procsight/procsight/internal/model"
	"github.com/procsight/procsight/pkg/charts"
	"github.com/procsight/procsight/pkg/mining"
	"github.com/procsight/procsight/pkg/parser"
	"github.com/procsight/procsight/pkg/present"
	"github.com/procsight/procsight/pkg/schema"
	"github.com/procsight/procsight/pkg/session"
	"github.com/procsight/procsight/pkg/stats"
	"github.com/procsight/procsight/pkg/telemetry"
)

// ingestMapping carries per-upload column mapping overrides from the
// multipart form. Empty fields keep the configured defaults.
type ingestMapping struct {
	CaseID     string
	Activity   string
	Timestamp  string
	Resource   string
	Cost       string
	ClaimValue string
}

func (m *ingestMapping) apply(target *schema.Mapping) {
	if m.CaseID != "" {
		target.CaseID = m.CaseID
	}
	if m.Activity != "" {
		target.Activity = m.Activity
	}
	if m.Timestamp != "" {
		target.Timestamp = m.Timestamp
	}
	if m.Resource != "" {
		target.Resource = m.Resource
	}
	if m.Cost != "" {
		target.Cost = m.Cost
	}
	if m.ClaimValue != "" {
		target.ClaimValue = m.ClaimValue
	}
}

// handleUpload accepts a multipart event log upload, normalizes it and
// registers a session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadSize); err != nil {
		jsonError(w, "Failed to parse upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	format := parser.DetectFormat(header.Filename, r.FormValue("format"))
	reader, err := parser.NewReader(format, parser.DefaultConfig())
	if err != nil {
		jsonCodedError(w, err)
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), "parse")
	table, err := reader.Read(ctx, file)
	span.End()
	if err != nil {
		jsonCodedError(w, err)
		return
	}

	override := &ingestMapping{
		CaseID:     r.FormValue("case_id_column"),
		Activity:   r.FormValue("activity_column"),
		Timestamp:  r.FormValue("timestamp_column"),
		Resource:   r.FormValue("resource_column"),
		Cost:       r.FormValue("cost_column"),
		ClaimValue: r.FormValue("claim_value_column"),
	}

	_, span = telemetry.StartSpan(ctx, "normalize")
	log, err := s.normalizer(override).Normalize(table)
	span.End()
	if err != nil {
		jsonCodedError(w, err)
		return
	}

	snap := s.sessions.Put(header.Filename, log)
	jsonResponse(w, map[string]any{
		"session_id":   snap.ID,
		"file_name":    snap.Name,
		"num_events":   log.NumEvents(),
		"num_cases":    log.NumCases(),
		"capabilities": log.Capabilities,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		*session.Snapshot
		NumEvents int `json:"num_events"`
		NumCases  int `json:"num_cases"`
	}
	list := s.sessions.List()
	out := make([]entry, 0, len(list))
	for _, snap := range list {
		out = append(out, entry{snap, snap.Log.NumEvents(), snap.Log.NumCases()})
	}
	jsonResponse(w, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		jsonError(w, "Session not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, map[string]any{
		"id":           snap.ID,
		"name":         snap.Name,
		"uploaded_at":  snap.UploadedAt,
		"num_events":   snap.Log.NumEvents(),
		"num_cases":    snap.Log.NumCases(),
		"capabilities": snap.Log.Capabilities,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(mux.Vars(r)["id"]) {
		jsonError(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// selectLog picks the analyzed view of a session: the cleaned log when
// cleaning is requested (computing and caching it on first use), the
// raw normalized log otherwise.
func (s *Server) selectLog(r *http.Request, snap *session.Snapshot) *model.Log {
	clean := r.URL.Query().Get("clean") != "false"
	if !clean {
		return snap.Log
	}
	if snap.Cleaned == nil {
		updated := *snap
		updated.Cleaned = s.normalizer(nil).Clean(snap.Log)
		s.sessions.Update(&updated)
		return updated.Cleaned
	}
	return snap.Cleaned
}

// AnalysisResponse is the full analysis payload.
type AnalysisResponse struct {
	KPIs         *stats.KPISet                 `json:"kpis"`
	Cases        []*stats.CaseMetrics          `json:"cases"`
	Activities   []*stats.ActivityMetrics      `json:"activities"`
	Resources    []*stats.ResourceMetrics      `json:"resources"`
	CycleTimes   []stats.CaseCycleTime         `json:"cycle_times"`
	WaitingTimes map[string]float64            `json:"waiting_times"`
	SojournTimes map[string]stats.SojournStats `json:"sojourn_times"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		jsonError(w, "Session not found", http.StatusNotFound)
		return
	}

	log := s.selectLog(r, snap)
	_, span := telemetry.StartSpan(r.Context(), "aggregate")
	agg, err := stats.Aggregate(log)
	span.End()
	if err != nil {
		jsonCodedError(w, err)
		return
	}
	kpis, err := stats.Summarize(log, agg)
	if err != nil {
		jsonCodedError(w, err)
		return
	}
	cycles, err := stats.CycleTimes(log)
	if err != nil {
		jsonCodedError(w, err)
		return
	}
	waits, err := stats.WaitingTimes(log)
	if err != nil {
		jsonCodedError(w, err)
		return
	}
	sojourns, err := stats.SojournTimes(log)
	if err != nil {
		jsonCodedError(w, err)
		return
	}

	jsonResponse(w, AnalysisResponse{
		KPIs:         kpis,
		Cases:        agg.SortedCases(),
		Activities:   agg.SortedActivities(),
		Resources:    agg.SortedResources(),
		CycleTimes:   cycles,
		WaitingTimes: waits,
		SojournTimes: sojourns,
	})
}

func (s *Server) handleDFG(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		jsonError(w, "Session not found", http.StatusNotFound)
		return
	}

	log := s.selectLog(r, snap)
	dfg, err := mining.DiscoverDFG(log)
	if err != nil {
		jsonCodedError(w, err)
		return
	}
	perf, err := mining.EdgePerformance(log)
	if err != nil {
		jsonCodedError(w, err)
		return
	}

	type edgeOut struct {
		From          string   `json:"from"`
		To            string   `json:"to"`
		Count         int      `json:"count"`
		MeanWaitHours *float64 `json:"mean_wait_hours,omitempty"`
	}
	edges := make([]edgeOut, 0, dfg.NumEdges())
	for _, ec := range dfg.SortedEdges() {
		out := edgeOut{From: ec.From, To: ec.To, Count: ec.Count}
		if wait, ok := perf[mining.Edge{From: ec.From, To: ec.To}]; ok {
			out.MeanWaitHours = &wait
		}
		edges = append(edges, out)
	}

	jsonResponse(w, map[string]any{
		"activities":       dfg.Activities,
		"edges":            edges,
		"start_activities": dfg.StartActivities,
		"end_activities":   dfg.EndActivities,
	})
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		jsonError(w, "Session not found", http.StatusNotFound)
		return
	}

	variants, err := mining.Variants(s.selectLog(r, snap))
	if err != nil {
		jsonCodedError(w, err)
		return
	}
	jsonResponse(w, variants)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snap, ok := s.sessions.Get(vars["id"])
	if !ok {
		jsonError(w, "Session not found", http.StatusNotFound)
		return
	}

	log := s.selectLog(r, snap)
	agg, err := stats.Aggregate(log)
	if err != nil {
		jsonCodedError(w, err)
		return
	}

	var svg string
	switch vars["kind"] {
	case "cycle-time":
		cycles, err := stats.CycleTimes(log)
		if err != nil {
			jsonCodedError(w, err)
			return
		}
		svg = charts.RenderCycleTime(present.CycleTimeSeries(cycles))
	case "activity-frequency":
		svg = charts.RenderFrequencyBars(present.ActivityFrequencies(agg))
	case "resource-utilization":
		svg = charts.RenderResourceBars(present.ResourceUtilization(agg))
	case "timeline":
		svg = charts.RenderTimeline(present.TimelineRows(agg))
	default:
		jsonError(w, "Unknown chart kind", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(svg))
}

// insightRequest selects which narrative to generate.
type insightRequest struct {
	Type     string `json:"type"` // process | kpi | question
	Question string `json:"question,omitempty"`
}

// handleInsight generates narrative commentary. Model failures still
// produce a 200 with a descriptive message; only invalid requests and
// unusable logs are errors.
func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		jsonError(w, "Session not found", http.StatusNotFound)
		return
	}

	var req insightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	log := s.selectLog(r, snap)
	agg, err := stats.Aggregate(log)
	if err != nil {
		jsonCodedError(w, err)
		return
	}
	kpis, err := stats.Summarize(log, agg)
	if err != nil {
		jsonCodedError(w, err)
		return
	}
	summary := present.Summary(log, kpis, agg)

	ctx, span := telemetry.StartSpan(r.Context(), "insight")
	defer span.End()

	var text string
	switch req.Type {
	case "process", "":
		text = s.insights.ProcessInsights(ctx, summary)
	case "kpi":
		text = s.insights.KPIRecommendations(ctx, summary)
	case "question":
		if req.Question == "" {
			jsonError(w, "Question required", http.StatusBadRequest)
			return
		}
		text = s.insights.Ask(ctx, summary, req.Question)
	default:
		jsonError(w, "Unknown insight type", http.StatusBadRequest)
		return
	}

	jsonResponse(w, map[string]string{"insight": text})
}
