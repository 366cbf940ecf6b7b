// Package query runs SQL summaries directly over event log files through
// DuckDB. It complements the in-memory pipeline for large inputs: CSV
// and Parquet files are scanned in place without loading every row into
// the process.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	perrors "github.com/procsight/procsight/pkg/errors"
	"github.com/procsight/procsight/pkg/schema"
)

// Engine runs summaries over files via DuckDB.
type Engine struct {
	mapping schema.Mapping
	db      *sql.DB
}

// NewEngine opens an in-memory DuckDB instance.
func NewEngine(mapping schema.Mapping) (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, perrors.ExternalCall("duckdb", err)
	}
	return &Engine{mapping: mapping, db: db}, nil
}

// Close releases the database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Summary holds the SQL-computed digest of a log file.
type Summary struct {
	TotalEvents      int64           `json:"total_events"`
	TotalCases       int64           `json:"total_cases"`
	UniqueActivities int64           `json:"unique_activities"`
	UniqueResources  int64           `json:"unique_resources"`
	TimeRange        TimeRange       `json:"time_range"`
	CaseStats        CaseStats       `json:"case_stats"`
	TopActivities    []ActivityCount `json:"top_activities"`
	TopVariants      []VariantCount  `json:"top_variants,omitempty"`
}

// TimeRange describes the time span of the log.
type TimeRange struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
}

// CaseStats describes case-level statistics.
type CaseStats struct {
	MinEventsPerCase int64   `json:"min_events_per_case"`
	MaxEventsPerCase int64   `json:"max_events_per_case"`
	AvgEventsPerCase float64 `json:"avg_events_per_case"`
}

// ActivityCount holds activity frequency.
type ActivityCount struct {
	Activity string  `json:"activity"`
	Count    int64   `json:"count"`
	Percent  float64 `json:"percent"`
}

// VariantCount holds process variant frequency.
type VariantCount struct {
	Variant string  `json:"variant"`
	Count   int64   `json:"count"`
	Percent float64 `json:"percent"`
}

// source returns the DuckDB table function for a file path.
func source(path string) (string, error) {
	escaped := escapePath(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return fmt.Sprintf("read_csv_auto('%s')", escaped), nil
	case ".parquet":
		return fmt.Sprintf("read_parquet('%s')", escaped), nil
	default:
		return "", perrors.New(perrors.CodeInvalidFormat, "unsupported engine input").
			WithContext("path", path)
	}
}

// Summarize computes the digest of a log file in place.
func (e *Engine) Summarize(ctx context.Context, path string) (*Summary, error) {
	src, err := source(path)
	if err != nil {
		return nil, err
	}

	s := &Summary{}
	caseCol := quoteIdent(e.mapping.CaseID)
	actCol := quoteIdent(e.mapping.Activity)
	tsCol := quoteIdent(e.mapping.Timestamp)
	resCol := quoteIdent(e.mapping.Resource)

	q := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(DISTINCT %s),
			COUNT(DISTINCT %s),
			COUNT(DISTINCT %s)
		FROM %s
	`, caseCol, actCol, resCol, src)
	if err := e.db.QueryRowContext(ctx, q).Scan(
		&s.TotalEvents, &s.TotalCases, &s.UniqueActivities, &s.UniqueResources,
	); err != nil {
		return nil, perrors.ExternalCall("duckdb", err)
	}
	if s.TotalEvents == 0 {
		return nil, perrors.EmptyLog("engine_summarize")
	}

	q = fmt.Sprintf(`
		SELECT MIN(%s), MAX(%s) FROM %s WHERE %s IS NOT NULL
	`, tsCol, tsCol, src, tsCol)
	var minTS, maxTS interface{}
	if err := e.db.QueryRowContext(ctx, q).Scan(&minTS, &maxTS); err == nil {
		if start, ok := asTime(minTS); ok {
			s.TimeRange.Start = start
		}
		if end, ok := asTime(maxTS); ok {
			s.TimeRange.End = end
		}
		s.TimeRange.Duration = s.TimeRange.End.Sub(s.TimeRange.Start)
	}

	q = fmt.Sprintf(`
		SELECT MIN(cnt), MAX(cnt), AVG(cnt)
		FROM (
			SELECT %s, COUNT(*) as cnt
			FROM %s
			GROUP BY %s
		)
	`, caseCol, src, caseCol)
	if err := e.db.QueryRowContext(ctx, q).Scan(
		&s.CaseStats.MinEventsPerCase,
		&s.CaseStats.MaxEventsPerCase,
		&s.CaseStats.AvgEventsPerCase,
	); err != nil {
		return nil, perrors.ExternalCall("duckdb", err)
	}

	q = fmt.Sprintf(`
		SELECT
			%s as activity,
			COUNT(*) as cnt,
			COUNT(*) * 100.0 / SUM(COUNT(*)) OVER () as pct
		FROM %s
		GROUP BY %s
		ORDER BY cnt DESC
		LIMIT 10
	`, actCol, src, actCol)
	rows, err := e.db.QueryContext(ctx, q)
	if err != nil {
		return nil, perrors.ExternalCall("duckdb", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ac ActivityCount
		if err := rows.Scan(&ac.Activity, &ac.Count, &ac.Percent); err != nil {
			return nil, perrors.ExternalCall("duckdb", err)
		}
		s.TopActivities = append(s.TopActivities, ac)
	}
	if err := rows.Err(); err != nil {
		return nil, perrors.ExternalCall("duckdb", err)
	}

	variants, err := e.topVariants(ctx, src)
	if err != nil {
		return nil, err
	}
	s.TopVariants = variants

	return s, nil
}

// topVariants aggregates per-case activity sequences in SQL.
func (e *Engine) topVariants(ctx context.Context, src string) ([]VariantCount, error) {
	caseCol := quoteIdent(e.mapping.CaseID)
	actCol := quoteIdent(e.mapping.Activity)
	tsCol := quoteIdent(e.mapping.Timestamp)

	q := fmt.Sprintf(`
		SELECT
			variant,
			COUNT(*) as cnt,
			COUNT(*) * 100.0 / SUM(COUNT(*)) OVER () as pct
		FROM (
			SELECT
				%s,
				STRING_AGG(%s, ' -> ' ORDER BY %s) as variant
			FROM %s
			GROUP BY %s
		)
		GROUP BY variant
		ORDER BY cnt DESC
		LIMIT 10
	`, caseCol, actCol, tsCol, src, caseCol)

	rows, err := e.db.QueryContext(ctx, q)
	if err != nil {
		return nil, perrors.ExternalCall("duckdb", err)
	}
	defer rows.Close()

	var out []VariantCount
	for rows.Next() {
		var vc VariantCount
		if err := rows.Scan(&vc.Variant, &vc.Count, &vc.Percent); err != nil {
			return nil, perrors.ExternalCall("duckdb", err)
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

func escapePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case int64:
		return time.Unix(0, t), true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
