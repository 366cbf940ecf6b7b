// ProcSight - Business process analytics from event logs.
// Ingests CSV, XES, and XLSX event logs and produces KPIs, process maps,
// charts and model-generated insights.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/procsight/procsight/internal/model"
	"github.com/procsight/procsight/pkg/charts"
	"github.com/procsight/procsight/pkg/config"
	"github.com/procsight/procsight/pkg/ingest"
	"github.com/procsight/procsight/pkg/insight"
	"github.com/procsight/procsight/pkg/mining"
	"github.com/procsight/procsight/pkg/parser"
	"github.com/procsight/procsight/pkg/present"
	"github.com/procsight/procsight/pkg/query"
	"github.com/procsight/procsight/pkg/stats"
	"github.com/procsight/procsight/pkg/storage"
	"github.com/procsight/procsight/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	formatFlag   string
	noClean      bool
	verbose      bool
	chartsDir    string
	engineFlag   string
	variantLimit int
	withInsights bool

	// Column mapping flags
	caseIDColumn     string
	activityColumn   string
	timestampColumn  string
	resourceColumn   string
	costColumn       string
	claimValueColumn string
	timestampLayout  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		tui.PrintError(err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "procsight",
	Short: "ProcSight - Analyze business process event logs",
	Long: `ProcSight analyzes event logs exported from business systems (CSV, XES, XLSX)
and reports cycle times, bottlenecks, resource workload, process maps and
optional model-generated commentary.`,
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input-file]",
	Short: "Analyze an event log and print a KPI report",
	Long: `Run the full analysis pipeline on an event log: normalize, clean,
aggregate, discover the process map and print the KPI report.

Input may be a local path, an http(s) URL, or an s3:// URI.

Examples:
  procsight analyze events.csv
  procsight analyze claims.xes --no-clean
  procsight analyze s3://logs/events.csv --charts ./out
  procsight analyze big.parquet --engine duckdb
  procsight analyze events.csv --case-id ticket --activity step --timestamp when`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	analyzeCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (csv, xes, xlsx) - auto-detected if not specified")
	analyzeCmd.Flags().BoolVar(&noClean, "no-clean", false, "Skip the cleaning pass (keep invalid and zero-duration cases)")
	analyzeCmd.Flags().StringVar(&chartsDir, "charts", "", "Write SVG charts into this directory")
	analyzeCmd.Flags().StringVar(&engineFlag, "engine", "", "Analysis engine: memory (default) or duckdb (local csv/parquet only)")
	analyzeCmd.Flags().IntVar(&variantLimit, "variants", 5, "Number of trace variants to print")
	analyzeCmd.Flags().BoolVar(&withInsights, "insights", false, "Generate model commentary (requires a Gemini API key)")

	addMappingFlags(analyzeCmd)

	rootCmd.AddCommand(analyzeCmd)
}

// addMappingFlags registers the column mapping override flags shared by
// the commands that read event logs.
func addMappingFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&caseIDColumn, "case-id", "", "Case ID column name")
	cmd.Flags().StringVar(&activityColumn, "activity", "", "Activity column name")
	cmd.Flags().StringVar(&timestampColumn, "timestamp", "", "Timestamp column name")
	cmd.Flags().StringVar(&resourceColumn, "resource", "", "Resource column name")
	cmd.Flags().StringVar(&costColumn, "cost", "", "Cost column name")
	cmd.Flags().StringVar(&claimValueColumn, "claim-value", "", "Claim value column name")
	cmd.Flags().StringVar(&timestampLayout, "timestamp-format", "", "Timestamp format (Go time layout)")
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

// normalizerFromFlags builds a Normalizer from the loaded config with
// CLI overrides applied.
func normalizerFromFlags() *ingest.Normalizer {
	cfg := config.Global().Get()
	nc := ingest.Config{
		Mapping:         cfg.Analysis.Mapping,
		TimestampLayout: cfg.Analysis.TimestampLayout,
		RetentionDays:   cfg.Analysis.RetentionDays,
	}
	if caseIDColumn != "" {
		nc.Mapping.CaseID = caseIDColumn
	}
	if activityColumn != "" {
		nc.Mapping.Activity = activityColumn
	}
	if timestampColumn != "" {
		nc.Mapping.Timestamp = timestampColumn
	}
	if resourceColumn != "" {
		nc.Mapping.Resource = resourceColumn
	}
	if costColumn != "" {
		nc.Mapping.Cost = costColumn
	}
	if claimValueColumn != "" {
		nc.Mapping.ClaimValue = claimValueColumn
	}
	if timestampLayout != "" {
		nc.TimestampLayout = timestampLayout
	}
	return ingest.NewNormalizer(nc)
}

// loadLog fetches, parses and normalizes an event log from any supported
// source (local, http, s3).
func loadLog(ctx context.Context, path string) (*model.Log, error) {
	format := parser.DetectFormat(storage.BaseName(path), formatFlag)
	reader, err := parser.NewReader(format, parser.DefaultConfig())
	if err != nil {
		return nil, err
	}

	rc, size, err := storage.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var src io.Reader = rc
	if verbose && size > 0 {
		bar := tui.ShowProgress(size, "Reading "+storage.BaseName(path))
		src = io.TeeReader(rc, bar)
		defer bar.Finish()
	}

	table, err := reader.Read(ctx, src)
	if err != nil {
		return nil, err
	}

	n := normalizerFromFlags()
	log, err := n.Normalize(table)
	if err != nil {
		return nil, err
	}
	if !noClean {
		log = n.Clean(log)
	}
	return log, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	input := args[0]

	if engineFlag == "duckdb" {
		return runDuckDBAnalyze(input)
	}

	ctx, cancel := signalContext()
	defer cancel()

	tui.PrintHeader(version)
	start := time.Now()

	log, err := loadLog(ctx, input)
	if err != nil {
		return err
	}

	agg, err := stats.Aggregate(log)
	if err != nil {
		return err
	}
	kpis, err := stats.Summarize(log, agg)
	if err != nil {
		return err
	}
	variants, err := mining.Variants(log)
	if err != nil {
		return err
	}

	tui.ClearLine()
	tui.PrintAnalysisReport(kpis, time.Since(start))
	tui.PrintVariants(variants, variantLimit)

	if chartsDir != "" {
		if err := writeCharts(ctx, log, agg); err != nil {
			return err
		}
		fmt.Printf("  Charts written to %s\n\n", chartsDir)
	}

	if withInsights {
		if err := printInsights(ctx, log, kpis, agg); err != nil {
			return err
		}
	}

	return nil
}

// writeCharts renders all chart kinds concurrently into chartsDir.
func writeCharts(ctx context.Context, log *model.Log, agg *stats.Aggregation) error {
	cycles, err := stats.CycleTimes(log)
	if err != nil {
		return err
	}

	files := map[string]string{
		"cycle-time.svg":           charts.RenderCycleTime(present.CycleTimeSeries(cycles)),
		"activity-frequency.svg":   charts.RenderFrequencyBars(present.ActivityFrequencies(agg)),
		"resource-utilization.svg": charts.RenderResourceBars(present.ResourceUtilization(agg)),
		"timeline.svg":             charts.RenderTimeline(present.TimelineRows(agg)),
	}

	g, _ := errgroup.WithContext(ctx)
	for name, svg := range files {
		name, svg := name, svg
		g.Go(func() error {
			return storage.WriteLocal(filepath.Join(chartsDir, name), []byte(svg))
		})
	}
	return g.Wait()
}

// printInsights generates and prints model commentary for the analysis.
func printInsights(ctx context.Context, log *model.Log, kpis *stats.KPISet, agg *stats.Aggregation) error {
	gen, err := newGenerator(ctx)
	if err != nil {
		return err
	}
	defer gen.Close()

	facade := insight.New(gen)
	summary := present.Summary(log, kpis, agg)

	tui.PrintInsight("PROCESS INSIGHTS", facade.ProcessInsights(ctx, summary))
	tui.PrintInsight("KPI RECOMMENDATIONS", facade.KPIRecommendations(ctx, summary))
	return nil
}

// newGenerator builds the Gemini generator from the loaded config.
func newGenerator(ctx context.Context) (insight.Generator, error) {
	cfg := config.Global().Get()
	return insight.NewGeminiClient(ctx, insight.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	})
}

// runDuckDBAnalyze summarizes a local csv/parquet file with SQL instead
// of loading it into memory.
func runDuckDBAnalyze(input string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := config.Global().Get()
	mapping := cfg.Analysis.Mapping
	if caseIDColumn != "" {
		mapping.CaseID = caseIDColumn
	}
	if activityColumn != "" {
		mapping.Activity = activityColumn
	}
	if timestampColumn != "" {
		mapping.Timestamp = timestampColumn
	}
	if resourceColumn != "" {
		mapping.Resource = resourceColumn
	}

	engine, err := query.NewEngine(mapping)
	if err != nil {
		return err
	}
	defer engine.Close()

	tui.PrintHeader(version)
	start := time.Now()

	summary, err := engine.Summarize(ctx, input)
	if err != nil {
		return err
	}

	fmt.Printf("  Events:     %d\n", summary.TotalEvents)
	fmt.Printf("  Cases:      %d\n", summary.TotalCases)
	fmt.Printf("  Activities: %d\n", summary.UniqueActivities)
	fmt.Printf("  Resources:  %d\n", summary.UniqueResources)
	fmt.Printf("  Range:      %s to %s\n",
		summary.TimeRange.Start.Format("2006-01-02"),
		summary.TimeRange.End.Format("2006-01-02"))
	fmt.Printf("  Events/case: min %d, max %d, avg %.2f\n",
		summary.CaseStats.MinEventsPerCase,
		summary.CaseStats.MaxEventsPerCase,
		summary.CaseStats.AvgEventsPerCase)

	fmt.Println("\n  Top activities:")
	for _, a := range summary.TopActivities {
		fmt.Printf("    %-30s %8d  (%.1f%%)\n", a.Activity, a.Count, a.Percent)
	}
	if len(summary.TopVariants) > 0 {
		fmt.Println("\n  Top variants:")
		for _, v := range summary.TopVariants {
			fmt.Printf("    %6d  (%.1f%%)  %s\n", v.Count, v.Percent, v.Variant)
		}
	}
	fmt.Printf("\n  Time: %.1fs\n", time.Since(start).Seconds())

	return nil
}
