package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/procsight/procsight/pkg/insight"
	"github.com/procsight/procsight/pkg/mining"
	"github.com/procsight/procsight/pkg/parser"
	"github.com/procsight/procsight/pkg/present"
	"github.com/procsight/procsight/pkg/stats"
	"github.com/procsight/procsight/pkg/tui"
	"github.com/procsight/procsight/pkg/watch"
)

var insightQuestion string

var insightCmd = &cobra.Command{
	Use:   "insight [input-file]",
	Short: "Generate model commentary for an event log",
	Long: `Analyze an event log and ask the configured language model for
narrative commentary. With --question, answers a specific question about
the process; otherwise prints general process insights.

Examples:
  procsight insight events.csv
  procsight insight events.csv --question "Where is the main bottleneck?"`,
	Args: cobra.ExactArgs(1),
	RunE: runInsight,
}

var watchCmd = &cobra.Command{
	Use:   "watch [input-file...]",
	Short: "Re-analyze event logs when they change",
	Long: `Watch one or more event log files and re-run the analysis whenever a
file is written. Useful while an export job appends to a log.

Examples:
  procsight watch events.csv
  procsight watch daily.csv weekly.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

var infoCmd = &cobra.Command{
	Use:   "info [input-file]",
	Short: "Display information about an event log file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	insightCmd.Flags().StringVarP(&insightQuestion, "question", "q", "", "Question to ask about the process")
	insightCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (csv, xes, xlsx)")
	addMappingFlags(insightCmd)

	watchCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (csv, xes, xlsx)")
	watchCmd.Flags().IntVar(&variantLimit, "variants", 5, "Number of trace variants to print")
	addMappingFlags(watchCmd)

	infoCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (csv, xes, xlsx)")

	rootCmd.AddCommand(insightCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(infoCmd)
}

func runInsight(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	log, err := loadLog(ctx, args[0])
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

	gen, err := newGenerator(ctx)
	if err != nil {
		return err
	}
	defer gen.Close()

	facade := insight.New(gen)
	summary := present.Summary(log, kpis, agg)

	tui.PrintHeader(version)
	if insightQuestion != "" {
		tui.PrintInsight("ANSWER", facade.Ask(ctx, summary, insightQuestion))
		return nil
	}
	tui.PrintInsight("PROCESS INSIGHTS", facade.ProcessInsights(ctx, summary))
	tui.PrintInsight("KPI RECOMMENDATIONS", facade.KPIRecommendations(ctx, summary))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	watcher, err := watch.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watcher.OnChange = func(path string) error {
		fmt.Printf("\n  %s changed, re-analyzing...\n", path)
		return analyzeOnce(ctx, path)
	}
	watcher.OnError = func(path string, err error) {
		tui.PrintError(fmt.Errorf("%s: %w", path, err))
	}

	tui.PrintHeader(version)
	for _, path := range args {
		if err := watcher.Watch(path); err != nil {
			return err
		}
		fmt.Printf("  Watching %s\n", path)
	}
	fmt.Println("  Press Ctrl+C to stop")

	// Analyze each file once on startup so the first report does not
	// wait for a change.
	for _, path := range args {
		if err := analyzeOnce(ctx, path); err != nil {
			tui.PrintError(err)
		}
	}

	return watcher.Run(ctx)
}

// analyzeOnce runs the in-memory pipeline on one file and prints the
// report.
func analyzeOnce(ctx context.Context, path string) error {
	start := time.Now()

	log, err := loadLog(ctx, path)
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

	tui.PrintAnalysisReport(kpis, time.Since(start))
	tui.PrintVariants(variants, variantLimit)
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	input := args[0]

	stat, err := os.Stat(input)
	if err != nil {
		return err
	}

	format := parser.DetectFormat(input, formatFlag)

	fmt.Printf("File:     %s\n", input)
	fmt.Printf("Size:     %s\n", tui.FormatBytes(stat.Size()))
	fmt.Printf("Format:   %s\n", strings.ToUpper(format.String()))
	fmt.Printf("Modified: %s\n", stat.ModTime().Format(time.RFC3339))

	return nil
}
