package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/procsight/procsight/pkg/config"
	"github.com/procsight/procsight/pkg/insight"
	"github.com/procsight/procsight/pkg/server"
	"github.com/procsight/procsight/pkg/telemetry"
	"github.com/procsight/procsight/pkg/tui"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long: `Start the HTTP server backing the analysis dashboard.

The server provides:
  - Event log upload and session management
  - KPI and performance analysis
  - Process discovery (DFG, variants)
  - SVG chart rendering
  - Model-generated insights (when a Gemini API key is configured)

Examples:
  procsight serve                  # Start on the configured port (8080)
  procsight serve --port 3000      # Start on a custom port
  procsight serve --host 0.0.0.0   # Listen on all interfaces`,
	RunE: runServe,
}

func init() {
	cfg := config.Global().Get()

	serveCmd.Flags().IntVarP(&servePort, "port", "p", cfg.Server.Port, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", cfg.Server.Host, "Host to bind to")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := config.Global().Get()

	if cfg.Telemetry.Enabled {
		tcfg := telemetry.DefaultConfig("procsight")
		tcfg.ServiceVersion = version
		if cfg.Telemetry.Endpoint != "" {
			tcfg.Endpoint = cfg.Telemetry.Endpoint
		}
		shutdown, err := telemetry.Init(tcfg)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer shutdown(context.Background())
	}

	// The insight generator is optional; the server degrades to
	// descriptive messages without it.
	var gen insight.Generator
	if cfg.Gemini.APIKey != "" {
		g, err := newGenerator(ctx)
		if err != nil {
			return err
		}
		defer g.Close()
		gen = g
	}

	srv := server.NewServer(cfg, insight.New(gen))

	addr := fmt.Sprintf("%s:%d", serveHost, servePort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	url := fmt.Sprintf("http://%s:%d", serveHost, servePort)
	if serveHost == "0.0.0.0" || serveHost == "" {
		url = fmt.Sprintf("http://localhost:%d", servePort)
	}

	tui.PrintHeader(version)
	fmt.Printf("  Listening on %s\n", url)
	if gen == nil {
		fmt.Println("  Insights disabled (no Gemini API key configured)")
	}
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return nil
	}
}
