package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/porticus-lab/reportpdf"
	"github.com/porticus-lab/reportpdf/internal/logger"
	"github.com/porticus-lab/reportpdf/internal/metrics"
	"github.com/porticus-lab/reportpdf/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the PDF export server",
	Long: `Serve the static report tree and render PDFs on demand:

  GET /api/generate-pdf?page=page1.html
  GET /api/generate-pdf?pages=page1.html,page2.html
  GET /api/health`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
	serveCmd.Flags().String("static-root", "", "report directory to serve (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable gin debug mode")
}

func runServe(cmd *cobra.Command, args []string) error {
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Server.Host = v
	}
	if v, _ := cmd.Flags().GetInt("port"); v > 0 {
		cfg.Server.Port = v
	}
	if v, _ := cmd.Flags().GetString("static-root"); v != "" {
		cfg.Server.StaticRoot = v
	}
	if v, _ := cmd.Flags().GetBool("debug"); v {
		cfg.Server.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Named("server")

	renderer := reportpdf.NewScreenshotRenderer(cfg.ScreenshotOptions(),
		cfg.RendererOptions(logger.Named("render"), cfg.Screenshot.FailurePolicy)...)
	defer renderer.Close()

	opts := []server.Option{server.WithLogger(log, logger.AccessLogEnabled())}
	if cfg.Server.Metrics {
		opts = append(opts, server.WithMetrics(metrics.New()))
	}
	srv := server.New(cfg, renderer, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printBanner()
	if err := srv.Run(ctx); err != nil {
		log.Error("server failed", zap.Error(err))
		return err
	}
	return nil
}

func printBanner() {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	base := cfg.BaseURL()

	fmt.Fprintln(os.Stderr)
	bold.Fprintln(os.Stderr, "reportpdf export server")
	fmt.Fprintf(os.Stderr, "  Server:       %s\n", cyan.Sprint(base))
	fmt.Fprintf(os.Stderr, "  PDF endpoint: %s\n", cyan.Sprint(base+"/api/generate-pdf"))
	fmt.Fprintf(os.Stderr, "  Health check: %s\n", cyan.Sprint(base+"/api/health"))
	fmt.Fprintf(os.Stderr, "  Pages:        %s\n\n", cfg.PagesDir())
}
