package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/porticus-lab/reportpdf"
	"github.com/porticus-lab/reportpdf/internal/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [page.html ...]",
	Short: "Download a PDF from a running export server",
	Long: `Ask a running export server to render pages and save the PDF.

Pages default to page1.html. The server is checked through its health
endpoint first.`,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.StringP("output", "o", "", "output file (default: the server's filename)")
	f.String("endpoint", "", "export endpoint URL (overrides config)")
	f.String("health-endpoint", "", "health endpoint URL (overrides config)")
	f.Duration("timeout", 0, "request timeout (overrides config)")
}

// errReported marks an error whose message was already printed.
var errReported = errors.New("export failed")

func runFetch(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	if v, _ := f.GetString("endpoint"); v != "" {
		cfg.Export.Endpoint = v
	}
	if v, _ := f.GetString("health-endpoint"); v != "" {
		cfg.Export.HealthEndpoint = v
	}
	if v, _ := f.GetDuration("timeout"); v > 0 {
		cfg.Export.Timeout = v
	}

	pages := args
	if len(pages) == 0 {
		pages = []string{reportpdf.DefaultPage}
	}

	progress := reportpdf.ProgressFunc(func(msg string) {
		color.New(color.FgCyan).Fprintln(os.Stderr, msg)
	})
	exp := reportpdf.NewRemoteExporter(cfg.ExportOptions(),
		reportpdf.WithLogger(logger.Named("fetch")), reportpdf.WithProgress(progress))

	res, err := exp.Export(cmd.Context(), pages)
	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, reportpdf.UserMessage(err))
		return fmt.Errorf("%w: %w", errReported, err)
	}

	out, _ := f.GetString("output")
	if out == "" {
		out = res.Filename()
	}
	if err := res.WriteToFile(out, 0o644); err != nil {
		return err
	}
	color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "wrote %s", out)
	fmt.Fprintf(os.Stderr, " (%d pages, %d bytes)\n", res.PageCount(), res.Len())
	return nil
}
