package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/porticus-lab/reportpdf"
	"github.com/porticus-lab/reportpdf/internal/dom"
	"github.com/porticus-lab/reportpdf/internal/logger"
)

var exportCmd = &cobra.Command{
	Use:   "export [page.html ...]",
	Short: "Render pages to a PDF locally",
	Long: `Render report pages served at --base-url into one PDF.

Without page arguments the numbered pages are discovered from the links on
the --from page, in page-number order.

Pipelines:
  screenshot  one fitted A4 page per report page; any failure aborts
  capture     tall pages continue over several PDF pages; failing pages
              are skipped`,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringP("output", "o", "", "output file (default: derived from the page names)")
	f.StringP("pipeline", "p", "screenshot", "rendering pipeline: screenshot or capture")
	f.String("base-url", "", "origin serving the report (overrides config)")
	f.String("from", reportpdf.DefaultPage, "page whose links are used for discovery")
	f.String("failure-policy", "", "abort or skip (default depends on the pipeline)")
	f.String("paper", "a4", "paper size: a3, a4, a5, letter or legal")
	f.Bool("landscape", false, "landscape orientation")
	f.Duration("timeout", 0, "overall capture export timeout (overrides config)")
	f.String("chrome-path", "", "Chrome or Chromium executable")
	f.Bool("no-sandbox", false, "disable the Chrome sandbox")
	f.Bool("auto-download", false, "download Chromium when none is installed")
}

var paperSizes = map[string]reportpdf.PageSize{
	"a3":     reportpdf.A3,
	"a4":     reportpdf.A4,
	"a5":     reportpdf.A5,
	"letter": reportpdf.Letter,
	"legal":  reportpdf.Legal,
}

// pageRenderer is implemented by both pipelines.
type pageRenderer interface {
	Render(ctx context.Context, pages []string) (*reportpdf.Result, error)
	Close() error
}

func runExport(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	remote := false
	if v, _ := f.GetString("base-url"); v != "" {
		cfg.Pages.BaseURL = v
		remote = cfg.Pages.Dir == ""
	}
	if v, _ := f.GetString("chrome-path"); v != "" {
		cfg.Browser.ChromePath = v
	}
	if v, _ := f.GetBool("no-sandbox"); v {
		cfg.Browser.NoSandbox = true
	}
	if v, _ := f.GetBool("auto-download"); v {
		cfg.Browser.AutoDownload = true
	}
	if v, _ := f.GetDuration("timeout"); v > 0 {
		cfg.Browser.Timeout = v
	}

	paperName, _ := f.GetString("paper")
	size, ok := paperSizes[strings.ToLower(paperName)]
	if !ok {
		return fmt.Errorf("unknown paper size %q", paperName)
	}
	page := &reportpdf.PageConfig{Size: size}
	if v, _ := f.GetBool("landscape"); v {
		page.Orientation = reportpdf.Landscape
	}

	pipeline, _ := f.GetString("pipeline")
	policy, _ := f.GetString("failure-policy")
	progress := reportpdf.ProgressFunc(func(msg string) {
		color.New(color.FgCyan).Fprintln(os.Stderr, msg)
	})

	log := logger.Named("export")
	var (
		r     pageRenderer
		pages []string
	)
	switch pipeline {
	case reportpdf.PipelineScreenshot:
		if policy == "" {
			policy = cfg.Screenshot.FailurePolicy
		}
		opts := append(cfg.RendererOptions(log, policy),
			reportpdf.WithPageConfig(page), reportpdf.WithProgress(progress))
		sc := cfg.ScreenshotOptions()
		if remote {
			// No local tree to check pages against.
			sc.Root = ""
		}
		r = reportpdf.NewScreenshotRenderer(sc, opts...)
		pages = args
	case reportpdf.PipelineCapture:
		if policy == "" {
			policy = cfg.Capture.FailurePolicy
		}
		opts := append(cfg.CaptureRendererOptions(log, policy),
			reportpdf.WithPageConfig(page), reportpdf.WithProgress(progress))
		r = reportpdf.NewCaptureRenderer(cfg.CaptureOptions(), opts...)
		pages = args
	default:
		return fmt.Errorf("unknown pipeline %q", pipeline)
	}
	defer r.Close()

	ctx := cmd.Context()
	if len(pages) == 0 {
		from, _ := f.GetString("from")
		discovered, err := discoverPages(ctx, from)
		if err != nil {
			return err
		}
		pages = discovered
		log.Info("discovered pages", zap.Strings("pages", pages))
	}

	start := time.Now()
	res, err := r.Render(ctx, pages)
	if err != nil {
		return err
	}

	out, _ := f.GetString("output")
	if out == "" {
		out = res.Filename()
	}
	if err := res.WriteToFile(out, 0o644); err != nil {
		return err
	}

	yellow := color.New(color.FgYellow)
	for _, s := range res.Skipped() {
		yellow.Fprintf(os.Stderr, "skipped %s: %v\n", s.Page, s.Err)
	}
	color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "wrote %s", out)
	fmt.Fprintf(os.Stderr, " (%d pages, %d bytes, %s)\n", res.PageCount(), res.Len(), time.Since(start).Round(time.Millisecond))
	return nil
}

// discoverPages loads the from page and orders the numbered pages it links
// to. from is a page name or a report path such as /pages/page3.html.
func discoverPages(ctx context.Context, from string) ([]string, error) {
	if strings.Contains(from, "/") {
		from = reportpdf.CurrentPage(from)
	}
	from, err := reportpdf.Sanitize(from, reportpdf.Strict)
	if err != nil {
		return nil, err
	}
	url := strings.TrimRight(cfg.BaseURL(), "/") + "/"
	if prefix := strings.Trim(cfg.Pages.PathPrefix, "/"); prefix != "" {
		url += prefix + "/"
	}

	src, err := reportpdf.HTTPFetcher{}.Fetch(ctx, url+from)
	if err != nil {
		return nil, err
	}
	links, err := dom.Links(src)
	if err != nil {
		return nil, err
	}
	return reportpdf.ResolvePages(nil, links, from), nil
}
