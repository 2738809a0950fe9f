package reportpdf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ScreenshotRenderer exports report pages by screenshotting them in a
// headless browser and fitting each screenshot onto its own PDF page.
//
// Every page name is validated strictly, and checked against the pages root
// when one is configured, before a browser is launched. By default the first
// failing page aborts the export with no output.
//
// A ScreenshotRenderer is safe for concurrent use; exports run one at a
// time. Call [ScreenshotRenderer.Close] when it is no longer needed.
type ScreenshotRenderer struct {
	cfg     rendererConfig
	shot    ScreenshotConfig
	browser Browser
	lock    jobLock

	mu     sync.Mutex
	closed bool
}

// NewScreenshotRenderer creates a renderer for pages served under
// sc.BaseURL. Zero fields of sc take their [DefaultScreenshotConfig] values.
func NewScreenshotRenderer(sc ScreenshotConfig, opts ...Option) *ScreenshotRenderer {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	browser := cfg.browser
	if browser == nil {
		browser = &chromedpBrowser{cfg: cfg}
	}
	return &ScreenshotRenderer{
		cfg:     cfg,
		shot:    sc.resolved(),
		browser: browser,
		lock:    newJobLock(),
	}
}

// Close marks the renderer closed. Exports already running finish normally.
// Close is idempotent.
func (r *ScreenshotRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *ScreenshotRenderer) checkClosed() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

// Validate applies the strict page name policy and existence check to pages
// and returns the deduplicated list. An empty input yields [DefaultPage].
func (r *ScreenshotRenderer) Validate(pages []string) ([]string, error) {
	if len(pages) == 0 {
		pages = []string{DefaultPage}
	}
	s := Sanitizer{Policy: Strict, Root: r.shot.Root}
	names := make([]string, 0, len(pages))
	for _, p := range pages {
		name, err := s.Sanitize(p)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return lo.Uniq(names), nil
}

// Render screenshots pages in order and returns the combined PDF.
func (r *ScreenshotRenderer) Render(ctx context.Context, pages []string) (*Result, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}

	names, err := r.Validate(pages)
	if err != nil {
		return nil, err
	}

	if d := r.cfg.exportTimeout(0); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := r.lock.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.lock.release()

	job := newExportJob(PipelineScreenshot, names, r.cfg.progress, r.cfg.logger)
	job.log.Info("starting export", zap.Strings("pages", names))

	session, err := r.browser.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("reportpdf: launching browser: %w", err)
	}
	defer closeQuietly(job.log, "browser", session)

	tab, err := session.NewTab(ctx, r.shot.Viewport)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(job.log, "tab", tab)

	doc := NewDocument(r.cfg.page)
	policy := r.cfg.failurePolicy(AbortOnError)
	var rendered []string
	var skipped []*PageError

	for i, name := range names {
		job.report("Rendering %s (%d of %d)", name, i+1, len(names))

		img, err := r.capture(ctx, job, tab, name)
		if err == nil {
			err = doc.Add(img, FitPage)
		}
		if err != nil {
			perr := &PageError{Page: name, Err: err}
			if policy == AbortOnError || ctx.Err() != nil {
				job.log.Error("export aborted", zap.String("page", name), zap.Error(err))
				return nil, perr
			}
			job.log.Warn("skipping page", zap.String("page", name), zap.Error(err))
			skipped = append(skipped, perr)
			continue
		}
		rendered = append(rendered, name)
	}

	if len(rendered) == 0 {
		return nil, ErrNothingCaptured
	}

	job.report("Finalising PDF…")
	data, err := doc.Bytes()
	if err != nil {
		return nil, err
	}

	job.log.Info("export finished",
		zap.Int("pages", len(rendered)),
		zap.Int("skipped", len(skipped)),
		zap.Int("pdf_pages", doc.PageCount()),
		zap.Duration("elapsed", job.Elapsed()),
	)
	return &Result{
		data:      data,
		pages:     rendered,
		skipped:   skipped,
		pageCount: doc.PageCount(),
		filename:  DownloadFilename(names, ""),
	}, nil
}

// capture loads one page, hides the report chrome and screenshots the main
// content element.
func (r *ScreenshotRenderer) capture(ctx context.Context, job *ExportJob, tab Tab, name string) (RasterImage, error) {
	url := r.shot.pageURL(name)
	job.log.Debug("rendering page", zap.String("page", name), zap.String("url", url))

	navCtx, cancel := context.WithTimeout(ctx, r.shot.NavigationTimeout)
	err := tab.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return RasterImage{}, err
	}

	if err := sleepContext(ctx, r.shot.SettleDelay); err != nil {
		return RasterImage{}, err
	}

	if err := tab.AddStyle(ctx, r.shot.HideCSS); err != nil {
		return RasterImage{}, fmt.Errorf("hiding page chrome: %w", err)
	}
	if len(r.shot.RemoveSelectors) > 0 {
		removed, err := tab.RemoveAll(ctx, r.shot.RemoveSelectors)
		if err != nil {
			return RasterImage{}, fmt.Errorf("removing page chrome: %w", err)
		}
		job.log.Debug("removed chrome nodes", zap.String("page", name), zap.Int("count", removed))
	}

	selector, err := r.locateContent(ctx, tab)
	if err != nil {
		return RasterImage{}, err
	}
	if selector == "" {
		return RasterImage{}, &MissingContentError{Page: name, Selectors: r.shot.ContentSelectors}
	}

	png, err := tab.ScreenshotElement(ctx, selector)
	if err != nil {
		return RasterImage{}, err
	}
	return DecodeRaster(png)
}

// locateContent returns the first content selector present on the page, or
// "" when none is.
func (r *ScreenshotRenderer) locateContent(ctx context.Context, tab Tab) (string, error) {
	for _, sel := range r.shot.ContentSelectors {
		ok, err := tab.Exists(ctx, sel)
		if err != nil {
			return "", fmt.Errorf("locating %s: %w", sel, err)
		}
		if ok {
			return sel, nil
		}
	}
	return "", nil
}

// RenderScreenshots exports pages with a temporary [ScreenshotRenderer].
func RenderScreenshots(ctx context.Context, sc ScreenshotConfig, pages []string, opts ...Option) (*Result, error) {
	r := NewScreenshotRenderer(sc, opts...)
	defer r.Close()
	return r.Render(ctx, pages)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
