package reportpdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/porticus-lab/reportpdf/internal/dom"
)

// maxPageSize bounds how much of a page response is read.
const maxPageSize = 16 << 20

// DefaultExportTimeout bounds a whole capture export.
const DefaultExportTimeout = 5 * time.Minute

// Fetcher retrieves the raw HTML of a report page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages over HTTP, bypassing caches. The zero value uses
// [http.DefaultClient].
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch returns the body of url, or a [*FetchError] for transport failures
// and non-2xx responses.
func (f HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	return string(body), nil
}

// StageContent is a page fragment ready to be mounted.
type StageContent struct {
	HTML   string
	Styles string
	// StyleLinks are absolute stylesheet URLs.
	StyleLinks []string
}

// SettleTimings bounds the waits performed before rasterizing.
type SettleTimings struct {
	StylesheetWait time.Duration
	FontWait       time.Duration
}

// StageFactory opens the live document that fragments are mounted into.
type StageFactory interface {
	// Open loads hostURL so its fonts and base styles apply, and prepares a
	// white container of width CSS pixels.
	Open(ctx context.Context, hostURL string, width int) (Stage, error)
}

// Stage is the single container reused for every page of a capture export.
type Stage interface {
	// Mount replaces the container contents with c.
	Mount(ctx context.Context, c StageContent) error
	// Settle waits for one frame, then for stylesheets and fonts, each
	// bounded by t.
	Settle(ctx context.Context, t SettleTimings) error
	// Rasterize captures the container at scale.
	Rasterize(ctx context.Context, scale float64) (RasterImage, error)
	Close() error
}

// CaptureRenderer exports report pages by fetching each page, extracting its
// main content offline, and rasterizing it inside one shared stage. Tall
// pages continue over as many PDF pages as needed.
//
// By default a page that fails is logged and skipped; the export only fails
// when nothing could be captured, the stage cannot be opened, or the context
// ends.
//
// A CaptureRenderer is safe for concurrent use; exports run one at a time.
type CaptureRenderer struct {
	cfg     rendererConfig
	capture CaptureConfig
	stages  StageFactory
	fetcher Fetcher
	lock    jobLock

	mu     sync.Mutex
	closed bool
}

// NewCaptureRenderer creates a renderer for pages served under
// cc.BaseURL. Zero fields of cc take their [DefaultCaptureConfig] values.
func NewCaptureRenderer(cc CaptureConfig, opts ...Option) *CaptureRenderer {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	stages := cfg.stages
	if stages == nil {
		stages = &rodStages{cfg: cfg}
	}
	fetcher := cfg.fetcher
	if fetcher == nil {
		fetcher = HTTPFetcher{Client: cfg.httpClient}
	}
	return &CaptureRenderer{
		cfg:     cfg,
		capture: cc.resolved(),
		stages:  stages,
		fetcher: fetcher,
		lock:    newJobLock(),
	}
}

// Close marks the renderer closed. Close is idempotent.
func (r *CaptureRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *CaptureRenderer) checkClosed() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

// Render captures pages in order and returns the combined PDF. Page names
// are sanitized leniently; use [ResolvePages] to build the list.
func (r *CaptureRenderer) Render(ctx context.Context, pages []string) (*Result, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	if r.capture.ContentSelector != "" {
		if _, err := dom.Compile(r.capture.ContentSelector); err != nil {
			return nil, fmt.Errorf("reportpdf: capture: %w", err)
		}
	}
	names, _ := Sanitizer{}.NormalizePageList(pages)

	if d := r.cfg.exportTimeout(DefaultExportTimeout); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := r.lock.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.lock.release()

	job := newExportJob(PipelineCapture, names, r.cfg.progress, r.cfg.logger)
	job.log.Info("starting export", zap.Strings("pages", names))
	job.report("Gathering pages…")

	stage, err := r.stages.Open(ctx, r.capture.hostURL(names), r.capture.ContainerWidth)
	if err != nil {
		return nil, exportError(ctx, fmt.Errorf("reportpdf: opening stage: %w", err))
	}
	defer closeQuietly(job.log, "stage", stage)

	doc := NewDocument(r.cfg.page)
	policy := r.cfg.failurePolicy(SkipFailedPages)
	var rendered []string
	var skipped []*PageError

	for i, name := range names {
		job.report("Processing %d of %d", i+1, len(names))

		img, title, err := r.capturePage(ctx, job, stage, name)
		if err == nil {
			err = doc.Add(img, Overflow)
		}
		if err == nil && len(rendered) == 0 && title != "" {
			doc.SetTitle(title)
		}
		if err != nil {
			perr := &PageError{Page: name, Err: err}
			if ctx.Err() != nil {
				return nil, exportError(ctx, perr)
			}
			if policy == AbortOnError {
				job.log.Error("export aborted", zap.String("page", name), zap.Error(err))
				return nil, perr
			}
			job.log.Warn("failed to capture page, skipping", zap.String("page", name), zap.Error(err))
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

// capturePage runs fetch, extract, mount, settle and rasterize for one page.
// It also returns the page title.
func (r *CaptureRenderer) capturePage(ctx context.Context, job *ExportJob, stage Stage, name string) (RasterImage, string, error) {
	pageURL := r.capture.pageURL(name)
	job.report("Capturing %s…", pageURL)

	src, err := r.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return RasterImage{}, "", err
	}

	frag, err := dom.Extract(src, dom.Options{
		ContentSelector: r.capture.ContentSelector,
		Strip:           DefaultRemoveSelectors,
	})
	if err != nil {
		return RasterImage{}, "", fmt.Errorf("extracting %s: %w", name, err)
	}
	if frag.Fallback {
		job.log.Debug("content selector not found, using body",
			zap.String("page", name), zap.String("selector", r.capture.ContentSelector))
	}

	content := StageContent{
		HTML:       frag.HTML,
		Styles:     frag.Styles,
		StyleLinks: resolveLinks(pageURL, frag.StyleLinks),
	}
	if err := stage.Mount(ctx, content); err != nil {
		return RasterImage{}, "", fmt.Errorf("mounting %s: %w", name, err)
	}

	timings := SettleTimings{
		StylesheetWait: r.capture.StylesheetWait,
		FontWait:       r.capture.FontWait,
	}
	if err := stage.Settle(ctx, timings); err != nil {
		return RasterImage{}, "", fmt.Errorf("settling %s: %w", name, err)
	}
	if err := sleepContext(ctx, r.capture.SettleDelay); err != nil {
		return RasterImage{}, "", err
	}

	rctx, cancel := context.WithTimeout(ctx, r.capture.RasterTimeout)
	defer cancel()
	img, err := stage.Rasterize(rctx, r.capture.Scale)
	if err != nil {
		if ctx.Err() == nil && errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return RasterImage{}, "", ErrRasterizationTimeout
		}
		return RasterImage{}, "", err
	}
	return img, frag.Title, nil
}

// resolveLinks makes stylesheet hrefs absolute against the page URL,
// dropping any that cannot be parsed.
func resolveLinks(pageURL string, hrefs []string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	return lo.FilterMap(hrefs, func(href string, _ int) (string, bool) {
		ref, err := url.Parse(href)
		if err != nil {
			return "", false
		}
		return base.ResolveReference(ref).String(), true
	})
}

// exportError marks failures caused by the export deadline.
func exportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrExportTimeout, err)
	}
	return err
}

// RenderCapture exports pages with a temporary [CaptureRenderer].
func RenderCapture(ctx context.Context, cc CaptureConfig, pages []string, opts ...Option) (*Result, error) {
	r := NewCaptureRenderer(cc, opts...)
	defer r.Close()
	return r.Render(ctx, pages)
}
