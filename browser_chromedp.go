package reportpdf

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// chromedpBrowser drives Chrome through the DevTools protocol.
type chromedpBrowser struct {
	cfg rendererConfig
}

// NewChromeBrowser returns the default [Browser] used by
// [ScreenshotRenderer]. It honours the Chrome path, auto download, sandbox
// and headless options.
func NewChromeBrowser(opts ...Option) Browser {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &chromedpBrowser{cfg: cfg}
}

func (b *chromedpBrowser) Launch(ctx context.Context) (BrowserSession, error) {
	path, err := b.cfg.execPath()
	if err != nil {
		return nil, err
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if b.cfg.headless != "" {
		allocOpts = append(allocOpts, chromedp.Flag("headless", b.cfg.headless))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}
	if b.cfg.noSandbox {
		allocOpts = append(allocOpts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	sugar := b.cfg.logger.Named("chromedp").Sugar()
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	s := &chromedpSession{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}

	if err := ctx.Err(); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	// Start the browser eagerly so errors surface at launch time. The first
	// Run ties the process lifetime to its context, so it gets browserCtx.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("reportpdf: starting browser: %w", err)
	}
	return s, nil
}

type chromedpSession struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	once          sync.Once
}

func (s *chromedpSession) NewTab(ctx context.Context, vp Viewport) (Tab, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	t := &chromedpTab{ctx: tabCtx, cancel: tabCancel}

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("reportpdf: opening tab: %w", err)
	}
	err := runWithin(ctx, tabCtx,
		chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height), chromedp.EmulateScale(vp.DeviceScaleFactor)),
		emulation.SetEmulatedMedia().WithMedia("screen"),
		page.SetLifecycleEventsEnabled(true),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("reportpdf: opening tab: %w", err)
	}
	return t, nil
}

// Close shuts the browser down gracefully and then releases the allocator.
func (s *chromedpSession) Close() error {
	var err error
	s.once.Do(func() {
		err = chromedp.Cancel(s.browserCtx)
		s.browserCancel()
		s.allocCancel()
	})
	return err
}

type chromedpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// runWithin runs actions on the chromedp context target while honouring the
// cancellation and deadline of the caller's ctx.
func runWithin(ctx, target context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(target)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (t *chromedpTab) Navigate(ctx context.Context, url string) error {
	w := newLifecycleWaiter()
	listenCtx, stopListening := context.WithCancel(t.ctx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok {
			w.observe(e)
		}
	})

	err := runWithin(ctx, t.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		frame, loader, errorText, _, err := page.Navigate(url).Do(ctx)
		switch {
		case err != nil:
			return err
		case errorText != "":
			return fmt.Errorf("page load error %s", errorText)
		}
		w.expect(frame, loader)
		return nil
	}))
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}

	select {
	case <-w.idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for network idle on %s: %w", url, ctx.Err())
	}
}

type lifecycleKey struct {
	frame  cdp.FrameID
	loader cdp.LoaderID
}

// lifecycleWaiter closes idle once the navigated frame's own document
// reports networkIdle. Subframes and earlier documents are ignored.
type lifecycleWaiter struct {
	mu     sync.Mutex
	want   *lifecycleKey
	seen   map[lifecycleKey]bool
	idle   chan struct{}
	closed bool
}

func newLifecycleWaiter() *lifecycleWaiter {
	return &lifecycleWaiter{
		seen: make(map[lifecycleKey]bool),
		idle: make(chan struct{}),
	}
}

// observe records a lifecycle event. Events may arrive before expect.
func (w *lifecycleWaiter) observe(e *page.EventLifecycleEvent) {
	if e.Name != "networkIdle" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	k := lifecycleKey{frame: e.FrameID, loader: e.LoaderID}
	w.seen[k] = true
	w.check()
}

// expect sets the frame and loader returned by Page.navigate.
func (w *lifecycleWaiter) expect(frame cdp.FrameID, loader cdp.LoaderID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.want = &lifecycleKey{frame: frame, loader: loader}
	w.check()
}

func (w *lifecycleWaiter) check() {
	if w.closed || w.want == nil || !w.seen[*w.want] {
		return
	}
	w.closed = true
	close(w.idle)
}

func (t *chromedpTab) AddStyle(ctx context.Context, css string) error {
	script := fmt.Sprintf(`(() => {
  const style = document.createElement('style');
  style.textContent = %s;
  (document.head || document.documentElement).appendChild(style);
  return true;
})()`, jsString(css))

	var ok bool
	return runWithin(ctx, t.ctx, chromedp.Evaluate(script, &ok))
}

func (t *chromedpTab) RemoveAll(ctx context.Context, selectors []string) (int, error) {
	sel, err := json.Marshal(selectors)
	if err != nil {
		return 0, err
	}
	script := fmt.Sprintf(`((selectors) => {
  let removed = 0;
  for (const selector of selectors) {
    document.querySelectorAll(selector).forEach((el) => { el.remove(); removed++; });
  }
  return removed;
})(%s)`, sel)

	var removed int
	if err := runWithin(ctx, t.ctx, chromedp.Evaluate(script, &removed)); err != nil {
		return 0, err
	}
	return removed, nil
}

func (t *chromedpTab) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	script := fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))
	if err := runWithin(ctx, t.ctx, chromedp.Evaluate(script, &found)); err != nil {
		return false, err
	}
	return found, nil
}

func (t *chromedpTab) ScreenshotElement(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := runWithin(ctx, t.ctx, chromedp.Screenshot(selector, &buf, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("capturing %s: %w", selector, err)
	}
	return buf, nil
}

func (t *chromedpTab) Close() error {
	t.cancel()
	return nil
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
