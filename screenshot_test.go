package reportpdf

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

var errNavigation = errors.New("net::ERR_ABORTED")

// fakeBrowser serves screenshots from memory, keyed by page name. closeErr
// is returned by every session and tab Close.
type fakeBrowser struct {
	mu       sync.Mutex
	launches int
	session  *fakeSession
	tab      *fakeTab
	closeErr error
}

func newFakeBrowser(t *testing.T, pages ...string) *fakeBrowser {
	t.Helper()
	tab := &fakeTab{shots: map[string][]byte{}, missing: map[string]bool{}}
	for i, p := range pages {
		tab.shots[p] = testRaster(t, 40, 30+10*i).PNG
	}
	return &fakeBrowser{tab: tab}
}

func (b *fakeBrowser) Launch(ctx context.Context) (BrowserSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.launches++
	b.tab.closeErr = b.closeErr
	b.session = &fakeSession{tab: b.tab, closeErr: b.closeErr}
	return b.session, nil
}

type fakeSession struct {
	tab      *fakeTab
	closed   bool
	closeErr error
}

func (s *fakeSession) NewTab(ctx context.Context, vp Viewport) (Tab, error) {
	s.tab.viewport = vp
	return s.tab, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return s.closeErr
}

type fakeTab struct {
	shots    map[string][]byte
	missing  map[string]bool
	viewport Viewport

	current   string
	navigated []string
	styles    int
	deadline  bool
	closed    bool
	closeErr  error
}

func (t *fakeTab) Navigate(ctx context.Context, url string) error {
	t.current = path.Base(url)
	t.navigated = append(t.navigated, url)
	if _, ok := t.shots[t.current]; !ok {
		return errNavigation
	}
	return nil
}

func (t *fakeTab) AddStyle(ctx context.Context, css string) error {
	t.styles++
	_, t.deadline = ctx.Deadline()
	return nil
}

func (t *fakeTab) RemoveAll(ctx context.Context, selectors []string) (int, error) {
	return len(selectors), nil
}

func (t *fakeTab) Exists(ctx context.Context, selector string) (bool, error) {
	return !t.missing[t.current], nil
}

func (t *fakeTab) ScreenshotElement(ctx context.Context, selector string) ([]byte, error) {
	return t.shots[t.current], nil
}

func (t *fakeTab) Close() error {
	t.closed = true
	return t.closeErr
}

func testScreenshotConfig() ScreenshotConfig {
	return ScreenshotConfig{
		BaseURL:     "http://reports.test",
		SettleDelay: -1,
	}
}

func TestScreenshotRendererOnePagePerImage(t *testing.T) {
	b := newFakeBrowser(t, "page1.html", "page2.html", "page3.html")
	r := NewScreenshotRenderer(testScreenshotConfig(), WithBrowser(b))
	defer r.Close()

	res, err := r.Render(context.Background(), []string{"page1.html", "page2.html", "page3.html"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !isPDF(res.Bytes()) {
		t.Fatal("output is not a PDF")
	}
	if res.PageCount() != 3 {
		t.Errorf("PageCount = %d, want 3", res.PageCount())
	}
	if got := res.Filename(); got != "report-page1-page2-page3.pdf" {
		t.Errorf("Filename = %q", got)
	}

	info, err := Inspect(res.Bytes())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Pages != 3 {
		t.Errorf("Inspect pages = %d, want 3", info.Pages)
	}

	want := []string{
		"http://reports.test/pages/page1.html",
		"http://reports.test/pages/page2.html",
		"http://reports.test/pages/page3.html",
	}
	if strings.Join(b.tab.navigated, ",") != strings.Join(want, ",") {
		t.Errorf("navigated = %v, want %v", b.tab.navigated, want)
	}
	if b.tab.styles != 3 {
		t.Errorf("hide styles injected %d times, want 3", b.tab.styles)
	}
	if !b.tab.closed || !b.session.closed {
		t.Error("tab or browser session was not closed")
	}
	if b.tab.viewport.Width != 1400 || b.tab.viewport.DeviceScaleFactor != 2 {
		t.Errorf("viewport = %+v", b.tab.viewport)
	}
}

func TestScreenshotRendererSinglePageFilename(t *testing.T) {
	b := newFakeBrowser(t, "page2.html")
	res, err := RenderScreenshots(context.Background(), testScreenshotConfig(), []string{"page2.html"}, WithBrowser(b))
	if err != nil {
		t.Fatalf("RenderScreenshots: %v", err)
	}
	if res.Filename() != "page2.pdf" {
		t.Errorf("Filename = %q, want page2.pdf", res.Filename())
	}
}

func TestScreenshotRendererDefaultPage(t *testing.T) {
	b := newFakeBrowser(t, "page1.html")
	r := NewScreenshotRenderer(testScreenshotConfig(), WithBrowser(b))
	defer r.Close()

	res, err := r.Render(context.Background(), nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := res.Pages(); len(got) != 1 || got[0] != DefaultPage {
		t.Errorf("Pages = %v, want [%s]", got, DefaultPage)
	}
}

func TestScreenshotRendererAbortsOnMissingContent(t *testing.T) {
	b := newFakeBrowser(t, "page1.html", "page2.html", "page3.html")
	b.tab.missing["page2.html"] = true

	r := NewScreenshotRenderer(testScreenshotConfig(), WithBrowser(b))
	defer r.Close()

	res, err := r.Render(context.Background(), []string{"page1.html", "page2.html", "page3.html"})
	if res != nil {
		t.Fatal("expected no output")
	}
	if !errors.Is(err, ErrMissingContentContainer) {
		t.Fatalf("err = %v, want ErrMissingContentContainer", err)
	}
	var perr *PageError
	if !errors.As(err, &perr) || perr.Page != "page2.html" {
		t.Errorf("err = %v, want PageError for page2.html", err)
	}
	if len(b.tab.navigated) != 2 {
		t.Errorf("navigated %d pages, want 2", len(b.tab.navigated))
	}
}

func TestScreenshotRendererReleasesBrowserOnAbort(t *testing.T) {
	tests := []struct {
		name     string
		missing  string
		closeErr error
		want     error
	}{
		{"missing content", "page2.html", nil, ErrMissingContentContainer},
		{"navigation error", "", nil, errNavigation},
		{"missing content with failing close", "page2.html", errors.New("websocket closed"), ErrMissingContentContainer},
		{"navigation error with failing close", "", errors.New("websocket closed"), errNavigation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// page9.html has no screenshot, so navigating to it fails.
			b := newFakeBrowser(t, "page1.html", "page2.html")
			b.closeErr = tt.closeErr
			pages := []string{"page1.html", "page2.html"}
			if tt.missing != "" {
				b.tab.missing[tt.missing] = true
			} else {
				pages = []string{"page1.html", "page9.html", "page2.html"}
			}

			_, err := RenderScreenshots(context.Background(), testScreenshotConfig(), pages, WithBrowser(b))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.closeErr != nil && errors.Is(err, tt.closeErr) {
				t.Errorf("err = %v, close error must not replace the render error", err)
			}
			if !b.tab.closed {
				t.Error("tab was not closed")
			}
			if b.session == nil || !b.session.closed {
				t.Error("browser session was not closed")
			}
		})
	}
}

func TestScreenshotRendererExportTimeout(t *testing.T) {
	b := newFakeBrowser(t, "page1.html")
	if _, err := RenderScreenshots(context.Background(), testScreenshotConfig(), nil, WithBrowser(b)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b.tab.deadline {
		t.Error("render context has a deadline without WithTimeout")
	}

	if _, err := RenderScreenshots(context.Background(), testScreenshotConfig(), nil,
		WithBrowser(b), WithTimeout(time.Minute)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !b.tab.deadline {
		t.Error("WithTimeout did not bound the render")
	}
}

func TestScreenshotRendererSkipPolicy(t *testing.T) {
	b := newFakeBrowser(t, "page1.html", "page3.html")

	r := NewScreenshotRenderer(testScreenshotConfig(),
		WithBrowser(b),
		WithFailurePolicy(SkipFailedPages),
	)
	defer r.Close()

	res, err := r.Render(context.Background(), []string{"page1.html", "page2.html", "page3.html"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.PageCount() != 2 {
		t.Errorf("PageCount = %d, want 2", res.PageCount())
	}
	if len(res.Skipped()) != 1 || res.Skipped()[0].Page != "page2.html" {
		t.Errorf("Skipped = %v", res.Skipped())
	}
}

func TestScreenshotRendererValidatesBeforeLaunch(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "page1.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	sc := testScreenshotConfig()
	sc.Root = PagesRoot(root)

	tests := []struct {
		name  string
		pages []string
		want  error
	}{
		{"missing page", []string{"page1.html", "page9.html"}, ErrPageNotFound},
		{"traversal", []string{"../secret.html"}, ErrInvalidPageName},
		{"wrong extension", []string{"page1.pdf"}, ErrInvalidPageName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBrowser(t, "page1.html")
			r := NewScreenshotRenderer(sc, WithBrowser(b))
			defer r.Close()

			_, err := r.Render(context.Background(), tt.pages)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if b.launches != 0 {
				t.Errorf("browser launched %d times, want 0", b.launches)
			}
		})
	}
}

func TestScreenshotRendererDeterministic(t *testing.T) {
	b := newFakeBrowser(t, "page1.html", "page2.html")
	r := NewScreenshotRenderer(testScreenshotConfig(), WithBrowser(b))
	defer r.Close()

	pages := []string{"page1.html", "page2.html"}
	first, err := r.Render(context.Background(), pages)
	if err != nil {
		t.Fatalf("first Render: %v", err)
	}
	second, err := r.Render(context.Background(), pages)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if first.PageCount() != second.PageCount() {
		t.Errorf("page counts differ: %d vs %d", first.PageCount(), second.PageCount())
	}
}

func TestScreenshotRendererProgress(t *testing.T) {
	b := newFakeBrowser(t, "page1.html", "page2.html")
	var msgs []string
	r := NewScreenshotRenderer(testScreenshotConfig(),
		WithBrowser(b),
		WithProgress(ProgressFunc(func(m string) { msgs = append(msgs, m) })),
	)
	defer r.Close()

	if _, err := r.Render(context.Background(), []string{"page1.html", "page2.html"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(msgs) == 0 || msgs[len(msgs)-1] != "Finalising PDF…" {
		t.Errorf("progress = %v", msgs)
	}
	if msgs[0] != "Rendering page1.html (1 of 2)" {
		t.Errorf("first progress = %q", msgs[0])
	}
}

func TestScreenshotRendererClosed(t *testing.T) {
	r := NewScreenshotRenderer(testScreenshotConfig(), WithBrowser(newFakeBrowser(t)))
	r.Close()
	r.Close()

	if _, err := r.Render(context.Background(), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}
