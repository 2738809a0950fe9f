package reportpdf_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/porticus-lab/reportpdf"
)

// chromeAvailable reports whether a Chrome/Chromium executable is in PATH.
func chromeAvailable() bool {
	for _, name := range []string{
		"chromium-browser", "chromium", "google-chrome",
		"google-chrome-stable", "chrome",
	} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func skipIfNoChrome(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if !chromeAvailable() {
		t.Skip("skipping: Chrome/Chromium not found in PATH")
	}
}

// isPDF checks whether data starts with the PDF magic number.
func isPDF(data []byte) bool {
	return len(data) > 4 && string(data[:5]) == "%PDF-"
}

const testPage = `<!DOCTYPE html>
<html>
<head>
<style>
  body { margin: 0; font-family: sans-serif; }
  .sidebar { position: fixed; left: 0; top: 0; width: 200px; height: 100%%; background: #333; }
  .main-content { margin-left: 220px; padding: 24px; height: %dpx; background: #f4f4f4; }
</style>
</head>
<body>
  <nav class="sidebar">Contents</nav>
  <div class="main-content"><h1>%s</h1></div>
</body>
</html>`

// newReportSite writes a small report tree and serves it.
func newReportSite(t *testing.T) (root string, srv *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	root = filepath.Join(dir, "pages")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	pages := map[string]int{"page1.html": 600, "page2.html": 4000}
	for name, height := range pages {
		html := []byte(fmt.Sprintf(testPage, height, name))
		if err := os.WriteFile(filepath.Join(root, name), html, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	srv = httptest.NewServer(http.FileServer(http.Dir(dir)))
	t.Cleanup(srv.Close)
	return root, srv
}

func TestScreenshotRendererChrome(t *testing.T) {
	skipIfNoChrome(t)
	root, srv := newReportSite(t)

	sc := reportpdf.ScreenshotConfig{
		BaseURL: srv.URL,
		Root:    reportpdf.PagesRoot(root),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := reportpdf.RenderScreenshots(ctx, sc, []string{"page1.html", "page2.html"}, reportpdf.WithNoSandbox())
	if err != nil {
		t.Fatalf("RenderScreenshots: %v", err)
	}
	if !isPDF(res.Bytes()) {
		t.Fatal("output is not a PDF")
	}
	if res.PageCount() != 2 {
		t.Errorf("PageCount = %d, want 2", res.PageCount())
	}
}

func TestCaptureRendererChrome(t *testing.T) {
	skipIfNoChrome(t)
	_, srv := newReportSite(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := reportpdf.RenderCapture(ctx, reportpdf.CaptureConfig{BaseURL: srv.URL},
		[]string{"page1.html", "page2.html", "page3.html"}, reportpdf.WithNoSandbox())
	if err != nil {
		t.Fatalf("RenderCapture: %v", err)
	}
	if !isPDF(res.Bytes()) {
		t.Fatal("output is not a PDF")
	}
	// page2 is several pages tall and page3 does not exist.
	if res.PageCount() < 3 {
		t.Errorf("PageCount = %d, want at least 3", res.PageCount())
	}
	if len(res.Skipped()) != 1 {
		t.Errorf("Skipped = %v, want page3.html", res.Skipped())
	}
}
