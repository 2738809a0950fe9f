package reportpdf

import (
	"context"
	"fmt"
	"io"

	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// Browser launches headless browser sessions for the screenshot renderer.
type Browser interface {
	Launch(ctx context.Context) (BrowserSession, error)
}

// BrowserSession is one running browser process.
type BrowserSession interface {
	NewTab(ctx context.Context, vp Viewport) (Tab, error)
	Close() error
}

// Tab is a single browser page reused for every page of an export.
type Tab interface {
	// Navigate loads url and waits until the network is idle.
	Navigate(ctx context.Context, url string) error
	// AddStyle appends a stylesheet to the current document.
	AddStyle(ctx context.Context, css string) error
	// RemoveAll deletes every element matching any of selectors and returns
	// how many were removed.
	RemoveAll(ctx context.Context, selectors []string) (int, error)
	// Exists reports whether selector matches an element.
	Exists(ctx context.Context, selector string) (bool, error)
	// ScreenshotElement captures the first element matching selector as PNG.
	ScreenshotElement(ctx context.Context, selector string) ([]byte, error)
	Close() error
}

// resolveBrowser downloads a compatible Chromium binary if one is not
// already cached and returns the path to the executable. The binary is
// stored in ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser (Windows).
func resolveBrowser() (string, error) {
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("reportpdf: downloading browser: %w", err)
	}
	return path, nil
}

// execPath returns the browser executable to start. An empty path lets the
// driver search the standard locations.
func (c rendererConfig) execPath() (string, error) {
	if c.chromePath != "" {
		return c.chromePath, nil
	}
	if c.autoDownload {
		return resolveBrowser()
	}
	return "", nil
}

// closeQuietly closes c and logs any error.
func closeQuietly(log *zap.Logger, what string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("cleanup failed", zap.String("resource", what), zap.Error(err))
	}
}
