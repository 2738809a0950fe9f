package reportpdf

import (
	"strings"
	"time"
)

// Viewport is the browser window used for screenshots, in CSS pixels.
type Viewport struct {
	Width             int
	Height            int
	DeviceScaleFactor float64
}

// DefaultHideCSS hides navigation, sidebars, footers and speaker notes so a
// screenshot only shows the report body.
const DefaultHideCSS = `
body {
  background: #ffffff !important;
  margin: 0 !important;
}

.sidebar,
.page-sidebar,
nav,
footer,
.notes-section,
.notes,
.notes-wrapper,
.notes-container,
.notes-panel,
.notes-area,
.notes-block,
.notes-card,
[data-notes],
[data-component="notes"],
[id*="notes"],
.page-footer,
.footer-notes,
.cta-footer {
  display: none !important;
  visibility: hidden !important;
}

.main-content,
main {
  margin-left: 0 !important;
}
`

// DefaultRemoveSelectors lists nodes deleted outright after the hiding
// stylesheet is applied, so they no longer reserve layout space.
var DefaultRemoveSelectors = []string{
	".notes-section",
	".notes",
	".notes-wrapper",
	".notes-container",
	".notes-panel",
	".notes-area",
	".notes-block",
	".notes-card",
	"footer",
	".page-footer",
	".footer-notes",
	".cta-footer",
	"[data-notes]",
	`[data-component="notes"]`,
}

// DefaultContentSelectors are tried in order to locate the region to
// screenshot.
var DefaultContentSelectors = []string{".main-content", "main", "body"}

// ScreenshotConfig tunes the screenshot renderer.
type ScreenshotConfig struct {
	// BaseURL is the origin serving the report tree, e.g. http://localhost:3000.
	BaseURL string

	// PathPrefix is the directory of the pages under BaseURL. Defaults to
	// "/pages/".
	PathPrefix string

	// Root is the local pages directory checked by strict validation.
	// Empty disables the existence check.
	Root PagesRoot

	Viewport          Viewport
	NavigationTimeout time.Duration

	// SettleDelay is waited after navigation. A negative value disables it.
	SettleDelay time.Duration

	HideCSS          string
	RemoveSelectors  []string
	ContentSelectors []string
}

// DefaultScreenshotConfig returns the settings used for report pages.
func DefaultScreenshotConfig() ScreenshotConfig {
	return ScreenshotConfig{
		BaseURL:           "http://localhost:3000",
		PathPrefix:        "/pages/",
		Viewport:          Viewport{Width: 1400, Height: 1800, DeviceScaleFactor: 2},
		NavigationTimeout: 60 * time.Second,
		SettleDelay:       750 * time.Millisecond,
		HideCSS:           DefaultHideCSS,
		RemoveSelectors:   DefaultRemoveSelectors,
		ContentSelectors:  DefaultContentSelectors,
	}
}

func (c ScreenshotConfig) resolved() ScreenshotConfig {
	d := DefaultScreenshotConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.PathPrefix == "" {
		c.PathPrefix = d.PathPrefix
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		c.Viewport = d.Viewport
	}
	if c.Viewport.DeviceScaleFactor <= 0 {
		c.Viewport.DeviceScaleFactor = 1
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = d.NavigationTimeout
	}
	switch {
	case c.SettleDelay < 0:
		c.SettleDelay = 0
	case c.SettleDelay == 0:
		c.SettleDelay = d.SettleDelay
	}
	if c.HideCSS == "" {
		c.HideCSS = d.HideCSS
	}
	if c.RemoveSelectors == nil {
		c.RemoveSelectors = d.RemoveSelectors
	}
	if len(c.ContentSelectors) == 0 {
		c.ContentSelectors = d.ContentSelectors
	}
	return c
}

// pageURL joins the base URL, prefix and page name.
func (c ScreenshotConfig) pageURL(name string) string {
	return joinURL(c.BaseURL, c.PathPrefix, name)
}

func joinURL(base, prefix, name string) string {
	prefix = "/" + strings.Trim(prefix, "/") + "/"
	if prefix == "//" {
		prefix = "/"
	}
	return strings.TrimRight(base, "/") + prefix + name
}

// CaptureConfig tunes the capture renderer.
type CaptureConfig struct {
	// BaseURL is the origin serving the report tree.
	BaseURL string

	// PathPrefix is the directory of the pages under BaseURL. Defaults to
	// "/pages/".
	PathPrefix string

	// HostPath is loaded into the stage tab so document-level fonts and
	// styles apply to mounted fragments. Defaults to the first page.
	HostPath string

	ContentSelector string
	ContainerWidth  int
	Scale           float64

	RasterTimeout  time.Duration
	StylesheetWait time.Duration
	FontWait       time.Duration

	// SettleDelay is waited after fonts load. A negative value disables it.
	SettleDelay time.Duration
}

// DefaultCaptureConfig returns the settings used for report pages.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		BaseURL:         "http://localhost:3000",
		PathPrefix:      "/pages/",
		ContentSelector: ".main-content",
		ContainerWidth:  1200,
		Scale:           1.5,
		RasterTimeout:   15 * time.Second,
		StylesheetWait:  2 * time.Second,
		FontWait:        time.Second,
		SettleDelay:     150 * time.Millisecond,
	}
}

func (c CaptureConfig) resolved() CaptureConfig {
	d := DefaultCaptureConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.PathPrefix == "" {
		c.PathPrefix = d.PathPrefix
	}
	if c.ContentSelector == "" {
		c.ContentSelector = d.ContentSelector
	}
	if c.ContainerWidth <= 0 {
		c.ContainerWidth = d.ContainerWidth
	}
	if c.Scale <= 0 {
		c.Scale = d.Scale
	}
	if c.RasterTimeout <= 0 {
		c.RasterTimeout = d.RasterTimeout
	}
	if c.StylesheetWait <= 0 {
		c.StylesheetWait = d.StylesheetWait
	}
	if c.FontWait <= 0 {
		c.FontWait = d.FontWait
	}
	switch {
	case c.SettleDelay < 0:
		c.SettleDelay = 0
	case c.SettleDelay == 0:
		c.SettleDelay = d.SettleDelay
	}
	return c
}

func (c CaptureConfig) pageURL(name string) string {
	return joinURL(c.BaseURL, c.PathPrefix, name)
}

func (c CaptureConfig) hostURL(pages []string) string {
	if c.HostPath != "" {
		return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.HostPath, "/")
	}
	return c.pageURL(pages[0])
}

// ExportConfig tunes the [RemoteExporter].
type ExportConfig struct {
	// Endpoint is the export URL, e.g. http://localhost:3000/api/generate-pdf.
	Endpoint string

	// HealthEndpoint is checked before exporting, e.g.
	// http://localhost:3000/api/health.
	HealthEndpoint string

	Timeout       time.Duration
	HealthTimeout time.Duration

	// FilenameTemplate names the download when the server sends no
	// Content-Disposition filename. See [FilenameFromTemplate].
	FilenameTemplate string
}

// DefaultExportConfig returns settings for a server on localhost:3000.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Endpoint:         "http://localhost:3000/api/generate-pdf",
		HealthEndpoint:   "http://localhost:3000/api/health",
		Timeout:          5 * time.Minute,
		HealthTimeout:    5 * time.Second,
		FilenameTemplate: MultiPageFilename,
	}
}

func (c ExportConfig) resolved() ExportConfig {
	d := DefaultExportConfig()
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.HealthEndpoint == "" {
		c.HealthEndpoint = d.HealthEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = d.HealthTimeout
	}
	if c.FilenameTemplate == "" {
		c.FilenameTemplate = d.FilenameTemplate
	}
	return c
}
