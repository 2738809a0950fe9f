package reportpdf

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// FailurePolicy decides what a renderer does when a single page fails.
type FailurePolicy int

const (
	// PolicyDefault keeps the renderer's own default: the screenshot
	// renderer aborts, the capture renderer skips.
	PolicyDefault FailurePolicy = iota
	// AbortOnError fails the whole export on the first page failure and
	// produces no output.
	AbortOnError
	// SkipFailedPages logs the failing page, leaves it out of the PDF and
	// continues with the next one.
	SkipFailedPages
)

func (p FailurePolicy) String() string {
	switch p {
	case AbortOnError:
		return "abort"
	case SkipFailedPages:
		return "skip"
	default:
		return "default"
	}
}

// ParseFailurePolicy maps "abort" and "skip" to their policies. Anything
// else yields [PolicyDefault].
func ParseFailurePolicy(s string) FailurePolicy {
	switch s {
	case "abort":
		return AbortOnError
	case "skip":
		return SkipFailedPages
	default:
		return PolicyDefault
	}
}

// rendererConfig holds internal configuration shared by both renderers.
type rendererConfig struct {
	chromePath   string
	autoDownload bool
	timeout      time.Duration
	noSandbox    bool
	headless     string
	logger       *zap.Logger
	page         *PageConfig
	failure      FailurePolicy
	progress     Progress
	httpClient   *http.Client

	browser Browser
	stages  StageFactory
	fetcher Fetcher
}

func defaultConfig() rendererConfig {
	return rendererConfig{
		headless: "new",
		logger:   zap.NewNop(),
		progress: NopProgress,
	}
}

// exportTimeout returns the configured overall timeout, or fallback when none
// was set. A result of zero or less means no timeout.
func (c rendererConfig) exportTimeout(fallback time.Duration) time.Duration {
	if c.timeout == 0 {
		return fallback
	}
	return c.timeout
}

func (c rendererConfig) failurePolicy(fallback FailurePolicy) FailurePolicy {
	if c.failure == PolicyDefault {
		return fallback
	}
	return c.failure
}

// Option configures a renderer.
type Option func(*rendererConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *rendererConfig) {
		c.chromePath = path
	}
}

// WithAutoDownload downloads a compatible Chromium build on first use when
// no executable path was given. The binary is cached between runs.
func WithAutoDownload() Option {
	return func(c *rendererConfig) {
		c.autoDownload = true
	}
}

// WithTimeout sets the maximum duration of a whole export. The capture
// pipeline defaults to [DefaultExportTimeout]; the screenshot pipeline has no
// overall limit unless one is set. A negative value disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *rendererConfig) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *rendererConfig) {
		c.noSandbox = true
	}
}

// WithHeadful shows the browser window. Useful for debugging page styles.
func WithHeadful() Option {
	return func(c *rendererConfig) {
		c.headless = ""
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *rendererConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPageConfig sets the paper used for the composed PDF.
func WithPageConfig(pc *PageConfig) Option {
	return func(c *rendererConfig) {
		c.page = pc
	}
}

// WithFailurePolicy overrides the renderer's default page failure policy.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(c *rendererConfig) {
		c.failure = p
	}
}

// WithProgress receives human-readable progress messages during exports.
func WithProgress(p Progress) Option {
	return func(c *rendererConfig) {
		if p != nil {
			c.progress = p
		}
	}
}

// WithBrowser replaces the Chrome driver used by [ScreenshotRenderer].
func WithBrowser(b Browser) Option {
	return func(c *rendererConfig) {
		c.browser = b
	}
}

// WithStageFactory replaces the browser stage used by [CaptureRenderer].
func WithStageFactory(f StageFactory) Option {
	return func(c *rendererConfig) {
		c.stages = f
	}
}

// WithFetcher replaces the HTTP client used by [CaptureRenderer] to load
// pages.
func WithFetcher(f Fetcher) Option {
	return func(c *rendererConfig) {
		c.fetcher = f
	}
}

// WithHTTPClient sets the client used for page fetches and remote exports.
// Timeouts are applied per request through the context, so the client's own
// Timeout should normally be left at zero.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *rendererConfig) {
		c.httpClient = hc
	}
}
