// Package config loads the reportpdf configuration file.
//
// Configuration is read from YAML, ${VAR} references are expanded, and
// REPORTPDF_* environment variables override individual values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/porticus-lab/reportpdf"
	"github.com/porticus-lab/reportpdf/internal/dom"
	"github.com/porticus-lab/reportpdf/internal/logger"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "reportpdf.yaml"

// Config is the complete reportpdf configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Pages      PagesConfig      `yaml:"pages"`
	Browser    BrowserConfig    `yaml:"browser"`
	Screenshot ScreenshotConfig `yaml:"screenshot"`
	Capture    CaptureConfig    `yaml:"capture"`
	Export     ExportConfig     `yaml:"export"`
	Logging    logger.Config    `yaml:"logging"`
}

// ServerConfig configures the HTTP export server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// StaticRoot is the report tree served for every non-API path.
	StaticRoot string `yaml:"static_root"`
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Metrics         bool          `yaml:"metrics"`
	Debug           bool          `yaml:"debug"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PagesConfig locates the report pages.
type PagesConfig struct {
	// BaseURL is where the browser loads pages from. Empty means the
	// server's own address.
	BaseURL    string `yaml:"base_url"`
	PathPrefix string `yaml:"path_prefix"`
	// Dir is the local pages directory. Empty means PathPrefix under the
	// static root.
	Dir string `yaml:"dir"`
}

// BrowserConfig controls the headless browser.
type BrowserConfig struct {
	ChromePath   string        `yaml:"chrome_path"`
	AutoDownload bool          `yaml:"auto_download"`
	NoSandbox    bool          `yaml:"no_sandbox"`
	Headful      bool          `yaml:"headful"`
	// Timeout bounds a whole capture export.
	Timeout time.Duration `yaml:"timeout"`
}

// ScreenshotConfig tunes the screenshot pipeline.
type ScreenshotConfig struct {
	ViewportWidth     int           `yaml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height"`
	DeviceScale       float64       `yaml:"device_scale"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	ContentSelectors  []string      `yaml:"content_selectors"`
	// FailurePolicy is "abort" or "skip". Empty keeps the pipeline default.
	FailurePolicy string `yaml:"failure_policy"`
}

// CaptureConfig tunes the capture pipeline.
type CaptureConfig struct {
	ContentSelector string        `yaml:"content_selector"`
	ContainerWidth  int           `yaml:"container_width"`
	Scale           float64       `yaml:"scale"`
	RasterTimeout   time.Duration `yaml:"raster_timeout"`
	StylesheetWait  time.Duration `yaml:"stylesheet_wait"`
	FontWait        time.Duration `yaml:"font_wait"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	FailurePolicy   string        `yaml:"failure_policy"`
}

// ExportConfig configures the remote export client.
type ExportConfig struct {
	Endpoint         string        `yaml:"endpoint"`
	HealthEndpoint   string        `yaml:"health_endpoint"`
	Timeout          time.Duration `yaml:"timeout"`
	HealthTimeout    time.Duration `yaml:"health_timeout"`
	FilenameTemplate string        `yaml:"filename_template"`
}

// Default returns the built-in configuration.
func Default() *Config {
	sc := reportpdf.DefaultScreenshotConfig()
	cc := reportpdf.DefaultCaptureConfig()
	ec := reportpdf.DefaultExportConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			StaticRoot:      ".",
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    6 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			Metrics:         true,
		},
		Pages: PagesConfig{
			PathPrefix: "/pages/",
		},
		Browser: BrowserConfig{
			Timeout: 5 * time.Minute,
		},
		Screenshot: ScreenshotConfig{
			ViewportWidth:     sc.Viewport.Width,
			ViewportHeight:    sc.Viewport.Height,
			DeviceScale:       sc.Viewport.DeviceScaleFactor,
			NavigationTimeout: sc.NavigationTimeout,
			SettleDelay:       sc.SettleDelay,
			ContentSelectors:  sc.ContentSelectors,
		},
		Capture: CaptureConfig{
			ContentSelector: cc.ContentSelector,
			ContainerWidth:  cc.ContainerWidth,
			Scale:           cc.Scale,
			RasterTimeout:   cc.RasterTimeout,
			StylesheetWait:  cc.StylesheetWait,
			FontWait:        cc.FontWait,
			SettleDelay:     cc.SettleDelay,
		},
		Export: ExportConfig{
			Endpoint:         ec.Endpoint,
			HealthEndpoint:   ec.HealthEndpoint,
			Timeout:          ec.Timeout,
			HealthTimeout:    ec.HealthTimeout,
			FilenameTemplate: ec.FilenameTemplate,
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 5,
		},
	}
}

// Load reads the configuration at path. A missing file yields the defaults,
// still subject to environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} references.
func expandEnvVars(content string) string {
	return envRef.ReplaceAllStringFunc(content, func(match string) string {
		parts := strings.SplitN(match[2:len(match)-1], ":-", 2)
		if v := os.Getenv(parts[0]); v != "" {
			return v
		}
		if len(parts) > 1 {
			return parts[1]
		}
		return ""
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPORTPDF_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REPORTPDF_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REPORTPDF_STATIC_ROOT"); v != "" {
		cfg.Server.StaticRoot = v
	}
	if v := os.Getenv("REPORTPDF_BASE_URL"); v != "" {
		cfg.Pages.BaseURL = v
	}
	if v := os.Getenv("REPORTPDF_PAGES_DIR"); v != "" {
		cfg.Pages.Dir = v
	}

	if v := os.Getenv("CHROME_PATH"); v != "" {
		cfg.Browser.ChromePath = v
	}
	if v := os.Getenv("REPORTPDF_CHROME_PATH"); v != "" {
		cfg.Browser.ChromePath = v
	}
	if v := os.Getenv("REPORTPDF_NO_SANDBOX"); v != "" {
		cfg.Browser.NoSandbox = parseBool(v)
	}
	if v := os.Getenv("REPORTPDF_AUTO_DOWNLOAD"); v != "" {
		cfg.Browser.AutoDownload = parseBool(v)
	}

	if v := os.Getenv("REPORTPDF_EXPORT_ENDPOINT"); v != "" {
		cfg.Export.Endpoint = v
	}
	if v := os.Getenv("REPORTPDF_HEALTH_ENDPOINT"); v != "" {
		cfg.Export.HealthEndpoint = v
	}

	if v := os.Getenv("REPORTPDF_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REPORTPDF_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("REPORTPDF_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.StaticRoot == "" {
		errs = append(errs, errors.New("server.static_root is required"))
	}
	for _, p := range []struct {
		key, value string
	}{
		{"screenshot.failure_policy", c.Screenshot.FailurePolicy},
		{"capture.failure_policy", c.Capture.FailurePolicy},
	} {
		if p.value != "" && reportpdf.ParseFailurePolicy(p.value) == reportpdf.PolicyDefault {
			errs = append(errs, fmt.Errorf("%s must be \"abort\" or \"skip\", got %q", p.key, p.value))
		}
	}
	if sel := c.Capture.ContentSelector; sel != "" {
		if _, err := dom.Compile(sel); err != nil {
			errs = append(errs, fmt.Errorf("capture.content_selector: %w", err))
		}
	}
	if c.Capture.Scale < 0 {
		errs = append(errs, fmt.Errorf("capture.scale must not be negative, got %v", c.Capture.Scale))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// BaseURL is where browsers load report pages from.
func (c *Config) BaseURL() string {
	if c.Pages.BaseURL != "" {
		return c.Pages.BaseURL
	}
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}

// PagesDir is the local directory holding the report pages.
func (c *Config) PagesDir() string {
	if c.Pages.Dir != "" {
		return c.Pages.Dir
	}
	return filepath.Join(c.Server.StaticRoot, filepath.FromSlash(strings.Trim(c.Pages.PathPrefix, "/")))
}

// ScreenshotOptions converts the screenshot section for the renderer.
func (c *Config) ScreenshotOptions() reportpdf.ScreenshotConfig {
	return reportpdf.ScreenshotConfig{
		BaseURL:    c.BaseURL(),
		PathPrefix: c.Pages.PathPrefix,
		Root:       reportpdf.PagesRoot(c.PagesDir()),
		Viewport: reportpdf.Viewport{
			Width:             c.Screenshot.ViewportWidth,
			Height:            c.Screenshot.ViewportHeight,
			DeviceScaleFactor: c.Screenshot.DeviceScale,
		},
		NavigationTimeout: c.Screenshot.NavigationTimeout,
		SettleDelay:       c.Screenshot.SettleDelay,
		ContentSelectors:  c.Screenshot.ContentSelectors,
	}
}

// CaptureOptions converts the capture section for the renderer.
func (c *Config) CaptureOptions() reportpdf.CaptureConfig {
	return reportpdf.CaptureConfig{
		BaseURL:         c.BaseURL(),
		PathPrefix:      c.Pages.PathPrefix,
		ContentSelector: c.Capture.ContentSelector,
		ContainerWidth:  c.Capture.ContainerWidth,
		Scale:           c.Capture.Scale,
		RasterTimeout:   c.Capture.RasterTimeout,
		StylesheetWait:  c.Capture.StylesheetWait,
		FontWait:        c.Capture.FontWait,
		SettleDelay:     c.Capture.SettleDelay,
	}
}

// ExportOptions converts the export section for the remote client.
func (c *Config) ExportOptions() reportpdf.ExportConfig {
	return reportpdf.ExportConfig{
		Endpoint:         c.Export.Endpoint,
		HealthEndpoint:   c.Export.HealthEndpoint,
		Timeout:          c.Export.Timeout,
		HealthTimeout:    c.Export.HealthTimeout,
		FilenameTemplate: c.Export.FilenameTemplate,
	}
}

// RendererOptions returns the browser options shared by both pipelines.
// policy is the pipeline's failure_policy value. The screenshot pipeline has
// no overall timeout; see [Config.CaptureRendererOptions].
func (c *Config) RendererOptions(log *zap.Logger, policy string) []reportpdf.Option {
	opts := []reportpdf.Option{
		reportpdf.WithLogger(log),
		reportpdf.WithFailurePolicy(reportpdf.ParseFailurePolicy(policy)),
	}
	if c.Browser.ChromePath != "" {
		opts = append(opts, reportpdf.WithChromePath(c.Browser.ChromePath))
	}
	if c.Browser.AutoDownload {
		opts = append(opts, reportpdf.WithAutoDownload())
	}
	if c.Browser.NoSandbox {
		opts = append(opts, reportpdf.WithNoSandbox())
	}
	if c.Browser.Headful {
		opts = append(opts, reportpdf.WithHeadful())
	}
	return opts
}

// CaptureRendererOptions is [Config.RendererOptions] plus the overall export
// timeout from browser.timeout.
func (c *Config) CaptureRendererOptions(log *zap.Logger, policy string) []reportpdf.Option {
	return append(c.RendererOptions(log, policy), reportpdf.WithTimeout(c.Browser.Timeout))
}
