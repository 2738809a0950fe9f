// Package server provides the HTTP export server. It serves the static report
// tree and renders PDFs on GET /api/generate-pdf.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/porticus-lab/reportpdf"
	"github.com/porticus-lab/reportpdf/internal/config"
	"github.com/porticus-lab/reportpdf/internal/metrics"
)

const defaultIdleTimeout = 60 * time.Second

// Renderer produces the combined PDF for a validated page list.
type Renderer interface {
	Render(ctx context.Context, pages []string) (*reportpdf.Result, error)
}

// Server is the export HTTP server.
type Server struct {
	cfg        *config.Config
	renderer   Renderer
	metrics    *metrics.Metrics
	log        *zap.Logger
	accessLog  bool
	router     *gin.Engine
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *zap.Logger, accessLog bool) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
		s.accessLog = accessLog
	}
}

// WithMetrics records request and export metrics and serves them on
// /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a server rendering with r.
func New(cfg *config.Config, r Renderer, opts ...Option) *Server {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		renderer: r,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(
		requestID(),
		requestLogger(s.log, s.accessLog, s.metrics),
		recovery(s.log),
		cors(s.cfg.Server.AllowedOrigins),
	)

	api := r.Group("/api")
	api.GET("/generate-pdf", s.generatePDF)
	api.GET("/health", s.health)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	static := http.FileServer(http.Dir(s.cfg.Server.StaticRoot))
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		static.ServeHTTP(c.Writer, c.Request)
	})
	return r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestedPages reads the page list: pages= wins over page= when present.
// Repeated parameters are concatenated in order.
func requestedPages(c *gin.Context) ([]string, error) {
	values, ok := c.GetQueryArray("pages")
	if !ok {
		values = c.QueryArray("page")
	}
	return reportpdf.Sanitizer{Policy: reportpdf.Strict}.ParsePageList(strings.Join(values, ","))
}

func (s *Server) generatePDF(c *gin.Context) {
	pages, err := requestedPages(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid page parameter",
			"message": publicMessage(err),
		})
		return
	}

	log := s.log.With(zap.String("request_id", c.GetString(requestIDKey)))
	log.Info("PDF generation requested", zap.Strings("pages", pages))

	done := s.metrics.ExportStarted(reportpdf.PipelineScreenshot)

	// A started render runs to completion even if the client goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	res, err := s.renderer.Render(ctx, pages)
	if err != nil {
		status := metrics.StatusFailure
		if errors.Is(err, reportpdf.ErrInvalidPageName) {
			status = metrics.StatusInvalid
		}
		done(status)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate PDF",
			"message": publicMessage(err),
		})
		return
	}
	done(metrics.StatusSuccess)
	s.metrics.PagesProcessed(reportpdf.PipelineScreenshot, len(res.Pages()), len(res.Skipped()))

	c.Header("Content-Disposition", reportpdf.ContentDisposition(res.Filename()))
	c.Header("Content-Length", strconv.Itoa(res.Len()))
	c.Data(http.StatusOK, "application/pdf", res.Bytes())

	log.Info("PDF sent", zap.String("filename", res.Filename()), zap.Int("pdf_pages", res.PageCount()))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"message": "PDF Export Server is running",
	})
}

// publicMessage strips package prefixes from an error for API responses.
func publicMessage(err error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, reportpdf.ErrInvalidPageName.Error()+": ")
	return strings.TrimPrefix(msg, "reportpdf: ")
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.log.Info("Starting HTTP server",
		zap.String("address", ln.Addr().String()),
		zap.String("static_root", s.cfg.Server.StaticRoot),
		zap.Bool("debug", s.cfg.Server.Debug),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	s.log.Info("Server stopped")
	return nil
}
