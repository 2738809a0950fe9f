package reportpdf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// maxPDFSize bounds how much of an export response is read.
const maxPDFSize = 256 << 20

// RemoteExporter asks a running export server to render pages and
// downloads the resulting PDF.
type RemoteExporter struct {
	cfg    rendererConfig
	export ExportConfig
	client *http.Client
}

// NewRemoteExporter creates an exporter for the server described by ec.
// Zero fields of ec take their [DefaultExportConfig] values.
func NewRemoteExporter(ec ExportConfig, opts ...Option) *RemoteExporter {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	client := cfg.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteExporter{cfg: cfg, export: ec.resolved(), client: client}
}

// Healthy reports whether the server answers its health check with a 2xx
// status within the health timeout.
func (e *RemoteExporter) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, e.export.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.export.HealthEndpoint, nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// endpointFor builds the export URL: page= for one page, pages= for several.
func (e *RemoteExporter) endpointFor(pages []string) (string, error) {
	u, err := url.Parse(e.export.Endpoint)
	if err != nil {
		return "", fmt.Errorf("reportpdf: invalid endpoint: %w", err)
	}
	q := u.Query()
	if len(pages) == 1 {
		q.Set("page", pages[0])
	} else {
		q.Set("pages", strings.Join(pages, ","))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Export requests a PDF of pages from the server. Page names are sanitized
// leniently; an empty list exports [DefaultPage].
func (e *RemoteExporter) Export(ctx context.Context, pages []string) (*Result, error) {
	names, _ := Sanitizer{}.NormalizePageList(pages)

	job := newExportJob(PipelineRemote, names, e.cfg.progress, e.cfg.logger)
	job.report("Connecting to server for %s...", strings.Join(names, ", "))

	if !e.Healthy(ctx) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		job.log.Warn("health check failed", zap.String("endpoint", e.export.HealthEndpoint))
		return nil, ErrServerUnreachable
	}

	endpoint, err := e.endpointFor(names)
	if err != nil {
		return nil, err
	}

	job.report("Generating PDF...")
	reqCtx, cancel := context.WithTimeout(ctx, e.export.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, e.transportError(ctx, reqCtx, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := serverError(resp)
		job.log.Error("export failed", zap.Int("status", resp.StatusCode), zap.String("message", serr.Message))
		return nil, serr
	}

	job.report("Downloading PDF...")
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFSize))
	if err != nil {
		return nil, e.transportError(ctx, reqCtx, endpoint, err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/pdf" {
		return nil, ErrInvalidResponse
	}

	filename := FilenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if filename == "" {
		filename = FilenameFromTemplate(e.export.FilenameTemplate, names)
	}

	pageCount := 0
	if info, err := Inspect(data); err != nil {
		job.log.Warn("could not inspect downloaded PDF", zap.Error(err))
	} else {
		pageCount = info.Pages
	}

	job.report("PDF downloaded successfully (%s)!", filename)
	job.log.Info("export finished",
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", job.Elapsed()),
	)
	return &Result{
		data:      data,
		pages:     names,
		pageCount: pageCount,
		filename:  filename,
	}, nil
}

// transportError classifies a failed request: the export deadline becomes
// ErrExportTimeout, caller cancellation is returned as is, and anything
// else is a connection failure.
func (e *RemoteExporter) transportError(ctx, reqCtx context.Context, endpoint string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrExportTimeout, e.export.Timeout)
	}
	return &FetchError{URL: endpoint, Err: err}
}

// serverError reads the JSON message of a failed export response.
func serverError(resp *http.Response) *ServerError {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body)

	msg := body.Message
	if msg == "" {
		msg = strings.TrimSpace(fmt.Sprintf("Server error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}
	return &ServerError{StatusCode: resp.StatusCode, Message: msg}
}

// UserMessage turns an export error into text suitable for showing to an
// end user. It returns "" for a nil error.
func UserMessage(err error) string {
	var fetchErr *FetchError
	var serverErr *ServerError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExportTimeout), errors.Is(err, context.DeadlineExceeded):
		return "PDF generation timed out. The report may be too large.\n\nPlease try again or contact support."
	case errors.Is(err, ErrServerUnreachable):
		return "PDF Export Server is not running.\n\nPlease start the server by running:\nreportpdf serve\n\nThen try exporting again."
	case errors.As(err, &fetchErr) && fetchErr.StatusCode == 0:
		return "Cannot connect to PDF Export Server.\n\nPlease ensure the server is running:\nreportpdf serve"
	case errors.As(err, &serverErr):
		return "Error: " + serverErr.Message
	default:
		return "Error: " + strings.TrimPrefix(err.Error(), "reportpdf: ")
	}
}
