package reportpdf

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed renderer.
	ErrClosed = errors.New("reportpdf: renderer is closed")

	// ErrInvalidPageName is returned by the strict sanitizer for malformed
	// or unsafe page names.
	ErrInvalidPageName = errors.New("reportpdf: invalid page name")

	// ErrPageNotFound is returned when a well-formed page name has no file
	// under the pages root.
	ErrPageNotFound = errors.New("reportpdf: page not found")

	// ErrRasterizationTimeout is returned when capturing a page exceeded its
	// time box.
	ErrRasterizationTimeout = errors.New("reportpdf: rasterization timed out")

	// ErrMissingContentContainer matches any [*MissingContentError].
	ErrMissingContentContainer = errors.New("reportpdf: main content container not found")

	// ErrServerUnreachable is returned by [RemoteExporter] when the export
	// server does not answer its health check.
	ErrServerUnreachable = errors.New("reportpdf: export server is not running")

	// ErrExportTimeout is returned when a remote export exceeded its overall
	// deadline.
	ErrExportTimeout = errors.New("reportpdf: export timed out")

	// ErrInvalidResponse is returned by [RemoteExporter] when the server
	// answered successfully with something other than a PDF.
	ErrInvalidResponse = errors.New("reportpdf: invalid response from server (not a PDF)")

	// ErrNoPages is returned when an export resolved to an empty page list.
	ErrNoPages = errors.New("reportpdf: no pages found to export")

	// ErrNothingCaptured is returned when every page of a batch failed or
	// was skipped, leaving nothing to compose.
	ErrNothingCaptured = errors.New("reportpdf: no pages were captured")
)

// PageError ties a failure to the page that caused it.
type PageError struct {
	Page string
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("reportpdf: page %s: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// FetchError reports a page that could not be retrieved over HTTP.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reportpdf: unable to load %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("reportpdf: unable to load %s (%d)", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MissingContentError is returned by the screenshot pipeline when none of
// the content selectors matched on a page.
type MissingContentError struct {
	Page      string
	Selectors []string
}

func (e *MissingContentError) Error() string {
	return fmt.Sprintf("reportpdf: could not find main content container on %s", e.Page)
}

// Is reports whether target is [ErrMissingContentContainer].
func (e *MissingContentError) Is(target error) bool {
	return target == ErrMissingContentContainer
}

// ServerError is a non-successful answer from the export endpoint.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}
