package reportpdf

import (
	"bytes"
	"encoding/base64"
	"io"
	"os"
)

// Result holds a generated PDF together with what went into it.
//
// A Result is returned by every renderer. Its methods may be called any
// number of times; the underlying data is never modified.
type Result struct {
	data      []byte
	pages     []string
	skipped   []*PageError
	pageCount int
	filename  string
}

// Bytes returns the raw PDF content.
func (r *Result) Bytes() []byte {
	return r.data
}

// Base64 returns the PDF encoded as a standard base64 string (RFC 4648).
func (r *Result) Base64() string {
	return base64.StdEncoding.EncodeToString(r.data)
}

// Reader returns an [*bytes.Reader] over the PDF content.
func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo writes the full PDF content to w. It implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// WriteToFile writes the PDF to the file at path, creating it if needed.
func (r *Result) WriteToFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, r.data, perm)
}

// Len returns the size of the PDF in bytes.
func (r *Result) Len() int {
	return len(r.data)
}

// Pages returns the names of the pages rendered into the PDF, in order.
func (r *Result) Pages() []string {
	return r.pages
}

// Skipped returns the pages left out of the PDF and why.
func (r *Result) Skipped() []*PageError {
	return r.skipped
}

// PageCount returns the number of PDF pages.
func (r *Result) PageCount() int {
	return r.pageCount
}

// Filename returns the suggested download name.
func (r *Result) Filename() string {
	return r.filename
}
