package reportpdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageDim is the media box size of one PDF page, in points.
type PageDim struct {
	Width  float64
	Height float64
}

// PDFInfo summarizes a PDF document.
type PDFInfo struct {
	Pages int
	Size  int
	Title string
	Dims  []PageDim
}

// Inspect parses and validates data as a PDF and reports its page count and
// page sizes.
func Inspect(data []byte) (*PDFInfo, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("reportpdf: reading PDF: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("reportpdf: reading page sizes: %w", err)
	}

	info := &PDFInfo{Pages: ctx.PageCount, Size: len(data), Title: ctx.Title}
	for _, d := range dims {
		info.Dims = append(info.Dims, PageDim{Width: d.Width, Height: d.Height})
	}
	return info, nil
}
