package reportpdf

import (
	"bytes"
	"fmt"
	"image/png"
)

// RasterImage is a captured page: PNG bytes and their pixel dimensions.
type RasterImage struct {
	PNG    []byte
	Width  int
	Height int
}

// DecodeRaster wraps PNG data. The whole image is decoded, so truncated or
// corrupt data is rejected here and never reaches the PDF writer.
func DecodeRaster(data []byte) (RasterImage, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return RasterImage{}, fmt.Errorf("reportpdf: decoding screenshot: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return RasterImage{}, fmt.Errorf("reportpdf: screenshot is empty (%dx%d)", b.Dx(), b.Dy())
	}
	return RasterImage{PNG: data, Width: b.Dx(), Height: b.Dy()}, nil
}
