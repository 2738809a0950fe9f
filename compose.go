package reportpdf

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"codeberg.org/go-pdf/fpdf"
)

// Layout selects how a raster image is placed on PDF pages.
type Layout int

const (
	// FitPage draws each image on its own page, scaled down (never up) to fit
	// inside the page margins and centered.
	FitPage Layout = iota
	// Overflow draws each image at full page width and continues it on as
	// many following pages as its height requires.
	Overflow
)

func (l Layout) String() string {
	if l == Overflow {
		return "overflow"
	}
	return "fit"
}

// overflowTolerance absorbs floating point error so an image that exactly
// fills N pages does not produce a blank N+1th page.
const overflowTolerance = 1e-6

// Placement positions an image on one PDF page, in points. Page is the
// index relative to the first page used by the image.
type Placement struct {
	Page int
	X, Y float64
	W, H float64
}

// FitPlacement scales an imgW×imgH image uniformly to fit within the page
// less margin on every side, without enlarging it, and centers the result.
func FitPlacement(imgW, imgH, pageW, pageH, margin float64) Placement {
	maxW := pageW - 2*margin
	maxH := pageH - 2*margin
	scale := math.Min(math.Min(maxW/imgW, maxH/imgH), 1)
	w := imgW * scale
	h := imgH * scale
	return Placement{
		X: (pageW - w) / 2,
		Y: (pageH - h) / 2,
		W: w,
		H: h,
	}
}

// OverflowPlacements slices an imgW×imgH image drawn at full page width into
// consecutive pages. Each page draws the whole image shifted up by one more
// page height, so every page shows the next vertical slice.
func OverflowPlacements(imgW, imgH, pageW, pageH float64) []Placement {
	h := imgH * pageW / imgW
	placements := []Placement{{W: pageW, H: h}}
	left := h - pageH
	for page := 1; left > overflowTolerance; page++ {
		placements = append(placements, Placement{
			Page: page,
			Y:    -float64(page) * pageH,
			W:    pageW,
			H:    h,
		})
		left -= pageH
	}
	return placements
}

// ErrDocumentFinalized is returned when a [Document] is used after
// [Document.Bytes].
var ErrDocumentFinalized = errors.New("reportpdf: document already finalized")

// Document accumulates raster images into a PDF.
//
// The document starts with one blank page which the first image reuses.
// It is serialized exactly once by [Document.Bytes]. A Document is not safe
// for concurrent use.
type Document struct {
	pdf          *fpdf.Fpdf
	pageW, pageH float64
	margin       float64
	fresh        bool
	images       int
	finalized    bool
}

// NewDocument creates an empty document. If pc is nil, [DefaultPageConfig]
// values are used.
func NewDocument(pc *PageConfig) *Document {
	r := pc.resolved()
	w, h := r.dimensions()

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreator("reportpdf", true)
	pdf.SetProducer("reportpdf", true)
	pdf.AddPage()

	return &Document{
		pdf:    pdf,
		pageW:  w,
		pageH:  h,
		margin: r.Margin,
		fresh:  true,
	}
}

// SetTitle sets the document title metadata.
func (d *Document) SetTitle(title string) {
	d.pdf.SetTitle(title, true)
}

// PageSize returns the page width and height in points.
func (d *Document) PageSize() (width, height float64) {
	return d.pageW, d.pageH
}

// Add places img into the document using layout.
func (d *Document) Add(img RasterImage, layout Layout) error {
	if d.finalized {
		return ErrDocumentFinalized
	}
	if img.Width <= 0 || img.Height <= 0 || len(img.PNG) == 0 {
		return fmt.Errorf("reportpdf: cannot compose empty image (%dx%d)", img.Width, img.Height)
	}

	var placements []Placement
	switch layout {
	case Overflow:
		placements = OverflowPlacements(float64(img.Width), float64(img.Height), d.pageW, d.pageH)
	default:
		placements = []Placement{FitPlacement(float64(img.Width), float64(img.Height), d.pageW, d.pageH, d.margin)}
	}

	d.images++
	name := fmt.Sprintf("page-%d", d.images)
	opts := fpdf.ImageOptions{ImageType: "PNG", AllowNegativePosition: true}
	if err := d.register(name, opts, img.PNG); err != nil {
		return err
	}

	for _, p := range placements {
		if d.fresh {
			d.fresh = false
		} else {
			d.pdf.AddPage()
		}
		d.pdf.ImageOptions(name, p.X, p.Y, p.W, p.H, false, opts, 0, "")
	}
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("reportpdf: drawing image: %w", err)
	}
	return nil
}

// register embeds data under name. fpdf errors are sticky and its PNG parser
// can panic on corrupt input; both are turned into an error and cleared so a
// rejected image leaves the document usable.
func (d *Document) register(name string, opts fpdf.ImageOptions, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reportpdf: embedding image: %v", r)
		}
		if err != nil {
			d.pdf.ClearError()
		}
	}()
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("reportpdf: embedding image: %w", err)
	}
	return nil
}

// Images returns the number of images added so far.
func (d *Document) Images() int {
	return d.images
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.pdf.PageCount()
}

// Bytes serializes the document. It may only be called once.
func (d *Document) Bytes() ([]byte, error) {
	if d.finalized {
		return nil, ErrDocumentFinalized
	}
	d.finalized = true

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("reportpdf: writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}
