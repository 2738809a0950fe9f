package reportpdf

// PageSize represents paper dimensions in centimeters.
type PageSize struct {
	Width  float64 // Width in centimeters.
	Height float64 // Height in centimeters.
}

// Standard paper sizes.
var (
	A3     = PageSize{Width: 29.7, Height: 42.0}
	A4     = PageSize{Width: 21.0, Height: 29.7}
	A5     = PageSize{Width: 14.8, Height: 21.0}
	Letter = PageSize{Width: 21.59, Height: 27.94}
	Legal  = PageSize{Width: 21.59, Height: 35.56}
)

// Orientation represents the page orientation.
type Orientation int

const (
	// Portrait is the default vertical orientation.
	Portrait Orientation = iota
	// Landscape rotates the page to horizontal orientation.
	Landscape
)

// DefaultMargin is the margin kept around fitted screenshots: half an inch.
const DefaultMargin = 36.0

// PageConfig controls the pages of a composed PDF.
//
// A nil PageConfig or zero-value fields use A4 portrait paper with a
// half-inch margin.
type PageConfig struct {
	// Size specifies the paper size. Defaults to A4.
	Size PageSize

	// Orientation specifies portrait or landscape. Defaults to Portrait.
	Orientation Orientation

	// Margin in points, applied on every side by the fit-to-page layout.
	// The overflow layout always draws edge to edge.
	Margin float64
}

// DefaultPageConfig returns a PageConfig for A4 portrait paper.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Size:        A4,
		Orientation: Portrait,
		Margin:      DefaultMargin,
	}
}

// resolved returns a PageConfig with all zero values replaced by defaults.
func (p *PageConfig) resolved() PageConfig {
	d := DefaultPageConfig()
	if p == nil {
		return d
	}
	r := *p
	if r.Size == (PageSize{}) {
		r.Size = d.Size
	}
	if r.Margin <= 0 {
		r.Margin = d.Margin
	}
	return r
}

// cmToPoints converts centimeters to PDF points (1/72 inch).
func cmToPoints(cm float64) float64 {
	return cm / 2.54 * 72
}

// dimensions returns the page width and height in points, accounting for
// orientation.
func (p *PageConfig) dimensions() (width, height float64) {
	r := p.resolved()
	w := cmToPoints(r.Size.Width)
	h := cmToPoints(r.Size.Height)
	if r.Orientation == Landscape {
		return h, w
	}
	return w, h
}
