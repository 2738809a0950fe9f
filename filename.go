package reportpdf

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

const (
	// MultiPageFilename names the PDF of a multi-page export; {pages} is
	// replaced with the page stems joined by dashes.
	MultiPageFilename = "report-{pages}.pdf"

	// FallbackFilename is used when no page names are available at all.
	FallbackFilename = "report.pdf"
)

var dispositionFilename = regexp.MustCompile(`filename="?([^";]+)"?`)

// pageStem returns name without its .html extension.
func pageStem(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 && strings.EqualFold(name[i:], ".html") {
		return name[:i]
	}
	return name
}

// DownloadFilename derives the attachment name for an export of pages. A
// single page keeps its stem; several pages use the multi-page template,
// [MultiPageFilename] when tmpl is empty.
func DownloadFilename(pages []string, tmpl string) string {
	if len(pages) == 1 {
		return pageStem(pages[0]) + ".pdf"
	}
	if tmpl == "" {
		tmpl = MultiPageFilename
	}
	return FilenameFromTemplate(tmpl, pages)
}

// FilenameFromTemplate expands {pages} to every page stem joined by dashes
// and {page} to the first page stem.
func FilenameFromTemplate(tmpl string, pages []string) string {
	if len(pages) == 0 {
		return FallbackFilename
	}
	stems := lo.Map(pages, func(p string, _ int) string { return pageStem(p) })
	r := strings.NewReplacer(
		"{pages}", strings.Join(stems, "-"),
		"{page}", stems[0],
	)
	return r.Replace(tmpl)
}

// FilenameFromDisposition extracts the filename parameter of a
// Content-Disposition header value. It returns "" when there is none.
func FilenameFromDisposition(header string) string {
	m := dispositionFilename.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ContentDisposition formats an attachment header for filename.
func ContentDisposition(filename string) string {
	return `attachment; filename="` + filename + `"`
}
