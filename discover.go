package reportpdf

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// numberedPagePattern matches report pages named pageN.html.
var numberedPagePattern = regexp.MustCompile(`(?i)(^|/)page(\d+)\.html$`)

type discoveredPage struct {
	file string
	num  int
}

// DiscoverPages extracts the numbered report pages referenced by hrefs and
// returns them in ascending page-number order.
//
// Fragments and query strings are ignored, pages are deduplicated by file
// name, and current (the file being viewed) is always included. Names without
// a parseable number sort last, keeping their discovery order.
func DiscoverPages(hrefs []string, current string) []string {
	seen := make(map[string]bool)
	var pages []discoveredPage

	for _, href := range hrefs {
		file := lastSegment(href)
		m := numberedPagePattern.FindStringSubmatch(file)
		if m == nil || seen[file] {
			continue
		}
		seen[file] = true
		pages = append(pages, discoveredPage{file: file, num: pageNumber(m[2])})
	}

	current = lastSegment(current)
	if current == "" {
		current = DefaultPage
	}
	if !seen[current] {
		num := math.MaxInt
		if m := numberedPagePattern.FindStringSubmatch(current); m != nil {
			num = pageNumber(m[2])
		}
		pages = append(pages, discoveredPage{file: current, num: num})
	}

	sort.SliceStable(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.file
	}
	return out
}

func pageNumber(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return math.MaxInt
	}
	return n
}

// lastSegment strips any fragment or query and returns the final path
// segment of href.
func lastSegment(href string) string {
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		href = href[:i]
	}
	if i := strings.LastIndex(href, "/"); i >= 0 {
		href = href[i+1:]
	}
	return href
}

// CurrentPage infers the page being viewed from a location path. Only files
// under a /pages/ directory count; anything else yields [DefaultPage].
func CurrentPage(locationPath string) string {
	if !strings.Contains(locationPath, "/pages/") {
		return DefaultPage
	}
	name, _ := Sanitize(lastSegment(locationPath), Lenient)
	return name
}

// ResolvePages decides which pages an export covers. An explicit list is
// normalized leniently; without one the pages are discovered from hrefs and
// the current location.
func ResolvePages(explicit []string, hrefs []string, current string) []string {
	if len(explicit) > 0 {
		pages, _ := Sanitizer{}.NormalizePageList(explicit)
		return pages
	}
	return DiscoverPages(hrefs, current)
}
