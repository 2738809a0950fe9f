package reportpdf

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// DefaultPage is substituted when no usable page name was supplied.
const DefaultPage = "page1.html"

// pageNamePattern accepts bare report file names. The extension is matched
// case-insensitively; the stem is not.
var pageNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+\.(?i:html)$`)

// Policy selects how the sanitizer reacts to unusable input.
type Policy int

const (
	// Lenient substitutes the default page for empty or invalid names and
	// never returns an error.
	Lenient Policy = iota
	// Strict rejects empty or invalid names with [ErrInvalidPageName] and,
	// when a root is configured, missing files with [ErrPageNotFound].
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// PagesRoot is the directory holding the report pages.
type PagesRoot string

// Check verifies that name resolves to a regular file under the root.
func (r PagesRoot) Check(name string) error {
	info, err := os.Stat(filepath.Join(string(r), name))
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%w: page %q was not found inside %s", ErrPageNotFound, name, filepath.Base(string(r)))
	}
	return nil
}

// Sanitizer validates page names under a [Policy].
//
// The zero value is a lenient sanitizer substituting [DefaultPage].
type Sanitizer struct {
	Policy Policy

	// Default replaces unusable names under the lenient policy and empty
	// lists under both. Defaults to [DefaultPage].
	Default string

	// Root, when set, makes the strict policy check that every page exists.
	Root PagesRoot
}

func (s Sanitizer) defaultPage() string {
	if s.Default == "" {
		return DefaultPage
	}
	return s.Default
}

// Sanitize validates a single page name. Rules apply in order: trim, require
// a .html suffix, require the exact name pattern, and (strict with a root)
// require the file to exist.
func (s Sanitizer) Sanitize(raw string) (string, error) {
	name, reason := checkPageName(raw)
	if reason != "" {
		if s.Policy == Lenient {
			return s.defaultPage(), nil
		}
		return "", fmt.Errorf("%w: %s", ErrInvalidPageName, reason)
	}
	if s.Policy == Strict && s.Root != "" {
		if err := s.Root.Check(name); err != nil {
			return "", err
		}
	}
	return name, nil
}

// checkPageName returns the trimmed name, or a human-readable reason when it
// cannot be used.
func checkPageName(raw string) (string, string) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", "Page name is empty."
	case !strings.HasSuffix(strings.ToLower(name), ".html"):
		return "", "Only .html files can be exported."
	case !pageNamePattern.MatchString(name):
		return "", "Invalid page name. Use alphanumeric characters, dashes, and underscores only."
	}
	return name, ""
}

// Sanitize validates raw with a default [Sanitizer] for policy.
func Sanitize(raw string, policy Policy) (string, error) {
	return Sanitizer{Policy: policy}.Sanitize(raw)
}

// NormalizePageList sanitizes every entry, drops empty results, removes
// duplicates keeping the first occurrence, and falls back to the default
// page when nothing is left. Under the strict policy the first invalid entry
// fails the whole list.
func (s Sanitizer) NormalizePageList(values []string) ([]string, error) {
	values = lo.Filter(values, func(v string, _ int) bool {
		return strings.TrimSpace(v) != ""
	})

	pages := make([]string, 0, len(values))
	for _, v := range values {
		name, err := s.Sanitize(v)
		if err != nil {
			return nil, err
		}
		if name != "" {
			pages = append(pages, name)
		}
	}

	pages = lo.Uniq(pages)
	if len(pages) == 0 {
		return []string{s.defaultPage()}, nil
	}
	return pages, nil
}

// SplitPageList splits a comma-separated list such as a query parameter
// value, trimming entries and dropping blanks.
func SplitPageList(raw string) []string {
	parts := lo.Map(strings.Split(raw, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})
	return lo.Filter(parts, func(p string, _ int) bool { return p != "" })
}

// ParsePageList is SplitPageList followed by NormalizePageList.
func (s Sanitizer) ParsePageList(raw string) ([]string, error) {
	return s.NormalizePageList(SplitPageList(raw))
}
