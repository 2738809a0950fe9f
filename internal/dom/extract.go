// Package dom parses report pages offline: it locates the main content of a
// page, collects its styles, and strips anything that should not be mounted
// into another document.
package dom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fragment is the part of a page that gets mounted and rasterized.
type Fragment struct {
	// HTML is the rendered main-content subtree.
	HTML string

	// Styles is the text of every <style> element of the page, joined by
	// newlines.
	Styles string

	// StyleLinks are the href values of the page's stylesheet links, as
	// written in the source.
	StyleLinks []string

	// Title is the document title, if any.
	Title string

	// Fallback is true when the content selector matched nothing and the
	// body was used instead.
	Fallback bool
}

// Options controls [Extract].
type Options struct {
	// ContentSelector locates the main content. The body is used when it
	// matches nothing.
	ContentSelector string

	// Strip lists selectors of nodes removed from the fragment.
	Strip []string
}

var (
	stylesheetLink = MustCompile("link[rel~=stylesheet][href]")
	styleElement   = MustCompile("style")
	anchorLink     = MustCompile("a[href]")
)

// Extract parses src and returns its main-content fragment. Scripts and
// inline event handlers are removed; nothing in the page is executed.
// Invalid selectors in opts are reported before the page is parsed.
func Extract(src string, opts Options) (*Fragment, error) {
	var content *html.Node
	var contentSel Selector
	if opts.ContentSelector != "" {
		sel, err := Compile(opts.ContentSelector)
		if err != nil {
			return nil, fmt.Errorf("content selector: %w", err)
		}
		contentSel = sel
	}
	strip, err := CompileAll(opts.Strip)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	frag := &Fragment{
		Styles:     collectStyles(doc),
		StyleLinks: collectStyleLinks(doc),
		Title:      title(doc),
	}

	content = Query(doc, contentSel)
	if content == nil {
		content = findBody(doc)
		frag.Fallback = true
	}
	if content == nil {
		return nil, fmt.Errorf("page has no body")
	}

	sanitize(content)
	for _, sel := range strip {
		removeAll(content, sel)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, content); err != nil {
		return nil, fmt.Errorf("rendering fragment: %w", err)
	}
	frag.HTML = buf.String()
	return frag, nil
}

// CompileAll compiles every selector in sels.
func CompileAll(sels []string) ([]Selector, error) {
	out := make([]Selector, 0, len(sels))
	for _, s := range sels {
		sel, err := Compile(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

// Links returns the href of every anchor in src, in document order.
func Links(src string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	hrefs := lo.Map(QueryAll(doc, anchorLink), func(n *html.Node, _ int) string {
		return strings.TrimSpace(Attr(n, "href"))
	})
	return lo.Compact(hrefs), nil
}

func collectStyles(doc *html.Node) string {
	var parts []string
	for _, n := range QueryAll(doc, styleElement) {
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

func collectStyleLinks(doc *html.Node) []string {
	var hrefs []string
	for _, n := range QueryAll(doc, stylesheetLink) {
		if href := strings.TrimSpace(Attr(n, "href")); href != "" {
			hrefs = append(hrefs, href)
		}
	}
	return hrefs
}

func title(doc *html.Node) string {
	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			if n.FirstChild != nil {
				return strings.TrimSpace(n.FirstChild.Data)
			}
			return ""
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := walk(c); t != "" {
				return t
			}
		}
		return ""
	}
	return walk(doc)
}

func findBody(doc *html.Node) *html.Node {
	var walk func(*html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if b := walk(c); b != nil {
				return b
			}
		}
		return nil
	}
	return walk(doc)
}

// sanitize drops script-like elements and on* attributes below root.
func sanitize(root *html.Node) {
	var next *html.Node
	for c := root.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode {
			switch c.DataAtom {
			case atom.Script, atom.Noscript, atom.Iframe, atom.Object, atom.Embed:
				root.RemoveChild(c)
				continue
			}
		}
		sanitize(c)
	}
	if root.Type == html.ElementNode {
		root.Attr = lo.Filter(root.Attr, func(a html.Attribute, _ int) bool {
			key := strings.ToLower(a.Key)
			if strings.HasPrefix(key, "on") {
				return false
			}
			if (key == "href" || key == "src") && strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
				return false
			}
			return true
		})
	}
}

// removeAll deletes every descendant of root matching sel. root itself is
// kept.
func removeAll(root *html.Node, sel Selector) {
	for _, n := range QueryAll(root, sel) {
		if n != root && n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}
