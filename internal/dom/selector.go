package dom

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector group, e.g. "main > section, .notes".
type Selector struct {
	group cascadia.SelectorGroup
}

// Compile parses sel. Empty or unsupported syntax is an error rather than a
// selector that silently matches nothing.
func Compile(sel string) (Selector, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return Selector{}, fmt.Errorf("empty selector")
	}
	group, err := cascadia.ParseGroup(sel)
	if err != nil {
		return Selector{}, fmt.Errorf("invalid selector %q: %w", sel, err)
	}
	return Selector{group: group}, nil
}

// MustCompile is like [Compile] but panics on error. It is meant for
// package-level selectors.
func MustCompile(sel string) Selector {
	s, err := Compile(sel)
	if err != nil {
		panic(err)
	}
	return s
}

// Match reports whether n matches the selector.
func (s Selector) Match(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && s.group != nil && s.group.Match(n)
}

// QueryAll returns every element under root (inclusive) matching sel, in
// document order.
func QueryAll(root *html.Node, sel Selector) []*html.Node {
	if sel.group == nil {
		return nil
	}
	var out []*html.Node
	if sel.Match(root) {
		out = append(out, root)
	}
	return append(out, cascadia.QueryAll(root, sel.group)...)
}

// Query returns the first element under root matching sel, or nil.
func Query(root *html.Node, sel Selector) *html.Node {
	if sel.group == nil {
		return nil
	}
	if sel.Match(root) {
		return root
	}
	return cascadia.Query(root, sel.group)
}

// Attr returns the value of an attribute on a node.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}
