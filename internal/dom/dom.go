// Package dom provides the HTML tree helpers used by the conversion stages:
// fragment parsing, deep cloning, selection and a live document that
// detached trees are temporarily attached to for measurement.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Sentinel errors for tree operations.
var (
	ErrNoMatch         = errors.New("selector matched no element")
	ErrInvalidSelector = errors.New("invalid selector")
)

// ParseFragment parses markup as the content of a new <div> element and
// returns that element, detached from any document.
func ParseFragment(markup string) (*html.Node, error) {
	wrapper := NewElement("div")
	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}

	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML fragment: %w", err)
	}
	for _, n := range nodes {
		wrapper.AppendChild(n)
	}
	return wrapper, nil
}

// Select parses markup and returns the first element matching selector.
func Select(markup, selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, selector, err)
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML document: %w", err)
	}

	match := sel.MatchFirst(doc)
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, selector)
	}
	match.Parent.RemoveChild(match)
	return match, nil
}

// Clone returns a deep copy of n with no parent or siblings.
// <script> elements are dropped unless keepScripts is set.
func Clone(n *html.Node, keepScripts bool) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      slices.Clone(n.Attr),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if !keepScripts && child.Type == html.ElementNode && child.DataAtom == atom.Script {
			continue
		}
		c.AppendChild(Clone(child, keepScripts))
	}
	return c
}

// NewElement creates a detached element.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
		Attr:     attrs,
	}
}

// NewText creates a detached text node.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// Attr returns the value of the attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the attribute key.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// SetStyle writes decls as the inline style of n, sorted by property.
func SetStyle(n *html.Node, decls map[string]string) {
	var b strings.Builder
	for _, prop := range slices.Sorted(maps.Keys(decls)) {
		fmt.Fprintf(&b, "%s: %s; ", prop, decls[prop])
	}
	SetAttr(n, "style", strings.TrimSpace(b.String()))
}

// EnsureID returns the id of n, assigning prefix plus a random UUID if
// it has none.
func EnsureID(n *html.Node, prefix string) string {
	if id, ok := Attr(n, "id"); ok && id != "" {
		return id
	}
	id := prefix + uuid.NewString()
	SetAttr(n, "id", id)
	return id
}

// Root returns the topmost ancestor of n.
func Root(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// Render serializes n and its descendants.
func Render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", fmt.Errorf("rendering HTML: %w", err)
	}
	return buf.String(), nil
}

// InnerText returns the concatenated text content of n.
func InnerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
