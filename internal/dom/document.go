package dom

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const skeleton = `<!DOCTYPE html><html><head><meta charset="utf-8"></head><body></body></html>`

// Document is the live document that detached trees are attached to so a
// rasterizer can lay them out. It is safe for concurrent use.
type Document struct {
	mu   sync.Mutex
	root *html.Node
	head *html.Node
	body *html.Node
}

// NewDocument returns an empty HTML document carrying the given
// stylesheets in its head.
func NewDocument(stylesheets ...string) *Document {
	root, err := html.Parse(strings.NewReader(skeleton))
	if err != nil {
		// The skeleton is a constant, so parsing cannot fail.
		panic(fmt.Sprintf("dom: parsing document skeleton: %v", err))
	}

	d := &Document{root: root}
	d.head = find(root, atom.Head)
	d.body = find(root, atom.Body)

	for _, css := range stylesheets {
		d.AddStylesheet(css)
	}
	return d
}

// AddStylesheet appends a <style> element to the document head.
func (d *Document) AddStylesheet(css string) {
	if strings.TrimSpace(css) == "" {
		return
	}
	style := NewElement("style")
	style.AppendChild(NewText(css))

	d.mu.Lock()
	d.head.AppendChild(style)
	d.mu.Unlock()
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the <body> element.
func (d *Document) Body() *html.Node {
	return d.body
}

// Contains reports whether n is currently part of the document.
func (d *Document) Contains(n *html.Node) bool {
	if n == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return Root(n) == d.root
}

// Attach appends n to the document body and returns the scoped
// attachment that detaches it again.
func (d *Document) Attach(n *html.Node) *Attachment {
	d.mu.Lock()
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	d.body.AppendChild(n)
	d.mu.Unlock()

	return &Attachment{doc: d, node: n}
}

// Attachment is a tree attached to a Document. Release detaches it and
// may be called any number of times.
type Attachment struct {
	doc  *Document
	node *html.Node
	once sync.Once
}

// Node returns the attached tree.
func (a *Attachment) Node() *html.Node {
	return a.node
}

// Release detaches the tree from the document.
func (a *Attachment) Release() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.doc.mu.Lock()
		defer a.doc.mu.Unlock()
		if a.node.Parent != nil {
			a.node.Parent.RemoveChild(a.node)
		}
	})
}

// Attached reports whether the tree is still in the document.
func (a *Attachment) Attached() bool {
	if a == nil {
		return false
	}
	return a.doc.Contains(a.node)
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}
