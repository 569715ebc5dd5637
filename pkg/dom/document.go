package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document owns a node tree and the element wrappers handed out for it.
type Document struct {
	root     *html.Node
	elements map[*html.Node]*Element
}

// Element is an element node of a Document.
// The same node always yields the same *Element, so pointer comparison and
// registered listeners are stable across queries.
type Element struct {
	doc       *Document
	n         *html.Node
	listeners map[string][]*listener
}

// NewDocument creates an empty <html><head></head><body></body></html> document.
func NewDocument() *Document {
	root := &html.Node{Type: html.DocumentNode}
	htmlEl := newElementNode("html")
	htmlEl.AppendChild(newElementNode("head"))
	htmlEl.AppendChild(newElementNode("body"))
	root.AppendChild(htmlEl)
	return newDocument(root)
}

func newDocument(root *html.Node) *Document {
	return &Document{
		root:     root,
		elements: make(map[*html.Node]*Element),
	}
}

func newElementNode(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

func htmlAttr(key, value string) html.Attribute {
	return html.Attribute{Key: key, Val: value}
}

// wrap returns the cached wrapper for n, creating it on first use.
func (d *Document) wrap(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	if e, ok := d.elements[n]; ok {
		return e
	}
	e := &Element{doc: d, n: n}
	d.elements[n] = e
	return e
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *Element {
	return d.wrap(findFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Html
	}))
}

// Body returns the <body> element, creating one if the document lacks it.
func (d *Document) Body() *Element {
	body := findFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	})
	if body == nil {
		body = newElementNode("body")
		if htmlEl := d.DocumentElement(); htmlEl != nil {
			htmlEl.n.AppendChild(body)
		} else {
			d.root.AppendChild(body)
		}
	}
	return d.wrap(body)
}

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) *Element {
	return d.wrap(newElementNode(tag))
}

// El creates a detached element from builder arguments.
// Arguments can be: nil, Attr, []Attr, *Element, []*Element, string.
func (d *Document) El(tag string, args ...any) *Element {
	e := d.CreateElement(tag)
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			// Ignore nil (allows conditional attributes)
			continue
		case Attr:
			e.applyAttr(v)
		case []Attr:
			for _, a := range v {
				e.applyAttr(a)
			}
		case *Element:
			if v != nil {
				e.AppendChild(v)
			}
		case []*Element:
			for _, child := range v {
				if child != nil {
					e.AppendChild(child)
				}
			}
		case string:
			e.n.AppendChild(&html.Node{Type: html.TextNode, Data: v})
		}
	}
	return e
}

func (e *Element) applyAttr(a Attr) {
	if a.IsEmpty() {
		return
	}
	if a.Key == "class" {
		e.ClassList().Add(a.Value)
		return
	}
	e.SetAttribute(a.Key, a.Value)
}

// GetElementByID returns the first connected element with the given id.
func (d *Document) GetElementByID(id string) *Element {
	if id == "" {
		return nil
	}
	return d.wrap(findFirst(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, a := range n.Attr {
			if a.Namespace == "" && a.Key == "id" {
				return a.Val == id
			}
		}
		return false
	}))
}

// findFirst walks the subtree under n in document order, excluding n.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// Node returns the underlying html node.
func (e *Element) Node() *html.Node {
	return e.n
}

// Document returns the owning document.
func (e *Element) Document() *Document {
	return e.doc
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string {
	return e.n.Data
}

// ID returns the id attribute.
func (e *Element) ID() string {
	id, _ := e.GetAttribute("id")
	return id
}

// Parent returns the parent element, or nil when detached or at the root.
func (e *Element) Parent() *Element {
	return e.doc.wrap(e.n.Parent)
}

// Children returns the element children in order.
func (e *Element) Children() []*Element {
	var children []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			children = append(children, e.doc.wrap(c))
		}
	}
	return children
}

// AppendChild moves child to the end of e's children and returns it.
// A child that is attached elsewhere is detached first.
func (e *Element) AppendChild(child *Element) *Element {
	if child == nil {
		return nil
	}
	if child.n.Parent != nil {
		child.n.Parent.RemoveChild(child.n)
	}
	e.n.AppendChild(child.n)
	return child
}

// Remove detaches the element from its parent. Detached elements are ignored.
func (e *Element) Remove() {
	if e == nil || e.n.Parent == nil {
		return
	}
	e.n.Parent.RemoveChild(e.n)
}

// IsConnected reports whether the element is attached to its document.
func (e *Element) IsConnected() bool {
	if e == nil {
		return false
	}
	for n := e.n; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

// TextContent returns the concatenated text of all descendant text nodes.
func (e *Element) TextContent() string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
			walk(c)
		}
	}
	walk(e.n)
	return sb.String()
}

// SetTextContent replaces all children with a single text node.
// An empty string leaves the element without children.
func (e *Element) SetTextContent(text string) {
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	if text != "" {
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// Release drops the cached wrappers of a detached subtree so a long-lived
// document does not retain elements that were removed for good.
// Connected elements are left alone.
func (d *Document) Release(e *Element) {
	if e == nil || e.IsConnected() {
		return
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		delete(d.elements, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
}
