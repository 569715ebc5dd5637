package dom

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Render writes the element and its subtree as HTML.
func (e *Element) Render(w io.Writer) error {
	return html.Render(w, e.n)
}

// OuterHTML returns the element rendered as an HTML string.
func (e *Element) OuterHTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.n); err != nil {
		return ""
	}
	return buf.String()
}

// InnerHTML returns the rendered children of the element.
func (e *Element) InnerHTML() string {
	var buf bytes.Buffer
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// Render writes the full document, doctype included.
func (d *Document) Render(w io.Writer) error {
	if _, err := io.WriteString(w, "<!DOCTYPE html>"); err != nil {
		return err
	}
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.DoctypeNode {
			continue
		}
		if err := html.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}

// Parse builds a Document from a full HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse document: %w", err)
	}
	return newDocument(root), nil
}

// ParseFragment parses HTML as children of <body> and returns the detached
// top-level elements. Top-level text between elements is dropped.
func (d *Document) ParseFragment(r io.Reader) ([]*Element, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, context)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	var out []*Element
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, d.wrap(n))
		}
	}
	return out, nil
}
