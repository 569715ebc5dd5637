package dom

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"
)

// selectorCacheSize bounds the compiled selector cache. Attribute selectors
// are built from field names in remote payloads, so the key space is open.
const selectorCacheSize = 512

var selectorCache = mustSelectorCache(selectorCacheSize)

func mustSelectorCache(size int) *lru.Cache[string, cascadia.Selector] {
	c, err := lru.New[string, cascadia.Selector](size)
	if err != nil {
		panic(err)
	}
	return c
}

func compile(sel string) (cascadia.Selector, error) {
	if cached, ok := selectorCache.Get(sel); ok {
		return cached, nil
	}
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("dom: invalid selector %q: %w", sel, err)
	}
	selectorCache.Add(sel, compiled)
	return compiled, nil
}

// QuerySelector returns the first descendant matching sel, or nil.
func (e *Element) QuerySelector(sel string) (*Element, error) {
	all, err := e.QuerySelectorAll(sel)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

// QuerySelectorAll returns every descendant matching sel in document order.
// The element itself is never part of the result.
func (e *Element) QuerySelectorAll(sel string) ([]*Element, error) {
	return e.doc.queryAll(e.n, sel)
}

// QuerySelectorAll searches the whole document.
func (d *Document) QuerySelectorAll(sel string) ([]*Element, error) {
	return d.queryAll(d.root, sel)
}

// QuerySelector returns the first element in the document matching sel.
func (d *Document) QuerySelector(sel string) (*Element, error) {
	all, err := d.queryAll(d.root, sel)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (d *Document) queryAll(root *html.Node, sel string) ([]*Element, error) {
	compiled, err := compile(sel)
	if err != nil {
		return nil, err
	}
	var out []*Element
	for _, n := range compiled.MatchAll(root) {
		if n == root {
			continue
		}
		out = append(out, d.wrap(n))
	}
	return out, nil
}

// AttrEquals builds an attribute-equality selector with the value quoted,
// e.g. AttrEquals("name", "email") → [name="email"].
func AttrEquals(key, value string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return "[" + key + `="` + r.Replace(value) + `"]`
}
