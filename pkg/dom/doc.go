// Package dom provides the mutable document model the feedback presenter
// renders into.
//
// In a server-driven UI the document lives on the server: components create
// elements, toggle classes, swap text and listen for events, and the
// resulting tree is rendered to HTML and pushed to the browser. This package
// wraps golang.org/x/net/html nodes with the small subset of the browser DOM
// that feedback widgets need.
//
// # Element API
//
// Elements are created from a Document using the variadic builder, in the
// same style as the element factories of the view layer:
//
//	card := doc.El("div", Class("notification-card"), Role("status"),
//	    doc.El("strong", Class("notification-title"), "Saved"),
//	)
//	doc.Body().AppendChild(card)
//
// Builder arguments can be nil, Attr, []Attr, *Element, []*Element or string
// (a text child).
//
// # Queries
//
// QuerySelector and QuerySelectorAll accept CSS selectors (compiled with
// cascadia and cached). Like the browser, they search descendants only.
//
// # Events
//
// AddEventListener registers a Listener for an event type; Once makes it
// one-shot. Dispatch invokes the listeners registered on the target element.
// Events do not bubble.
//
// # Concurrency
//
// A Document and its elements are not safe for concurrent use. The owner of
// a document serializes all access to it, the way the browser runs every DOM
// mutation on its UI thread.
package dom
