package dom

import (
	"strconv"
	"strings"
)

// Attr is a single attribute passed to the element builder.
type Attr struct {
	Key   string
	Value string
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

func attr(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
// The builder merges repeated Class attributes instead of replacing them.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// Data creates a data-* attribute.
// Example: Data("field-feedback", "email") → data-field-feedback="email"
func Data(key, value string) Attr { return attr("data-"+key, value) }

// Role sets the role attribute.
func Role(role string) Attr { return attr("role", role) }

// AriaLabel sets the aria-label attribute.
func AriaLabel(label string) Attr { return attr("aria-label", label) }

// AriaLive sets the aria-live attribute.
func AriaLive(mode string) Attr { return attr("aria-live", mode) }

// AriaAtomic sets the aria-atomic attribute.
func AriaAtomic(atomic bool) Attr { return attr("aria-atomic", strconv.FormatBool(atomic)) }

// Name sets the name attribute.
func Name(name string) Attr { return attr("name", name) }

// Type sets the type attribute.
func Type(t string) Attr { return attr("type", t) }

// Value sets the value attribute.
func Value(value string) Attr { return attr("value", value) }

// Href sets the href attribute.
func Href(url string) Attr { return attr("href", url) }

// Action sets the action attribute of a form.
func Action(url string) Attr { return attr("action", url) }

// Method sets the method attribute of a form.
func Method(method string) Attr { return attr("method", method) }

// For sets the for attribute of a label.
func For(id string) Attr { return attr("for", id) }

// Placeholder sets the placeholder attribute.
func Placeholder(text string) Attr { return attr("placeholder", text) }

// GetAttribute returns the value of the named attribute.
func (e *Element) GetAttribute(key string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttribute reports whether the named attribute is present.
func (e *Element) HasAttribute(key string) bool {
	_, ok := e.GetAttribute(key)
	return ok
}

// SetAttribute sets or replaces an attribute value.
func (e *Element) SetAttribute(key, value string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, htmlAttr(key, value))
}

// RemoveAttribute deletes an attribute. Missing attributes are ignored.
func (e *Element) RemoveAttribute(key string) {
	attrs := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		attrs = append(attrs, a)
	}
	e.n.Attr = attrs
}

// ClassList is a live view of an element's class attribute.
type ClassList struct {
	e *Element
}

// ClassList returns the element's class list.
func (e *Element) ClassList() ClassList {
	return ClassList{e: e}
}

// Values returns the classes in attribute order.
func (c ClassList) Values() []string {
	v, _ := c.e.GetAttribute("class")
	return strings.Fields(v)
}

// Contains reports whether the class is present.
func (c ClassList) Contains(name string) bool {
	for _, cls := range c.Values() {
		if cls == name {
			return true
		}
	}
	return false
}

// Add appends classes that are not already present.
func (c ClassList) Add(names ...string) {
	classes := c.Values()
	changed := false
	for _, name := range names {
		for _, n := range strings.Fields(name) {
			if !contains(classes, n) {
				classes = append(classes, n)
				changed = true
			}
		}
	}
	if changed {
		c.e.SetAttribute("class", strings.Join(classes, " "))
	}
}

// Remove deletes classes. The attribute is kept, possibly empty, as the
// browser does.
func (c ClassList) Remove(names ...string) {
	if !c.e.HasAttribute("class") {
		return
	}
	values := c.Values()
	kept := values[:0]
	for _, cls := range values {
		if !contains(names, cls) {
			kept = append(kept, cls)
		}
	}
	c.e.SetAttribute("class", strings.Join(kept, " "))
}

// Toggle adds the class if absent and removes it if present.
// It returns whether the class is present afterwards.
func (c ClassList) Toggle(name string) bool {
	if c.Contains(name) {
		c.Remove(name)
		return false
	}
	c.Add(name)
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
