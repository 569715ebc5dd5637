// Package formerr renders field-level validation errors onto a form.
//
// Controls are matched by their name attribute and marked with the
// is-invalid class. Messages go into the element whose data-field-feedback
// attribute names the field:
//
//	<input name="email" class="form-control">
//	<div class="invalid-feedback" data-field-feedback="email"></div>
//
// Missing controls and feedback elements are skipped silently.
package formerr

import (
	"github.com/vango-dev/feedback/pkg/apierr"
	"github.com/vango-dev/feedback/pkg/dom"
)

const (
	// InvalidClass marks a control whose value was rejected.
	InvalidClass = "is-invalid"

	// FeedbackAttr names the field an element reports messages for.
	FeedbackAttr = "data-field-feedback"
)

// ClearFieldErrors removes every invalid marker and blanks every feedback
// element inside form. A nil form is ignored.
func ClearFieldErrors(form *dom.Element) {
	if form == nil {
		return
	}
	invalid, _ := form.QuerySelectorAll("." + InvalidClass)
	for _, el := range invalid {
		el.ClassList().Remove(InvalidClass)
	}
	feedback, _ := form.QuerySelectorAll("[" + FeedbackAttr + "]")
	for _, el := range feedback {
		el.SetTextContent("")
	}
}

// SetFieldErrors marks each field's control invalid and writes its message
// into the field's feedback element. Existing markers are left in place;
// use Apply to replace them.
func SetFieldErrors(form *dom.Element, errs apierr.FieldErrors) {
	if form == nil || len(errs) == 0 {
		return
	}
	for _, fe := range errs {
		if control, err := form.QuerySelector(dom.AttrEquals("name", fe.Field)); err == nil && control != nil {
			control.ClassList().Add(InvalidClass)
		}
		if feedback, err := form.QuerySelector(dom.AttrEquals(FeedbackAttr, fe.Field)); err == nil && feedback != nil {
			feedback.SetTextContent(fe.Message)
		}
	}
}

// Apply clears previous errors and sets errs.
func Apply(form *dom.Element, errs apierr.FieldErrors) {
	ClearFieldErrors(form)
	SetFieldErrors(form, errs)
}

// Invalid returns the names of the controls currently marked invalid, in
// document order.
func Invalid(form *dom.Element) []string {
	if form == nil {
		return nil
	}
	invalid, _ := form.QuerySelectorAll("[name]." + InvalidClass)
	names := make([]string, 0, len(invalid))
	for _, el := range invalid {
		name, _ := el.GetAttribute("name")
		names = append(names, name)
	}
	return names
}
