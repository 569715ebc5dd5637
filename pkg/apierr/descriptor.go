package apierr

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// GenericMessage is the message used when there is no response at all.
const GenericMessage = "Request failed"

// FallbackMessage is the message used when the body carries none.
func FallbackMessage(status int) string {
	return fmt.Sprintf("Request failed (%d)", status)
}

// Descriptor is the normalized form of a failed request.
type Descriptor struct {
	Status    int
	Message   string
	Error     string
	Errors    FieldErrors
	Path      string
	Timestamp string

	// Body is the decoded body: *StructuredBody, *TextBody, or nil when the
	// body could not be read.
	Body Body
}

// HasFieldErrors reports whether the descriptor carries validation errors.
func (d *Descriptor) HasFieldErrors() bool {
	return d != nil && len(d.Errors) > 0
}

// Body is the decoded response body.
type Body interface {
	isBody()
}

// StructuredBody is a JSON body.
type StructuredBody struct {
	Raw []byte
}

func (*StructuredBody) isBody() {}

// Get looks up a gjson path in the raw body.
func (b *StructuredBody) Get(path string) gjson.Result {
	return gjson.GetBytes(b.Raw, path)
}

// TextBody is a plain-text body.
type TextBody struct {
	Text string
}

func (*TextBody) isBody() {}

var (
	errInvalidJSON = errors.New("apierr: body is not valid JSON")
	errNullBody    = errors.New("apierr: body is JSON null")
	errNotObject   = errors.New("apierr: errors is not a JSON object")
)

// decodeStructured builds a descriptor from a JSON body. Missing fields are
// tolerated; errors is kept only when it is an object.
func decodeStructured(status int, raw []byte) (*Descriptor, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errInvalidJSON
	}
	body := gjson.ParseBytes(raw)
	if body.Type == gjson.Null {
		return nil, errNullBody
	}

	// Duplicate top-level keys resolve to the last occurrence, as in
	// JSON.parse.
	fields := members(body)
	d := &Descriptor{
		Status:    status,
		Error:     fields["error"].String(),
		Path:      fields["path"].String(),
		Timestamp: timestamp(fields["timestamp"]),
		Body:      &StructuredBody{Raw: raw},
	}

	switch {
	case truthy(fields["message"]):
		d.Message = fields["message"].String()
	case truthy(fields["error"]):
		d.Message = fields["error"].String()
	default:
		d.Message = FallbackMessage(status)
	}

	if errs := fields["errors"]; errs.IsObject() {
		d.Errors = fieldErrorsFrom(errs)
	}
	return d, nil
}

// members indexes the top-level keys of an object. Later duplicates
// replace earlier ones.
func members(obj gjson.Result) map[string]gjson.Result {
	out := make(map[string]gjson.Result)
	if !obj.IsObject() {
		return out
	}
	obj.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value
		return true
	})
	return out
}

// truthy mirrors how a script would test the field: present, not null,
// not false, not zero and not an empty string.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}

// timestamp keeps string timestamps as-is and other encodings (for example
// a LocalDateTime serialized as an array) as raw JSON.
func timestamp(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return r.Str
	default:
		return r.Raw
	}
}

func fieldErrorsFrom(obj gjson.Result) FieldErrors {
	out := FieldErrors{}
	obj.ForEach(func(key, value gjson.Result) bool {
		msg := value.String()
		if value.Type == gjson.Null {
			msg = ""
		}
		out.Set(key.String(), msg)
		return true
	})
	return out
}

func decodeFieldErrors(data []byte) (FieldErrors, error) {
	if !gjson.ValidBytes(data) {
		return nil, errInvalidJSON
	}
	r := gjson.ParseBytes(data)
	if r.Type == gjson.Null {
		return nil, nil
	}
	if !r.IsObject() {
		return nil, errNotObject
	}
	return fieldErrorsFrom(r), nil
}
