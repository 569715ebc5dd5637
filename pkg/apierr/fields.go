package apierr

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FieldError is one field-level validation message.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors is an ordered field → message list. It keeps the key order of
// the JSON object it was decoded from.
type FieldErrors []FieldError

// FieldErrorsFromMap converts a map, sorting fields by name.
func FieldErrorsFromMap(m map[string]string) FieldErrors {
	if m == nil {
		return nil
	}
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	out := make(FieldErrors, 0, len(fields))
	for _, f := range fields {
		out = append(out, FieldError{Field: f, Message: m[f]})
	}
	return out
}

// Get returns the message for field.
func (fe FieldErrors) Get(field string) (string, bool) {
	for _, e := range fe {
		if e.Field == field {
			return e.Message, true
		}
	}
	return "", false
}

// Set replaces the message for field, appending it when absent.
func (fe *FieldErrors) Set(field, message string) {
	for i, e := range *fe {
		if e.Field == field {
			(*fe)[i].Message = message
			return
		}
	}
	*fe = append(*fe, FieldError{Field: field, Message: message})
}

// Map returns the errors as a map.
func (fe FieldErrors) Map() map[string]string {
	m := make(map[string]string, len(fe))
	for _, e := range fe {
		m[e.Field] = e.Message
	}
	return m
}

// MarshalJSON writes a JSON object with the fields in order.
func (fe FieldErrors) MarshalJSON() ([]byte, error) {
	if fe == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range fe {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Field)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Message)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping its key order.
func (fe *FieldErrors) UnmarshalJSON(data []byte) error {
	out, err := decodeFieldErrors(data)
	if err != nil {
		return err
	}
	*fe = out
	return nil
}

var (
	upperRe = regexp.MustCompile(`([A-Z])`)
	sepRe   = regexp.MustCompile(`[_\-]+`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// FormatFieldName turns a field key into a label:
// "userEmail" → "User Email", "first_name" → "First name", "_name" → "name".
func FormatFieldName(name string) string {
	if name == "" {
		return ""
	}
	s := upperRe.ReplaceAllString(name, " $1")
	s = sepRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")

	// Only the first character is upper-cased, before trimming, so a
	// leading separator leaves the word in lower case: "_name" → "name".
	r, size := utf8.DecodeRuneInString(s)
	if r != utf8.RuneError {
		s = string(unicode.ToUpper(r)) + s[size:]
	}
	return strings.TrimSpace(s)
}

// ValidationList flattens errors into "<Field Label>: <message>" lines in order.
func ValidationList(errs FieldErrors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, FormatFieldName(e.Field)+": "+e.Message)
	}
	return out
}
