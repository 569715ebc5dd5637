package apierr

import "errors"

// ResponseError is an error value carrying a descriptor's fields, for
// callers that prefer to return failures up the stack.
type ResponseError struct {
	Status    int
	Code      string
	Message   string
	Errors    FieldErrors
	Path      string
	Timestamp string
	Body      Body
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return e.Message
}

// CreateError wraps a descriptor into a *ResponseError.
// A nil descriptor or an empty message yields "Request failed".
func CreateError(d *Descriptor) *ResponseError {
	if d == nil {
		return &ResponseError{Message: GenericMessage}
	}
	msg := d.Message
	if msg == "" {
		msg = GenericMessage
	}
	return &ResponseError{
		Status:    d.Status,
		Code:      d.Error,
		Message:   msg,
		Errors:    d.Errors,
		Path:      d.Path,
		Timestamp: d.Timestamp,
		Body:      d.Body,
	}
}

// AsResponseError finds a *ResponseError in err's chain.
func AsResponseError(err error) (*ResponseError, bool) {
	var re *ResponseError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// Descriptor converts the error back into a descriptor.
func (e *ResponseError) Descriptor() *Descriptor {
	return &Descriptor{
		Status:    e.Status,
		Message:   e.Message,
		Error:     e.Code,
		Errors:    e.Errors,
		Path:      e.Path,
		Timestamp: e.Timestamp,
		Body:      e.Body,
	}
}
