// Package apierr turns failed HTTP responses into error descriptors that
// can be shown as notifications or mapped onto form fields.
//
// The expected failure body is the shape produced by Spring-style error
// handlers:
//
//	{
//	    "timestamp": "2026-01-02T10:00:00",
//	    "status": 400,
//	    "error": "Validation Failed",
//	    "message": "...",
//	    "errors": {"email": "must be a well-formed email address"},
//	    "path": "/api/signup"
//	}
//
// Every field is optional. ParseErrorResponse never fails: an unreadable or
// malformed body is logged and replaced with a generic descriptor.
//
// # Usage
//
//	resp, err := client.Do(req)
//	if err != nil {
//	    return err
//	}
//	if resp.StatusCode >= 400 {
//	    d := apierr.ParseErrorResponse(ctx, resp)
//	    formerr.Apply(form, d.Errors)
//	    presenter.Error("Request failed", d.Message,
//	        toast.WithDetails(apierr.ValidationList(d.Errors)...))
//	    return apierr.CreateError(d)
//	}
package apierr
