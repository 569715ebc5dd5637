package demo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vango-dev/feedback/pkg/apierr"
	"github.com/vango-dev/feedback/pkg/toast"
)

// TakenEmail is the address the signup API always reports as registered.
const TakenEmail = "taken@example.com"

// ValidationError is the error label of validation responses. They carry
// field errors and no message.
const ValidationError = "Validation Failed"

// errorPayload is the Spring Boot error body shape.
type errorPayload struct {
	Timestamp string             `json:"timestamp"`
	Status    int                `json:"status"`
	Error     string             `json:"error"`
	Message   string             `json:"message,omitempty"`
	Errors    apierr.FieldErrors `json:"errors,omitempty"`
	Path      string             `json:"path"`
}

// SignupRequest is the body of POST /api/signup.
type SignupRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Plan      string `json:"plan" validate:"required,oneof=free pro team"`
}

// NotifyRequest is the body of POST /api/notify.
type NotifyRequest struct {
	Type      string   `json:"type" validate:"omitempty,oneof=success error danger warning info primary"`
	Title     string   `json:"title" validate:"max=120"`
	Message   string   `json:"message" validate:"max=2000"`
	Details   []string `json:"details" validate:"max=20"`
	TimeoutMS *int     `json:"timeoutMs" validate:"omitempty,gte=0"`
	Sticky    bool     `json:"sticky"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors converts validation failures into ordered field errors.
// The first failure of each field wins.
func fieldErrors(err error) (apierr.FieldErrors, bool) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, false
	}
	var out apierr.FieldErrors
	for _, fe := range ve {
		if _, seen := out.Get(fe.Field()); seen {
			continue
		}
		out.Set(fe.Field(), validationMessage(fe))
	}
	return out, true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be blank"
	case "email":
		return "must be a well-formed email address"
	case "min":
		return fmt.Sprintf("size must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("size must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	default:
		return "is invalid"
	}
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "Malformed JSON request")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		fields, ok := fieldErrors(err)
		if !ok {
			s.logger.ErrorContext(r.Context(), "validate request", "error", err)
			writeError(w, r, http.StatusInternalServerError, "")
			return false
		}
		writeValidationError(w, r, http.StatusBadRequest, fields)
		return false
	}
	return true
}

func (s *Server) handleSignupAPI(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if strings.EqualFold(req.Email, TakenEmail) {
		writeError(w, r, http.StatusConflict, "Email is already registered")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Account created",
		"email":   req.Email,
	})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	opts := []toast.Option{
		toast.WithTitle(req.Title),
		toast.WithMessage(req.Message),
		toast.WithDetails(req.Details...),
	}
	if req.Type != "" {
		opts = append(opts, toast.WithType(toast.Type(req.Type)))
	}
	if req.TimeoutMS != nil {
		opts = append(opts, toast.WithTimeout(time.Duration(*req.TimeoutMS)*time.Millisecond))
	}
	if req.Sticky {
		opts = append(opts, toast.Sticky())
	}

	card := s.sessions.acquire(w, r).presenter.Notify(opts...)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": card.ID})
}

// handleFail answers with the error body variants the client must handle.
func (s *Server) handleFail(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "kind") {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Service temporarily unavailable\n"))
	case "empty":
		w.WriteHeader(http.StatusBadGateway)
	case "malformed":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message": "truncated`))
	case "message":
		writeError(w, r, http.StatusNotFound, "Resource not found")
	case "error":
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	case "validation":
		fields := apierr.FieldErrors{
			{Field: "userEmail", Message: "must be a well-formed email address"},
			{Field: "first_name", Message: "must not be blank"},
		}
		writeValidationError(w, r, http.StatusUnprocessableEntity, fields)
	default:
		writeError(w, r, http.StatusNotFound, "Unknown failure kind")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorPayload{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
	})
}

func writeValidationError(w http.ResponseWriter, r *http.Request, status int, fields apierr.FieldErrors) {
	writeJSON(w, status, errorPayload{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Status:    status,
		Error:     ValidationError,
		Errors:    fields,
		Path:      r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
