package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vango-dev/feedback/pkg/apierr"
	"github.com/vango-dev/feedback/pkg/toast"
)

// handleSignupForm posts the form to the signup API and renders the
// outcome: a success card and a redirect, or the form with field errors
// and an error card.
func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.acquire(w, r)
	if err := r.ParseForm(); err != nil {
		sess.presenter.Error("Signup failed", "The form could not be read.")
		s.renderPage(w, r, sess, nil, nil, http.StatusBadRequest)
		return
	}

	req := SignupRequest{
		FirstName: strings.TrimSpace(r.PostForm.Get("firstName")),
		LastName:  strings.TrimSpace(r.PostForm.Get("lastName")),
		Email:     strings.TrimSpace(r.PostForm.Get("email")),
		Password:  r.PostForm.Get("password"),
		Plan:      r.PostForm.Get("plan"),
	}

	err := s.createAccount(r.Context(), req)
	if err == nil {
		sess.presenter.Success("Account created", "Welcome, "+req.FirstName+"!")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var fields apierr.FieldErrors
	if re, ok := apierr.AsResponseError(err); ok {
		fields = re.Errors
		sess.presenter.Error("Signup failed", re.Message,
			toast.WithDetails(apierr.ValidationList(re.Errors)...))
	} else {
		s.logger.ErrorContext(r.Context(), "signup request failed", "error", err)
		sess.presenter.Error("Signup failed", apierr.GenericMessage)
	}
	s.renderPage(w, r, sess, r.PostForm, fields, http.StatusUnprocessableEntity)
}

// createAccount calls the signup API. A rejected request yields an
// *apierr.ResponseError.
func (s *Server) createAccount(ctx context.Context, req SignupRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode signup: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/api/signup", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build signup request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("signup request: %w", err)
	}
	if resp.StatusCode < http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil
	}

	d := s.parser.Parse(ctx, resp)
	s.metrics.ErrorResponse(d.Status)
	return apierr.CreateError(d)
}
