package demo

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/feedback/internal/config"
	"github.com/vango-dev/feedback/pkg/apierr"
	"github.com/vango-dev/feedback/pkg/dom"
	"github.com/vango-dev/feedback/pkg/live"
	"github.com/vango-dev/feedback/pkg/toast"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, mutate func(*config.Config), opts ...Option) *Server {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	base := []Option{
		WithLogger(testLogger()),
		WithPresenterOptions(toast.WithScheduler(toast.SchedulerFunc(func(time.Duration, func()) {}))),
	}
	s, err := New(cfg, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// startServer serves a new server over HTTP with the API base pointing at
// the server itself. mutate runs after the base is set and may override it.
func startServer(t *testing.T, mutate func(*config.Config), opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	srv := httptest.NewUnstartedServer(nil)
	self := "http://" + srv.Listener.Addr().String()

	s := newTestServer(t, func(c *config.Config) {
		c.Server.APIBaseURL = self
		if mutate != nil {
			mutate(c)
		}
	}, opts...)
	srv.Config.Handler = s.Handler()
	srv.Start()
	t.Cleanup(srv.Close)
	return s, srv
}

// newBrowser keeps cookies and does not follow redirects.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, cookies []*http.Cookie) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie", SessionCookie)
	return nil
}

func sessionPresenter(t *testing.T, s *Server, cookies []*http.Cookie) *toast.Presenter {
	t.Helper()
	p, ok := s.SessionPresenter(sessionCookie(t, cookies).Value)
	require.True(t, ok, "session is live")
	return p
}

func parseRecorded(t *testing.T, rec *httptest.ResponseRecorder) *apierr.Descriptor {
	t.Helper()
	return apierr.ParseErrorResponse(context.Background(), rec.Result())
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSignupAPIValidation(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/signup",
		strings.NewReader(`{"email":"nope","password":"short"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(s, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	d := parseRecorded(t, rec)
	assert.Equal(t, http.StatusBadRequest, d.Status)
	assert.Equal(t, ValidationError, d.Message)
	assert.Equal(t, ValidationError, d.Error)
	assert.Equal(t, "/api/signup", d.Path)
	assert.NotEmpty(t, d.Timestamp)
	assert.Equal(t, apierr.FieldErrors{
		{Field: "firstName", Message: "must not be blank"},
		{Field: "lastName", Message: "must not be blank"},
		{Field: "email", Message: "must be a well-formed email address"},
		{Field: "password", Message: "size must be at least 8"},
		{Field: "plan", Message: "must not be blank"},
	}, d.Errors)
}

func TestSignupAPIOutcomes(t *testing.T) {
	valid := `{"firstName":"Ada","lastName":"Lovelace","email":"%s","password":"engine123","plan":"pro"}`

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"malformed", `{"email":`, http.StatusBadRequest, "Malformed JSON request"},
		{"taken", strings.Replace(valid, "%s", TakenEmail, 1), http.StatusConflict, "Email is already registered"},
		{"bad plan", strings.Replace(strings.Replace(valid, "%s", "ada@example.com", 1), `"pro"`, `"gold"`, 1),
			http.StatusBadRequest, ValidationError},
	}

	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(tt.body)))
			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, parseRecorded(t, rec).Message)
		})
	}

	t.Run("created", func(t *testing.T) {
		body := strings.Replace(valid, "%s", "ada@example.com", 1)
		rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(body)))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"message":"Account created","email":"ada@example.com"}`, rec.Body.String())
	})
}

func TestSignupAPIPlanMessage(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"firstName":"A","lastName":"B","email":"a@b.io","password":"12345678","plan":"gold"}`
	d := parseRecorded(t, serve(s, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(body))))

	msg, ok := d.Errors.Get("plan")
	require.True(t, ok)
	assert.Equal(t, "must be one of: free, pro, team", msg)
}

func TestFailKinds(t *testing.T) {
	tests := []struct {
		kind    string
		status  int
		message string
		details []string
	}{
		{"text", http.StatusServiceUnavailable, "Service temporarily unavailable", []string{}},
		{"empty", http.StatusBadGateway, "Request failed (502)", []string{}},
		{"malformed", http.StatusInternalServerError, "Request failed (500)", []string{}},
		{"message", http.StatusNotFound, "Resource not found", []string{}},
		{"error", http.StatusUnauthorized, "Unauthorized", []string{}},
		{"validation", http.StatusUnprocessableEntity, ValidationError, []string{
			"User Email: must be a well-formed email address",
			"First name: must not be blank",
		}},
		{"nope", http.StatusNotFound, "Unknown failure kind", []string{}},
	}

	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/fail/"+tt.kind, nil))
			require.Equal(t, tt.status, rec.Code)

			d := parseRecorded(t, rec)
			assert.Equal(t, tt.status, d.Status)
			assert.Equal(t, tt.message, d.Message)
			assert.Equal(t, tt.details, apierr.ValidationList(d.Errors))
		})
	}
}

func TestNotify(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"type":"warning","title":"Heads up","message":"Disk almost full","details":["/var 91%"],"sticky":true}`
	rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, jsonDecode(rec.Body, &resp))

	card, ok := sessionPresenter(t, s, rec.Result().Cookies()).Card(resp.ID)
	require.True(t, ok)
	assert.Equal(t, toast.TypeWarning, card.Type)
	assert.Equal(t, "Heads up", card.Title)
	assert.Equal(t, []string{"/var 91%"}, card.Details)
	assert.True(t, card.Sticky)
	assert.False(t, card.AutoDismiss())
}

func TestNotifyTimeout(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/notify",
		strings.NewReader(`{"title":"Quick","timeoutMs":1500}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	cards := sessionPresenter(t, s, rec.Result().Cookies()).Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, toast.TypeInfo, cards[0].Type)
	assert.Equal(t, 1500*time.Millisecond, cards[0].Timeout)
}

func TestNotifyValidation(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/notify",
		strings.NewReader(`{"type":"fancy","timeoutMs":-1}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	d := parseRecorded(t, rec)
	assert.Equal(t, apierr.FieldErrors{
		{Field: "type", Message: "must be one of: success, error, danger, warning, info, primary"},
		{Field: "timeoutMs", Message: "must be greater than or equal to 0"},
	}, d.Errors)
	assert.Empty(t, rec.Result().Cookies())
	assert.Zero(t, s.Sessions())
}

func TestNotifyRateLimited(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimit = 0.001
		c.Server.RateBurst = 1
	})

	first := serve(s, httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusAccepted, first.Code)

	second := serve(s, httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "Too many requests", parseRecorded(t, second).Message)
}

func TestNotifyRateLimitIgnoresForwardedFor(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimit = 0.001
		c.Server.RateBurst = 1
	})

	notify := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(`{}`))
		req.Header.Set("X-Forwarded-For", forwarded)
		return serve(s, req).Code
	}
	assert.Equal(t, http.StatusAccepted, notify("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, notify("203.0.113.2"))
}

func TestNotifyRateLimitTrustedProxy(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimit = 0.001
		c.Server.RateBurst = 1
		c.Server.TrustProxy = true
	})

	notify := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(`{}`))
		req.Header.Set("X-Forwarded-For", forwarded)
		return serve(s, req).Code
	}
	assert.Equal(t, http.StatusAccepted, notify("203.0.113.1"))
	assert.Equal(t, http.StatusAccepted, notify("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, notify("203.0.113.1"))
}

func TestNotifyStaysInCallerSession(t *testing.T) {
	s := newTestServer(t, nil)

	first := serve(s, httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(`{"title":"Mine"}`)))
	require.Equal(t, http.StatusAccepted, first.Code)
	mine := sessionCookie(t, first.Result().Cookies())

	other := serve(s, httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(`{"title":"Theirs"}`)))
	require.Equal(t, http.StatusAccepted, other.Code)
	assert.NotEqual(t, mine.Value, sessionCookie(t, other.Result().Cookies()).Value)

	again := httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(`{"title":"Mine too"}`))
	again.AddCookie(mine)
	rec := serve(s, again)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "existing session is reused")

	p, ok := s.SessionPresenter(mine.Value)
	require.True(t, ok)
	var titles []string
	for _, c := range p.Cards() {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"Mine", "Mine too"}, titles)
	assert.Equal(t, 2, s.Sessions())
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.AllowedOrigins = []string{"https://app.example"}
	})
	req := httptest.NewRequest(http.MethodOptions, "/api/signup", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(s, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPage(t *testing.T) {
	s := newTestServer(t, nil)

	first := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, first.Code)
	cookie := sessionCookie(t, first.Result().Cookies())
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	sessionPresenter(t, s, first.Result().Cookies()).Info("Hello", "Welcome back")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	page := rec.Body.String()
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))

	doc, err := dom.Parse(strings.NewReader(page))
	require.NoError(t, err)

	form := doc.GetElementByID(SignupFormID)
	require.NotNil(t, form)
	action, _ := form.GetAttribute("action")
	assert.Equal(t, "/signup", action)

	stack := doc.GetElementByID(toast.StackID)
	require.NotNil(t, stack)
	assert.Contains(t, stack.TextContent(), "Welcome back")

	scripts, err := doc.QuerySelectorAll("script[data-endpoint]")
	require.NoError(t, err)
	assert.Len(t, scripts, 1)
}

func TestPageStackIsPerVisitor(t *testing.T) {
	s := newTestServer(t, nil)

	first := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	sessionPresenter(t, s, first.Result().Cookies()).Error("Signup failed", "Private detail")

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Private detail")

	doc, err := dom.Parse(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	stack := doc.GetElementByID(toast.StackID)
	require.NotNil(t, stack)
	assert.Empty(t, stack.Children())
}

func TestSignupFormFieldErrors(t *testing.T) {
	s, srv := startServer(t, nil)

	resp, err := newBrowser(t).PostForm(srv.URL+"/signup", url.Values{
		"firstName": {"Ada"},
		"email":     {"not-an-email"},
		"password":  {"engine123"},
		"plan":      {"pro"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	doc, err := dom.Parse(resp.Body)
	require.NoError(t, err)
	form := doc.GetElementByID(SignupFormID)
	require.NotNil(t, form)

	email := doc.GetElementByID("email")
	require.NotNil(t, email)
	assert.True(t, email.ClassList().Contains("is-invalid"))
	value, _ := email.GetAttribute("value")
	assert.Equal(t, "not-an-email", value)

	first := doc.GetElementByID("firstName")
	assert.False(t, first.ClassList().Contains("is-invalid"))

	feedback, err := form.QuerySelector(dom.AttrEquals("data-field-feedback", "lastName"))
	require.NoError(t, err)
	require.NotNil(t, feedback)
	assert.Equal(t, "must not be blank", feedback.TextContent())

	password := doc.GetElementByID("password")
	assert.False(t, password.HasAttribute("value"))

	cards := sessionPresenter(t, s, resp.Cookies()).Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, toast.TypeError, cards[0].Type)
	assert.Equal(t, "Signup failed", cards[0].Title)
	assert.Equal(t, []string{
		"Last Name: must not be blank",
		"Email: must be a well-formed email address",
	}, cards[0].Details)
}

func TestSignupFormSuccess(t *testing.T) {
	s, srv := startServer(t, nil)
	browser := newBrowser(t)

	resp, err := browser.PostForm(srv.URL+"/signup", url.Values{
		"firstName": {"Ada"},
		"lastName":  {"Lovelace"},
		"email":     {"ada@example.com"},
		"password":  {"engine123"},
		"plan":      {"team"},
	})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	cards := sessionPresenter(t, s, resp.Cookies()).Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, toast.TypeSuccess, cards[0].Type)
	assert.Equal(t, "Welcome, Ada!", cards[0].Message)

	page, err := browser.Get(srv.URL + "/")
	require.NoError(t, err)
	defer page.Body.Close()
	body, err := io.ReadAll(page.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Welcome, Ada!")
	assert.Equal(t, 1, s.Sessions())
}

func TestSignupFormIgnoresHostHeader(t *testing.T) {
	var leaked atomic.Int32
	elsewhere := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		leaked.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(elsewhere.Close)

	s, srv := startServer(t, nil)

	form := url.Values{
		"firstName": {"Ada"},
		"lastName":  {"Lovelace"},
		"email":     {"ada@example.com"},
		"password":  {"engine123"},
		"plan":      {"pro"},
	}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/signup", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Host = strings.TrimPrefix(elsewhere.URL, "http://")

	resp, err := newBrowser(t).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Zero(t, leaked.Load(), "the form is only ever sent to the configured API")

	cards := sessionPresenter(t, s, resp.Cookies()).Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, toast.TypeSuccess, cards[0].Type)
}

func TestSignupFormConflict(t *testing.T) {
	s, srv := startServer(t, nil)

	resp, err := newBrowser(t).PostForm(srv.URL+"/signup", url.Values{
		"firstName": {"Ada"},
		"lastName":  {"Lovelace"},
		"email":     {TakenEmail},
		"password":  {"engine123"},
		"plan":      {"free"},
	})
	require.NoError(t, err)
	resp.Body.Close()

	cards := sessionPresenter(t, s, resp.Cookies()).Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, "Email is already registered", cards[0].Message)
	assert.Empty(t, cards[0].Details)
}

func TestSignupFormAPIUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	s, srv := startServer(t, func(c *config.Config) {
		c.Server.APIBaseURL = deadURL
	})

	resp, err := newBrowser(t).PostForm(srv.URL+"/signup", url.Values{"firstName": {"Ada"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	cards := sessionPresenter(t, s, resp.Cookies()).Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, apierr.GenericMessage, cards[0].Message)
}

func TestSignupFormUnparseableBodyIsCounted(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("{oops"))
	}))
	t.Cleanup(api.Close)

	s, srv := startServer(t, func(c *config.Config) {
		c.Server.APIBaseURL = api.URL + "/"
	})

	resp, err := newBrowser(t).PostForm(srv.URL+"/signup", url.Values{"firstName": {"Ada"}})
	require.NoError(t, err)
	resp.Body.Close()

	cards := sessionPresenter(t, s, resp.Cookies()).Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, "Request failed (500)", cards[0].Message)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `feedback_response_parse_failures_total{status="500"} 1`)
	assert.Contains(t, body, `feedback_error_responses_total{status="500"} 1`)
	assert.Contains(t, body, `feedback_notifications_shown_total{type="error"} 1`)
	assert.Contains(t, body, `feedback_notifications_active 1`)
	assert.Contains(t, body, `feedback_sessions_active 1`)
	assert.Contains(t, body, `feedback_http_requests_total{method="POST",route="/signup",status="422"} 1`)
}

func TestResolveAPIBase(t *testing.T) {
	tests := []struct {
		addr    string
		baseURL string
		want    string
	}{
		{":8080", "", "http://127.0.0.1:8080"},
		{"0.0.0.0:9000", "", "http://127.0.0.1:9000"},
		{"[::]:9000", "", "http://127.0.0.1:9000"},
		{"localhost:8081", "", "http://localhost:8081"},
		{"10.1.2.3:80", "", "http://10.1.2.3:80"},
		{":8080", "https://api.example/", "https://api.example"},
	}
	for _, tt := range tests {
		t.Run(tt.addr+tt.baseURL, func(t *testing.T) {
			got, err := resolveAPIBase(config.ServerConfig{Addr: tt.addr, APIBaseURL: tt.baseURL})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := New(&config.Config{Server: config.ServerConfig{Addr: "nope"}})
	assert.Error(t, err)
}

func TestWebSocketStack(t *testing.T) {
	s, srv := startServer(t, nil)

	page := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(t, page.Result().Cookies())
	sessionPresenter(t, s, page.Result().Cookies()).Success("Live", "")

	header := http.Header{"Cookie": {SessionCookie + "=" + cookie.Value}}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg live.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, live.MessageStack, msg.Type)
	assert.Contains(t, msg.HTML, "Live")
}

func TestWebSocketRequiresSession(t *testing.T) {
	_, srv := startServer(t, nil)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header := http.Header{"Cookie": {SessionCookie + "=01UNKNOWN"}}
	_, resp, err = websocket.DefaultDialer.Dial(wsURL, header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSessionsAreBounded(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.MaxSessions = 2
	})

	var cookies []*http.Cookie
	for i := 0; i < 3; i++ {
		rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(`{"sticky":true}`)))
		require.Equal(t, http.StatusAccepted, rec.Code)
		cookies = append(cookies, sessionCookie(t, rec.Result().Cookies()))
	}

	assert.Equal(t, 2, s.Sessions())
	_, ok := s.SessionPresenter(cookies[0].Value)
	assert.False(t, ok, "least recently used session is dropped")

	body := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Body.String()
	assert.Contains(t, body, "feedback_sessions_active 2")
	assert.Contains(t, body, "feedback_notifications_active 2")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec := serve(s, req)
	assert.NotEqual(t, cookies[0].Value, sessionCookie(t, rec.Result().Cookies()).Value,
		"an evicted session is replaced")
}

func TestSessionsExpireWhenIdle(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.SessionTTL = time.Minute
	})

	rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(`{"sticky":true}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)
	p := sessionPresenter(t, s, rec.Result().Cookies())
	require.Len(t, p.Cards(), 1)

	s.sessions.sweep(time.Now())
	assert.Equal(t, 1, s.Sessions())

	s.sessions.sweep(time.Now().Add(2 * time.Minute))
	assert.Zero(t, s.Sessions())
	assert.Empty(t, p.Cards(), "cards of an expired session are dropped")

	body := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Body.String()
	assert.Contains(t, body, "feedback_sessions_active 0")
	assert.Contains(t, body, "feedback_notifications_active 0")
}

func TestRunShutsDown(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.Addr = "127.0.0.1:0"
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func jsonDecode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
