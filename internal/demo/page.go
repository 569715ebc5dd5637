package demo

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/vango-dev/feedback/pkg/apierr"
	"github.com/vango-dev/feedback/pkg/dom"
	"github.com/vango-dev/feedback/pkg/formerr"
	"github.com/vango-dev/feedback/pkg/live"
	"github.com/vango-dev/feedback/pkg/toast"
)

// SignupFormID is the id of the signup form on the page.
const SignupFormID = "signupForm"

const (
	bootstrapCSS   = "https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css"
	bootstrapIcons = "https://cdn.jsdelivr.net/npm/bootstrap-icons@1.11.3/font/bootstrap-icons.min.css"
)

const stackCSS = `
.notification-stack { position: fixed; top: 1rem; right: 1rem; z-index: 1080; width: 22rem; }
.notification-card { animation: notification-in .2s ease-out; }
.notification-card.notification-hide { animation: notification-out .3s ease-in forwards; }
.notification-details { margin: .5rem 0 0; padding-left: 1.25rem; }
@keyframes notification-in { from { opacity: 0; transform: translateX(1rem); } to { opacity: 1; transform: none; } }
@keyframes notification-out { to { opacity: 0; transform: translateX(1rem); } }
`

type formField struct {
	name  string
	label string
	typ   string
}

var signupFields = []formField{
	{"firstName", "First name", "text"},
	{"lastName", "Last name", "text"},
	{"email", "Email", "email"},
	{"password", "Password", "password"},
}

var plans = []string{"free", "pro", "team"}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, s.sessions.acquire(w, r), nil, nil, http.StatusOK)
}

// renderPage writes the signup page with the session's notification stack.
// values refill the form; fields mark rejected controls.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, sess *session, values url.Values, fields apierr.FieldErrors, status int) {
	doc, err := buildPage(sess.presenter, values, fields)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "build page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := doc.Render(w); err != nil {
		s.logger.ErrorContext(r.Context(), "render page", "error", err)
	}
}

func buildPage(p *toast.Presenter, values url.Values, fields apierr.FieldErrors) (*dom.Document, error) {
	doc := dom.NewDocument()

	head, err := doc.QuerySelector("head")
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, errors.New("demo: page has no head")
	}
	head.AppendChild(doc.El("meta", dom.Attr{Key: "charset", Value: "utf-8"}))
	head.AppendChild(doc.El("title", "Sign up"))
	head.AppendChild(doc.El("link", dom.Attr{Key: "rel", Value: "stylesheet"}, dom.Href(bootstrapCSS)))
	head.AppendChild(doc.El("link", dom.Attr{Key: "rel", Value: "stylesheet"}, dom.Href(bootstrapIcons)))
	head.AppendChild(doc.El("style", stackCSS))

	form := signupForm(doc, values)
	formerr.Apply(form, fields)

	body := doc.Body()
	body.AppendChild(doc.El("main", dom.Class("container", "py-5"),
		doc.El("h1", dom.Class("h3", "mb-4"), "Create an account"),
		form,
	))

	for _, fragment := range []string{p.StackHTML(), live.ClientScript} {
		nodes, err := doc.ParseFragment(strings.NewReader(fragment))
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			body.AppendChild(n)
		}
	}
	return doc, nil
}

func signupForm(doc *dom.Document, values url.Values) *dom.Element {
	form := doc.El("form",
		dom.ID(SignupFormID),
		dom.Action("/signup"),
		dom.Method("post"),
		dom.Attr{Key: "novalidate", Value: ""},
	)

	for _, f := range signupFields {
		input := doc.El("input",
			dom.ID(f.name),
			dom.Name(f.name),
			dom.Type(f.typ),
			dom.Class("form-control"),
		)
		if v := values.Get(f.name); v != "" && f.typ != "password" {
			input.SetAttribute("value", v)
		}
		form.AppendChild(doc.El("div", dom.Class("mb-3"),
			doc.El("label", dom.For(f.name), dom.Class("form-label"), f.label),
			input,
			doc.El("div", dom.Class("invalid-feedback"), dom.Attr{Key: formerr.FeedbackAttr, Value: f.name}),
		))
	}

	sel := doc.El("select", dom.ID("plan"), dom.Name("plan"), dom.Class("form-select"),
		doc.El("option", dom.Value(""), "Choose a plan"),
	)
	for _, plan := range plans {
		opt := doc.El("option", dom.Value(plan), plan)
		if values.Get("plan") == plan {
			opt.SetAttribute("selected", "")
		}
		sel.AppendChild(opt)
	}
	form.AppendChild(doc.El("div", dom.Class("mb-3"),
		doc.El("label", dom.For("plan"), dom.Class("form-label"), "Plan"),
		sel,
		doc.El("div", dom.Class("invalid-feedback"), dom.Attr{Key: formerr.FeedbackAttr, Value: "plan"}),
	))

	form.AppendChild(doc.El("button", dom.Type("submit"), dom.Class("btn", "btn-primary"), "Sign up"))
	return form
}
