package toast

import (
	"crypto/rand"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/vango-dev/feedback/pkg/dom"
)

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeDanger  Type = "danger"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
	TypePrimary Type = "primary"
)

// alertClasses maps a type to its alert-* modifier. Unknown types render as info.
var alertClasses = map[Type]string{
	TypeSuccess: "success",
	TypeError:   "danger",
	TypeDanger:  "danger",
	TypeWarning: "warning",
	TypeInfo:    "info",
	TypePrimary: "primary",
}

// AlertClass returns the alert-* modifier used for the card.
func (t Type) AlertClass() string {
	if c, ok := alertClasses[t]; ok {
		return c
	}
	return alertClasses[TypeInfo]
}

// Icon classes used by the convenience constructors.
const (
	IconDefault = "bi bi-info-circle"
	IconSuccess = "bi bi-check-circle"
	IconError   = "bi bi-exclamation-triangle"
	IconInfo    = "bi bi-info-circle"
	IconWarning = "bi bi-exclamation-octagon"
)

// DefaultTimeout is how long a card stays before it dismisses itself.
const DefaultTimeout = 6 * time.Second

// State is the lifecycle state of a card.
type State int32

const (
	StateVisible State = iota
	StateHiding
	StateRemoved
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case StateVisible:
		return "visible"
	case StateHiding:
		return "hiding"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// DismissReason records what started a dismissal.
type DismissReason string

const (
	ReasonTimeout DismissReason = "timeout"
	ReasonClose   DismissReason = "close"
	ReasonRequest DismissReason = "request"
)

// Option configures a single notification.
type Option func(*notification)

type notification struct {
	typ        Type
	title      string
	message    string
	details    []string
	timeout    time.Duration
	timeoutSet bool
	sticky     bool
	icon       string
}

// WithType sets the notification type. The default is TypeInfo.
func WithType(t Type) Option {
	return func(n *notification) {
		n.typ = t
	}
}

// WithTitle sets the title. An empty title falls back to the upper-cased type.
func WithTitle(title string) Option {
	return func(n *notification) {
		n.title = title
	}
}

// WithMessage sets the message text.
func WithMessage(message string) Option {
	return func(n *notification) {
		n.message = message
	}
}

// WithDetails sets the detail list rendered below the message.
func WithDetails(details ...string) Option {
	return func(n *notification) {
		n.details = details
	}
}

// WithTimeout sets the auto-dismiss delay. Zero or negative disables
// auto-dismiss for this card.
func WithTimeout(d time.Duration) Option {
	return func(n *notification) {
		n.timeout = d
		n.timeoutSet = true
	}
}

// Sticky exempts the card from auto-dismiss.
func Sticky() Option {
	return func(n *notification) {
		n.sticky = true
	}
}

// WithIcon sets the icon CSS classes.
func WithIcon(icon string) Option {
	return func(n *notification) {
		n.icon = icon
	}
}

// Card is one rendered notification.
type Card struct {
	ID        string
	Type      Type
	Title     string
	Message   string
	Details   []string
	Timeout   time.Duration
	Sticky    bool
	Icon      string
	CreatedAt time.Time

	el    *dom.Element
	close *dom.Element
	state atomic.Int32
}

// Element returns the card's root element. The element belongs to the
// presenter's document; mutate it only through Presenter.Update.
func (c *Card) Element() *dom.Element {
	return c.el
}

// State returns the current lifecycle state.
func (c *Card) State() State {
	return State(c.state.Load())
}

func (c *Card) setState(s State) {
	c.state.Store(int32(s))
}

// AutoDismiss reports whether a timer was scheduled for the card.
func (c *Card) AutoDismiss() bool {
	return !c.Sticky && c.Timeout > 0
}

func newID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
