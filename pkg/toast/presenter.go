package toast

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/feedback/pkg/dom"
)

// StackID is the id of the notification stack element.
const StackID = "notificationStack"

// Class names the stylesheet targets.
const (
	StackClass   = "notification-stack"
	CardClass    = "notification-card"
	HideClass    = "notification-hide"
	CloseClass   = "notification-close"
	MessageClass = "notification-message"
	DetailsClass = "notification-details"
)

// Event types dispatched on card elements.
const (
	EventClick        = "click"
	EventAnimationEnd = "animationend"
)

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(d time.Duration, f func())

// AfterFunc implements Scheduler.
func (s SchedulerFunc) AfterFunc(d time.Duration, f func()) {
	s(d, f)
}

// TimerScheduler schedules with time.AfterFunc.
var TimerScheduler Scheduler = SchedulerFunc(func(d time.Duration, f func()) {
	time.AfterFunc(d, f)
})

// Observer is told about card lifecycle transitions.
// Observers run with the presenter lock held and must not call back into
// the Presenter synchronously.
type Observer interface {
	CardShown(c *Card)
	CardDismissed(c *Card, reason DismissReason)
	CardRemoved(c *Card)
}

// ObserverFuncs implements Observer with optional callbacks.
type ObserverFuncs struct {
	Shown     func(c *Card)
	Dismissed func(c *Card, reason DismissReason)
	Removed   func(c *Card)
}

// CardShown implements Observer.
func (o ObserverFuncs) CardShown(c *Card) {
	if o.Shown != nil {
		o.Shown(c)
	}
}

// CardDismissed implements Observer.
func (o ObserverFuncs) CardDismissed(c *Card, reason DismissReason) {
	if o.Dismissed != nil {
		o.Dismissed(c, reason)
	}
}

// CardRemoved implements Observer.
func (o ObserverFuncs) CardRemoved(c *Card) {
	if o.Removed != nil {
		o.Removed(c)
	}
}

// PresenterOption configures a Presenter.
type PresenterOption func(*presenterConfig)

type presenterConfig struct {
	doc               *dom.Document
	scheduler         Scheduler
	defaultTimeout    time.Duration
	exitDelay         time.Duration
	awaitAnimationEnd bool
	observers         []Observer
	logger            *slog.Logger
	now               func() time.Time
}

func defaultPresenterConfig() presenterConfig {
	return presenterConfig{
		scheduler:      TimerScheduler,
		defaultTimeout: DefaultTimeout,
		now:            time.Now,
	}
}

// WithDocument makes the presenter render into doc instead of a new document.
func WithDocument(doc *dom.Document) PresenterOption {
	return func(c *presenterConfig) {
		c.doc = doc
	}
}

// WithScheduler replaces the timer source.
func WithScheduler(s Scheduler) PresenterOption {
	return func(c *presenterConfig) {
		c.scheduler = s
	}
}

// WithDefaultTimeout sets the timeout used when a notification sets none.
func WithDefaultTimeout(d time.Duration) PresenterOption {
	return func(c *presenterConfig) {
		c.defaultTimeout = d
	}
}

// WithExitDelay removes hiding cards after d, the length of the exit
// animation. Zero removes them as soon as they are dismissed.
func WithExitDelay(d time.Duration) PresenterOption {
	return func(c *presenterConfig) {
		c.exitDelay = d
	}
}

// WithAwaitAnimationEnd keeps hiding cards until AnimationEnd is called,
// normally when the browser reports the animationend event. An exit delay,
// if set, still removes cards whose event never arrives.
func WithAwaitAnimationEnd(await bool) PresenterOption {
	return func(c *presenterConfig) {
		c.awaitAnimationEnd = await
	}
}

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) PresenterOption {
	return func(c *presenterConfig) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithLogger sets the structured logger. If nil, slog.Default() is used.
func WithLogger(l *slog.Logger) PresenterOption {
	return func(c *presenterConfig) {
		c.logger = l
	}
}

// WithClock sets the clock used for Card.CreatedAt.
func WithClock(now func() time.Time) PresenterOption {
	return func(c *presenterConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// Presenter owns a notification stack and the cards in it.
// It is safe for concurrent use; all document access happens under its lock.
type Presenter struct {
	mu    sync.Mutex
	cfg   presenterConfig
	doc   *dom.Document
	cards map[string]*Card
}

// New creates a Presenter.
func New(opts ...PresenterOption) *Presenter {
	cfg := defaultPresenterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.doc == nil {
		cfg.doc = dom.NewDocument()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.scheduler == nil {
		cfg.scheduler = TimerScheduler
	}
	return &Presenter{
		cfg:   cfg,
		doc:   cfg.doc,
		cards: make(map[string]*Card),
	}
}

// EnsureStack returns the stack element, creating it if the document has none.
func (p *Presenter) EnsureStack() *dom.Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensureStackLocked()
}

func (p *Presenter) ensureStackLocked() *dom.Element {
	if stack := p.doc.GetElementByID(StackID); stack != nil {
		return stack
	}
	stack := p.doc.El("div",
		dom.ID(StackID),
		dom.Class(StackClass),
		dom.AriaLive("polite"),
		dom.AriaAtomic(true),
	)
	p.doc.Body().AppendChild(stack)
	return stack
}

// Notify appends a new card to the stack and returns it.
func (p *Presenter) Notify(opts ...Option) *Card {
	n := notification{typ: TypeInfo}
	for _, opt := range opts {
		opt(&n)
	}
	if n.typ == "" {
		n.typ = TypeInfo
	}
	if !n.timeoutSet {
		n.timeout = p.cfg.defaultTimeout
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	card := p.buildCardLocked(n)
	p.ensureStackLocked().AppendChild(card.el)
	p.cards[card.ID] = card

	p.cfg.logger.Debug("notification shown",
		"id", card.ID,
		"type", string(card.Type),
		"sticky", card.Sticky,
		"timeout", card.Timeout,
	)
	for _, o := range p.cfg.observers {
		o.CardShown(card)
	}

	if card.AutoDismiss() {
		p.cfg.scheduler.AfterFunc(card.Timeout, func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.dismissLocked(card, ReasonTimeout)
		})
	}
	return card
}

func (p *Presenter) buildCardLocked(n notification) *Card {
	card := &Card{
		ID:        newID(),
		Type:      n.typ,
		Title:     strings.TrimSpace(n.title),
		Message:   strings.TrimSpace(n.message),
		Timeout:   n.timeout,
		Sticky:    n.sticky,
		Icon:      n.icon,
		CreatedAt: p.cfg.now(),
	}
	if card.Title == "" {
		card.Title = strings.ToUpper(string(n.typ))
	}
	for _, d := range n.details {
		card.Details = append(card.Details, strings.TrimSpace(d))
	}

	icon := card.Icon
	if icon == "" {
		icon = IconDefault
	}

	doc := p.doc
	card.close = doc.El("button",
		dom.Type("button"),
		dom.Class("btn-close", CloseClass),
		dom.AriaLabel("Close notification"),
	)
	card.close.AddEventListener(EventClick, func(dom.Event) {
		p.dismissLocked(card, ReasonClose)
	})

	var message *dom.Element
	if card.Message != "" {
		message = doc.El("div", dom.Class(MessageClass), card.Message)
	}

	var details *dom.Element
	if len(card.Details) > 0 {
		items := make([]*dom.Element, 0, len(card.Details))
		for _, d := range card.Details {
			items = append(items, doc.El("li", d))
		}
		details = doc.El("ul", dom.Class(DetailsClass), items)
	}

	card.el = doc.El("div",
		dom.Class(CardClass, "alert", "alert-"+card.Type.AlertClass()),
		dom.Role("status"),
		dom.Data("notification-id", card.ID),
		doc.El("div", dom.Class("notification-header"),
			doc.El("i", dom.Class("notification-icon", icon)),
			doc.El("strong", dom.Class("notification-title"), card.Title),
			card.close,
		),
		message,
		details,
	)
	return card
}

// Success shows a success card.
//
//	p.Success("Saved", "Your changes have been saved.")
func (p *Presenter) Success(title, message string, opts ...Option) *Card {
	return p.Notify(wrap(TypeSuccess, IconSuccess, title, message, opts)...)
}

// Error shows an error card.
//
//	p.Error("Failed", "The booking could not be completed.")
func (p *Presenter) Error(title, message string, opts ...Option) *Card {
	return p.Notify(wrap(TypeError, IconError, title, message, opts)...)
}

// Info shows an info card.
func (p *Presenter) Info(title, message string, opts ...Option) *Card {
	return p.Notify(wrap(TypeInfo, IconInfo, title, message, opts)...)
}

// Warning shows a warning card.
func (p *Presenter) Warning(title, message string, opts ...Option) *Card {
	return p.Notify(wrap(TypeWarning, IconWarning, title, message, opts)...)
}

// wrap puts the caller's options last so they can override the defaults.
func wrap(t Type, icon, title, message string, opts []Option) []Option {
	all := make([]Option, 0, len(opts)+4)
	all = append(all, WithType(t), WithTitle(title), WithMessage(message), WithIcon(icon))
	return append(all, opts...)
}

// Dismiss starts hiding the card. Nil, hiding and removed cards are ignored.
func (p *Presenter) Dismiss(card *Card) {
	if card == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissLocked(card, ReasonRequest)
}

// Close clicks the card's close control.
func (p *Presenter) Close(card *Card) {
	if card == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	card.close.Dispatch(EventClick)
}

// AnimationEnd reports that the card's exit animation finished.
func (p *Presenter) AnimationEnd(card *Card) {
	if card == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	card.el.Dispatch(EventAnimationEnd)
}

func (p *Presenter) dismissLocked(card *Card, reason DismissReason) {
	if card.State() != StateVisible {
		return
	}
	card.setState(StateHiding)
	card.el.ClassList().Add(HideClass)
	card.el.AddEventListener(EventAnimationEnd, func(dom.Event) {
		p.removeLocked(card)
	}, dom.Once())

	p.cfg.logger.Debug("notification dismissed", "id", card.ID, "reason", string(reason))
	for _, o := range p.cfg.observers {
		o.CardDismissed(card, reason)
	}

	switch {
	case p.cfg.exitDelay > 0:
		p.cfg.scheduler.AfterFunc(p.cfg.exitDelay, func() {
			p.AnimationEnd(card)
		})
	case !p.cfg.awaitAnimationEnd:
		card.el.Dispatch(EventAnimationEnd)
	}
}

func (p *Presenter) removeLocked(card *Card) {
	if card.State() == StateRemoved {
		return
	}
	card.el.Remove()
	card.setState(StateRemoved)
	delete(p.cards, card.ID)
	p.doc.Release(card.el)

	p.cfg.logger.Debug("notification removed", "id", card.ID)
	for _, o := range p.cfg.observers {
		o.CardRemoved(card)
	}
}

// Clear removes every active card at once, skipping the exit animation.
// Observers see CardRemoved for each card.
func (p *Presenter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, card := range p.cards {
		p.removeLocked(card)
	}
}

// Card returns the active (visible or hiding) card with the given id.
func (p *Presenter) Card(id string) (*Card, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.cards[id]
	return c, ok
}

// Cards returns the active cards in stack order.
func (p *Presenter) Cards() []*Card {
	p.mu.Lock()
	defer p.mu.Unlock()

	stack := p.doc.GetElementByID(StackID)
	if stack == nil {
		return nil
	}
	var out []*Card
	for _, el := range stack.Children() {
		id, _ := el.GetAttribute("data-notification-id")
		if c, ok := p.cards[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// RenderStack writes the stack element as HTML, creating it if needed.
func (p *Presenter) RenderStack(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensureStackLocked().Render(w)
}

// StackHTML returns the rendered stack.
func (p *Presenter) StackHTML() string {
	var sb strings.Builder
	if err := p.RenderStack(&sb); err != nil {
		p.cfg.logger.Error("render notification stack", "error", err)
		return ""
	}
	return sb.String()
}

// Update runs fn with exclusive access to the presenter's document.
// fn must not call other Presenter methods.
func (p *Presenter) Update(fn func(doc *dom.Document)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.doc)
}

// AddObserver registers o after construction.
func (p *Presenter) AddObserver(o Observer) {
	if o == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.observers = append(p.cfg.observers, o)
}
