package dom

// Event is delivered to listeners by Dispatch.
type Event struct {
	Type   string
	Target *Element
}

// Listener handles an event.
type Listener func(Event)

type listener struct {
	fn   Listener
	once bool
}

// ListenerOption configures AddEventListener.
type ListenerOption func(*listener)

// Once removes the listener after its first invocation.
func Once() ListenerOption {
	return func(l *listener) {
		l.once = true
	}
}

// AddEventListener registers fn for events of the given type.
func (e *Element) AddEventListener(eventType string, fn Listener, opts ...ListenerOption) {
	if fn == nil {
		return
	}
	l := &listener{fn: fn}
	for _, opt := range opts {
		opt(l)
	}
	if e.listeners == nil {
		e.listeners = make(map[string][]*listener)
	}
	e.listeners[eventType] = append(e.listeners[eventType], l)
}

// ListenerCount returns the number of listeners registered for eventType.
func (e *Element) ListenerCount(eventType string) int {
	return len(e.listeners[eventType])
}

// Dispatch invokes the listeners registered for eventType on e, in
// registration order. One-shot listeners are dropped before they run, so a
// listener that dispatches the same event again cannot fire twice.
// It returns false when no listener was registered.
func (e *Element) Dispatch(eventType string) bool {
	if e == nil {
		return false
	}
	current := e.listeners[eventType]
	if len(current) == 0 {
		return false
	}
	kept := make([]*listener, 0, len(current))
	for _, l := range current {
		if !l.once {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(e.listeners, eventType)
	} else {
		e.listeners[eventType] = kept
	}

	ev := Event{Type: eventType, Target: e}
	for _, l := range current {
		l.fn(ev)
	}
	return true
}
