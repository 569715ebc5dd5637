package demo

import (
	"context"
	"crypto/rand"
	"net/http"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"

	"github.com/vango-dev/feedback/pkg/live"
	"github.com/vango-dev/feedback/pkg/toast"
)

// SessionCookie carries the browser's session id.
const SessionCookie = "feedback_session"

const sessionSweepInterval = time.Minute

// session is one browser's notification stack and the hub that pushes it.
type session struct {
	id        string
	presenter *toast.Presenter
	hub       *live.Hub
	cancel    context.CancelFunc
	lastSeen  atomic.Int64
}

func (sess *session) touch(now time.Time) {
	sess.lastSeen.Store(now.UnixNano())
}

func (sess *session) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, sess.lastSeen.Load()))
}

// sessionStore keeps the most recently used sessions. Evicted and expired
// sessions stop their hub and drop their cards.
type sessionStore struct {
	cache   *lru.Cache[string, *session]
	ttl     time.Duration
	ctx     context.Context
	stop    context.CancelFunc
	create  func(ctx context.Context, id string) *session
	onClose func()
}

func newSessionStore(size int, ttl time.Duration, create func(ctx context.Context, id string) *session, onClose func()) (*sessionStore, error) {
	ctx, stop := context.WithCancel(context.Background())
	st := &sessionStore{
		ttl:     ttl,
		ctx:     ctx,
		stop:    stop,
		create:  create,
		onClose: onClose,
	}
	cache, err := lru.NewWithEvict[string, *session](size, func(_ string, sess *session) {
		st.release(sess)
	})
	if err != nil {
		stop()
		return nil, err
	}
	st.cache = cache
	return st, nil
}

func (st *sessionStore) release(sess *session) {
	sess.cancel()
	sess.hub.Close()
	sess.presenter.Clear()
	if st.onClose != nil {
		st.onClose()
	}
}

// lookup returns the session named by the request cookie.
func (st *sessionStore) lookup(r *http.Request) (*session, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return st.get(c.Value)
}

func (st *sessionStore) get(id string) (*session, bool) {
	sess, ok := st.cache.Get(id)
	if ok {
		sess.touch(time.Now())
	}
	return sess, ok
}

// acquire returns the request's session, starting a new one and setting
// the cookie when there is none.
func (st *sessionStore) acquire(w http.ResponseWriter, r *http.Request) *session {
	if sess, ok := st.lookup(r); ok {
		return sess
	}

	id := newSessionID()
	ctx, cancel := context.WithCancel(st.ctx)
	sess := st.create(ctx, id)
	sess.cancel = cancel
	sess.touch(time.Now())
	st.cache.Add(id, sess)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// Run expires idle sessions until ctx is done.
func (st *sessionStore) Run(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st.sweep(now)
		}
	}
}

// sweep removes sessions idle longer than the TTL. A session with a
// connected browser is never idle.
func (st *sessionStore) sweep(now time.Time) {
	for _, id := range st.cache.Keys() {
		sess, ok := st.cache.Peek(id)
		if !ok || sess.hub.ClientCount() > 0 {
			continue
		}
		if sess.idle(now) > st.ttl {
			st.cache.Remove(id)
		}
	}
}

func (st *sessionStore) Len() int {
	return st.cache.Len()
}

// Close releases every session.
func (st *sessionStore) Close() {
	st.cache.Purge()
	st.stop()
}

// newSessionID draws from crypto/rand directly; the monotonic default
// entropy would make consecutive ids guessable.
func newSessionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
