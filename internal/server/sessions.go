package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kasefra/landing/internal/contact"
)

// SessionCookie names the cookie carrying a visitor's session id.
const SessionCookie = "kasefra_session"

type session struct {
	form     *contact.ContactForm
	lastSeen time.Time
}

// SessionStore maps visitor sessions to their ContactForm. Each page
// session owns exactly one form; nothing is persisted. At most max sessions
// are live: starting one more evicts the least recently seen session that
// has no submission in flight.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	max      int
	newForm  func() *contact.ContactForm
	secure   bool
	now      func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewSessionStore creates a store whose sessions expire after ttl without
// a request and which holds at most maxSessions sessions.
func NewSessionStore(ttl time.Duration, maxSessions int, secure bool, newForm func() *contact.ContactForm) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		max:      maxSessions,
		newForm:  newForm,
		secure:   secure,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Lookup returns the form for the request's session, if it has one.
func (s *SessionStore) Lookup(r *http.Request) (*contact.ContactForm, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	return s.get(c.Value)
}

// FromRequest returns the form for the request's session, starting a new
// session and setting its cookie when there is none. Only state-changing
// routes call it; reads use Lookup so page views never allocate a form.
func (s *SessionStore) FromRequest(w http.ResponseWriter, r *http.Request) *contact.ContactForm {
	if form, ok := s.Lookup(r); ok {
		return form
	}

	id := uuid.NewString()
	form := s.newForm()

	s.mu.Lock()
	if len(s.sessions) >= s.max {
		s.evictOldest()
	}
	s.sessions[id] = &session{form: form, lastSeen: s.now()}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return form
}

func (s *SessionStore) get(id string) (*contact.ContactForm, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.form, true
}

// evictOldest must be called with s.mu held. When every session has a
// submission in flight nothing is evicted and the store briefly exceeds max.
func (s *SessionStore) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.sessions {
		if sess.form.SubmitDisabled() {
			continue
		}
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions. A session with a submission in flight is
// kept until it settles.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) && !sess.form.SubmitDisabled() {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Start sweeps every interval until Stop is called.
func (s *SessionStore) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop ends the sweeper. It is safe to call more than once.
func (s *SessionStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// SwappableSender forwards to a replaceable contact.Sender so credentials
// can rotate without recreating live forms.
type SwappableSender struct {
	current atomic.Pointer[senderHolder]
}

type senderHolder struct {
	sender contact.Sender
}

// NewSwappableSender wraps initial.
func NewSwappableSender(initial contact.Sender) *SwappableSender {
	s := &SwappableSender{}
	s.Swap(initial)
	return s
}

// Swap replaces the sender used by subsequent sends.
func (s *SwappableSender) Swap(next contact.Sender) {
	s.current.Store(&senderHolder{sender: next})
}

// Send implements contact.Sender.
func (s *SwappableSender) Send(ctx context.Context, msg contact.Message) error {
	return s.current.Load().sender.Send(ctx, msg)
}
