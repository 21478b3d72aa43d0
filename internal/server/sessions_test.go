package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasefra/landing/internal/contact"
)

func newTestStore(sender contact.Sender) (*SessionStore, *fakeClock) {
	return newCappedStore(sender, 100)
}

func newCappedStore(sender contact.Sender, maxSessions int) (*SessionStore, *fakeClock) {
	clock := newFakeClock()
	store := NewSessionStore(30*time.Minute, maxSessions, false, func() *contact.ContactForm {
		return contact.NewContactForm(sender, contact.Options{Recipient: "ask@kasefra.io"})
	})
	store.now = clock.Now
	return store, clock
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestSessionStore_FromRequest(t *testing.T) {
	store, _ := newTestStore(&recordingSender{})

	rec := httptest.NewRecorder()
	form := store.FromRequest(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, form)

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 1800, cookie.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	assert.Same(t, form, store.FromRequest(rec, req))
	assert.Empty(t, rec.Result().Cookies(), "existing session is not reissued")
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_RejectsForgedIDs(t *testing.T) {
	store, _ := newTestStore(&recordingSender{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "not-a-uuid"})

	_, ok := store.Lookup(req)
	assert.False(t, ok)

	rec := httptest.NewRecorder()
	store.FromRequest(rec, req)
	assert.NotEqual(t, "not-a-uuid", sessionCookie(t, rec).Value)
}

func TestSessionStore_SecureCookie(t *testing.T) {
	store := NewSessionStore(time.Minute, 10, true, func() *contact.ContactForm {
		return contact.NewContactForm(&recordingSender{}, contact.Options{})
	})

	rec := httptest.NewRecorder()
	store.FromRequest(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, sessionCookie(t, rec).Secure)
}

func TestSessionStore_Sweep(t *testing.T) {
	store, clock := newTestStore(&recordingSender{})

	stale := httptest.NewRecorder()
	store.FromRequest(stale, httptest.NewRequest(http.MethodGet, "/", nil))

	clock.Advance(20 * time.Minute)
	fresh := httptest.NewRecorder()
	store.FromRequest(fresh, httptest.NewRequest(http.MethodGet, "/", nil))

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, fresh))
	_, ok := store.Lookup(req)
	assert.True(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, stale))
	_, ok = store.Lookup(req)
	assert.False(t, ok)
}

func TestSessionStore_SweepKeepsInFlightSubmissions(t *testing.T) {
	sender := newBlockingSender()
	store, clock := newTestStore(sender)

	form := store.FromRequest(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	form.UpdateField(contact.FieldName, "Aisha")
	form.UpdateField(contact.FieldEmail, "aisha@example.com")

	done := make(chan error, 1)
	go func() { done <- form.Submit(context.Background()) }()
	<-sender.entered

	clock.Advance(time.Hour)
	assert.Equal(t, 0, store.Sweep())

	close(sender.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, store.Sweep())
}

func TestSessionStore_EvictsLeastRecentlySeen(t *testing.T) {
	store, clock := newCappedStore(&recordingSender{}, 2)

	start := func() *http.Cookie {
		rec := httptest.NewRecorder()
		store.FromRequest(rec, httptest.NewRequest(http.MethodPost, "/contact", nil))
		return sessionCookie(t, rec)
	}
	lookup := func(c *http.Cookie) bool {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(c)
		_, ok := store.Lookup(req)
		return ok
	}

	a := start()
	clock.Advance(time.Minute)
	b := start()
	clock.Advance(time.Minute)
	require.True(t, lookup(a))

	clock.Advance(time.Minute)
	c := start()

	assert.Equal(t, 2, store.Len())
	assert.True(t, lookup(a))
	assert.False(t, lookup(b))
	assert.True(t, lookup(c))

	for i := 0; i < 50; i++ {
		start()
	}
	assert.Equal(t, 2, store.Len())
}

func TestSessionStore_CapKeepsInFlightSubmissions(t *testing.T) {
	sender := newBlockingSender()
	store, _ := newCappedStore(sender, 1)

	form := store.FromRequest(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/contact", nil))
	done := make(chan error, 1)
	go func() {
		done <- form.SubmitForm(context.Background(), contact.SubmissionForm{Name: "Aisha", Email: "aisha@example.com"})
	}()
	<-sender.entered

	store.FromRequest(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/contact", nil))
	assert.Equal(t, 2, store.Len())

	close(sender.release)
	require.NoError(t, <-done)

	store.FromRequest(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/contact", nil))
	assert.Equal(t, 2, store.Len())
}

func TestSwappableSender(t *testing.T) {
	first := &recordingSender{}
	second := &recordingSender{}

	s := NewSwappableSender(first)
	require.NoError(t, s.Send(context.Background(), contact.Message{FromName: "a"}))

	s.Swap(second)
	require.NoError(t, s.Send(context.Background(), contact.Message{FromName: "b"}))

	assert.Equal(t, []contact.Message{{FromName: "a"}}, first.Calls())
	assert.Equal(t, []contact.Message{{FromName: "b"}}, second.Calls())
}
