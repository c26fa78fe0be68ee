// Package session keeps signed-in operators' backend credentials and
// identity on the server.
package session

import (
	"sync"
	"time"

	"github.com/erazemk/skrbnik/internal/model"
)

// Session is the injected "who is signed in" context handed to every screen.
type Session struct {
	id        string
	username  string
	createdAt time.Time
	expiresAt time.Time
	jar       *Jar
	onLogout  func(*Session)

	mu         sync.Mutex
	current    *model.Profile
	loggedOut  bool
	logoutOnce sync.Once
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Username returns the name the operator signed in with.
func (s *Session) Username() string { return s.username }

// ExpiresAt returns when the session ends.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Jar returns the backend cookie jar.
func (s *Session) Jar() *Jar { return s.jar }

// CurrentUser returns a copy of the last profile loaded for this session, or
// nil before the first successful load.
func (s *Session) CurrentUser() *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	p := *s.current
	return &p
}

// SetCurrentUser records the profile the backend returned for the caller.
func (s *Session) SetCurrentUser(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedOut {
		return
	}
	s.current = &p
}

// Logout ends the session. It is safe to call more than once and from any
// goroutine; only the first call reaches the store.
func (s *Session) Logout() {
	s.mu.Lock()
	s.loggedOut = true
	s.current = nil
	s.mu.Unlock()

	s.logoutOnce.Do(func() {
		if s.onLogout != nil {
			s.onLogout(s)
		}
	})
}

// LoggedOut reports whether Logout was called.
func (s *Session) LoggedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedOut
}

func (s *Session) expired(now time.Time) bool {
	return !now.Before(s.expiresAt)
}
