package session

import (
	"context"

	"github.com/ecobridge/ecobridge-server/pkg/db/models"
)

type contextKey int

const (
	sessionKey contextKey = iota
	principalKey
)

// Session ties a state to the id it is stored under. The id changes when
// Renew is called; the old record is then destroyed on save.
type Session struct {
	ID    string
	State *State

	issue   bool
	retired string
}

// New starts an unsaved session with a fresh id.
func New() *Session {
	return &Session{ID: NewID(), State: &State{}, issue: true}
}

// Existing wraps a state loaded from the store.
func Existing(id string, state *State) *Session {
	if state == nil {
		state = &State{}
	}
	return &Session{ID: id, State: state}
}

// Renew moves the state to a new id, used on login and logout.
func (s *Session) Renew() {
	if !s.issue && s.retired == "" {
		s.retired = s.ID
	}
	s.ID = NewID()
	s.issue = true
	s.State.dirty = true
}

// NeedsCookie reports whether the browser must receive a new cookie.
func (s *Session) NeedsCookie() bool {
	return s.issue
}

// Retired returns the id whose record must be removed, if any.
func (s *Session) Retired() string {
	return s.retired
}

// MarkSaved records that the current id has been persisted and announced.
func (s *Session) MarkSaved() {
	s.issue = false
	s.retired = ""
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the request's session, or nil outside the session middleware.
func FromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// PrincipalFrom returns the signed-in user, or nil for anonymous visitors.
func PrincipalFrom(ctx context.Context) *models.User {
	if ctx == nil {
		return nil
	}
	user, _ := ctx.Value(principalKey).(*models.User)
	return user
}
