package session

import "strings"

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// State is everything the server remembers about one browser.
type State struct {
	UserID     string  `json:"user_id,omitempty"`
	RedirectTo string  `json:"redirect_to,omitempty"`
	Flashes    []Flash `json:"flashes,omitempty"`

	dirty bool
}

// Dirty reports whether the state changed since it was loaded or saved.
func (s *State) Dirty() bool {
	return s != nil && s.dirty
}

// SignIn binds the principal to this session.
func (s *State) SignIn(userID string) {
	s.UserID = userID
	s.dirty = true
}

// SignOut clears the principal, keeping flashes so a farewell can be shown.
func (s *State) SignOut() {
	if s.UserID == "" && s.RedirectTo == "" {
		return
	}
	s.UserID = ""
	s.RedirectTo = ""
	s.dirty = true
}

// Flash queues a notice for the next page.
func (s *State) Flash(kind, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	s.Flashes = append(s.Flashes, Flash{Kind: kind, Message: message})
	s.dirty = true
}

// TakeFlashes returns and clears the queued notices.
func (s *State) TakeFlashes() []Flash {
	if len(s.Flashes) == 0 {
		return nil
	}
	out := s.Flashes
	s.Flashes = nil
	s.dirty = true
	return out
}

// RememberRedirect records where to send the visitor after login.
func (s *State) RememberRedirect(path string) {
	if !isLocalPath(path) {
		return
	}
	s.RedirectTo = path
	s.dirty = true
}

// TakeRedirect consumes the pending redirect target, or returns fallback.
func (s *State) TakeRedirect(fallback string) string {
	target := s.RedirectTo
	if target == "" {
		return fallback
	}
	s.RedirectTo = ""
	s.dirty = true
	return target
}

// isLocalPath rejects absolute and protocol-relative URLs so the stored
// target can never bounce the visitor off-site.
func isLocalPath(path string) bool {
	return strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//") && !strings.HasPrefix(path, "/\\")
}
