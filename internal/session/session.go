// Package session owns the client-side authentication state. The Manager is
// the single authority replacing or clearing the session; everything else
// gets read-only snapshots.
package session

import "github.com/patric-chuzhbe/studytrack/internal/models"

// Session is the current authentication state. It is either empty (signed
// out) or carries both a user and a token: no partial session is
// constructible from outside the package.
type Session struct {
	user  *models.User
	token string
}

// Empty returns the signed-out session.
func Empty() Session {
	return Session{}
}

// New builds a signed-in session. An empty token or user yields the
// signed-out session, keeping the user-iff-token invariant.
func New(user models.User, token string) Session {
	if token == "" || user.ID == "" {
		return Session{}
	}

	return Session{
		user:  &user,
		token: token,
	}
}

// IsSignedIn reports whether the session carries a token.
func (s Session) IsSignedIn() bool {
	return s.token != ""
}

// User returns the signed-in user, if any.
func (s Session) User() (models.User, bool) {
	if s.user == nil {
		return models.User{}, false
	}

	return *s.user, true
}

// Token returns the credential token, if any.
func (s Session) Token() (string, bool) {
	if s.token == "" {
		return "", false
	}

	return s.token, true
}
