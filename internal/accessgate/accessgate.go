// Package accessgate guards the commands that require a signed-in session.
// The decision is a pure function of the session: token present means
// allowed. Token validity is the backend's call — a stale token passes the
// gate and fails at the first authenticated request.
package accessgate

import (
	"errors"

	"github.com/patric-chuzhbe/studytrack/internal/session"
)

// ErrSignedOut is returned by Require when no session token is present.
var ErrSignedOut = errors.New("not signed in, run the login command first")

// Allow reports whether the protected surface may be entered.
func Allow(s session.Session) bool {
	_, hasToken := s.Token()

	return hasToken
}

// Require is the command-line counterpart of a protected-route redirect:
// it turns a signed-out session into ErrSignedOut for the caller to map to
// the unauthenticated exit path.
func Require(s session.Session) error {
	if !Allow(s) {
		return ErrSignedOut
	}

	return nil
}
