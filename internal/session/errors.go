package session

import (
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/studytrack/internal/apiclient"
)

// AuthErrorKind classifies an authentication failure.
type AuthErrorKind int

const (
	// AuthErrorNetwork means the backend could not be reached.
	AuthErrorNetwork AuthErrorKind = iota

	// AuthErrorRejected means the backend rejected the credentials.
	AuthErrorRejected
)

// AuthError is the structured failure returned by the Manager's Register
// and Login operations. It carries the backend message when there is one.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	err     error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// Unwrap exposes the underlying transport or backend error.
func (e *AuthError) Unwrap() error {
	return e.err
}

func newAuthError(err error) *AuthError {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return &AuthError{
			Kind:    AuthErrorRejected,
			Message: apiErr.Message,
			err:     err,
		}
	}

	return &AuthError{
		Kind:    AuthErrorNetwork,
		Message: err.Error(),
		err:     err,
	}
}
