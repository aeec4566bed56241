package auth

import (
	"errors"
	"fmt"
)

// Kind classifies auth failures by how callers must react to them.
type Kind int

const (
	// Infrastructure is any unexpected failure (store unreachable, signing
	// failure). Its detail is for server logs only.
	Infrastructure Kind = iota
	// InvalidCredentials is a failed login. It never reveals whether the
	// email exists.
	InvalidCredentials
	// Unauthenticated covers missing, malformed, expired or forged tokens and
	// tokens naming a user that no longer exists.
	Unauthenticated
	// Forbidden is a resolved identity without a permitted role.
	Forbidden
	// WeakPassword is a password strength rule violation.
	WeakPassword
)

func (k Kind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid_credentials"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case WeakPassword:
		return "weak_password"
	default:
		return "infrastructure"
	}
}

const (
	msgInvalidCredentials = "Incorrect email or password"
	msgUnauthenticated    = "Invalid or expired token"
	msgForbidden          = "Access denied"
	msgInfrastructure     = "Internal server error"
)

// Error is the typed failure returned by the auth core. Reason is safe to
// show to clients; Err carries the internal cause.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

var (
	ErrInvalidCredentials = &Error{Kind: InvalidCredentials, Reason: msgInvalidCredentials}
	ErrUnauthenticated    = &Error{Kind: Unauthenticated, Reason: msgUnauthenticated}
	ErrForbidden          = &Error{Kind: Forbidden, Reason: msgForbidden}
	ErrWeakPassword       = &Error{Kind: WeakPassword}
)

func (e *Error) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the package sentinels work
// with errors.Is regardless of reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of err. Errors not produced by this package are
// Infrastructure.
func KindOf(err error) Kind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return Infrastructure
}

// PublicMessage returns the client-facing message for err.
func PublicMessage(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) && authErr.Kind != Infrastructure && authErr.Reason != "" {
		return authErr.Reason
	}
	return msgInfrastructure
}

func unauthenticated(cause string) *Error {
	return &Error{Kind: Unauthenticated, Reason: msgUnauthenticated, Err: errors.New(cause)}
}

func infrastructure(err error) *Error {
	return &Error{Kind: Infrastructure, Err: err}
}
