package services

import "errors"

// ValidationError is a client input problem. Message is returned to the
// caller verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) *ValidationError {
	return &ValidationError{Message: message}
}

var (
	ErrEmailRegistered = invalid("Email already registered")
	ErrEmailInUse      = invalid("Email already in use")
	ErrInvalidRole     = invalid("Invalid role")
)

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
