package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/smartassist/apiserver/internal/store"
	"github.com/smartassist/apiserver/types"
)

// Authenticator checks email/password pairs.
type Authenticator struct {
	users     UserFinder
	passwords *PasswordManager
}

func NewAuthenticator(users UserFinder, passwords *PasswordManager) *Authenticator {
	return &Authenticator{users: users, passwords: passwords}
}

// Authenticate returns the user owning email if password matches. Unknown
// emails and wrong passwords both fail with ErrInvalidCredentials after the
// same bcrypt work.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	email = NormalizeEmail(email)

	user, err := a.users.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.User{}, infrastructure(err)
		}
		user = types.User{}
	}

	// user.PasswordHash is empty on a miss, which makes Verify burn the
	// dummy hash instead.
	if !a.passwords.Verify(password, user.PasswordHash) || err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
