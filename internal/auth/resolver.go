package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/store"
	"github.com/smartassist/apiserver/types"
)

// BearerPrefix is the exact scheme prefix expected in Authorization headers.
const BearerPrefix = "Bearer "

// UserFinder looks users up in persistence. Missing users are reported as
// store.ErrNotFound.
type UserFinder interface {
	FindUserByID(ctx context.Context, id int) (types.User, error)
	FindUserByEmail(ctx context.Context, email string) (types.User, error)
}

// Resolver maps a verified token to a persisted user.
type Resolver struct {
	tokens *TokenService
	users  UserFinder
	logger logrus.FieldLogger
}

func NewResolver(tokens *TokenService, users UserFinder, logger logrus.FieldLogger) *Resolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{tokens: tokens, users: users, logger: logger}
}

// Resolve returns the user named by token, an Unauthenticated error for any
// token or lookup miss, or an Infrastructure error when the store fails.
func (r *Resolver) Resolve(ctx context.Context, token string) (types.User, error) {
	return r.resolve(ctx, token)
}

// ResolveOptional never fails. A missing header, a non-Bearer scheme, a bad
// token and an unknown user all yield (zero, false).
func (r *Resolver) ResolveOptional(ctx context.Context, header string) (types.User, bool) {
	token, ok := BearerToken(header)
	if !ok {
		return types.User{}, false
	}

	user, err := r.resolve(ctx, token)
	if err != nil {
		if KindOf(err) == Infrastructure {
			r.logger.WithError(err).Error("optional auth lookup failed, serving as guest")
		} else {
			r.logger.WithError(err).Debug("optional auth rejected token")
		}
		return types.User{}, false
	}
	return user, true
}

func (r *Resolver) resolve(ctx context.Context, token string) (types.User, error) {
	if err := ctx.Err(); err != nil {
		return types.User{}, infrastructure(err)
	}

	claims, ok := r.tokens.Verify(token)
	if !ok {
		return types.User{}, unauthenticated("token failed verification")
	}

	userID, ok := claims.UserID()
	if !ok {
		return types.User{}, unauthenticated("token has no usable user_id claim")
	}

	user, err := r.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, unauthenticated("user not found")
		}
		return types.User{}, infrastructure(err)
	}
	return user, nil
}

// BearerToken extracts the token from an Authorization header value. The
// header must start with the literal "Bearer " and carry a non-empty token.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(BearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
