package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/auth"
	"github.com/smartassist/apiserver/types"
)

// DecisionRecorder counts access decisions per guard.
type DecisionRecorder interface {
	RecordAuthDecision(guard, outcome string)
}

// AuthMiddleware adapts auth.Guard to chi middleware. Every variant stores
// the resolved identity in the request context.
type AuthMiddleware struct {
	guard    *auth.Guard
	recorder DecisionRecorder
	logger   logrus.FieldLogger
}

func NewAuthMiddleware(guard *auth.Guard, recorder DecisionRecorder, logger logrus.FieldLogger) *AuthMiddleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthMiddleware{guard: guard, recorder: recorder, logger: logger}
}

// Authenticated rejects requests without a valid bearer token.
func (m *AuthMiddleware) Authenticated(next http.Handler) http.Handler {
	return m.require("authenticated", nil, next)
}

// Optional resolves the caller when possible and falls back to the guest
// identity. It never rejects.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.guard.OptionalAuthenticated(r.Context(), r.Header.Get("Authorization"))
		if !ok {
			user = types.Guest()
			m.record("optional", "guest")
		} else {
			m.record("optional", "user")
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Roles authenticates the caller and requires one of roles, matched exactly.
func (m *AuthMiddleware) Roles(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.require("roles", func(user types.User) error {
			return auth.RequireRole(user, roles...)
		}, next)
	}
}

// Admin authenticates the caller and requires the admin role.
func (m *AuthMiddleware) Admin(next http.Handler) http.Handler {
	return m.require("admin", auth.RequireAdmin, next)
}

func (m *AuthMiddleware) require(guard string, check func(types.User) error, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.guard.RequireAuthenticated(r.Context(), r.Header.Get("Authorization"))
		if err == nil && check != nil {
			err = check(user)
		}
		if err != nil {
			m.record(guard, outcome(err))
			if auth.KindOf(err) != auth.Infrastructure {
				m.logger.WithError(err).WithField("path", r.URL.Path).Debug("request rejected")
			}
			writeAuthError(w, r, m.logger, err)
			return
		}

		m.record(guard, "allowed")
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (m *AuthMiddleware) record(guard, result string) {
	if m.recorder != nil {
		m.recorder.RecordAuthDecision(guard, result)
	}
}

func outcome(err error) string {
	switch auth.KindOf(err) {
	case auth.Unauthenticated:
		return "unauthenticated"
	case auth.Forbidden:
		return "forbidden"
	default:
		return "error"
	}
}

// currentUser returns the identity placed by the auth middleware, or the
// guest when the route is not behind one.
func currentUser(r *http.Request) types.User {
	if user, ok := UserFromContext(r.Context()); ok {
		return user
	}
	return types.Guest()
}
