package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartassist/apiserver/types"
)

// Guard turns raw Authorization header values into resolved identities.
// Role checks are the package-level RequireRole and RequireAdmin functions
// applied to the identity a Guard returns.
type Guard struct {
	resolver *Resolver
}

func NewGuard(resolver *Resolver) *Guard {
	return &Guard{resolver: resolver}
}

// RequireAuthenticated resolves header to a user or fails with
// Unauthenticated. Infrastructure errors pass through unchanged.
func (g *Guard) RequireAuthenticated(ctx context.Context, header string) (types.User, error) {
	token, ok := BearerToken(header)
	if !ok {
		if header == "" {
			return types.User{}, unauthenticated("missing authorization header")
		}
		return types.User{}, unauthenticated("authorization header is not a bearer credential")
	}
	return g.resolver.Resolve(ctx, token)
}

// OptionalAuthenticated resolves header when it can and reports whether a
// user was found. It never fails.
func (g *Guard) OptionalAuthenticated(ctx context.Context, header string) (types.User, bool) {
	return g.resolver.ResolveOptional(ctx, header)
}

// RequireRole checks that user is authenticated and holds one of allowed.
// Membership is exact: admin does not imply user.
func RequireRole(user types.User, allowed ...types.Role) error {
	if user.IsGuest() {
		return unauthenticated("no resolved identity")
	}
	for _, role := range allowed {
		if user.Role == role {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, role := range allowed {
		names[i] = string(role)
	}
	return &Error{
		Kind:   Forbidden,
		Reason: fmt.Sprintf("Access denied. Required roles: %s", strings.Join(names, ", ")),
	}
}

// RequireAdmin is RequireRole(user, types.RoleAdmin).
func RequireAdmin(user types.User) error {
	if err := RequireRole(user, types.RoleAdmin); err != nil {
		if KindOf(err) == Forbidden {
			return &Error{Kind: Forbidden, Reason: "Admin access required"}
		}
		return err
	}
	return nil
}
