// Package middleware contains HTTP middleware for the panel server.
package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"
)

// Identity is the trust signal asserted by the reverse proxy in front of
// the panel. The panel never authenticates users itself; it only branches
// on these fields.
type Identity struct {
	User    string
	Groups  []string
	IsAdmin bool
}

// identityKey is the context key for the request identity.
type identityKey struct{}

// Headers set by the reverse proxy. Asserted non-spoofable: the proxy
// strips any client-supplied copies.
const (
	userHeader   = "X-Auth-Request-User"
	groupsHeader = "X-Auth-Request-Groups"
)

// Access extracts the proxy-asserted identity from the request and stores
// it in the context. Requests without a user header pass through as
// anonymous, non-admin.
func Access(adminGroup string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := Identity{
				User: r.Header.Get(userHeader),
			}
			if raw := r.Header.Get(groupsHeader); raw != "" {
				for _, g := range strings.Split(raw, ",") {
					if g = strings.TrimSpace(g); g != "" {
						identity.Groups = append(identity.Groups, g)
					}
				}
			}
			identity.IsAdmin = slices.Contains(identity.Groups, adminGroup)

			ctx := context.WithValue(r.Context(), identityKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey{}).(Identity)
	return v, ok
}

// NewContextWithIdentity injects an identity; used by handler tests.
func NewContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// RequireAdmin rejects requests whose identity lacks the admin group.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || !identity.IsAdmin {
			http.Error(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
