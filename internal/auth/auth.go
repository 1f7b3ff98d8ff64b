// Package auth carries the authenticated user identity through a request.
//
// Identity comes only from the trusted auth layer in front of the service,
// never from request bodies or query strings.
package auth

import (
	"context"
	"net/http"
	"strings"
	"unicode"

	"ledger/internal/core"
	"ledger/internal/middleware/security"
)

const (
	DefaultUserHeader = "X-Authenticated-User"
	maxUserIDLength   = 255
)

type contextKey struct{}

// WithUser returns a context scoped to userID. An empty id yields an
// anonymous context.
func WithUser(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserFrom returns the identity in ctx, if any.
func UserFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// RequireUser returns the identity or core.ErrUnauthorized.
func RequireUser(ctx context.Context) (string, error) {
	id, ok := UserFrom(ctx)
	if !ok {
		return "", core.ErrUnauthorized
	}
	return id, nil
}

// Resolver extracts an identity from an incoming request.
type Resolver interface {
	Resolve(r *http.Request) (string, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *http.Request) (string, bool)

func (f ResolverFunc) Resolve(r *http.Request) (string, bool) { return f(r) }

// ProxyHeaderResolver trusts an identity header set by an authenticating
// reverse proxy, and only when the direct peer is one of Trusted.
type ProxyHeaderResolver struct {
	Header  string
	Trusted security.TrustedNetworks
}

func NewProxyHeaderResolver(header string, trusted security.TrustedNetworks) *ProxyHeaderResolver {
	if header == "" {
		header = DefaultUserHeader
	}
	return &ProxyHeaderResolver{Header: header, Trusted: trusted}
}

func (p *ProxyHeaderResolver) Resolve(r *http.Request) (string, bool) {
	if !p.Trusted.IsTrustedPeer(r) {
		return "", false
	}
	id := strings.TrimSpace(r.Header.Get(p.Header))
	if !validUserID(id) {
		return "", false
	}
	return id, true
}

func validUserID(id string) bool {
	if id == "" || len(id) > maxUserIDLength {
		return false
	}
	for _, c := range id {
		if unicode.IsControl(c) {
			return false
		}
	}
	return true
}

// Middleware attaches the resolved identity to the request context.
// Unresolved requests continue anonymously; services reject them.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// identity is never inherited from upstream context values
			ctx := context.WithValue(r.Context(), contextKey{}, "")
			if id, ok := resolver.Resolve(r); ok {
				ctx = WithUser(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
