package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/middleware/security"
)

func TestContextHelpers(t *testing.T) {
	_, ok := UserFrom(context.Background())
	assert.False(t, ok)

	_, err := RequireUser(context.Background())
	assert.True(t, errors.Is(err, core.ErrUnauthorized))

	ctx := WithUser(context.Background(), "alice")
	id, err := RequireUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	_, ok = UserFrom(WithUser(context.Background(), ""))
	assert.False(t, ok, "empty id is not an identity")
}

func TestProxyHeaderResolver(t *testing.T) {
	trusted, err := security.ParseTrustedNetworks([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	res := NewProxyHeaderResolver("", trusted)

	cases := []struct {
		name   string
		remote string
		header string
		wantID string
		wantOK bool
	}{
		{"trusted peer", "10.0.0.7:4000", "alice", "alice", true},
		{"trimmed", "10.0.0.7:4000", "  bob ", "bob", true},
		{"untrusted peer", "198.51.100.2:4000", "alice", "", false},
		{"missing header", "10.0.0.7:4000", "", "", false},
		{"control chars", "10.0.0.7:4000", "ali\x00ce", "", false},
		{"too long", "10.0.0.7:4000", strings.Repeat("x", 256), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			if tc.header != "" {
				r.Header.Set(DefaultUserHeader, tc.header)
			}
			id, ok := res.Resolve(r)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantID, id)
		})
	}
}

func TestMiddleware(t *testing.T) {
	var got string
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, gotOK = UserFrom(r.Context())
	})

	h := Middleware(ResolverFunc(func(*http.Request) (string, bool) { return "carol", true }))(next)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, gotOK)
	assert.Equal(t, "carol", got)

	anon := Middleware(ResolverFunc(func(*http.Request) (string, bool) { return "", false }))(next)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithUser(r.Context(), "smuggled"))
	anon.ServeHTTP(httptest.NewRecorder(), r)
	assert.False(t, gotOK, "identity must come from the resolver only")
}
