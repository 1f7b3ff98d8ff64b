package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseTrustedNetworks(t *testing.T) {
	nets, err := ParseTrustedNetworks([]string{"10.0.0.0/8", " 127.0.0.1 ", "", "::1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nets) != 3 {
		t.Fatalf("expected 3 networks, got %d", len(nets))
	}
	if _, err := ParseTrustedNetworks([]string{"not-an-ip"}); err == nil {
		t.Fatal("expected error for invalid entry")
	}
	if _, err := ParseTrustedNetworks([]string{"10.0.0.0/99"}); err == nil {
		t.Fatal("expected error for invalid mask")
	}
}

func TestClientIP(t *testing.T) {
	nets, _ := ParseTrustedNetworks([]string{"10.0.0.0/8"})
	cases := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"untrusted peer ignores header", "203.0.113.9:5000", "198.51.100.1", "203.0.113.9"},
		{"trusted peer uses first hop", "10.1.2.3:5000", "198.51.100.1, 10.1.2.3", "198.51.100.1"},
		{"trusted peer bad header", "10.1.2.3:5000", "garbage", "10.1.2.3"},
		{"no port", "203.0.113.9", "", "203.0.113.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := nets.ClientIP(r); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestDetector(t *testing.T) {
	d := NewDetector(nil)
	bad := httptest.NewRequest(http.MethodGet, "/api/../../etc/passwd", nil)
	if !d.DetectSuspiciousRequest(bad) {
		t.Fatal("expected suspicious")
	}
	good := httptest.NewRequest(http.MethodGet, "/api/cashflow/2024", nil)
	good.Header.Set("User-Agent", "curl/8.0")
	if d.DetectSuspiciousRequest(good) {
		t.Fatal("expected not suspicious")
	}
	if d.GetMetrics().SuspiciousRequests != 1 {
		t.Fatalf("metrics got %d", d.GetMetrics().SuspiciousRequests)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff")
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent without TLS")
	}

	w = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	h.ServeHTTP(w, r)
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS over TLS")
	}
}
