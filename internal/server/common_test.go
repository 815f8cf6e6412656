package server

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"allow all", nil, http.MethodGet, "https://a.example", http.StatusOK, "*"},
		{"allow all preflight", nil, http.MethodOptions, "https://a.example", http.StatusNoContent, "*"},
		{"listed origin", []string{"https://a.example"}, http.MethodGet, "https://a.example", http.StatusOK, "https://a.example"},
		{"unlisted origin passes without headers", []string{"https://a.example"}, http.MethodGet, "https://b.example", http.StatusOK, ""},
		{"unlisted preflight refused", []string{"https://a.example"}, http.MethodOptions, "https://b.example", http.StatusForbidden, ""},
		{"wildcard subdomain", []string{"*.example.org"}, http.MethodGet, "https://app.example.org", http.StatusOK, "https://app.example.org"},
		{"wildcard subdomain lookalike", []string{"*.example.org"}, http.MethodOptions, "https://evilexample.org", http.StatusForbidden, ""},
		{"star entry echoes origin", []string{"*"}, http.MethodGet, "https://b.example", http.StatusOK, "https://b.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORSMiddleware(CORSConfig{AllowedOrigins: tt.allowed}, okHandler())
			req := httptest.NewRequest(tt.method, "/parse", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		origin  string
		allowed []string
		want    bool
	}{
		{"", []string{"*"}, false},
		{"https://a.org", []string{"*"}, true},
		{"https://a.org", []string{"https://a.org"}, true},
		{"https://b.org", []string{"https://a.org"}, false},
		{"https://app.example.com", []string{"*.example.com"}, true},
		{"https://evilexample.com", []string{"*.example.com"}, false},
		{"https://a.org", nil, false},
	}

	for _, tt := range tests {
		if got := OriginAllowed(tt.origin, tt.allowed); got != tt.want {
			t.Errorf("OriginAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
		}
	}
}

func TestParseTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", "2001:db8::/32", "::ffff:198.51.100.9"})
	if err != nil {
		t.Fatalf("ParseTrustedProxies() error: %v", err)
	}

	tests := []struct {
		addr string
		want bool
	}{
		{"10.1.2.3", true},
		{"192.0.2.1", true},
		{"192.0.2.2", false},
		{"2001:db8::7", true},
		{"198.51.100.9", true},
		{"::ffff:10.0.0.1", true},
		{"203.0.113.5", false},
	}
	for _, tt := range tests {
		if got := IsTrustedProxy(netip.MustParseAddr(tt.addr), proxies); got != tt.want {
			t.Errorf("IsTrustedProxy(%s) = %v, want %v", tt.addr, got, tt.want)
		}
	}

	for _, bad := range []string{"", "10.0.0.0/33", "proxy.internal"} {
		if _, err := ParseTrustedProxies([]string{bad}); err == nil {
			t.Errorf("ParseTrustedProxies(%q) should fail", bad)
		}
	}
}
