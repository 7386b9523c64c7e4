package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"socios/internal/config"
)

func mustPolicy(t *testing.T, cidrs ...string) *proxyPolicy {
	t.Helper()
	p, err := newProxyPolicy(cidrs)
	if err != nil {
		t.Fatalf("newProxyPolicy: %v", err)
	}
	return p
}

func TestNewProxyPolicy_RejectsBadCIDR(t *testing.T) {
	if _, err := newProxyPolicy([]string{"10.0.0.0/8", "proxy.local"}); err == nil {
		t.Fatal("expected error for a host name")
	}
}

func TestProxyPolicy_FromProxy(t *testing.T) {
	p := mustPolicy(t, config.DefaultTrustedProxies...)

	tests := []struct {
		remote string
		want   bool
	}{
		{"127.0.0.1:5000", true},
		{"[::1]:5000", true},
		{"10.4.0.7:443", true},
		{"192.168.1.20:80", true},
		{"203.0.113.5:4242", false},
		{"172.32.0.1:80", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		if got := p.fromProxy(r); got != tt.want {
			t.Errorf("fromProxy(%q) = %v, want %v", tt.remote, got, tt.want)
		}
	}

	none := mustPolicy(t)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "127.0.0.1:5000"
	if none.fromProxy(r) {
		t.Error("empty policy must trust no peer")
	}
}

func TestProxyPolicy_ClientIP(t *testing.T) {
	p := mustPolicy(t, "10.0.0.0/8", "127.0.0.0/8")

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct client", "203.0.113.5:4242", "", "", "203.0.113.5"},
		{"direct client forges forwarding", "203.0.113.5:4242", "198.51.100.1", "198.51.100.2", "203.0.113.5"},
		{"single proxy hop", "10.0.0.2:80", "198.51.100.9", "", "198.51.100.9"},
		{"chain through two proxies", "10.0.0.2:80", "198.51.100.9, 10.0.0.3", "", "198.51.100.9"},
		{"prepended entry is ignored", "10.0.0.2:80", "1.2.3.4, 198.51.100.9", "", "198.51.100.9"},
		{"only proxies in chain", "10.0.0.2:80", "10.0.0.5, 127.0.0.1", "", "10.0.0.5"},
		{"garbage hop stops the walk", "10.0.0.2:80", "junk", "198.51.100.7", "198.51.100.7"},
		{"real ip header", "127.0.0.1:80", "", "198.51.100.3", "198.51.100.3"},
		{"proxy without headers", "127.0.0.1:80", "", "", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := p.clientIP(r); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestClassifiers(t *testing.T) {
	for path, want := range map[string]bool{
		"/healthz":        true,
		"/metrics":        true,
		"/static/app.js":  true,
		"/":               false,
		"/documents":      false,
		"/staticfile.txt": false,
	} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		if got := isPublicPath(r); got != want {
			t.Errorf("isPublicPath(%q) = %v, want %v", path, got, want)
		}
	}
	if isReadOnly(httptest.NewRequest(http.MethodPost, "/incomes", nil)) {
		t.Error("POST must not be read only")
	}
	if !isReadOnly(httptest.NewRequest(http.MethodHead, "/", nil)) {
		t.Error("HEAD must be read only")
	}
}
