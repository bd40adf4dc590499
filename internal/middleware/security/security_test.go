package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name string
		req  func() *http.Request
		want bool
	}{
		{"dashboard", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/dashboard?page=2", nil) }, false},
		{"curl api client", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/budget", nil)
			r.Header.Set("User-Agent", "curl/8.5.0")
			return r
		}, false},
		{"dotenv scan", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/.env", nil) }, true},
		{"traversal in query", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/month?file=../../etc/passwd", nil)
		}, true},
		{"scanner", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("User-Agent", "sqlmap/1.7")
			return r
		}, true},
		{"trace method", func() *http.Request { return httptest.NewRequest("TRACE", "/", nil) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.DetectSuspiciousRequest(tt.req()); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectorMiddlewareBlocksTrace(t *testing.T) {
	d := NewDetector()
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("TRACE", "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scans are logged, not blocked: %d", rec.Code)
	}
	if m := d.GetMetrics(); m.SuspiciousRequests != 2 || m.BlockedRequests != 1 {
		t.Fatalf("metrics %+v", m)
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.2.3")
	if got := d.ExtractClientIP(r); got != "203.0.113.9" {
		t.Fatalf("trusted proxy: got %s", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.7:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := d.ExtractClientIP(r); got != "198.51.100.7" {
		t.Fatalf("untrusted peer must not be overridden: got %s", got)
	}

	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Fatalf("expected invalid CIDR error")
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options %q", got)
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "script-src 'self'") {
		t.Fatalf("CSP %q", csp)
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if !strings.HasPrefix(rec.Header().Get("Strict-Transport-Security"), "max-age=31536000") {
		t.Fatalf("HSTS %q", rec.Header().Get("Strict-Transport-Security"))
	}
}
