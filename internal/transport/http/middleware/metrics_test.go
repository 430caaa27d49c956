package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{"method and path", "GET /links/:id", "/links/:id"},
		{"catch-all short code", "GET /:id", "/:id"},
		{"root", "GET /", "/"},
		{"pattern without method", "/health-check", "/health-check"},
		{"unmatched request", "", "unmatched"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/whatever", nil)
			r.Pattern = tt.pattern
			if got := routeLabel(r); got != tt.want {
				t.Errorf("routeLabel(%q) = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestMetricsMiddlewareSeesRoutePattern(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Pattern = "GET /:id"
		w.WriteHeader(http.StatusSeeOther)
	})
	outer := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner.ServeHTTP(w, r)
		seen = routeLabel(r)
	}))

	rec := httptest.NewRecorder()
	outer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/abc123", nil))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d", rec.Code)
	}
	if seen != "/:id" {
		t.Errorf("route = %q", seen)
	}
}
