package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		Name:        "test",
		Timeout:     time.Second,
		MaxFailures: 2,
		OpenTimeout: time.Hour,
		MaxRetries:  2,
		BaseDelay:   time.Millisecond,
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("header not forwarded")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(fastConfig())
	resp, err := c.Get(context.Background(), srv.URL, map[string]string{"q": "1"}, map[string]string{"X-Test": "yes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if c.Breaker().State() != StateClosed {
		t.Errorf("breaker state = %s, want closed", c.Breaker().State())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	resp, err := NewClient(fastConfig()).Get(context.Background(), srv.URL, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClientOpensCircuitAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(fastConfig())
	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), srv.URL, nil, nil); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}

	if c.Breaker().State() != StateOpen {
		t.Fatalf("breaker state = %s, want open", c.Breaker().State())
	}
	if _, err := c.Get(context.Background(), srv.URL, nil, nil); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("test", 1, time.Second)
	cb.now = func() time.Time { return now }

	cb.OnFailure()
	if err := cb.CheckBeforeRequest(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}

	now = now.Add(2 * time.Second)
	if err := cb.CheckBeforeRequest(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open", cb.State())
	}

	cb.OnSuccess()
	if cb.State() != StateClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
}
