package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"weathergo/internal/core"
)

// zeroDelayPolicy retries like the default policy but without real sleeps.
func zeroDelayPolicy() RetryPolicy {
	return RetryPolicy{
		RateLimitDelays:    []time.Duration{0, 0, 0},
		ServerRetries:      3,
		ServerInitialDelay: 0,
	}
}

func TestClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q, want application/json", r.Header.Get("Accept"))
		}
		if r.Header.Get("User-Agent") != "weathergo-test" {
			t.Errorf("User-Agent = %q, want weathergo-test", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"hello"}`))
	}))
	defer server.Close()

	client := New(DefaultConfig("test", server.URL), func(req *http.Request) {
		req.Header.Set("User-Agent", "weathergo-test")
	})

	var result struct {
		Message string `json:"message"`
	}
	if err := client.Get(context.Background(), "/data", &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Message != "hello" {
		t.Errorf("expected message 'hello', got '%s'", result.Message)
	}
}

func TestClient_Get_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := DefaultConfig("test", server.URL)
	cfg.Retry = zeroDelayPolicy()
	client := New(cfg, nil)

	var result map[string]bool
	if err := client.Get(context.Background(), "/flaky", &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestClient_Get_Classification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantType   core.ErrorType
		wantCalls  int32
	}{
		{"429 exhausts rate limit budget", http.StatusTooManyRequests, core.ErrorTypeRateLimited, 4},
		{"503 exhausts server budget", http.StatusServiceUnavailable, core.ErrorTypeUpstreamServer, 4},
		{"404 fails immediately", http.StatusNotFound, core.ErrorTypeNotFound, 1},
		{"400 fails immediately", http.StatusBadRequest, core.ErrorTypeInvalidUpstreamData, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(`{"detail":"nope"}`))
			}))
			defer server.Close()

			cfg := DefaultConfig("test", server.URL)
			cfg.Retry = zeroDelayPolicy()
			client := New(cfg, nil)

			err := client.Get(context.Background(), "/thing", nil)
			var apiErr *core.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *core.APIError, got %v", err)
			}
			if apiErr.Type != tt.wantType {
				t.Errorf("error type = %s, want %s", apiErr.Type, tt.wantType)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("server called %d times, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestClient_Get_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening any more

	cfg := DefaultConfig("test", server.URL)
	cfg.Retry = zeroDelayPolicy()
	client := New(cfg, nil)

	err := client.Get(context.Background(), "/gone", nil)
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *core.APIError, got %v", err)
	}
	if apiErr.Type != core.ErrorTypeNetwork {
		t.Errorf("error type = %s, want %s", apiErr.Type, core.ErrorTypeNetwork)
	}
}

func TestClient_Get_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := New(DefaultConfig("test", server.URL), nil)

	var result map[string]any
	err := client.Get(context.Background(), "/bad", &result)
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *core.APIError, got %v", err)
	}
	if apiErr.Type != core.ErrorTypeInvalidUpstreamData {
		t.Errorf("error type = %s, want %s", apiErr.Type, core.ErrorTypeInvalidUpstreamData)
	}
}

func TestClient_Get_Hooks(t *testing.T) {
	var requests, retries int32
	var resultCalls int32

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := DefaultConfig("test", server.URL)
	cfg.Retry = zeroDelayPolicy()
	cfg.Hooks = Hooks{
		OnRequest: func(provider string) { atomic.AddInt32(&requests, 1) },
		OnRetry:   func(provider string, class core.ErrorType) { atomic.AddInt32(&retries, 1) },
		OnResult:  func(provider string, err error, elapsed time.Duration) { atomic.AddInt32(&resultCalls, 1) },
	}
	client := New(cfg, nil)

	if err := client.Get(context.Background(), "/hooked", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("OnRequest fired %d times, want 2", got)
	}
	if got := atomic.LoadInt32(&retries); got != 1 {
		t.Errorf("OnRetry fired %d times, want 1", got)
	}
	if got := atomic.LoadInt32(&resultCalls); got != 1 {
		t.Errorf("OnResult fired %d times, want 1", got)
	}
}
