package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// noDelay records requested delays without sleeping.
func noDelay(got *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*got = append(*got, d)
		return nil
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name       string
		accept     Accept
		params     url.Values
		statusCode int
		body       string
		wantErr    bool
		wantStatus int
	}{
		{
			name:       "json success with params",
			accept:     AcceptJSON,
			params:     url.Values{"order": {"2"}, "keyword_or": {"Go,Rust"}},
			statusCode: http.StatusOK,
			body:       `{"events":[]}`,
		},
		{
			name:       "html success",
			accept:     AcceptHTML,
			statusCode: http.StatusOK,
			body:       "<html></html>",
		},
		{
			name:       "not found",
			accept:     AcceptHTML,
			statusCode: http.StatusNotFound,
			body:       "missing",
			wantErr:    true,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "server error",
			accept:     AcceptJSON,
			statusCode: http.StatusServiceUnavailable,
			body:       strings.Repeat("x", 1000),
			wantErr:    true,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("Expected GET request, got %s", r.Method)
				}
				if ua := r.Header.Get("User-Agent"); ua != UserAgent {
					t.Errorf("User-Agent = %q, want %q", ua, UserAgent)
				}
				if accept := r.Header.Get("Accept"); accept != string(tt.accept) {
					t.Errorf("Accept = %q, want %q", accept, tt.accept)
				}
				for key := range tt.params {
					if got := r.URL.Query().Get(key); got != tt.params.Get(key) {
						t.Errorf("query %s = %q, want %q", key, got, tt.params.Get(key))
					}
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var delays []time.Duration
			c := New()
			c.sleep = noDelay(&delays)

			resp, err := c.Get(context.Background(), server.URL, tt.params, tt.accept)

			if len(delays) != 1 || delays[0] != Delay {
				t.Errorf("delays = %v, want one delay of %v", delays, Delay)
			}

			if tt.wantErr {
				var statusErr *StatusError
				if !errors.As(err, &statusErr) {
					t.Fatalf("Get() error = %v, want *StatusError", err)
				}
				if statusErr.StatusCode != tt.wantStatus {
					t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, tt.wantStatus)
				}
				if len(statusErr.Body) > bodyPreviewLimit+3 {
					t.Errorf("error body not truncated: %d bytes", len(statusErr.Body))
				}
				return
			}

			if err != nil {
				t.Fatalf("Get() unexpected error: %v", err)
			}
			if string(resp.Body) != tt.body {
				t.Errorf("Body = %q, want %q", resp.Body, tt.body)
			}
		})
	}
}

func TestGet_ExtraHeaderAndUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want secret", got)
		}
		if got := r.Header.Get("User-Agent"); got != "custom/1.0" {
			t.Errorf("User-Agent = %q, want custom/1.0", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(WithDelay(0), WithUserAgent("custom/1.0"), WithHeader("X-API-Key", "secret"))
	if _, err := c.Get(context.Background(), server.URL, nil, AcceptJSON); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
}

func TestGet_MergesExistingQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("a") != "1" || q.Get("b") != "2" {
			t.Errorf("query = %v, want a=1 and b=2", q)
		}
	}))
	defer server.Close()

	c := New(WithDelay(0))
	if _, err := c.Get(context.Background(), server.URL+"/?a=1", url.Values{"b": {"2"}}, AcceptJSON); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
}

func TestGet_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	c := New(WithDelay(0))
	_, err := c.Get(context.Background(), addr, nil, AcceptHTML)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Get() error = %v, want *TransportError", err)
	}
	if transportErr.URL != addr {
		t.Errorf("URL = %q, want %q", transportErr.URL, addr)
	}
}

func TestGet_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := New(WithDelay(0), WithTimeout(50*time.Millisecond))
	_, err := c.Get(context.Background(), server.URL, nil, AcceptHTML)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Get() error = %v, want *TransportError", err)
	}
	if !transportErr.Timeout() {
		t.Errorf("Timeout() = false for %v", err)
	}
}

func TestGet_CancelledDuringDelay(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(WithDelay(time.Hour))
	if _, err := c.Get(ctx, server.URL, nil, AcceptHTML); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if called {
		t.Error("request should not be sent after cancellation")
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short"); got != "short" {
		t.Errorf("Preview(short) = %q", got)
	}
	long := strings.Repeat("a", 500)
	if got := Preview(long); len(got) != bodyPreviewLimit+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("Preview(long) = %d bytes", len(got))
	}
}
