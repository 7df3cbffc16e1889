package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lukasdemani/searcher-app/internal/platform/requestid"
)

func echoServer(t *testing.T, seen *http.Header) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestChain_SetsHeaders(t *testing.T) {
	var seen http.Header
	ts := echoServer(t, &seen)

	client := &http.Client{Transport: Chain(ts.Client().Transport, RequestID, APIKey("secret"))}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL+"/urls", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = resp.Body.Close()

	if seen.Get(requestid.Header) == "" {
		t.Error("X-Request-ID header missing")
	}
	if seen.Get(APIKeyHeader) != "secret" {
		t.Errorf("X-API-Key = %q, want %q", seen.Get(APIKeyHeader), "secret")
	}
	if req.Header.Get(APIKeyHeader) != "" {
		t.Error("middleware mutated the caller's request")
	}
}

func TestRequestID_ReusesContextID(t *testing.T) {
	var seen http.Header
	ts := echoServer(t, &seen)

	client := &http.Client{Transport: Chain(ts.Client().Transport, RequestID)}
	ctx := requestid.NewContext(context.Background(), "fixed-id")
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = resp.Body.Close()

	if got := seen.Get(requestid.Header); got != "fixed-id" {
		t.Errorf("X-Request-ID = %q, want %q", got, "fixed-id")
	}
}

func TestAPIKey_EmptyKeyIsNoop(t *testing.T) {
	var seen http.Header
	ts := echoServer(t, &seen)

	client := &http.Client{Transport: Chain(ts.Client().Transport, APIKey(""))}
	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = resp.Body.Close()

	if _, ok := seen[APIKeyHeader]; ok {
		t.Error("X-API-Key should not be sent for an empty key")
	}
}

func TestLogging_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	errDial := errors.New("dial refused")
	failing := RoundTripperFunc(func(*http.Request) (*http.Response, error) { return nil, errDial })

	req := httptest.NewRequest(http.MethodDelete, "http://api.test/urls/3", nil)
	_, err := Chain(failing, Logging(logger)).RoundTrip(req)
	if !errors.Is(err, errDial) {
		t.Fatalf("err = %v, want %v", err, errDial)
	}
	out := buf.String()
	if !strings.Contains(out, "api request failed") || !strings.Contains(out, "path=/urls/3") {
		t.Errorf("unexpected log output: %s", out)
	}
}

func TestRoutePattern(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/urls", "/api/urls"},
		{"/api/urls/42", "/api/urls/{id}"},
		{"/api/urls/42/analyze", "/api/urls/{id}/analyze"},
		{"/api/urls/bulk-delete", "/api/urls/bulk-delete"},
	}
	for _, tt := range tests {
		if got := routePattern(tt.path); got != tt.want {
			t.Errorf("routePattern(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
