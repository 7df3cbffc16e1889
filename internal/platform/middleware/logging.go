package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lukasdemani/searcher-app/internal/platform/requestid"
)

// Logging returns middleware that logs the method, path, status code, duration,
// and request ID for every outbound API request.
func Logging(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start).String(),
				"request_id", r.Header.Get(requestid.Header),
			}
			if err != nil {
				logger.Warn("api request failed", append(attrs, "error", err)...)
				return nil, err
			}

			logger.Debug("api request", append(attrs, "status", resp.StatusCode)...)
			return resp, nil
		})
	}
}
