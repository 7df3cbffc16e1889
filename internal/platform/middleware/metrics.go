package middleware

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/lukasdemani/searcher-app/internal/platform/metrics"
)

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// Metrics records Prometheus metrics for each outbound request.
func Metrics(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)

		path := routePattern(r.URL.Path)
		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}

		metrics.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		metrics.RequestDurationSeconds.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		return resp, err
	})
}

// routePattern collapses record IDs so label cardinality stays bounded.
func routePattern(path string) string {
	return numericSegment.ReplaceAllString(path, "/{id}$1")
}
