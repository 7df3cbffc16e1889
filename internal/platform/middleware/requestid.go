package middleware

import (
	"net/http"

	"github.com/lukasdemani/searcher-app/internal/platform/requestid"
)

// RequestID stamps every outbound request with an X-Request-ID header.
// An ID already carried by the request context is reused; otherwise a new
// UUID v4 is generated and stored on the request context for later stages.
func RequestID(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get(requestid.Header) != "" {
			return next.RoundTrip(r)
		}

		id := requestid.FromContextOrNew(r.Context())
		r = r.Clone(requestid.NewContext(r.Context(), id))
		r.Header.Set(requestid.Header, id)
		return next.RoundTrip(r)
	})
}
