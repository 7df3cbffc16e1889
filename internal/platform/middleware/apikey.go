package middleware

import "net/http"

// APIKeyHeader is the header the analysis API authenticates with.
const APIKeyHeader = "X-API-Key"

// APIKey sets the X-API-Key header on every outbound request. An empty key
// leaves requests untouched.
func APIKey(key string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if key == "" {
			return next
		}
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			r = r.Clone(r.Context())
			r.Header.Set(APIKeyHeader, key)
			return next.RoundTrip(r)
		})
	}
}
