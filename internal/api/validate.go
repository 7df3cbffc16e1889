package api

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/lukasdemani/searcher-app/internal/platform/errs"
)

const invalidURLMessage = "Invalid URL format. Please ensure you entered a valid URL (e.g., https://example.com)."

// ValidateURL checks that raw is an absolute http(s) URL and returns it with
// an internationalized host converted to its ASCII form.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &errs.AppError{Kind: errs.InvalidInput, Message: "Please enter a URL."}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", &errs.AppError{Kind: errs.InvalidInput, Message: invalidURLMessage, Cause: err}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", &errs.AppError{Kind: errs.InvalidInput, Message: invalidURLMessage}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", &errs.AppError{Kind: errs.InvalidInput, Message: "Only http and https URLs are supported."}
	}

	// IP literals pass through unchanged.
	if net.ParseIP(parsed.Hostname()) != nil {
		return parsed.String(), nil
	}

	host, err := idna.Lookup.ToASCII(parsed.Hostname())
	if err != nil {
		return "", &errs.AppError{Kind: errs.InvalidInput, Message: invalidURLMessage, Cause: err}
	}
	if port := parsed.Port(); port != "" {
		host = net.JoinHostPort(host, port)
	}
	parsed.Host = host

	return parsed.String(), nil
}
