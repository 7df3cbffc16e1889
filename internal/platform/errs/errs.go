package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes application errors for reporting and recovery.
type Kind int

const (
	// Unknown represents an unclassified error.
	Unknown Kind = iota
	// InvalidInput indicates the caller supplied a malformed value.
	InvalidInput
	// Unreachable indicates the API could not be reached.
	Unreachable
	// Timeout indicates the API took too long to respond.
	Timeout
	// ParsingFailed indicates a response or frame could not be decoded.
	ParsingFailed
	// Rejected indicates the API answered with an error status.
	Rejected
	// Transport indicates a push channel failure. Never fatal.
	Transport
	// Fetch indicates a snapshot request failed. Prior records are retained.
	Fetch
	// Mutation indicates an add, delete or bulk operation failed.
	Mutation
	// ReconnectExhausted indicates the push channel gave up reconnecting.
	ReconnectExhausted
)

var kindNames = map[Kind]string{
	Unknown:            "unknown",
	InvalidInput:       "invalid_input",
	Unreachable:        "unreachable",
	Timeout:            "timeout",
	ParsingFailed:      "parsing_failed",
	Rejected:           "rejected",
	Transport:          "transport",
	Fetch:              "fetch",
	Mutation:           "mutation",
	ReconnectExhausted: "reconnect_exhausted",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// AppError carries a category, user message, and original cause.
type AppError struct {
	Kind           Kind
	UpstreamStatus int // HTTP status code returned by the API
	Message        string
	Cause          error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of the outermost AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unknown
}

// Has reports whether any AppError in err's chain has the given kind.
func Has(err error, kind Kind) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Kind == kind {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// UpstreamStatus returns the first non-zero HTTP status recorded in err's chain.
func UpstreamStatus(err error) int {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return 0
		}
		if appErr.UpstreamStatus != 0 {
			return appErr.UpstreamStatus
		}
		err = appErr.Cause
	}
	return 0
}
