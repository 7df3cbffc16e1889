package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	plain := &AppError{Kind: Fetch, Message: "Failed to fetch URLs."}
	if plain.Error() != "Failed to fetch URLs." {
		t.Errorf("Error() = %q", plain.Error())
	}

	wrapped := &AppError{Kind: Timeout, Message: "Request timed out.", Cause: context.DeadlineExceeded}
	if wrapped.Error() != "Request timed out.: context deadline exceeded" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
	if !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestKindOfAndHas(t *testing.T) {
	inner := &AppError{Kind: Rejected, UpstreamStatus: 404, Message: "URL not found"}
	outer := &AppError{Kind: Mutation, Message: "Failed to delete URL.", Cause: inner}
	wrapped := fmt.Errorf("delete 3: %w", outer)

	if got := KindOf(wrapped); got != Mutation {
		t.Errorf("KindOf = %v, want %v", got, Mutation)
	}
	if !Has(wrapped, Rejected) {
		t.Error("Has(Rejected) = false, want true")
	}
	if Has(wrapped, Timeout) {
		t.Error("Has(Timeout) = true, want false")
	}
	if got := UpstreamStatus(wrapped); got != 404 {
		t.Errorf("UpstreamStatus = %d, want 404", got)
	}
	if got := KindOf(errors.New("plain")); got != Unknown {
		t.Errorf("KindOf(plain) = %v, want %v", got, Unknown)
	}
}

func TestKind_String(t *testing.T) {
	if ReconnectExhausted.String() != "reconnect_exhausted" {
		t.Errorf("String() = %q", ReconnectExhausted.String())
	}
	if Kind(99).String() != "kind(99)" {
		t.Errorf("String() = %q", Kind(99).String())
	}
}
