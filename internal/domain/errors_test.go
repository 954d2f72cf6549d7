package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Is_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("register: %w", ErrAlreadyRegistered())

	if !Is(err, "already_registered") {
		t.Fatalf("expected already_registered through wrap")
	}
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict kind, got %s", KindOf(err))
	}
}

func TestKindOf_PlainError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("plain errors must map to internal")
	}
}

func TestErrStoreUnavailable_IsRetryable(t *testing.T) {
	cause := errors.New("lock timeout")
	err := ErrStoreUnavailable(cause)

	if err.Meta["retryable"] != "true" {
		t.Fatalf("expected retryable meta")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause must unwrap")
	}
}
