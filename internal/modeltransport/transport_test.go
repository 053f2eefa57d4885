package modeltransport

import (
	"errors"
	"testing"
)

func TestErrTransportUnwraps(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection reset")
	err := &ErrTransport{Op: "call", Err: inner}

	if !errors.Is(err, inner) {
		t.Errorf("errors.Is(err, inner) = false, want true")
	}
	if got := err.Error(); got == "" {
		t.Errorf("Error() returned empty string")
	}
}
