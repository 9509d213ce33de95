package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestFatal(t *testing.T) {
	t.Parallel()

	base := errors.New("database is locked")
	err := Fatal(base)
	if !IsFatal(err) {
		t.Fatal("IsFatal(Fatal(err)) = false")
	}
	if !errors.Is(err, base) {
		t.Fatal("Fatal() broke the error chain")
	}
	// Marker survives further wrapping.
	wrapped := fmt.Errorf("save prospect: %w", err)
	if !IsFatal(wrapped) {
		t.Fatal("IsFatal lost through wrapping")
	}

	if Fatal(nil) != nil {
		t.Fatal("Fatal(nil) != nil")
	}
	if IsFatal(errors.New("ordinary")) {
		t.Fatal("IsFatal(ordinary error) = true")
	}
}
