package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	err := NotFound("Mash not found: %s", "abc")
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("expected ErrNotFound")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("should not match ErrValidation")
	}
	if err.Error() != "Mash not found: abc" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", Config("No API key configured for provider: %s", "openai"))
	if KindOf(err) != ErrConfig {
		t.Errorf("KindOf = %v, want ErrConfig", KindOf(err))
	}
	if KindOf(errors.New("plain")) != nil {
		t.Error("plain error should have no kind")
	}
}

func TestKindOf_Conflict(t *testing.T) {
	if KindOf(Conflict("checksum mismatch")) != ErrConflict {
		t.Error("expected ErrConflict")
	}
}
