package storage

import (
	"errors"
	"testing"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
)

func TestNameKeyFoldsCaseAndSpace(t *testing.T) {
	tests := []struct{ a, b string }{
		{"Python", "python"},
		{"  Web Design ", "WEB DESIGN"},
		{"ÉCOLE", "école"},
	}
	for _, tt := range tests {
		if NameKey(tt.a) != NameKey(tt.b) {
			t.Fatalf("expected %q and %q to fold equal", tt.a, tt.b)
		}
	}
	if NameKey("Scratch") == NameKey("Scratchy") {
		t.Fatal("expected distinct names to differ")
	}
}

func TestErrNotFoundCarriesCode(t *testing.T) {
	if !apperrors.IsCode(ErrNotFound, apperrors.CodeNotFound) {
		t.Fatal("expected NOT_FOUND code")
	}
	if !errors.Is(ErrNotFound, ErrNotFound) {
		t.Fatal("expected errors.Is to match itself")
	}
}
