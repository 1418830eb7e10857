package diag

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCategories(t *testing.T) {
	cases := []struct {
		code Code
		want error
	}{
		{LookupMissingType, ErrLookup},
		{TypeMismatch, ErrTypeMismatch},
		{ShapeStrayValue, ErrShape},
		{BackendUnsupportedOp, ErrBackend},
		{RuntimeNullReference, ErrRuntime},
	}
	for _, tc := range cases {
		err := Errorf(tc.code, "boom")
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected category %v", tc.code.ID(), tc.want)
		}
		wrapped := fmt.Errorf("ctx: %w", err)
		if !errors.Is(wrapped, tc.want) {
			t.Fatalf("%s: category lost through wrapping", tc.code.ID())
		}
		if errors.Is(err, ErrRuntime) && tc.want != ErrRuntime {
			t.Fatalf("%s: unexpected runtime category", tc.code.ID())
		}
	}
}

func TestErrorIsByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", Errorf(LookupNoOverload, "f(int32)"))
	if !errors.Is(err, &Error{Code: LookupNoOverload}) {
		t.Fatal("expected code match")
	}
	if errors.Is(err, &Error{Code: LookupMissingType}) {
		t.Fatal("unexpected code match")
	}
	code, ok := CodeOf(err)
	if !ok || code != LookupNoOverload {
		t.Fatalf("CodeOf = %v, %v", code, ok)
	}
}

func TestCodeID(t *testing.T) {
	if got := TypeNotInteger.ID(); got != "TYP2002" {
		t.Fatalf("ID = %q", got)
	}
	if got := Code(42).ID(); got != "E0000" {
		t.Fatalf("ID = %q", got)
	}
	if Code(9999).Title() != "Unknown error" {
		t.Fatal("unknown code should fall back to generic title")
	}
}
