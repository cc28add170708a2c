package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestUserErrorKeepsKindAndMessage(t *testing.T) {
	err := fmt.Errorf("analyze: %w", NewUserError(ErrTooLarge, "file too large, max 5 MB."))

	if !IsKind(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge kind, got %v", err)
	}
	msg, ok := UserMessage(err)
	if !ok || msg != "file too large, max 5 MB." {
		t.Fatalf("unexpected user message %q (ok=%v)", msg, ok)
	}
	if _, ok := UserMessage(errors.New("boom")); ok {
		t.Fatalf("plain errors carry no user message")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("eof")
	err := WrapError(ErrInvalidInput, "parse form", cause)
	if !IsKind(err, ErrInvalidInput) || !errors.Is(err, cause) {
		t.Fatalf("expected kind and cause to be preserved, got %v", err)
	}
	if WrapError(ErrInvalidInput, "noop", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		5 << 20: "5 MB",
		1000:    "1000 bytes",
		0:       "0 bytes",
	}
	for in, want := range cases {
		if got := FormatBytes(in); got != want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
