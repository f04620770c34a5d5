package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"direct match", ErrNotFound, true},
		{"wrapped once", fmt.Errorf("find meeting: %w", ErrNotFound), true},
		{"wrapped twice", fmt.Errorf("resolve: %w", fmt.Errorf("store: %w", ErrNotFound)), true},
		{"different error", ErrValidation, false},
		{"nil error", nil, false},
		{"unrelated error", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"direct match", ErrValidation, true},
		{"wrapped", fmt.Errorf("create: %w", ErrValidation), true},
		{"validation error type", NewValidation("link", "Please enter a meeting link"), true},
		{"wrapped validation error type", fmt.Errorf("create: %w", Validationf("link", "bad %s", "link")), true},
		{"different error", ErrNotFound, false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidation(tt.err); got != tt.want {
				t.Errorf("IsValidation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsInvalidState(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"direct match", ErrInvalidState, true},
		{"wrapped", fmt.Errorf("start: %w", ErrInvalidState), true},
		{"different error", ErrStorageParse, false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInvalidState(tt.err); got != tt.want {
				t.Errorf("IsInvalidState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsStorageParse(t *testing.T) {
	if !IsStorageParse(fmt.Errorf("decode meetings: %w", ErrStorageParse)) {
		t.Error("IsStorageParse() = false for wrapped ErrStorageParse")
	}
	if IsStorageParse(ErrNotFound) {
		t.Error("IsStorageParse() = true for ErrNotFound")
	}
}

func TestValidationError_Message(t *testing.T) {
	err := NewValidation("document", "Please upload a PDF document first")

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("expected *ValidationError")
	}
	if ve.Field != "document" {
		t.Errorf("Field = %q, want document", ve.Field)
	}
	if err.Error() != "Please upload a PDF document first" {
		t.Errorf("Error() = %q", err.Error())
	}
}
