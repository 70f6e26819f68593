package errors

import (
	"errors"
	"net/http"
	"testing"
)

var errRuleBroken = errors.New("no agent available")

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
		is     error
	}{
		{"not found", NotFound("case", "123"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"bad request", BadRequest("bad"), "BAD_REQUEST", http.StatusBadRequest, ErrBadRequest},
		{"validation", Validation("invalid", []string{"x"}), "VALIDATION_ERROR", http.StatusUnprocessableEntity, ErrValidation},
		{"conflict", Conflict("dup"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"rule", Rule("NO_AGENT_AVAILABLE", errRuleBroken), "NO_AGENT_AVAILABLE", http.StatusConflict, errRuleBroken},
		{"forbidden", Forbidden("no"), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, tt.err.HTTPStatus)
			}
			if !errors.Is(tt.err, tt.is) {
				t.Errorf("Expected error to wrap %v", tt.is)
			}
		})
	}
}

func TestWrapKeepsAppErrorCode(t *testing.T) {
	original := NotFound("agent", "abc")
	wrapped := Wrap(original, "failed to reassign")

	if wrapped.Code != "NOT_FOUND" {
		t.Errorf("Expected code NOT_FOUND, got %s", wrapped.Code)
	}
	if wrapped.Message != "failed to reassign: agent not found" {
		t.Errorf("Unexpected message %q", wrapped.Message)
	}
	if original.Message != "agent not found" {
		t.Error("Wrap must not mutate the original error")
	}
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), "failed to save case")
	if wrapped.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", wrapped.HTTPStatus)
	}
	if wrapped.Error() != "failed to save case: boom" {
		t.Errorf("Unexpected error string %q", wrapped.Error())
	}
}
