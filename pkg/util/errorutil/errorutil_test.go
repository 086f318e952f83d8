package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestToDomainError_PassesThrough(t *testing.T) {
	orig := NewForbidden("nope")
	wrapped := fmt.Errorf("update: %w", orig)

	got := ToDomainError(wrapped)
	if got.Code != CodeForbidden || got.HTTPStatus != http.StatusForbidden {
		t.Errorf("expected forbidden, got %s/%d", got.Code, got.HTTPStatus)
	}
	if !HasCode(wrapped, CodeForbidden) {
		t.Error("expected HasCode to see through wrapping")
	}
}

func TestToDomainError_FiberError(t *testing.T) {
	got := ToDomainError(fiber.NewError(http.StatusNotFound, "Cannot GET /nope"))
	if got.Code != CodeNotFound || got.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected not found, got %s/%d", got.Code, got.HTTPStatus)
	}
}

func TestToDomainError_Unknown(t *testing.T) {
	got := ToDomainError(errors.New("boom"))
	if got.Code != CodeInternal || got.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected internal, got %s/%d", got.Code, got.HTTPStatus)
	}
	if got.Message != "internal server error" {
		t.Errorf("expected generic message, got %q", got.Message)
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := NewValidationError("validation failed", map[string]string{"title": "size must be between 5 and 100"})
	de := ToDomainError(err)
	if de.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", de.HTTPStatus)
	}
	if de.Details["title"] != "size must be between 5 and 100" {
		t.Errorf("unexpected details: %v", de.Details)
	}
}

func TestDistinctOutcomes(t *testing.T) {
	statuses := map[int]string{}
	for _, err := range []error{
		NewNotFound("ticket", nil),
		NewForbidden("x"),
		NewValidationError("x", nil),
		NewUnauthorized("x"),
	} {
		de := ToDomainError(err)
		if prev, ok := statuses[de.HTTPStatus]; ok {
			t.Errorf("status %d shared by %s and %s", de.HTTPStatus, prev, de.Code)
		}
		statuses[de.HTTPStatus] = de.Code
	}
}
