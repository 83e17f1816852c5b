package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad field"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("no session"), http.StatusUnauthorized},
		{"forbidden", Forbidden("not your mod"), http.StatusForbidden},
		{"not found", NotFound("no such user"), http.StatusNotFound},
		{"conflict", Conflict("already initialized"), http.StatusConflict},
		{"internal", Internal("kv failed", errors.New("boom")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	if got := PublicMessage(Conflict("duplicate id")); got != "duplicate id" {
		t.Errorf("PublicMessage() = %q, want %q", got, "duplicate id")
	}
	if got := PublicMessage(Internal("kv failed", errors.New("dial tcp refused"))); got != "internal server error" {
		t.Errorf("internal errors must not leak details, got %q", got)
	}
	if got := PublicMessage(errors.New("dial tcp refused")); got != "internal server error" {
		t.Errorf("plain errors must not leak details, got %q", got)
	}
}

func TestWrappedKindSurvivesFmtErrorf(t *testing.T) {
	err := fmt.Errorf("loading user: %w", NotFound("no such user"))
	if !IsKind(err, KindNotFound) {
		t.Error("expected wrapped error to keep its kind")
	}
	if HTTPStatus(err) != http.StatusNotFound {
		t.Errorf("HTTPStatus() = %d, want 404", HTTPStatus(err))
	}
}
