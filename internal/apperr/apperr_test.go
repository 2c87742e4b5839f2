package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{Validation, http.StatusBadRequest},
		{Auth, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Status(); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	sentinel := New(NotFound, "video not found")
	err := fmt.Errorf("load video: %w", sentinel)

	if KindOf(err) != NotFound {
		t.Errorf("KindOf() = %v, want not_found", KindOf(err))
	}
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should match wrapped sentinel")
	}
	if Message(err) != "video not found" {
		t.Errorf("Message() = %q", Message(err))
	}
}

func TestMessage_HidesInternal(t *testing.T) {
	if got := Message(errors.New("pq: connection refused")); got != "internal error" {
		t.Errorf("Message() = %q, want internal error", got)
	}
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Errorf("KindOf() = %v, want internal", got)
	}
}
