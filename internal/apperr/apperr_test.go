package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ResourceExhausted("slow down"))

	assert.Equal(t, CodeResourceExhausted, CodeOf(wrapped))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, CodeInvalidArgument, CodeOf(InvalidArgument("bad %s", "input")))
}

func TestResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   Code
		wantMsg    string
	}{
		{"unauthenticated", Unauthenticated(), http.StatusUnauthorized, CodeUnauthenticated, "authentication required"},
		{"invalid", InvalidArgument("keyword too short"), http.StatusBadRequest, CodeInvalidArgument, "keyword too short"},
		{"denied", PermissionDenied("no"), http.StatusForbidden, CodePermissionDenied, "no"},
		{"quota", ResourceExhausted("later"), http.StatusTooManyRequests, CodeResourceExhausted, "later"},
		{"not found", New(CodeNotFound, "gone"), http.StatusNotFound, CodeNotFound, "gone"},
		{"internal hides cause", Internal("db down", errors.New("dial tcp")), http.StatusInternalServerError, CodeInternal, "internal error"},
		{"plain error", errors.New("oops"), http.StatusInternalServerError, CodeInternal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Response(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
