package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_MessageFormatting(t *testing.T) {
	plain := ValidationError("bad package name")
	assert.Equal(t, "validation: bad package name", plain.Error())

	cause := errors.New("connection refused")
	wrapped := UnavailableError("session store write failed", cause)
	assert.Equal(t, "unavailable: session store write failed: connection refused", wrapped.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := InternalError("something broke", cause)

	assert.True(t, errors.Is(err, cause))

	var structured *Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &structured))
	assert.Equal(t, TypeInternal, structured.Type)
}

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{ValidationError("v"), http.StatusBadRequest},
		{NotFoundError("n"), http.StatusNotFound},
		{ConflictError("c"), http.StatusConflict},
		{InternalError("i", nil), http.StatusInternalServerError},
		{UnavailableError("u", nil), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus(), "type %s", tt.err.Type)
	}
}

func TestError_WithField(t *testing.T) {
	err := NotFoundError("session not found").
		WithField("session_id", int64(42)).
		WithField("package", "com.example.game")

	assert.Equal(t, int64(42), err.Context["session_id"])
	assert.Equal(t, "com.example.game", err.Context["package"])
}

func TestToResponse(t *testing.T) {
	err := ValidationError("duration out of range").WithField("minutes", 900)
	resp := err.ToResponse()

	assert.Equal(t, "duration out of range", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, 900, resp.Context["minutes"])
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	already := ConflictError("active session exists")
	assert.Same(t, already, AsStructuredError(already))

	wrapped := AsStructuredError(errors.New("plain"))
	assert.Equal(t, TypeInternal, wrapped.Type)
	assert.Equal(t, "internal server error", wrapped.Message)
}
