package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	cause := stderrors.New("registry snapshot not loaded")
	err := Wrap(ErrUnavailable, cause)

	assert.Equal(t, http.StatusServiceUnavailable, err.Code)
	assert.Equal(t, "registry snapshot not loaded", err.Details)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.Same(t, ErrBadRequest, Wrap(ErrBadRequest, nil))
}

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", ErrNotFound, http.StatusNotFound},
		{"wrapped app error", fmt.Errorf("lookup: %w", ErrForbidden), http.StatusForbidden},
		{"custom", New(http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetStatusCode(tt.err))
		})
	}
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrBadRequest, "body must be a JSON object")

	assert.True(t, IsAppError(err))
	assert.False(t, IsAppError(stderrors.New("x")))
	assert.Equal(t, "code=400, message=Bad request, details=body must be a JSON object", err.Error())
	assert.Empty(t, ErrBadRequest.Details)
}
