package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	v := Validation("IMEI is required")
	assert.ErrorIs(t, v, ErrInvalidInput)
	assert.Equal(t, KindValidation, KindOf(v))
	assert.Equal(t, "IMEI is required", Message(v))

	u := Unauthenticated("Please log in first")
	assert.ErrorIs(t, u, ErrUnauthenticated)

	f := Forbidden("ONBOARDING_REQUIRED", "Finish onboarding first")
	assert.ErrorIs(t, f, ErrForbidden)
	assert.Equal(t, KindForbidden, KindOf(f))

	n := NotFound("DIALOG_NOT_FOUND", "Activation dialog not found", ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", n), ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", n)))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Unauthenticated("no"), http.StatusUnauthorized},
		{NewAppError("BACKEND_ERROR", "rejected", nil), http.StatusBadGateway},
		{&AppError{Kind: KindTransport}, http.StatusBadGateway},
		{&AppError{Kind: KindNetwork}, http.StatusServiceUnavailable},
		{Conflict("BUSY", "busy", ErrBusy), http.StatusConflict},
		{NotFound("X", "missing", nil), http.StatusNotFound},
		{Forbidden("ONBOARDING_REQUIRED", "finish onboarding"), http.StatusForbidden},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), Message(tc.err))
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "plain", Message(errors.New("plain")))
}
