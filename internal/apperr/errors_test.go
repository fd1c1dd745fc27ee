package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Unauthorized("no"), http.StatusUnauthorized},
		{Token(CodeTokenExpired, "expired"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{Unavailable("down", nil), http.StatusServiceUnavailable},
		{Internal("boom", errors.New("x")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Status(), tc.err.Message)
	}
}

func TestWrapKeepsTypedErrors(t *testing.T) {
	nf := NotFound("user not found")
	wrapped := fmt.Errorf("load: %w", nf)

	assert.Same(t, wrapped, Wrap(wrapped, "ignored"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))

	raw := errors.New("connection reset")
	got := Wrap(raw, "query users")
	assert.Equal(t, KindInternal, KindOf(got))
	assert.ErrorIs(t, got, raw)
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeTokenRevoked, CodeOf(Token(CodeTokenRevoked, "revoked")))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}
