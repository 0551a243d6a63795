package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes(t *testing.T) {
	t.Run("wrapped error keeps code through fmt wrapping", func(t *testing.T) {
		cause := errors.New("db down")
		err := fmt.Errorf("load: %w", Wrap(cause, CodeInternal, "failed to load order"))

		assert.True(t, HasCode(err, CodeInternal))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to load order", MessageOf(err))
	})

	t.Run("wrap nil returns nil", func(t *testing.T) {
		require.NoError(t, Wrap(nil, CodeInternal, "unused"))
	})

	t.Run("plain errors map to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(errors.New("boom"), CodeNotFound))
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:         http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeInvariantViolation: http.StatusConflict,
		CodeForbidden:          http.StatusForbidden,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeUnavailable:        http.StatusBadGateway,
		CodeTooManyRequests:    http.StatusTooManyRequests,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), code)
	}
}
