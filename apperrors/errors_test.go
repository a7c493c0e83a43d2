package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKind_Status(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			require.Equal(t, tt.want, tt.kind.Status())
		})
	}
}

func TestFrom(t *testing.T) {
	t.Run("keeps app error through wrapping", func(t *testing.T) {
		orig := Conflict("username taken")
		wrapped := fmt.Errorf("register: %w", orig)

		got := From(wrapped)

		require.Same(t, orig, got)
		require.True(t, IsConflict(wrapped))
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		cause := errors.New("connection reset")

		got := From(cause)

		require.Equal(t, KindInternal, got.Kind)
		require.ErrorIs(t, got, cause)
		require.NotContains(t, got.Message, "connection reset")
	})

	t.Run("nil stays nil", func(t *testing.T) {
		require.Nil(t, From(nil))
	})
}
