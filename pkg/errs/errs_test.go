package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategoryOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("left order: %w", ErrOrderExpired)

	require.True(t, errors.Is(err, ErrOrderExpired))
	require.False(t, errors.Is(err, ErrOrderNotStarted))
	require.Equal(t, Validation, CategoryOf(err))
	require.Equal(t, "order_expired", CodeOf(err))
}

func TestCategoryOf_Plain(t *testing.T) {
	err := errors.New("boom")
	require.Equal(t, CategoryUnknown, CategoryOf(err))
	require.Equal(t, "", CodeOf(err))
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		c    Category
		want string
	}{
		{Validation, "validation"},
		{Authorization, "authorization"},
		{Arithmetic, "arithmetic"},
		{Compatibility, "compatibility"},
		{Economic, "economic"},
		{Transfer, "transfer"},
		{CategoryUnknown, "unknown"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.c.String())
	}
}
