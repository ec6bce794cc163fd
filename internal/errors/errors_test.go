package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeMissingFloor, "starting version not found")
	require.Equal(t, ErrCodeMissingFloor, err.Code)
	require.Equal(t, "[MISSING_FLOOR] starting version not found", err.Error())
	require.Nil(t, err.Unwrap())
}

func TestWrap(t *testing.T) {
	cause := errors.New("object not found")
	err := Wrap(ErrCodeInternal, "reading commit", cause)
	require.True(t, errors.Is(err, cause))
	require.Equal(t, "[INTERNAL] reading commit: object not found", err.Error())

	var structured *StructuredError
	require.True(t, errors.As(error(err), &structured))
	require.Equal(t, ErrCodeInternal, structured.Code)
}

func TestNewWithContext(t *testing.T) {
	err := NewWithContext(ErrCodeNoVersion, "no valid version", map[string]any{"commit": "abc"})
	require.Equal(t, "abc", err.Context["commit"])
}
