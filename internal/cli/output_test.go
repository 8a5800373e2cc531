package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitError(t *testing.T) {
	inner := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "loading manifest", inner)

	assert.Equal(t, "loading manifest: no such file", err.Error())
	assert.Equal(t, inner, errors.Unwrap(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError,
		GetExitCode(WrapExitError(ExitCommandError, "bad path", nil)))

	// Codes survive further wrapping.
	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "kernel", nil))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
}
