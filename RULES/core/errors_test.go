package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitTestFailure, ExitCode(NewTestFailureError("lib.tb.a")))
	assert.Equal(t, ExitTestFailure, ExitCode(errors.Wrap(NewTestFailureError("lib.tb.a"), "run")))
	assert.Equal(t, ExitRuntimeErr, ExitCode(NewRuntimeError(errors.New("no files"))))
	assert.Equal(t, ExitRuntimeErr, ExitCode(errors.New("unexpected")))
}

func TestTypedErrors(t *testing.T) {
	cause := errors.New("pattern did not match any file")
	err := errors.Wrap(NewRuntimeError(cause), "register")
	assert.True(t, IsRuntimeError(err))
	assert.False(t, IsTestFailureError(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "register: runtime error: pattern did not match any file", err.Error())

	assert.False(t, IsRuntimeError(nil))
	assert.EqualError(t, NewTestFailureError("lib.tb.a"), "test failure: lib.tb.a")
	assert.EqualError(t, &StepError{Descr: "Compiling a.vhd", ExitCode: 1}, "Compiling a.vhd failed with exit code 1")
}
