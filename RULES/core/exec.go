package core

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string

	// Output, when set, additionally receives the combined output while the
	// process runs.
	Output io.Writer
}

func (cmd Command) String() string {
	return strings.Join(append([]string{cmd.Name}, cmd.Args...), " ")
}

// CommandResult is the outcome of a process that could be started.
type CommandResult struct {
	ExitCode int
	Output   []byte
}

// CommandRunner runs external processes. A non-zero exit status is reported
// through CommandResult.ExitCode; the error is reserved for processes that
// could not be started or were cancelled.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (CommandResult, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

var _ CommandRunner = ExecRunner{}

func (ExecRunner) Run(ctx context.Context, cmd Command) (CommandResult, error) {
	var buf bytes.Buffer
	var out io.Writer = &buf
	if cmd.Output != nil {
		out = io.MultiWriter(&buf, cmd.Output)
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdout = out
	c.Stderr = out

	err := c.Run()
	result := CommandResult{Output: buf.Bytes()}
	if err == nil {
		return result, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, errors.Wrapf(err, "failed to run %s", cmd.Name)
}
