package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type scriptedRunner struct {
	calls    []Command
	exitCode int
	output   string
	err      error
}

func (r *scriptedRunner) Run(ctx context.Context, cmd Command) (CommandResult, error) {
	r.calls = append(r.calls, cmd)
	return CommandResult{ExitCode: r.exitCode, Output: []byte(r.output)}, r.err
}

func TestBuildStepSkipsUpToDate(t *testing.T) {
	src, out := withDirs(t)
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.vhd"), []byte("entity a is end;"), 0644))

	runner := &scriptedRunner{output: "analysed\n"}
	bctx := NewBuildContext(runner, zaptest.NewLogger(t), OutputPath("ghdl"))
	step := BuildStep{
		Out:   bctx.Cwd().WithSuffix("/stamps/a.stamp"),
		Ins:   []Path{SourcePath("a.vhd")},
		Cmd:   Command{Name: "ghdl", Args: []string{"-a", "a.vhd"}},
		Descr: "Compiling a.vhd",
	}

	ctx := context.Background()
	require.NoError(t, bctx.AddBuildStep(ctx, step))
	require.NoError(t, bctx.AddBuildStep(ctx, step))
	assert.Len(t, runner.calls, 1)
	assert.Equal(t, 1, bctx.Executed())
	assert.Equal(t, 1, bctx.Skipped())

	log, err := os.ReadFile(filepath.Join(out, "ghdl/stamps/a.log"))
	require.NoError(t, err)
	assert.Equal(t, "analysed\n", string(log))

	// A different command line invalidates the stamp.
	step.Cmd.Args = append(step.Cmd.Args, "-frelaxed")
	require.NoError(t, bctx.AddBuildStep(ctx, step))
	assert.Len(t, runner.calls, 2)

	// So does a changed input.
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.vhd"), []byte("entity a is end entity;"), 0644))
	require.NoError(t, bctx.AddBuildStep(ctx, step))
	assert.Len(t, runner.calls, 3)
}

func TestBuildStepFailure(t *testing.T) {
	src, out := withDirs(t)
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.vhd"), []byte("garbage"), 0644))

	runner := &scriptedRunner{}
	bctx := NewBuildContext(runner, zaptest.NewLogger(t), OutputPath("ghdl"))
	step := BuildStep{
		Out:   bctx.Cwd().WithSuffix("/a.stamp"),
		Ins:   []Path{SourcePath("a.vhd")},
		Cmd:   Command{Name: "ghdl", Args: []string{"-a", "a.vhd"}},
		Descr: "Compiling a.vhd",
	}
	require.NoError(t, bctx.AddBuildStep(context.Background(), step))

	runner.exitCode = 1
	runner.output = "a.vhd:1:1: syntax error\n"
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.vhd"), []byte("more garbage"), 0644))
	err := bctx.AddBuildStep(context.Background(), step)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 1, stepErr.ExitCode)
	assert.Equal(t, "a.vhd:1:1: syntax error\n", stepErr.Output)
	assert.NoFileExists(t, filepath.Join(out, "ghdl/a.stamp"))
	assert.FileExists(t, filepath.Join(out, "ghdl/a.log"))

	// The failed step left no stamp behind.
	runner.exitCode = 0
	require.NoError(t, bctx.AddBuildStep(context.Background(), step))
	assert.Len(t, runner.calls, 3)
}

func TestBuildStepWithoutOutput(t *testing.T) {
	withDirs(t)
	runner := &scriptedRunner{}
	bctx := NewBuildContext(runner, zaptest.NewLogger(t), OutputPath(""))
	step := BuildStep{Cmd: Command{Name: "vlib", Args: []string{"lib"}}, Descr: "Creating lib"}

	require.NoError(t, bctx.AddBuildStep(context.Background(), step))
	require.NoError(t, bctx.AddBuildStep(context.Background(), step))
	assert.Len(t, runner.calls, 2)

	runner.exitCode = 2
	err := bctx.AddBuildStep(context.Background(), step)
	var stepErr *StepError
	assert.True(t, errors.As(err, &stepErr))

	runner.err = errors.New("cannot start")
	assert.EqualError(t, bctx.AddBuildStep(context.Background(), step), "cannot start")
}

func TestBuildStepMissingInput(t *testing.T) {
	withDirs(t)
	bctx := NewBuildContext(&scriptedRunner{}, zaptest.NewLogger(t), OutputPath(""))
	err := bctx.AddBuildStep(context.Background(), BuildStep{
		Out: OutputPath("x.stamp"),
		Ins: []Path{SourcePath("missing.vhd")},
		Cmd: Command{Name: "ghdl"},
	})
	assert.Error(t, err)
}
