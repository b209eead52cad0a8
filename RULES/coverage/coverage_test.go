package coverage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lrotava/stdcores/RULES/core"
)

type recordingRunner struct {
	calls    []core.Command
	exitCode int
}

func (r *recordingRunner) Run(ctx context.Context, cmd core.Command) (core.CommandResult, error) {
	r.calls = append(r.calls, cmd)
	return core.CommandResult{ExitCode: r.exitCode, Output: []byte("lcov: ERROR: no .gcda files found\n")}, nil
}

func newTool(t *testing.T, runner core.CommandRunner) *Tool {
	return &Tool{
		Runner:   runner,
		Log:      zaptest.NewLogger(t),
		Dir:      t.TempDir(),
		InfoFile: "code_coverage.info",
		HTMLDir:  "cc_html",
	}
}

func TestCaptureAndReport(t *testing.T) {
	runner := &recordingRunner{}
	tool := newTool(t, runner)

	require.NoError(t, tool.Capture(context.Background()))
	require.NoError(t, tool.Report(context.Background()))

	require.Len(t, runner.calls, 2)
	assert.Equal(t, core.Command{
		Name: "lcov",
		Args: []string{"--capture", "--directory", ".", "--output-file", "code_coverage.info"},
		Dir:  tool.Dir,
	}, runner.calls[0])
	assert.Equal(t, core.Command{
		Name: "genhtml",
		Args: []string{"code_coverage.info", "--output-directory", "cc_html"},
		Dir:  tool.Dir,
	}, runner.calls[1])
}

func TestCaptureFailure(t *testing.T) {
	tool := newTool(t, &recordingRunner{exitCode: 1})

	err := tool.Capture(context.Background())
	var stepErr *core.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "lcov", stepErr.Descr)
	assert.Equal(t, 1, stepErr.ExitCode)
	assert.Contains(t, stepErr.Output, "no .gcda files found")
}

func TestCleanup(t *testing.T) {
	tool := newTool(t, &recordingRunner{})
	for _, name := range []string{"tb_spi.gcno", "tb_spi.gcda", "e~tb_spi.gcda", "code_coverage.info", "keep.vhd"} {
		require.NoError(t, os.WriteFile(filepath.Join(tool.Dir, name), nil, 0644))
	}

	require.NoError(t, tool.Cleanup())

	entries, err := os.ReadDir(tool.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep.vhd", entries[0].Name())

	// Nothing left to remove is not an error.
	require.NoError(t, tool.Cleanup())
}

func TestCleanupFailure(t *testing.T) {
	tool := newTool(t, &recordingRunner{})
	// A non-empty directory named like the info file cannot be removed.
	require.NoError(t, os.MkdirAll(filepath.Join(tool.Dir, "code_coverage.info", "x"), 0755))

	assert.ErrorContains(t, tool.Cleanup(), "code_coverage.info")
}
