package coverage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lrotava/stdcores/RULES/core"
)

var LcovBinary = core.StringFlag{
	Name:        "lcov-binary",
	Description: "lcov executable used to capture coverage data",
	DefaultFn: func() string {
		return "lcov"
	},
}.Register()

var GenhtmlBinary = core.StringFlag{
	Name:        "genhtml-binary",
	Description: "genhtml executable used to render the coverage report",
	DefaultFn: func() string {
		return "genhtml"
	},
}.Register()

// Intermediate gcov artifacts removed after every run.
var artifactPatterns = []string{"*.gcno", "*.gcda"}

// Tool captures gcov data with lcov and renders it with genhtml. Every path
// is relative to Dir.
type Tool struct {
	Runner   core.CommandRunner
	Log      *zap.Logger
	Dir      string
	InfoFile string
	HTMLDir  string
}

func (t *Tool) run(ctx context.Context, name string, args ...string) error {
	cmd := core.Command{Name: name, Args: args, Dir: t.Dir}
	t.Log.Info("Running coverage tool", zap.String("cmd", cmd.String()))
	result, err := t.Runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return &core.StepError{
			Descr:    filepath.Base(name),
			ExitCode: result.ExitCode,
			Output:   string(result.Output),
		}
	}
	return nil
}

// Capture collects the gcov data below Dir into InfoFile.
func (t *Tool) Capture(ctx context.Context) error {
	return t.run(ctx, LcovBinary.Value(), "--capture", "--directory", ".", "--output-file", t.InfoFile)
}

// Report renders InfoFile as HTML into HTMLDir.
func (t *Tool) Report(ctx context.Context) error {
	return t.run(ctx, GenhtmlBinary.Value(), t.InfoFile, "--output-directory", t.HTMLDir)
}

// Cleanup deletes the gcov notes and data files and the info file. Files that
// do not exist are ignored; other failures are collected and reported once.
func (t *Tool) Cleanup() error {
	files := []string{}
	for _, pattern := range artifactPatterns {
		matches, err := filepath.Glob(filepath.Join(t.Dir, pattern))
		if err != nil {
			return errors.Wrapf(err, "invalid pattern '%s'", pattern)
		}
		files = append(files, matches...)
	}
	files = append(files, filepath.Join(t.Dir, t.InfoFile))

	failed := []string{}
	removed := 0
	for _, file := range files {
		err := os.Remove(file)
		switch {
		case err == nil:
			removed++
		case os.IsNotExist(err):
		default:
			t.Log.Warn("Failed to remove coverage artifact", zap.String("file", file), zap.Error(err))
			failed = append(failed, file)
		}
	}
	t.Log.Debug("Removed coverage artifacts", zap.Int("files", removed))

	if len(failed) > 0 {
		return errors.Errorf("failed to remove %s", strings.Join(failed, ", "))
	}
	return nil
}
