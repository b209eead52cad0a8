package core

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const fileMode = 0644

type Context interface {
	AddBuildStep(context.Context, BuildStep) error
	Cwd() OutPath
}

// BuildStep represents one build step (i.e., one build command).
// Each BuildStep produces the stamp `Out` from `Ins` by running `Cmd`. The
// step is skipped when the stamp already matches the inputs and command.
type BuildStep struct {
	Out   OutPath
	Ins   []Path
	Cmd   Command
	Descr string
}

// BuildContext runs build steps in the order they are added.
type BuildContext struct {
	runner CommandRunner
	log    *zap.Logger
	cwd    OutPath

	executed int
	skipped  int
}

var _ Context = (*BuildContext)(nil)

func NewBuildContext(runner CommandRunner, log *zap.Logger, cwd OutPath) *BuildContext {
	return &BuildContext{
		runner: runner,
		log:    log,
		cwd:    cwd,
	}
}

func (ctx *BuildContext) AddBuildStep(c context.Context, step BuildStep) error {
	stamp, err := stepStamp(step)
	if err != nil {
		return err
	}

	if step.Out != nil {
		if data, err := os.ReadFile(step.Out.Absolute()); err == nil && string(data) == stamp {
			ctx.log.Debug("Up to date", zap.String("step", step.Descr))
			ctx.skipped++
			return nil
		}
	}

	ctx.log.Info(step.Descr)
	ctx.log.Debug("Running command", zap.String("cmd", step.Cmd.String()))
	result, err := ctx.runner.Run(c, step.Cmd)
	if err != nil {
		return err
	}
	ctx.executed++

	if step.Out == nil {
		if result.ExitCode != 0 {
			return &StepError{Descr: step.Descr, ExitCode: result.ExitCode, Output: string(result.Output)}
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(step.Out.Absolute()), 0755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	logFile := step.Out.WithExt("log")
	if err := os.WriteFile(logFile.Absolute(), result.Output, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write %s", logFile.Relative())
	}

	if result.ExitCode != 0 {
		// Remove the stamp so the step runs again next time.
		os.Remove(step.Out.Absolute())
		return &StepError{Descr: step.Descr, ExitCode: result.ExitCode, Output: string(result.Output)}
	}

	if err := os.WriteFile(step.Out.Absolute(), []byte(stamp), fileMode); err != nil {
		return errors.Wrapf(err, "failed to write %s", step.Out.Relative())
	}
	return nil
}

// Cwd returns the output directory of the current context.
func (ctx *BuildContext) Cwd() OutPath {
	return ctx.cwd
}

// Executed returns the number of steps that ran a command.
func (ctx *BuildContext) Executed() int {
	return ctx.executed
}

// Skipped returns the number of steps found up to date.
func (ctx *BuildContext) Skipped() int {
	return ctx.skipped
}

// stepStamp hashes the command line and the content of every input.
func stepStamp(step BuildStep) (string, error) {
	hash := crc32.NewIEEE()
	fmt.Fprintf(hash, "%s\x00%s\x00", step.Cmd.String(), strings.Join(step.Cmd.Env, "\x00"))
	for _, in := range step.Ins {
		data, err := os.ReadFile(in.Absolute())
		if err != nil {
			return "", errors.Wrapf(err, "failed to read %s", in.Relative())
		}
		fmt.Fprintf(hash, "%s\x00", in.Relative())
		hash.Write(data)
	}
	return fmt.Sprintf("%08X\n", hash.Sum32()), nil
}
