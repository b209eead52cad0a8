// Package runner drives one test run: it probes the GHDL backend, registers
// the project libraries, enables coverage instrumentation when the backend
// supports it, runs the tests and post-processes the coverage data.
package runner

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lrotava/stdcores/RULES/config"
	"github.com/lrotava/stdcores/RULES/core"
	"github.com/lrotava/stdcores/RULES/coverage"
	"github.com/lrotava/stdcores/RULES/hdl"
	"github.com/lrotava/stdcores/RULES/report"
)

// Framework is the simulation framework the runner registers libraries with
// and hands the run to. *hdl.Project implements it.
type Framework interface {
	AddBuiltins(vunitPath string, b hdl.Builtins) error
	AddLibrary(name string) (*hdl.Library, error)
	Library(name string) *hdl.Library
	SetSimOption(name string, values []string) error
	Main(ctx context.Context, opts hdl.RunOptions) (hdl.RunResult, error)
}

var _ Framework = (*hdl.Project)(nil)

// Options are the command line settings of a run.
type Options struct {
	Run hdl.RunOptions
	// Coverage allows coverage collection when the backend supports it.
	Coverage bool
	// Exit0 reports success even when tests fail.
	Exit0       bool
	XUnitPath   string
	MetricsPath string
	// WorkDir holds the waveform do-file and the coverage artifacts.
	WorkDir string
	Summary io.Writer
}

// Runner executes a project. It is used once.
type Runner struct {
	log     *zap.Logger
	cmds    core.CommandRunner
	project *config.Project
	opts    Options
	runID   string

	// NewFramework creates the framework for the selected simulator.
	NewFramework func(sim hdl.Simulator) Framework
}

func New(log *zap.Logger, cmds core.CommandRunner, project *config.Project, opts Options) *Runner {
	runID := uuid.New().String()
	r := &Runner{
		log:     log.With(zap.String("run_id", runID)),
		cmds:    cmds,
		project: project,
		opts:    opts,
		runID:   runID,
	}
	r.NewFramework = func(sim hdl.Simulator) Framework {
		return hdl.NewProject(r.log, cmds, sim)
	}
	if r.opts.WorkDir == "" {
		r.opts.WorkDir = "."
	}
	if r.opts.Summary == nil {
		r.opts.Summary = io.Discard
	}
	return r
}

// RunID identifies the run in logs and reports.
func (r *Runner) RunID() string {
	return r.runID
}

// Run performs the whole run. A nil error means success; test failures are
// returned as *core.TestFailureError and everything else as
// *core.RuntimeError, see core.ExitCode.
func (r *Runner) Run(ctx context.Context) error {
	probe := hdl.ProbeGhdlBackend(ctx, r.cmds, hdl.GhdlBinary.Value())
	if probe.Err != nil {
		r.log.Debug("Could not determine the GHDL backend", zap.Error(probe.Err))
	}
	coverageEnabled := r.opts.Coverage && probe.SupportsCoverage()
	r.log.Info("Detected GHDL backend",
		zap.String("backend", string(probe.Backend)),
		zap.Bool("coverage", coverageEnabled))

	simName := hdl.SimulatorName.Value()
	sim, err := hdl.NewSimulator(simName, probe.Backend)
	if err != nil {
		return core.NewRuntimeError(err)
	}
	r.log.Info("Selected simulator", zap.String("simulator", sim.Name()))
	if sim.Name() == hdl.SimulatorModelsim {
		if err := r.writeWaveformDoFile(); err != nil {
			return core.NewRuntimeError(err)
		}
	}

	core.SetSourceDir(r.project.Root)
	fw := r.NewFramework(sim)
	if err := r.registerLibraries(fw); err != nil {
		return core.NewRuntimeError(err)
	}
	if err := r.setOptions(fw, coverageEnabled); err != nil {
		return core.NewRuntimeError(err)
	}

	result, err := fw.Main(ctx, r.opts.Run)
	if err != nil {
		r.cleanup()
		return core.NewRuntimeError(err)
	}
	return r.finish(ctx, sim.Name(), result, coverageEnabled)
}

func (r *Runner) writeWaveformDoFile() error {
	wave := r.project.Waveform
	path := filepath.Join(r.opts.WorkDir, wave.DoFile)
	content := ""
	for _, line := range wave.Content {
		content += line + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	r.log.Debug("Wrote waveform do-file", zap.String("file", path))
	return nil
}

func (r *Runner) registerLibraries(fw Framework) error {
	builtins := r.project.Builtins
	err := fw.AddBuiltins(hdl.VunitPath.Value(), hdl.Builtins{
		OSVVM:                  builtins.OSVVM,
		ArrayUtil:              builtins.ArrayUtil,
		VerificationComponents: builtins.VerificationComponents,
	})
	if err != nil {
		return err
	}
	for _, libCfg := range r.project.Libraries {
		lib, err := fw.AddLibrary(libCfg.Name)
		if err != nil {
			return err
		}
		for _, src := range libCfg.Sources {
			if _, err := lib.AddSourceFiles(src.Pattern, src.AllowEmpty); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) setOptions(fw Framework, coverageEnabled bool) error {
	cov := r.project.Coverage
	if coverageEnabled {
		for _, name := range cov.Libraries {
			lib := fw.Library(name)
			if lib == nil {
				return errors.Errorf("coverage library '%s' is not registered", name)
			}
			if err := lib.AddCompileOption(hdl.GhdlAnalysisFlags, cov.CompileFlags); err != nil {
				return err
			}
		}
		if err := fw.SetSimOption(hdl.GhdlElabFlags, cov.LinkFlags); err != nil {
			return err
		}
	}
	return fw.SetSimOption(hdl.ModelsimInitFilesAfter, []string{r.project.Waveform.DoFile})
}

func (r *Runner) coverageTool() *coverage.Tool {
	return &coverage.Tool{
		Runner:   r.cmds,
		Log:      r.log,
		Dir:      r.opts.WorkDir,
		InfoFile: r.project.Coverage.InfoFile,
		HTMLDir:  r.project.Coverage.HTMLDir,
	}
}

func (r *Runner) cleanup() {
	if err := r.coverageTool().Cleanup(); err != nil {
		r.log.Warn("Coverage cleanup failed", zap.Error(err))
	}
}

// finish reports the result, post-processes coverage on success and always
// removes the intermediate coverage files.
func (r *Runner) finish(ctx context.Context, simName string, result hdl.RunResult, coverageEnabled bool) error {
	if result.Simulated || result.CompileFailed {
		if err := r.writeReports(simName, result, coverageEnabled); err != nil {
			r.cleanup()
			return core.NewRuntimeError(err)
		}
	}

	// With --exit-0 a failing run counts as successful, coverage included.
	if !result.OK() {
		if !r.opts.Exit0 {
			r.cleanup()
			if result.CompileFailed {
				return core.NewTestFailureError("compilation failed")
			}
			return core.NewTestFailureError(failedTests(result))
		}
		r.log.Warn("Tests failed, exiting with 0 as requested")
	}

	if coverageEnabled && result.Simulated {
		tool := r.coverageTool()
		if err := tool.Capture(ctx); err != nil {
			r.log.Warn("Coverage capture failed", zap.Error(err))
		}
		if err := tool.Report(ctx); err != nil {
			r.log.Warn("Coverage report failed", zap.Error(err))
		} else {
			r.log.Info("Coverage report written", zap.String("dir", filepath.Join(r.opts.WorkDir, tool.HTMLDir)))
		}
	}
	r.cleanup()
	return nil
}

func (r *Runner) writeReports(simName string, result hdl.RunResult, coverageEnabled bool) error {
	report.PrintSummary(r.opts.Summary, result)
	if r.opts.XUnitPath != "" {
		if err := report.WriteXUnit(r.opts.XUnitPath, r.runID, result); err != nil {
			return err
		}
	}
	if r.opts.MetricsPath != "" {
		m := report.NewMetrics()
		m.Record(r.runID, simName, result, coverageEnabled)
		if err := m.WriteTextfile(r.opts.MetricsPath); err != nil {
			return err
		}
	}
	return nil
}

func failedTests(result hdl.RunResult) string {
	names := []string{}
	for _, t := range result.Tests {
		if t.Status == hdl.StatusFail {
			names = append(names, t.Name)
		}
	}
	return strings.Join(names, ", ")
}
