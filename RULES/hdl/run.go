package hdl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lrotava/stdcores/RULES/core"
)

const (
	testOutputDir  = "test_output"
	testOutputFile = "output.txt"
)

// RunOptions control one invocation of Main.
type RunOptions struct {
	// Patterns select tests by name; empty selects all tests.
	Patterns   []string
	NumThreads int
	GUI        bool
	// Verbose copies simulator output to Output while tests run.
	Verbose bool
	// List, Files and CompileOnly stop the run early.
	List        bool
	Files       bool
	CompileOnly bool
	Clean       bool
	// Timeout limits each test; zero means no limit.
	Timeout time.Duration
	Output  io.Writer
}

// RunResult is the outcome of Main.
type RunResult struct {
	Tests    []TestResult
	Duration time.Duration
	// CompileFailed marks every selected test as skipped.
	CompileFailed bool
	// Simulated is false when Main stopped before running tests.
	Simulated bool
}

// OK reports whether compilation succeeded and no test failed.
func (r RunResult) OK() bool {
	if r.CompileFailed {
		return false
	}
	for _, t := range r.Tests {
		if t.Status == StatusFail {
			return false
		}
	}
	return true
}

func (r RunResult) count(status TestStatus) int {
	n := 0
	for _, t := range r.Tests {
		if t.Status == status {
			n++
		}
	}
	return n
}

func (r RunResult) Passed() int  { return r.count(StatusPass) }
func (r RunResult) Failed() int  { return r.count(StatusFail) }
func (r RunResult) Skipped() int { return r.count(StatusSkip) }

// lockedWriter serialises writes of parallel tests.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Main compiles the project and runs the selected tests. Test failures are
// reported through the result; the error is reserved for problems that stop
// the run, such as a dependency loop or a cancelled context.
func (p *Project) Main(ctx context.Context, opts RunOptions) (RunResult, error) {
	start := time.Now()
	result := RunResult{}
	out := opts.Output
	if out == nil {
		out = io.Discard
	}

	if opts.Clean {
		if err := p.clean(); err != nil {
			return result, err
		}
	}

	if opts.Files {
		for _, f := range p.SourceFiles() {
			fmt.Fprintf(out, "%s, %s\n", f.Library.Name, f.Path.Relative())
		}
		fmt.Fprintf(out, "Listed %d files\n", len(p.SourceFiles()))
		return result, nil
	}

	tests, err := SelectTests(Tests(p.TestBenches()), opts.Patterns)
	if err != nil {
		return result, err
	}

	if opts.List {
		for _, t := range tests {
			fmt.Fprintln(out, t.Name())
		}
		fmt.Fprintf(out, "Listed %d tests\n", len(tests))
		return result, nil
	}

	order, err := p.CompileOrder()
	if err != nil {
		return result, err
	}
	if err := p.compile(ctx, order); err != nil {
		var stepErr *core.StepError
		if !errors.As(err, &stepErr) {
			return result, err
		}
		p.log.Error("Compilation failed",
			zap.String("step", stepErr.Descr),
			zap.Int("exit_code", stepErr.ExitCode))
		fmt.Fprint(out, stripansi.Strip(stepErr.Output))
		result.CompileFailed = true
		for _, t := range tests {
			result.Tests = append(result.Tests, TestResult{Name: t.Name(), Status: StatusSkip})
		}
		result.Duration = time.Since(start)
		return result, nil
	}
	if opts.CompileOnly {
		result.Duration = time.Since(start)
		return result, nil
	}

	if len(tests) == 0 {
		p.log.Warn("No tests were run")
	}
	result.Tests, err = p.runTests(ctx, tests, opts, out)
	if err != nil {
		return result, err
	}
	result.Simulated = true
	result.Duration = time.Since(start)
	return result, nil
}

// clean removes everything the simulators and previous runs generated.
func (p *Project) clean() error {
	for _, dir := range []string{SimulatorGhdl, SimulatorModelsim, testOutputDir} {
		if err := os.RemoveAll(core.OutputPath(dir).Absolute()); err != nil {
			return errors.Wrapf(err, "failed to remove %s", dir)
		}
	}
	return nil
}

func stampPath(cwd core.OutPath, f *SourceFile) core.OutPath {
	return cwd.WithSuffix(fmt.Sprintf("/stamps/%s/%s.stamp", f.Library.Name, safeName(f.Path.Relative())))
}

// compile runs one build step per file. A step depends on the stamps of the
// files it uses, so changing a package recompiles its users.
func (p *Project) compile(ctx context.Context, order []*SourceFile) error {
	if err := p.simulator.Setup(ctx, p.runner, p.Libraries); err != nil {
		return err
	}

	bctx := core.NewBuildContext(p.runner, p.log, core.OutputPath(p.simulator.Name()))
	for _, f := range order {
		ins := []core.Path{f.Path}
		for _, dep := range p.Dependencies(f) {
			ins = append(ins, stampPath(bctx.Cwd(), dep))
		}
		step := core.BuildStep{
			Out:   stampPath(bctx.Cwd(), f),
			Ins:   ins,
			Cmd:   p.simulator.CompileCommand(f),
			Descr: fmt.Sprintf("Compiling %s into %s", f.Path.Relative(), f.Library.Name),
		}
		if err := bctx.AddBuildStep(ctx, step); err != nil {
			return err
		}
	}

	p.log.Info("Compilation done",
		zap.Int("compiled", bctx.Executed()),
		zap.Int("up_to_date", bctx.Skipped()))
	return nil
}

// runTests runs tests on NumThreads workers. Results keep the order of tests.
func (p *Project) runTests(ctx context.Context, tests []Test, opts RunOptions, out io.Writer) ([]TestResult, error) {
	threads := opts.NumThreads
	if threads < 1 || opts.GUI {
		threads = 1
	}
	var verbose io.Writer
	if opts.Verbose {
		verbose = &lockedWriter{w: out}
	}

	results := make([]TestResult, len(tests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, test := range tests {
		i, test := i, test
		g.Go(func() error {
			res, err := p.runTest(gctx, test, opts, verbose)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Project) runTest(ctx context.Context, test Test, opts RunOptions, verbose io.Writer) (TestResult, error) {
	name := test.Name()
	outDir := core.OutputPath(testOutputDir + "/" + safeName(name))
	if err := os.RemoveAll(outDir.Absolute()); err != nil {
		return TestResult{}, errors.Wrapf(err, "failed to clear output of %s", name)
	}
	if err := os.MkdirAll(outDir.Absolute(), 0755); err != nil {
		return TestResult{}, errors.Wrapf(err, "failed to create output of %s", name)
	}

	tbDir := filepath.Dir(test.TestBench.File.Path.Absolute())
	cmds, err := p.simulator.SimulationCommands(SimulationRun{
		Test:      test,
		OutputDir: outDir.Absolute(),
		RunnerCfg: RunnerCfg(test, outDir.Absolute(), tbDir),
		Options:   p.SimOptions,
		GUI:       opts.GUI,
	})
	if err != nil {
		return TestResult{}, err
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	p.log.Info("Starting test", zap.String("test", name))
	start := time.Now()
	status := StatusPass
	var output bytes.Buffer
	for _, cmd := range cmds {
		cmd.Output = verbose
		res, err := p.runner.Run(runCtx, cmd)
		output.Write(res.Output)
		if err != nil {
			if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				p.log.Warn("Test timed out", zap.String("test", name), zap.Duration("timeout", opts.Timeout))
				status = StatusFail
				break
			}
			return TestResult{}, err
		}
		if res.ExitCode != 0 {
			status = StatusFail
			break
		}
	}
	if status == StatusPass {
		done, err := suiteDone(outDir.Absolute())
		if err != nil {
			return TestResult{}, err
		}
		if !done {
			status = StatusFail
		}
	}

	clean := stripansi.Strip(output.String())
	outFile := outDir.WithSuffix("/" + testOutputFile)
	if err := os.WriteFile(outFile.Absolute(), []byte(clean), 0644); err != nil {
		return TestResult{}, errors.Wrapf(err, "failed to write %s", outFile.Relative())
	}

	result := TestResult{
		Name:       name,
		Status:     status,
		Duration:   time.Since(start),
		OutputPath: outFile.Absolute(),
	}
	if status == StatusFail {
		result.Output = clean
		p.log.Error("Test failed", zap.String("test", name), zap.String("output", outFile.Absolute()))
	} else {
		p.log.Info("Test passed", zap.String("test", name), zap.Duration("duration", result.Duration))
	}
	return result, nil
}
