package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/lrotava/stdcores/RULES/config"
	"github.com/lrotava/stdcores/RULES/core"
	"github.com/lrotava/stdcores/RULES/hdl"
	"github.com/lrotava/stdcores/RULES/runner"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

const defaultProjectFile = "tbrun.yaml"

func main() {
	app := newApp(os.Stdout, core.ExecRunner{})
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), core.ExitCode(err)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(core.ExitCode(err))
	}
}

func newApp(out io.Writer, cmds core.CommandRunner) *cli.App {
	// -v is taken by --verbose.
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "tbrun"
	app.Usage = "Compile and run VHDL testbenches"
	app.Description = "tbrun compiles the project libraries, runs the selected testbenches " +
		"on GHDL or ModelSim and collects gcov coverage when GHDL uses the GCC backend."
	app.ArgsUsage = "[test patterns...]"
	app.Writer = out
	app.Flags = Flags()
	app.Action = func(c *cli.Context) error {
		return run(c, cmds)
	}
	app.Commands = []*cli.Command{
		{
			Name:  "flags",
			Usage: "Print the registered build flags as JSON",
			Action: func(c *cli.Context) error {
				project, err := loadProject(c.String(ProjectFile.Name))
				if err != nil {
					return core.NewRuntimeError(err)
				}
				if err := core.LoadFlags(core.CLIValues(c), project.Flags); err != nil {
					return core.NewRuntimeError(err)
				}
				return core.DescribeFlags(c.App.Writer)
			},
		},
	}
	return app
}

// loadProject reads the given project file, the default project file when it
// exists, or falls back to the built-in layout.
func loadProject(path string) (*config.Project, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(defaultProjectFile); err == nil {
		return config.Load(defaultProjectFile)
	}
	return config.Default(), nil
}

func run(c *cli.Context, cmds core.CommandRunner) error {
	logger, err := core.NewLogger(c.String(LogLevel.Name), c.String(LogFormat.Name))
	if err != nil {
		return core.NewRuntimeError(err)
	}
	defer func() { _ = logger.Sync() }()

	project, err := loadProject(c.String(ProjectFile.Name))
	if err != nil {
		return core.NewRuntimeError(errors.Wrap(err, "failed to load project"))
	}
	// Command line and environment take precedence over the project file.
	if err := core.LoadFlags(core.CLIValues(c), project.Flags); err != nil {
		return core.NewRuntimeError(err)
	}
	core.SetOutputDir(c.String(OutputPath.Name))
	logger.Debug("Loaded project",
		zap.String("root", project.Root),
		zap.Int("libraries", len(project.Libraries)),
		zap.String("output_path", c.String(OutputPath.Name)))

	opts := runner.Options{
		Run: hdl.RunOptions{
			Patterns:    c.Args().Slice(),
			NumThreads:  c.Int(NumThreads.Name),
			GUI:         c.Bool(GUI.Name),
			Verbose:     c.Bool(Verbose.Name),
			List:        c.Bool(List.Name),
			Files:       c.Bool(Files.Name),
			CompileOnly: c.Bool(CompileOnly.Name),
			Clean:       c.Bool(Clean.Name),
			Timeout:     c.Duration(Timeout.Name),
			Output:      c.App.Writer,
		},
		Coverage:    c.Bool(Coverage.Name),
		Exit0:       c.Bool(Exit0.Name),
		XUnitPath:   c.String(XUnitXML.Name),
		MetricsPath: c.String(MetricsFile.Name),
		WorkDir:     ".",
		Summary:     c.App.Writer,
	}
	r := runner.New(logger, cmds, project, opts)
	logger.Info("Starting run", zap.String("run_id", r.RunID()), zap.String("version", c.App.Version))
	return r.Run(c.Context)
}
