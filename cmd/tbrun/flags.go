package main

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/lrotava/stdcores/RULES/core"
)

func prefixEnvVar(name string) []string {
	return []string{core.EnvVarPrefix + "_" + name}
}

var (
	ProjectFile = &cli.StringFlag{
		Name:    "project",
		Aliases: []string{"c"},
		EnvVars: prefixEnvVar("PROJECT"),
		Usage:   "Project file (.yaml or .toml); defaults to " + defaultProjectFile + " when present",
	}
	OutputPath = &cli.StringFlag{
		Name:    "output-path",
		Aliases: []string{"o"},
		Value:   "vunit_out",
		EnvVars: prefixEnvVar("OUTPUT_PATH"),
		Usage:   "Directory for compiled libraries and test output",
	}
	List = &cli.BoolFlag{
		Name:    "list",
		Aliases: []string{"l"},
		Usage:   "List the selected tests and exit",
	}
	Files = &cli.BoolFlag{
		Name:  "files",
		Usage: "List the registered source files and exit",
	}
	CompileOnly = &cli.BoolFlag{
		Name:  "compile",
		Usage: "Compile the project without running tests",
	}
	Clean = &cli.BoolFlag{
		Name:  "clean",
		Usage: "Remove compiled libraries and test output before running",
	}
	NumThreads = &cli.IntFlag{
		Name:    "num-threads",
		Aliases: []string{"p"},
		Value:   1,
		EnvVars: prefixEnvVar("NUM_THREADS"),
		Usage:   "Number of tests run in parallel",
	}
	GUI = &cli.BoolFlag{
		Name:    "gui",
		Aliases: []string{"g"},
		Usage:   "Open the simulator GUI, runs one test at a time",
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Print simulator output while tests run",
	}
	Exit0 = &cli.BoolFlag{
		Name:  "exit-0",
		Usage: "Exit with 0 even if tests failed",
	}
	XUnitXML = &cli.StringFlag{
		Name:    "xunit-xml",
		Aliases: []string{"x"},
		EnvVars: prefixEnvVar("XUNIT_XML"),
		Usage:   "Write an xUnit report to this file",
	}
	MetricsFile = &cli.StringFlag{
		Name:    "metrics-file",
		EnvVars: prefixEnvVar("METRICS_FILE"),
		Usage:   "Write Prometheus textfile metrics to this file",
	}
	Coverage = &cli.BoolFlag{
		Name:    "coverage",
		Value:   true,
		EnvVars: prefixEnvVar("COVERAGE"),
		Usage:   "Collect gcov coverage when GHDL uses the GCC backend",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		EnvVars: prefixEnvVar("TIMEOUT"),
		Usage:   "Time limit per test, 0 for none",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVar("LOG_LEVEL"),
		Usage:   "Log level (" + strings.Join(core.LogLevels, ", ") + ")",
	}
	LogFormat = &cli.StringFlag{
		Name:    "log-format",
		Value:   "console",
		EnvVars: prefixEnvVar("LOG_FORMAT"),
		Usage:   "Log format (" + strings.Join(core.LogFormats, ", ") + ")",
	}
)

var appFlags = []cli.Flag{
	ProjectFile,
	OutputPath,
	List,
	Files,
	CompileOnly,
	Clean,
	NumThreads,
	GUI,
	Verbose,
	Exit0,
	XUnitXML,
	MetricsFile,
	Coverage,
	Timeout,
	LogLevel,
	LogFormat,
}

// Flags returns the application flags followed by the registered build flags.
func Flags() []cli.Flag {
	return append(append([]cli.Flag{}, appFlags...), core.CLIFlags()...)
}
