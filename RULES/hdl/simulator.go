package hdl

import (
	"context"
	"os"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/lrotava/stdcores/RULES/core"
)

const (
	SimulatorGhdl     = "ghdl"
	SimulatorModelsim = "modelsim"
)

// SimulatorEnvVar selects the simulator when no flag is given.
const SimulatorEnvVar = "VUNIT_SIMULATOR"

var SimulatorName = core.StringFlag{
	Name:        "simulator",
	Description: "HDL simulator to run the tests on",
	DefaultFn: func() string {
		return DetectSimulator(os.Getenv, exec.LookPath)
	},
	AllowedValues: []string{SimulatorGhdl, SimulatorModelsim},
}.Register()

// DetectSimulator picks a simulator from the environment variable, then from
// the executables found on PATH. GHDL is the fallback.
func DetectSimulator(getenv func(string) string, lookPath func(string) (string, error)) string {
	if name := getenv(SimulatorEnvVar); name != "" {
		return name
	}
	if _, err := lookPath("vsim"); err == nil {
		return SimulatorModelsim
	}
	return SimulatorGhdl
}

// SimulationRun describes one test simulation.
type SimulationRun struct {
	Test Test
	// OutputDir is the absolute test output directory.
	OutputDir string
	RunnerCfg string
	Options   Options
	GUI       bool
}

// Simulator turns libraries, source files and tests into simulator commands.
type Simulator interface {
	Name() string

	// Setup creates the library directories and mappings before compilation.
	Setup(ctx context.Context, runner core.CommandRunner, libs []*Library) error

	// CompileCommand returns the command compiling f into its library.
	CompileCommand(f *SourceFile) core.Command

	// SimulationCommands returns the commands running one test. The test
	// fails when any of them exits with a non-zero status.
	SimulationCommands(run SimulationRun) ([]core.Command, error)
}

// NewSimulator creates the simulator with the given name. The GHDL backend
// decides whether elaboration produces an executable.
func NewSimulator(name string, backend Backend) (Simulator, error) {
	switch name {
	case SimulatorGhdl:
		return &Ghdl{
			Binary:    GhdlBinary.Value(),
			Std:       GhdlStd.Value(),
			Backend:   backend,
			Flags:     splitFlags(GhdlExtraFlags.Value()),
			ElabFlags: splitFlags(GhdlExtraElabFlags.Value()),
			SimFlags:  splitFlags(GhdlExtraSimFlags.Value()),
		}, nil
	case SimulatorModelsim:
		return &Modelsim{
			Prefix:    ModelsimPrefix.Value(),
			VcomFlags: splitFlags(ModelsimExtraVcomFlags.Value()),
			VlogFlags: splitFlags(ModelsimExtraVlogFlags.Value()),
			VsimFlags: splitFlags(ModelsimExtraVsimFlags.Value()),
		}, nil
	}
	return nil, errors.Errorf("unknown simulator '%s'", name)
}
