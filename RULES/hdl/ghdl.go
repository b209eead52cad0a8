package hdl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/lrotava/stdcores/RULES/core"
)

var GhdlBinary = core.StringFlag{
	Name:        "ghdl-binary",
	Description: "GHDL executable",
	DefaultFn: func() string {
		return "ghdl"
	},
}.Register()

var GhdlStd = core.StringFlag{
	Name:        "ghdl-std",
	Description: "VHDL standard passed to GHDL",
	DefaultFn: func() string {
		return "08"
	},
	AllowedValues: []string{"87", "93", "93c", "00", "02", "08"},
}.Register()

// GhdlExtraFlags enables the user to specify additional flags for 'ghdl -a'.
var GhdlExtraFlags = core.StringFlag{
	Name:        "ghdl-flags",
	Description: "Extra flags for the ghdl analysis command",
}.Register()

// GhdlExtraElabFlags enables the user to specify additional elaboration flags.
var GhdlExtraElabFlags = core.StringFlag{
	Name:        "ghdl-elab-flags",
	Description: "Extra flags for ghdl elaboration",
}.Register()

// GhdlExtraSimFlags enables the user to specify additional run time flags.
var GhdlExtraSimFlags = core.StringFlag{
	Name:        "ghdl-sim-flags",
	Description: "Extra flags passed to the simulation",
}.Register()

var GhdlWaveViewer = core.StringFlag{
	Name:        "ghdl-wave-viewer",
	Description: "Waveform viewer opened in GUI mode",
	DefaultFn: func() string {
		return "gtkwave"
	},
}.Register()

// Ghdl runs tests with GHDL, one work directory per library.
type Ghdl struct {
	Binary    string
	Std       string
	Backend   Backend
	Flags     []string
	ElabFlags []string
	SimFlags  []string

	libs []*Library
}

var _ Simulator = (*Ghdl)(nil)

func (g *Ghdl) Name() string {
	return SimulatorGhdl
}

func ghdlLibraryDir(lib *Library) core.OutPath {
	return core.OutputPath("ghdl/libraries/" + lib.Name)
}

func (g *Ghdl) Setup(ctx context.Context, runner core.CommandRunner, libs []*Library) error {
	g.libs = libs
	for _, lib := range libs {
		if err := os.MkdirAll(ghdlLibraryDir(lib).Absolute(), 0755); err != nil {
			return errors.Wrapf(err, "failed to create library directory for '%s'", lib.Name)
		}
	}
	return os.MkdirAll(core.OutputPath("ghdl/bin").Absolute(), 0755)
}

// commonFlags holds the flags shared by analysis and elaboration.
func (g *Ghdl) commonFlags(lib *Library) []string {
	flags := []string{
		"--std=" + g.Std,
		"--work=" + lib.Name,
		"--workdir=" + ghdlLibraryDir(lib).Absolute(),
	}
	for _, other := range g.libs {
		flags = append(flags, "-P"+ghdlLibraryDir(other).Absolute())
	}
	return flags
}

func (g *Ghdl) CompileCommand(f *SourceFile) core.Command {
	args := []string{"-a"}
	args = append(args, g.commonFlags(f.Library)...)
	args = append(args, g.Flags...)
	args = append(args, f.Library.CompileOptions.Get(GhdlAnalysisFlags)...)
	args = append(args, f.Path.Absolute())
	return core.Command{Name: g.Binary, Args: args}
}

func (g *Ghdl) SimulationCommands(run SimulationRun) ([]core.Command, error) {
	tb := run.Test.TestBench
	args := []string{"--elab-run"}
	args = append(args, g.commonFlags(tb.Library)...)
	args = append(args, g.ElabFlags...)
	args = append(args, run.Options.Get(GhdlElabFlags)...)
	if g.Backend.Executable() {
		// One executable per test, parallel cases of a testbench must not share it.
		bin := core.OutputPath("ghdl/bin/" + safeName(run.Test.Name()))
		args = append(args, "-o", bin.Absolute())
	}
	args = append(args, tb.Entity)
	if tb.Architecture != "" {
		args = append(args, tb.Architecture)
	}
	args = append(args, g.SimFlags...)
	args = append(args, run.Options.Get(GhdlSimFlags)...)

	wave := filepath.Join(run.OutputDir, "wave.ghw")
	if run.GUI {
		args = append(args, "--wave="+wave)
	}
	args = append(args, fmt.Sprintf("-grunner_cfg=%s", run.RunnerCfg))

	cmds := []core.Command{{Name: g.Binary, Args: args}}
	if run.GUI {
		cmds = append(cmds, core.Command{Name: GhdlWaveViewer.Value(), Args: []string{wave}})
	}
	return cmds, nil
}
