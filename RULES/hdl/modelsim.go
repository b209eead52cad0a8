package hdl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lrotava/stdcores/RULES/core"
)

// ModelsimPrefix points to the directory holding the ModelSim executables.
var ModelsimPrefix = core.StringFlag{
	Name:        "modelsim-prefix",
	Description: "Directory of the ModelSim executables, empty to use PATH",
}.Register()

// ModelsimExtraVcomFlags enables the user to specify additional flags for the 'vcom' command.
var ModelsimExtraVcomFlags = core.StringFlag{
	Name:        "modelsim-vcom-flags",
	Description: "Extra flags for the vcom command",
}.Register()

// ModelsimExtraVlogFlags enables the user to specify additional flags for the 'vlog' command.
var ModelsimExtraVlogFlags = core.StringFlag{
	Name:        "modelsim-vlog-flags",
	Description: "Extra flags for the vlog command",
}.Register()

// ModelsimExtraVsimFlags enables the user to specify additional flags for the 'vsim' command.
var ModelsimExtraVsimFlags = core.StringFlag{
	Name:        "modelsim-vsim-flags",
	Description: "Extra flags for the vsim command",
}.Register()

// Parameters of the do-file
type modelsimDoParams struct {
	Library   string
	Entity    string
	Arch      string
	VsimFlags []string
	RunnerCfg string
	InitFiles []string
	GUI       bool
}

// Do-file template
const modelsimDoTemplate = `
onerror {quit -code 1}
{{ if not .GUI }}
onbreak {quit -f}
{{ end }}
set StdArithNoWarnings 1
set NumericStdNoWarnings 1

vsim {{ join .VsimFlags " " }} {-g/{{ .Entity }}/runner_cfg={{ .RunnerCfg }}} {{ .Library }}.{{ .Entity }}{{ if .Arch }}({{ .Arch }}){{ end }}
{{ range .InitFiles }}
source {{ . }}
{{- end }}
{{ if not .GUI }}
run -all
quit -f
{{ end }}
`

// Modelsim runs tests with ModelSim or Questa. Libraries are mapped in a
// private modelsim.ini below the output directory. A batch simulation always
// quits; the results file decides whether the test passed.
type Modelsim struct {
	Prefix    string
	VcomFlags []string
	VlogFlags []string
	VsimFlags []string
}

var _ Simulator = (*Modelsim)(nil)

func (m *Modelsim) Name() string {
	return SimulatorModelsim
}

func (m *Modelsim) tool(name string) string {
	if m.Prefix == "" {
		return name
	}
	return filepath.Join(m.Prefix, name)
}

func modelsimIni() core.OutPath {
	return core.OutputPath("modelsim/modelsim.ini")
}

func modelsimLibraryDir(lib *Library) core.OutPath {
	return core.OutputPath("modelsim/libraries/" + lib.Name)
}

func (m *Modelsim) Setup(ctx context.Context, runner core.CommandRunner, libs []*Library) error {
	ini := modelsimIni()
	if err := os.MkdirAll(filepath.Dir(ini.Absolute()), 0755); err != nil {
		return errors.Wrap(err, "failed to create modelsim directory")
	}

	cmds := []core.Command{}
	if _, err := os.Stat(ini.Absolute()); os.IsNotExist(err) {
		// Copies the installation's modelsim.ini into the working directory.
		cmds = append(cmds, core.Command{Name: m.tool("vmap"), Args: []string{"-c"}, Dir: filepath.Dir(ini.Absolute())})
	}
	for _, lib := range libs {
		dir := modelsimLibraryDir(lib).Absolute()
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			cmds = append(cmds, core.Command{Name: m.tool("vlib"), Args: []string{"-unix", dir}})
		}
		cmds = append(cmds, core.Command{
			Name: m.tool("vmap"),
			Args: []string{"-modelsimini", ini.Absolute(), lib.Name, dir},
		})
	}

	for _, cmd := range cmds {
		result, err := runner.Run(ctx, cmd)
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			return &core.StepError{
				Descr:    fmt.Sprintf("%s %s", filepath.Base(cmd.Name), strings.Join(cmd.Args, " ")),
				ExitCode: result.ExitCode,
				Output:   string(result.Output),
			}
		}
	}
	return nil
}

func (m *Modelsim) CompileCommand(f *SourceFile) core.Command {
	lib := f.Library
	if IsVerilog(f.Path.Relative()) {
		args := []string{"-quiet", "-sv", "-modelsimini", modelsimIni().Absolute(), "-work", lib.Name}
		args = append(args, m.VlogFlags...)
		args = append(args, lib.CompileOptions.Get(ModelsimVlogFlags)...)
		args = append(args, f.Path.Absolute())
		return core.Command{Name: m.tool("vlog"), Args: args}
	}

	args := []string{"-quiet", "-2008", "-modelsimini", modelsimIni().Absolute(), "-work", lib.Name}
	args = append(args, m.VcomFlags...)
	args = append(args, lib.CompileOptions.Get(ModelsimVcomFlags)...)
	args = append(args, f.Path.Absolute())
	return core.Command{Name: m.tool("vcom"), Args: args}
}

func (m *Modelsim) SimulationCommands(run SimulationRun) ([]core.Command, error) {
	tb := run.Test.TestBench
	vsimFlags := append([]string{}, m.VsimFlags...)
	vsimFlags = append(vsimFlags, run.Options.Get(ModelsimVsimFlags)...)

	data := modelsimDoParams{
		Library:   tb.Library.Name,
		Entity:    tb.Entity,
		Arch:      tb.Architecture,
		VsimFlags: vsimFlags,
		RunnerCfg: run.RunnerCfg,
		InitFiles: run.Options.Get(ModelsimInitFilesAfter),
		GUI:       run.GUI,
	}
	script, err := core.CompileTemplate(modelsimDoTemplate, "modelsim-do", data)
	if err != nil {
		return nil, err
	}

	doFile := filepath.Join(run.OutputDir, "run.do")
	if err := os.WriteFile(doFile, []byte(script), 0644); err != nil {
		return nil, errors.Wrapf(err, "failed to write %s", doFile)
	}

	mode := "-c"
	if run.GUI {
		mode = "-gui"
	}
	return []core.Command{{
		Name: m.tool("vsim"),
		Args: []string{mode, "-modelsimini", modelsimIni().Absolute(), "-do", doFile},
	}}, nil
}
