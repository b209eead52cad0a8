package hdl

import (
	"github.com/pkg/errors"
)

// Compile options, set per library.
const (
	GhdlAnalysisFlags = "ghdl.a_flags"
	// GhdlFlags is the older name of GhdlAnalysisFlags.
	GhdlFlags         = "ghdl.flags"
	ModelsimVcomFlags = "modelsim.vcom_flags"
	ModelsimVlogFlags = "modelsim.vlog_flags"
)

// Simulation options, set for the whole project.
const (
	GhdlElabFlags          = "ghdl.elab_flags"
	GhdlSimFlags           = "ghdl.sim_flags"
	ModelsimVsimFlags      = "modelsim.vsim_flags"
	ModelsimInitFilesAfter = "modelsim.init_files.after_load"
)

var compileOptions = map[string]bool{
	GhdlAnalysisFlags: true,
	GhdlFlags:         true,
	ModelsimVcomFlags: true,
	ModelsimVlogFlags: true,
}

var simOptions = map[string]bool{
	GhdlElabFlags:          true,
	GhdlSimFlags:           true,
	ModelsimVsimFlags:      true,
	ModelsimInitFilesAfter: true,
}

// Options maps an option name to its list of values.
type Options map[string][]string

// Get returns the values of an option; GhdlAnalysisFlags also collects
// values given under GhdlFlags.
func (o Options) Get(name string) []string {
	values := append([]string{}, o[name]...)
	if name == GhdlAnalysisFlags {
		values = append(values, o[GhdlFlags]...)
	}
	return values
}

func (o Options) add(name string, values []string) {
	o[name] = append(o[name], values...)
}

func checkCompileOption(name string) error {
	if !compileOptions[name] {
		return errors.Errorf("unknown compile option '%s'", name)
	}
	return nil
}

func checkSimOption(name string) error {
	if !simOptions[name] {
		return errors.Errorf("unknown sim option '%s'", name)
	}
	return nil
}
