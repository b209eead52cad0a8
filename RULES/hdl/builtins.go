package hdl

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lrotava/stdcores/RULES/core"
)

const (
	VunitLibrary = "vunit_lib"
	OsvvmLibrary = "osvvm"
)

// VunitPath points to the VUnit installation whose vhdl/ directory holds the
// sources of the builtin libraries.
var VunitPath = core.StringFlag{
	Name:        "vunit-path",
	Description: "VUnit installation compiled into vunit_lib and osvvm, empty when they are precompiled",
}.Register()

// Builtins selects the optional parts of the VUnit installation. vunit_lib
// itself is always compiled when a VUnit path is given.
type Builtins struct {
	OSVVM                  bool
	ArrayUtil              bool
	VerificationComponents bool
}

type builtinSet struct {
	library  string
	patterns []string
	// Files whose name contains one of these are left out.
	exclude []string
}

func builtinSets(b Builtins) []builtinSet {
	vunit := builtinSet{
		library: VunitLibrary,
		patterns: []string{
			"vunit_context.vhd",
			"vunit_run_context.vhd",
			"core/src/*.vhd",
			"string_ops/src/*.vhd",
			"path/src/*.vhd",
			"logging/src/*.vhd",
			"check/src/*.vhd",
			"dictionary/src/*.vhd",
			"run/src/*.vhd",
			"data_types/src/*.vhd",
			"data_types/src/api/*.vhd",
		},
	}
	if b.ArrayUtil {
		vunit.patterns = append(vunit.patterns, "array/src/*.vhd")
	}
	if b.VerificationComponents {
		vunit.patterns = append(vunit.patterns,
			"com/src/*.vhd",
			"verification_components/src/*.vhd",
			"vc_context.vhd")
	}

	sets := []builtinSet{vunit}
	if b.OSVVM {
		sets = append(sets, builtinSet{
			library:  OsvvmLibrary,
			patterns: []string{"osvvm/*.vhd"},
			exclude:  []string{"2019", "_Aldec", "_BVUL"},
		})
	}
	return sets
}

var standardYears = map[string]int{
	"87":  1987,
	"93":  1993,
	"93c": 1993,
	"00":  2000,
	"02":  2002,
	"08":  2008,
}

// fitsStandard applies the file name conventions of the VUnit sources: a
// 2008p or 2019p suffix needs that standard or newer, a 93 suffix marks the
// variant for standards before 2008.
func fitsStandard(path, std string) bool {
	year, ok := standardYears[std]
	if !ok {
		year = 2008
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch {
	case strings.HasSuffix(name, "2019p"):
		return year >= 2019
	case strings.HasSuffix(name, "2008p"):
		return year >= 2008
	case strings.HasSuffix(name, "93"):
		return year < 2008
	}
	return true
}

func (p *Project) standard() string {
	if g, ok := p.simulator.(*Ghdl); ok && g.Std != "" {
		return g.Std
	}
	// ModelSim always compiles with -2008.
	return "08"
}

// AddBuiltins registers vunit_lib and the selected optional libraries from
// the VUnit installation at vunitPath. They have to be added before the user
// libraries. An empty path leaves them to the simulator's own library path.
func (p *Project) AddBuiltins(vunitPath string, b Builtins) error {
	if vunitPath == "" {
		p.log.Debug("No VUnit path given, builtin libraries must be precompiled")
		return nil
	}
	root, err := filepath.Abs(filepath.Join(vunitPath, "vhdl"))
	if err != nil {
		return errors.Wrapf(err, "invalid VUnit path '%s'", vunitPath)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return errors.Errorf("'%s' is not a VUnit installation, %s is missing", vunitPath, root)
	}

	std := p.standard()
	for _, set := range builtinSets(b) {
		lib := p.Library(set.library)
		if lib == nil {
			if lib, err = p.AddLibrary(set.library); err != nil {
				return err
			}
			lib.Builtin = true
		}
		keep := func(path string) bool {
			for _, ex := range set.exclude {
				if strings.Contains(filepath.Base(path), ex) {
					return false
				}
			}
			return fitsStandard(path, std)
		}
		for _, pattern := range set.patterns {
			if _, err := lib.addFiles(filepath.Join(root, pattern), true, keep); err != nil {
				return err
			}
		}
		if len(lib.Files) == 0 {
			return errors.Wrapf(ErrNoSourceFiles, "builtin library '%s' in %s", set.library, root)
		}
		p.log.Info("Added builtin library",
			zap.String("library", lib.Name),
			zap.Int("files", len(lib.Files)))
	}
	return nil
}
