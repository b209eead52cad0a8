// Package config loads the project description: which source trees form which
// HDL library, how coverage is collected and which flags are overridden.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Source is one file pattern registered into a library.
type Source struct {
	Pattern    string `yaml:"pattern" toml:"pattern"`
	AllowEmpty bool   `yaml:"allow_empty" toml:"allow_empty"`
}

// Library maps a set of source patterns to a logical library name.
type Library struct {
	Name    string   `yaml:"name" toml:"name"`
	Sources []Source `yaml:"sources" toml:"sources"`
}

type Coverage struct {
	// Libraries receive the coverage compile flags.
	Libraries    []string `yaml:"libraries" toml:"libraries"`
	CompileFlags []string `yaml:"compile_flags" toml:"compile_flags"`
	LinkFlags    []string `yaml:"link_flags" toml:"link_flags"`
	InfoFile     string   `yaml:"info_file" toml:"info_file"`
	HTMLDir      string   `yaml:"html_dir" toml:"html_dir"`
}

// Builtins selects the optional VUnit libraries compiled when a VUnit path
// is configured.
type Builtins struct {
	OSVVM                  bool `yaml:"osvvm" toml:"osvvm"`
	ArrayUtil              bool `yaml:"array_util" toml:"array_util"`
	VerificationComponents bool `yaml:"verification_components" toml:"verification_components"`
}

type Waveform struct {
	DoFile  string   `yaml:"do_file" toml:"do_file"`
	Content []string `yaml:"content" toml:"content"`
}

// Project is the content of a project file.
type Project struct {
	// Root is the directory source patterns are relative to. Relative roots
	// are resolved against the directory of the project file.
	Root      string            `yaml:"root" toml:"root"`
	Libraries []Library         `yaml:"libraries" toml:"libraries"`
	Builtins  Builtins          `yaml:"builtins" toml:"builtins"`
	Coverage  Coverage          `yaml:"coverage" toml:"coverage"`
	Waveform  Waveform          `yaml:"waveform" toml:"waveform"`
	Flags     map[string]string `yaml:"flags" toml:"flags"`
}

// Default returns the layout of the spi_axim testbench: the shared stdcores
// libraries three levels up and the testbench sources in the current
// directory.
func Default() *Project {
	return &Project{
		Root: ".",
		Libraries: []Library{
			{Name: "stdblocks", Sources: []Source{
				{Pattern: "../../../stdblocks/sync_lib/*.vhd"},
			}},
			{Name: "stdcores", Sources: []Source{
				{Pattern: "../../../stdcores/*/*.vhd"},
			}},
			{Name: "expert", Sources: []Source{
				{Pattern: "../../../stdexpert/src/*.vhd"},
			}},
			{Name: "avl_utils_lib", Sources: []Source{
				{Pattern: "../../../avl_packages/src/*.vhd", AllowEmpty: true},
				{Pattern: "../../../stdexpert/src/*.vhd"},
				{Pattern: "../../../avl_clock_utils/src/*_pkg.vhd"},
			}},
			{Name: "src_lib", Sources: []Source{
				{Pattern: "../../../avl_clock_utils/src/*.vhd"},
			}},
			{Name: "avl_sim_lib", Sources: []Source{
				{Pattern: "../../../avl_simulators/src/*.vhd", AllowEmpty: true},
			}},
			{Name: "tb_lib", Sources: []Source{
				{Pattern: "*.vhd"},
			}},
		},
		Builtins: Builtins{
			OSVVM:                  true,
			ArrayUtil:              true,
			VerificationComponents: true,
		},
		Coverage: Coverage{
			Libraries:    []string{"expert", "tb_lib"},
			CompileFlags: []string{"-fprofile-arcs", "-ftest-coverage"},
			LinkFlags:    []string{"-Wl,-lgcov", "-Wl,--coverage"},
			InfoFile:     "code_coverage.info",
			HTMLDir:      "cc_html",
		},
		Waveform: Waveform{
			DoFile:  "modelsim.do",
			Content: []string{"add wave * ", "log -r /*", "vcd file", "vcd add -r /*"},
		},
		Flags: map[string]string{},
	}
}

// Load reads a project file. The format is chosen by extension: .toml for
// TOML, anything else is parsed as YAML. Fields left out keep the values of
// Default. Libraries given in the file replace the default list.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read project file")
	}

	project := Default()
	project.Libraries = nil
	project.Coverage.Libraries = nil

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(project)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Errorf("unknown key '%s' in %s", undecoded[0], path)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(project); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
	}

	// Custom library lists get no instrumented library unless named.
	if len(project.Libraries) == 0 {
		project.Libraries = Default().Libraries
		if project.Coverage.Libraries == nil {
			project.Coverage.Libraries = Default().Coverage.Libraries
		}
	}
	if !filepath.IsAbs(project.Root) {
		project.Root = filepath.Join(filepath.Dir(path), project.Root)
	}
	if project.Flags == nil {
		project.Flags = map[string]string{}
	}

	if err := project.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid project file %s", path)
	}
	return project, nil
}

// Validate checks the project for duplicate, empty or reserved library names
// and coverage libraries that are never registered.
func (p *Project) Validate() error {
	if p.Builtins.VerificationComponents && !p.Builtins.OSVVM {
		return errors.New("builtin verification_components require osvvm")
	}
	reserved := map[string]bool{"vunit_lib": true, "osvvm": p.Builtins.OSVVM}
	seen := map[string]bool{}
	for _, lib := range p.Libraries {
		if lib.Name == "" {
			return errors.New("library without name")
		}
		if reserved[strings.ToLower(lib.Name)] {
			return errors.Errorf("library name '%s' is reserved for the VUnit builtins", lib.Name)
		}
		if seen[strings.ToLower(lib.Name)] {
			return errors.Errorf("library '%s' registered twice", lib.Name)
		}
		seen[strings.ToLower(lib.Name)] = true
		for _, src := range lib.Sources {
			if src.Pattern == "" {
				return errors.Errorf("library '%s' has a source without pattern", lib.Name)
			}
		}
	}
	for _, name := range p.Coverage.Libraries {
		if !seen[strings.ToLower(name)] {
			return errors.Errorf("coverage library '%s' is not registered", name)
		}
	}
	if p.Coverage.InfoFile == "" || p.Coverage.HTMLDir == "" {
		return errors.New("coverage info_file and html_dir must be set")
	}
	return nil
}
