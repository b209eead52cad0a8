package hdl

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lrotava/stdcores/RULES/core"
)

// ErrNoSourceFiles is returned when a pattern registered without allowEmpty
// does not match any file.
var ErrNoSourceFiles = errors.New("pattern did not match any file")

// SourceFile is one HDL file compiled into a library.
type SourceFile struct {
	Path    core.Path
	Library *Library

	units []DesignUnit
	deps  []unitRef
	tests []string
}

// Library is a named group of source files compiled into one HDL library.
type Library struct {
	Name           string
	Files          []*SourceFile
	CompileOptions Options
	// Builtin libraries come with the VUnit installation and hold no testbenches.
	Builtin bool

	project *Project
	seen    map[string]bool
}

// Project holds the libraries and options of one test run.
type Project struct {
	Libraries  []*Library
	SimOptions Options

	log       *zap.Logger
	runner    core.CommandRunner
	simulator Simulator
}

// NewProject creates an empty project. Every external command, compilation
// and simulation alike, goes through runner.
func NewProject(log *zap.Logger, runner core.CommandRunner, simulator Simulator) *Project {
	return &Project{
		SimOptions: Options{},
		log:        log,
		runner:     runner,
		simulator:  simulator,
	}
}

// Simulator returns the simulator the project runs on.
func (p *Project) Simulator() Simulator {
	return p.simulator
}

// AddLibrary registers a new, empty library. Library names are case insensitive.
func (p *Project) AddLibrary(name string) (*Library, error) {
	if p.Library(name) != nil {
		return nil, errors.Errorf("library '%s' already added", name)
	}
	lib := &Library{
		Name:           strings.ToLower(name),
		CompileOptions: Options{},
		project:        p,
		seen:           map[string]bool{},
	}
	p.Libraries = append(p.Libraries, lib)
	p.log.Debug("Added library", zap.String("library", lib.Name))
	return lib, nil
}

// Library returns the library with the given name or nil.
func (p *Project) Library(name string) *Library {
	name = strings.ToLower(name)
	for _, lib := range p.Libraries {
		if lib.Name == name {
			return lib
		}
	}
	return nil
}

// SetSimOption replaces the value of a simulation option.
func (p *Project) SetSimOption(name string, values []string) error {
	if err := checkSimOption(name); err != nil {
		return err
	}
	p.SimOptions[name] = append([]string{}, values...)
	return nil
}

// SourceFiles returns all registered files in registration order.
func (p *Project) SourceFiles() []*SourceFile {
	files := []*SourceFile{}
	for _, lib := range p.Libraries {
		files = append(files, lib.Files...)
	}
	return files
}

// AddSourceFiles adds the HDL files matching pattern to the library. Files
// already in the library are skipped. Unless allowEmpty is set, a pattern
// without matching HDL files is an error.
func (lib *Library) AddSourceFiles(pattern string, allowEmpty bool) ([]*SourceFile, error) {
	return lib.addFiles(pattern, allowEmpty, nil)
}

// addFiles adds the HDL files matching pattern for which keep, if set, returns true.
func (lib *Library) addFiles(pattern string, allowEmpty bool, keep func(path string) bool) ([]*SourceFile, error) {
	paths, err := core.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid pattern '%s'", pattern)
	}

	added := []*SourceFile{}
	matched := 0
	for _, p := range paths {
		if !IsRtl(p.Relative()) || (keep != nil && !keep(p.Relative())) {
			continue
		}
		matched++
		if lib.seen[p.Relative()] {
			continue
		}
		lib.seen[p.Relative()] = true

		file := &SourceFile{Path: p, Library: lib}
		if err := file.scan(); err != nil {
			return nil, err
		}
		lib.Files = append(lib.Files, file)
		added = append(added, file)
	}

	if matched == 0 && !allowEmpty {
		return nil, errors.Wrapf(ErrNoSourceFiles, "library '%s': '%s'", lib.Name, pattern)
	}

	lib.project.log.Debug("Added source files",
		zap.String("library", lib.Name),
		zap.String("pattern", pattern),
		zap.Int("files", len(added)))
	return added, nil
}

// AddCompileOption appends values to a compile option of the library.
func (lib *Library) AddCompileOption(name string, values []string) error {
	if err := checkCompileOption(name); err != nil {
		return err
	}
	lib.CompileOptions.add(name, values)
	return nil
}
