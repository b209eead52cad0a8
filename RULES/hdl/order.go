package hdl

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrDependencyLoop is returned when source files depend on each other.
var ErrDependencyLoop = errors.New("dependency loop detected")

func unitKey(library, name string) string {
	return library + "." + name
}

// dependencies returns the files f depends on, in registration order.
func (f *SourceFile) dependencies(providers map[string]*SourceFile, index map[*SourceFile]int) []*SourceFile {
	seen := map[*SourceFile]bool{}
	deps := []*SourceFile{}
	for _, r := range f.deps {
		lib := r.Library
		if lib == "" {
			lib = f.Library.Name
		}
		dep, ok := providers[unitKey(lib, r.Name)]
		if !ok || dep == f || seen[dep] {
			continue
		}
		seen[dep] = true
		deps = append(deps, dep)
	}
	sort.SliceStable(deps, func(i, j int) bool { return index[deps[i]] < index[deps[j]] })
	return deps
}

func providerMap(files []*SourceFile) map[string]*SourceFile {
	providers := map[string]*SourceFile{}
	for _, f := range files {
		for _, unit := range f.units {
			switch unit.Kind {
			case UnitEntity, UnitPackage, UnitContext, UnitConfiguration:
				providers[unitKey(f.Library.Name, unit.Name)] = f
			}
		}
	}
	return providers
}

// CompileOrder sorts the project files so that every file comes after the
// files it depends on. Independent files keep their registration order.
func (p *Project) CompileOrder() ([]*SourceFile, error) {
	files := p.SourceFiles()
	index := map[*SourceFile]int{}
	for i, f := range files {
		index[f] = i
	}
	providers := providerMap(files)

	// 1 = visiting, 2 = done
	visited := map[*SourceFile]int{}
	order := []*SourceFile{}

	var visit func(f *SourceFile, stack []*SourceFile) error
	visit = func(f *SourceFile, stack []*SourceFile) error {
		path := append(append([]*SourceFile{}, stack...), f)
		switch visited[f] {
		case 2:
			return nil
		case 1:
			return errors.Wrapf(ErrDependencyLoop, "%s", loopDescription(path))
		}
		visited[f] = 1
		for _, dep := range f.dependencies(providers, index) {
			if err := visit(dep, path); err != nil {
				return err
			}
		}
		visited[f] = 2
		order = append(order, f)
		return nil
	}

	for _, f := range files {
		if err := visit(f, nil); err != nil {
			return nil, err
		}
	}

	// Verilog files are not scanned and go last.
	sort.SliceStable(order, func(i, j int) bool {
		return IsVhdl(order[i].Path.Relative()) && !IsVhdl(order[j].Path.Relative())
	})
	return order, nil
}

// Dependencies returns the files f depends on directly.
func (p *Project) Dependencies(f *SourceFile) []*SourceFile {
	files := p.SourceFiles()
	index := map[*SourceFile]int{}
	for i, file := range files {
		index[file] = i
	}
	return f.dependencies(providerMap(files), index)
}

func loopDescription(stack []*SourceFile) string {
	desc := ""
	for i, f := range stack {
		if i > 0 {
			desc += " -> "
		}
		desc += f.Library.Name + ":" + f.Path.Relative()
	}
	return desc
}
