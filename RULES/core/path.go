package core

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

var (
	sourceRoot = "."
	outputRoot = "vunit_out"
)

// SetSourceDir sets the directory source patterns are relative to.
func SetSourceDir(dir string) {
	sourceRoot = absolute(dir)
}

// SetOutputDir sets the directory all generated files are placed in.
func SetOutputDir(dir string) {
	outputRoot = absolute(dir)
}

func sourceDir() string {
	return absolute(sourceRoot)
}

func outputDir() string {
	return absolute(outputRoot)
}

func absolute(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return filepath.Clean(dir)
	}
	return filepath.Join(wd, dir)
}

// Path represents an on-disk path that is either an input to or an output from a BuildStep (or both).
type Path interface {
	Absolute() string
	Relative() string
	String() string

	relative() string
}

// inPath is a path relative to the project source directory.
type inPath struct {
	rel string
}

// Absolute returns the absolute path.
func (p inPath) Absolute() string {
	return path.Join(sourceDir(), p.rel)
}

// Relative returns the path relative to the project source directory.
func (p inPath) Relative() string {
	return p.rel
}

func (p inPath) String() string {
	return p.Absolute()
}

func (p inPath) relative() string {
	return p.rel
}

// OutPath is a path relative to the output directory.
type OutPath interface {
	Path

	WithExt(ext string) OutPath
	WithFilename(filename string) OutPath
	WithSuffix(suffix string) OutPath

	isOutPath()
}

type outPath struct {
	rel string
}

// Absolute returns the absolute path.
func (p outPath) Absolute() string {
	return path.Join(outputDir(), p.rel)
}

// Relative returns the path relative to the output directory.
func (p outPath) Relative() string {
	return p.rel
}

func (p outPath) String() string {
	return p.Absolute()
}

func (p outPath) relative() string {
	return p.rel
}

// isOutPath makes sure that inPath or Path cannot be used as OutPath.
func (p outPath) isOutPath() {}

// WithExt creates an OutPath with the same relative path and the given extension.
func (p outPath) WithExt(ext string) OutPath {
	oldExt := path.Ext(p.rel)
	return outPath{fmt.Sprintf("%s.%s", strings.TrimSuffix(p.rel, oldExt), ext)}
}

// WithFilename creates an OutPath with the same relative path and the given filename.
func (p outPath) WithFilename(filename string) OutPath {
	return outPath{path.Join(path.Dir(p.rel), filename)}
}

// WithSuffix creates an OutPath with the same relative path and the given suffix.
func (p outPath) WithSuffix(suffix string) OutPath {
	return outPath{p.rel + suffix}
}

// SourcePath returns a path relative to the source directory.
func SourcePath(p string) Path {
	return inPath{path.Clean(filepath.ToSlash(p))}
}

// OutputPath returns a path relative to the output directory.
func OutputPath(p string) OutPath {
	return outPath{path.Clean("/" + filepath.ToSlash(p))[1:]}
}

// Glob returns the source files matching pattern, which is interpreted
// relative to the source directory. Matches are sorted.
func Glob(pattern string) ([]Path, error) {
	abs := pattern
	if !filepath.IsAbs(pattern) {
		abs = filepath.Join(sourceDir(), pattern)
	}
	matches, err := filepath.Glob(abs)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	paths := []Path{}
	for _, match := range matches {
		if info, err := os.Stat(match); err != nil || info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(sourceDir(), match)
		if err != nil {
			return nil, err
		}
		paths = append(paths, SourcePath(rel))
	}
	return paths, nil
}
