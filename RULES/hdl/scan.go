package hdl

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

type UnitKind string

const (
	UnitEntity        UnitKind = "entity"
	UnitArchitecture  UnitKind = "architecture"
	UnitPackage       UnitKind = "package"
	UnitPackageBody   UnitKind = "package body"
	UnitContext       UnitKind = "context"
	UnitConfiguration UnitKind = "configuration"
)

// DesignUnit is a VHDL design unit provided by a source file.
type DesignUnit struct {
	Kind UnitKind
	Name string
	// Of is the entity of an architecture or configuration.
	Of string
	// Generics holds the lower-case generic section of an entity.
	Generics string
}

// unitRef references a primary unit in a library. An empty library means
// the library of the referencing file.
type unitRef struct {
	Library string
	Name    string
}

var (
	commentRe       = regexp.MustCompile(`--[^\n]*`)
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	entityRe        = regexp.MustCompile(`(?m)^\s*entity\s+(\w+)\s+is\b`)
	architectureRe  = regexp.MustCompile(`\barchitecture\s+(\w+)\s+of\s+(\w+)\s+is\b`)
	packageRe       = regexp.MustCompile(`(?m)^\s*package\s+(\w+)\s+is\b`)
	packageBodyRe   = regexp.MustCompile(`\bpackage\s+body\s+(\w+)\s+is\b`)
	contextRe       = regexp.MustCompile(`(?m)^\s*context\s+(\w+)\s+is\b`)
	configurationRe = regexp.MustCompile(`\bconfiguration\s+(\w+)\s+of\s+(\w+)\s+is\b`)
	useClauseRe     = regexp.MustCompile(`\buse\s+([^;]+);`)
	selectedNameRe  = regexp.MustCompile(`^\s*(\w+)\.(\w+)`)
	entityInstRe    = regexp.MustCompile(`\bentity\s+(\w+)\.(\w+)`)
	contextRefRe    = regexp.MustCompile(`\bcontext\s+(\w+)\.(\w+)\s*;`)
	testCaseRe      = regexp.MustCompile(`(?i)\brun\s*\(\s*"([^"]+)"\s*\)`)
	entityHeaderRe  = `(?s)\bentity\s+%s\s+is(.*?)\bend\b`
)

func stripComments(text string) string {
	text = blockCommentRe.ReplaceAllString(text, "")
	return commentRe.ReplaceAllString(text, "")
}

// scan reads the file and records the design units it provides, the units it
// depends on and the test cases it contains. Verilog files are not scanned.
func (f *SourceFile) scan() error {
	if !IsVhdl(f.Path.Relative()) {
		return nil
	}
	data, err := os.ReadFile(f.Path.Absolute())
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", f.Path.Relative())
	}
	code := stripComments(string(data))
	f.units, f.deps = scanVhdl(strings.ToLower(code))
	f.tests = scanTestCases(code)
	return nil
}

func scanVhdl(text string) ([]DesignUnit, []unitRef) {
	units := []DesignUnit{}
	deps := []unitRef{}

	for _, m := range entityRe.FindAllStringSubmatch(text, -1) {
		unit := DesignUnit{Kind: UnitEntity, Name: m[1]}
		if header := regexp.MustCompile(fmt.Sprintf(entityHeaderRe, regexp.QuoteMeta(m[1]))).FindStringSubmatch(text); header != nil {
			unit.Generics = header[1]
		}
		units = append(units, unit)
	}
	for _, m := range architectureRe.FindAllStringSubmatch(text, -1) {
		units = append(units, DesignUnit{Kind: UnitArchitecture, Name: m[1], Of: m[2]})
		deps = append(deps, unitRef{Name: m[2]})
	}
	for _, m := range packageRe.FindAllStringSubmatch(text, -1) {
		units = append(units, DesignUnit{Kind: UnitPackage, Name: m[1]})
	}
	for _, m := range packageBodyRe.FindAllStringSubmatch(text, -1) {
		units = append(units, DesignUnit{Kind: UnitPackageBody, Name: m[1]})
		deps = append(deps, unitRef{Name: m[1]})
	}
	for _, m := range contextRe.FindAllStringSubmatch(text, -1) {
		units = append(units, DesignUnit{Kind: UnitContext, Name: m[1]})
	}
	for _, m := range configurationRe.FindAllStringSubmatch(text, -1) {
		units = append(units, DesignUnit{Kind: UnitConfiguration, Name: m[1], Of: m[2]})
		deps = append(deps, unitRef{Name: m[2]})
	}

	for _, m := range useClauseRe.FindAllStringSubmatch(text, -1) {
		for _, name := range strings.Split(m[1], ",") {
			if sel := selectedNameRe.FindStringSubmatch(name); sel != nil {
				deps = append(deps, ref(sel[1], sel[2]))
			}
		}
	}
	for _, m := range entityInstRe.FindAllStringSubmatch(text, -1) {
		deps = append(deps, ref(m[1], m[2]))
	}
	for _, m := range contextRefRe.FindAllStringSubmatch(text, -1) {
		deps = append(deps, ref(m[1], m[2]))
	}

	return units, deps
}

func ref(library, name string) unitRef {
	if library == "work" {
		library = ""
	}
	return unitRef{Library: library, Name: name}
}

func scanTestCases(text string) []string {
	tests := []string{}
	seen := map[string]bool{}
	for _, m := range testCaseRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			tests = append(tests, m[1])
		}
	}
	return tests
}

// Units returns the design units provided by the file.
func (f *SourceFile) Units() []DesignUnit {
	return f.units
}
