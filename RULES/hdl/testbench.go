package hdl

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/lrotava/stdcores/RULES/core"
)

// AllTests names the single test of a testbench without test cases.
const AllTests = "all"

// resultsFile is written by the VHDL test runner into the test output path.
const resultsFile = "vunit_results"

// TestBench is an entity with a runner_cfg generic.
type TestBench struct {
	Library      *Library
	Entity       string
	Architecture string
	File         *SourceFile
	Tests        []string
}

// Name returns the qualified testbench name, lib.entity.
func (tb *TestBench) Name() string {
	return tb.Library.Name + "." + tb.Entity
}

// Test is one simulation: a test case of a testbench or the whole testbench.
type Test struct {
	TestBench *TestBench
	// Case is empty when the testbench has no test cases.
	Case string
}

func (t Test) Name() string {
	if t.Case == "" {
		return t.TestBench.Name() + "." + AllTests
	}
	return t.TestBench.Name() + "." + t.Case
}

func isTestBenchName(name string) bool {
	return strings.HasPrefix(name, "tb_") || strings.HasSuffix(name, "_tb")
}

var runnerCfgRe = regexp.MustCompile(`\brunner_cfg\b`)

// TestBenches returns the testbenches of all libraries in registration order.
func (p *Project) TestBenches() []*TestBench {
	benches := []*TestBench{}
	for _, lib := range p.Libraries {
		if lib.Builtin {
			continue
		}
		architectures := map[string]string{}
		for _, f := range lib.Files {
			for _, unit := range f.units {
				if unit.Kind == UnitArchitecture {
					architectures[unit.Of] = unit.Name
				}
			}
		}

		for _, f := range lib.Files {
			for _, unit := range f.units {
				if unit.Kind != UnitEntity || !isTestBenchName(unit.Name) {
					continue
				}
				if !runnerCfgRe.MatchString(unit.Generics) {
					continue
				}
				tb := &TestBench{
					Library:      lib,
					Entity:       unit.Name,
					Architecture: architectures[unit.Name],
					File:         f,
					Tests:        append([]string{}, f.tests...),
				}
				tb.Tests = append(tb.Tests, lib.architectureTests(f, unit.Name)...)
				benches = append(benches, tb)
			}
		}
	}
	return benches
}

// architectureTests returns test cases found in architecture files of entity
// other than the entity file itself.
func (lib *Library) architectureTests(entityFile *SourceFile, entity string) []string {
	seen := map[string]bool{}
	for _, name := range entityFile.tests {
		seen[name] = true
	}
	tests := []string{}
	for _, f := range lib.Files {
		if f == entityFile {
			continue
		}
		for _, unit := range f.units {
			if unit.Kind != UnitArchitecture || unit.Of != entity {
				continue
			}
			for _, name := range f.tests {
				if !seen[name] {
					seen[name] = true
					tests = append(tests, name)
				}
			}
		}
	}
	return tests
}

// Tests expands testbenches into tests.
func Tests(benches []*TestBench) []Test {
	tests := []Test{}
	for _, tb := range benches {
		if len(tb.Tests) == 0 {
			tests = append(tests, Test{TestBench: tb})
			continue
		}
		for _, name := range tb.Tests {
			tests = append(tests, Test{TestBench: tb, Case: name})
		}
	}
	return tests
}

// wildcardRe converts a shell-style pattern into an anchored regexp.
func wildcardRe(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// SelectTests keeps the tests whose name matches one of the patterns. Without
// patterns every test is selected. A pattern without a dot also matches the
// last name component, so "tb_foo*" selects "lib.tb_foo.all".
func SelectTests(tests []Test, patterns []string) ([]Test, error) {
	if len(patterns) == 0 {
		return tests, nil
	}
	res := []*regexp.Regexp{}
	for _, pattern := range patterns {
		candidates := []string{pattern}
		if !strings.Contains(pattern, ".") {
			candidates = append(candidates, "*."+pattern, "*."+pattern+".*")
		}
		for _, c := range candidates {
			re, err := wildcardRe(c)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid test pattern '%s'", pattern)
			}
			res = append(res, re)
		}
	}

	selected := []Test{}
	for _, t := range tests {
		for _, re := range res {
			if re.MatchString(t.Name()) {
				selected = append(selected, t)
				break
			}
		}
	}
	return selected, nil
}

func encodeTestCase(name string) string {
	return strings.ReplaceAll(name, ",", ",,")
}

func encodeValue(value string) string {
	return strings.ReplaceAll(strings.ReplaceAll(value, ":", "::"), ",", ",,")
}

// RunnerCfg encodes the runner_cfg generic passed to a testbench. Entries are
// sorted by key and separated by commas; commas and colons inside values are
// doubled.
func RunnerCfg(test Test, outputPath, tbPath string) string {
	enabled := ""
	if test.Case != "" {
		enabled = encodeTestCase(test.Case)
	}
	values := map[string]string{
		"active python runner": "true",
		"enabled_test_cases":   enabled,
		"output path":          strings.TrimSuffix(outputPath, "/") + "/",
		"tb path":              strings.TrimSuffix(tbPath, "/") + "/",
		"use_color":            "false",
	}
	entries := []string{}
	for _, k := range core.SortedKeys(values) {
		entries = append(entries, fmt.Sprintf("%s : %s", k, encodeValue(values[k])))
	}
	return strings.Join(entries, ",")
}

// TestStatus is the outcome of one test.
type TestStatus string

const (
	StatusPass TestStatus = "pass"
	StatusFail TestStatus = "fail"
	StatusSkip TestStatus = "skip"
)

// TestResult is the outcome of one simulation.
type TestResult struct {
	Name       string
	Status     TestStatus
	Duration   time.Duration
	OutputPath string
	// Output holds the simulator output when the test failed.
	Output string
}

// suiteDone reports whether the VHDL test runner finished cleanly, reading
// the results file in dir. A missing file means the runner never finished.
func suiteDone(dir string) (bool, error) {
	data, err := os.ReadFile(dir + "/" + resultsFile)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to read test results")
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "test_suite_done" {
			return true, nil
		}
	}
	return false, nil
}
