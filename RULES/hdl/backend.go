package hdl

import (
	"context"
	"regexp"

	"github.com/pkg/errors"

	"github.com/lrotava/stdcores/RULES/core"
)

// Backend is the code generator GHDL was built with.
type Backend string

const (
	BackendMcode   Backend = "mcode"
	BackendLLVM    Backend = "llvm"
	BackendGCC     Backend = "gcc"
	BackendUnknown Backend = "unknown"
)

// Coverage instrumentation flags for the GCC backend.
var (
	CoverageCompileFlags = []string{"-fprofile-arcs", "-ftest-coverage"}
	CoverageLinkFlags    = []string{"-Wl,-lgcov", "-Wl,--coverage"}
)

// SupportsCoverage reports whether simulations built with the backend write
// gcov data.
func (b Backend) SupportsCoverage() bool {
	return b == BackendGCC
}

// Executable reports whether elaboration produces a separate executable.
func (b Backend) Executable() bool {
	return b == BackendGCC || b == BackendLLVM
}

// BackendProbe is the outcome of querying GHDL for its backend. Err is set
// when GHDL could not be run or its output was not recognised.
type BackendProbe struct {
	Backend Backend
	Err     error
}

// SupportsCoverage is true only for a successful probe of the GCC backend.
func (p BackendProbe) SupportsCoverage() bool {
	return p.Err == nil && p.Backend.SupportsCoverage()
}

// Code generator lines of `ghdl --version`. Newer releases print the version
// of LLVM or GCC inside the line.
var backendMarkers = []struct {
	re      *regexp.Regexp
	backend Backend
}{
	{regexp.MustCompile(`(?i)mcode code generator`), BackendMcode},
	{regexp.MustCompile(`(?i)llvm (\d+\.\d+\.\d+ )?code generator`), BackendLLVM},
	{regexp.MustCompile(`(?i)gcc( \d+\.\d+\.\d+)? back-end code generator`), BackendGCC},
}

// ParseGhdlVersion classifies the output of `ghdl --version`.
func ParseGhdlVersion(output string) (Backend, error) {
	for _, m := range backendMarkers {
		if m.re.MatchString(output) {
			return m.backend, nil
		}
	}
	return BackendUnknown, errors.New("unrecognised ghdl version output")
}

// ProbeGhdlBackend runs `<binary> --version`. It never fails: problems are
// reported through BackendProbe.Err.
func ProbeGhdlBackend(ctx context.Context, runner core.CommandRunner, binary string) BackendProbe {
	result, err := runner.Run(ctx, core.Command{Name: binary, Args: []string{"--version"}})
	if err != nil {
		return BackendProbe{Backend: BackendUnknown, Err: err}
	}
	if result.ExitCode != 0 {
		return BackendProbe{
			Backend: BackendUnknown,
			Err:     errors.Errorf("%s --version exited with code %d", binary, result.ExitCode),
		}
	}
	backend, err := ParseGhdlVersion(string(result.Output))
	return BackendProbe{Backend: backend, Err: err}
}
