package hdl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lrotava/stdcores/RULES/core"
)

const pkgVhd = `
package util_pkg is
  constant WIDTH : natural := 8;
end package;
`

const dutVhd = `
library ieee;
use ieee.std_logic_1164.all;
use work.util_pkg.all;

entity dut is
  port (clk : in std_logic);
end entity;

architecture rtl of dut is
begin
end architecture;
`

const tbDutVhd = `
library vunit_lib;
context vunit_lib.vunit_context;
library lib;

entity tb_dut is
  generic (runner_cfg : string);
end entity;

architecture tb of tb_dut is
begin
  main : process
  begin
    test_runner_setup(runner, runner_cfg);
    while test_suite loop
      if run("test_pass") then
        check(true);
      elsif run("test_fail") then -- run("commented_out")
        check(false);
      end if;
    end loop;
    test_runner_cleanup(runner);
  end process;

  dut_inst : entity lib.dut port map (clk => open);
end architecture;
`

const tbPlainVhd = `
entity plain_tb is
  generic (
    runner_cfg : string
  );
end entity;

architecture sim of plain_tb is
begin
end architecture;
`

// fakeRunner answers commands without starting processes. Simulations write
// the results file unless the enabled test case is listed in fail.
type fakeRunner struct {
	mu    sync.Mutex
	calls []core.Command

	failCompile string
	fail        map[string]bool
	hang        map[string]bool
	noResults   map[string]bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		fail:      map[string]bool{},
		hang:      map[string]bool{},
		noResults: map[string]bool{},
	}
}

func (r *fakeRunner) Run(ctx context.Context, cmd core.Command) (core.CommandResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()

	if len(cmd.Args) > 0 && cmd.Args[0] == "-a" {
		if r.failCompile != "" && strings.HasSuffix(cmd.Args[len(cmd.Args)-1], r.failCompile) {
			return core.CommandResult{ExitCode: 1, Output: []byte("\x1b[31merror: syntax\x1b[0m\n")}, nil
		}
		return core.CommandResult{}, nil
	}

	if len(cmd.Args) > 0 && cmd.Args[0] == "--elab-run" {
		cfg := parseRunnerCfg(cmd.Args[len(cmd.Args)-1])
		name := cfg["enabled_test_cases"]
		if r.hang[name] {
			<-ctx.Done()
			return core.CommandResult{}, ctx.Err()
		}
		result := core.CommandResult{Output: []byte("pass " + name + "\n")}
		if r.fail[name] {
			result = core.CommandResult{ExitCode: 1, Output: []byte("\x1b[1mFAIL\x1b[0m " + name + "\n")}
		} else if !r.noResults[name] {
			results := "test_start:" + name + "\ntest_suite_done\n"
			if err := os.WriteFile(filepath.Join(cfg["output path"], resultsFile), []byte(results), 0644); err != nil {
				return core.CommandResult{}, err
			}
		}
		if cmd.Output != nil {
			_, _ = cmd.Output.Write(result.Output)
		}
		return result, nil
	}
	return core.CommandResult{}, nil
}

func (r *fakeRunner) count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if len(c.Args) > 0 && c.Args[0] == prefix {
			n++
		}
	}
	return n
}

// parseRunnerCfg decodes the -grunner_cfg= argument.
func parseRunnerCfg(arg string) map[string]string {
	value := strings.TrimPrefix(arg, "-grunner_cfg=")
	value = strings.ReplaceAll(value, ",,", "\x00")
	cfg := map[string]string{}
	for _, entry := range strings.Split(value, ",") {
		parts := strings.SplitN(entry, " : ", 2)
		if len(parts) != 2 {
			continue
		}
		v := strings.ReplaceAll(parts[1], "\x00", ",")
		cfg[parts[0]] = strings.ReplaceAll(v, "::", ":")
	}
	return cfg
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// newTestProject points the source and output directories at temporary
// directories and creates a GHDL project on a fake runner.
func newTestProject(t *testing.T, files map[string]string) (*Project, *fakeRunner) {
	t.Helper()
	src := t.TempDir()
	out := t.TempDir()
	core.SetSourceDir(src)
	core.SetOutputDir(out)
	t.Cleanup(func() {
		core.SetSourceDir(".")
		core.SetOutputDir("vunit_out")
	})
	writeFiles(t, src, files)

	runner := newFakeRunner()
	sim := &Ghdl{Binary: "ghdl", Std: "08", Backend: BackendMcode}
	return NewProject(zaptest.NewLogger(t), runner, sim), runner
}

func defaultFiles() map[string]string {
	return map[string]string{
		"src/dut.vhd":   dutVhd,
		"src/pkg.vhd":   pkgVhd,
		"src/legacy.v":  "module legacy; endmodule\n",
		"tb/tb_dut.vhd": tbDutVhd,
		"tb/plain.vhd":  tbPlainVhd,
		"tb/notes.txt":  "not hdl",
	}
}

// newDefaultProject registers src into "lib" and tb into "tb_lib".
func newDefaultProject(t *testing.T) (*Project, *fakeRunner) {
	t.Helper()
	p, runner := newTestProject(t, defaultFiles())
	lib, err := p.AddLibrary("lib")
	require.NoError(t, err)
	_, err = lib.AddSourceFiles("src/*", false)
	require.NoError(t, err)
	tbLib, err := p.AddLibrary("tb_lib")
	require.NoError(t, err)
	_, err = tbLib.AddSourceFiles("tb/*.vhd", false)
	require.NoError(t, err)
	return p, runner
}
