package hdl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNames(tests []Test) []string {
	names := []string{}
	for _, t := range tests {
		names = append(names, t.Name())
	}
	return names
}

func TestTestBenches(t *testing.T) {
	p, _ := newDefaultProject(t)

	benches := p.TestBenches()
	require.Len(t, benches, 2)
	assert.Equal(t, "tb_lib.plain_tb", benches[0].Name())
	assert.Equal(t, "sim", benches[0].Architecture)
	assert.Equal(t, "tb_lib.tb_dut", benches[1].Name())
	assert.Equal(t, []string{"test_pass", "test_fail"}, benches[1].Tests)

	assert.Equal(t, []string{
		"tb_lib.plain_tb.all",
		"tb_lib.tb_dut.test_pass",
		"tb_lib.tb_dut.test_fail",
	}, testNames(Tests(benches)))
}

func TestTestBenchesRequireRunnerCfg(t *testing.T) {
	p, _ := newTestProject(t, map[string]string{
		"tb_nocfg.vhd": "entity tb_nocfg is\n  generic (width : natural);\nend entity;\n",
		"helper.vhd":   "entity helper is\n  generic (runner_cfg : string);\nend entity;\n",
	})
	lib, err := p.AddLibrary("lib")
	require.NoError(t, err)
	_, err = lib.AddSourceFiles("*.vhd", false)
	require.NoError(t, err)

	assert.Empty(t, p.TestBenches())
}

func TestTestCasesInSeparateArchitecture(t *testing.T) {
	p, _ := newTestProject(t, map[string]string{
		"tb_split.vhd":      "entity tb_split is\n  generic (runner_cfg : string);\nend entity;\n",
		"tb_split_arch.vhd": "architecture a of tb_split is\nbegin\n  if run(\"case_a\") then\n  end if;\nend architecture;\n",
	})
	lib, err := p.AddLibrary("lib")
	require.NoError(t, err)
	_, err = lib.AddSourceFiles("*.vhd", false)
	require.NoError(t, err)

	benches := p.TestBenches()
	require.Len(t, benches, 1)
	assert.Equal(t, "a", benches[0].Architecture)
	assert.Equal(t, []string{"case_a"}, benches[0].Tests)
}

func TestSelectTests(t *testing.T) {
	p, _ := newDefaultProject(t)
	tests := Tests(p.TestBenches())

	for _, tc := range []struct {
		patterns []string
		want     []string
	}{
		{nil, []string{"tb_lib.plain_tb.all", "tb_lib.tb_dut.test_pass", "tb_lib.tb_dut.test_fail"}},
		{[]string{"*"}, []string{"tb_lib.plain_tb.all", "tb_lib.tb_dut.test_pass", "tb_lib.tb_dut.test_fail"}},
		{[]string{"tb_lib.tb_dut.test_pass"}, []string{"tb_lib.tb_dut.test_pass"}},
		{[]string{"tb_dut"}, []string{"tb_lib.tb_dut.test_pass", "tb_lib.tb_dut.test_fail"}},
		{[]string{"*fail", "plain*"}, []string{"tb_lib.plain_tb.all", "tb_lib.tb_dut.test_fail"}},
		{[]string{"tb_lib.tb_dut.test_?ass"}, []string{"tb_lib.tb_dut.test_pass"}},
		{[]string{"nothing.matches"}, []string{}},
	} {
		selected, err := SelectTests(tests, tc.patterns)
		require.NoError(t, err)
		assert.Equal(t, tc.want, testNames(selected), "patterns %v", tc.patterns)
	}
}

func TestRunnerCfg(t *testing.T) {
	tb := &TestBench{Library: &Library{Name: "lib"}, Entity: "tb_x"}

	assert.Equal(t,
		"active python runner : true,enabled_test_cases : ,output path : /out/x/,tb path : /src/,use_color : false",
		RunnerCfg(Test{TestBench: tb}, "/out/x", "/src/"))

	assert.Equal(t,
		"active python runner : true,enabled_test_cases : a,,,,b,output path : C::/out/,tb path : /src/,use_color : false",
		RunnerCfg(Test{TestBench: tb, Case: "a,b"}, "C:/out/", "/src"))
}

func TestSuiteDone(t *testing.T) {
	dir := t.TempDir()

	done, err := suiteDone(dir)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, os.WriteFile(filepath.Join(dir, resultsFile), []byte("test_start:a\n"), 0644))
	done, err = suiteDone(dir)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, os.WriteFile(filepath.Join(dir, resultsFile), []byte("test_start:a\ntest_suite_done\n"), 0644))
	done, err = suiteDone(dir)
	require.NoError(t, err)
	assert.True(t, done)
}
