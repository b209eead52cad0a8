package report

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrotava/stdcores/RULES/hdl"
)

func sampleResult() hdl.RunResult {
	return hdl.RunResult{
		Duration:  2500 * time.Millisecond,
		Simulated: true,
		Tests: []hdl.TestResult{
			{Name: "tb_lib.tb_spi.test_read", Status: hdl.StatusPass, Duration: time.Second},
			{
				Name:       "tb_lib.tb_spi.test_write",
				Status:     hdl.StatusFail,
				Duration:   1200 * time.Millisecond,
				OutputPath: "/out/test_output/tb_lib.tb_spi.test_write/output.txt",
				Output:     "Error: check failed",
			},
			{Name: "tb_lib.tb_plain", Status: hdl.StatusSkip},
		},
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleResult())
	out := buf.String()

	assert.Contains(t, out, "Test Results (2.5s)")
	assert.Contains(t, out, "tb_lib.tb_spi.test_read")
	assert.Contains(t, out, "/out/test_output/tb_lib.tb_spi.test_write/output.txt")
	assert.Contains(t, out, "1 passed, 1 failed, 1 skipped")
	assert.Contains(t, out, "✗ fail")
}

func TestPrintSummaryCompileError(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, hdl.RunResult{CompileFailed: true})
	assert.Contains(t, buf.String(), "✗ compile error")
	assert.Contains(t, buf.String(), "0 passed, 0 failed, 0 skipped")
}

func TestXUnit(t *testing.T) {
	data, err := XUnit("run-1", sampleResult())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))

	var suite xunitTestSuite
	require.NoError(t, xml.Unmarshal(data, &suite))
	assert.Equal(t, "run-1", suite.ID)
	assert.Equal(t, 3, suite.Tests)
	assert.Equal(t, 1, suite.Failures)
	assert.Equal(t, 1, suite.Skipped)
	assert.Equal(t, "2.500", suite.Time)

	require.Len(t, suite.TestCases, 3)
	assert.Equal(t, "tb_lib.tb_spi", suite.TestCases[0].ClassName)
	assert.Equal(t, "test_read", suite.TestCases[0].Name)
	assert.Nil(t, suite.TestCases[0].Failure)
	require.NotNil(t, suite.TestCases[1].Failure)
	assert.Equal(t, "Error: check failed", suite.TestCases[1].Failure.Text)
	assert.Equal(t, "", suite.TestCases[2].ClassName)
	assert.Equal(t, "tb_lib.tb_plain", suite.TestCases[2].Name)
	assert.NotNil(t, suite.TestCases[2].Skipped)
}

func TestWriteXUnit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")
	require.NoError(t, WriteXUnit(path, "run-1", sampleResult()))
	assert.FileExists(t, path)

	assert.Error(t, WriteXUnit(filepath.Join(path, "nested.xml"), "run-1", sampleResult()))
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.Record("run-1", hdl.SimulatorGhdl, sampleResult(), true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.testsTotal.WithLabelValues("pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.testsTotal.WithLabelValues("fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.testsTotal.WithLabelValues("skip")))
	assert.Equal(t, 2.5, testutil.ToFloat64(m.runDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.coverageEnabled))

	count, err := testutil.GatherAndCount(m.Registry())
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestMetricsTextfile(t *testing.T) {
	m := NewMetrics()
	m.Record("run-1", hdl.SimulatorModelsim, hdl.RunResult{}, false)

	path := filepath.Join(t.TempDir(), "tbrun.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), `tbrun_tests_total{result="pass"} 0`)
	assert.Contains(t, string(data), "tbrun_coverage_enabled 0")
	assert.Contains(t, string(data), `tbrun_run_info{run_id="run-1",simulator="modelsim"} 1`)
}
