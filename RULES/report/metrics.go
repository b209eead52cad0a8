package report

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lrotava/stdcores/RULES/hdl"
)

const MetricsNamespace = "tbrun"

// Metrics holds the collectors of one run on a private registry, so that a
// textfile only ever contains the metrics of that run.
type Metrics struct {
	registry *prometheus.Registry

	testsTotal      *prometheus.GaugeVec
	runDuration     prometheus.Gauge
	coverageEnabled prometheus.Gauge
	runInfo         *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		testsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_total",
			Help:      "Number of tests by result",
		}, []string{"result"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the compile and test run",
		}),
		coverageEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "coverage_enabled",
			Help:      "1 when gcov coverage was collected",
		}),
		runInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_info",
			Help:      "Identifies the run the metrics belong to",
		}, []string{"run_id", "simulator"}),
	}
	m.registry.MustRegister(m.testsTotal, m.runDuration, m.coverageEnabled, m.runInfo)
	return m
}

// Record sets every collector from the outcome of a run.
func (m *Metrics) Record(runID, simulator string, result hdl.RunResult, coverageEnabled bool) {
	m.testsTotal.WithLabelValues(string(hdl.StatusPass)).Set(float64(result.Passed()))
	m.testsTotal.WithLabelValues(string(hdl.StatusFail)).Set(float64(result.Failed()))
	m.testsTotal.WithLabelValues(string(hdl.StatusSkip)).Set(float64(result.Skipped()))
	m.runDuration.Set(result.Duration.Seconds())
	if coverageEnabled {
		m.coverageEnabled.Set(1)
	} else {
		m.coverageEnabled.Set(0)
	}
	m.runInfo.WithLabelValues(runID, simulator).Set(1)
}

// Registry exposes the collectors, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
