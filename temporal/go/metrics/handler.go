// Package metrics reports Temporal SDK client metrics through metrics2.
package metrics

import (
	"sync"
	"time"

	"go.skia.org/alertgroups/go/metrics2"
	"go.temporal.io/sdk/client"
)

// reportedTags are the only tag keys reported. Every metric carries all of
// them, with "" for tags the SDK didn't set, so that a metric name always has
// the same label set.
var reportedTags = []string{"namespace", "task_queue", "operation", "workflow_type", "activity_type"}

type metricsHandler struct {
	client   metrics2.Client
	mutex    sync.Mutex
	tags     map[string]string
	counters map[string]client.MetricsCounter
	gauges   map[string]client.MetricsGauge
	timers   map[string]client.MetricsTimer
}

func normalize(tags map[string]string) map[string]string {
	ret := make(map[string]string, len(reportedTags))
	for _, k := range reportedTags {
		ret[k] = tags[k]
	}
	return ret
}

// NewMetricsHandler returns a new handler that implements Temporal's
// MetricsHandler. If c is nil the default metrics2 client is used.
func NewMetricsHandler(tags map[string]string, c metrics2.Client) *metricsHandler {
	if c == nil {
		c = metrics2.GetDefaultClient()
	}
	return &metricsHandler{
		client:   c,
		tags:     normalize(tags),
		counters: map[string]client.MetricsCounter{},
		gauges:   map[string]client.MetricsGauge{},
		timers:   map[string]client.MetricsTimer{},
	}
}

// timer implements client.MetricsTimer using Float64SummaryMetric
type timer struct {
	metrics2.Float64SummaryMetric
}

func (t *timer) Record(v time.Duration) {
	t.Observe(v.Seconds())
}

// WithTags implements client.MetricsHandler. The new tags override the
// existing ones.
func (m *metricsHandler) WithTags(tags map[string]string) client.MetricsHandler {
	merged := map[string]string{}
	for k, v := range m.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return NewMetricsHandler(merged, m.client)
}

// Counter implements client.MetricsHandler.
func (m *metricsHandler) Counter(name string) client.MetricsCounter {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	c, ok := m.counters[name]
	if !ok {
		c = m.client.GetCounter(name, m.tags)
		m.counters[name] = c
	}
	return c
}

// Gauge implements client.MetricsHandler.
func (m *metricsHandler) Gauge(name string) client.MetricsGauge {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	g, ok := m.gauges[name]
	if !ok {
		g = m.client.GetFloat64Metric(name, m.tags)
		m.gauges[name] = g
	}
	return g
}

// Timer implements client.MetricsHandler.
func (m *metricsHandler) Timer(name string) client.MetricsTimer {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	t, ok := m.timers[name]
	if !ok {
		t = &timer{
			Float64SummaryMetric: m.client.GetFloat64SummaryMetric(name, m.tags),
		}
		m.timers[name] = t
	}
	return t
}

var _ client.MetricsHandler = (*metricsHandler)(nil)
