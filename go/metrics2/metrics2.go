// Package metrics2 is a thin layer over Prometheus for recording gauges,
// counters, and summaries. Metrics are looked up by name plus tags, and
// repeated lookups return the same underlying metric.
package metrics2

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.skia.org/alertgroups/go/sklog"
)

// Int64Metric is a metric which reports an int64 value.
type Int64Metric interface {
	Delete() error
	Get() int64
	Update(v int64)
}

// Float64Metric is a metric which reports a float64 value.
type Float64Metric interface {
	Delete() error
	Get() float64
	Update(v float64)
}

// Float64SummaryMetric is a metric which reports a summary of many float64 values.
type Float64SummaryMetric interface {
	Observe(v float64)
}

// Counter is used for tracking metrics which increment or decrement.
type Counter interface {
	Dec(i int64)
	Delete() error
	Get() int64
	Inc(i int64)
	Reset()
}

// Client represents a set of metrics.
type Client interface {
	GetCounter(name string, tags ...map[string]string) Counter
	GetFloat64Metric(name string, tags ...map[string]string) Float64Metric
	GetFloat64SummaryMetric(name string, tags ...map[string]string) Float64SummaryMetric
	GetInt64Metric(name string, tags ...map[string]string) Int64Metric
}

var defaultClient Client = newPromClient()

// GetDefaultClient returns the default Client.
func GetDefaultClient() Client {
	return defaultClient
}

// GetCounter returns a Counter instance using the default client.
func GetCounter(name string, tags ...map[string]string) Counter {
	return defaultClient.GetCounter(name, tags...)
}

// GetFloat64Metric returns a Float64Metric instance using the default client.
func GetFloat64Metric(name string, tags ...map[string]string) Float64Metric {
	return defaultClient.GetFloat64Metric(name, tags...)
}

// GetFloat64SummaryMetric returns a Float64SummaryMetric instance using the default client.
func GetFloat64SummaryMetric(name string, tags ...map[string]string) Float64SummaryMetric {
	return defaultClient.GetFloat64SummaryMetric(name, tags...)
}

// GetInt64Metric returns an Int64Metric instance using the default client.
func GetInt64Metric(name string, tags ...map[string]string) Int64Metric {
	return defaultClient.GetInt64Metric(name, tags...)
}

// InitPrometheus serves the default Prometheus registry at /metrics on the
// given port, e.g. ":20000". It does not block.
func InitPrometheus(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	go func() {
		sklog.Fatal(http.ListenAndServe(port, mux))
	}()
}
