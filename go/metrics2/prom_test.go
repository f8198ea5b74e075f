package metrics2

import (
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "a_b_c", clean("a.b-c"))
}

func getPromClient() *promClient {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	return newPromClient()
}

func get(t *testing.T, metric string) string {
	req := httptest.NewRequest("GET", "/metrics", nil)
	rw := httptest.NewRecorder()
	promhttp.HandlerFor(prometheus.DefaultRegisterer.(*prometheus.Registry), promhttp.HandlerOpts{
		ErrorHandling:      promhttp.PanicOnError,
		DisableCompression: true,
	}).ServeHTTP(rw, req)
	resp := rw.Result()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	for _, s := range strings.Split(string(b), "\n") {
		if strings.HasPrefix(s, metric) {
			return strings.Split(s, " ")[1]
		}
	}
	return ""
}

func TestInt64(t *testing.T) {
	c := getPromClient()
	check := func(m Int64Metric, metric string, expect int64) {
		actual, err := strconv.ParseInt(get(t, metric), 10, 64)
		require.NoError(t, err)
		assert.Equal(t, expect, actual)
		assert.Equal(t, expect, m.Get())
	}
	g := c.GetInt64Metric("a.b", map[string]string{"some_key": "some-value"})
	require.NotNil(t, g)
	assert.NotNil(t, c.gaugeVecs["a_b [some_key]"])
	assert.NotNil(t, c.int64s["a_b-some_key-some-value"])
	check(g, "a_b{some_key=\"some-value\"}", 0)

	g.Update(3)
	check(g, "a_b{some_key=\"some-value\"}", 3)

	g2 := c.GetInt64Metric("a.b", map[string]string{"some_key": "some-new-value"})
	g2.Update(4)
	check(g, "a_b{some_key=\"some-value\"}", 3)
	check(g2, "a_b{some_key=\"some-new-value\"}", 4)

	// Same name and tags returns the same metric.
	g2 = c.GetInt64Metric("a.b", map[string]string{"some_key": "some-new-value"})
	check(g2, "a_b{some_key=\"some-new-value\"}", 4)
}

func TestCounter_SharedAcrossLookups(t *testing.T) {
	c := getPromClient()
	c.GetCounter("calls", map[string]string{"op": "x"}).Inc(2)
	c.GetCounter("calls", map[string]string{"op": "x"}).Inc(3)
	counter := c.GetCounter("calls", map[string]string{"op": "x"})
	assert.Equal(t, int64(5), counter.Get())
	assert.Equal(t, "5", get(t, "calls{op=\"x\"}"))

	counter.Dec(1)
	assert.Equal(t, int64(4), counter.Get())
	counter.Reset()
	assert.Equal(t, int64(0), counter.Get())
}

func TestFloat64(t *testing.T) {
	c := getPromClient()
	f := c.GetFloat64Metric("score", map[string]string{"test": "t"})
	f.Update(0.25)
	assert.Equal(t, 0.25, f.Get())
	assert.Equal(t, "0.25", get(t, "score{test=\"t\"}"))
}

func TestSummary(t *testing.T) {
	c := getPromClient()
	s := c.GetFloat64SummaryMetric("latency", map[string]string{"op": "y"})
	s.Observe(1)
	s.Observe(3)
	assert.Equal(t, "2", get(t, "latency_count{op=\"y\"}"))
	assert.Same(t, s, c.GetFloat64SummaryMetric("latency", map[string]string{"op": "y"}))
}
