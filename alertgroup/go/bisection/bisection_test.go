package bisection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.skia.org/alertgroups/go/httputils"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	s := httptest.NewServer(h)
	t.Cleanup(s.Close)
	return newWithClient(httputils.DefaultClientConfig().WithoutRetries().Client(), s.URL, 0)
}

func request() *JobRequest {
	return &JobRequest{
		Benchmark:      "speedometer2",
		Bot:            "linux-perf",
		Measurement:    "RunsPerMinute",
		StartGitHash:   "aaa",
		EndGitHash:     "bbb",
		Target:         "performance_test_suite",
		Project:        "chromium",
		BugID:          12,
		ComparisonMode: "performance",
		Tags:           map[string]string{"source": SourceSkia},
	}
}

func TestNewJob_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/new", r.URL.Path)
		var m map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		assert.Equal(t, "linux-perf", m["configuration"])
		assert.NotContains(t, m, "comparison_magnitude")
		_, _ = w.Write([]byte(`{"jobId": "job1", "jobUrl": "https://pinpoint/job/job1"}`))
	})
	id, err := c.NewJob(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "job1", id)
}

func TestNewJob_ClientError_IsInvalidRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad bot", http.StatusBadRequest)
	})
	_, err := c.NewJob(context.Background(), request())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestNewJob_ErrorInBody_IsInvalidRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "no builds"}`))
	})
	_, err := c.NewJob(context.Background(), request())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Contains(t, err.Error(), "no builds")
}

func TestNewJob_ServerError_IsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := c.NewJob(context.Background(), request())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidRequest))
}

func TestNewJob_CancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not be called")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.NewJob(ctx, request())
	require.Error(t, err)
}
