// Package bisection starts Pinpoint bisection jobs.
package bisection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.skia.org/alertgroups/go/httputils"
	"go.skia.org/alertgroups/go/metrics2"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sklog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// ErrInvalidRequest is returned when the bisection service rejects the job.
// Retrying the same request will not succeed.
var ErrInvalidRequest = errors.New("invalid bisection request")

// SourceSkia marks jobs that come from Skia Perf anomalies. Pinpoint ignores
// the comparison magnitude for these.
const SourceSkia = "skia"

// JobRequest describes a bisection over a revision range.
type JobRequest struct {
	Benchmark   string `json:"benchmark"`
	Bot         string `json:"configuration"`
	Story       string `json:"story,omitempty"`
	Measurement string `json:"chart"`
	Statistic   string `json:"statistic,omitempty"`

	StartGitHash string `json:"start_git_hash"`
	EndGitHash   string `json:"end_git_hash"`

	// Target is the isolate target to build, e.g. performance_test_suite.
	Target string `json:"target"`

	Project string `json:"project"`
	BugID   int64  `json:"bug_id"`

	ComparisonMode      string   `json:"comparison_mode"`
	ComparisonMagnitude *float64 `json:"comparison_magnitude,omitempty"`

	User string            `json:"user,omitempty"`
	Tags map[string]string `json:"tags"`
}

// Client starts bisection jobs.
type Client interface {
	// NewJob starts a job and returns its id. ErrInvalidRequest means the
	// service rejected the request.
	NewJob(ctx context.Context, req *JobRequest) (string, error)
}

type jobResponse struct {
	JobID  string `json:"jobId"`
	JobURL string `json:"jobUrl"`
	Error  string `json:"error"`
}

// HTTPClient implements Client against the legacy Pinpoint API.
type HTTPClient struct {
	httpClient *http.Client
	url        string
	limiter    *rate.Limiter

	newJobCalled  metrics2.Counter
	newJobFailed  metrics2.Counter
	newJobInvalid metrics2.Counter
}

// New returns a new *HTTPClient for the Pinpoint instance at baseURL. At most
// one job is started per interval. A nil TokenSource makes unauthenticated
// requests.
func New(baseURL string, interval time.Duration, ts oauth2.TokenSource) *HTTPClient {
	return newWithClient(httputils.DefaultClientConfig().WithTokenSource(ts).Client(), baseURL, interval)
}

func newWithClient(c *http.Client, baseURL string, interval time.Duration) *HTTPClient {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &HTTPClient{
		httpClient:    c,
		url:           strings.TrimSuffix(baseURL, "/") + "/api/new",
		limiter:       rate.NewLimiter(limit, 1),
		newJobCalled:  metrics2.GetCounter("bisection_new_job_called"),
		newJobFailed:  metrics2.GetCounter("bisection_new_job_failed"),
		newJobInvalid: metrics2.GetCounter("bisection_new_job_invalid"),
	}
}

// NewJob implements Client.
func (c *HTTPClient) NewJob(ctx context.Context, req *JobRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", skerr.Wrapf(err, "waiting to start bisection")
	}
	c.newJobCalled.Inc(1)
	b, err := json.Marshal(req)
	if err != nil {
		return "", skerr.Wrapf(err, "Failed to create bisection request.")
	}
	resp, err := httputils.PostWithContext(ctx, c.httpClient, c.url, "application/json", bytes.NewReader(b))
	if err != nil {
		c.newJobFailed.Inc(1)
		return "", skerr.Wrapf(err, "Failed to get Pinpoint response")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.newJobFailed.Inc(1)
		return "", skerr.Wrapf(err, "Failed to read Pinpoint response")
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		c.newJobInvalid.Inc(1)
		return "", skerr.Wrapf(ErrInvalidRequest, "status %d: %s", resp.StatusCode, body)
	}
	if resp.StatusCode != http.StatusOK {
		c.newJobFailed.Inc(1)
		return "", skerr.Fmt("Pinpoint returned status code %d: %s", resp.StatusCode, body)
	}
	var jr jobResponse
	if err := json.Unmarshal(body, &jr); err != nil {
		c.newJobFailed.Inc(1)
		return "", skerr.Wrapf(err, "Could not unmarshal Pinpoint response")
	}
	if jr.Error != "" {
		c.newJobInvalid.Inc(1)
		return "", skerr.Wrapf(ErrInvalidRequest, "%s", jr.Error)
	}
	if jr.JobID == "" {
		c.newJobFailed.Inc(1)
		return "", skerr.Fmt("Pinpoint response has no job id: %s", body)
	}
	sklog.Infof("Started bisection %s for %s %s..%s", jr.JobID, req.Benchmark, req.StartGitHash, req.EndGitHash)
	return jr.JobID, nil
}

// Confirm HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
