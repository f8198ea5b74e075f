// Package verification runs sandwich verification, which re-runs a regression
// in Pinpoint to confirm that it reproduces before a bug is routed to owners.
package verification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.skia.org/alertgroups/go/metrics2"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sklog"
	tpr_metrics "go.skia.org/alertgroups/temporal/go/metrics"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
)

// WorkflowName is the registered name of the sandwich verification workflow.
const WorkflowName = "perf.sandwich_verification"

// Verification runs are expected to finish well within this.
const executionTimeout = 4 * time.Hour

// ErrNotFound is returned when the service has no record of an execution.
var ErrNotFound = errors.New("verification execution not found")

// State of an execution.
type State string

const (
	Active    State = "ACTIVE"
	Succeeded State = "SUCCEEDED"
	Failed    State = "FAILED"
	Cancelled State = "CANCELLED"
)

// ExecutionRequest describes the regression to verify.
type ExecutionRequest struct {
	AnomalyID    string `json:"anomaly_id"`
	TestPath     string `json:"test_path"`
	Benchmark    string `json:"benchmark"`
	Bot          string `json:"bot"`
	Story        string `json:"story"`
	Measurement  string `json:"measurement"`
	Statistic    string `json:"statistic"`
	StartGitHash string `json:"start_git_hash"`
	EndGitHash   string `json:"end_git_hash"`
	Target       string `json:"target"`
	Project      string `json:"project"`
	BugID        int64  `json:"bug_id"`
	Direction    string `json:"improvement_dir"`
}

// Result is the value returned by a completed verification workflow.
type Result struct {
	// Decision is true if the regression was reproduced.
	Decision bool `json:"decision"`
}

// Execution is the status of a verification run.
type Execution struct {
	ID    string
	State State

	// Decision is only meaningful when State is Succeeded.
	Decision bool
}

// Client starts and queries verification runs.
type Client interface {
	// CreateExecution starts a verification run and returns its id.
	CreateExecution(ctx context.Context, req *ExecutionRequest) (string, error)

	// GetExecution returns the status of a run, or ErrNotFound.
	GetExecution(ctx context.Context, id string) (*Execution, error)
}

// temporalClient is the subset of client.Client that is used.
type temporalClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	DescribeWorkflowExecution(ctx context.Context, workflowID, runID string) (*workflowservice.DescribeWorkflowExecutionResponse, error)
	GetWorkflow(ctx context.Context, workflowID string, runID string) client.WorkflowRun
}

// TemporalClient implements Client by running the verification workflow on
// Temporal.
type TemporalClient struct {
	client    temporalClient
	taskQueue string

	createCalled metrics2.Counter
	createFailed metrics2.Counter
	getCalled    metrics2.Counter
	getFailed    metrics2.Counter
}

// New connects to the Temporal frontend at hostPort. The returned func closes
// the connection.
func New(hostPort, namespace, taskQueue string) (*TemporalClient, func(), error) {
	c, err := client.Dial(client.Options{
		HostPort:       hostPort,
		Namespace:      namespace,
		MetricsHandler: tpr_metrics.NewMetricsHandler(map[string]string{"namespace": namespace}, nil),
	})
	if err != nil {
		return nil, nil, skerr.Wrapf(err, "Unable to connect to Temporal at %s.", hostPort)
	}
	return newWithClient(c, taskQueue), c.Close, nil
}

func newWithClient(c temporalClient, taskQueue string) *TemporalClient {
	return &TemporalClient{
		client:       c,
		taskQueue:    taskQueue,
		createCalled: metrics2.GetCounter("verification_create_called"),
		createFailed: metrics2.GetCounter("verification_create_failed"),
		getCalled:    metrics2.GetCounter("verification_get_called"),
		getFailed:    metrics2.GetCounter("verification_get_failed"),
	}
}

// CreateExecution implements Client.
func (t *TemporalClient) CreateExecution(ctx context.Context, req *ExecutionRequest) (string, error) {
	t.createCalled.Inc(1)
	wo := client.StartWorkflowOptions{
		ID:                       uuid.New().String(),
		TaskQueue:                t.taskQueue,
		WorkflowExecutionTimeout: executionTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			// A failed verification is reported, not retried.
			MaximumAttempts: 1,
		},
	}
	wf, err := t.client.ExecuteWorkflow(ctx, wo, WorkflowName, req)
	if err != nil {
		t.createFailed.Inc(1)
		return "", skerr.Wrapf(err, "Unable to start verification workflow for anomaly %s.", req.AnomalyID)
	}
	sklog.Infof("Verification workflow %s started for anomaly %s", wf.GetID(), req.AnomalyID)
	return wf.GetID(), nil
}

// GetExecution implements Client.
func (t *TemporalClient) GetExecution(ctx context.Context, id string) (*Execution, error) {
	t.getCalled.Inc(1)
	resp, err := t.client.DescribeWorkflowExecution(ctx, id, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return nil, skerr.Wrapf(ErrNotFound, "workflow %s", id)
		}
		t.getFailed.Inc(1)
		return nil, skerr.Wrapf(err, "describing workflow %s", id)
	}

	ret := &Execution{ID: id}
	switch resp.GetWorkflowExecutionInfo().GetStatus() {
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		var result Result
		if err := t.client.GetWorkflow(ctx, id, "").Get(ctx, &result); err != nil {
			t.getFailed.Inc(1)
			return nil, skerr.Wrapf(err, "Verification workflow completed, but failed to get results (id: %q)", id)
		}
		ret.State = Succeeded
		ret.Decision = result.Decision
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED,
		enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT,
		enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		ret.State = Failed
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED:
		ret.State = Cancelled
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING,
		enumspb.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW:
		ret.State = Active
	default:
		t.getFailed.Inc(1)
		return nil, skerr.Fmt("Verification workflow %s returned unknown status.", id)
	}
	return ret, nil
}

// Confirm TemporalClient implements Client.
var _ Client = (*TemporalClient)(nil)
