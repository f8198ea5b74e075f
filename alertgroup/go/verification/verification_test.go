package verification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflow/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
)

func describeResponse(status enumspb.WorkflowExecutionStatus) *workflowservice.DescribeWorkflowExecutionResponse {
	return &workflowservice.DescribeWorkflowExecutionResponse{
		WorkflowExecutionInfo: &workflow.WorkflowExecutionInfo{
			Status: status,
		},
	}
}

func TestCreateExecution_StartsWorkflow(t *testing.T) {
	tc := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("wf-1")
	tc.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.TaskQueue == "queue" && o.ID != "" && o.RetryPolicy.MaximumAttempts == 1
	}), WorkflowName, mock.Anything).Return(run, nil)

	c := newWithClient(tc, "queue")
	id, err := c.CreateExecution(context.Background(), &ExecutionRequest{AnomalyID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, "wf-1", id)
}

func TestCreateExecution_Error(t *testing.T) {
	tc := &mocks.Client{}
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, WorkflowName, mock.Anything).Return(nil, errors.New("unavailable"))
	_, err := newWithClient(tc, "queue").CreateExecution(context.Background(), &ExecutionRequest{AnomalyID: "a1"})
	require.Error(t, err)
}

func TestGetExecution_StatusMapping(t *testing.T) {
	test := func(name string, status enumspb.WorkflowExecutionStatus, expected State) {
		t.Run(name, func(t *testing.T) {
			tc := &mocks.Client{}
			tc.On("DescribeWorkflowExecution", mock.Anything, "wf-1", "").Return(describeResponse(status), nil)
			e, err := newWithClient(tc, "queue").GetExecution(context.Background(), "wf-1")
			require.NoError(t, err)
			assert.Equal(t, expected, e.State)
		})
	}
	test("running", enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, Active)
	test("continued", enumspb.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW, Active)
	test("failed", enumspb.WORKFLOW_EXECUTION_STATUS_FAILED, Failed)
	test("timed out", enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT, Failed)
	test("terminated", enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED, Failed)
	test("canceled", enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED, Cancelled)
}

func TestGetExecution_Completed_ReturnsDecision(t *testing.T) {
	tc := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	tc.On("DescribeWorkflowExecution", mock.Anything, "wf-1", "").Return(describeResponse(enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED), nil)
	tc.On("GetWorkflow", mock.Anything, "wf-1", "").Return(run)
	run.On("Get", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*Result).Decision = true
	}).Return(nil)

	e, err := newWithClient(tc, "queue").GetExecution(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, Succeeded, e.State)
	assert.True(t, e.Decision)
}

func TestGetExecution_NotFound(t *testing.T) {
	tc := &mocks.Client{}
	tc.On("DescribeWorkflowExecution", mock.Anything, "wf-1", "").Return(nil, serviceerror.NewNotFound("gone"))
	_, err := newWithClient(tc, "queue").GetExecution(context.Background(), "wf-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetExecution_TransientError_IsNotNotFound(t *testing.T) {
	tc := &mocks.Client{}
	tc.On("DescribeWorkflowExecution", mock.Anything, "wf-1", "").Return(nil, serviceerror.NewUnavailable("later"))
	_, err := newWithClient(tc, "queue").GetExecution(context.Background(), "wf-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
