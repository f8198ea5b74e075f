// Package issuetracker is a client for the perf issue service, which files
// and updates the bugs for alert groups.
package issuetracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.skia.org/alertgroups/go/httputils"
	"go.skia.org/alertgroups/go/metrics2"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sklog"
	"golang.org/x/oauth2"
)

// Issue states.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Issue statuses the workflow reads or writes.
const (
	StatusUntriaged = "Untriaged"
	StatusAvailable = "Available"
	StatusAssigned  = "Assigned"
	StatusStarted   = "Started"
	StatusFixed     = "Fixed"
	StatusVerified  = "Verified"
	StatusWontFix   = "WontFix"
	StatusDuplicate = "Duplicate"
	StatusArchived  = "Archived"
)

var closedStatuses = map[string]bool{
	StatusFixed:     true,
	StatusVerified:  true,
	StatusWontFix:   true,
	StatusDuplicate: true,
	StatusArchived:  true,
}

// IsClosedStatus returns true if setting the status closes an issue.
func IsClosedStatus(status string) bool {
	return closedStatuses[status]
}

// ErrNotFound is returned when the issue doesn't exist.
var ErrNotFound = errors.New("issue not found")

// IssueRef points at an issue in a project.
type IssueRef struct {
	IssueID   int64  `json:"issue_id"`
	ProjectID string `json:"project_id"`
}

// Issue is a snapshot of a bug.
type Issue struct {
	ID         int64     `json:"id"`
	ProjectID  string    `json:"project_id"`
	State      string    `json:"state"`
	Status     string    `json:"status"`
	Labels     []string  `json:"labels"`
	Components []string  `json:"components"`
	MergedInto *IssueRef `json:"merged_into,omitempty"`
	Owner      string    `json:"owner,omitempty"`

	// Comments are not part of the issue response, they are fetched with
	// GetIssueComments and attached by the caller.
	Comments []*Comment `json:"-"`
}

// HasLabel returns true if the issue carries the label.
func (i *Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// IsClosed returns true if the issue is closed.
func (i *Issue) IsClosed() bool {
	return i.State == StateClosed
}

// CommentUpdates are the changes that were applied along with a comment.
type CommentUpdates struct {
	Status string   `json:"status,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// Comment on an issue, in chronological order.
type Comment struct {
	Author    string         `json:"author"`
	Comment   string         `json:"comment"`
	Updates   CommentUpdates `json:"updates"`
	Timestamp time.Time      `json:"timestamp"`
}

// PostIssueRequest files a new issue.
type PostIssueRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ProjectID   string   `json:"project_id"`
	Labels      []string `json:"labels"`
	Components  []string `json:"components"`
	CCs         []string `json:"cc"`
	Status      string   `json:"status,omitempty"`
	Owner       string   `json:"owner,omitempty"`
}

// PostIssueResponse is returned after filing an issue.
type PostIssueResponse struct {
	IssueID   int64  `json:"issue_id"`
	ProjectID string `json:"project_id"`
}

// IssueCommentRequest adds a comment to an issue and optionally changes it.
type IssueCommentRequest struct {
	IssueID    int64    `json:"issue_id"`
	ProjectID  string   `json:"project_id"`
	Comment    string   `json:"comment"`
	Title      string   `json:"title,omitempty"`
	Labels     []string `json:"labels,omitempty"`
	Components []string `json:"components,omitempty"`
	CCs        []string `json:"cc,omitempty"`
	Status     string   `json:"status,omitempty"`
	Owner      string   `json:"owner,omitempty"`
	SendEmail  bool     `json:"send_email"`
}

// Client files and updates issues.
type Client interface {
	// GetIssue returns the issue, or ErrNotFound.
	GetIssue(ctx context.Context, issueID int64, projectID string) (*Issue, error)

	// GetIssueComments returns the comments on the issue, oldest first.
	GetIssueComments(ctx context.Context, issueID int64, projectID string) ([]*Comment, error)

	// PostIssue files a new issue.
	PostIssue(ctx context.Context, req *PostIssueRequest) (*PostIssueResponse, error)

	// PostIssueComment comments on an existing issue.
	PostIssueComment(ctx context.Context, req *IssueCommentRequest) error
}

// HTTPClient implements Client against the perf issue service.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string

	getIssueCalled    metrics2.Counter
	getIssueFailed    metrics2.Counter
	getCommentsCalled metrics2.Counter
	getCommentsFailed metrics2.Counter
	postIssueCalled   metrics2.Counter
	postIssueFailed   metrics2.Counter
	postCommentCalled metrics2.Counter
	postCommentFailed metrics2.Counter
}

// New returns a new *HTTPClient that talks to the service at baseURL. A nil
// TokenSource makes unauthenticated requests.
func New(baseURL string, ts oauth2.TokenSource) *HTTPClient {
	return newWithClient(httputils.DefaultClientConfig().WithTokenSource(ts).Client(), baseURL)
}

func newWithClient(c *http.Client, baseURL string) *HTTPClient {
	return &HTTPClient{
		httpClient:        c,
		baseURL:           strings.TrimSuffix(baseURL, "/"),
		getIssueCalled:    metrics2.GetCounter("issuetracker_get_issue_called"),
		getIssueFailed:    metrics2.GetCounter("issuetracker_get_issue_failed"),
		getCommentsCalled: metrics2.GetCounter("issuetracker_get_comments_called"),
		getCommentsFailed: metrics2.GetCounter("issuetracker_get_comments_failed"),
		postIssueCalled:   metrics2.GetCounter("issuetracker_post_issue_called"),
		postIssueFailed:   metrics2.GetCounter("issuetracker_post_issue_failed"),
		postCommentCalled: metrics2.GetCounter("issuetracker_post_comment_called"),
		postCommentFailed: metrics2.GetCounter("issuetracker_post_comment_failed"),
	}
}

func (c *HTTPClient) issueURL(issueID int64, projectID string) string {
	return fmt.Sprintf("%s/issues/id/%d/project/%s", c.baseURL, issueID, url.PathEscape(projectID))
}

// do sends the request and decodes a JSON response into dst, if dst is
// non-nil.
func (c *HTTPClient) do(ctx context.Context, method, u string, body interface{}, dst interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return skerr.Wrapf(err, "encoding request")
		}
		reader = bytes.NewReader(b)
	}
	var resp *http.Response
	var err error
	if method == http.MethodPost {
		resp, err = httputils.PostWithContext(ctx, c.httpClient, u, "application/json", reader)
	} else {
		resp, err = httputils.GetWithContext(ctx, c.httpClient, u)
	}
	if err != nil {
		return skerr.Wrapf(err, "%s %s", method, u)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = httputils.ReadAndClose(resp.Body)
		return skerr.Wrapf(ErrNotFound, "%s %s", method, u)
	}
	if resp.StatusCode != http.StatusOK {
		return skerr.Fmt("Receive status %d from issue service for %s %s: %s", resp.StatusCode, method, u, httputils.ReadAndClose(resp.Body))
	}
	defer resp.Body.Close()
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return skerr.Wrapf(err, "Failed to parse issue service response body.")
	}
	return nil
}

// GetIssue implements Client.
func (c *HTTPClient) GetIssue(ctx context.Context, issueID int64, projectID string) (*Issue, error) {
	c.getIssueCalled.Inc(1)
	var issue Issue
	if err := c.do(ctx, http.MethodGet, c.issueURL(issueID, projectID), nil, &issue); err != nil {
		c.getIssueFailed.Inc(1)
		return nil, err
	}
	if issue.ProjectID == "" {
		issue.ProjectID = projectID
	}
	return &issue, nil
}

type commentsResponse struct {
	Comments []*Comment `json:"comments"`
}

// GetIssueComments implements Client.
func (c *HTTPClient) GetIssueComments(ctx context.Context, issueID int64, projectID string) ([]*Comment, error) {
	c.getCommentsCalled.Inc(1)
	var resp commentsResponse
	if err := c.do(ctx, http.MethodGet, c.issueURL(issueID, projectID)+"/comments", nil, &resp); err != nil {
		c.getCommentsFailed.Inc(1)
		return nil, err
	}
	return resp.Comments, nil
}

// PostIssue implements Client.
func (c *HTTPClient) PostIssue(ctx context.Context, req *PostIssueRequest) (*PostIssueResponse, error) {
	c.postIssueCalled.Inc(1)
	var resp PostIssueResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/issues", req, &resp); err != nil {
		c.postIssueFailed.Inc(1)
		return nil, err
	}
	if resp.IssueID == 0 {
		c.postIssueFailed.Inc(1)
		return nil, skerr.Fmt("Issue service returned no issue id for %q", req.Title)
	}
	if resp.ProjectID == "" {
		resp.ProjectID = req.ProjectID
	}
	sklog.Infof("Filed issue %s:%d: %s", resp.ProjectID, resp.IssueID, req.Title)
	return &resp, nil
}

// PostIssueComment implements Client.
func (c *HTTPClient) PostIssueComment(ctx context.Context, req *IssueCommentRequest) error {
	c.postCommentCalled.Inc(1)
	if err := c.do(ctx, http.MethodPost, c.issueURL(req.IssueID, req.ProjectID)+"/comments", req, nil); err != nil {
		c.postCommentFailed.Inc(1)
		return err
	}
	return nil
}

// Confirm HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
