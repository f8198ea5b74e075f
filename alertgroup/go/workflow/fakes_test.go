package workflow

import (
	"context"
	"sync"

	"go.skia.org/alertgroups/alertgroup/go/issuetracker"
	"go.skia.org/alertgroups/go/skerr"
)

// fakeIssues is an in-memory issue tracker. Comments posted through the
// client are attributed to the service account.
type fakeIssues struct {
	mutex          sync.Mutex
	serviceAccount string
	nextID         int64
	issues         map[int64]*issuetracker.Issue
	posted         []*issuetracker.PostIssueRequest
	comments       []*issuetracker.IssueCommentRequest
}

func newFakeIssues(serviceAccount string) *fakeIssues {
	return &fakeIssues{
		serviceAccount: serviceAccount,
		nextID:         1000,
		issues:         map[int64]*issuetracker.Issue{},
	}
}

func copyIssue(i *issuetracker.Issue) *issuetracker.Issue {
	ret := *i
	ret.Labels = append([]string{}, i.Labels...)
	ret.Components = append([]string{}, i.Components...)
	ret.Comments = nil
	return &ret
}

func (f *fakeIssues) GetIssue(ctx context.Context, issueID int64, projectID string) (*issuetracker.Issue, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	issue, ok := f.issues[issueID]
	if !ok {
		return nil, skerr.Wrapf(issuetracker.ErrNotFound, "issue %d", issueID)
	}
	return copyIssue(issue), nil
}

func (f *fakeIssues) GetIssueComments(ctx context.Context, issueID int64, projectID string) ([]*issuetracker.Comment, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	issue, ok := f.issues[issueID]
	if !ok {
		return nil, skerr.Wrapf(issuetracker.ErrNotFound, "issue %d", issueID)
	}
	return append([]*issuetracker.Comment{}, issue.Comments...), nil
}

func (f *fakeIssues) PostIssue(ctx context.Context, req *issuetracker.PostIssueRequest) (*issuetracker.PostIssueResponse, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.posted = append(f.posted, req)
	f.nextID++
	f.issues[f.nextID] = &issuetracker.Issue{
		ID:         f.nextID,
		ProjectID:  req.ProjectID,
		State:      issuetracker.StateOpen,
		Status:     issuetracker.StatusUntriaged,
		Labels:     req.Labels,
		Components: req.Components,
	}
	return &issuetracker.PostIssueResponse{IssueID: f.nextID, ProjectID: req.ProjectID}, nil
}

func (f *fakeIssues) PostIssueComment(ctx context.Context, req *issuetracker.IssueCommentRequest) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	issue, ok := f.issues[req.IssueID]
	if !ok {
		return skerr.Wrapf(issuetracker.ErrNotFound, "issue %d", req.IssueID)
	}
	f.comments = append(f.comments, req)
	f.apply(issue, f.serviceAccount, req.Status, req.Labels, req.Comment)
	if req.Owner != "" {
		issue.Owner = req.Owner
	}
	return nil
}

// apply must be called with the mutex held.
func (f *fakeIssues) apply(issue *issuetracker.Issue, author, status string, labels []string, comment string) {
	if status != "" {
		issue.Status = status
		issue.State = issuetracker.StateOpen
		if issuetracker.IsClosedStatus(status) {
			issue.State = issuetracker.StateClosed
		}
	}
	issue.Labels = append(issue.Labels, labels...)
	issue.Comments = append(issue.Comments, &issuetracker.Comment{
		Author:  author,
		Comment: comment,
		Updates: issuetracker.CommentUpdates{Status: status, Labels: labels},
	})
}

// create files an issue directly, without recording it as posted.
func (f *fakeIssues) create() int64 {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.nextID++
	f.issues[f.nextID] = &issuetracker.Issue{
		ID:        f.nextID,
		ProjectID: "chromium",
		State:     issuetracker.StateOpen,
		Status:    issuetracker.StatusUntriaged,
	}
	return f.nextID
}

// humanUpdate changes an issue as someone other than the service account.
func (f *fakeIssues) humanUpdate(issueID int64, author, status string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.apply(f.issues[issueID], author, status, nil, "")
}

func (f *fakeIssues) markDuplicate(issueID, mergedInto int64) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.apply(f.issues[issueID], "human@example.com", issuetracker.StatusDuplicate, nil, "")
	f.issues[issueID].MergedInto = &issuetracker.IssueRef{IssueID: mergedInto, ProjectID: "chromium"}
}

func (f *fakeIssues) issue(issueID int64) *issuetracker.Issue {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return copyIssue(f.issues[issueID])
}

func (f *fakeIssues) postCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.posted)
}

// commentsOn returns the comments the workflow posted on the issue.
func (f *fakeIssues) commentsOn(issueID int64) []*issuetracker.IssueCommentRequest {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	ret := []*issuetracker.IssueCommentRequest{}
	for _, c := range f.comments {
		if c.IssueID == issueID {
			ret = append(ret, c)
		}
	}
	return ret
}

var _ issuetracker.Client = (*fakeIssues)(nil)
