package workflow

import (
	"context"

	"go.skia.org/alertgroups/alertgroup/go/bugupdate"
	"go.skia.org/alertgroups/alertgroup/go/issuetracker"
	"go.skia.org/alertgroups/alertgroup/go/revision"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/skerr"
)

// processBug syncs the group with its bug. It returns true if the pass is
// over and the group should be committed right away.
func (p *pass) processBug(ctx context.Context) (bool, error) {
	issue := p.update.Issue
	merged := p.syncCanonicalGroup()
	if merged && !issue.IsClosed() {
		return false, skerr.Wrapf(ErrInvariantViolation, "group %s was merged into %s but bug %s is not closed", p.group.ID, p.group.CanonicalGroup, p.group.Bug)
	}

	if issue.IsClosed() {
		p.group.Status = types.Closed
	} else if p.group.Status == types.Closed {
		p.group.Status = types.Triaged
	}

	p.linkToBug(p.added)

	if p.group.CanonicalGroup != "" {
		p.processDuplicate(ctx, merged)
		return false, nil
	}

	regressions := filterRegressions(p.update.Anomalies)
	nonImprovements := 0
	for _, a := range p.update.Anomalies {
		if !a.IsImprovement {
			nonImprovements++
		}
	}
	if nonImprovements > 0 && len(regressions) == 0 && !issue.IsClosed() {
		if manuallyReopened(issue, p.cfg.ServiceAccount) {
			p.logf("all regressions recovered, but bug %s was reopened by hand", p.group.Bug)
			return false, nil
		}
		p.closeRecovered(ctx)
		return true, nil
	}

	newRegressions := p.newRegressions()
	if len(newRegressions) == 0 {
		return false, nil
	}
	if issue.IsClosed() && closedByServiceAccount(issue, p.cfg.ServiceAccount) && anyAutoBisect(newRegressions) {
		p.reopen(ctx, newRegressions)
	} else {
		p.postUpdate(ctx, newRegressions)
	}
	return true, nil
}

// syncCanonicalGroup updates the group's canonical group from the update and
// returns true if the group was just merged.
func (p *pass) syncCanonicalGroup() bool {
	c := p.update.CanonicalGroup
	if c == nil {
		p.group.CanonicalGroup = ""
		return false
	}
	if p.group.CanonicalGroup == c.ID || !anyAutoMerge(p.added) {
		return false
	}
	p.logf("merged into %s", c.ID)
	p.group.CanonicalGroup = c.ID
	return true
}

// targetBug is the bug new anomalies are reported on.
func (p *pass) targetBug() *types.BugReference {
	c := p.update.CanonicalGroup
	if p.group.CanonicalGroup != "" && c != nil && c.ID == p.group.CanonicalGroup && c.HasBug() {
		return c.Bug
	}
	return p.group.Bug
}

// linkToBug points the auto-triaged anomalies at the group's bug.
func (p *pass) linkToBug(anomalies []*types.Anomaly) {
	bug := p.targetBug()
	if bug == nil {
		return
	}
	for _, a := range anomalies {
		if !a.AutoTriageEnable {
			continue
		}
		if a.Bug != nil && *a.Bug == *bug {
			continue
		}
		b := *bug
		a.Bug = &b
		p.markDirty(a)
	}
}

func (p *pass) processDuplicate(ctx context.Context, merged bool) {
	newRegressions := p.newRegressions()
	if merged {
		canonicalBug := p.targetBug()
		text, err := bugupdate.Render(bugupdate.MergedInto, p.data(newRegressions))
		if err == nil && canonicalBug != nil {
			err = p.comment(ctx, &issuetracker.IssueCommentRequest{
				IssueID:   canonicalBug.ID,
				ProjectID: canonicalBug.Project,
				Comment:   text,
				SendEmail: false,
			})
		}
		if err != nil {
			p.warnf("failed to report merge into %s: %s", p.group.CanonicalGroup, err)
		}
	}
	if len(newRegressions) == 0 {
		return
	}
	text, err := bugupdate.Render(bugupdate.Update, p.data(newRegressions))
	if err == nil {
		err = p.comment(ctx, &issuetracker.IssueCommentRequest{
			IssueID:   p.group.Bug.ID,
			ProjectID: p.group.Bug.Project,
			Comment:   text,
			SendEmail: false,
		})
	}
	if err != nil {
		p.warnf("failed to forward regressions: %s", err)
	}
}

func (p *pass) closeRecovered(ctx context.Context) {
	text, err := bugupdate.Render(bugupdate.Recovered, p.data(nil))
	if err == nil {
		err = p.comment(ctx, &issuetracker.IssueCommentRequest{
			IssueID:   p.group.Bug.ID,
			ProjectID: p.group.Bug.Project,
			Comment:   text,
			Status:    issuetracker.StatusWontFix,
			SendEmail: true,
		})
	}
	if err != nil {
		p.warnf("failed to close recovered bug %s: %s", p.group.Bug, err)
		return
	}
	p.logf("all regressions recovered, closed bug %s", p.group.Bug)
	p.group.Status = types.Closed
	actionCounter("close_recovered").Inc(1)
}

func (p *pass) reopen(ctx context.Context, newRegressions []*types.Anomaly) {
	status := issuetracker.StatusUntriaged
	if p.update.Issue.Owner != "" {
		status = issuetracker.StatusAssigned
	}
	details := p.bugDetails(newRegressions)
	text, err := bugupdate.Render(bugupdate.Reopen, p.data(newRegressions))
	if err == nil {
		err = p.comment(ctx, &issuetracker.IssueCommentRequest{
			IssueID:    p.group.Bug.ID,
			ProjectID:  p.group.Bug.Project,
			Comment:    text,
			Status:     status,
			Labels:     details.Labels,
			Components: details.Components,
			CCs:        details.CCs,
			SendEmail:  true,
		})
	}
	if err != nil {
		p.warnf("failed to reopen bug %s: %s", p.group.Bug, err)
		return
	}
	p.logf("reopened bug %s", p.group.Bug)
	p.group.Status = types.Triaged
	actionCounter("reopen").Inc(1)
}

// postUpdate comments on the bug about new regressions.
func (p *pass) postUpdate(ctx context.Context, newRegressions []*types.Anomaly) {
	if len(newRegressions) == 0 || !p.group.HasBug() {
		return
	}
	details := p.bugDetails(newRegressions)
	text, err := bugupdate.Render(bugupdate.Update, p.data(newRegressions))
	if err == nil {
		err = p.comment(ctx, &issuetracker.IssueCommentRequest{
			IssueID:    p.group.Bug.ID,
			ProjectID:  p.group.Bug.Project,
			Comment:    text,
			Labels:     details.Labels,
			Components: details.Components,
			CCs:        details.CCs,
			SendEmail:  true,
		})
	}
	if err != nil {
		p.warnf("failed to update bug %s: %s", p.group.Bug, err)
		return
	}
	actionCounter("update").Inc(1)
}

// triage files a bug for the group's regressions.
func (p *pass) triage(ctx context.Context) {
	regressions := []*types.Anomaly{}
	for _, a := range p.regressions() {
		if a.AutoTriageEnable {
			regressions = append(regressions, a)
		}
	}
	if len(regressions) == 0 {
		return
	}
	regressions = bugupdate.SortRegressions(regressions)

	details := p.bugDetails(regressions)
	data := p.data(regressions)
	info, err := p.svc.Revisions.GetRangeRevisionInfo(ctx, regressions[0].TestPath, p.group.Revision.Start, p.group.Revision.End)
	if err != nil {
		p.warnf("no revision info for the bug description: %s", err)
	} else {
		data.RevisionInfo = info
	}
	title, err := bugupdate.Render(bugupdate.NewBugTitle, data)
	if err != nil {
		p.warnf("failed to render bug title: %s", err)
		return
	}
	description, err := bugupdate.Render(bugupdate.NewBug, data)
	if err != nil {
		p.warnf("failed to render bug description: %s", err)
		return
	}

	resp, err := p.svc.Issues.PostIssue(ctx, &issuetracker.PostIssueRequest{
		Title:       title,
		Description: description,
		ProjectID:   p.group.ProjectID,
		Labels:      details.Labels,
		Components:  details.Components,
		CCs:         details.CCs,
	})
	if err != nil {
		p.warnf("failed to file bug: %s", err)
		return
	}
	p.group.Bug = &types.BugReference{Project: resp.ProjectID, ID: resp.IssueID}
	p.group.Status = types.Triaged
	p.group.Updated = p.update.Now
	p.logf("filed bug %s", p.group.Bug)
	actionCounter("triage").Inc(1)
	p.linkToBug(regressions)
}

// bugDetails computes the components, cc's and labels for the regressions.
func (p *pass) bugDetails(regressions []*types.Anomaly) types.BugUpdateDetails {
	subs := subscriptions(regressions)
	verified := p.update.Issue != nil && p.update.Issue.HasLabel(bugupdate.LabelVerificationRepro)
	return bugupdate.Compute(subs, regressions, bugupdate.Options{
		DelayReporting:   delayReporting(subs),
		SandwichEligible: len(p.sandwichEligible(regressions)) > 0,
		VerifiedRepro:    verified,
	})
}

func (p *pass) data(regressions []*types.Anomaly) *bugupdate.Data {
	return &bugupdate.Data{
		Group:        p.group,
		Regressions:  regressions,
		RevisionInfo: []revision.RevisionInfo{},
		GroupURL:     p.cfg.GroupURLPrefix + p.group.ID,
		CanonicalBug: p.targetBug(),
	}
}

func (p *pass) comment(ctx context.Context, req *issuetracker.IssueCommentRequest) error {
	return p.svc.Issues.PostIssueComment(ctx, req)
}

// lastStatusChange returns the index of the last comment that changed the
// status of the issue, or -1.
func lastStatusChange(comments []*issuetracker.Comment) int {
	for i := len(comments) - 1; i >= 0; i-- {
		if comments[i].Updates.Status != "" {
			return i
		}
	}
	return -1
}

// closedByServiceAccount returns true if the last status change on the issue
// closed it and was made by the service account.
func closedByServiceAccount(issue *issuetracker.Issue, serviceAccount string) bool {
	i := lastStatusChange(issue.Comments)
	if i < 0 {
		return false
	}
	c := issue.Comments[i]
	return c.Author == serviceAccount && issuetracker.IsClosedStatus(c.Updates.Status)
}

// manuallyReopened returns true if the service account closed the issue and
// someone else reopened it afterwards.
func manuallyReopened(issue *issuetracker.Issue, serviceAccount string) bool {
	closedBySA := false
	reopened := false
	for _, c := range issue.Comments {
		if c.Updates.Status == "" {
			continue
		}
		if issuetracker.IsClosedStatus(c.Updates.Status) {
			closedBySA = c.Author == serviceAccount
			reopened = false
		} else if closedBySA && c.Author != serviceAccount {
			reopened = true
		}
	}
	return reopened
}
