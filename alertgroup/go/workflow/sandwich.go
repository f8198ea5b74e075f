package workflow

import (
	"context"
	"errors"

	"go.skia.org/alertgroups/alertgroup/go/bot_configs"
	"go.skia.org/alertgroups/alertgroup/go/bugupdate"
	"go.skia.org/alertgroups/alertgroup/go/issuetracker"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/alertgroup/go/verification"
)

// sandwichEligible returns the regressions that may be verified before
// bisection.
func (p *pass) sandwichEligible(regressions []*types.Anomaly) []*types.Anomaly {
	ret := []*types.Anomaly{}
	if !p.cfg.SandwichVerificationEnabled || p.svc.AllowList == nil {
		return ret
	}
	for _, a := range regressions {
		if a.AutoTriageEnable && a.AutoBisectEnable && p.svc.AllowList.Check(p.group.SubscriptionName, a.BenchmarkName(), a.BotName()) {
			ret = append(ret, a)
		}
	}
	return ret
}

// startVerification starts verifying the best eligible regression. It
// returns false if verification didn't start.
func (p *pass) startVerification(ctx context.Context) bool {
	if p.svc.Verification == nil {
		return false
	}
	eligible := p.sandwichEligible(p.regressions())
	if len(eligible) == 0 || !p.group.HasBug() {
		return false
	}
	best := p.bestRegression(ctx, eligible)
	benchmark := best.BenchmarkName()
	startHash, err := p.svc.Revisions.ResolveToGitHash(ctx, best.StartRevision-1, benchmark)
	if err != nil {
		p.warnf("verification not started, failed to resolve %d: %s", best.StartRevision-1, err)
		return false
	}
	endHash, err := p.svc.Revisions.ResolveToGitHash(ctx, best.EndRevision, benchmark)
	if err != nil {
		p.warnf("verification not started, failed to resolve %d: %s", best.EndRevision, err)
		return false
	}

	id, err := p.svc.Verification.CreateExecution(ctx, &verification.ExecutionRequest{
		AnomalyID:    best.ID,
		TestPath:     best.TestPath,
		Benchmark:    benchmark,
		Bot:          best.BotName(),
		Story:        best.Story(),
		Measurement:  best.Measurement(),
		Statistic:    best.Statistic,
		StartGitHash: startHash,
		EndGitHash:   endHash,
		Target:       bot_configs.GetIsolateTarget(best.BotName(), benchmark),
		Project:      p.group.ProjectID,
		BugID:        p.group.Bug.ID,
		Direction:    string(best.Direction),
	})
	if err != nil {
		p.warnf("verification not started: %s", err)
		return false
	}

	p.group.SandwichVerificationWorkflowID = id
	p.group.Status = types.Sandwiched
	p.group.Updated = p.update.Now
	p.logf("started verification %s for %s", id, best.ID)
	actionCounter("verify").Inc(1)

	text, err := bugupdate.Render(bugupdate.SandwichStarted, p.data([]*types.Anomaly{best}))
	if err == nil {
		err = p.comment(ctx, &issuetracker.IssueCommentRequest{
			IssueID:   p.group.Bug.ID,
			ProjectID: p.group.Bug.Project,
			Comment:   text,
			SendEmail: false,
		})
	}
	if err != nil {
		p.warnf("failed to report verification start: %s", err)
	}
	return true
}

// checkVerification handles the result of the group's verification run. It
// returns true if bisection should go ahead.
func (p *pass) checkVerification(ctx context.Context) bool {
	id := p.group.SandwichVerificationWorkflowID
	if id == "" {
		return true
	}
	if p.svc.Verification == nil {
		p.verificationFailed(ctx, "verification is not configured")
		return true
	}
	execution, err := p.svc.Verification.GetExecution(ctx, id)
	if errors.Is(err, verification.ErrNotFound) {
		p.verificationFailed(ctx, "the verification run could not be found")
		return true
	}
	if err != nil {
		p.warnf("failed to check verification %s: %s", id, err)
		return false
	}

	regressions := p.regressions()
	switch execution.State {
	case verification.Active:
		return false
	case verification.Succeeded:
		if execution.Decision {
			p.verificationReproduced(ctx, regressions)
			return true
		}
		p.verificationNotReproduced(ctx, regressions)
		return false
	default:
		p.verificationFailed(ctx, string(execution.State))
		return true
	}
}

func (p *pass) verificationReproduced(ctx context.Context, regressions []*types.Anomaly) {
	p.group.SandwichVerificationWorkflowID = ""
	subs := subscriptions(regressions)
	req := &issuetracker.IssueCommentRequest{
		IssueID:   p.group.Bug.ID,
		ProjectID: p.group.Bug.Project,
		Labels:    []string{bugupdate.LabelVerificationRepro},
		SendEmail: true,
	}
	if !delayReporting(subs) {
		req.Components = bugupdate.Compute(subs, regressions, bugupdate.Options{
			SandwichEligible: true,
			VerifiedRepro:    true,
		}).Components
	}
	text, err := bugupdate.Render(bugupdate.SandwichRepro, p.data(regressions))
	if err == nil {
		req.Comment = text
		err = p.comment(ctx, req)
	}
	if err != nil {
		p.warnf("failed to report reproduced regression: %s", err)
	}
	actionCounter("verify_repro").Inc(1)
}

func (p *pass) verificationNotReproduced(ctx context.Context, regressions []*types.Anomaly) {
	text, err := bugupdate.Render(bugupdate.SandwichNoRepro, p.data(regressions))
	if err == nil {
		err = p.comment(ctx, &issuetracker.IssueCommentRequest{
			IssueID:   p.group.Bug.ID,
			ProjectID: p.group.Bug.Project,
			Comment:   text,
			Labels:    []string{bugupdate.LabelVerificationNoRepro},
			Status:    issuetracker.StatusWontFix,
			SendEmail: false,
		})
	}
	if err != nil {
		// Try again on the next pass.
		p.warnf("failed to close bug %s after no repro: %s", p.group.Bug, err)
		return
	}
	p.group.SandwichVerificationWorkflowID = ""
	p.group.Status = types.Closed
	p.group.Updated = p.update.Now
	p.logf("regression not reproduced, closed bug %s", p.group.Bug)
	actionCounter("verify_no_repro").Inc(1)
}

func (p *pass) verificationFailed(ctx context.Context, reason string) {
	p.group.SandwichVerificationWorkflowID = ""
	data := p.data(nil)
	data.Error = reason
	text, err := bugupdate.Render(bugupdate.SandwichFailed, data)
	if err == nil {
		err = p.comment(ctx, &issuetracker.IssueCommentRequest{
			IssueID:   p.group.Bug.ID,
			ProjectID: p.group.Bug.Project,
			Comment:   text,
			Labels:    []string{bugupdate.LabelVerificationFailed},
			SendEmail: false,
		})
	}
	if err != nil {
		p.warnf("failed to report verification failure: %s", err)
	}
	actionCounter("verify_failed").Inc(1)
}
