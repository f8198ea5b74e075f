package workflow

import (
	"context"
	"errors"
	"math"
	"sort"

	"go.skia.org/alertgroups/alertgroup/go/bisection"
	"go.skia.org/alertgroups/alertgroup/go/bot_configs"
	"go.skia.org/alertgroups/alertgroup/go/bugupdate"
	"go.skia.org/alertgroups/alertgroup/go/issuetracker"
	"go.skia.org/alertgroups/alertgroup/go/types"
)

const comparisonModePerformance = "performance"

// bisectCandidates are the regressions that can be bisected and haven't been
// for this group.
func (p *pass) bisectCandidates() []*types.Anomaly {
	bisected := map[string]bool{}
	for _, id := range p.group.BisectionIDs {
		bisected[id] = true
	}
	ret := []*types.Anomaly{}
outer:
	for _, a := range p.regressions() {
		if !a.AutoBisectEnable || a.Bug == nil || a.Bug.ID <= 0 || a.Story() == "" {
			continue
		}
		for _, id := range a.PinpointBisects {
			if bisected[id] {
				continue outer
			}
		}
		ret = append(ret, a)
	}
	return ret
}

// better returns whichever of a and b is the better regression to bisect. a
// wins ties.
func (p *pass) better(ctx context.Context, a, b *types.Anomaly) *types.Anomaly {
	ra, rb := a.RelativeDelta(), b.RelativeDelta()
	infA, infB := math.IsInf(ra, 1), math.IsInf(rb, 1)
	switch {
	case infA && infB:
		sa, sb := p.score(ctx, a), p.score(ctx, b)
		if sa != sb {
			if sb > sa {
				return b
			}
			return a
		}
		if math.Abs(b.AbsoluteDelta) > math.Abs(a.AbsoluteDelta) {
			return b
		}
		return a
	case infA:
		return b
	case infB:
		return a
	case rb > ra:
		return b
	default:
		return a
	}
}

func (p *pass) score(ctx context.Context, a *types.Anomaly) float64 {
	if p.svc.SignalQuality == nil {
		return 0
	}
	return p.svc.SignalQuality.GetScore(ctx, a.TestPath)
}

// bestRegression picks the regression to verify or bisect. Candidates are
// reduced per bot; the bot with the most candidates wins, ties going to the
// better bot winner.
func (p *pass) bestRegression(ctx context.Context, candidates []*types.Anomaly) *types.Anomaly {
	byBot := map[string][]*types.Anomaly{}
	bots := []string{}
	for _, a := range candidates {
		bot := a.BotName()
		if _, ok := byBot[bot]; !ok {
			bots = append(bots, bot)
		}
		byBot[bot] = append(byBot[bot], a)
	}
	sort.Strings(bots)

	var best *types.Anomaly
	bestCount := 0
	for _, bot := range bots {
		regressions := byBot[bot]
		winner := regressions[0]
		for _, r := range regressions[1:] {
			winner = p.better(ctx, winner, r)
		}
		switch {
		case len(regressions) > bestCount:
			best, bestCount = winner, len(regressions)
		case len(regressions) == bestCount:
			best = p.better(ctx, best, winner)
		}
	}
	return best
}

// bisect starts a bisection for the best candidate regression, once
// verification allows it.
func (p *pass) bisect(ctx context.Context) {
	if !p.group.HasBug() {
		return
	}
	if p.group.Status == types.Sandwiched && !p.checkVerification(ctx) {
		return
	}
	candidates := p.bisectCandidates()
	if len(candidates) == 0 {
		return
	}
	best := p.bestRegression(ctx, candidates)
	if best.StartRevision == best.EndRevision {
		p.assignToAuthor(ctx, best)
		return
	}

	benchmark := best.BenchmarkName()
	startHash, err := p.svc.Revisions.ResolveToGitHash(ctx, best.StartRevision-1, benchmark)
	if err != nil {
		p.warnf("bisection not started, failed to resolve %d: %s", best.StartRevision-1, err)
		return
	}
	endHash, err := p.svc.Revisions.ResolveToGitHash(ctx, best.EndRevision, benchmark)
	if err != nil {
		p.warnf("bisection not started, failed to resolve %d: %s", best.EndRevision, err)
		return
	}

	tags := map[string]string{
		"test_path":      best.TestPath,
		"alert":          best.ID,
		"auto_bisection": "true",
	}
	if p.group.Status == types.Sandwiched {
		tags["sandwiched"] = "true"
	}
	req := &bisection.JobRequest{
		Benchmark:      benchmark,
		Bot:            best.BotName(),
		Story:          best.Story(),
		Measurement:    best.Measurement(),
		Statistic:      best.Statistic,
		StartGitHash:   startHash,
		EndGitHash:     endHash,
		Target:         bot_configs.GetIsolateTarget(best.BotName(), benchmark),
		Project:        p.group.ProjectID,
		BugID:          best.Bug.ID,
		ComparisonMode: comparisonModePerformance,
		User:           p.cfg.ServiceAccount,
		Tags:           tags,
	}
	if best.Source == bisection.SourceSkia {
		tags["source"] = bisection.SourceSkia
	} else {
		magnitude := math.Abs(best.AbsoluteDelta)
		req.ComparisonMagnitude = &magnitude
	}

	jobID, err := p.svc.Bisection.NewJob(ctx, req)
	if errors.Is(err, bisection.ErrInvalidRequest) {
		p.bisectFailed(ctx, err.Error(), []string{bugupdate.LabelNeedsAttention})
		return
	}
	if err != nil {
		p.warnf("bisection not started: %s", err)
		return
	}

	p.group.BisectionIDs = append(p.group.BisectionIDs, jobID)
	best.PinpointBisects = append(best.PinpointBisects, jobID)
	p.markDirty(best)
	p.group.Status = types.Bisected
	p.group.Updated = p.update.Now
	p.logf("started bisection %s for %s", jobID, best.ID)
	actionCounter("bisect").Inc(1)

	data := p.data([]*types.Anomaly{best})
	data.JobURL = p.cfg.JobURLPrefix + jobID
	text, err := bugupdate.Render(bugupdate.BisectStarted, data)
	if err == nil {
		err = p.comment(ctx, &issuetracker.IssueCommentRequest{
			IssueID:   p.group.Bug.ID,
			ProjectID: p.group.Bug.Project,
			Comment:   text,
			Labels:    []string{bugupdate.LabelAutoBisected},
			SendEmail: false,
		})
	}
	if err != nil {
		p.warnf("failed to report bisection start: %s", err)
	}
}

// assignToAuthor handles regressions with a single commit in range, which
// don't need bisecting.
func (p *pass) assignToAuthor(ctx context.Context, regression *types.Anomaly) {
	author, err := p.svc.Revisions.CommitAuthor(ctx, regression.EndRevision, regression.BenchmarkName())
	if err != nil {
		p.bisectFailed(ctx, "failed to find the author of the only commit in range: "+err.Error(), nil)
		return
	}
	data := p.data([]*types.Anomaly{regression})
	data.Author = author
	text, err := bugupdate.Render(bugupdate.AssignedToAuthor, data)
	if err == nil {
		err = p.comment(ctx, &issuetracker.IssueCommentRequest{
			IssueID:   p.group.Bug.ID,
			ProjectID: p.group.Bug.Project,
			Comment:   text,
			Owner:     author,
			CCs:       []string{author},
			Status:    issuetracker.StatusAssigned,
			SendEmail: true,
		})
	}
	if err != nil {
		p.warnf("failed to assign bug %s to %s: %s", p.group.Bug, author, err)
		return
	}
	p.group.Status = types.Bisected
	p.group.Updated = p.update.Now
	p.logf("assigned bug %s to %s", p.group.Bug, author)
	actionCounter("assign_author").Inc(1)
}

// bisectFailed records a bisection that can't be retried.
func (p *pass) bisectFailed(ctx context.Context, reason string, labels []string) {
	p.group.Status = types.Bisected
	p.group.Updated = p.update.Now
	p.warnf("bisection failed: %s", reason)
	actionCounter("bisect_failed").Inc(1)

	data := p.data(nil)
	data.Error = reason
	text, err := bugupdate.Render(bugupdate.BisectFailed, data)
	if err == nil {
		err = p.comment(ctx, &issuetracker.IssueCommentRequest{
			IssueID:   p.group.Bug.ID,
			ProjectID: p.group.Bug.Project,
			Comment:   text,
			Labels:    labels,
			SendEmail: false,
		})
	}
	if err != nil {
		p.warnf("failed to report bisection failure: %s", err)
	}
}
