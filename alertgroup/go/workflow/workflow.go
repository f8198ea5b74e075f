// Package workflow drives alert groups through triage: filing and updating
// bugs, merging duplicates, verifying and bisecting regressions, and
// archiving stale groups.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.skia.org/alertgroups/alertgroup/go/allowlist"
	"go.skia.org/alertgroups/alertgroup/go/anomalystore"
	"go.skia.org/alertgroups/alertgroup/go/bisection"
	"go.skia.org/alertgroups/alertgroup/go/canonical"
	"go.skia.org/alertgroups/alertgroup/go/groupstore"
	"go.skia.org/alertgroups/alertgroup/go/issuetracker"
	"go.skia.org/alertgroups/alertgroup/go/revision"
	"go.skia.org/alertgroups/alertgroup/go/sheriffconfig"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/alertgroup/go/verification"
	"go.skia.org/alertgroups/go/metrics2"
	"go.skia.org/alertgroups/go/now"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sklog"
)

// ErrInvariantViolation is returned when a group is found in a state the
// workflow should never have produced. Nothing is written for that pass.
var ErrInvariantViolation = errors.New("alert group workflow invariant violated")

// Config controls the workflow.
type Config struct {
	// ActiveWindow is how long a group stays active after its last update.
	ActiveWindow time.Duration

	// TriageDelay is how long after creation a bug is filed, so that related
	// anomalies have time to join the group.
	TriageDelay time.Duration

	// ServiceAccount is the identity the workflow writes to the issue
	// tracker as.
	ServiceAccount string

	// SandwichVerificationEnabled turns on verification before bisection.
	SandwichVerificationEnabled bool

	// GroupURLPrefix is joined with the group id to link to the group.
	GroupURLPrefix string

	// JobURLPrefix is joined with a bisection job id to link to the job.
	JobURLPrefix string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ActiveWindow:   7 * 24 * time.Hour,
		TriageDelay:    20 * time.Minute,
		GroupURLPrefix: "https://chromeperf.appspot.com/alerts?group_id=",
		JobURLPrefix:   "https://pinpoint-dot-chromeperf.appspot.com/job/",
	}
}

// ScoreSource returns signal quality scores.
type ScoreSource interface {
	GetScore(ctx context.Context, testPath string) float64
}

// Services are the stores and remote services the workflow uses.
type Services struct {
	Groups        groupstore.Store
	Anomalies     anomalystore.Store
	Matcher       sheriffconfig.Matcher
	Issues        issuetracker.Client
	Canonical     *canonical.Resolver
	Bisection     bisection.Client
	Verification  verification.Client
	Revisions     revision.Resolver
	AllowList     allowlist.Checker
	SignalQuality ScoreSource
}

// GroupUpdate is the snapshot of the world that one pass over a group works
// from. It is read once at the start of the pass.
type GroupUpdate struct {
	Now            time.Time
	Anomalies      []*types.Anomaly
	Issue          *issuetracker.Issue
	CanonicalGroup *types.AlertGroup
}

// Workflow processes alert groups.
type Workflow struct {
	cfg Config
	svc Services
}

// New returns a new *Workflow.
func New(cfg Config, svc Services) *Workflow {
	return &Workflow{
		cfg: cfg,
		svc: svc,
	}
}

func actionCounter(action string) metrics2.Counter {
	return metrics2.GetCounter("alertgroup_workflow_action", map[string]string{"action": action})
}

// Process runs one pass over the group with the given id and returns the
// group's id.
func (w *Workflow) Process(ctx context.Context, groupID string) (string, error) {
	group, err := w.svc.Groups.Get(ctx, groupID)
	if err != nil {
		return "", skerr.Wrap(err)
	}
	if group == nil {
		return "", skerr.Fmt("Alert group %q not found", groupID)
	}
	update, err := w.PrepareGroupUpdate(ctx, group)
	if err != nil {
		return "", err
	}
	return w.ProcessGroup(ctx, group, update)
}

// PrepareGroupUpdate loads the group's anomalies, their subscriptions, the
// group's bug and the canonical group.
func (w *Workflow) PrepareGroupUpdate(ctx context.Context, group *types.AlertGroup) (*GroupUpdate, error) {
	anomalies, err := w.svc.Anomalies.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, skerr.Wrapf(err, "loading anomalies of group %s", group.ID)
	}
	if !group.IsReserved() {
		for _, a := range anomalies {
			subs, err := w.svc.Matcher.Match(ctx, a.TestPath)
			if err != nil {
				return nil, skerr.Wrapf(err, "matching subscriptions for %s", a.TestPath)
			}
			a.Subscriptions = subs
		}
	}
	update := &GroupUpdate{
		Now:       now.Now(ctx),
		Anomalies: anomalies,
	}
	if group.IsReserved() || !group.HasBug() {
		return update, nil
	}

	issue, err := w.svc.Issues.GetIssue(ctx, group.Bug.ID, group.Bug.Project)
	if errors.Is(err, issuetracker.ErrNotFound) {
		sklog.Warningf("Alert group %s: bug %s not found", group.ID, group.Bug)
		return update, nil
	}
	if err != nil {
		return nil, skerr.Wrapf(err, "loading bug %s", group.Bug)
	}
	comments, err := w.svc.Issues.GetIssueComments(ctx, group.Bug.ID, group.Bug.Project)
	if err != nil {
		return nil, skerr.Wrapf(err, "loading comments of bug %s", group.Bug)
	}
	issue.Comments = comments
	update.Issue = issue

	update.CanonicalGroup, err = w.svc.Canonical.FindCanonicalGroup(ctx, group, issue)
	if err != nil {
		return nil, err
	}
	return update, nil
}

// pass holds the state of one pass over a group.
type pass struct {
	*Workflow
	group  *types.AlertGroup
	update *GroupUpdate

	// added are the anomalies that joined the group in this pass.
	added []*types.Anomaly

	// dirty are the anomalies that must be written at the end of the pass.
	dirty map[string]*types.Anomaly
}

func (p *pass) logf(format string, args ...interface{}) {
	sklog.Infof("Alert group %s: %s", p.group.ID, fmt.Sprintf(format, args...))
}

func (p *pass) warnf(format string, args ...interface{}) {
	sklog.Warningf("Alert group %s: %s", p.group.ID, fmt.Sprintf(format, args...))
}

func (p *pass) markDirty(a *types.Anomaly) {
	p.dirty[a.ID] = a
}

// ProcessGroup runs one pass over the group using the snapshot in update. The
// group is written at the end of the pass and its id returned.
func (w *Workflow) ProcessGroup(ctx context.Context, group *types.AlertGroup, update *GroupUpdate) (string, error) {
	p := &pass{
		Workflow: w,
		group:    group,
		update:   update,
		dirty:    map[string]*types.Anomaly{},
	}

	if len(update.Anomalies) == 0 && len(group.Anomalies) > 0 && !group.IsReserved() {
		// The anomaly index lags behind writes, don't drop members because
		// of it.
		p.warnf("no anomalies found but %d expected, skipping", len(group.Anomalies))
		return group.ID, nil
	}

	if !group.IsReserved() {
		p.deriveAnomalyFlags()
	}
	p.syncMembership()
	if group.IsReserved() {
		return p.commit(ctx)
	}

	if group.HasBug() && update.Issue != nil && bugStatuses[group.Status] {
		done, err := p.processBug(ctx)
		if err != nil {
			return "", err
		}
		if done {
			return p.commit(ctx)
		}
	}

	switch {
	case update.Now.Sub(group.Updated) >= w.cfg.ActiveWindow:
		p.logf("archiving, last updated %s", group.Updated)
		group.Active = false
		actionCounter("archive").Inc(1)
	case update.Now.Sub(group.Created) >= w.cfg.TriageDelay && group.Status == types.Untriaged:
		p.triage(ctx)
	case group.Status == types.Triaged && len(p.sandwichEligible(p.regressions())) > 0:
		if !p.startVerification(ctx) {
			if anyAutoBisect(p.regressions()) {
				p.bisect(ctx)
			} else {
				p.postUpdate(ctx, p.newRegressions())
			}
		}
	case group.Status == types.Sandwiched || group.Status == types.Triaged:
		p.bisect(ctx)
	}
	return p.commit(ctx)
}

// bugStatuses are the statuses in which a group has a bug to keep in sync.
var bugStatuses = map[types.Status]bool{
	types.Triaged:    true,
	types.Sandwiched: true,
	types.Bisected:   true,
	types.Closed:     true,
}

// deriveAnomalyFlags keeps only the subscriptions of the group on each
// anomaly and sets the auto flags from them.
func (p *pass) deriveAnomalyFlags() {
	for _, a := range p.update.Anomalies {
		subs := []*types.Subscription{}
		a.AutoTriageEnable, a.AutoMergeEnable, a.AutoBisectEnable = false, false, false
		for _, sub := range a.Subscriptions {
			if sub.Name != p.group.SubscriptionName {
				continue
			}
			subs = append(subs, sub)
			a.AutoTriageEnable = a.AutoTriageEnable || sub.AutoTriageEnable
			a.AutoMergeEnable = a.AutoMergeEnable || sub.AutoMergeEnable
			a.AutoBisectEnable = a.AutoBisectEnable || sub.AutoBisectEnable
		}
		a.Subscriptions = subs
	}
}

// syncMembership replaces the group's members with the anomalies in the
// update and records which ones are new.
func (p *pass) syncMembership() {
	previous := make(map[string]bool, len(p.group.Anomalies))
	for _, id := range p.group.Anomalies {
		previous[id] = true
	}
	ids := make([]string, 0, len(p.update.Anomalies))
	for _, a := range p.update.Anomalies {
		ids = append(ids, a.ID)
		if !previous[a.ID] {
			p.added = append(p.added, a)
		}
	}
	p.group.Anomalies = ids
	if len(p.added) > 0 && !p.group.IsReserved() {
		p.group.Updated = p.update.Now
	}
}

// commit writes the changed anomalies and then the group.
func (p *pass) commit(ctx context.Context) (string, error) {
	if len(p.dirty) > 0 {
		anomalies := make([]*types.Anomaly, 0, len(p.dirty))
		for _, a := range p.update.Anomalies {
			if d, ok := p.dirty[a.ID]; ok {
				anomalies = append(anomalies, d)
			}
		}
		if err := p.svc.Anomalies.PutMulti(ctx, anomalies); err != nil {
			return "", skerr.Wrapf(err, "writing anomalies of group %s", p.group.ID)
		}
	}
	if err := p.svc.Groups.Put(ctx, p.group); err != nil {
		return "", skerr.Wrapf(err, "writing group %s", p.group.ID)
	}
	return p.group.ID, nil
}

// regressions are the anomalies that are neither improvements nor recovered.
func (p *pass) regressions() []*types.Anomaly {
	return filterRegressions(p.update.Anomalies)
}

// newRegressions are the regressions that joined the group in this pass.
func (p *pass) newRegressions() []*types.Anomaly {
	return filterRegressions(p.added)
}

func filterRegressions(anomalies []*types.Anomaly) []*types.Anomaly {
	ret := []*types.Anomaly{}
	for _, a := range anomalies {
		if !a.IsImprovement && !a.Recovered {
			ret = append(ret, a)
		}
	}
	return ret
}

func anyAutoBisect(anomalies []*types.Anomaly) bool {
	for _, a := range anomalies {
		if a.AutoBisectEnable {
			return true
		}
	}
	return false
}

func anyAutoMerge(anomalies []*types.Anomaly) bool {
	for _, a := range anomalies {
		if a.AutoMergeEnable {
			return true
		}
	}
	return false
}

// subscriptions returns the distinct subscriptions of the anomalies.
func subscriptions(anomalies []*types.Anomaly) []*types.Subscription {
	seen := map[string]bool{}
	ret := []*types.Subscription{}
	for _, a := range anomalies {
		for _, sub := range a.Subscriptions {
			if seen[sub.Name] {
				continue
			}
			seen[sub.Name] = true
			ret = append(ret, sub)
		}
	}
	return ret
}

func delayReporting(subs []*types.Subscription) bool {
	for _, sub := range subs {
		if sub.DelayReporting {
			return true
		}
	}
	return false
}
