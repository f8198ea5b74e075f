// Package bugupdate computes the components, cc's and labels that are applied
// to the bug of an alert group, and renders the text of bug titles and
// comments.
package bugupdate

import (
	"sort"
	"strings"

	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/metrics2"
	"go.skia.org/alertgroups/go/sklog"
	"go.skia.org/alertgroups/go/util"
)

// Labels and components written by the workflow.
const (
	LabelAutoTriaged         = "Chromeperf-Auto-Triaged"
	LabelAutoBisected        = "Chromeperf-Auto-Bisected"
	LabelNeedsAttention      = "Chromeperf-Auto-NeedsAttention"
	LabelDelayReporting      = "Chromeperf-Delay-Reporting"
	LabelDefaultPriority     = "Pri-2"
	LabelDefaultType         = "Type-Bug-Regression"
	LabelRestrictView        = "Restrict-View-Google"
	LabelVerificationRepro   = "Regression-Verification-Repro"
	LabelVerificationNoRepro = "Regression-Verification-No-Repro"
	LabelVerificationFailed  = "Regression-Verification-Failed"

	ComponentDelayedReporting = "ChromePerf>DelayedReporting"

	priorityPrefix = "Pri-"
	typePrefix     = "Type-"
)

// Options changes how the bug update is computed.
type Options struct {
	// DelayReporting suppresses the fields that notify people.
	DelayReporting bool

	// SandwichEligible is true if any of the regressions may run sandwich
	// verification. Components are withheld until the regression has been
	// verified.
	SandwichEligible bool

	// VerifiedRepro is true if the bug already carries the
	// LabelVerificationRepro label.
	VerifiedRepro bool
}

// Compute returns the components, cc's and labels for a bug covering the
// regressions. All lists are sorted and de-duplicated.
func Compute(subscriptions []*types.Subscription, regressions []*types.Anomaly, opts Options) types.BugUpdateDetails {
	if opts.DelayReporting {
		return types.BugUpdateDetails{
			Components: []string{ComponentDelayedReporting},
			CCs:        []string{},
			Labels:     []string{LabelDelayReporting},
		}
	}

	components := util.StringSet{}
	ccs := util.StringSet{}
	labels := util.StringSet{}
	restricted := false
	withComponents := !opts.SandwichEligible || opts.VerifiedRepro
	for _, sub := range subscriptions {
		if withComponents {
			components.AddLists(sub.BugComponents)
		}
		ccs.AddLists(sub.BugCCEmails)
		labels.AddLists(sub.BugLabels)
		if sub.Visibility == types.InternalOnly {
			restricted = true
		}
	}
	for _, r := range regressions {
		if withComponents && r.Ownership.Component != "" {
			components[r.Ownership.Component] = true
		}
		ccs.AddLists(r.Ownership.Emails)
	}
	delete(components, "")
	delete(ccs, "")

	labels[LabelAutoTriaged] = true
	if !hasPrefix(labels, priorityPrefix) {
		labels[LabelDefaultPriority] = true
	}
	if !hasPrefix(labels, typePrefix) {
		labels[LabelDefaultType] = true
	}
	if restricted {
		labels[LabelRestrictView] = true
	}

	ret := types.BugUpdateDetails{
		Components: components.SortedKeys(),
		CCs:        ccs.SortedKeys(),
		Labels:     labels.SortedKeys(),
	}
	if len(ret.Components) != 1 {
		sklog.Warningf("Bug update has %d components, expected exactly one: %v", len(ret.Components), ret.Components)
		metrics2.GetCounter("alertgroup_bug_components_not_one").Inc(1)
	}
	return ret
}

func hasPrefix(labels util.StringSet, prefix string) bool {
	for l := range labels {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

// SortRegressions orders regressions by the size of their change, largest
// first, so the most significant ones lead the bug description.
func SortRegressions(regressions []*types.Anomaly) []*types.Anomaly {
	ret := append([]*types.Anomaly{}, regressions...)
	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].RelativeDelta() > ret[j].RelativeDelta()
	})
	return ret
}
