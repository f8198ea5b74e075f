// Package canonical finds the group that a duplicate group was merged into.
package canonical

import (
	"context"

	"go.skia.org/alertgroups/alertgroup/go/groupstore"
	"go.skia.org/alertgroups/alertgroup/go/issuetracker"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/metrics2"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sklog"
)

// DuplicateLookup is a second way of finding the canonical group. When a
// Resolver has one its answers are compared with the store's, but the store
// always wins.
type DuplicateLookup interface {
	// CanonicalGroupID returns the id of the canonical group for the group
	// whose bug was merged into mergedInto, or "" if there is none.
	CanonicalGroupID(ctx context.Context, groupID string, mergedInto types.BugReference) (string, error)
}

// Resolver finds canonical groups.
type Resolver struct {
	groups groupstore.Store
	lookup DuplicateLookup

	cycles           metrics2.Counter
	parityMismatches metrics2.Counter
}

// New returns a new *Resolver. lookup may be nil.
func New(groups groupstore.Store, lookup DuplicateLookup) *Resolver {
	return &Resolver{
		groups:           groups,
		lookup:           lookup,
		cycles:           metrics2.GetCounter("alertgroup_canonical_cycle"),
		parityMismatches: metrics2.GetCounter("alertgroup_canonical_parity_mismatch"),
	}
}

// FindCanonicalGroup returns the group at the end of the duplicate chain that
// starts at the bug the group's issue was merged into. It returns nil if the
// issue isn't a duplicate, the bug it was merged into has no active group, or
// the chain loops.
func (r *Resolver) FindCanonicalGroup(ctx context.Context, group *types.AlertGroup, issue *issuetracker.Issue) (*types.AlertGroup, error) {
	if issue == nil || issue.Status != issuetracker.StatusDuplicate || issue.MergedInto == nil || issue.MergedInto.IssueID == 0 {
		return nil, nil
	}
	mergedInto := types.BugReference{
		Project: issue.MergedInto.ProjectID,
		ID:      issue.MergedInto.IssueID,
	}
	if mergedInto.Project == "" && group.Bug != nil {
		mergedInto.Project = group.Bug.Project
	}

	ret, err := r.followChain(ctx, group, mergedInto)
	if err != nil {
		return nil, err
	}
	if r.lookup != nil {
		r.checkParity(ctx, group, mergedInto, ret)
	}
	return ret, nil
}

func (r *Resolver) followChain(ctx context.Context, group *types.AlertGroup, mergedInto types.BugReference) (*types.AlertGroup, error) {
	found, err := r.groups.FindByBug(ctx, mergedInto, true)
	if err != nil {
		return nil, skerr.Wrapf(err, "looking up group for bug %s", mergedInto)
	}
	if len(found) == 0 {
		return nil, nil
	}

	visited := map[string]bool{group.ID: true}
	current := found[0]
	for {
		if visited[current.ID] {
			sklog.Errorf("Alert group %s: duplicate chain through bug %s loops back to %s", group.ID, mergedInto, current.ID)
			r.cycles.Inc(1)
			return nil, nil
		}
		visited[current.ID] = true
		if current.CanonicalGroup == "" {
			return current, nil
		}
		next, err := r.groups.Get(ctx, current.CanonicalGroup)
		if err != nil {
			return nil, skerr.Wrapf(err, "following canonical group of %s", current.ID)
		}
		if next == nil {
			// The pointer is weak, a missing group ends the chain.
			return current, nil
		}
		current = next
	}
}

func (r *Resolver) checkParity(ctx context.Context, group *types.AlertGroup, mergedInto types.BugReference, fromStore *types.AlertGroup) {
	other, err := r.lookup.CanonicalGroupID(ctx, group.ID, mergedInto)
	if err != nil {
		sklog.Warningf("Alert group %s: secondary duplicate lookup failed: %s", group.ID, err)
		return
	}
	want := ""
	if fromStore != nil {
		want = fromStore.ID
	}
	if other != want {
		sklog.Warningf("Alert group %s: canonical group mismatch, store has %q and lookup has %q", group.ID, want, other)
		r.parityMismatches.Inc(1)
	}
}
