// Package grouping assigns anomalies to alert groups.
package grouping

import (
	"context"
	"sync"

	"go.skia.org/alertgroups/alertgroup/go/anomalystore"
	"go.skia.org/alertgroups/alertgroup/go/groupstore"
	"go.skia.org/alertgroups/alertgroup/go/sheriffconfig"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/metrics2"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sklog"
	"go.skia.org/alertgroups/go/util"
)

// DefaultNonOverlapThreshold is the number of revisions two ranges may
// differ by and still be grouped together.
const DefaultNonOverlapThreshold = 100

// DefaultRepository is the repository of new groups' revision ranges.
const DefaultRepository = "chromium"

// Groups are looked up and then created, so only one grouping may run at a
// time in this process.
var groupingMutex sync.Mutex

// Grouper assigns anomalies to alert groups, creating groups as needed.
type Grouper struct {
	anomalies           anomalystore.Store
	groups              groupstore.Store
	matcher             sheriffconfig.Matcher
	nonOverlapThreshold int64

	groupsCreated      metrics2.Counter
	anomaliesGrouped   metrics2.Counter
	anomaliesUngrouped metrics2.Counter
	anomaliesUpdated   metrics2.Counter
	anomaliesSkipped   metrics2.Counter
}

// New returns a new *Grouper.
func New(anomalies anomalystore.Store, groups groupstore.Store, matcher sheriffconfig.Matcher, nonOverlapThreshold int64) *Grouper {
	return &Grouper{
		anomalies:           anomalies,
		groups:              groups,
		matcher:             matcher,
		nonOverlapThreshold: nonOverlapThreshold,
		groupsCreated:       metrics2.GetCounter("alertgroup_grouping_groups_created"),
		anomaliesGrouped:    metrics2.GetCounter("alertgroup_grouping_anomalies_grouped"),
		anomaliesUngrouped:  metrics2.GetCounter("alertgroup_grouping_anomalies_ungrouped"),
		anomaliesUpdated:    metrics2.GetCounter("alertgroup_grouping_anomalies_updated"),
		anomaliesSkipped:    metrics2.GetCounter("alertgroup_grouping_anomalies_skipped"),
	}
}

// identity is the key that groups are looked up by.
type identity struct {
	name             string
	domain           string
	subscriptionName string
	projectID        string
}

// identities returns one identity per subscription and group name. With no
// subscriptions a single unnamed subscription in the default project is
// used.
func identities(anomaly *types.Anomaly, subscriptions []*types.Subscription) []identity {
	if len(subscriptions) == 0 {
		subscriptions = []*types.Subscription{{ProjectID: types.DefaultProjectID}}
	}
	names := anomaly.AlertGrouping
	if len(names) == 0 {
		names = []string{anomaly.BenchmarkName()}
	}
	ret := []identity{}
	for _, sub := range subscriptions {
		projectID := sub.ProjectID
		if projectID == "" {
			projectID = types.DefaultProjectID
		}
		for _, name := range names {
			ret = append(ret, identity{
				name:             name,
				domain:           anomaly.Master(),
				subscriptionName: sub.Name,
				projectID:        projectID,
			})
		}
	}
	return ret
}

// GroupsForAnomaly returns the ids of the groups the anomaly belongs to, in
// the order they were found, creating groups where none fit.
func (g *Grouper) GroupsForAnomaly(ctx context.Context, anomaly *types.Anomaly, subscriptions []*types.Subscription) ([]string, error) {
	groupingMutex.Lock()
	defer groupingMutex.Unlock()
	return g.groupsForAnomaly(ctx, anomaly, subscriptions)
}

// groupsForAnomaly must be called with groupingMutex held.
func (g *Grouper) groupsForAnomaly(ctx context.Context, anomaly *types.Anomaly, subscriptions []*types.Subscription) ([]string, error) {
	r := types.RevisionRange{Start: anomaly.StartRevision, End: anomaly.EndRevision}
	ret := []string{}
	for _, id := range identities(anomaly, subscriptions) {
		groupID, err := g.findOrCreate(ctx, id, r)
		if err != nil {
			return nil, err
		}
		ret = append(ret, groupID)
	}
	return util.DedupStrings(ret), nil
}

// findOrCreate returns the first active group with the identity whose range
// is close enough to r, or a new group if there is none.
func (g *Grouper) findOrCreate(ctx context.Context, id identity, r types.RevisionRange) (string, error) {
	existing, err := g.groups.Find(ctx, groupstore.FindQuery{
		Name:             id.name,
		GroupType:        types.TestSuite,
		Domain:           id.domain,
		SubscriptionName: id.subscriptionName,
		ProjectID:        id.projectID,
		ActiveOnly:       true,
	})
	if err != nil {
		return "", skerr.Wrapf(err, "finding groups for %q", id.name)
	}
	for _, group := range existing {
		if group.Revision.Overlaps(r) && group.Revision.NonOverlap(r) <= g.nonOverlapThreshold {
			return group.ID, nil
		}
	}

	r.Repository = DefaultRepository
	newGroupID, err := g.groups.Create(ctx, &types.AlertGroup{
		Name:             id.name,
		Domain:           id.domain,
		GroupType:        types.TestSuite,
		SubscriptionName: id.subscriptionName,
		ProjectID:        id.projectID,
		Active:           true,
		Status:           types.Untriaged,
		Anomalies:        []string{},
		Revision:         r,
	})
	if err != nil {
		return "", skerr.Wrapf(err, "creating group for %q", id.name)
	}
	g.groupsCreated.Inc(1)
	sklog.Infof("Created alert group %s for %q in %s/%s at %d:%d", newGroupID, id.name, id.domain, id.subscriptionName, r.Start, r.End)
	return newGroupID, nil
}

// AddToUngrouped stores a newly detected anomaly as a member of the Ungrouped
// group, creating that group if needed.
//
// If the anomaly is already stored only the fields the detector owns are
// updated, see mergeDetected, and the anomaly keeps its groups, bug and
// bisections.
func (g *Grouper) AddToUngrouped(ctx context.Context, anomaly *types.Anomaly) error {
	if err := anomalystore.Validate(anomaly); err != nil {
		return err
	}
	groupingMutex.Lock()
	defer groupingMutex.Unlock()

	if _, err := g.groups.GetOrCreateUngrouped(ctx); err != nil {
		return skerr.Wrap(err)
	}
	stored, err := g.anomalies.Get(ctx, anomaly.ID)
	if err != nil {
		return skerr.Wrapf(err, "loading anomaly %s", anomaly.ID)
	}
	if stored != nil {
		mergeDetected(stored, anomaly)
		if len(stored.Groups) == 0 {
			stored.Groups = []string{types.UngroupedGroupID}
		}
		if err := g.anomalies.Put(ctx, stored); err != nil {
			return skerr.Wrapf(err, "updating anomaly %s", anomaly.ID)
		}
		*anomaly = *stored
		g.anomaliesUpdated.Inc(1)
		return nil
	}

	if !anomaly.InGroup(types.UngroupedGroupID) {
		anomaly.Groups = append(anomaly.Groups, types.UngroupedGroupID)
	}
	if err := g.anomalies.Put(ctx, anomaly); err != nil {
		return skerr.Wrapf(err, "adding anomaly %s to the Ungrouped group", anomaly.ID)
	}
	g.anomaliesUngrouped.Inc(1)
	return nil
}

// mergeDetected copies the fields the anomaly detector owns from detected
// into stored. The test path, groups, bug and bisections are left alone.
func mergeDetected(stored, detected *types.Anomaly) {
	stored.StartRevision = detected.StartRevision
	stored.EndRevision = detected.EndRevision
	stored.Statistic = detected.Statistic
	stored.MedianBefore = detected.MedianBefore
	stored.MedianAfter = detected.MedianAfter
	stored.AbsoluteDelta = detected.AbsoluteDelta
	stored.Direction = detected.Direction
	stored.IsImprovement = detected.IsImprovement
	stored.Recovered = detected.Recovered
	stored.Ownership = detected.Ownership
	stored.AlertGrouping = detected.AlertGrouping
	stored.Source = detected.Source
	stored.Internal = detected.Internal
	if !detected.Timestamp.IsZero() {
		stored.Timestamp = detected.Timestamp
	}
}

// ProcessUngrouped moves the members of the Ungrouped group into typed
// groups. Anomalies that were assigned at least one typed group leave the
// Ungrouped group. It returns the number of anomalies that were grouped.
//
// An anomaly that can't be grouped is logged and skipped, it stays in the
// Ungrouped group. Errors from the sheriff config stop the whole batch.
func (g *Grouper) ProcessUngrouped(ctx context.Context) (int, error) {
	groupingMutex.Lock()
	defer groupingMutex.Unlock()

	if _, err := g.groups.GetOrCreateUngrouped(ctx); err != nil {
		return 0, skerr.Wrap(err)
	}
	members, err := g.anomalies.ListByGroup(ctx, types.UngroupedGroupID)
	if err != nil {
		return 0, skerr.Wrapf(err, "listing ungrouped anomalies")
	}

	updated := make([]*types.Anomaly, 0, len(members))
	for _, anomaly := range members {
		if err := anomalystore.Validate(anomaly); err != nil {
			sklog.Errorf("Skipping ungroupable anomaly %s: %s", anomaly.ID, err)
			g.anomaliesSkipped.Inc(1)
			continue
		}
		subscriptions, err := g.matcher.Match(ctx, anomaly.TestPath)
		if err != nil {
			return 0, skerr.Wrapf(err, "matching subscriptions for %s", anomaly.TestPath)
		}
		groupIDs, err := g.groupsForAnomaly(ctx, anomaly, subscriptions)
		if err != nil {
			sklog.Errorf("Failed to group anomaly %s: %s", anomaly.ID, err)
			g.anomaliesSkipped.Inc(1)
			continue
		}
		if len(groupIDs) == 0 {
			continue
		}
		groups := []string{}
		for _, id := range anomaly.Groups {
			if id != types.UngroupedGroupID {
				groups = append(groups, id)
			}
		}
		anomaly.Groups = util.DedupStrings(append(groups, groupIDs...))
		updated = append(updated, anomaly)
	}
	if len(updated) == 0 {
		return 0, nil
	}
	if err := g.anomalies.PutMulti(ctx, updated); err != nil {
		return 0, skerr.Wrapf(err, "writing grouped anomalies")
	}
	g.anomaliesGrouped.Inc(int64(len(updated)))
	return len(updated), nil
}
