package grouping

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.skia.org/alertgroups/alertgroup/go/anomalystore/memanomalystore"
	"go.skia.org/alertgroups/alertgroup/go/groupstore/memgroupstore"
	"go.skia.org/alertgroups/alertgroup/go/sheriffconfig/mocks"
	"go.skia.org/alertgroups/alertgroup/go/types"
)

const testPath = "ChromiumPerf/linux-perf/speedometer3/Score"

func newGrouper(t *testing.T) (*Grouper, *memanomalystore.Store, *memgroupstore.Store, *mocks.Matcher) {
	anomalies := memanomalystore.New()
	groups := memgroupstore.New()
	matcher := mocks.NewMatcher(t)
	return New(anomalies, groups, matcher, DefaultNonOverlapThreshold), anomalies, groups, matcher
}

func anomaly(id string, start, end int64) *types.Anomaly {
	return &types.Anomaly{
		ID:            id,
		TestPath:      testPath,
		StartRevision: start,
		EndRevision:   end,
		MedianBefore:  10,
		AbsoluteDelta: 1,
	}
}

func groupFor(t *testing.T, g *Grouper, a *types.Anomaly) string {
	ids, err := g.GroupsForAnomaly(context.Background(), a, nil)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	return ids[0]
}

func TestGroupsForAnomaly_Scenario(t *testing.T) {
	g, _, groups, _ := newGrouper(t)

	g1 := groupFor(t, g, anomaly("a1", 10, 40))
	g2 := groupFor(t, g, anomaly("a2", 50, 150))
	g3 := groupFor(t, g, anomaly("a3", 200, 300))
	assert.Len(t, map[string]bool{g1: true, g2: true, g3: true}, 3)

	// Overlaps the first two groups within the threshold, first one wins.
	assert.Equal(t, g1, groupFor(t, g, anomaly("a4", 5, 100)))

	g4 := groupFor(t, g, anomaly("a5", 5, 305))
	assert.NotContains(t, []string{g1, g2, g3}, g4)

	assert.Equal(t, g4, groupFor(t, g, anomaly("a6", 10, 300)))

	active, err := groups.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 4)

	created, err := groups.Get(context.Background(), g4)
	require.NoError(t, err)
	assert.Equal(t, types.RevisionRange{Repository: DefaultRepository, Start: 5, End: 305}, created.Revision)
	assert.Equal(t, "speedometer3", created.Name)
	assert.Equal(t, "ChromiumPerf", created.Domain)
	assert.Equal(t, types.DefaultProjectID, created.ProjectID)
	assert.Equal(t, types.Untriaged, created.Status)
}

func TestGroupsForAnomaly_NonOverlapBeyondThreshold_NeverBinds(t *testing.T) {
	g, _, _, _ := newGrouper(t)
	first := groupFor(t, g, anomaly("a1", 100, 110))

	// Overlapping, but the union is far larger than the intersection.
	assert.NotEqual(t, first, groupFor(t, g, anomaly("a2", 105, 400)))
	// Disjoint.
	assert.NotEqual(t, first, groupFor(t, g, anomaly("a3", 111, 120)))
}

func TestGroupsForAnomaly_OverlappingRanges_BindRegardlessOfOrder(t *testing.T) {
	for name, order := range map[string][]*types.Anomaly{
		"forward":  {anomaly("a1", 100, 150), anomaly("a2", 120, 160)},
		"backward": {anomaly("a2", 120, 160), anomaly("a1", 100, 150)},
	} {
		t.Run(name, func(t *testing.T) {
			g, _, _, _ := newGrouper(t)
			assert.Equal(t, groupFor(t, g, order[0]), groupFor(t, g, order[1]))
		})
	}
}

func TestGroupsForAnomaly_InactiveGroupsAreIgnored(t *testing.T) {
	g, _, groups, _ := newGrouper(t)
	ctx := context.Background()
	first := groupFor(t, g, anomaly("a1", 100, 150))
	group, err := groups.Get(ctx, first)
	require.NoError(t, err)
	group.Active = false
	require.NoError(t, groups.Put(ctx, group))

	assert.NotEqual(t, first, groupFor(t, g, anomaly("a2", 100, 150)))
}

func TestGroupsForAnomaly_SubscriptionsAndOverrides(t *testing.T) {
	g, _, groups, _ := newGrouper(t)
	ctx := context.Background()
	a := anomaly("a1", 100, 150)
	a.AlertGrouping = []string{"loading", "memory"}
	subs := []*types.Subscription{
		{Name: "Speed Sheriff", ProjectID: "chromium"},
		{Name: "V8 Sheriff", ProjectID: "v8"},
	}

	ids, err := g.GroupsForAnomaly(ctx, a, subs)
	require.NoError(t, err)
	require.Len(t, ids, 4)

	var names []string
	for _, id := range ids {
		group, err := groups.Get(ctx, id)
		require.NoError(t, err)
		names = append(names, group.SubscriptionName+"/"+group.ProjectID+"/"+group.Name)
	}
	assert.Equal(t, []string{
		"Speed Sheriff/chromium/loading",
		"Speed Sheriff/chromium/memory",
		"V8 Sheriff/v8/loading",
		"V8 Sheriff/v8/memory",
	}, names)

	again, err := g.GroupsForAnomaly(ctx, anomaly("a2", 120, 150), subs[:1])
	require.NoError(t, err)
	require.Len(t, again, 1)
	created, err := groups.Get(ctx, again[0])
	require.NoError(t, err)
	assert.Equal(t, "speedometer3", created.Name)
}

func TestAddToUngrouped(t *testing.T) {
	g, anomalies, groups, _ := newGrouper(t)
	ctx := context.Background()
	require.NoError(t, g.AddToUngrouped(ctx, anomaly("a1", 100, 150)))
	require.NoError(t, g.AddToUngrouped(ctx, anomaly("a1", 100, 150)))

	got, err := anomalies.ListByGroup(ctx, types.UngroupedGroupID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{types.UngroupedGroupID}, got[0].Groups)

	ungrouped, err := groups.Get(ctx, types.UngroupedGroupID)
	require.NoError(t, err)
	assert.Equal(t, types.Reserved, ungrouped.GroupType)
}

func TestAddToUngrouped_Invalid(t *testing.T) {
	g, _, _, _ := newGrouper(t)
	err := g.AddToUngrouped(context.Background(), anomaly("", 100, 150))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty strings")
}

func TestProcessUngrouped_MovesAnomaliesToTypedGroups(t *testing.T) {
	g, anomalies, _, matcher := newGrouper(t)
	ctx := context.Background()
	require.NoError(t, g.AddToUngrouped(ctx, anomaly("a1", 100, 150)))
	require.NoError(t, g.AddToUngrouped(ctx, anomaly("a2", 120, 160)))
	matcher.On("Match", mock.Anything, testPath).Return([]*types.Subscription{{Name: "Speed Sheriff", ProjectID: "chromium"}}, nil)

	n, err := g.ProcessUngrouped(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ungrouped, err := anomalies.ListByGroup(ctx, types.UngroupedGroupID)
	require.NoError(t, err)
	assert.Empty(t, ungrouped)

	a1, err := anomalies.Get(ctx, "a1")
	require.NoError(t, err)
	a2, err := anomalies.Get(ctx, "a2")
	require.NoError(t, err)
	require.Len(t, a1.Groups, 1)
	assert.Equal(t, a1.Groups, a2.Groups)

	n, err = g.ProcessUngrouped(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestProcessUngrouped_MatcherError_Propagates(t *testing.T) {
	g, _, _, matcher := newGrouper(t)
	ctx := context.Background()
	require.NoError(t, g.AddToUngrouped(ctx, anomaly("a1", 100, 150)))
	matcher.On("Match", mock.Anything, testPath).Return(nil, errors.New("config unavailable"))

	_, err := g.ProcessUngrouped(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config unavailable")
}

func TestAddToUngrouped_TestPathWithoutBenchmark_Rejected(t *testing.T) {
	g, _, _, _ := newGrouper(t)
	a := anomaly("a1", 100, 150)
	a.TestPath = "ChromiumPerf/linux-perf"
	err := g.AddToUngrouped(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "master/bot/benchmark/measurement")
}

// storedBeforeValidation returns extra Ungrouped members that were written
// before the current validation rules existed.
type storedBeforeValidation struct {
	*memanomalystore.Store
	extra []*types.Anomaly
}

func (s *storedBeforeValidation) ListByGroup(ctx context.Context, groupID string) ([]*types.Anomaly, error) {
	ret, err := s.Store.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if groupID == types.UngroupedGroupID {
		for _, a := range s.extra {
			ret = append(ret, a.Copy())
		}
	}
	return ret, nil
}

func TestProcessUngrouped_UngroupableAnomaly_IsSkipped(t *testing.T) {
	ctx := context.Background()
	bad := anomaly("bad", 100, 150)
	bad.TestPath = "ChromiumPerf/linux-perf"
	bad.Groups = []string{types.UngroupedGroupID}
	anomalies := &storedBeforeValidation{Store: memanomalystore.New(), extra: []*types.Anomaly{bad}}
	matcher := mocks.NewMatcher(t)
	g := New(anomalies, memgroupstore.New(), matcher, DefaultNonOverlapThreshold)

	require.NoError(t, g.AddToUngrouped(ctx, anomaly("good", 100, 150)))
	matcher.On("Match", mock.Anything, testPath).Return(nil, nil)

	for i := 0; i < 3; i++ {
		n, err := g.ProcessUngrouped(ctx)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, 1, n)
		} else {
			assert.Equal(t, 0, n)
		}
	}

	good, err := anomalies.Get(ctx, "good")
	require.NoError(t, err)
	require.Len(t, good.Groups, 1)
	assert.NotEqual(t, types.UngroupedGroupID, good.Groups[0])
	matcher.AssertNotCalled(t, "Match", mock.Anything, "ChromiumPerf/linux-perf")
}

func TestAddToUngrouped_AlreadyGrouped_KeepsWorkflowFields(t *testing.T) {
	g, anomalies, _, matcher := newGrouper(t)
	ctx := context.Background()
	require.NoError(t, g.AddToUngrouped(ctx, anomaly("a1", 100, 150)))
	matcher.On("Match", mock.Anything, testPath).Return(nil, nil)
	_, err := g.ProcessUngrouped(ctx)
	require.NoError(t, err)

	grouped, err := anomalies.Get(ctx, "a1")
	require.NoError(t, err)
	groupIDs := grouped.Groups
	grouped.Bug = &types.BugReference{Project: "chromium", ID: 7}
	grouped.PinpointBisects = []string{"job1"}
	require.NoError(t, anomalies.Put(ctx, grouped))

	update := anomaly("a1", 100, 150)
	update.Recovered = true
	update.MedianAfter = 10
	require.NoError(t, g.AddToUngrouped(ctx, update))

	got, err := anomalies.Get(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, got.Recovered)
	assert.Equal(t, 10.0, got.MedianAfter)
	assert.Equal(t, groupIDs, got.Groups)
	assert.Equal(t, &types.BugReference{Project: "chromium", ID: 7}, got.Bug)
	assert.Equal(t, []string{"job1"}, got.PinpointBisects)

	ungrouped, err := anomalies.ListByGroup(ctx, types.UngroupedGroupID)
	require.NoError(t, err)
	assert.Empty(t, ungrouped)
}
