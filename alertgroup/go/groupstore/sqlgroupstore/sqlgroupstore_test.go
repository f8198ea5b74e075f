package sqlgroupstore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.skia.org/alertgroups/alertgroup/go/groupstore"
	"go.skia.org/alertgroups/alertgroup/go/sql/sqltest"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/now"
)

var ts = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func setUp(t *testing.T) (*now.TimeTravelCtx, *GroupStore) {
	ctx := now.TimeTravelingContext(ts)
	db := sqltest.NewCockroachDBForTests(ctx, t)
	return ctx, New(db)
}

func newGroup(name string) *types.AlertGroup {
	return &types.AlertGroup{
		Name:             name,
		GroupType:        types.TestSuite,
		Domain:           "ChromiumPerf",
		SubscriptionName: "sub",
		ProjectID:        "chromium",
		Active:           true,
		Status:           types.Untriaged,
		Anomalies:        []string{"a1"},
		Revision:         types.RevisionRange{Start: 100, End: 200},
	}
}

func TestCreate_ThenGet(t *testing.T) {
	ctx, s := setUp(t)
	id, err := s.Create(ctx, newGroup("bench"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	g, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "bench", g.Name)
	assert.Equal(t, types.Untriaged, g.Status)
	assert.Equal(t, []string{"a1"}, g.Anomalies)
	assert.Nil(t, g.Bug)
	assert.True(t, ts.Equal(g.Created))
}

func TestCreate_EmptyStrings(t *testing.T) {
	ctx, s := setUp(t)
	_, err := s.Create(ctx, newGroup(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty strings")
}

func TestGet_BadID(t *testing.T) {
	ctx, s := setUp(t)
	g, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestPut_UpdatesBugAndStatus(t *testing.T) {
	ctx, s := setUp(t)
	id, err := s.Create(ctx, newGroup("bench"))
	require.NoError(t, err)
	g, err := s.Get(ctx, id)
	require.NoError(t, err)

	g.Bug = &types.BugReference{Project: "chromium", ID: 7}
	g.Status = types.Triaged
	g.Updated = ts.Add(time.Hour)
	require.NoError(t, s.Put(ctx, g))

	got, err := s.FindByBug(ctx, types.BugReference{Project: "chromium", ID: 7}, true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.Triaged, got[0].Status)
	assert.True(t, ts.Add(time.Hour).Equal(got[0].Updated))
}

func TestFind_OldestFirst(t *testing.T) {
	ctx, s := setUp(t)
	id1, err := s.Create(ctx, newGroup("bench"))
	require.NoError(t, err)
	id2, err := s.Create(ctx, newGroup("bench"))
	require.NoError(t, err)

	got, err := s.Find(ctx, groupstore.FindQuery{
		Name:             "bench",
		GroupType:        types.TestSuite,
		Domain:           "ChromiumPerf",
		SubscriptionName: "sub",
		ProjectID:        "chromium",
		ActiveOnly:       true,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, id1, got[0].ID)
	assert.Equal(t, id2, got[1].ID)
}

func TestGetOrCreateUngrouped_Concurrent(t *testing.T) {
	ctx, s := setUp(t)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := s.GetOrCreateUngrouped(ctx)
			assert.NoError(t, err)
			assert.Equal(t, types.UngroupedGroupID, g.ID)
		}()
	}
	wg.Wait()

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, types.Reserved, active[0].GroupType)
}
