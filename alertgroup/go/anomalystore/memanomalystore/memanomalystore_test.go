package memanomalystore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.skia.org/alertgroups/alertgroup/go/types"
)

func anomaly(id string, groups ...string) *types.Anomaly {
	return &types.Anomaly{
		ID:            id,
		TestPath:      "m/b/bench/measurement",
		StartRevision: 10,
		EndRevision:   20,
		Groups:        groups,
	}
}

func TestGet_Missing_ReturnsNil(t *testing.T) {
	s := New()
	a, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestPutGet_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	in := anomaly("a1", "g1")
	require.NoError(t, s.Put(ctx, in))
	in.Groups[0] = "changed"

	out, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, out.Groups)

	out.Groups[0] = "changed again"
	out2, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, out2.Groups)
}

func TestPutMulti_InvalidAnomaly_NothingWritten(t *testing.T) {
	ctx := context.Background()
	s := New()
	bad := anomaly("a2")
	bad.StartRevision = 30
	err := s.PutMulti(ctx, []*types.Anomaly{anomaly("a1"), bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smaller than the start")

	a, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestPut_EmptyID_Fails(t *testing.T) {
	err := New().Put(context.Background(), anomaly(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty strings")
}

func TestPut_NegativeRevision_Fails(t *testing.T) {
	a := anomaly("a1")
	a.StartRevision = -1
	err := New().Put(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative commit")
}

func TestGetMulti_SkipsMissing_KeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.PutMulti(ctx, []*types.Anomaly{anomaly("a1"), anomaly("a2")}))
	got, err := s.GetMulti(ctx, []string{"a2", "missing", "a1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].ID)
	assert.Equal(t, "a1", got[1].ID)
}

func TestListByGroup(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.PutMulti(ctx, []*types.Anomaly{
		anomaly("a3", "g1"),
		anomaly("a1", "g1", "g2"),
		anomaly("a2", "g2"),
	}))
	got, err := s.ListByGroup(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "a3", got[1].ID)

	got, err = s.ListByGroup(ctx, "g3")
	require.NoError(t, err)
	assert.Empty(t, got)
}
