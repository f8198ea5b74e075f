package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativeDelta_ZeroBaseline_IsInfinite(t *testing.T) {
	a := &Anomaly{MedianBefore: 0, AbsoluteDelta: 3}
	assert.True(t, math.IsInf(a.RelativeDelta(), 1))
}

func TestRelativeDelta_NegativeDelta_IsAbsolute(t *testing.T) {
	a := &Anomaly{MedianBefore: 4, AbsoluteDelta: -2}
	assert.Equal(t, 0.5, a.RelativeDelta())
}

func TestTestPathAccessors(t *testing.T) {
	a := &Anomaly{TestPath: "ChromiumPerf/linux-perf/speedometer2/RunsPerMinute/story_1"}
	assert.Equal(t, "ChromiumPerf", a.Master())
	assert.Equal(t, "linux-perf", a.BotName())
	assert.Equal(t, "speedometer2", a.BenchmarkName())
	assert.Equal(t, "RunsPerMinute", a.Measurement())
	assert.Equal(t, "story_1", a.Story())
}

func TestTestPathAccessors_ShortPath(t *testing.T) {
	a := &Anomaly{TestPath: "ChromiumPerf/linux-perf/speedometer2/RunsPerMinute"}
	assert.Equal(t, "", a.Story())
	a = &Anomaly{TestPath: "ChromiumPerf"}
	assert.Equal(t, "", a.BenchmarkName())
}

func TestRevisionRange_Overlaps(t *testing.T) {
	r := RevisionRange{Start: 10, End: 40}
	assert.True(t, r.Overlaps(RevisionRange{Start: 40, End: 50}))
	assert.True(t, r.Overlaps(RevisionRange{Start: 5, End: 100}))
	assert.False(t, r.Overlaps(RevisionRange{Start: 41, End: 50}))
}

func TestRevisionRange_NonOverlap(t *testing.T) {
	r := RevisionRange{Start: 10, End: 40}
	// union 95, intersection 30
	assert.Equal(t, int64(65), r.NonOverlap(RevisionRange{Start: 5, End: 100}))
	assert.Equal(t, int64(0), r.NonOverlap(r))
}

func TestAnomalyCopy_IsDeep(t *testing.T) {
	a := &Anomaly{ID: "a", Groups: []string{"g1"}, Bug: &BugReference{Project: "chromium", ID: 1}}
	b := a.Copy()
	b.Groups[0] = "g2"
	b.Bug.ID = 2
	assert.Equal(t, "g1", a.Groups[0])
	assert.Equal(t, int64(1), a.Bug.ID)
}

func TestAlertGroupCopy_IsDeep(t *testing.T) {
	g := &AlertGroup{ID: "g", Anomalies: []string{"a"}, Bug: &BugReference{ID: 3}}
	c := g.Copy()
	c.Anomalies = append(c.Anomalies, "b")
	c.Bug.ID = 4
	require.Len(t, g.Anomalies, 1)
	assert.Equal(t, int64(3), g.Bug.ID)
}

func TestNewUngroupedGroup(t *testing.T) {
	g := NewUngroupedGroup(time.Time{})
	assert.True(t, g.IsReserved())
	assert.False(t, g.HasBug())
	assert.Equal(t, UngroupedGroupName, g.Name)
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, Bisected, ToStatus("bisected"))
	assert.Equal(t, Unknown, ToStatus("nope"))
}
