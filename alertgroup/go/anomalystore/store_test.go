package anomalystore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.skia.org/alertgroups/alertgroup/go/types"
)

func TestValidate(t *testing.T) {
	valid := func() *types.Anomaly {
		return &types.Anomaly{
			ID:            "a1",
			TestPath:      "ChromiumPerf/linux-perf/speedometer3/Score",
			StartRevision: 10,
			EndRevision:   20,
		}
	}
	require.NoError(t, Validate(valid()))

	withStory := valid()
	withStory.TestPath += "/story1"
	require.NoError(t, Validate(withStory))

	tests := []struct {
		name     string
		modify   func(a *types.Anomaly)
		contains string
	}{
		{
			name:     "missing id",
			modify:   func(a *types.Anomaly) { a.ID = "" },
			contains: "empty strings",
		},
		{
			name:     "no benchmark",
			modify:   func(a *types.Anomaly) { a.TestPath = "ChromiumPerf/linux-perf" },
			contains: "master/bot/benchmark/measurement",
		},
		{
			name:     "empty benchmark segment",
			modify:   func(a *types.Anomaly) { a.TestPath = "ChromiumPerf/linux-perf//Score" },
			contains: "empty segment",
		},
		{
			name:     "empty alert grouping name",
			modify:   func(a *types.Anomaly) { a.AlertGrouping = []string{"loading", " "} },
			contains: "empty alert grouping name",
		},
		{
			name:     "negative revision",
			modify:   func(a *types.Anomaly) { a.StartRevision = -1 },
			contains: "negative commit",
		},
		{
			name:     "reversed range",
			modify:   func(a *types.Anomaly) { a.StartRevision = 30 },
			contains: "smaller than the start",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := valid()
			tc.modify(a)
			err := Validate(a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}
