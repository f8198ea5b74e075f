package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.skia.org/alertgroups/alertgroup/go/types"
)

type scoreMap map[string]float64

func (s scoreMap) GetScore(ctx context.Context, testPath string) float64 {
	return s[testPath]
}

func passWithScores(scores scoreMap) *pass {
	return &pass{Workflow: &Workflow{svc: Services{SignalQuality: scores}}}
}

// regression returns an anomaly on bot. A medianBefore of 0 gives an
// infinite relative delta.
func regression(id, bot string, medianBefore, absoluteDelta float64) *types.Anomaly {
	return &types.Anomaly{
		ID:            id,
		TestPath:      "ChromiumPerf/" + bot + "/speedometer3/Score/" + id,
		MedianBefore:  medianBefore,
		AbsoluteDelta: absoluteDelta,
	}
}

func TestBetter(t *testing.T) {
	finiteSmall := regression("finite_small", "linux-perf", 100, 5)
	finiteBig := regression("finite_big", "linux-perf", 100, 50)
	infLow := regression("inf_low", "linux-perf", 0, 5)
	infHigh := regression("inf_high", "linux-perf", 0, 5)
	infBigDelta := regression("inf_big_delta", "linux-perf", 0, -40)
	infSmallDelta := regression("inf_small_delta", "linux-perf", 0, 10)

	scores := scoreMap{
		infLow.TestPath:        0.2,
		infHigh.TestPath:       0.9,
		infBigDelta.TestPath:   0.5,
		infSmallDelta.TestPath: 0.5,
	}

	tests := []struct {
		name     string
		a, b     *types.Anomaly
		expected *types.Anomaly
	}{
		{name: "finite beats infinite on the right", a: infHigh, b: finiteSmall, expected: finiteSmall},
		{name: "finite beats infinite on the left", a: finiteSmall, b: infHigh, expected: finiteSmall},
		{name: "larger relative delta wins", a: finiteSmall, b: finiteBig, expected: finiteBig},
		{name: "both infinite, higher signal quality wins", a: infLow, b: infHigh, expected: infHigh},
		{name: "both infinite, same quality, larger absolute delta wins", a: infSmallDelta, b: infBigDelta, expected: infBigDelta},
		{name: "tie keeps the first", a: finiteBig, b: regression("same", "linux-perf", 100, 50), expected: finiteBig},
	}
	p := passWithScores(scores)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected.ID, p.better(context.Background(), tc.a, tc.b).ID)
		})
	}
}

func TestBestRegression(t *testing.T) {
	tests := []struct {
		name       string
		candidates []*types.Anomaly
		expected   string
	}{
		{
			name:       "single candidate",
			candidates: []*types.Anomaly{regression("a1", "linux-perf", 100, 5)},
			expected:   "a1",
		},
		{
			name: "bot with the most candidates wins over a bigger regression",
			candidates: []*types.Anomaly{
				regression("mac_huge", "mac-perf", 100, 90),
				regression("linux_small", "linux-perf", 100, 5),
				regression("linux_medium", "linux-perf", 100, 20),
			},
			expected: "linux_medium",
		},
		{
			name: "equal counts go to the better bot winner",
			candidates: []*types.Anomaly{
				regression("linux_small", "linux-perf", 100, 5),
				regression("mac_big", "mac-perf", 100, 60),
			},
			expected: "mac_big",
		},
		{
			name: "finite regression on the busiest bot beats infinite ones",
			candidates: []*types.Anomaly{
				regression("linux_inf", "linux-perf", 0, 5),
				regression("linux_finite", "linux-perf", 100, 1),
				regression("mac_inf", "mac-perf", 0, 100),
			},
			expected: "linux_finite",
		},
	}
	p := passWithScores(scoreMap{})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, p.bestRegression(context.Background(), tc.candidates).ID)
		})
	}
}
