package sheriffconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.skia.org/alertgroups/alertgroup/go/types"
)

const validConfig = `
subscriptions:
  - name: Speedometer Perf Sheriff
    patterns:
      - ChromiumPerf/*-perf/speedometer2
    exclude:
      - ChromiumPerf/android-*/*
    bug_labels: [Performance-Sheriff]
    bug_components: [Blink>JavaScript]
    bug_cc_emails: [sheriff@example.com]
    auto_triage: true
    auto_bisect: true
  - name: V8 Internal
    project_id: v8
    visibility: INTERNAL_ONLY
    patterns:
      - "*/*/v8.*/*"
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)
	require.Len(t, cfg.Subscriptions, 2)
	assert.Equal(t, types.DefaultProjectID, cfg.Subscriptions[0].ProjectID)
	assert.Equal(t, types.Public, cfg.Subscriptions[0].Visibility)
	assert.True(t, cfg.Subscriptions[0].AutoTriageEnable)
	assert.Equal(t, "v8", cfg.Subscriptions[1].ProjectID)
	assert.Equal(t, types.InternalOnly, cfg.Subscriptions[1].Visibility)
}

func TestParse_NoSubscriptions(t *testing.T) {
	_, err := Parse([]byte("subscriptions: []"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config must have at least one Subscription.")
}

func TestParse_NoName(t *testing.T) {
	_, err := Parse([]byte("subscriptions:\n  - patterns: [a]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error for Subscription at index 0: Missing name.")
}

func TestParse_BadPattern(t *testing.T) {
	_, err := Parse([]byte("subscriptions:\n  - name: a\n    patterns: ['[']\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid pattern")
}

func TestMatch(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)
	m := New(cfg)
	ctx := context.Background()

	subs, err := m.Match(ctx, "ChromiumPerf/linux-perf/speedometer2/RunsPerMinute/story")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Speedometer Perf Sheriff", subs[0].Name)

	subs, err = m.Match(ctx, "ChromiumPerf/android-perf/speedometer2/RunsPerMinute")
	require.NoError(t, err)
	assert.Empty(t, subs)

	subs, err = m.Match(ctx, "ChromiumPerf/linux-perf/v8.browsing/Total")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "V8 Internal", subs[0].Name)

	subs, err = m.Match(ctx, "ChromiumPerf/linux-perf")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestNewFromFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "sheriff.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(validConfig), 0644))
	m, err := NewFromFile(filename)
	require.NoError(t, err)
	subs, err := m.Match(context.Background(), "ChromiumPerf/mac-perf/speedometer2/Total")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
