package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.skia.org/alertgroups/alertgroup/go/sheriffconfig"
	"go.skia.org/alertgroups/go/jsonschema"
)

const minimal = `{
  "database": {"local": true},
  "workflow": {"service_account": "sa@example.com"},
  "issue_tracker": {"url": "http://issues"},
  "bisection": {"url": "http://pinpoint"},
  "revision": {"numbering_url": "http://crrev", "repo_url": "http://repo"},
  "sheriff_config": {"path": "sheriff.yaml"}
}`

func TestInstanceConfigFromFile_CheckedInConfigsAreValid(t *testing.T) {
	files, err := filepath.Glob("../../configs/*.json")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		_, err := InstanceConfigFromFile(context.Background(), f)
		assert.NoError(t, err, f)
	}
}

func TestCheckedInSheriffConfig_IsValid(t *testing.T) {
	m, err := sheriffconfig.NewFromFile("../../configs/sheriff.yaml")
	require.NoError(t, err)
	subs, err := m.Match(context.Background(), "ChromiumPerf/linux-perf/speedometer3/Score/story1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Speed Sheriff", subs[0].Name)
}

func TestParse_Minimal_DefaultsApply(t *testing.T) {
	cfg, err := Parse(context.Background(), []byte(minimal))
	require.NoError(t, err)

	d, err := cfg.Workflow.ActiveWindowDuration()
	require.NoError(t, err)
	assert.Equal(t, DefaultActiveWindow, d)
	d, err = cfg.Workflow.TriageDelayDuration()
	require.NoError(t, err)
	assert.Equal(t, DefaultTriageDelay, d)
	d, err = cfg.Scheduler.IntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedulerInterval, d)
	assert.Equal(t, int64(DefaultNonOverlapThreshold), cfg.Workflow.Threshold())
	assert.Nil(t, cfg.Verification)
}

func TestParse_WrongType_IsSchemaViolation(t *testing.T) {
	_, err := Parse(context.Background(), []byte(`{
  "database": {"local": "yes"},
  "workflow": {"service_account": "sa@example.com"},
  "issue_tracker": {"url": "http://issues"},
  "bisection": {"url": "http://pinpoint"},
  "revision": {"numbering_url": "http://crrev", "repo_url": "http://repo"},
  "sheriff_config": {"path": "sheriff.yaml"}
}`))
	require.ErrorIs(t, err, jsonschema.ErrSchemaViolation)
}

func TestParse_MissingSection_IsSchemaViolation(t *testing.T) {
	_, err := Parse(context.Background(), []byte(`{"database": {"local": true}}`))
	require.ErrorIs(t, err, jsonschema.ErrSchemaViolation)
}

func TestParse_BadDuration(t *testing.T) {
	cfg, err := Parse(context.Background(), []byte(minimal))
	require.NoError(t, err)
	cfg.Workflow.TriageDelay = "soon"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow.triage_delay")

	cfg.Workflow.TriageDelay = "-1m"
	require.Error(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base, err := Parse(context.Background(), []byte(minimal))
	require.NoError(t, err)

	for name, mutate := range map[string]func(c *InstanceConfig){
		"no database":           func(c *InstanceConfig) { c.Database.Local = false },
		"not postgres":          func(c *InstanceConfig) { c.Database.ConnectionString = "mysql://x" },
		"no service account":    func(c *InstanceConfig) { c.Workflow.ServiceAccount = "" },
		"sandwich without host": func(c *InstanceConfig) { c.Workflow.SandwichVerificationEnabled = true },
		"no sheriff config":     func(c *InstanceConfig) { c.SheriffConfig.Path = "" },
		"negative parallelism":  func(c *InstanceConfig) { c.Scheduler.Parallelism = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			c := *base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestBisectionInterval(t *testing.T) {
	d, err := BisectionConfig{Interval: "30s"}.IntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestFlags_Register(t *testing.T) {
	var f Flags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.Register(fs)
	require.NoError(t, fs.Parse([]string{"--config_filename=/tmp/c.json", "--local", "--port=:9000"}))
	assert.Equal(t, "/tmp/c.json", f.ConfigFilename)
	assert.True(t, f.Local)
	assert.Equal(t, ":9000", f.Port)
	assert.Equal(t, ":20000", f.PromPort)
	assert.False(t, f.NoScheduler)
}
