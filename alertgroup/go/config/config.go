// Package config holds the configuration of an alert grouping instance.
package config

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.skia.org/alertgroups/alertgroup/go/allowlist"
	"go.skia.org/alertgroups/go/jsonschema"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sklog"
)

// Defaults used when a value is left out of the config.
const (
	DefaultActiveWindow        = 7 * 24 * time.Hour
	DefaultTriageDelay         = 20 * time.Minute
	DefaultNonOverlapThreshold = 100
	DefaultSchedulerInterval   = 5 * time.Minute
	DefaultBisectionInterval   = 10 * time.Second
	DefaultMaxConnections      = 12
)

// DatabaseConfig describes where groups and anomalies are stored.
type DatabaseConfig struct {
	// ConnectionString is a CockroachDB connection string, e.g.
	// "postgresql://root@localhost:26257/alertgroups?sslmode=disable".
	ConnectionString string `json:"connection_string,omitempty"`

	// Local uses in-memory stores. Nothing survives a restart.
	Local bool `json:"local,omitempty"`

	MaxConnections int32 `json:"max_connections,omitempty"`
}

// WorkflowConfig controls the workflow engine.
type WorkflowConfig struct {
	// ActiveWindow is a duration, e.g. "168h".
	ActiveWindow string `json:"active_window,omitempty"`

	// TriageDelay is a duration, e.g. "20m".
	TriageDelay string `json:"triage_delay,omitempty"`

	// ServiceAccount is the email the issue tracker attributes our comments
	// to.
	ServiceAccount string `json:"service_account"`

	SandwichVerificationEnabled bool  `json:"sandwich_verification_enabled,omitempty"`
	NonOverlapThreshold         int64 `json:"nonoverlap_threshold,omitempty"`

	GroupURLPrefix string `json:"group_url_prefix,omitempty"`
	JobURLPrefix   string `json:"job_url_prefix,omitempty"`
}

// IssueTrackerConfig points at the perf issue service.
type IssueTrackerConfig struct {
	URL string `json:"url"`
}

// BisectionConfig points at Pinpoint.
type BisectionConfig struct {
	URL string `json:"url"`

	// Interval is the minimum duration between two job starts.
	Interval string `json:"interval,omitempty"`
}

// VerificationConfig points at the Temporal frontend that runs sandwich
// verification.
type VerificationConfig struct {
	HostPort  string `json:"host_port"`
	Namespace string `json:"namespace"`
	TaskQueue string `json:"task_queue"`
}

// RevisionConfig points at the services that turn commit positions into
// commits.
type RevisionConfig struct {
	NumberingURL string `json:"numbering_url"`
	RepoURL      string `json:"repo_url"`
}

// SheriffConfig locates the subscriptions file.
type SheriffConfig struct {
	Path string `json:"path"`
}

// SchedulerConfig controls how often groups are processed.
type SchedulerConfig struct {
	// Interval is a duration, e.g. "5m".
	Interval    string `json:"interval,omitempty"`
	Parallelism int    `json:"parallelism,omitempty"`
}

// InstanceConfig is the configuration of an instance, loaded from a JSON
// file.
type InstanceConfig struct {
	Database      DatabaseConfig      `json:"database"`
	Workflow      WorkflowConfig      `json:"workflow"`
	IssueTracker  IssueTrackerConfig  `json:"issue_tracker"`
	Bisection     BisectionConfig     `json:"bisection"`
	Verification  *VerificationConfig `json:"verification,omitempty"`
	Revision      RevisionConfig      `json:"revision"`
	SheriffConfig SheriffConfig       `json:"sheriff_config"`
	AllowList     []allowlist.Entry   `json:"allowlist,omitempty"`
	Scheduler     SchedulerConfig     `json:"scheduler,omitempty"`
}

func parseDuration(name, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, skerr.Wrapf(err, "invalid duration for %s", name)
	}
	if d <= 0 {
		return 0, skerr.Fmt("Duration for %s must be positive, got %q.", name, s)
	}
	return d, nil
}

// ActiveWindowDuration returns the parsed active window.
func (w WorkflowConfig) ActiveWindowDuration() (time.Duration, error) {
	return parseDuration("workflow.active_window", w.ActiveWindow, DefaultActiveWindow)
}

// TriageDelayDuration returns the parsed triage delay.
func (w WorkflowConfig) TriageDelayDuration() (time.Duration, error) {
	return parseDuration("workflow.triage_delay", w.TriageDelay, DefaultTriageDelay)
}

// Threshold returns the non-overlap threshold.
func (w WorkflowConfig) Threshold() int64 {
	if w.NonOverlapThreshold <= 0 {
		return DefaultNonOverlapThreshold
	}
	return w.NonOverlapThreshold
}

// IntervalDuration returns the parsed minimum interval between jobs.
func (b BisectionConfig) IntervalDuration() (time.Duration, error) {
	return parseDuration("bisection.interval", b.Interval, DefaultBisectionInterval)
}

// IntervalDuration returns the parsed tick interval.
func (s SchedulerConfig) IntervalDuration() (time.Duration, error) {
	return parseDuration("scheduler.interval", s.Interval, DefaultSchedulerInterval)
}

// Validate returns an error if the config can't be used. Call it after the
// document has passed schema validation.
func (c *InstanceConfig) Validate() error {
	if !c.Database.Local && c.Database.ConnectionString == "" {
		return skerr.Fmt("database.connection_string is required unless database.local is set.")
	}
	if c.Database.ConnectionString != "" && !strings.HasPrefix(c.Database.ConnectionString, "postgresql://") {
		return skerr.Fmt("database.connection_string must be a postgresql:// URL.")
	}
	if c.Workflow.ServiceAccount == "" {
		return skerr.Fmt("workflow.service_account is required.")
	}
	if c.Workflow.SandwichVerificationEnabled && c.Verification == nil {
		return skerr.Fmt("verification must be configured when workflow.sandwich_verification_enabled is set.")
	}
	if c.SheriffConfig.Path == "" {
		return skerr.Fmt("sheriff_config.path is required.")
	}
	if c.Scheduler.Parallelism < 0 {
		return skerr.Fmt("scheduler.parallelism must not be negative.")
	}
	if _, err := c.Workflow.ActiveWindowDuration(); err != nil {
		return err
	}
	if _, err := c.Workflow.TriageDelayDuration(); err != nil {
		return err
	}
	if _, err := c.Bisection.IntervalDuration(); err != nil {
		return err
	}
	if _, err := c.Scheduler.IntervalDuration(); err != nil {
		return err
	}
	return nil
}

// Parse validates the JSON document against the schema of InstanceConfig and
// then decodes and validates it.
func Parse(ctx context.Context, b []byte) (*InstanceConfig, error) {
	schema, err := jsonschema.SchemaFor(&InstanceConfig{})
	if err != nil {
		return nil, err
	}
	violations, err := jsonschema.Validate(ctx, b, schema)
	if err != nil {
		for _, v := range violations {
			sklog.Errorf("Config violation: %s", v)
		}
		return nil, skerr.Wrapf(err, "config does not match the schema: %s", strings.Join(violations, "; "))
	}
	var cfg InstanceConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, skerr.Wrapf(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InstanceConfigFromFile loads and validates the config in filename.
func InstanceConfigFromFile(ctx context.Context, filename string) (*InstanceConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, skerr.Wrapf(err, "reading config %q", filename)
	}
	cfg, err := Parse(ctx, b)
	if err != nil {
		return nil, skerr.Wrapf(err, "loading config %q", filename)
	}
	return cfg, nil
}

// Flags are the command line flags of the server.
type Flags struct {
	ConfigFilename string
	Local          bool
	Port           string
	PromPort       string
	NoScheduler    bool
}

// Register the flags in the given FlagSet.
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigFilename, "config_filename", "./alertgroup/configs/local.json", "Instance config file.")
	fs.BoolVar(&f.Local, "local", false, "Running locally: use in-memory stores and unauthenticated clients.")
	fs.StringVar(&f.Port, "port", ":8000", "HTTP service address (e.g., ':8000')")
	fs.StringVar(&f.PromPort, "prom_port", ":20000", "Metrics service address (e.g., ':10110')")
	fs.BoolVar(&f.NoScheduler, "no_scheduler", false, "Don't process groups periodically, only when asked over HTTP.")
}
