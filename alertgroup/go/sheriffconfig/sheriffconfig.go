// Package sheriffconfig matches anomaly test paths to sheriff subscriptions.
package sheriffconfig

import (
	"context"
	"os"
	"path"
	"strings"

	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/skerr"
	"gopkg.in/yaml.v3"
)

// Matcher finds the subscriptions that apply to a test path.
type Matcher interface {
	// Match returns all the subscriptions whose patterns match the test
	// path. An empty slice means no subscription matched.
	Match(ctx context.Context, testPath string) ([]*types.Subscription, error)
}

// SubscriptionConfig is a single subscription in the YAML file.
type SubscriptionConfig struct {
	types.Subscription `yaml:",inline"`

	// Patterns are path.Match globs applied segment by segment to the test
	// path, e.g. "ChromiumPerf/*-perf/speedometer2/*". A pattern with fewer
	// segments than the test path matches on a prefix of the path.
	Patterns []string `yaml:"patterns"`

	// Exclude removes test paths that would otherwise match Patterns.
	Exclude []string `yaml:"exclude"`
}

// Config is the contents of a sheriff config YAML file.
type Config struct {
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
}

// Validate returns an error if the config is not usable.
func (c *Config) Validate() error {
	if len(c.Subscriptions) == 0 {
		return skerr.Fmt("Config must have at least one Subscription.")
	}
	seen := map[string]bool{}
	for i, sub := range c.Subscriptions {
		if sub.Name == "" {
			return skerr.Fmt("Error for Subscription at index %d: Missing name.", i)
		}
		if seen[sub.Name] {
			return skerr.Fmt("Error for Subscription at index %d: Duplicate name %q.", i, sub.Name)
		}
		seen[sub.Name] = true
		if len(sub.Patterns) == 0 {
			return skerr.Fmt("Error for Subscription at index %d: At least one pattern is required.", i)
		}
		for _, p := range append(append([]string{}, sub.Patterns...), sub.Exclude...) {
			if _, err := path.Match(p, ""); err != nil {
				return skerr.Fmt("Error for Subscription at index %d: Invalid pattern %q.", i, p)
			}
		}
		switch sub.Visibility {
		case "", types.Public, types.InternalOnly:
		default:
			return skerr.Fmt("Error for Subscription at index %d: Unknown visibility %q.", i, sub.Visibility)
		}
	}
	return nil
}

// Parse parses and validates a YAML sheriff config.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, skerr.Wrapf(err, "parsing sheriff config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for i := range cfg.Subscriptions {
		sub := &cfg.Subscriptions[i]
		if sub.ProjectID == "" {
			sub.ProjectID = types.DefaultProjectID
		}
		if sub.Visibility == "" {
			sub.Visibility = types.Public
		}
	}
	return &cfg, nil
}

// FileMatcher implements Matcher from a parsed Config.
type FileMatcher struct {
	cfg *Config
}

// New returns a *FileMatcher for the given config.
func New(cfg *Config) *FileMatcher {
	return &FileMatcher{cfg: cfg}
}

// NewFromFile reads and parses the YAML file at filename.
func NewFromFile(filename string) (*FileMatcher, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, skerr.Wrapf(err, "reading sheriff config %q", filename)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, skerr.Wrapf(err, "in file %q", filename)
	}
	return New(cfg), nil
}

func matches(pattern, testPath string) bool {
	n := strings.Count(pattern, "/") + 1
	parts := strings.Split(testPath, "/")
	if len(parts) < n {
		return false
	}
	ok, err := path.Match(pattern, strings.Join(parts[:n], "/"))
	return err == nil && ok
}

func matchesAny(patterns []string, testPath string) bool {
	for _, p := range patterns {
		if matches(p, testPath) {
			return true
		}
	}
	return false
}

// Match implements Matcher. Subscriptions are returned in config order, and
// each returned value is a copy.
func (m *FileMatcher) Match(ctx context.Context, testPath string) ([]*types.Subscription, error) {
	ret := []*types.Subscription{}
	for _, sub := range m.cfg.Subscriptions {
		if !matchesAny(sub.Patterns, testPath) || matchesAny(sub.Exclude, testPath) {
			continue
		}
		s := sub.Subscription
		ret = append(ret, &s)
	}
	return ret, nil
}

// Confirm FileMatcher implements Matcher.
var _ Matcher = (*FileMatcher)(nil)
