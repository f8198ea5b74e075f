// Package types holds the data model shared by the alert grouping stores,
// the grouping engine and the workflow engine.
package types

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// UngroupedGroupID is the id of the reserved group that collects anomalies
	// which have not been assigned to a typed group yet.
	UngroupedGroupID = "0"

	// UngroupedGroupName is the name of the reserved Ungrouped group.
	UngroupedGroupName = "Ungrouped"

	// DefaultProjectID is used when an anomaly matches no subscription.
	DefaultProjectID = "chromium"
)

// Direction of a change in a measurement.
type Direction string

const (
	Up   Direction = "UP"
	Down Direction = "DOWN"
)

// GroupType describes how the members of an AlertGroup were chosen.
type GroupType string

const (
	TestSuite GroupType = "test_suite"
	// Logical is accepted when reading stored groups but never created.
	Logical  GroupType = "logical"
	Reserved GroupType = "reserved"
)

// AllGroupTypes is the list of all GroupType values.
var AllGroupTypes = []GroupType{TestSuite, Logical, Reserved}

// Status is the triage state of an AlertGroup.
type Status string

const (
	Unknown    Status = "unknown"
	Untriaged  Status = "untriaged"
	Triaged    Status = "triaged"
	Sandwiched Status = "sandwiched"
	Bisected   Status = "bisected"
	Closed     Status = "closed"
)

// AllStatus is the list of all Status values.
var AllStatus = []Status{Unknown, Untriaged, Triaged, Sandwiched, Bisected, Closed}

// ToStatus converts a string into a Status, returning Unknown for values that
// aren't recognized.
func ToStatus(s string) Status {
	for _, st := range AllStatus {
		if string(st) == s {
			return st
		}
	}
	return Unknown
}

// Visibility of a subscription, which controls the restrict labels on bugs.
type Visibility string

const (
	Public       Visibility = "PUBLIC"
	InternalOnly Visibility = "INTERNAL_ONLY"
)

// BugReference identifies a bug in a specific issue tracker project.
type BugReference struct {
	Project string `json:"project"`
	ID      int64  `json:"id"`
}

// String returns the reference as "project:id".
func (b BugReference) String() string {
	return fmt.Sprintf("%s:%d", b.Project, b.ID)
}

// IsZero returns true if the reference doesn't point at a bug.
func (b BugReference) IsZero() bool {
	return b.ID == 0
}

// Ownership is the owner information reported by the benchmark for a test.
type Ownership struct {
	Component string   `json:"component,omitempty"`
	Emails    []string `json:"emails,omitempty"`
	InfoBlurb string   `json:"info_blurb,omitempty"`
}

// Subscription is a sheriff subscription. Anomalies whose test path matches a
// subscription are triaged according to its settings.
type Subscription struct {
	Name             string     `json:"name" yaml:"name"`
	ProjectID        string     `json:"project_id" yaml:"project_id"`
	BugLabels        []string   `json:"bug_labels" yaml:"bug_labels"`
	BugComponents    []string   `json:"bug_components" yaml:"bug_components"`
	BugCCEmails      []string   `json:"bug_cc_emails" yaml:"bug_cc_emails"`
	Visibility       Visibility `json:"visibility" yaml:"visibility"`
	AutoTriageEnable bool       `json:"auto_triage" yaml:"auto_triage"`
	AutoBisectEnable bool       `json:"auto_bisect" yaml:"auto_bisect"`
	AutoMergeEnable  bool       `json:"auto_merge" yaml:"auto_merge"`
	DelayReporting   bool       `json:"delay_reporting" yaml:"delay_reporting"`
}

// Anomaly is a single detected change in a measurement.
type Anomaly struct {
	ID string `json:"id"`

	// TestPath is of the form master/bot/benchmark/measurement[/story...].
	TestPath      string    `json:"test_path"`
	StartRevision int64     `json:"start_revision"`
	EndRevision   int64     `json:"end_revision"`
	Statistic     string    `json:"statistic"`
	MedianBefore  float64   `json:"median_before"`
	MedianAfter   float64   `json:"median_after"`
	AbsoluteDelta float64   `json:"absolute_delta"`
	Direction     Direction `json:"direction"`
	IsImprovement bool      `json:"is_improvement"`
	Recovered     bool      `json:"recovered"`
	Ownership     Ownership `json:"ownership"`

	// AlertGrouping overrides the group names derived from the benchmark.
	AlertGrouping []string `json:"alert_grouping,omitempty"`

	Bug             *BugReference `json:"bug,omitempty"`
	Groups          []string      `json:"groups"`
	PinpointBisects []string      `json:"pinpoint_bisects,omitempty"`
	Source          string        `json:"source,omitempty"`
	Internal        bool          `json:"internal"`
	Timestamp       time.Time     `json:"timestamp"`

	// Populated from sheriff config before a workflow pass, never stored.
	Subscriptions    []*Subscription `json:"-"`
	AutoTriageEnable bool            `json:"-"`
	AutoMergeEnable  bool            `json:"-"`
	AutoBisectEnable bool            `json:"-"`
}

// RelativeDelta is |AbsoluteDelta / MedianBefore|, or +Inf if there is no
// baseline.
func (a *Anomaly) RelativeDelta() float64 {
	if a.MedianBefore == 0 {
		return math.Inf(1)
	}
	return math.Abs(a.AbsoluteDelta / a.MedianBefore)
}

func (a *Anomaly) segment(i int) string {
	parts := strings.Split(a.TestPath, "/")
	if i >= len(parts) {
		return ""
	}
	return parts[i]
}

// Master is the first segment of the test path.
func (a *Anomaly) Master() string {
	return a.segment(0)
}

// BotName is the second segment of the test path.
func (a *Anomaly) BotName() string {
	return a.segment(1)
}

// BenchmarkName is the third segment of the test path.
func (a *Anomaly) BenchmarkName() string {
	return a.segment(2)
}

// Measurement is the fourth segment of the test path.
func (a *Anomaly) Measurement() string {
	return a.segment(3)
}

// Story is the last segment of the test path, if the path has more than four
// segments.
func (a *Anomaly) Story() string {
	parts := strings.Split(a.TestPath, "/")
	if len(parts) < 5 {
		return ""
	}
	return parts[len(parts)-1]
}

// InGroup returns true if the anomaly is linked to the given group.
func (a *Anomaly) InGroup(groupID string) bool {
	for _, g := range a.Groups {
		if g == groupID {
			return true
		}
	}
	return false
}

// Copy returns a deep copy of the persisted fields. Transient fields are
// copied by reference.
func (a *Anomaly) Copy() *Anomaly {
	ret := *a
	ret.Ownership.Emails = copyStrings(a.Ownership.Emails)
	ret.AlertGrouping = copyStrings(a.AlertGrouping)
	ret.Groups = copyStrings(a.Groups)
	ret.PinpointBisects = copyStrings(a.PinpointBisects)
	if a.Bug != nil {
		bug := *a.Bug
		ret.Bug = &bug
	}
	return &ret
}

// RevisionRange is an inclusive range of revisions in a repository.
type RevisionRange struct {
	Repository string `json:"repository"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
}

// Overlaps returns true if the two inclusive ranges share at least one
// revision.
func (r RevisionRange) Overlaps(other RevisionRange) bool {
	return max(r.Start, other.Start) <= min(r.End, other.End)
}

// NonOverlap is the length of the union of the two ranges minus the length of
// their intersection. It is only meaningful for ranges that overlap.
func (r RevisionRange) NonOverlap(other RevisionRange) int64 {
	union := max(r.End, other.End) - min(r.Start, other.Start)
	intersection := min(r.End, other.End) - max(r.Start, other.Start)
	return union - intersection
}

// AlertGroup is a durable cluster of related anomalies.
type AlertGroup struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Domain           string    `json:"domain"`
	GroupType        GroupType `json:"group_type"`
	SubscriptionName string    `json:"subscription_name"`
	ProjectID        string    `json:"project_id"`
	Active           bool      `json:"active"`
	Status           Status    `json:"status"`
	Created          time.Time `json:"created"`
	Updated          time.Time `json:"updated"`

	Bug *BugReference `json:"bug,omitempty"`

	// CanonicalGroup is the id of the group this one was merged into, or ""
	// if it hasn't been merged. The referenced group may no longer exist.
	CanonicalGroup string `json:"canonical_group,omitempty"`

	Anomalies                      []string      `json:"anomalies"`
	BisectionIDs                   []string      `json:"bisection_ids,omitempty"`
	SandwichVerificationWorkflowID string        `json:"sandwich_verification_workflow_id,omitempty"`
	Revision                       RevisionRange `json:"revision"`
}

// IsReserved returns true for the Ungrouped group.
func (g *AlertGroup) IsReserved() bool {
	return g.GroupType == Reserved || g.ID == UngroupedGroupID
}

// HasBug returns true if a bug has been filed for the group.
func (g *AlertGroup) HasBug() bool {
	return g.Bug != nil && !g.Bug.IsZero()
}

// Copy returns a deep copy of the group.
func (g *AlertGroup) Copy() *AlertGroup {
	ret := *g
	ret.Anomalies = copyStrings(g.Anomalies)
	ret.BisectionIDs = copyStrings(g.BisectionIDs)
	if g.Bug != nil {
		bug := *g.Bug
		ret.Bug = &bug
	}
	return &ret
}

// NewUngroupedGroup returns the reserved Ungrouped group.
func NewUngroupedGroup(now time.Time) *AlertGroup {
	return &AlertGroup{
		ID:        UngroupedGroupID,
		Name:      UngroupedGroupName,
		GroupType: Reserved,
		Active:    true,
		Status:    Unknown,
		Created:   now,
		Updated:   now,
		Anomalies: []string{},
	}
}

// BugUpdateDetails are the components, cc's and labels to apply to a bug.
type BugUpdateDetails struct {
	Components []string
	CCs        []string
	Labels     []string
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	ret := make([]string, len(s))
	copy(ret, s)
	return ret
}
