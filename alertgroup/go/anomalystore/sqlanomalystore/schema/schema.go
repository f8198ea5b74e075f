package schema

import "time"

// AnomalySchema represents the SQL schema of the Anomalies table.
type AnomalySchema struct {
	ID string `sql:"id STRING PRIMARY KEY"`

	TestPath      string  `sql:"test_path STRING NOT NULL"`
	StartRevision int64   `sql:"start_revision INT NOT NULL"`
	EndRevision   int64   `sql:"end_revision INT NOT NULL"`
	Statistic     string  `sql:"statistic STRING NOT NULL DEFAULT ''"`
	MedianBefore  float64 `sql:"median_before FLOAT NOT NULL DEFAULT 0"`
	MedianAfter   float64 `sql:"median_after FLOAT NOT NULL DEFAULT 0"`
	AbsoluteDelta float64 `sql:"absolute_delta FLOAT NOT NULL DEFAULT 0"`
	Direction     string  `sql:"direction STRING NOT NULL DEFAULT ''"`
	IsImprovement bool    `sql:"is_improvement BOOL NOT NULL DEFAULT false"`
	Recovered     bool    `sql:"recovered BOOL NOT NULL DEFAULT false"`

	OwnerComponent string   `sql:"owner_component STRING NOT NULL DEFAULT ''"`
	OwnerEmails    []string `sql:"owner_emails STRING ARRAY"`
	OwnerInfoBlurb string   `sql:"owner_info_blurb STRING NOT NULL DEFAULT ''"`

	AlertGrouping []string `sql:"alert_grouping STRING ARRAY"`

	// An empty bug_project and a bug_id of 0 mean there is no bug.
	BugProject string `sql:"bug_project STRING NOT NULL DEFAULT ''"`
	BugID      int64  `sql:"bug_id INT NOT NULL DEFAULT 0"`

	// The ids of the AlertGroups this anomaly belongs to.
	GroupIDs []string `sql:"group_ids STRING ARRAY"`

	PinpointBisects []string  `sql:"pinpoint_bisects STRING ARRAY"`
	Source          string    `sql:"source STRING NOT NULL DEFAULT ''"`
	Internal        bool      `sql:"internal BOOL NOT NULL DEFAULT false"`
	CreatedAt       time.Time `sql:"created_at TIMESTAMPTZ NOT NULL"`

	byGroupIndex struct{} `sql:"INVERTED INDEX by_group (group_ids)"`
}
