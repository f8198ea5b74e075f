package schema

import "time"

// AlertGroupSchema represents the SQL schema of the AlertGroups table.
type AlertGroupSchema struct {
	ID string `sql:"id STRING PRIMARY KEY"`

	Name             string `sql:"name STRING NOT NULL"`
	Domain           string `sql:"domain STRING NOT NULL DEFAULT ''"`
	GroupType        string `sql:"group_type STRING NOT NULL"`
	SubscriptionName string `sql:"subscription_name STRING NOT NULL DEFAULT ''"`
	ProjectID        string `sql:"project_id STRING NOT NULL DEFAULT ''"`

	Active bool   `sql:"active BOOL NOT NULL DEFAULT true"`
	Status string `sql:"status STRING NOT NULL DEFAULT 'unknown'"`

	CreatedAt time.Time `sql:"created_at TIMESTAMPTZ NOT NULL"`
	UpdatedAt time.Time `sql:"updated_at TIMESTAMPTZ NOT NULL"`

	// An empty bug_project and a bug_id of 0 mean no bug has been filed.
	BugProject string `sql:"bug_project STRING NOT NULL DEFAULT ''"`
	BugID      int64  `sql:"bug_id INT NOT NULL DEFAULT 0"`

	// The id of the group this group was merged into, or ''.
	CanonicalGroup string `sql:"canonical_group STRING NOT NULL DEFAULT ''"`

	AnomalyIDs                     []string `sql:"anomaly_ids STRING ARRAY"`
	BisectionIDs                   []string `sql:"bisection_ids STRING ARRAY"`
	SandwichVerificationWorkflowID string   `sql:"sandwich_verification_workflow_id STRING NOT NULL DEFAULT ''"`

	RevisionRepository string `sql:"revision_repository STRING NOT NULL DEFAULT ''"`
	RevisionStart      int64  `sql:"revision_start INT NOT NULL DEFAULT 0"`
	RevisionEnd        int64  `sql:"revision_end INT NOT NULL DEFAULT 0"`

	// Monotonic insertion order, used to return groups oldest first.
	CreateSeq int64 `sql:"create_seq INT NOT NULL DEFAULT unique_rowid()"`

	byIdentityIndex struct{} `sql:"INDEX by_identity (name, group_type, domain, subscription_name, project_id, active)"`
	byBugIndex      struct{} `sql:"INDEX by_bug (bug_project, bug_id)"`
	byActiveIndex   struct{} `sql:"INDEX by_active (active, create_seq)"`
}
