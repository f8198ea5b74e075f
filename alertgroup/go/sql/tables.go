// Package sql holds the SQL schema for all the tables used by the alert
// grouping service.
package sql

import (
	"context"
	"strings"

	anomalyschema "go.skia.org/alertgroups/alertgroup/go/anomalystore/sqlanomalystore/schema"
	groupschema "go.skia.org/alertgroups/alertgroup/go/groupstore/sqlgroupstore/schema"
	sqschema "go.skia.org/alertgroups/alertgroup/go/signalquality/sqlsource/schema"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sql/pool"
	"go.skia.org/alertgroups/go/sql/schema"
)

// Tables represents all SQL tables used by the service.
type Tables struct {
	AlertGroups         []groupschema.AlertGroupSchema
	Anomalies           []anomalyschema.AnomalySchema
	SignalQualityScores []sqschema.SignalQualityScoreSchema
}

// Schema is the SQL that creates every table in Tables. Keep it in sync with
// the sql struct tags of the schema packages.
const Schema = `CREATE TABLE IF NOT EXISTS AlertGroups (
  id STRING PRIMARY KEY,
  name STRING NOT NULL,
  domain STRING NOT NULL DEFAULT '',
  group_type STRING NOT NULL,
  subscription_name STRING NOT NULL DEFAULT '',
  project_id STRING NOT NULL DEFAULT '',
  active BOOL NOT NULL DEFAULT true,
  status STRING NOT NULL DEFAULT 'unknown',
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  bug_project STRING NOT NULL DEFAULT '',
  bug_id INT NOT NULL DEFAULT 0,
  canonical_group STRING NOT NULL DEFAULT '',
  anomaly_ids STRING ARRAY,
  bisection_ids STRING ARRAY,
  sandwich_verification_workflow_id STRING NOT NULL DEFAULT '',
  revision_repository STRING NOT NULL DEFAULT '',
  revision_start INT NOT NULL DEFAULT 0,
  revision_end INT NOT NULL DEFAULT 0,
  create_seq INT NOT NULL DEFAULT unique_rowid(),
  INDEX by_identity (name, group_type, domain, subscription_name, project_id, active),
  INDEX by_bug (bug_project, bug_id),
  INDEX by_active (active, create_seq)
);
CREATE TABLE IF NOT EXISTS Anomalies (
  id STRING PRIMARY KEY,
  test_path STRING NOT NULL,
  start_revision INT NOT NULL,
  end_revision INT NOT NULL,
  statistic STRING NOT NULL DEFAULT '',
  median_before FLOAT NOT NULL DEFAULT 0,
  median_after FLOAT NOT NULL DEFAULT 0,
  absolute_delta FLOAT NOT NULL DEFAULT 0,
  direction STRING NOT NULL DEFAULT '',
  is_improvement BOOL NOT NULL DEFAULT false,
  recovered BOOL NOT NULL DEFAULT false,
  owner_component STRING NOT NULL DEFAULT '',
  owner_emails STRING ARRAY,
  owner_info_blurb STRING NOT NULL DEFAULT '',
  alert_grouping STRING ARRAY,
  bug_project STRING NOT NULL DEFAULT '',
  bug_id INT NOT NULL DEFAULT 0,
  group_ids STRING ARRAY,
  pinpoint_bisects STRING ARRAY,
  source STRING NOT NULL DEFAULT '',
  internal BOOL NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL,
  INVERTED INDEX by_group (group_ids)
);
CREATE TABLE IF NOT EXISTS SignalQualityScores (
  test_path STRING PRIMARY KEY,
  score FLOAT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// CreateTables applies Schema to the database. It is safe to call on a
// database that already has the tables.
func CreateTables(ctx context.Context, db pool.Pool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return skerr.Wrapf(err, "creating tables")
	}
	return nil
}

// ValidateSchema returns an error if a column declared in Tables is missing
// from the database, which happens when a table was created by an older
// version of Schema.
func ValidateSchema(ctx context.Context, db pool.Pool) error {
	desc, err := schema.GetDescription(ctx, db, Tables{})
	if err != nil {
		return skerr.Wrapf(err, "describing tables")
	}
	missing := []string{}
	for _, col := range schema.ColumnNames(Tables{}) {
		if _, ok := desc.ColumnNameAndType[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return skerr.Fmt("Database is missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
