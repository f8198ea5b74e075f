// Package sqlanomalystore implements anomalystore.Store using an SQL database.
package sqlanomalystore

import (
	"context"

	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgx"
	"github.com/jackc/pgx/v4"
	"go.skia.org/alertgroups/alertgroup/go/anomalystore"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sql/pool"
	"go.skia.org/alertgroups/go/sql/sqlutil"
)

// statement is an SQL statement identifier.
type statement int

const (
	// The identifiers for all the SQL statements used.
	getAnomaly statement = iota
	getAnomalies
	upsertAnomalies
	listByGroup
)

const selectColumns = `
			id, test_path, start_revision, end_revision, statistic,
			median_before, median_after, absolute_delta, direction,
			is_improvement, recovered, owner_component, owner_emails,
			owner_info_blurb, alert_grouping, bug_project, bug_id, group_ids,
			pinpoint_bisects, source, internal, created_at`

// valuesPerRow is the number of columns written by upsertAnomalies.
const valuesPerRow = 22

// statements holds all the raw SQL statemens.
var statements = map[statement]string{
	getAnomaly: `
		SELECT` + selectColumns + `
		FROM
			Anomalies
		WHERE
			id=$1
	`,
	getAnomalies: `
		SELECT` + selectColumns + `
		FROM
			Anomalies
		WHERE
			id = ANY($1)
	`,
	// The VALUES placeholders are appended at runtime.
	upsertAnomalies: `
		UPSERT INTO
			Anomalies (` + selectColumns + `)
		VALUES
	`,
	listByGroup: `
		SELECT` + selectColumns + `
		FROM
			Anomalies
		WHERE
			group_ids @> ARRAY[$1]
		ORDER BY
			id
	`,
}

// batchSize keeps a single upsert well under the 65k placeholder limit.
const batchSize = 1000

// AnomalyStore implements the anomalystore.Store interface using an SQL
// database.
type AnomalyStore struct {
	db pool.Pool
}

// New returns a new *AnomalyStore.
func New(db pool.Pool) *AnomalyStore {
	return &AnomalyStore{
		db: db,
	}
}

func scan(row pgx.Row) (*types.Anomaly, error) {
	a := &types.Anomaly{}
	var direction, bugProject string
	var bugID int64
	if err := row.Scan(
		&a.ID,
		&a.TestPath,
		&a.StartRevision,
		&a.EndRevision,
		&a.Statistic,
		&a.MedianBefore,
		&a.MedianAfter,
		&a.AbsoluteDelta,
		&direction,
		&a.IsImprovement,
		&a.Recovered,
		&a.Ownership.Component,
		&a.Ownership.Emails,
		&a.Ownership.InfoBlurb,
		&a.AlertGrouping,
		&bugProject,
		&bugID,
		&a.Groups,
		&a.PinpointBisects,
		&a.Source,
		&a.Internal,
		&a.Timestamp,
	); err != nil {
		return nil, err
	}
	a.Direction = types.Direction(direction)
	if bugID != 0 {
		a.Bug = &types.BugReference{Project: bugProject, ID: bugID}
	}
	return a, nil
}

// Get implements the anomalystore.Store interface.
func (s *AnomalyStore) Get(ctx context.Context, id string) (*types.Anomaly, error) {
	a, err := scan(s.db.QueryRow(ctx, statements[getAnomaly], id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, skerr.Wrapf(err, "Failed to load anomaly %q", id)
	}
	return a, nil
}

// GetMulti implements the anomalystore.Store interface.
func (s *AnomalyStore) GetMulti(ctx context.Context, ids []string) ([]*types.Anomaly, error) {
	if len(ids) == 0 {
		return []*types.Anomaly{}, nil
	}
	rows, err := s.db.Query(ctx, statements[getAnomalies], ids)
	if err != nil {
		return nil, skerr.Wrapf(err, "Failed to load %d anomalies", len(ids))
	}
	defer rows.Close()
	byID := map[string]*types.Anomaly{}
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, skerr.Wrapf(err, "Failed to read anomaly row")
		}
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, skerr.Wrap(err)
	}
	ret := make([]*types.Anomaly, 0, len(byID))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			ret = append(ret, a)
		}
	}
	return ret, nil
}

// Put implements the anomalystore.Store interface.
func (s *AnomalyStore) Put(ctx context.Context, anomaly *types.Anomaly) error {
	return s.PutMulti(ctx, []*types.Anomaly{anomaly})
}

func args(a *types.Anomaly) []interface{} {
	bugProject, bugID := "", int64(0)
	if a.Bug != nil {
		bugProject, bugID = a.Bug.Project, a.Bug.ID
	}
	return []interface{}{
		a.ID,
		a.TestPath,
		a.StartRevision,
		a.EndRevision,
		a.Statistic,
		a.MedianBefore,
		a.MedianAfter,
		a.AbsoluteDelta,
		string(a.Direction),
		a.IsImprovement,
		a.Recovered,
		a.Ownership.Component,
		nonNil(a.Ownership.Emails),
		a.Ownership.InfoBlurb,
		nonNil(a.AlertGrouping),
		bugProject,
		bugID,
		nonNil(a.Groups),
		nonNil(a.PinpointBisects),
		a.Source,
		a.Internal,
		a.Timestamp,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// PutMulti implements the anomalystore.Store interface. All the anomalies
// are written in a single transaction.
func (s *AnomalyStore) PutMulti(ctx context.Context, anomalies []*types.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	for _, a := range anomalies {
		if err := anomalystore.Validate(a); err != nil {
			return err
		}
	}
	err := crdbpgx.ExecuteTx(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for start := 0; start < len(anomalies); start += batchSize {
			end := min(start+batchSize, len(anomalies))
			chunk := anomalies[start:end]
			arguments := make([]interface{}, 0, len(chunk)*valuesPerRow)
			for _, a := range chunk {
				arguments = append(arguments, args(a)...)
			}
			sql := statements[upsertAnomalies] + sqlutil.ValuesPlaceholders(valuesPerRow, len(chunk))
			if _, err := tx.Exec(ctx, sql, arguments...); err != nil {
				return err // Don't wrap - crdbpgx might retry
			}
		}
		return nil
	})
	if err != nil {
		return skerr.Wrapf(err, "Failed to write %d anomalies", len(anomalies))
	}
	return nil
}

// ListByGroup implements the anomalystore.Store interface.
func (s *AnomalyStore) ListByGroup(ctx context.Context, groupID string) ([]*types.Anomaly, error) {
	rows, err := s.db.Query(ctx, statements[listByGroup], groupID)
	if err != nil {
		return nil, skerr.Wrapf(err, "Failed to list anomalies for group %q", groupID)
	}
	defer rows.Close()
	ret := []*types.Anomaly{}
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, skerr.Wrapf(err, "Failed to read anomaly row")
		}
		ret = append(ret, a)
	}
	if err := rows.Err(); err != nil {
		return nil, skerr.Wrap(err)
	}
	return ret, nil
}

// Confirm AnomalyStore implements anomalystore.Store.
var _ anomalystore.Store = (*AnomalyStore)(nil)
