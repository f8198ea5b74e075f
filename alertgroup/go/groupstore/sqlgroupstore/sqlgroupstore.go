// Package sqlgroupstore implements groupstore.Store using an SQL database.
package sqlgroupstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"go.skia.org/alertgroups/alertgroup/go/groupstore"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/now"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sql/pool"
)

// statement is an SQL statement identifier.
type statement int

const (
	// The identifiers for all the SQL statements used.
	getGroup statement = iota
	upsertGroup
	insertIfMissing
	findGroups
	findByBug
	listActive
)

const columns = `
			id, name, domain, group_type, subscription_name, project_id, active,
			status, created_at, updated_at, bug_project, bug_id, canonical_group,
			anomaly_ids, bisection_ids, sandwich_verification_workflow_id,
			revision_repository, revision_start, revision_end`

const placeholders = `
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19`

// statements holds all the raw SQL statemens.
var statements = map[statement]string{
	getGroup: `
		SELECT` + columns + `
		FROM
			AlertGroups
		WHERE
			id=$1
	`,
	upsertGroup: `
		UPSERT INTO
			AlertGroups (` + columns + `)
		VALUES
			(` + placeholders + `)
	`,
	insertIfMissing: `
		INSERT INTO
			AlertGroups (` + columns + `)
		VALUES
			(` + placeholders + `)
		ON CONFLICT (id) DO NOTHING
	`,
	findGroups: `
		SELECT` + columns + `
		FROM
			AlertGroups
		WHERE
			name=$1
			AND group_type=$2
			AND domain=$3
			AND subscription_name=$4
			AND project_id=$5
			AND (active OR NOT $6)
		ORDER BY
			create_seq
	`,
	findByBug: `
		SELECT` + columns + `
		FROM
			AlertGroups
		WHERE
			bug_project=$1
			AND bug_id=$2
			AND (active OR NOT $3)
		ORDER BY
			create_seq
	`,
	listActive: `
		SELECT` + columns + `
		FROM
			AlertGroups
		WHERE
			active
		ORDER BY
			create_seq
	`,
}

// GroupStore implements the groupstore.Store interface using an SQL
// database.
type GroupStore struct {
	db pool.Pool
}

// New returns a new *GroupStore.
func New(db pool.Pool) *GroupStore {
	return &GroupStore{
		db: db,
	}
}

func scan(row pgx.Row) (*types.AlertGroup, error) {
	g := &types.AlertGroup{}
	var groupType, status, bugProject string
	var bugID int64
	if err := row.Scan(
		&g.ID,
		&g.Name,
		&g.Domain,
		&groupType,
		&g.SubscriptionName,
		&g.ProjectID,
		&g.Active,
		&status,
		&g.Created,
		&g.Updated,
		&bugProject,
		&bugID,
		&g.CanonicalGroup,
		&g.Anomalies,
		&g.BisectionIDs,
		&g.SandwichVerificationWorkflowID,
		&g.Revision.Repository,
		&g.Revision.Start,
		&g.Revision.End,
	); err != nil {
		return nil, err
	}
	g.GroupType = types.GroupType(groupType)
	g.Status = types.ToStatus(status)
	if bugID != 0 {
		g.Bug = &types.BugReference{Project: bugProject, ID: bugID}
	}
	if g.Anomalies == nil {
		g.Anomalies = []string{}
	}
	return g, nil
}

func args(g *types.AlertGroup) []interface{} {
	bugProject, bugID := "", int64(0)
	if g.Bug != nil {
		bugProject, bugID = g.Bug.Project, g.Bug.ID
	}
	anomalies := g.Anomalies
	if anomalies == nil {
		anomalies = []string{}
	}
	bisections := g.BisectionIDs
	if bisections == nil {
		bisections = []string{}
	}
	return []interface{}{
		g.ID,
		g.Name,
		g.Domain,
		string(g.GroupType),
		g.SubscriptionName,
		g.ProjectID,
		g.Active,
		string(g.Status),
		g.Created,
		g.Updated,
		bugProject,
		bugID,
		g.CanonicalGroup,
		anomalies,
		bisections,
		g.SandwichVerificationWorkflowID,
		g.Revision.Repository,
		g.Revision.Start,
		g.Revision.End,
	}
}

// Get implements the groupstore.Store interface.
func (s *GroupStore) Get(ctx context.Context, id string) (*types.AlertGroup, error) {
	g, err := scan(s.db.QueryRow(ctx, statements[getGroup], id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, skerr.Wrapf(err, "Failed to load alert group %q", id)
	}
	return g, nil
}

// Put implements the groupstore.Store interface.
func (s *GroupStore) Put(ctx context.Context, group *types.AlertGroup) error {
	if err := groupstore.Validate(group); err != nil {
		return err
	}
	if group.Updated.IsZero() {
		group.Updated = now.Now(ctx)
	}
	if _, err := s.db.Exec(ctx, statements[upsertGroup], args(group)...); err != nil {
		return skerr.Wrapf(err, "Failed to write alert group %q", group.ID)
	}
	return nil
}

// Create implements the groupstore.Store interface.
func (s *GroupStore) Create(ctx context.Context, group *types.AlertGroup) (string, error) {
	if err := groupstore.Validate(group); err != nil {
		return "", err
	}
	ts := now.Now(ctx)
	group.ID = uuid.NewString()
	if group.Created.IsZero() {
		group.Created = ts
	}
	if group.Updated.IsZero() {
		group.Updated = ts
	}
	if _, err := s.db.Exec(ctx, statements[upsertGroup], args(group)...); err != nil {
		return "", skerr.Wrapf(err, "Failed to create alert group %q", group.Name)
	}
	return group.ID, nil
}

func (s *GroupStore) query(ctx context.Context, stmt statement, arguments ...interface{}) ([]*types.AlertGroup, error) {
	rows, err := s.db.Query(ctx, statements[stmt], arguments...)
	if err != nil {
		return nil, skerr.Wrap(err)
	}
	defer rows.Close()
	ret := []*types.AlertGroup{}
	for rows.Next() {
		g, err := scan(rows)
		if err != nil {
			return nil, skerr.Wrapf(err, "Failed to read alert group row")
		}
		ret = append(ret, g)
	}
	if err := rows.Err(); err != nil {
		return nil, skerr.Wrap(err)
	}
	return ret, nil
}

// Find implements the groupstore.Store interface.
func (s *GroupStore) Find(ctx context.Context, q groupstore.FindQuery) ([]*types.AlertGroup, error) {
	ret, err := s.query(ctx, findGroups, q.Name, string(q.GroupType), q.Domain, q.SubscriptionName, q.ProjectID, q.ActiveOnly)
	if err != nil {
		return nil, skerr.Wrapf(err, "Failed to find alert groups for %+v", q)
	}
	return ret, nil
}

// FindByBug implements the groupstore.Store interface.
func (s *GroupStore) FindByBug(ctx context.Context, bug types.BugReference, activeOnly bool) ([]*types.AlertGroup, error) {
	ret, err := s.query(ctx, findByBug, bug.Project, bug.ID, activeOnly)
	if err != nil {
		return nil, skerr.Wrapf(err, "Failed to find alert groups for bug %s", bug)
	}
	return ret, nil
}

// ListActive implements the groupstore.Store interface.
func (s *GroupStore) ListActive(ctx context.Context) ([]*types.AlertGroup, error) {
	ret, err := s.query(ctx, listActive)
	if err != nil {
		return nil, skerr.Wrapf(err, "Failed to list active alert groups")
	}
	return ret, nil
}

// GetOrCreateUngrouped implements the groupstore.Store interface.
func (s *GroupStore) GetOrCreateUngrouped(ctx context.Context) (*types.AlertGroup, error) {
	g := types.NewUngroupedGroup(now.Now(ctx))
	if _, err := s.db.Exec(ctx, statements[insertIfMissing], args(g)...); err != nil {
		return nil, skerr.Wrapf(err, "Failed to create the Ungrouped group")
	}
	ret, err := s.Get(ctx, types.UngroupedGroupID)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, skerr.Fmt("Ungrouped group missing after insert")
	}
	return ret, nil
}

// Confirm GroupStore implements groupstore.Store.
var _ groupstore.Store = (*GroupStore)(nil)
