// Package groupstore defines the interface for persisting AlertGroups.
package groupstore

import (
	"context"

	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/skerr"
)

// FindQuery selects groups by identity. Empty strings match only groups with
// an empty value for that field.
type FindQuery struct {
	Name             string
	GroupType        types.GroupType
	Domain           string
	SubscriptionName string
	ProjectID        string
	ActiveOnly       bool
}

// Store persists AlertGroups.
type Store interface {
	// Get returns the group with the given id, or nil if it doesn't exist.
	Get(ctx context.Context, id string) (*types.AlertGroup, error)

	// Put writes the group, overwriting any existing value. Updated is only
	// set, to the current time, if it is zero.
	Put(ctx context.Context, group *types.AlertGroup) error

	// Create assigns a new id to the group, stores it, and returns the id.
	Create(ctx context.Context, group *types.AlertGroup) (string, error)

	// Find returns the groups matching the query, oldest first.
	Find(ctx context.Context, q FindQuery) ([]*types.AlertGroup, error)

	// FindByBug returns the groups associated with the given bug, oldest
	// first.
	FindByBug(ctx context.Context, bug types.BugReference, activeOnly bool) ([]*types.AlertGroup, error)

	// ListActive returns all active groups, oldest first.
	ListActive(ctx context.Context) ([]*types.AlertGroup, error)

	// GetOrCreateUngrouped returns the reserved Ungrouped group, creating it
	// if it doesn't exist yet. Concurrent callers all get the same group.
	GetOrCreateUngrouped(ctx context.Context) (*types.AlertGroup, error)
}

// Validate returns an error if the group can't be stored.
func Validate(g *types.AlertGroup) error {
	if g.Name == "" || g.GroupType == "" {
		return skerr.Fmt("Group name and type cannot be empty strings.")
	}
	if g.Revision.Start < 0 || g.Revision.End < 0 {
		return skerr.Fmt("Group %q has a negative commit position.", g.Name)
	}
	if g.Revision.End < g.Revision.Start {
		return skerr.Fmt("Group %q end revision %d is smaller than the start revision %d.", g.Name, g.Revision.End, g.Revision.Start)
	}
	return nil
}

// Matches returns true if the group matches the query.
func (q FindQuery) Matches(g *types.AlertGroup) bool {
	if q.ActiveOnly && !g.Active {
		return false
	}
	return g.Name == q.Name &&
		g.GroupType == q.GroupType &&
		g.Domain == q.Domain &&
		g.SubscriptionName == q.SubscriptionName &&
		g.ProjectID == q.ProjectID
}
