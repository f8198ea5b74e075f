// Package anomalystore defines the interface for persisting anomalies.
package anomalystore

import (
	"context"
	"strings"

	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/skerr"
)

// Store persists Anomalies.
type Store interface {
	// Get returns the anomaly with the given id, or nil if it doesn't exist.
	Get(ctx context.Context, id string) (*types.Anomaly, error)

	// GetMulti returns the anomalies with the given ids in the same order.
	// Ids that don't exist are skipped.
	GetMulti(ctx context.Context, ids []string) ([]*types.Anomaly, error)

	// Put writes the anomaly, overwriting any existing value.
	Put(ctx context.Context, anomaly *types.Anomaly) error

	// PutMulti writes all the anomalies as a single batch.
	PutMulti(ctx context.Context, anomalies []*types.Anomaly) error

	// ListByGroup returns all the anomalies linked to the given group.
	ListByGroup(ctx context.Context, groupID string) ([]*types.Anomaly, error)
}

// minTestPathSegments is master/bot/benchmark/measurement.
const minTestPathSegments = 4

// Validate returns an error if the anomaly can't be stored.
func Validate(a *types.Anomaly) error {
	if a.ID == "" || a.TestPath == "" {
		return skerr.Fmt("Anomaly id and test path cannot be empty strings.")
	}
	parts := strings.Split(a.TestPath, "/")
	if len(parts) < minTestPathSegments {
		return skerr.Fmt("Anomaly %s test path %q must have at least master/bot/benchmark/measurement.", a.ID, a.TestPath)
	}
	for _, part := range parts[:minTestPathSegments] {
		if part == "" {
			return skerr.Fmt("Anomaly %s test path %q has an empty segment.", a.ID, a.TestPath)
		}
	}
	for _, name := range a.AlertGrouping {
		if strings.TrimSpace(name) == "" {
			return skerr.Fmt("Anomaly %s has an empty alert grouping name.", a.ID)
		}
	}
	if a.StartRevision < 0 || a.EndRevision < 0 {
		return skerr.Fmt("Anomaly %s has a negative commit position.", a.ID)
	}
	if a.EndRevision < a.StartRevision {
		return skerr.Fmt("Anomaly %s end revision %d is smaller than the start revision %d.", a.ID, a.EndRevision, a.StartRevision)
	}
	return nil
}
