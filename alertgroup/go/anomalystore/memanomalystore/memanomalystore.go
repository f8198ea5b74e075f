// Package memanomalystore implements anomalystore.Store in memory.
package memanomalystore

import (
	"context"
	"sort"
	"sync"

	"go.skia.org/alertgroups/alertgroup/go/anomalystore"
	"go.skia.org/alertgroups/alertgroup/go/types"
)

// Store implements anomalystore.Store. All values are copied on the way in
// and out.
type Store struct {
	mutex     sync.RWMutex
	anomalies map[string]*types.Anomaly
}

// New returns a new empty *Store.
func New() *Store {
	return &Store{
		anomalies: map[string]*types.Anomaly{},
	}
}

// Get implements anomalystore.Store.
func (s *Store) Get(ctx context.Context, id string) (*types.Anomaly, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	a, ok := s.anomalies[id]
	if !ok {
		return nil, nil
	}
	return a.Copy(), nil
}

// GetMulti implements anomalystore.Store.
func (s *Store) GetMulti(ctx context.Context, ids []string) ([]*types.Anomaly, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ret := make([]*types.Anomaly, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.anomalies[id]; ok {
			ret = append(ret, a.Copy())
		}
	}
	return ret, nil
}

// Put implements anomalystore.Store.
func (s *Store) Put(ctx context.Context, anomaly *types.Anomaly) error {
	return s.PutMulti(ctx, []*types.Anomaly{anomaly})
}

// PutMulti implements anomalystore.Store. Either all anomalies are written or
// none are.
func (s *Store) PutMulti(ctx context.Context, anomalies []*types.Anomaly) error {
	for _, a := range anomalies {
		if err := anomalystore.Validate(a); err != nil {
			return err
		}
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, a := range anomalies {
		s.anomalies[a.ID] = a.Copy()
	}
	return nil
}

// ListByGroup implements anomalystore.Store. Results are sorted by id.
func (s *Store) ListByGroup(ctx context.Context, groupID string) ([]*types.Anomaly, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ret := []*types.Anomaly{}
	for _, a := range s.anomalies {
		if a.InGroup(groupID) {
			ret = append(ret, a.Copy())
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].ID < ret[j].ID
	})
	return ret, nil
}

// Confirm Store implements anomalystore.Store.
var _ anomalystore.Store = (*Store)(nil)
