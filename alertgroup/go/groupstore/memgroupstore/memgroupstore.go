// Package memgroupstore implements groupstore.Store in memory.
package memgroupstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.skia.org/alertgroups/alertgroup/go/groupstore"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/now"
)

// Store implements groupstore.Store. All values are copied on the way in and
// out.
type Store struct {
	mutex  sync.RWMutex
	groups map[string]*types.AlertGroup

	// order holds group ids in the order they were first stored.
	order []string
}

// New returns a new empty *Store.
func New() *Store {
	return &Store{
		groups: map[string]*types.AlertGroup{},
	}
}

// Get implements groupstore.Store.
func (s *Store) Get(ctx context.Context, id string) (*types.AlertGroup, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, nil
	}
	return g.Copy(), nil
}

// put must be called with the write lock held.
func (s *Store) put(g *types.AlertGroup) {
	if _, ok := s.groups[g.ID]; !ok {
		s.order = append(s.order, g.ID)
	}
	s.groups[g.ID] = g.Copy()
}

// Put implements groupstore.Store.
func (s *Store) Put(ctx context.Context, group *types.AlertGroup) error {
	if err := groupstore.Validate(group); err != nil {
		return err
	}
	if group.Updated.IsZero() {
		group.Updated = now.Now(ctx)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.put(group)
	return nil
}

// Create implements groupstore.Store.
func (s *Store) Create(ctx context.Context, group *types.AlertGroup) (string, error) {
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
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.put(group)
	return group.ID, nil
}

func (s *Store) filter(f func(g *types.AlertGroup) bool) []*types.AlertGroup {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ret := []*types.AlertGroup{}
	for _, id := range s.order {
		if g := s.groups[id]; f(g) {
			ret = append(ret, g.Copy())
		}
	}
	return ret
}

// Find implements groupstore.Store.
func (s *Store) Find(ctx context.Context, q groupstore.FindQuery) ([]*types.AlertGroup, error) {
	return s.filter(q.Matches), nil
}

// FindByBug implements groupstore.Store.
func (s *Store) FindByBug(ctx context.Context, bug types.BugReference, activeOnly bool) ([]*types.AlertGroup, error) {
	return s.filter(func(g *types.AlertGroup) bool {
		if activeOnly && !g.Active {
			return false
		}
		return g.Bug != nil && *g.Bug == bug
	}), nil
}

// ListActive implements groupstore.Store.
func (s *Store) ListActive(ctx context.Context) ([]*types.AlertGroup, error) {
	return s.filter(func(g *types.AlertGroup) bool {
		return g.Active
	}), nil
}

// GetOrCreateUngrouped implements groupstore.Store.
func (s *Store) GetOrCreateUngrouped(ctx context.Context) (*types.AlertGroup, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if g, ok := s.groups[types.UngroupedGroupID]; ok {
		return g.Copy(), nil
	}
	g := types.NewUngroupedGroup(now.Now(ctx))
	s.put(g)
	return g.Copy(), nil
}

// Confirm Store implements groupstore.Store.
var _ groupstore.Store = (*Store)(nil)
