// Package scheduler runs workflow passes over the active alert groups.
package scheduler

import (
	"context"
	"time"

	"go.skia.org/alertgroups/alertgroup/go/groupstore"
	"go.skia.org/alertgroups/alertgroup/go/types"
	"go.skia.org/alertgroups/go/ctxutil"
	"go.skia.org/alertgroups/go/metrics2"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sklog"
	"go.skia.org/alertgroups/go/util"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism is the number of groups processed at once if none is
// configured.
const DefaultParallelism = 4

// passTimeout bounds a single pass, and the grouping of Ungrouped anomalies.
const passTimeout = 5 * time.Minute

// Grouper moves anomalies out of the Ungrouped group.
type Grouper interface {
	ProcessUngrouped(ctx context.Context) (int, error)
}

// Processor runs one workflow pass over a group.
type Processor interface {
	Process(ctx context.Context, groupID string) (string, error)
}

// Scheduler runs passes. At most one pass per group is in flight in a
// process.
type Scheduler struct {
	groups      groupstore.Store
	grouper     Grouper
	processor   Processor
	parallelism int
	locks       *util.KeyedMutex

	ticks        metrics2.Counter
	groupsDone   metrics2.Counter
	groupsFailed metrics2.Counter
	groupsBusy   metrics2.Counter
	ungrouped    metrics2.Int64Metric
}

// New returns a new *Scheduler. A parallelism below 1 uses
// DefaultParallelism.
func New(groups groupstore.Store, grouper Grouper, processor Processor, parallelism int) *Scheduler {
	if parallelism < 1 {
		parallelism = DefaultParallelism
	}
	return &Scheduler{
		groups:       groups,
		grouper:      grouper,
		processor:    processor,
		parallelism:  parallelism,
		locks:        util.NewKeyedMutex(),
		ticks:        metrics2.GetCounter("alertgroup_scheduler_ticks"),
		groupsDone:   metrics2.GetCounter("alertgroup_scheduler_groups_processed"),
		groupsFailed: metrics2.GetCounter("alertgroup_scheduler_groups_failed"),
		groupsBusy:   metrics2.GetCounter("alertgroup_scheduler_groups_busy"),
		ungrouped:    metrics2.GetInt64Metric("alertgroup_scheduler_ungrouped_processed"),
	}
}

// ProcessGroup runs a pass over one group, waiting for any pass over the same
// group in this process to finish first.
func (s *Scheduler) ProcessGroup(ctx context.Context, groupID string) (string, error) {
	unlock := s.locks.Lock(groupID)
	defer unlock()
	ctx, cancel := context.WithTimeout(ctx, passTimeout)
	defer cancel()
	return s.processor.Process(ctx, groupID)
}

// Tick groups the Ungrouped anomalies and then runs a pass over every active
// group. A failure in one group is logged and doesn't stop the others.
// Groups that already have a pass in flight are skipped.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.ticks.Inc(1)
	ctxutil.WithContextTimeout(ctx, passTimeout, func(ctx context.Context) {
		n, err := s.grouper.ProcessUngrouped(ctx)
		if err != nil {
			sklog.Errorf("Failed to process ungrouped anomalies: %s", err)
			return
		}
		s.ungrouped.Update(int64(n))
	})

	var active []*types.AlertGroup
	var err error
	ctxutil.WithContextTimeout(ctx, passTimeout, func(ctx context.Context) {
		active, err = s.groups.ListActive(ctx)
	})
	if err != nil {
		return skerr.Wrapf(err, "listing active alert groups")
	}

	var eg errgroup.Group
	eg.SetLimit(s.parallelism)
	for _, g := range active {
		groupID := g.ID
		eg.Go(func() error {
			unlock, ok := s.locks.TryLock(groupID)
			if !ok {
				s.groupsBusy.Inc(1)
				return nil
			}
			defer unlock()
			if ctx.Err() != nil {
				return nil
			}
			ctxutil.WithContextTimeout(ctx, passTimeout, func(ctx context.Context) {
				if _, err := s.processor.Process(ctx, groupID); err != nil {
					sklog.Errorf("Failed to process alert group %s: %s", groupID, err)
					s.groupsFailed.Inc(1)
					return
				}
				s.groupsDone.Inc(1)
			})
			return nil
		})
	}
	_ = eg.Wait()
	return ctx.Err()
}

// Run calls Tick every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			sklog.Errorf("Alert group tick failed: %s", err)
		}
		select {
		case <-ctx.Done():
			sklog.Infof("Alert group scheduler stopped.")
			return
		case <-ticker.C:
		}
	}
}
