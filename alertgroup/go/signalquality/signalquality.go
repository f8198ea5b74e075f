// Package signalquality provides the per-test signal quality scores used to
// rank regressions for bisection.
package signalquality

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"go.skia.org/alertgroups/go/metrics2"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sklog"
)

// DefaultScore is used for tests without a recorded score.
const DefaultScore = 0.6

const cacheSize = 5000

// Source is the backing storage for scores.
type Source interface {
	// GetScore returns the score for the test path. found is false if the
	// test has no score.
	GetScore(ctx context.Context, testPath string) (score float64, found bool, err error)

	// PutScore records the score for the test path.
	PutScore(ctx context.Context, testPath string, score float64) error
}

// Store returns scores from a Source, caching them in memory.
type Store struct {
	source Source
	cache  *lru.Cache

	lookupFailed metrics2.Counter
}

// New returns a new *Store.
func New(source Source) (*Store, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, skerr.Wrap(err)
	}
	return &Store{
		source:       source,
		cache:        cache,
		lookupFailed: metrics2.GetCounter("signalquality_lookup_failed"),
	}, nil
}

// GetScore returns the score for the test path, or DefaultScore if it has
// none or it couldn't be read. Failed lookups are not cached.
func (s *Store) GetScore(ctx context.Context, testPath string) float64 {
	if v, ok := s.cache.Get(testPath); ok {
		return v.(float64)
	}
	score, found, err := s.source.GetScore(ctx, testPath)
	if err != nil {
		s.lookupFailed.Inc(1)
		sklog.Warningf("Failed to load signal quality score for %q: %s", testPath, err)
		return DefaultScore
	}
	if !found {
		score = DefaultScore
	}
	s.cache.Add(testPath, score)
	return score
}
