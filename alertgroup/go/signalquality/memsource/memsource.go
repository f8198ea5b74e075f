// Package memsource is an in-memory signalquality.Source.
package memsource

import (
	"context"
	"sync"

	"go.skia.org/alertgroups/alertgroup/go/signalquality"
)

// Source implements signalquality.Source.
type Source struct {
	mutex  sync.RWMutex
	scores map[string]float64
}

// New returns a new empty *Source.
func New() *Source {
	return &Source{
		scores: map[string]float64{},
	}
}

// GetScore implements signalquality.Source.
func (s *Source) GetScore(ctx context.Context, testPath string) (float64, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	score, ok := s.scores[testPath]
	return score, ok, nil
}

// PutScore implements signalquality.Source.
func (s *Source) PutScore(ctx context.Context, testPath string, score float64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.scores[testPath] = score
	return nil
}

var _ signalquality.Source = (*Source)(nil)
