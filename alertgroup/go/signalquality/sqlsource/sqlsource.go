// Package sqlsource implements signalquality.Source on top of the
// SignalQualityScores table.
package sqlsource

import (
	"context"

	"github.com/jackc/pgx/v4"
	"go.skia.org/alertgroups/alertgroup/go/signalquality"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sql/pool"
)

// statement is an SQL statement identifier.
type statement int

const (
	getScore statement = iota
	upsertScore
)

// statements holds all the raw SQL statemens.
var statements = map[statement]string{
	getScore: `
		SELECT
			score
		FROM
			SignalQualityScores
		WHERE
			test_path=$1
	`,
	upsertScore: `
		UPSERT INTO
			SignalQualityScores (test_path, score, updated_at)
		VALUES
			($1, $2, now())
	`,
}

// Source implements signalquality.Source.
type Source struct {
	db pool.Pool
}

// New returns a new *Source.
func New(db pool.Pool) *Source {
	return &Source{
		db: db,
	}
}

// GetScore implements signalquality.Source.
func (s *Source) GetScore(ctx context.Context, testPath string) (float64, bool, error) {
	var score float64
	if err := s.db.QueryRow(ctx, statements[getScore], testPath).Scan(&score); err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, skerr.Wrapf(err, "Failed to load signal quality score for %q", testPath)
	}
	return score, true, nil
}

// PutScore implements signalquality.Source.
func (s *Source) PutScore(ctx context.Context, testPath string, score float64) error {
	if testPath == "" {
		return skerr.Fmt("Test path cannot be empty strings.")
	}
	if _, err := s.db.Exec(ctx, statements[upsertScore], testPath, score); err != nil {
		return skerr.Wrapf(err, "Failed to write signal quality score for %q", testPath)
	}
	return nil
}

var _ signalquality.Source = (*Source)(nil)
