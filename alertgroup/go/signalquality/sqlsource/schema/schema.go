package schema

import "time"

// SignalQualityScoreSchema represents the SQL schema of the
// SignalQualityScores table.
type SignalQualityScoreSchema struct {
	// Full test path, e.g. ChromiumPerf/linux-perf/speedometer2/RunsPerMinute/story.
	TestPath string `sql:"test_path STRING PRIMARY KEY"`

	// Score in [0, 1], higher means the signal is more trustworthy.
	Score float64 `sql:"score FLOAT NOT NULL"`

	UpdatedAt time.Time `sql:"updated_at TIMESTAMPTZ NOT NULL DEFAULT now()"`
}
