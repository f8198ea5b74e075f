package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type jobSchema struct {
	ID    string `sql:"id STRING PRIMARY KEY"`
	State string `sql:"state STRING NOT NULL DEFAULT ''"`

	// Not a column.
	Note string

	byStateIndex struct{} `sql:"INDEX by_state (state)"`
}

type eventSchema struct {
	JobID string `sql:"job_id STRING"`
}

type tables struct {
	Jobs   []jobSchema
	Events []eventSchema
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, []string{"jobs", "events"}, TableNames(tables{}))
}

func TestColumnNames_SkipsIndexesAndUntaggedFields(t *testing.T) {
	assert.Equal(t, []string{"jobs.id", "jobs.state", "events.job_id"}, ColumnNames(tables{}))
}
