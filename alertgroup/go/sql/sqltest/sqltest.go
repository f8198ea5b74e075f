// Package sqltest creates throwaway CockroachDB databases for tests.
package sqltest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"os"
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/require"
	agsql "go.skia.org/alertgroups/alertgroup/go/sql"
)

// EmulatorHostEnvVar names the env variable that holds the host:port of a
// CockroachDB instance that tests may use.
const EmulatorHostEnvVar = "COCKROACHDB_EMULATOR_HOST"

// NewCockroachDBForTests creates a randomly named database with all the
// tables applied and returns a pool aimed at it. The pool is closed and the
// database dropped after the test finishes. The test is skipped if no
// CockroachDB instance is configured.
func NewCockroachDBForTests(ctx context.Context, t testing.TB) *pgxpool.Pool {
	host := os.Getenv(EmulatorHostEnvVar)
	if host == "" {
		t.Skipf("%s is not set, skipping SQL test.", EmulatorHostEnvVar)
	}

	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err)
	dbName := "for_tests" + n.String()

	admin, err := pgxpool.Connect(ctx, fmt.Sprintf("postgresql://root@%s/defaultdb?sslmode=disable", host))
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName)
	require.NoError(t, err)

	conf, err := pgxpool.ParseConfig(fmt.Sprintf("postgresql://root@%s/%s?sslmode=disable", host, dbName))
	require.NoError(t, err)
	conf.MaxConns = 4
	db, err := pgxpool.ConnectConfig(ctx, conf)
	require.NoError(t, err)
	require.NoError(t, agsql.CreateTables(ctx, db))

	t.Cleanup(func() {
		db.Close()
		_, err := admin.Exec(context.Background(), "DROP DATABASE "+dbName+" CASCADE")
		require.NoError(t, err)
		admin.Close()
	})
	return db
}
