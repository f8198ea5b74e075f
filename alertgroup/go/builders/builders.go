// Package builders constructs the stores, clients and engines of the service
// from an InstanceConfig.
package builders

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.skia.org/alertgroups/alertgroup/go/allowlist"
	"go.skia.org/alertgroups/alertgroup/go/anomalystore"
	"go.skia.org/alertgroups/alertgroup/go/anomalystore/memanomalystore"
	"go.skia.org/alertgroups/alertgroup/go/anomalystore/sqlanomalystore"
	"go.skia.org/alertgroups/alertgroup/go/bisection"
	"go.skia.org/alertgroups/alertgroup/go/canonical"
	"go.skia.org/alertgroups/alertgroup/go/config"
	"go.skia.org/alertgroups/alertgroup/go/grouping"
	"go.skia.org/alertgroups/alertgroup/go/groupstore"
	"go.skia.org/alertgroups/alertgroup/go/groupstore/memgroupstore"
	"go.skia.org/alertgroups/alertgroup/go/groupstore/sqlgroupstore"
	"go.skia.org/alertgroups/alertgroup/go/issuetracker"
	"go.skia.org/alertgroups/alertgroup/go/revision"
	"go.skia.org/alertgroups/alertgroup/go/scheduler"
	"go.skia.org/alertgroups/alertgroup/go/sheriffconfig"
	"go.skia.org/alertgroups/alertgroup/go/signalquality"
	"go.skia.org/alertgroups/alertgroup/go/signalquality/memsource"
	"go.skia.org/alertgroups/alertgroup/go/signalquality/sqlsource"
	agsql "go.skia.org/alertgroups/alertgroup/go/sql"
	"go.skia.org/alertgroups/alertgroup/go/verification"
	"go.skia.org/alertgroups/alertgroup/go/workflow"
	"go.skia.org/alertgroups/go/auth"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sklog"
	"go.skia.org/alertgroups/go/sql/pool"
	"go.skia.org/alertgroups/go/sql/pool/wrapper/timeout"
)

// pgxLogAdaptor allows bubbling pgx logs up into our application.
type pgxLogAdaptor struct{}

// Log a message at the given level with data key/value pairs. data may be nil.
func (pgxLogAdaptor) Log(ctx context.Context, level pgx.LogLevel, msg string, data map[string]interface{}) {
	switch level {
	case pgx.LogLevelWarn:
		sklog.Warningf("pgx - %s %v", msg, data)
	case pgx.LogLevelError:
		sklog.Errorf("pgx - %s %v", msg, data)
	}
}

// singletonPool is the one and only pool an application should have.
var singletonPool *pgxpool.Pool

var singletonPoolMutex sync.Mutex

// NewDBPoolFromConfig returns a pool connected to the configured database.
// The tables are created if they don't exist.
func NewDBPoolFromConfig(ctx context.Context, instanceConfig *config.InstanceConfig) (pool.Pool, error) {
	singletonPoolMutex.Lock()
	defer singletonPoolMutex.Unlock()

	if singletonPool == nil {
		cfg, err := pgxpool.ParseConfig(instanceConfig.Database.ConnectionString)
		if err != nil {
			return nil, skerr.Wrapf(err, "Failed to parse database config: %q", instanceConfig.Database.ConnectionString)
		}
		cfg.MaxConns = config.DefaultMaxConnections
		if instanceConfig.Database.MaxConnections > 0 {
			cfg.MaxConns = instanceConfig.Database.MaxConnections
		}
		cfg.ConnConfig.Logger = pgxLogAdaptor{}
		singletonPool, err = pgxpool.ConnectConfig(ctx, cfg)
		if err != nil {
			return nil, skerr.Wrapf(err, "connecting to the database")
		}
		if err := agsql.CreateTables(ctx, singletonPool); err != nil {
			return nil, err
		}
		if err := agsql.ValidateSchema(ctx, singletonPool); err != nil {
			return nil, err
		}
	}
	return timeout.New(singletonPool), nil
}

// Stores are the persistent stores of the service.
type Stores struct {
	Groups    groupstore.Store
	Anomalies anomalystore.Store
	Scores    signalquality.Source
}

// NewStoresFromConfig returns in-memory stores if local is true or the
// config asks for them, otherwise SQL backed stores.
func NewStoresFromConfig(ctx context.Context, local bool, instanceConfig *config.InstanceConfig) (*Stores, error) {
	if local || instanceConfig.Database.Local {
		sklog.Warningf("Using in-memory stores, nothing will be persisted.")
		return &Stores{
			Groups:    memgroupstore.New(),
			Anomalies: memanomalystore.New(),
			Scores:    memsource.New(),
		}, nil
	}
	db, err := NewDBPoolFromConfig(ctx, instanceConfig)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Groups:    sqlgroupstore.New(db),
		Anomalies: sqlanomalystore.New(db),
		Scores:    sqlsource.New(db),
	}, nil
}

// App is everything the server runs.
type App struct {
	Stores    *Stores
	Grouper   *grouping.Grouper
	Workflow  *workflow.Workflow
	Scheduler *scheduler.Scheduler

	closers []func()
}

// Close releases the remote connections of the App.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

// NewWorkflowConfig converts the workflow section of the config.
func NewWorkflowConfig(instanceConfig *config.InstanceConfig) (workflow.Config, error) {
	cfg := workflow.DefaultConfig()
	var err error
	cfg.ActiveWindow, err = instanceConfig.Workflow.ActiveWindowDuration()
	if err != nil {
		return cfg, err
	}
	cfg.TriageDelay, err = instanceConfig.Workflow.TriageDelayDuration()
	if err != nil {
		return cfg, err
	}
	cfg.ServiceAccount = instanceConfig.Workflow.ServiceAccount
	cfg.SandwichVerificationEnabled = instanceConfig.Workflow.SandwichVerificationEnabled
	if instanceConfig.Workflow.GroupURLPrefix != "" {
		cfg.GroupURLPrefix = instanceConfig.Workflow.GroupURLPrefix
	}
	if instanceConfig.Workflow.JobURLPrefix != "" {
		cfg.JobURLPrefix = instanceConfig.Workflow.JobURLPrefix
	}
	return cfg, nil
}

// NewAppFromConfig builds the stores, the remote service clients, the
// grouping and workflow engines, and the scheduler.
func NewAppFromConfig(ctx context.Context, local bool, instanceConfig *config.InstanceConfig) (*App, error) {
	stores, err := NewStoresFromConfig(ctx, local, instanceConfig)
	if err != nil {
		return nil, err
	}
	ret := &App{Stores: stores}

	matcher, err := sheriffconfig.NewFromFile(instanceConfig.SheriffConfig.Path)
	if err != nil {
		return nil, err
	}
	ts, err := auth.NewDefaultTokenSource(ctx, local, auth.ScopeUserinfoEmail)
	if err != nil {
		return nil, err
	}
	revisions, err := revision.New(instanceConfig.Revision.NumberingURL, instanceConfig.Revision.RepoURL, ts)
	if err != nil {
		return nil, err
	}
	scores, err := signalquality.New(stores.Scores)
	if err != nil {
		return nil, err
	}
	bisectionInterval, err := instanceConfig.Bisection.IntervalDuration()
	if err != nil {
		return nil, err
	}
	wfConfig, err := NewWorkflowConfig(instanceConfig)
	if err != nil {
		return nil, err
	}

	svc := workflow.Services{
		Groups:        stores.Groups,
		Anomalies:     stores.Anomalies,
		Matcher:       matcher,
		Issues:        issuetracker.New(instanceConfig.IssueTracker.URL, ts),
		Canonical:     canonical.New(stores.Groups, nil),
		Bisection:     bisection.New(instanceConfig.Bisection.URL, bisectionInterval, ts),
		Revisions:     revisions,
		AllowList:     allowlist.New(instanceConfig.AllowList),
		SignalQuality: scores,
	}
	if v := instanceConfig.Verification; v != nil {
		client, closer, err := verification.New(v.HostPort, v.Namespace, v.TaskQueue)
		if err != nil {
			return nil, err
		}
		ret.closers = append(ret.closers, closer)
		svc.Verification = client
	}

	ret.Grouper = grouping.New(stores.Anomalies, stores.Groups, matcher, instanceConfig.Workflow.Threshold())
	ret.Workflow = workflow.New(wfConfig, svc)
	ret.Scheduler = scheduler.New(stores.Groups, ret.Grouper, ret.Workflow, instanceConfig.Scheduler.Parallelism)
	return ret, nil
}
