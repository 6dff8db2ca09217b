package data

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
	"github.com/iWorld-y/fin_agents/app/agents/internal/conf"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRunRepo,
	NewGateway,
	wire.Bind(new(biz.Generator), new(*Gateway)),
	wire.Bind(new(biz.ModelInfo), new(*Gateway)),
	NewNewsSource,
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

const runSchema = `
CREATE TABLE IF NOT EXISTS agent_runs (
	id          TEXT PRIMARY KEY,
	agent       TEXT NOT NULL,
	input       TEXT,
	output      TEXT,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL,
	created_at  BIGINT NOT NULL
)`

const runIndex = `CREATE INDEX IF NOT EXISTS idx_agent_runs_agent_created ON agent_runs (agent, created_at)`

// Data holds the optional run history database. db is nil when no driver is configured.
type Data struct {
	db     *sql.DB
	driver string
}

// NewData 打开运行记录数据库并初始化表结构
func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	if c == nil || c.Database == nil || c.Database.Driver == "" {
		helper.Info("no database configured, agent runs are kept in memory")
		return &Data{}, func() {}, nil
	}

	driver := strings.ToLower(c.Database.Driver)
	switch driver {
	case driverPostgres, driverSQLite:
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	db, err := sql.Open(driver, c.Database.Source)
	if err != nil {
		return nil, nil, err
	}
	if driver == driverSQLite {
		// 内存库每个连接都是独立的数据库
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}

	d := &Data{db: db, driver: driver}
	if err := d.migrate(context.Background()); err != nil {
		db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		db.Close()
	}
	return d, cleanup, nil
}

func (d *Data) migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, runSchema); err != nil {
		return fmt.Errorf("failed to init agent_runs table: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, runIndex); err != nil {
		return fmt.Errorf("failed to init agent_runs index: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (d *Data) rebind(query string) string {
	if d.driver != driverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
