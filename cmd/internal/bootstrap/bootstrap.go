// Package bootstrap carries the wiring shared by the dispatcher binaries:
// config resolution from the environment, the Postgres persistence client,
// and schema migration at startup.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-webhook-dispatcher/core"
	"github.com/goliatone/go-webhook-dispatcher/migrations"
	sqlstore "github.com/goliatone/go-webhook-dispatcher/store/sql"
	"github.com/uptrace/bun/dialect/pgdialect"

	_ "github.com/lib/pq"
)

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "go-webhook-dispatcher"
}

// LoadConfig resolves the effective configuration from process environment
// plus defaults. An empty webhook secret fails here, before anything binds
// or polls.
func LoadConfig(ctx context.Context) (core.Config, error) {
	provider := core.NewCfgxConfigProvider(core.NewEnvRawConfigLoader())
	cfg, err := core.LoadConfig(ctx, provider, core.Config{})
	if err != nil {
		return core.Config{}, err
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return core.Config{}, fmt.Errorf("bootstrap: DATABASE_URL is required")
	}
	return cfg, nil
}

// OpenStore connects to Postgres, applies pending migrations, and returns
// the event store plus a close function.
func OpenStore(ctx context.Context, cfg core.Config) (core.EventStore, func() error, error) {
	sqldb, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: open postgres: %w", err)
	}

	client, err := persistence.New(persistenceConfig{
		driver: "postgres",
		server: cfg.DatabaseURL,
	}, sqldb, pgdialect.New())
	if err != nil {
		_ = sqldb.Close()
		return nil, nil, fmt.Errorf("bootstrap: persistence client: %w", err)
	}

	_, err = migrations.Register(ctx, func(_ context.Context, dialectName string, _ string, fsys fs.FS) error {
		if dialectName != migrations.DialectPostgres {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(migrations.DialectPostgres))
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("bootstrap: register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("bootstrap: migrate: %w", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return factory.EventStore(), client.Close, nil
}

// Logger resolves the named logger the way the rest of the stack does:
// injected provider first, otherwise go-logger's default resolution.
func Logger(name string) core.Logger {
	_, logger := glog.Resolve(name, nil, nil)
	return glog.Ensure(logger)
}
