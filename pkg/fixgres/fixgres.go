// Package fixgres boots one disposable Postgres container per test binary and
// hands each test its own schema.
package fixgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

type config struct {
	image    string
	dbName   string
	user     string
	password string
	migrate  MigrateFunc
}

// MigrateFunc prepares a fresh sandbox schema. It runs with the sandbox
// search_path already set.
type MigrateFunc func(ctx context.Context, db *sql.DB) error

type Option func(*config)

func WithImage(i string) Option    { return func(c *config) { c.image = i } }
func WithDBName(n string) Option   { return func(c *config) { c.dbName = n } }
func WithUser(u string) Option     { return func(c *config) { c.user = u } }
func WithPassword(p string) Option { return func(c *config) { c.password = p } }

// WithMigrations runs fn against every new sandbox.
func WithMigrations(fn MigrateFunc) Option { return func(c *config) { c.migrate = fn } }

var (
	mu         sync.Mutex
	pg         *postgres.PostgresContainer
	connString string
	active     *config
	bootErr    error
	bootOnce   sync.Once
)

// Boot starts the shared container. Later calls return the first result and
// ignore their options. Call it from TestMain.
func Boot(ctx context.Context, opts ...Option) error {
	bootOnce.Do(func() {
		c := &config{
			image:    "docker.io/postgres:16-alpine",
			dbName:   "localtalent",
			user:     "postgres",
			password: "pass",
		}
		for _, o := range opts {
			o(c)
		}

		container, err := postgres.Run(ctx,
			c.image,
			postgres.WithDatabase(c.dbName),
			postgres.WithUsername(c.user),
			postgres.WithPassword(c.password),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			bootErr = fmt.Errorf("start postgres container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			bootErr = err
			return
		}
		port, err := container.MappedPort(ctx, "5432/tcp")
		if err != nil {
			bootErr = err
			return
		}

		mu.Lock()
		defer mu.Unlock()
		pg = container
		active = c
		connString = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			c.user, c.password, host, port.Port(), c.dbName,
		)
	})
	return bootErr
}

// ConnString is the admin DSN of the booted container.
func ConnString() (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if connString == "" {
		return "", errors.New("fixgres: container not booted")
	}
	return connString, nil
}

func ShutdownNow() error {
	mu.Lock()
	defer mu.Unlock()
	if pg == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := pg.Terminate(ctx)
	pg = nil
	return err
}
