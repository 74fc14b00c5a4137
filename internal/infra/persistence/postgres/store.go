// Package postgres provides the Postgres transactional backend. It reuses the
// shared relational store with numbered placeholders and pgx as the
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"schoolcore/internal/infra/persistence/relational"
	"schoolcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/schoolcore?sslmode=disable"
)

// SQLSTATE codes mapped to domain kinds.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	*relational.Store
}

// Dialect describes Postgres for the shared relational backend.
func Dialect() relational.Dialect {
	return relational.Dialect{
		Name:     "postgres",
		Schema:   relational.PostgresSchema(),
		Numbered: true,
		Classify: classify,
	}
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
// It applies the schema and hydrates the in-memory arena from the tables.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, domain.Persistence("open postgres", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.Persistence("ping postgres", err)
	}
	rs, err := relational.Open(ctx, db, Dialect(), engine)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: rs}, nil
}

func classify(err error, change relational.Change) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case uniqueViolation:
		if rec, ok := change.After.(domain.Record); ok {
			return fmt.Errorf("%w (%s)", domain.DuplicateID(rec.Kind(), rec.Key()), pgErr.ConstraintName)
		}
	case foreignKeyViolation:
		return fmt.Errorf("%s %s violates %s: %w", change.Entity, change.Action, pgErr.ConstraintName, domain.ErrDanglingReference)
	}
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
