// Package sqlite provides the SQLite transactional backend. Referential
// integrity is declared in the schema and enforced natively by SQLite with
// foreign keys switched on for every pooled connection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite" // pure go sqlite driver
	sqlite3lib "modernc.org/sqlite/lib"

	"schoolcore/internal/infra/persistence/relational"
	"schoolcore/pkg/domain"
)

// Compile-time contract assertions.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Backupper       = (*Store)(nil)
)

const defaultPath = "school.db"

// Store is a relational store over a SQLite database file.
type Store struct {
	*relational.Store
	path string
}

// Dialect describes SQLite for the shared relational backend.
func Dialect() relational.Dialect {
	return relational.Dialect{
		Name:     "sqlite",
		Schema:   relational.SQLiteSchema(),
		Classify: classify,
	}
}

// DSN builds the driver data source name for path.
func DSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewStore opens (creating if needed) the SQLite database at path, applies the
// schema, and loads every row into memory.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, domain.Persistence("create dirs", err)
	}
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, domain.Persistence("open sqlite", err)
	}
	db.SetMaxOpenConns(1)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, domain.Persistence("enable foreign keys", err)
	}
	rs, err := relational.Open(ctx, db, Dialect(), engine)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: rs, path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Backup writes a consistent copy of the database to path using VACUUM INTO.
// Every transaction is committed before RunInTransaction returns, so nothing
// is pending when the copy starts. An existing file at path is replaced.
func (s *Store) Backup(ctx context.Context, path string) error {
	if path == "" {
		return &domain.FieldError{Field: "backup_path", Err: domain.ErrEmptyField}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.Persistence("backup", err)
	}
	if self, err := filepath.Abs(s.path); err == nil && self == abs {
		return domain.Persistence("backup", fmt.Errorf("target %s is the live database", abs))
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return domain.Persistence("backup", err)
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.Persistence("backup", err)
	}
	if _, err := s.DB().ExecContext(ctx, `VACUUM INTO ?`, abs); err != nil {
		return domain.Persistence("backup", fmt.Errorf("vacuum into %s: %w", abs, err))
	}
	return nil
}

func classify(err error, change relational.Change) error {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}
	code := sqliteErr.Code()
	message := strings.ToLower(err.Error())
	switch {
	case code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE,
		strings.Contains(message, "unique constraint failed"):
		if rec, ok := change.After.(domain.Record); ok {
			return fmt.Errorf("%w (%v)", domain.DuplicateID(rec.Kind(), rec.Key()), err)
		}
	case code == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY,
		strings.Contains(message, "foreign key constraint failed"):
		return fmt.Errorf("%s %s violates foreign key: %w", change.Entity, change.Action, domain.ErrDanglingReference)
	}
	return nil
}
