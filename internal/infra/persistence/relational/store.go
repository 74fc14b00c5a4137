// Package relational hosts the transactional SQL backend shared by the SQLite
// and Postgres stores. Entities are mirrored in the memory arena; every
// transaction is written to the database in a single SQL transaction before
// the arena swaps in the new state.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"schoolcore/internal/infra/persistence/memory"
	"schoolcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Change aliases domain.Change.
	Change = domain.Change
)

// Store is a memory arena kept in lockstep with a relational database.
type Store struct {
	*memory.Store
	db      *sql.DB
	dialect Dialect
}

// Open applies the dialect schema to db, loads all rows strictly, and returns
// a store whose transactions commit to db.
func Open(ctx context.Context, db *sql.DB, dialect Dialect, engine *domain.RulesEngine) (*Store, error) {
	if err := applySchema(ctx, db, dialect.Schema); err != nil {
		return nil, domain.Persistence("apply schema", err)
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, dialect: dialect}
	s.Store = memory.NewStore(engine, memory.WithCommitter(memory.CommitFunc(s.commit)))
	if err := s.ImportState(snapshot); err != nil {
		return nil, fmt.Errorf("load %s rows: %w", dialect.Name, err)
	}
	return s, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports the SQL dialect in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return domain.Persistence("close", err)
	}
	return nil
}

func (s *Store) commit(ctx context.Context, changes []Change, _ domain.TransactionView) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, change := range changes {
		if err := s.apply(ctx, tx, change); err != nil {
			return s.classify(err, change)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (s *Store) classify(err error, change Change) error {
	if s.dialect.Classify != nil {
		if mapped := s.dialect.Classify(err, change); mapped != nil {
			return mapped
		}
	}
	return err
}

var errUnsupportedChange = errors.New("unsupported change")

func (s *Store) apply(ctx context.Context, tx *sql.Tx, change Change) error {
	switch change.Action {
	case domain.ActionCreate:
		return s.insert(ctx, tx, change.After)
	case domain.ActionUpdate:
		return s.update(ctx, tx, change.After)
	case domain.ActionDelete:
		return s.remove(ctx, tx, change.Before)
	default:
		return fmt.Errorf("%w: action %q", errUnsupportedChange, change.Action)
	}
}

func (s *Store) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func nullable(ref *string) any {
	if ref == nil {
		return nil
	}
	return *ref
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, record any) error {
	var err error
	switch r := record.(type) {
	case domain.Student:
		_, err = s.exec(ctx, tx, `INSERT INTO students (id, name, age, email) VALUES (?, ?, ?, ?)`, r.ID, r.Name, r.Age, r.Email)
	case domain.Instructor:
		_, err = s.exec(ctx, tx, `INSERT INTO instructors (id, name, age, email) VALUES (?, ?, ?, ?)`, r.ID, r.Name, r.Age, r.Email)
	case domain.Course:
		_, err = s.exec(ctx, tx, `INSERT INTO courses (id, name, instructor_id) VALUES (?, ?, ?)`, r.ID, r.Name, nullable(r.InstructorID))
	case domain.Enrollment:
		_, err = s.exec(ctx, tx, `INSERT INTO registrations (student_id, course_id) VALUES (?, ?)`, r.StudentID, r.CourseID)
	default:
		err = fmt.Errorf("%w: insert %T", errUnsupportedChange, record)
	}
	return err
}

func (s *Store) update(ctx context.Context, tx *sql.Tx, record any) error {
	var (
		n   int64
		err error
		rec domain.Record
	)
	switch r := record.(type) {
	case domain.Student:
		rec = r
		n, err = s.exec(ctx, tx, `UPDATE students SET name = ?, age = ?, email = ? WHERE id = ?`, r.Name, r.Age, r.Email, r.ID)
	case domain.Instructor:
		rec = r
		n, err = s.exec(ctx, tx, `UPDATE instructors SET name = ?, age = ?, email = ? WHERE id = ?`, r.Name, r.Age, r.Email, r.ID)
	case domain.Course:
		rec = r
		n, err = s.exec(ctx, tx, `UPDATE courses SET name = ?, instructor_id = ? WHERE id = ?`, r.Name, nullable(r.InstructorID), r.ID)
	default:
		return fmt.Errorf("%w: update %T", errUnsupportedChange, record)
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound(rec.Kind(), rec.Key())
	}
	return nil
}

// remove deletes one row. Relation rows and instructor references that point
// at it are handled by the ON DELETE clauses of the schema.
func (s *Store) remove(ctx context.Context, tx *sql.Tx, record any) error {
	var (
		n   int64
		err error
		rec domain.Record
	)
	switch r := record.(type) {
	case domain.Student:
		rec = r
		n, err = s.exec(ctx, tx, `DELETE FROM students WHERE id = ?`, r.ID)
	case domain.Instructor:
		rec = r
		n, err = s.exec(ctx, tx, `DELETE FROM instructors WHERE id = ?`, r.ID)
	case domain.Course:
		rec = r
		n, err = s.exec(ctx, tx, `DELETE FROM courses WHERE id = ?`, r.ID)
	case domain.Enrollment:
		rec = r
		n, err = s.exec(ctx, tx, `DELETE FROM registrations WHERE student_id = ? AND course_id = ?`, r.StudentID, r.CourseID)
	default:
		return fmt.Errorf("%w: delete %T", errUnsupportedChange, record)
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound(rec.Kind(), rec.Key())
	}
	return nil
}
