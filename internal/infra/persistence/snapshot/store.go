// Package snapshot provides the document backend: the whole state lives in one
// JSON file that is atomically replaced after every committed transaction.
package snapshot

import (
	"context"

	"github.com/rs/zerolog"

	"schoolcore/internal/infra/persistence/memory"
	"schoolcore/pkg/domain"
)

// Compile-time contract assertions.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Backupper       = (*Store)(nil)
)

const defaultPath = "school.json"

// Store is a memory arena persisted to a snapshot document.
type Store struct {
	*memory.Store
	path   string
	logger zerolog.Logger
	report LoadReport
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report load repairs.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore loads the document at path (an absent file is an empty state) and
// returns a store that rewrites it after each transaction.
func NewStore(path string, engine *domain.RulesEngine, opts ...Option) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	s := &Store{path: path, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	doc, err := ReadFile(path)
	if err != nil {
		return nil, domain.Persistence("read snapshot", err)
	}
	snap, report, err := doc.Snapshot()
	if err != nil {
		return nil, err
	}
	s.report = report
	if report.Repaired() {
		s.logger.Warn().
			Str("path", path).
			Strs("cleared_instructor_courses", report.ClearedInstructors).
			Int("dropped_enrollments", len(report.DroppedEnrollments)).
			Int("duplicate_enrollments", report.DuplicateEnrollments).
			Int("dropped_assignments", report.DroppedAssignments).
			Msg("snapshot contained dangling references; dropped on load")
	}
	s.Store = memory.NewStore(engine, memory.WithCommitter(memory.CommitFunc(s.commit)))
	if err := s.ImportState(snap); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) commit(_ context.Context, _ []domain.Change, next domain.TransactionView) error {
	return WriteFile(s.path, NewDocument(next))
}

// Path returns the document path.
func (s *Store) Path() string { return s.path }

// LoadReport returns what was dropped when the document was loaded.
func (s *Store) LoadReport() LoadReport { return s.report }

// Backup writes the current document to path.
func (s *Store) Backup(ctx context.Context, path string) error {
	if path == "" {
		return &domain.FieldError{Field: "backup_path", Err: domain.ErrEmptyField}
	}
	var doc Document
	if err := s.View(ctx, func(v domain.TransactionView) error {
		doc = NewDocument(v)
		return nil
	}); err != nil {
		return err
	}
	if err := WriteFile(path, doc); err != nil {
		return domain.Persistence("backup", err)
	}
	return nil
}
