// Package core exposes the collaborator-facing operations over a persistent
// store: entity CRUD, enrollment and assignment, search, and backup.
package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"schoolcore/internal/blob"
	"schoolcore/internal/infra/persistence/memory"
	"schoolcore/pkg/domain"
)

type (
	Student       = domain.Student
	Instructor    = domain.Instructor
	Course        = domain.Course
	CourseSummary = domain.CourseSummary
	SearchResult  = domain.SearchResult
	Result        = domain.Result
	PersonInput   = domain.PersonInput
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetricsRecorder sets the recorder observing every operation.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithClock overrides the clock used for backup keys.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithBlobStore sets the sink used by BackupToBlob and ListBackups.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) { s.blobs = store }
}

// Service exposes transactional operations over a domain.PersistentStore.
type Service struct {
	store   domain.PersistentStore
	logger  zerolog.Logger
	metrics MetricsRecorder
	clock   Clock
	blobs   blob.Store
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  zerolog.Nop(),
		metrics: noopMetrics{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects NewRulesEngine.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Close releases the underlying store.
func (s *Service) Close() error { return s.store.Close() }

// run times op, reports it to the metrics recorder, and logs the outcome.
func (s *Service) run(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	switch {
	case err == nil:
		s.logger.Debug().Str("op", op).Dur("took", time.Since(start)).Msg("operation completed")
	case errors.Is(err, domain.ErrPersistence):
		s.logger.Error().Err(err).Str("op", op).Msg("persistence failure")
	default:
		s.logger.Debug().Err(err).Str("op", op).Str("kind", string(domain.KindOf(err))).Msg("operation rejected")
	}
	return err
}

func (s *Service) transact(ctx context.Context, op string, fn func(domain.Transaction) error) (Result, error) {
	var res Result
	err := s.run(ctx, op, func() error {
		var err error
		res, err = s.store.RunInTransaction(ctx, fn)
		return err
	})
	return res, err
}

// CreateStudent validates in and inserts a student with the given id.
func (s *Service) CreateStudent(ctx context.Context, id string, in PersonInput) (Student, Result, error) {
	var created Student
	res, err := s.transact(ctx, "create_student", func(tx domain.Transaction) error {
		st, err := domain.NewStudent(id, in)
		if err != nil {
			return err
		}
		created, err = tx.CreateStudent(st)
		return err
	})
	return created, res, err
}

// UpdateStudent replaces the personal data of an existing student.
func (s *Service) UpdateStudent(ctx context.Context, id string, in PersonInput) (Student, Result, error) {
	var updated Student
	res, err := s.transact(ctx, "update_student", func(tx domain.Transaction) error {
		person, err := domain.NewPerson(in)
		if err != nil {
			return err
		}
		updated, err = tx.UpdateStudent(strings.TrimSpace(id), func(st *Student) error {
			st.Person = person
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteStudent removes a student and its enrollment rows.
func (s *Service) DeleteStudent(ctx context.Context, id string) (Result, error) {
	return s.transact(ctx, "delete_student", func(tx domain.Transaction) error {
		return tx.DeleteStudent(strings.TrimSpace(id))
	})
}

// CreateInstructor validates in and inserts an instructor with the given id.
func (s *Service) CreateInstructor(ctx context.Context, id string, in PersonInput) (Instructor, Result, error) {
	var created Instructor
	res, err := s.transact(ctx, "create_instructor", func(tx domain.Transaction) error {
		inst, err := domain.NewInstructor(id, in)
		if err != nil {
			return err
		}
		created, err = tx.CreateInstructor(inst)
		return err
	})
	return created, res, err
}

// UpdateInstructor replaces the personal data of an existing instructor.
func (s *Service) UpdateInstructor(ctx context.Context, id string, in PersonInput) (Instructor, Result, error) {
	var updated Instructor
	res, err := s.transact(ctx, "update_instructor", func(tx domain.Transaction) error {
		person, err := domain.NewPerson(in)
		if err != nil {
			return err
		}
		updated, err = tx.UpdateInstructor(strings.TrimSpace(id), func(inst *Instructor) error {
			inst.Person = person
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteInstructor removes an instructor and clears it from every course it taught.
func (s *Service) DeleteInstructor(ctx context.Context, id string) (Result, error) {
	return s.transact(ctx, "delete_instructor", func(tx domain.Transaction) error {
		return tx.DeleteInstructor(strings.TrimSpace(id))
	})
}

// CreateCourse inserts a course, optionally taught by instructorID.
func (s *Service) CreateCourse(ctx context.Context, id, name string, instructorID *string) (Course, Result, error) {
	var created Course
	res, err := s.transact(ctx, "create_course", func(tx domain.Transaction) error {
		c, err := domain.NewCourse(id, name, instructorID)
		if err != nil {
			return err
		}
		created, err = tx.CreateCourse(c)
		return err
	})
	return created, res, err
}

// UpdateCourse renames a course and sets its instructor; nil clears it.
func (s *Service) UpdateCourse(ctx context.Context, id, name string, instructorID *string) (Course, Result, error) {
	var updated Course
	res, err := s.transact(ctx, "update_course", func(tx domain.Transaction) error {
		cname, err := domain.ValidateNonEmpty(name, "course_name")
		if err != nil {
			return err
		}
		updated, err = tx.UpdateCourse(strings.TrimSpace(id), func(c *Course) error {
			c.Name = cname
			c.InstructorID = domain.NormalizeRef(instructorID)
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteCourse removes a course and its enrollment rows.
func (s *Service) DeleteCourse(ctx context.Context, id string) (Result, error) {
	return s.transact(ctx, "delete_course", func(tx domain.Transaction) error {
		return tx.DeleteCourse(strings.TrimSpace(id))
	})
}

// Enroll links a student to a course. It reports false when the pair was
// already enrolled.
func (s *Service) Enroll(ctx context.Context, studentID, courseID string) (bool, Result, error) {
	var added bool
	res, err := s.transact(ctx, "enroll", func(tx domain.Transaction) error {
		var err error
		added, err = tx.Enroll(strings.TrimSpace(studentID), strings.TrimSpace(courseID))
		return err
	})
	return added, res, err
}

// Unenroll removes a student from a course. It reports false when the pair
// was not enrolled.
func (s *Service) Unenroll(ctx context.Context, studentID, courseID string) (bool, Result, error) {
	var removed bool
	res, err := s.transact(ctx, "unenroll", func(tx domain.Transaction) error {
		var err error
		removed, err = tx.Unenroll(strings.TrimSpace(studentID), strings.TrimSpace(courseID))
		return err
	})
	return removed, res, err
}

// AssignInstructor replaces the instructor of a course; nil clears it.
func (s *Service) AssignInstructor(ctx context.Context, courseID string, instructorID *string) (Course, Result, error) {
	var updated Course
	res, err := s.transact(ctx, "assign_instructor", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.AssignInstructor(strings.TrimSpace(courseID), domain.NormalizeRef(instructorID))
		return err
	})
	return updated, res, err
}

// GetStudent returns a student or a NotFound error.
func (s *Service) GetStudent(id string) (Student, error) {
	id = strings.TrimSpace(id)
	st, ok := s.store.GetStudent(id)
	if !ok {
		return Student{}, domain.NotFound(domain.EntityStudent, id)
	}
	return st, nil
}

// GetInstructor returns an instructor or a NotFound error.
func (s *Service) GetInstructor(id string) (Instructor, error) {
	id = strings.TrimSpace(id)
	inst, ok := s.store.GetInstructor(id)
	if !ok {
		return Instructor{}, domain.NotFound(domain.EntityInstructor, id)
	}
	return inst, nil
}

// GetCourse returns a course or a NotFound error.
func (s *Service) GetCourse(id string) (Course, error) {
	id = strings.TrimSpace(id)
	c, ok := s.store.GetCourse(id)
	if !ok {
		return Course{}, domain.NotFound(domain.EntityCourse, id)
	}
	return c, nil
}

// ListStudents returns every student ordered by id.
func (s *Service) ListStudents() []Student { return s.store.ListStudents() }

// ListInstructors returns every instructor ordered by id.
func (s *Service) ListInstructors() []Instructor { return s.store.ListInstructors() }

// ListCourses returns every course ordered by id, annotated with the
// instructor name and enrolled count.
func (s *Service) ListCourses(ctx context.Context) ([]CourseSummary, error) {
	var out []CourseSummary
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		courses := v.ListCourses()
		out = make([]CourseSummary, 0, len(courses))
		for _, c := range courses {
			out = append(out, summarize(v, c))
		}
		return nil
	})
	return out, err
}

// Roster returns the students enrolled in a course ordered by id.
func (s *Service) Roster(ctx context.Context, courseID string) ([]Student, error) {
	courseID = strings.TrimSpace(courseID)
	var out []Student
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		if _, ok := v.FindCourse(courseID); !ok {
			return domain.NotFound(domain.EntityCourse, courseID)
		}
		out = studentsByID(v, v.RosterIDs(courseID))
		return nil
	})
	return out, err
}

// CoursesOfStudent returns the courses a student is enrolled in ordered by id.
func (s *Service) CoursesOfStudent(ctx context.Context, studentID string) ([]Course, error) {
	studentID = strings.TrimSpace(studentID)
	var out []Course
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		if _, ok := v.FindStudent(studentID); !ok {
			return domain.NotFound(domain.EntityStudent, studentID)
		}
		out = coursesByID(v, v.StudentCourseIDs(studentID))
		return nil
	})
	return out, err
}

// CoursesOfInstructor returns the courses an instructor teaches ordered by id.
func (s *Service) CoursesOfInstructor(ctx context.Context, instructorID string) ([]Course, error) {
	instructorID = strings.TrimSpace(instructorID)
	var out []Course
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		if _, ok := v.FindInstructor(instructorID); !ok {
			return domain.NotFound(domain.EntityInstructor, instructorID)
		}
		out = coursesByID(v, v.InstructorCourseIDs(instructorID))
		return nil
	})
	return out, err
}

// Search returns the records matching query; see Query for the rules.
func (s *Service) Search(ctx context.Context, query string) (SearchResult, error) {
	var out SearchResult
	err := s.run(ctx, "search", func() error {
		return s.store.View(ctx, func(v domain.TransactionView) error {
			out = Query(v, query)
			return nil
		})
	})
	return out, err
}

func studentsByID(v domain.TransactionView, ids []string) []Student {
	out := make([]Student, 0, len(ids))
	for _, id := range ids {
		if st, ok := v.FindStudent(id); ok {
			out = append(out, st)
		}
	}
	return out
}

func coursesByID(v domain.TransactionView, ids []string) []Course {
	out := make([]Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := v.FindCourse(id); ok {
			out = append(out, c)
		}
	}
	return out
}
