// Package memory provides the in-memory arena that owns entity records and
// relation rows. Durable backends embed it and plug in a Committer so every
// transaction is applied to storage before it becomes visible.
package memory

import (
	"context"
	"sort"
	"sync"

	"schoolcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Student aliases domain.Student for in-memory persistence operations.
	Student = domain.Student
	// Instructor aliases domain.Instructor.
	Instructor = domain.Instructor
	// Course aliases domain.Course.
	Course = domain.Course
	// Enrollment aliases domain.Enrollment.
	Enrollment = domain.Enrollment
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// Committer durably applies the changes of a transaction. next is a read-only
// view over the state that becomes current if Commit returns nil.
type Committer interface {
	Commit(ctx context.Context, changes []Change, next TransactionView) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(ctx context.Context, changes []Change, next TransactionView) error

// Commit implements Committer.
func (f CommitFunc) Commit(ctx context.Context, changes []Change, next TransactionView) error {
	return f(ctx, changes, next)
}

type memoryState struct {
	students    map[string]Student
	instructors map[string]Instructor
	courses     map[string]Course
	enrollments map[Enrollment]struct{}
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Students    map[string]Student    `json:"students"`
	Instructors map[string]Instructor `json:"instructors"`
	Courses     map[string]Course     `json:"courses"`
	Enrollments []Enrollment          `json:"enrollments"`
}

func newMemoryState() memoryState {
	return memoryState{
		students:    map[string]Student{},
		instructors: map[string]Instructor{},
		courses:     map[string]Course{},
		enrollments: map[Enrollment]struct{}{},
	}
}

func (s memoryState) clone() memoryState {
	cp := memoryState{
		students:    make(map[string]Student, len(s.students)),
		instructors: make(map[string]Instructor, len(s.instructors)),
		courses:     make(map[string]Course, len(s.courses)),
		enrollments: make(map[Enrollment]struct{}, len(s.enrollments)),
	}
	for k, v := range s.students {
		cp.students[k] = v
	}
	for k, v := range s.instructors {
		cp.instructors[k] = v
	}
	for k, v := range s.courses {
		cp.courses[k] = cloneCourse(v)
	}
	for k := range s.enrollments {
		cp.enrollments[k] = struct{}{}
	}
	return cp
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Students:    cloned.students,
		Instructors: cloned.instructors,
		Courses:     cloned.courses,
		Enrollments: sortedEnrollments(cloned.enrollments),
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	st := newMemoryState()
	for k, v := range s.Students {
		st.students[k] = v
	}
	for k, v := range s.Instructors {
		st.instructors[k] = v
	}
	for k, v := range s.Courses {
		st.courses[k] = cloneCourse(v)
	}
	for _, e := range s.Enrollments {
		st.enrollments[e] = struct{}{}
	}
	return st
}

func cloneCourse(c Course) Course {
	cp := c
	cp.InstructorID = domain.CloneStringPtr(c.InstructorID)
	return cp
}

func sortedEnrollments(set map[Enrollment]struct{}) []Enrollment {
	out := make([]Enrollment, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out
}

// Option configures a Store.
type Option func(*Store)

// WithCommitter installs the backend that makes transactions durable.
func WithCommitter(c Committer) Option {
	return func(s *Store) { s.committer = c }
}

// Store provides an in-memory transactional store for the core domain. All
// mutations are serialized by a single writer lock held for the full
// validate, mutate, evaluate, and commit sequence.
type Store struct {
	mu        sync.RWMutex
	state     memoryState
	engine    *RulesEngine
	committer Committer
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with snapshot after verifying
// referential integrity. The current state is kept when verification fails.
func (s *Store) ImportState(snapshot Snapshot) error {
	if err := VerifySnapshot(snapshot); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
	return nil
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the live state only after rules pass and the committer,
// if any, has durably applied the recorded changes.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return Result{}, err
	}
	if len(tx.changes) == 0 {
		return Result{}, nil
	}

	view := newTransactionView(&tx.state)
	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.committer != nil {
		if err := s.committer.Commit(ctx, tx.changes, view); err != nil {
			return result, domain.Persistence("commit", err)
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against the current state under a read lock. The view must
// not be retained after fn returns.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newTransactionView(&s.state))
}

// GetStudent returns a student by id.
func (s *Store) GetStudent(id string) (Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.state.students[id]
	return st, ok
}

// GetInstructor returns an instructor by id.
func (s *Store) GetInstructor(id string) (Instructor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.state.instructors[id]
	return in, ok
}

// GetCourse returns a course by id.
func (s *Store) GetCourse(id string) (Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.courses[id]
	if !ok {
		return Course{}, false
	}
	return cloneCourse(c), true
}

// ListStudents returns all students ordered by id.
func (s *Store) ListStudents() []Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListStudents()
}

// ListInstructors returns all instructors ordered by id.
func (s *Store) ListInstructors() []Instructor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListInstructors()
}

// ListCourses returns all courses ordered by id.
func (s *Store) ListCourses() []Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListCourses()
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
