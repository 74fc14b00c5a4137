package domain

import "context"

// TransactionView provides read-only access to entities and relations. All
// list methods return records ordered by id ascending.
type TransactionView interface {
	ListStudents() []Student
	ListInstructors() []Instructor
	ListCourses() []Course
	ListEnrollments() []Enrollment
	FindStudent(id string) (Student, bool)
	FindInstructor(id string) (Instructor, bool)
	FindCourse(id string) (Course, bool)
	IsEnrolled(studentID, courseID string) bool
	// RosterIDs lists the ids of students enrolled in the course.
	RosterIDs(courseID string) []string
	// StudentCourseIDs lists the ids of courses the student is enrolled in.
	StudentCourseIDs(studentID string) []string
	// InstructorCourseIDs lists the ids of courses whose instructor is instructorID.
	InstructorCourseIDs(instructorID string) []string
	EnrollmentCount(courseID string) int
}

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. Create fails with ErrDuplicateID when the id is taken;
// Update, Delete, and relation methods fail with ErrNotFound for unknown ids.
type Transaction interface {
	Snapshot() TransactionView

	CreateStudent(Student) (Student, error)
	UpdateStudent(id string, mutator func(*Student) error) (Student, error)
	DeleteStudent(id string) error

	CreateInstructor(Instructor) (Instructor, error)
	UpdateInstructor(id string, mutator func(*Instructor) error) (Instructor, error)
	DeleteInstructor(id string) error

	CreateCourse(Course) (Course, error)
	UpdateCourse(id string, mutator func(*Course) error) (Course, error)
	DeleteCourse(id string) error

	// Enroll adds a relation row. It reports false when the pair already existed.
	Enroll(studentID, courseID string) (bool, error)
	// Unenroll removes a relation row. It reports false when the pair was absent.
	Unenroll(studentID, courseID string) (bool, error)
	// AssignInstructor replaces the course's instructor; nil clears it.
	AssignInstructor(courseID string, instructorID *string) (Course, error)

	FindStudent(id string) (Student, bool)
	FindInstructor(id string) (Instructor, bool)
	FindCourse(id string) (Course, bool)
}

// PersistentStore is the uniform contract every backend satisfies.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetStudent(id string) (Student, bool)
	GetInstructor(id string) (Instructor, bool)
	GetCourse(id string) (Course, bool)
	ListStudents() []Student
	ListInstructors() []Instructor
	ListCourses() []Course
	Close() error
}

// Backupper is implemented by stores that can write a durable copy of their
// state to a filesystem path. Pending writes are flushed first.
type Backupper interface {
	Backup(ctx context.Context, path string) error
}
