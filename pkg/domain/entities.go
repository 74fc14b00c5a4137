// Package domain defines the core persistent entities, value types, error
// kinds, and rule evaluation primitives used by schoolcore.
package domain

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence tables.
const (
	// EntityStudent identifies a student record.
	EntityStudent EntityType = "student"
	// EntityInstructor identifies an instructor record.
	EntityInstructor EntityType = "instructor"
	// EntityCourse identifies a course record.
	EntityCourse EntityType = "course"
	// EntityEnrollment identifies a student/course relation row.
	EntityEnrollment EntityType = "enrollment"
	// EntityBackup identifies a stored backup in lookup errors. It is never a
	// store record.
	EntityBackup EntityType = "backup"
)

// Valid reports whether t names one of the three record kinds callers may
// create, update, delete, or list directly.
func (t EntityType) Valid() bool {
	switch t {
	case EntityStudent, EntityInstructor, EntityCourse:
		return true
	default:
		return false
	}
}

// Action describes the type of mutation applied to an entity.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change describes a mutation applied within a transaction. Before and After
// carry the typed record (Student, Instructor, Course, or Enrollment).
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Record is implemented by every entity kind so kind-dispatched operations can
// hand back plain records.
type Record interface {
	Kind() EntityType
	Key() string
}

// Person is the validated personal data shared by students and instructors.
type Person struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
}

// Student is a learner that may be enrolled in any number of courses.
type Student struct {
	ID string `json:"id"`
	Person
}

// Kind implements Record.
func (Student) Kind() EntityType { return EntityStudent }

// Key implements Record.
func (s Student) Key() string { return s.ID }

// Instructor teaches zero or more courses through the course's instructor reference.
type Instructor struct {
	ID string `json:"id"`
	Person
}

// Kind implements Record.
func (Instructor) Kind() EntityType { return EntityInstructor }

// Key implements Record.
func (i Instructor) Key() string { return i.ID }

// Course is a class offering. The roster is not stored here; it is derived from
// enrollment rows owned by the relationship store.
type Course struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	InstructorID *string `json:"instructor_id"`
}

// Kind implements Record.
func (Course) Kind() EntityType { return EntityCourse }

// Key implements Record.
func (c Course) Key() string { return c.ID }

// HasInstructor reports whether the course references the given instructor.
func (c Course) HasInstructor(instructorID string) bool {
	return c.InstructorID != nil && *c.InstructorID == instructorID
}

// Enrollment links a student to a course. It is comparable and used directly as
// a set key.
type Enrollment struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}

// Kind implements Record.
func (Enrollment) Kind() EntityType { return EntityEnrollment }

// Key implements Record.
func (e Enrollment) Key() string { return e.StudentID + "/" + e.CourseID }

// CourseSummary is a course annotated with data resolved at query time.
type CourseSummary struct {
	Course
	InstructorName *string `json:"instructor_name"`
	EnrolledCount  int     `json:"enrolled_count"`
}

// SearchResult groups matches by entity kind.
type SearchResult struct {
	Students    []Student       `json:"students"`
	Instructors []Instructor    `json:"instructors"`
	Courses     []CourseSummary `json:"courses"`
}

// StringPtr returns a pointer to a copy of v.
func StringPtr(v string) *string { return &v }

// CloneStringPtr copies the pointed-to string so records never share pointers.
func CloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
