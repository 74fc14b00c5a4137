package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxAge is the inclusive upper bound accepted for a person's age.
const MaxAge = 120

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateNonEmpty trims text and fails with ErrEmptyField when nothing remains.
func ValidateNonEmpty(text, field string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &FieldError{Field: field, Err: ErrEmptyField}
	}
	return trimmed, nil
}

// ValidateAge parses text as a base-10 integer in [0, MaxAge].
func ValidateAge(text string) (int, error) {
	trimmed := strings.TrimSpace(text)
	age, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, &FieldError{Field: "age", Value: trimmed, Err: ErrNotANumber}
	}
	if err := checkAge(age); err != nil {
		return 0, err
	}
	return age, nil
}

func checkAge(age int) error {
	if age < 0 || age > MaxAge {
		return &FieldError{Field: "age", Value: strconv.Itoa(age), Err: ErrAgeOutOfRange}
	}
	return nil
}

// ValidateEmail trims and lowercases text and checks the local@domain.tld shape.
func ValidateEmail(text string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if !emailPattern.MatchString(normalized) {
		return "", &FieldError{Field: "email", Value: normalized, Err: ErrInvalidEmail}
	}
	return normalized, nil
}

// PersonInput is the raw, unvalidated form of personal data as typed by a user.
type PersonInput struct {
	Name  string
	Age   string
	Email string
}

// NewPerson validates every field of in. Fields are checked in name, age,
// email order and the first failure is returned.
func NewPerson(in PersonInput) (Person, error) {
	name, err := ValidateNonEmpty(in.Name, "name")
	if err != nil {
		return Person{}, err
	}
	age, err := ValidateAge(in.Age)
	if err != nil {
		return Person{}, err
	}
	email, err := ValidateEmail(in.Email)
	if err != nil {
		return Person{}, err
	}
	return Person{Name: name, Age: age, Email: email}, nil
}

// Validate re-checks an already constructed Person, e.g. one decoded from storage.
func (p Person) Validate() error {
	if _, err := ValidateNonEmpty(p.Name, "name"); err != nil {
		return err
	}
	if err := checkAge(p.Age); err != nil {
		return err
	}
	if _, err := ValidateEmail(p.Email); err != nil {
		return err
	}
	return nil
}

// Normalize returns p with the same trimming and casing NewPerson applies.
func (p Person) Normalize() Person {
	return Person{
		Name:  strings.TrimSpace(p.Name),
		Age:   p.Age,
		Email: strings.ToLower(strings.TrimSpace(p.Email)),
	}
}

// NewStudent validates id and personal data and returns a complete Student.
func NewStudent(id string, in PersonInput) (Student, error) {
	sid, err := ValidateNonEmpty(id, "student_id")
	if err != nil {
		return Student{}, err
	}
	person, err := NewPerson(in)
	if err != nil {
		return Student{}, err
	}
	return Student{ID: sid, Person: person}, nil
}

// NewInstructor validates id and personal data and returns a complete Instructor.
func NewInstructor(id string, in PersonInput) (Instructor, error) {
	iid, err := ValidateNonEmpty(id, "instructor_id")
	if err != nil {
		return Instructor{}, err
	}
	person, err := NewPerson(in)
	if err != nil {
		return Instructor{}, err
	}
	return Instructor{ID: iid, Person: person}, nil
}

// NewCourse validates id and name. A blank instructor id is treated as none.
func NewCourse(id, name string, instructorID *string) (Course, error) {
	cid, err := ValidateNonEmpty(id, "course_id")
	if err != nil {
		return Course{}, err
	}
	cname, err := ValidateNonEmpty(name, "course_name")
	if err != nil {
		return Course{}, err
	}
	return Course{ID: cid, Name: cname, InstructorID: NormalizeRef(instructorID)}, nil
}

// Validate re-checks a student record.
func (s Student) Validate() error {
	if _, err := ValidateNonEmpty(s.ID, "student_id"); err != nil {
		return err
	}
	return s.Person.Validate()
}

// Validate re-checks an instructor record.
func (i Instructor) Validate() error {
	if _, err := ValidateNonEmpty(i.ID, "instructor_id"); err != nil {
		return err
	}
	return i.Person.Validate()
}

// Validate re-checks a course record. Reference resolution is the store's job.
func (c Course) Validate() error {
	if _, err := ValidateNonEmpty(c.ID, "course_id"); err != nil {
		return err
	}
	if _, err := ValidateNonEmpty(c.Name, "course_name"); err != nil {
		return err
	}
	return nil
}

// NormalizeRef trims an optional id reference, mapping blank to nil.
func NormalizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
