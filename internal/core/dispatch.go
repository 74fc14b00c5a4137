package core

import (
	"context"
	"fmt"
	"strconv"

	"schoolcore/pkg/domain"
)

// Fields carries the raw, user-typed values for a kind-dispatched create or
// update. Students and instructors use Name, Age, and Email; courses use Name
// and InstructorID.
type Fields struct {
	Name         string
	Age          string
	Email        string
	InstructorID *string
}

func (f Fields) person() PersonInput {
	return PersonInput{Name: f.Name, Age: f.Age, Email: f.Email}
}

// FieldsOf renders a record back into Fields, e.g. to prefill an edit form.
func FieldsOf(r domain.Record) Fields {
	switch rec := r.(type) {
	case Student:
		return Fields{Name: rec.Name, Age: strconv.Itoa(rec.Age), Email: rec.Email}
	case Instructor:
		return Fields{Name: rec.Name, Age: strconv.Itoa(rec.Age), Email: rec.Email}
	case Course:
		return Fields{Name: rec.Name, InstructorID: domain.CloneStringPtr(rec.InstructorID)}
	case CourseSummary:
		return Fields{Name: rec.Name, InstructorID: domain.CloneStringPtr(rec.InstructorID)}
	default:
		return Fields{}
	}
}

func unknownKind(kind domain.EntityType) error {
	return fmt.Errorf("%w: %q", domain.ErrUnknownEntityType, kind)
}

// Create validates f and inserts a record of kind with id.
func (s *Service) Create(ctx context.Context, kind domain.EntityType, id string, f Fields) (domain.Record, error) {
	switch kind {
	case domain.EntityStudent:
		st, _, err := s.CreateStudent(ctx, id, f.person())
		return recordOrNil(st, err)
	case domain.EntityInstructor:
		inst, _, err := s.CreateInstructor(ctx, id, f.person())
		return recordOrNil(inst, err)
	case domain.EntityCourse:
		c, _, err := s.CreateCourse(ctx, id, f.Name, f.InstructorID)
		return recordOrNil(c, err)
	default:
		return nil, unknownKind(kind)
	}
}

// Update validates f and overwrites the record of kind with id.
func (s *Service) Update(ctx context.Context, kind domain.EntityType, id string, f Fields) (domain.Record, error) {
	switch kind {
	case domain.EntityStudent:
		st, _, err := s.UpdateStudent(ctx, id, f.person())
		return recordOrNil(st, err)
	case domain.EntityInstructor:
		inst, _, err := s.UpdateInstructor(ctx, id, f.person())
		return recordOrNil(inst, err)
	case domain.EntityCourse:
		c, _, err := s.UpdateCourse(ctx, id, f.Name, f.InstructorID)
		return recordOrNil(c, err)
	default:
		return nil, unknownKind(kind)
	}
}

// Delete removes the record of kind with id along with its relations.
func (s *Service) Delete(ctx context.Context, kind domain.EntityType, id string) error {
	var err error
	switch kind {
	case domain.EntityStudent:
		_, err = s.DeleteStudent(ctx, id)
	case domain.EntityInstructor:
		_, err = s.DeleteInstructor(ctx, id)
	case domain.EntityCourse:
		_, err = s.DeleteCourse(ctx, id)
	default:
		err = unknownKind(kind)
	}
	return err
}

// Get returns the record of kind with id.
func (s *Service) Get(_ context.Context, kind domain.EntityType, id string) (domain.Record, error) {
	switch kind {
	case domain.EntityStudent:
		return recordOrNil(s.GetStudent(id))
	case domain.EntityInstructor:
		return recordOrNil(s.GetInstructor(id))
	case domain.EntityCourse:
		return recordOrNil(s.GetCourse(id))
	default:
		return nil, unknownKind(kind)
	}
}

// List returns every record of kind ordered by id. Courses are returned as
// CourseSummary records.
func (s *Service) List(ctx context.Context, kind domain.EntityType) ([]domain.Record, error) {
	switch kind {
	case domain.EntityStudent:
		return records(s.ListStudents()), nil
	case domain.EntityInstructor:
		return records(s.ListInstructors()), nil
	case domain.EntityCourse:
		courses, err := s.ListCourses(ctx)
		if err != nil {
			return nil, err
		}
		return records(courses), nil
	default:
		return nil, unknownKind(kind)
	}
}

func recordOrNil[R domain.Record](r R, err error) (domain.Record, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

func records[R domain.Record](in []R) []domain.Record {
	out := make([]domain.Record, 0, len(in))
	for _, r := range in {
		out = append(out, r)
	}
	return out
}
