package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"schoolcore/internal/infra/persistence/memory"
	"schoolcore/pkg/domain"
)

// PersonRecord is the serialized form of a student or instructor. CourseIDs
// is derived on write and only consulted on read to recover relations.
type PersonRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Email     string   `json:"email"`
	CourseIDs []string `json:"course_ids,omitempty"`
}

// CourseRecord is the serialized form of a course.
type CourseRecord struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	InstructorID       *string  `json:"instructor_id"`
	EnrolledStudentIDs []string `json:"enrolled_student_ids"`
}

// Document is the complete serialized state.
type Document struct {
	Students    []PersonRecord `json:"students"`
	Instructors []PersonRecord `json:"instructors"`
	Courses     []CourseRecord `json:"courses"`
}

// NewDocument renders view as a document with every array ordered by id.
func NewDocument(view domain.TransactionView) Document {
	doc := Document{
		Students:    []PersonRecord{},
		Instructors: []PersonRecord{},
		Courses:     []CourseRecord{},
	}
	for _, s := range view.ListStudents() {
		doc.Students = append(doc.Students, PersonRecord{
			ID: s.ID, Name: s.Name, Age: s.Age, Email: s.Email,
			CourseIDs: view.StudentCourseIDs(s.ID),
		})
	}
	for _, in := range view.ListInstructors() {
		doc.Instructors = append(doc.Instructors, PersonRecord{
			ID: in.ID, Name: in.Name, Age: in.Age, Email: in.Email,
			CourseIDs: view.InstructorCourseIDs(in.ID),
		})
	}
	for _, c := range view.ListCourses() {
		doc.Courses = append(doc.Courses, CourseRecord{
			ID:                 c.ID,
			Name:               c.Name,
			InstructorID:       domain.CloneStringPtr(c.InstructorID),
			EnrolledStudentIDs: view.RosterIDs(c.ID),
		})
	}
	return doc
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// Decode reads a document. Unknown fields are ignored.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// LoadReport describes the dangling references dropped while loading.
type LoadReport struct {
	memory.RepairReport
	// DroppedAssignments counts instructor course_ids naming a missing course.
	DroppedAssignments int
}

// Repaired reports whether the load discarded anything.
func (r LoadReport) Repaired() bool {
	return r.RepairReport.Repaired() || r.DroppedAssignments > 0
}

// Snapshot converts doc into arena state. Records are validated and must have
// unique ids within their kind. Relations are rebuilt from course rosters and
// student course_ids; an instructor's course_ids only fill a course that has
// no instructor of its own, with lower instructor ids taking precedence.
// Dangling references are dropped and reported rather than failing the load.
func (doc Document) Snapshot() (memory.Snapshot, LoadReport, error) {
	snap := memory.Snapshot{
		Students:    make(map[string]domain.Student, len(doc.Students)),
		Instructors: make(map[string]domain.Instructor, len(doc.Instructors)),
		Courses:     make(map[string]domain.Course, len(doc.Courses)),
	}
	var report LoadReport

	for _, rec := range doc.Students {
		s := domain.Student{ID: rec.ID, Person: domain.Person{Name: rec.Name, Age: rec.Age, Email: rec.Email}}
		if err := s.Validate(); err != nil {
			return memory.Snapshot{}, LoadReport{}, err
		}
		if _, dup := snap.Students[s.ID]; dup {
			return memory.Snapshot{}, LoadReport{}, domain.DuplicateID(domain.EntityStudent, s.ID)
		}
		s.Person = s.Person.Normalize()
		snap.Students[s.ID] = s
	}
	for _, rec := range doc.Instructors {
		in := domain.Instructor{ID: rec.ID, Person: domain.Person{Name: rec.Name, Age: rec.Age, Email: rec.Email}}
		if err := in.Validate(); err != nil {
			return memory.Snapshot{}, LoadReport{}, err
		}
		if _, dup := snap.Instructors[in.ID]; dup {
			return memory.Snapshot{}, LoadReport{}, domain.DuplicateID(domain.EntityInstructor, in.ID)
		}
		in.Person = in.Person.Normalize()
		snap.Instructors[in.ID] = in
	}
	for _, rec := range doc.Courses {
		c := domain.Course{ID: rec.ID, Name: rec.Name, InstructorID: domain.NormalizeRef(rec.InstructorID)}
		if err := c.Validate(); err != nil {
			return memory.Snapshot{}, LoadReport{}, err
		}
		if _, dup := snap.Courses[c.ID]; dup {
			return memory.Snapshot{}, LoadReport{}, domain.DuplicateID(domain.EntityCourse, c.ID)
		}
		snap.Courses[c.ID] = c
		for _, sid := range rec.EnrolledStudentIDs {
			snap.Enrollments = append(snap.Enrollments, domain.Enrollment{StudentID: sid, CourseID: c.ID})
		}
	}

	seen := make(map[domain.Enrollment]struct{}, len(snap.Enrollments))
	for _, e := range snap.Enrollments {
		seen[e] = struct{}{}
	}
	for _, rec := range doc.Students {
		for _, cid := range rec.CourseIDs {
			e := domain.Enrollment{StudentID: rec.ID, CourseID: cid}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			snap.Enrollments = append(snap.Enrollments, e)
		}
	}

	instructors := append([]PersonRecord(nil), doc.Instructors...)
	sort.SliceStable(instructors, func(i, j int) bool { return instructors[i].ID < instructors[j].ID })
	for _, rec := range instructors {
		for _, cid := range rec.CourseIDs {
			c, ok := snap.Courses[cid]
			if !ok {
				report.DroppedAssignments++
				continue
			}
			if c.InstructorID == nil {
				c.InstructorID = domain.StringPtr(rec.ID)
				snap.Courses[cid] = c
			}
		}
	}

	repaired, repairs := memory.RepairSnapshot(snap)
	report.RepairReport = repairs
	return repaired, report, nil
}
