package memory

import (
	"fmt"
	"sort"

	"schoolcore/pkg/domain"
)

func normalizeSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Students == nil {
		snapshot.Students = map[string]Student{}
	}
	if snapshot.Instructors == nil {
		snapshot.Instructors = map[string]Instructor{}
	}
	if snapshot.Courses == nil {
		snapshot.Courses = map[string]Course{}
	}
	return snapshot
}

// VerifySnapshot checks that every record is valid, keyed by its own id, and
// that no course or relation row references a missing record.
func VerifySnapshot(snapshot Snapshot) error {
	snapshot = normalizeSnapshot(snapshot)
	for key, s := range snapshot.Students {
		if err := s.Validate(); err != nil {
			return err
		}
		if key != s.ID {
			return keyMismatch(domain.EntityStudent, key, s.ID)
		}
	}
	for key, in := range snapshot.Instructors {
		if err := in.Validate(); err != nil {
			return err
		}
		if key != in.ID {
			return keyMismatch(domain.EntityInstructor, key, in.ID)
		}
	}
	for key, c := range snapshot.Courses {
		if err := c.Validate(); err != nil {
			return err
		}
		if key != c.ID {
			return keyMismatch(domain.EntityCourse, key, c.ID)
		}
		if c.InstructorID == nil {
			continue
		}
		if _, ok := snapshot.Instructors[*c.InstructorID]; !ok {
			return domain.DanglingReference(domain.EntityCourse, c.ID, domain.EntityInstructor, *c.InstructorID)
		}
	}
	for _, e := range snapshot.Enrollments {
		if _, ok := snapshot.Students[e.StudentID]; !ok {
			return domain.DanglingReference(domain.EntityEnrollment, e.Key(), domain.EntityStudent, e.StudentID)
		}
		if _, ok := snapshot.Courses[e.CourseID]; !ok {
			return domain.DanglingReference(domain.EntityEnrollment, e.Key(), domain.EntityCourse, e.CourseID)
		}
	}
	return nil
}

func keyMismatch(entity domain.EntityType, key, id string) error {
	return domain.Persistence("verify snapshot", fmt.Errorf("%s %q stored under key %q", entity, id, key))
}

// RepairReport lists what RepairSnapshot discarded.
type RepairReport struct {
	// ClearedInstructors holds ids of courses whose instructor reference was dropped.
	ClearedInstructors []string
	DroppedEnrollments []Enrollment
	// DuplicateEnrollments counts repeated relation rows that were collapsed.
	DuplicateEnrollments int
}

// Repaired reports whether anything was discarded.
func (r RepairReport) Repaired() bool {
	return len(r.ClearedInstructors) > 0 || len(r.DroppedEnrollments) > 0 || r.DuplicateEnrollments > 0
}

// RepairSnapshot drops dangling references instead of failing: course
// instructor ids that resolve to nothing are cleared and relation rows with a
// missing endpoint are removed. Records themselves are never dropped.
func RepairSnapshot(snapshot Snapshot) (Snapshot, RepairReport) {
	snapshot = normalizeSnapshot(snapshot)
	var report RepairReport

	courses := make(map[string]Course, len(snapshot.Courses))
	for id, c := range snapshot.Courses {
		c = cloneCourse(c)
		if c.InstructorID != nil {
			if _, ok := snapshot.Instructors[*c.InstructorID]; !ok {
				c.InstructorID = nil
				report.ClearedInstructors = append(report.ClearedInstructors, id)
			}
		}
		courses[id] = c
	}
	snapshot.Courses = courses

	seen := make(map[Enrollment]struct{}, len(snapshot.Enrollments))
	kept := make([]Enrollment, 0, len(snapshot.Enrollments))
	for _, e := range snapshot.Enrollments {
		if _, dup := seen[e]; dup {
			report.DuplicateEnrollments++
			continue
		}
		seen[e] = struct{}{}
		_, studentOK := snapshot.Students[e.StudentID]
		_, courseOK := snapshot.Courses[e.CourseID]
		if !studentOK || !courseOK {
			report.DroppedEnrollments = append(report.DroppedEnrollments, e)
			continue
		}
		kept = append(kept, e)
	}
	snapshot.Enrollments = kept
	sort.Strings(report.ClearedInstructors)
	return snapshot, report
}
