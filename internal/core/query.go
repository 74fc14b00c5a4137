package core

import (
	"strings"

	"schoolcore/pkg/domain"
)

// Query searches view. A blank query matches everything. Otherwise students
// and instructors match on id, name, or email and courses on id or name, each
// as a case-insensitive substring. Results are ordered by id.
func Query(view domain.TransactionView, query string) SearchResult {
	needle := strings.ToLower(strings.TrimSpace(query))
	match := func(fields ...string) bool {
		if needle == "" {
			return true
		}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), needle) {
				return true
			}
		}
		return false
	}

	out := SearchResult{
		Students:    []Student{},
		Instructors: []Instructor{},
		Courses:     []CourseSummary{},
	}
	for _, st := range view.ListStudents() {
		if match(st.ID, st.Name, st.Email) {
			out.Students = append(out.Students, st)
		}
	}
	for _, inst := range view.ListInstructors() {
		if match(inst.ID, inst.Name, inst.Email) {
			out.Instructors = append(out.Instructors, inst)
		}
	}
	for _, c := range view.ListCourses() {
		if match(c.ID, c.Name) {
			out.Courses = append(out.Courses, summarize(view, c))
		}
	}
	return out
}

// summarize resolves the instructor name and enrolled count of c.
func summarize(view domain.TransactionView, c Course) CourseSummary {
	sum := CourseSummary{Course: c, EnrolledCount: view.EnrollmentCount(c.ID)}
	if c.InstructorID != nil {
		if inst, ok := view.FindInstructor(*c.InstructorID); ok {
			sum.InstructorName = domain.StringPtr(inst.Name)
		}
	}
	return sum
}
