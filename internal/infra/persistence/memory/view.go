package memory

import "sort"

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListStudents() []Student {
	out := make([]Student, 0, len(v.state.students))
	for _, s := range v.state.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v transactionView) ListInstructors() []Instructor {
	out := make([]Instructor, 0, len(v.state.instructors))
	for _, in := range v.state.instructors {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v transactionView) ListCourses() []Course {
	out := make([]Course, 0, len(v.state.courses))
	for _, c := range v.state.courses {
		out = append(out, cloneCourse(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v transactionView) ListEnrollments() []Enrollment {
	return sortedEnrollments(v.state.enrollments)
}

func (v transactionView) FindStudent(id string) (Student, bool) {
	s, ok := v.state.students[id]
	return s, ok
}

func (v transactionView) FindInstructor(id string) (Instructor, bool) {
	in, ok := v.state.instructors[id]
	return in, ok
}

func (v transactionView) FindCourse(id string) (Course, bool) {
	c, ok := v.state.courses[id]
	if !ok {
		return Course{}, false
	}
	return cloneCourse(c), true
}

func (v transactionView) IsEnrolled(studentID, courseID string) bool {
	_, ok := v.state.enrollments[Enrollment{StudentID: studentID, CourseID: courseID}]
	return ok
}

func (v transactionView) RosterIDs(courseID string) []string {
	ids := make([]string, 0)
	for e := range v.state.enrollments {
		if e.CourseID == courseID {
			ids = append(ids, e.StudentID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (v transactionView) StudentCourseIDs(studentID string) []string {
	ids := make([]string, 0)
	for e := range v.state.enrollments {
		if e.StudentID == studentID {
			ids = append(ids, e.CourseID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (v transactionView) InstructorCourseIDs(instructorID string) []string {
	ids := make([]string, 0)
	for id, c := range v.state.courses {
		if c.HasInstructor(instructorID) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (v transactionView) EnrollmentCount(courseID string) int {
	n := 0
	for e := range v.state.enrollments {
		if e.CourseID == courseID {
			n++
		}
	}
	return n
}
