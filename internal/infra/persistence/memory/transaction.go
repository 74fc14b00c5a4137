package memory

import "schoolcore/pkg/domain"

type transaction struct {
	state   memoryState
	changes []Change
}

func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) FindStudent(id string) (Student, bool) {
	s, ok := tx.state.students[id]
	return s, ok
}

func (tx *transaction) FindInstructor(id string) (Instructor, bool) {
	in, ok := tx.state.instructors[id]
	return in, ok
}

func (tx *transaction) FindCourse(id string) (Course, bool) {
	c, ok := tx.state.courses[id]
	if !ok {
		return Course{}, false
	}
	return cloneCourse(c), true
}

func (tx *transaction) CreateStudent(s Student) (Student, error) {
	if err := s.Validate(); err != nil {
		return Student{}, err
	}
	if _, exists := tx.state.students[s.ID]; exists {
		return Student{}, domain.DuplicateID(domain.EntityStudent, s.ID)
	}
	s.Person = s.Person.Normalize()
	tx.state.students[s.ID] = s
	tx.recordChange(Change{Entity: domain.EntityStudent, Action: domain.ActionCreate, After: s})
	return s, nil
}

func (tx *transaction) UpdateStudent(id string, mutator func(*Student) error) (Student, error) {
	current, ok := tx.state.students[id]
	if !ok {
		return Student{}, domain.NotFound(domain.EntityStudent, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Student{}, err
	}
	current.ID = id
	if err := current.Validate(); err != nil {
		return Student{}, err
	}
	current.Person = current.Person.Normalize()
	tx.state.students[id] = current
	tx.recordChange(Change{Entity: domain.EntityStudent, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteStudent removes the student and every enrollment row that references it.
func (tx *transaction) DeleteStudent(id string) error {
	current, ok := tx.state.students[id]
	if !ok {
		return domain.NotFound(domain.EntityStudent, id)
	}
	for e := range tx.state.enrollments {
		if e.StudentID == id {
			delete(tx.state.enrollments, e)
		}
	}
	delete(tx.state.students, id)
	tx.recordChange(Change{Entity: domain.EntityStudent, Action: domain.ActionDelete, Before: current})
	return nil
}

func (tx *transaction) CreateInstructor(in Instructor) (Instructor, error) {
	if err := in.Validate(); err != nil {
		return Instructor{}, err
	}
	if _, exists := tx.state.instructors[in.ID]; exists {
		return Instructor{}, domain.DuplicateID(domain.EntityInstructor, in.ID)
	}
	in.Person = in.Person.Normalize()
	tx.state.instructors[in.ID] = in
	tx.recordChange(Change{Entity: domain.EntityInstructor, Action: domain.ActionCreate, After: in})
	return in, nil
}

func (tx *transaction) UpdateInstructor(id string, mutator func(*Instructor) error) (Instructor, error) {
	current, ok := tx.state.instructors[id]
	if !ok {
		return Instructor{}, domain.NotFound(domain.EntityInstructor, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Instructor{}, err
	}
	current.ID = id
	if err := current.Validate(); err != nil {
		return Instructor{}, err
	}
	current.Person = current.Person.Normalize()
	tx.state.instructors[id] = current
	tx.recordChange(Change{Entity: domain.EntityInstructor, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteInstructor removes the instructor and clears the instructor reference
// on every course it taught. The courses themselves survive.
func (tx *transaction) DeleteInstructor(id string) error {
	current, ok := tx.state.instructors[id]
	if !ok {
		return domain.NotFound(domain.EntityInstructor, id)
	}
	for cid, c := range tx.state.courses {
		if c.HasInstructor(id) {
			c.InstructorID = nil
			tx.state.courses[cid] = c
		}
	}
	delete(tx.state.instructors, id)
	tx.recordChange(Change{Entity: domain.EntityInstructor, Action: domain.ActionDelete, Before: current})
	return nil
}

func (tx *transaction) checkInstructorRef(c Course) error {
	if c.InstructorID == nil {
		return nil
	}
	if _, ok := tx.state.instructors[*c.InstructorID]; !ok {
		return domain.DanglingReference(domain.EntityCourse, c.ID, domain.EntityInstructor, *c.InstructorID)
	}
	return nil
}

func (tx *transaction) CreateCourse(c Course) (Course, error) {
	c.InstructorID = domain.NormalizeRef(c.InstructorID)
	if err := c.Validate(); err != nil {
		return Course{}, err
	}
	if _, exists := tx.state.courses[c.ID]; exists {
		return Course{}, domain.DuplicateID(domain.EntityCourse, c.ID)
	}
	if err := tx.checkInstructorRef(c); err != nil {
		return Course{}, err
	}
	tx.state.courses[c.ID] = cloneCourse(c)
	tx.recordChange(Change{Entity: domain.EntityCourse, Action: domain.ActionCreate, After: cloneCourse(c)})
	return cloneCourse(c), nil
}

func (tx *transaction) UpdateCourse(id string, mutator func(*Course) error) (Course, error) {
	current, ok := tx.state.courses[id]
	if !ok {
		return Course{}, domain.NotFound(domain.EntityCourse, id)
	}
	before := cloneCourse(current)
	current = cloneCourse(current)
	if err := mutator(&current); err != nil {
		return Course{}, err
	}
	current.ID = id
	current.InstructorID = domain.NormalizeRef(current.InstructorID)
	if err := current.Validate(); err != nil {
		return Course{}, err
	}
	if err := tx.checkInstructorRef(current); err != nil {
		return Course{}, err
	}
	tx.state.courses[id] = cloneCourse(current)
	tx.recordChange(Change{Entity: domain.EntityCourse, Action: domain.ActionUpdate, Before: before, After: cloneCourse(current)})
	return cloneCourse(current), nil
}

// DeleteCourse removes the course and its enrollment rows.
func (tx *transaction) DeleteCourse(id string) error {
	current, ok := tx.state.courses[id]
	if !ok {
		return domain.NotFound(domain.EntityCourse, id)
	}
	for e := range tx.state.enrollments {
		if e.CourseID == id {
			delete(tx.state.enrollments, e)
		}
	}
	delete(tx.state.courses, id)
	tx.recordChange(Change{Entity: domain.EntityCourse, Action: domain.ActionDelete, Before: cloneCourse(current)})
	return nil
}

func (tx *transaction) requireRelation(studentID, courseID string) error {
	if _, ok := tx.state.students[studentID]; !ok {
		return domain.NotFound(domain.EntityStudent, studentID)
	}
	if _, ok := tx.state.courses[courseID]; !ok {
		return domain.NotFound(domain.EntityCourse, courseID)
	}
	return nil
}

func (tx *transaction) Enroll(studentID, courseID string) (bool, error) {
	if err := tx.requireRelation(studentID, courseID); err != nil {
		return false, err
	}
	row := Enrollment{StudentID: studentID, CourseID: courseID}
	if _, exists := tx.state.enrollments[row]; exists {
		return false, nil
	}
	tx.state.enrollments[row] = struct{}{}
	tx.recordChange(Change{Entity: domain.EntityEnrollment, Action: domain.ActionCreate, After: row})
	return true, nil
}

func (tx *transaction) Unenroll(studentID, courseID string) (bool, error) {
	if err := tx.requireRelation(studentID, courseID); err != nil {
		return false, err
	}
	row := Enrollment{StudentID: studentID, CourseID: courseID}
	if _, exists := tx.state.enrollments[row]; !exists {
		return false, nil
	}
	delete(tx.state.enrollments, row)
	tx.recordChange(Change{Entity: domain.EntityEnrollment, Action: domain.ActionDelete, Before: row})
	return true, nil
}

// AssignInstructor replaces the course's instructor. Unlike course updates, an
// unknown instructor id here is a lookup failure and reports NotFound.
func (tx *transaction) AssignInstructor(courseID string, instructorID *string) (Course, error) {
	current, ok := tx.state.courses[courseID]
	if !ok {
		return Course{}, domain.NotFound(domain.EntityCourse, courseID)
	}
	ref := domain.NormalizeRef(instructorID)
	if ref != nil {
		if _, ok := tx.state.instructors[*ref]; !ok {
			return Course{}, domain.NotFound(domain.EntityInstructor, *ref)
		}
	}
	before := cloneCourse(current)
	if sameRef(current.InstructorID, ref) {
		return before, nil
	}
	current = cloneCourse(current)
	current.InstructorID = ref
	tx.state.courses[courseID] = current
	tx.recordChange(Change{Entity: domain.EntityCourse, Action: domain.ActionUpdate, Before: before, After: cloneCourse(current)})
	return cloneCourse(current), nil
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
