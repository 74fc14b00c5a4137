package relational

import (
	"context"
	"database/sql"
	"fmt"

	"schoolcore/internal/infra/persistence/memory"
	"schoolcore/pkg/domain"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadSnapshot(ctx context.Context, db queryer) (memory.Snapshot, error) {
	snapshot := memory.Snapshot{
		Students:    map[string]domain.Student{},
		Instructors: map[string]domain.Instructor{},
		Courses:     map[string]domain.Course{},
	}
	err := scanRows(ctx, db, `SELECT id, name, age, email FROM students ORDER BY id`, func(rows *sql.Rows) error {
		var s domain.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Age, &s.Email); err != nil {
			return err
		}
		snapshot.Students[s.ID] = s
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, domain.Persistence("load students", err)
	}
	err = scanRows(ctx, db, `SELECT id, name, age, email FROM instructors ORDER BY id`, func(rows *sql.Rows) error {
		var in domain.Instructor
		if err := rows.Scan(&in.ID, &in.Name, &in.Age, &in.Email); err != nil {
			return err
		}
		snapshot.Instructors[in.ID] = in
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, domain.Persistence("load instructors", err)
	}
	err = scanRows(ctx, db, `SELECT id, name, instructor_id FROM courses ORDER BY id`, func(rows *sql.Rows) error {
		var (
			c          domain.Course
			instructor sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &instructor); err != nil {
			return err
		}
		if instructor.Valid {
			c.InstructorID = domain.StringPtr(instructor.String)
		}
		snapshot.Courses[c.ID] = c
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, domain.Persistence("load courses", err)
	}
	err = scanRows(ctx, db, `SELECT student_id, course_id FROM registrations ORDER BY student_id, course_id`, func(rows *sql.Rows) error {
		var e domain.Enrollment
		if err := rows.Scan(&e.StudentID, &e.CourseID); err != nil {
			return err
		}
		snapshot.Enrollments = append(snapshot.Enrollments, e)
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, domain.Persistence("load registrations", err)
	}
	return snapshot, nil
}

func scanRows(ctx context.Context, db queryer, query string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate: %w", err)
	}
	return nil
}
