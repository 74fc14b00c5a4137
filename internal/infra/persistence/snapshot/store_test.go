package snapshot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolcore/pkg/domain"
)

func seed(t *testing.T, store domain.PersistentStore) {
	t.Helper()
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateStudent(domain.Student{ID: "S1", Person: domain.Person{Name: "Alice", Age: 20, Email: "a@a.com"}}); err != nil {
			return err
		}
		if _, err := tx.CreateStudent(domain.Student{ID: "S2", Person: domain.Person{Name: "Bob", Age: 21, Email: "b@b.com"}}); err != nil {
			return err
		}
		if _, err := tx.CreateInstructor(domain.Instructor{ID: "I1", Person: domain.Person{Name: "Turing", Age: 41, Email: "t@uni.edu"}}); err != nil {
			return err
		}
		if _, err := tx.CreateCourse(domain.Course{ID: "C1", Name: "Math", InstructorID: domain.StringPtr("I1")}); err != nil {
			return err
		}
		if _, err := tx.CreateCourse(domain.Course{ID: "C2", Name: "Art"}); err != nil {
			return err
		}
		if _, err := tx.Enroll("S1", "C1"); err != nil {
			return err
		}
		_, err := tx.Enroll("S2", "C1")
		return err
	})
	require.NoError(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "school.json")
	store, err := NewStore(path, nil)
	require.NoError(t, err)
	seed(t, store)
	want := store.ExportState()

	reloaded, err := NewStore(path, nil)
	require.NoError(t, err)
	got := reloaded.ExportState()
	assert.Equal(t, want.Students, got.Students)
	assert.Equal(t, want.Instructors, got.Instructors)
	assert.Equal(t, want.Courses, got.Courses)
	assert.Equal(t, want.Enrollments, got.Enrollments)
	assert.False(t, reloaded.LoadReport().Repaired())
}

func TestDocumentCarriesDerivedIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "school.json")
	store, err := NewStore(path, nil)
	require.NoError(t, err)
	seed(t, store)

	doc, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, doc.Courses, 2)
	assert.Equal(t, []string{"S1", "S2"}, doc.Courses[0].EnrolledStudentIDs)
	assert.Empty(t, doc.Courses[1].EnrolledStudentIDs)
	assert.Nil(t, doc.Courses[1].InstructorID)
	assert.Equal(t, []string{"C1"}, doc.Students[0].CourseIDs)
	assert.Equal(t, []string{"C1"}, doc.Instructors[0].CourseIDs)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"instructor_id": null`)
}

func TestLoadDropsDanglingReferencesAndLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "school.json")
	doc := Document{
		Students: []PersonRecord{
			{ID: "S1", Name: "Alice", Age: 20, Email: "a@a.com", CourseIDs: []string{"C1", "C404"}},
		},
		Instructors: []PersonRecord{
			{ID: "I2", Name: "Hopper", Age: 50, Email: "h@uni.edu", CourseIDs: []string{"C2", "C404"}},
			{ID: "I1", Name: "Turing", Age: 41, Email: "t@uni.edu", CourseIDs: []string{"C2", "C3"}},
		},
		Courses: []CourseRecord{
			{ID: "C1", Name: "Math", InstructorID: domain.StringPtr("ghost"), EnrolledStudentIDs: []string{"S1", "S404"}},
			{ID: "C2", Name: "Art"},
			{ID: "C3", Name: "Logic", InstructorID: domain.StringPtr("I2")},
		},
	}
	require.NoError(t, WriteFile(path, doc))

	var logs bytes.Buffer
	store, err := NewStore(path, nil, WithLogger(zerolog.New(&logs)))
	require.NoError(t, err)

	report := store.LoadReport()
	assert.True(t, report.Repaired())
	assert.Equal(t, []string{"C1"}, report.ClearedInstructors)
	assert.Len(t, report.DroppedEnrollments, 2)
	assert.Equal(t, 1, report.DroppedAssignments)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "dangling references")

	c1, _ := store.GetCourse("C1")
	assert.Nil(t, c1.InstructorID)
	c2, _ := store.GetCourse("C2")
	require.NotNil(t, c2.InstructorID)
	assert.Equal(t, "I1", *c2.InstructorID, "lower instructor id wins an unassigned course")
	c3, _ := store.GetCourse("C3")
	assert.Equal(t, "I2", *c3.InstructorID, "course record takes precedence over instructor course_ids")
	assert.Equal(t, []domain.Enrollment{{StudentID: "S1", CourseID: "C1"}}, store.ExportState().Enrollments)
}

func TestLoadFailsOnDuplicateAndInvalidRecords(t *testing.T) {
	cases := map[string]struct {
		doc  Document
		kind domain.ErrorKind
	}{
		"duplicate student": {
			doc: Document{Students: []PersonRecord{
				{ID: "S1", Name: "A", Age: 1, Email: "a@a.com"},
				{ID: "S1", Name: "B", Age: 2, Email: "b@b.com"},
			}},
			kind: domain.KindDuplicateID,
		},
		"duplicate course": {
			doc:  Document{Courses: []CourseRecord{{ID: "C1", Name: "x"}, {ID: "C1", Name: "y"}}},
			kind: domain.KindDuplicateID,
		},
		"bad email": {
			doc:  Document{Instructors: []PersonRecord{{ID: "I1", Name: "T", Age: 40, Email: "nope"}}},
			kind: domain.KindInvalidEmail,
		},
		"age out of range": {
			doc:  Document{Students: []PersonRecord{{ID: "S1", Name: "A", Age: domain.MaxAge + 1, Email: "a@a.com"}}},
			kind: domain.KindAgeOutOfRange,
		},
		"blank course name": {
			doc:  Document{Courses: []CourseRecord{{ID: "C1", Name: "  "}}},
			kind: domain.KindEmptyField,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "school.json")
			require.NoError(t, WriteFile(path, tc.doc))
			_, err := NewStore(path, nil)
			assert.Equal(t, tc.kind, domain.KindOf(err), "err: %v", err)
		})
	}
}

func TestCorruptDocumentIsPersistenceFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "school.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := NewStore(path, nil)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
}

func TestCommitRewritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "school.json")
	store, err := NewStore(path, nil)
	require.NoError(t, err)
	seed(t, store)
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteCourse("C1")
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
	doc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Courses, 1)
	assert.Empty(t, doc.Students[0].CourseIDs)
}

func TestCommitFailureLeavesStateUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "school.json")
	store, err := NewStore(path, nil)
	require.NoError(t, err)
	seed(t, store)
	// Replacing the parent directory with a file makes the next write fail.
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "sub")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub"), nil, 0o600))

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteStudent("S1")
	})
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
	_, ok := store.GetStudent("S1")
	assert.True(t, ok)
}

func TestBackupWritesDocument(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "school.json"), nil)
	require.NoError(t, err)
	seed(t, store)

	target := filepath.Join(dir, "backups", "copy.json")
	require.NoError(t, store.Backup(context.Background(), target))
	copyStore, err := NewStore(target, nil)
	require.NoError(t, err)
	assert.Equal(t, store.ExportState(), copyStore.ExportState())

	assert.ErrorIs(t, store.Backup(context.Background(), ""), domain.ErrEmptyField)
}

func TestMissingFileStartsEmpty(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.NoError(t, err)
	assert.Empty(t, store.ListStudents())
	assert.NoError(t, store.Close())
}
