package core

import (
	"context"
	"errors"
	"testing"

	"schoolcore/internal/infra/persistence/memory"
	"schoolcore/pkg/domain"
)

func evaluateOn(t *testing.T, snap memory.Snapshot, changes []domain.Change) domain.Result {
	t.Helper()
	store := memory.NewStore(nil)
	if err := store.ImportState(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	var res domain.Result
	err := store.View(context.Background(), func(v domain.TransactionView) error {
		var err error
		res, err = ReferentialIntegrityRule().Evaluate(context.Background(), v, changes)
		return err
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return res
}

func emptySnapshot() memory.Snapshot {
	return memory.Snapshot{
		Students:    map[string]domain.Student{},
		Instructors: map[string]domain.Instructor{},
		Courses:     map[string]domain.Course{},
	}
}

func TestReferentialIntegrityFlagsDanglingWrites(t *testing.T) {
	snap := emptySnapshot()
	snap.Students["S1"] = domain.Student{ID: "S1", Person: domain.Person{Name: "Alice", Age: 20, Email: "a@a.com"}}

	res := evaluateOn(t, snap, []domain.Change{
		{Entity: domain.EntityCourse, Action: domain.ActionCreate, After: domain.Course{ID: "C1", Name: "Math", InstructorID: domain.StringPtr("ghost")}},
		{Entity: domain.EntityEnrollment, Action: domain.ActionCreate, After: domain.Enrollment{StudentID: "S1", CourseID: "C404"}},
	})
	if !res.HasBlocking() || len(res.Violations) != 2 {
		t.Fatalf("expected two blocking violations, got %+v", res.Violations)
	}
	err := domain.RuleViolationError{Result: res}
	if !errors.Is(err, domain.ErrDanglingReference) {
		t.Fatalf("violation should unwrap to dangling reference: %v", err)
	}
	if res.Violations[0].Entity != domain.EntityCourse || res.Violations[1].EntityID != "S1/C404" {
		t.Fatalf("unexpected attribution %+v", res.Violations)
	}
}

func TestReferentialIntegrityFlagsOrphansAfterDelete(t *testing.T) {
	snap := emptySnapshot()
	turing := domain.Instructor{ID: "I1", Person: domain.Person{Name: "Turing", Age: 41, Email: "t@uni.edu"}}
	snap.Instructors["I1"] = turing
	snap.Courses["C1"] = domain.Course{ID: "C1", Name: "Math", InstructorID: domain.StringPtr("I1")}

	// I1 is still referenced in the view, as if a backend forgot the set-null.
	res := evaluateOn(t, snap, []domain.Change{
		{Entity: domain.EntityInstructor, Action: domain.ActionDelete, Before: turing},
	})
	if len(res.Violations) != 1 || res.Violations[0].EntityID != "C1" {
		t.Fatalf("expected orphaned course, got %+v", res.Violations)
	}
}

func TestReferentialIntegrityPassesCleanTransactions(t *testing.T) {
	svc := NewInMemoryService(NewRulesEngine())
	seededService(t, svc)
	res, err := svc.DeleteInstructor(context.Background(), "I1")
	if err != nil || len(res.Violations) != 0 {
		t.Fatalf("delete instructor: %+v %v", res, err)
	}
	res, err = svc.DeleteStudent(context.Background(), "S1")
	if err != nil || len(res.Violations) != 0 {
		t.Fatalf("delete student: %+v %v", res, err)
	}
	if got := NewRulesEngine().Rules(); len(got) != 1 || got[0] != "referential_integrity" {
		t.Fatalf("rules %v", got)
	}
}
