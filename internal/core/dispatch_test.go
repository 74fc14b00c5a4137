package core

import (
	"context"
	"errors"
	"testing"

	"schoolcore/pkg/domain"
)

func TestKindDispatchedOperations(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)

	cases := []struct {
		kind   domain.EntityType
		id     string
		fields Fields
		update Fields
	}{
		{domain.EntityStudent, "S1", Fields{Name: "Alice", Age: "20", Email: "a@a.com"}, Fields{Name: "Alice", Age: "21", Email: "a@a.com"}},
		{domain.EntityInstructor, "I1", Fields{Name: "Turing", Age: "41", Email: "t@uni.edu"}, Fields{Name: "Alan Turing", Age: "41", Email: "t@uni.edu"}},
		{domain.EntityCourse, "C1", Fields{Name: "Math"}, Fields{Name: "Algebra", InstructorID: domain.StringPtr("I1")}},
	}
	for _, tc := range cases {
		rec, err := svc.Create(ctx, tc.kind, tc.id, tc.fields)
		if err != nil {
			t.Fatalf("create %s: %v", tc.kind, err)
		}
		if rec.Kind() != tc.kind || rec.Key() != tc.id {
			t.Fatalf("create returned %s/%s", rec.Kind(), rec.Key())
		}
		if _, err := svc.Create(ctx, tc.kind, tc.id, tc.fields); !errors.Is(err, domain.ErrDuplicateID) {
			t.Fatalf("%s duplicate: %v", tc.kind, err)
		}
	}
	for _, tc := range cases {
		rec, err := svc.Update(ctx, tc.kind, tc.id, tc.update)
		if err != nil {
			t.Fatalf("update %s: %v", tc.kind, err)
		}
		if got := FieldsOf(rec); got.Name != tc.update.Name || got.Age != tc.update.Age {
			t.Fatalf("update %s produced %+v", tc.kind, got)
		}
		got, err := svc.Get(ctx, tc.kind, tc.id)
		if err != nil || got.Key() != tc.id {
			t.Fatalf("get %s: %v %v", tc.kind, got, err)
		}
		list, err := svc.List(ctx, tc.kind)
		if err != nil || len(list) != 1 {
			t.Fatalf("list %s: %v %v", tc.kind, list, err)
		}
	}

	list, _ := svc.List(ctx, domain.EntityCourse)
	summary, ok := list[0].(CourseSummary)
	if !ok || summary.InstructorName == nil || *summary.InstructorName != "Alan Turing" {
		t.Fatalf("course list should carry summaries: %#v", list[0])
	}

	for i := len(cases) - 1; i >= 0; i-- {
		tc := cases[i]
		if err := svc.Delete(ctx, tc.kind, tc.id); err != nil {
			t.Fatalf("delete %s: %v", tc.kind, err)
		}
		if _, err := svc.Get(ctx, tc.kind, tc.id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("get after delete %s: %v", tc.kind, err)
		}
		if err := svc.Delete(ctx, tc.kind, tc.id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("second delete %s: %v", tc.kind, err)
		}
	}
}

func TestDispatchRejectsUnknownKind(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)
	bogus := domain.EntityEnrollment
	if _, err := svc.Create(ctx, bogus, "x", Fields{}); !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(ctx, bogus, "x", Fields{}); !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Fatalf("update: %v", err)
	}
	if err := svc.Delete(ctx, bogus, "x"); !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, bogus, "x"); !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Fatalf("get: %v", err)
	}
	if _, err := svc.List(ctx, "professor"); !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Fatalf("list: %v", err)
	}
}

func TestFieldsOfUnknownRecord(t *testing.T) {
	if got := FieldsOf(domain.Enrollment{StudentID: "S1", CourseID: "C1"}); got != (Fields{}) {
		t.Fatalf("expected zero fields, got %+v", got)
	}
}
