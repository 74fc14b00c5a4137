package core

import (
	"context"

	"schoolcore/pkg/domain"
)

const referentialIntegrityRuleName = "referential_integrity"

// NewRulesEngine builds a rules engine with the built-in policy set.
func NewRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(ReferentialIntegrityRule())
	return engine
}

// ReferentialIntegrityRule re-checks, for every record touched by a
// transaction, that course instructor references and enrollment rows resolve
// in the post-transaction view.
func ReferentialIntegrityRule() domain.Rule {
	return referentialIntegrityRule{}
}

type referentialIntegrityRule struct{}

func (referentialIntegrityRule) Name() string { return referentialIntegrityRuleName }

func (referentialIntegrityRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	add := func(entity domain.EntityType, id string, err error) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     referentialIntegrityRuleName,
			Severity: domain.SeverityBlock,
			Message:  err.Error(),
			Entity:   entity,
			EntityID: id,
			Err:      err,
		})
	}
	// Deleted records must leave nothing pointing at them.
	orphans := func(from domain.EntityType, to domain.EntityType, toID string, ids []string) {
		for _, id := range ids {
			add(from, id, domain.DanglingReference(from, id, to, toID))
		}
	}

	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			switch before := change.Before.(type) {
			case domain.Student:
				orphans(domain.EntityEnrollment, domain.EntityStudent, before.ID, enrollmentKeys(before.ID, view.StudentCourseIDs(before.ID), false))
			case domain.Course:
				orphans(domain.EntityEnrollment, domain.EntityCourse, before.ID, enrollmentKeys(before.ID, view.RosterIDs(before.ID), true))
			case domain.Instructor:
				orphans(domain.EntityCourse, domain.EntityInstructor, before.ID, view.InstructorCourseIDs(before.ID))
			}
			continue
		}
		switch after := change.After.(type) {
		case domain.Course:
			if after.InstructorID == nil {
				continue
			}
			if _, ok := view.FindInstructor(*after.InstructorID); !ok {
				add(domain.EntityCourse, after.ID, domain.DanglingReference(domain.EntityCourse, after.ID, domain.EntityInstructor, *after.InstructorID))
			}
		case domain.Enrollment:
			if _, ok := view.FindStudent(after.StudentID); !ok {
				add(domain.EntityEnrollment, after.Key(), domain.DanglingReference(domain.EntityEnrollment, after.Key(), domain.EntityStudent, after.StudentID))
			}
			if _, ok := view.FindCourse(after.CourseID); !ok {
				add(domain.EntityEnrollment, after.Key(), domain.DanglingReference(domain.EntityEnrollment, after.Key(), domain.EntityCourse, after.CourseID))
			}
		}
	}
	return res, nil
}

func enrollmentKeys(id string, others []string, byCourse bool) []string {
	keys := make([]string, 0, len(others))
	for _, other := range others {
		e := domain.Enrollment{StudentID: id, CourseID: other}
		if byCourse {
			e = domain.Enrollment{StudentID: other, CourseID: id}
		}
		keys = append(keys, e.Key())
	}
	return keys
}
