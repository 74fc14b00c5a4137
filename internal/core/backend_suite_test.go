package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"schoolcore/internal/platform/config"
	"schoolcore/internal/platform/logger"
	"schoolcore/pkg/domain"
)

// backendSuite runs the same service scenarios against every local driver.
type backendSuite struct {
	suite.Suite
	driver string
	cfg    config.Storage
	svc    *Service
}

func (s *backendSuite) SetupTest() {
	dir := s.T().TempDir()
	s.cfg = config.Storage{
		Driver:       s.driver,
		SQLitePath:   filepath.Join(dir, "school.db"),
		SnapshotPath: filepath.Join(dir, "school.json"),
	}
	s.svc = s.open()
}

func (s *backendSuite) TearDownTest() {
	if s.svc != nil {
		s.Require().NoError(s.svc.Close())
	}
}

func (s *backendSuite) open() *Service {
	store, err := OpenPersistentStore(s.cfg, nil, logger.Nop())
	s.Require().NoError(err)
	return NewService(store)
}

func (s *backendSuite) seed() {
	ctx := context.Background()
	_, _, err := s.svc.CreateInstructor(ctx, "I1", person("Grace", "45", "grace@school.edu"))
	s.Require().NoError(err)
	_, _, err = s.svc.CreateStudent(ctx, "S1", alice())
	s.Require().NoError(err)
	_, _, err = s.svc.CreateCourse(ctx, "C1", "Compilers", domain.StringPtr("I1"))
	s.Require().NoError(err)
	_, _, err = s.svc.Enroll(ctx, "S1", "C1")
	s.Require().NoError(err)
}

func (s *backendSuite) TestDeleteInstructorClearsReference() {
	s.seed()
	_, err := s.svc.DeleteInstructor(context.Background(), "I1")
	s.Require().NoError(err)
	course, err := s.svc.GetCourse("C1")
	s.Require().NoError(err)
	s.Nil(course.InstructorID)
}

func (s *backendSuite) TestDeleteStudentCascades() {
	s.seed()
	ctx := context.Background()
	_, err := s.svc.DeleteStudent(ctx, "S1")
	s.Require().NoError(err)
	roster, err := s.svc.Roster(ctx, "C1")
	s.Require().NoError(err)
	s.Empty(roster)
	courses, err := s.svc.ListCourses(ctx)
	s.Require().NoError(err)
	s.Require().Len(courses, 1)
	s.Equal(0, courses[0].EnrolledCount)
}

func (s *backendSuite) TestFailedCreateLeavesStateUntouched() {
	s.seed()
	ctx := context.Background()
	_, _, err := s.svc.CreateStudent(ctx, "S1", person("Other", "30", "o@x.io"))
	s.Equal(domain.KindDuplicateID, domain.KindOf(err))
	_, _, err = s.svc.CreateCourse(ctx, "C2", "Ghost", domain.StringPtr("I9"))
	s.Equal(domain.KindDanglingReference, domain.KindOf(err))

	st, err := s.svc.GetStudent("S1")
	s.Require().NoError(err)
	s.Equal("Alice", st.Name)
	_, err = s.svc.GetCourse("C2")
	s.Equal(domain.KindNotFound, domain.KindOf(err))
}

func (s *backendSuite) TestReopenRestoresState() {
	if s.driver == config.StorageMemory {
		s.T().Skip("memory driver is not durable")
	}
	s.seed()
	s.Require().NoError(s.svc.Close())
	s.svc = s.open()

	ctx := context.Background()
	roster, err := s.svc.Roster(ctx, "C1")
	s.Require().NoError(err)
	s.Equal([]string{"S1"}, ids(roster))
	course, err := s.svc.GetCourse("C1")
	s.Require().NoError(err)
	s.Require().NotNil(course.InstructorID)
	s.Equal("I1", *course.InstructorID)
	res, err := s.svc.Search(ctx, "GRACE")
	s.Require().NoError(err)
	s.Equal([]string{"I1"}, ids(res.Instructors))
}

func TestBackends(t *testing.T) {
	for _, driver := range []string{config.StorageMemory, config.StorageSQLite, config.StorageSnapshot} {
		t.Run(driver, func(t *testing.T) {
			suite.Run(t, &backendSuite{driver: driver})
		})
	}
}
