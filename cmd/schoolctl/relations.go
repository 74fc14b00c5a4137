package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"schoolcore/pkg/domain"
)

func newEnrollCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enroll <student-id> <course-id>",
		Short: "Enroll a student in a course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, _, err := a.svc.Enroll(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("enrolled %s in %s", args[0], args[1])
			if !added {
				msg = fmt.Sprintf("%s already enrolled in %s", args[0], args[1])
			}
			return a.render(message{Message: msg})
		},
	}
}

func newUnenrollCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unenroll <student-id> <course-id>",
		Short: "Remove a student from a course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, _, err := a.svc.Unenroll(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("unenrolled %s from %s", args[0], args[1])
			if !removed {
				msg = fmt.Sprintf("%s was not enrolled in %s", args[0], args[1])
			}
			return a.render(message{Message: msg})
		},
	}
}

func newAssignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <course-id> [instructor-id]",
		Short: "Set the instructor of a course; omit the instructor to clear it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var instructor *string
			if len(args) == 2 {
				instructor = &args[1]
			}
			course, _, err := a.svc.AssignInstructor(cmd.Context(), args[0], instructor)
			if err != nil {
				return err
			}
			return a.render(course)
		},
	}
}

func newCoursesOfCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses-of",
		Short: "List the courses of a student or instructor",
	}
	for _, kind := range personKinds {
		cmd.AddCommand(&cobra.Command{
			Use:   string(kind) + " <id>",
			Short: "Courses linked to a " + string(kind),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				lookup := a.svc.CoursesOfStudent
				if kind == domain.EntityInstructor {
					lookup = a.svc.CoursesOfInstructor
				}
				courses, err := lookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.render(courses)
			},
		})
	}
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Case-insensitive substring search; no query lists everything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			res, err := a.svc.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			return a.render(res)
		},
	}
}
