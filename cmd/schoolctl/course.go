package main

import (
	"github.com/spf13/cobra"

	"schoolcore/internal/core"
	"schoolcore/pkg/domain"
)

func newCourseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Manage course records",
	}

	var name, instructor string
	add := &cobra.Command{
		Use:   "add <id>",
		Short: "Create a course, optionally with an instructor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := core.Fields{Name: name}
			if instructor != "" {
				f.InstructorID = &instructor
			}
			rec, err := a.svc.Create(cmd.Context(), domain.EntityCourse, args[0], f)
			if err != nil {
				return err
			}
			return a.render(rec)
		},
	}
	add.Flags().StringVar(&name, "name", "", "course name")
	add.Flags().StringVar(&instructor, "instructor", "", "instructor id")

	var newName, newInstructor string
	var clearInstructor bool
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a course or change its instructor in one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := a.svc.Get(cmd.Context(), domain.EntityCourse, args[0])
			if err != nil {
				return err
			}
			f := core.FieldsOf(current)
			if cmd.Flags().Changed("name") {
				f.Name = newName
			}
			switch {
			case clearInstructor:
				f.InstructorID = nil
			case cmd.Flags().Changed("instructor"):
				f.InstructorID = &newInstructor
			}
			rec, err := a.svc.Update(cmd.Context(), domain.EntityCourse, args[0], f)
			if err != nil {
				return err
			}
			return a.render(rec)
		},
	}
	update.Flags().StringVar(&newName, "name", "", "new course name")
	update.Flags().StringVar(&newInstructor, "instructor", "", "new instructor id")
	update.Flags().BoolVar(&clearInstructor, "clear-instructor", false, "remove the instructor")
	update.MarkFlagsMutuallyExclusive("instructor", "clear-instructor")

	roster := &cobra.Command{
		Use:   "roster <id>",
		Short: "List the students enrolled in a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			students, err := a.svc.Roster(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(students)
		},
	}

	cmd.AddCommand(add, update, roster,
		deleteCmd(a, domain.EntityCourse),
		showCmd(a, domain.EntityCourse),
		listCmd(a, domain.EntityCourse),
	)
	return cmd
}
