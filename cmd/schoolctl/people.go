package main

import (
	"github.com/spf13/cobra"

	"schoolcore/internal/core"
	"schoolcore/pkg/domain"
)

var personKinds = []domain.EntityType{domain.EntityStudent, domain.EntityInstructor}

type personFlags struct {
	name, age, email string
}

func (f *personFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "full name")
	cmd.Flags().StringVar(&f.age, "age", "", "age in years")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
}

// overlay applies the flags the user set on top of base.
func (f *personFlags) overlay(cmd *cobra.Command, base core.Fields) core.Fields {
	if cmd.Flags().Changed("name") {
		base.Name = f.name
	}
	if cmd.Flags().Changed("age") {
		base.Age = f.age
	}
	if cmd.Flags().Changed("email") {
		base.Email = f.email
	}
	return base
}

// newPersonCmd builds the student or instructor command group. Both kinds go
// through the kind-dispatched service API.
func newPersonCmd(a *app, kind domain.EntityType) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: "Manage " + string(kind) + " records",
	}

	var addFlags personFlags
	add := &cobra.Command{
		Use:   "add <id>",
		Short: "Create a " + string(kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.svc.Create(cmd.Context(), kind, args[0], addFlags.overlay(cmd, core.Fields{}))
			if err != nil {
				return err
			}
			return a.render(rec)
		},
	}
	addFlags.bind(add)

	var updateFlags personFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a " + string(kind) + "; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := a.svc.Get(cmd.Context(), kind, args[0])
			if err != nil {
				return err
			}
			rec, err := a.svc.Update(cmd.Context(), kind, args[0], updateFlags.overlay(cmd, core.FieldsOf(current)))
			if err != nil {
				return err
			}
			return a.render(rec)
		},
	}
	updateFlags.bind(update)

	cmd.AddCommand(add, update,
		deleteCmd(a, kind),
		showCmd(a, kind),
		listCmd(a, kind),
	)
	return cmd
}

func deleteCmd(a *app, kind domain.EntityType) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + string(kind) + " and its relations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Delete(cmd.Context(), kind, args[0]); err != nil {
				return err
			}
			return a.render(message{Message: "deleted " + string(kind) + " " + args[0]})
		},
	}
}

func showCmd(a *app, kind domain.EntityType) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a " + string(kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.svc.Get(cmd.Context(), kind, args[0])
			if err != nil {
				return err
			}
			return a.render(rec)
		},
	}
}

func listCmd(a *app, kind domain.EntityType) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every " + string(kind) + " ordered by id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch kind {
			case domain.EntityStudent:
				return a.render(a.svc.ListStudents())
			case domain.EntityInstructor:
				return a.render(a.svc.ListInstructors())
			default:
				courses, err := a.svc.ListCourses(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(courses)
			}
		},
	}
}
