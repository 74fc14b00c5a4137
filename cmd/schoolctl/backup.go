package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write durable copies of the store",
	}
	blobOnly := map[string]string{needsBlob: "true"}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "file <path>",
			Short: "Copy the store to a local path",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.svc.Backup(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.render(message{Message: "backup written to " + args[0]})
			},
		},
		&cobra.Command{
			Use:         "blob [key]",
			Short:       "Upload a snapshot document to the configured blob store",
			Args:        cobra.MaximumNArgs(1),
			Annotations: blobOnly,
			RunE: func(cmd *cobra.Command, args []string) error {
				key := ""
				if len(args) == 1 {
					key = args[0]
				}
				info, err := a.svc.BackupToBlob(cmd.Context(), key)
				if err != nil {
					return err
				}
				return a.render(info)
			},
		},
		&cobra.Command{
			Use:         "list",
			Short:       "List backups in the configured blob store",
			Args:        cobra.NoArgs,
			Annotations: blobOnly,
			RunE: func(cmd *cobra.Command, _ []string) error {
				infos, err := a.svc.ListBackups(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(infos)
			},
		},
		&cobra.Command{
			Use:         "restore <key>",
			Short:       "Replace the store contents with a blob backup",
			Args:        cobra.ExactArgs(1),
			Annotations: blobOnly,
			RunE: func(cmd *cobra.Command, args []string) error {
				report, err := a.svc.RestoreFromBlob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				msg := "restored " + args[0]
				if report.Repaired() {
					msg += fmt.Sprintf(" (dropped %d enrollments, cleared %d instructors)",
						len(report.DroppedEnrollments)+report.DuplicateEnrollments, len(report.ClearedInstructors))
				}
				return a.render(message{Message: msg})
			},
		},
		&cobra.Command{
			Use:         "delete <key>",
			Short:       "Remove a blob backup",
			Args:        cobra.ExactArgs(1),
			Annotations: blobOnly,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.svc.DeleteBackup(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.render(message{Message: "deleted " + args[0]})
			},
		},
	)
	return cmd
}
