package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"schoolcore/internal/blob"
	"schoolcore/internal/core"
	"schoolcore/internal/platform/config"
	"schoolcore/internal/platform/logger"
)

// needsBlob marks commands that open the configured backup sink.
const needsBlob = "schoolctl/blob"

type app struct {
	out    io.Writer
	errOut io.Writer
	format string
	driver string
	svc    *core.Service
	logger zerolog.Logger

	metricsPath string
	registry    *prometheus.Registry
}

// execute runs the command tree with args and closes the store afterwards,
// including when the command failed.
func execute(args []string, out, errOut io.Writer) error {
	root, a := newRootCmd(out, errOut)
	root.SetArgs(args)
	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(out, errOut io.Writer) (*cobra.Command, *app) {
	a := &app{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "schoolctl",
		Short:         "Manage students, instructors and courses",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch a.format {
			case formatTable, formatJSON, formatYAML:
			default:
				return fmt.Errorf("unknown output format %q", a.format)
			}
			return a.open(cmd.Context(), cmd.Annotations[needsBlob] != "")
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVarP(&a.format, "output", "o", formatTable, "output format: table|json|yaml")
	root.PersistentFlags().StringVar(&a.driver, "storage", "", "storage driver override: memory|sqlite|postgres|snapshot")

	root.AddCommand(
		newPersonCmd(a, personKinds[0]),
		newPersonCmd(a, personKinds[1]),
		newCourseCmd(a),
		newEnrollCmd(a),
		newUnenrollCmd(a),
		newAssignCmd(a),
		newCoursesOfCmd(a),
		newSearchCmd(a),
		newBackupCmd(a),
	)
	return root, a
}

func (a *app) open(ctx context.Context, withBlob bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.driver != "" {
		cfg.Storage.Driver = a.driver
	}
	a.logger = logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, Output: a.errOut})

	store, err := core.OpenPersistentStore(cfg.Storage, core.NewRulesEngine(), a.logger)
	if err != nil {
		return err
	}
	opts := []core.Option{core.WithLogger(a.logger)}
	if cfg.Metrics.Textfile != "" {
		reg := prometheus.NewRegistry()
		rec, err := core.NewPrometheusRecorder(reg)
		if err != nil {
			_ = store.Close()
			return err
		}
		a.registry, a.metricsPath = reg, cfg.Metrics.Textfile
		opts = append(opts, core.WithMetricsRecorder(rec))
	}
	if withBlob {
		sink, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			_ = store.Close()
			return err
		}
		opts = append(opts, core.WithBlobStore(sink))
	}
	a.svc = core.NewService(store, opts...)
	return nil
}

func (a *app) close() error {
	if a.svc == nil {
		return nil
	}
	err := a.svc.Close()
	a.svc = nil
	if a.registry != nil {
		if werr := prometheus.WriteToTextfile(a.metricsPath, a.registry); werr != nil && err == nil {
			err = fmt.Errorf("write metrics: %w", werr)
		}
		a.registry = nil
	}
	return err
}
