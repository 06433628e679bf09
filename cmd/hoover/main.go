// Command hoover is the CLI entry point for the processing pipeline:
// migrations, dataset submission, and Temporal workers.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liquidinvestigations/hoover4/internal/pipeline/execute"
	"github.com/liquidinvestigations/hoover4/internal/pipeline/plan"
	"github.com/liquidinvestigations/hoover4/internal/pipeline/scan"
	"github.com/liquidinvestigations/hoover4/internal/platform/logger"
	"github.com/liquidinvestigations/hoover4/internal/store/clickhouse"
	"github.com/liquidinvestigations/hoover4/internal/store/manticore"
	"github.com/liquidinvestigations/hoover4/internal/store/s3blob"
	"github.com/liquidinvestigations/hoover4/internal/temporalx"
	"github.com/liquidinvestigations/hoover4/internal/worker"
)

const version = "0.0.0"

func newLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	return logger.New(logMode)
}

func main() {
	root := &cobra.Command{
		Use:           "hoover",
		Short:         "Durable document processing pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Run all database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			ctx := context.Background()

			ch, err := clickhouse.Open(log)
			if err != nil {
				return err
			}
			defer ch.Close()
			if err := ch.Migrate(ctx); err != nil {
				return err
			}

			blobs, err := s3blob.New(log)
			if err != nil {
				return err
			}
			if err := blobs.EnsureBucket(blobs.Bucket); err != nil {
				return err
			}

			mant, err := manticore.Open(log)
			if err != nil {
				return err
			}
			defer mant.Close()
			return mant.Migrate(ctx)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "add-disk-dataset DATASET_NAME PATH",
		Short: "Create dataset row and start disk ingestion, planning and execution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			datasetName, path := args[0], args[1]
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			ctx := context.Background()

			ch, err := clickhouse.Open(log)
			if err != nil {
				return err
			}
			defer ch.Close()
			tc, err := temporalx.NewClient(log)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := scan.AddDiskDataset(ctx, log, ch, tc, datasetName, path); err != nil {
				return err
			}
			if err := plan.SubmitComputePlans(ctx, log, tc, scan.SlugifyDatasetName(datasetName)); err != nil {
				return err
			}
			return execute.SubmitExecutePlans(ctx, log, tc, scan.SlugifyDatasetName(datasetName))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "compute-plans DATASET_NAME",
		Short: "Pack unprocessed blobs into plans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			tc, err := temporalx.NewClient(log)
			if err != nil {
				return err
			}
			defer tc.Close()
			return plan.SubmitComputePlans(context.Background(), log, tc, scan.SlugifyDatasetName(args[0]))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "execute-plans DATASET_NAME",
		Short: "Execute all pending plans of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			tc, err := temporalx.NewClient(log)
			if err != nil {
				return err
			}
			defer tc.Close()
			return execute.SubmitExecutePlans(context.Background(), log, tc, scan.SlugifyDatasetName(args[0]))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:       "worker [TYPE]",
		Short:     "Run worker(s); with TYPE runs that worker, else spawns and supervises all",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: worker.WorkerTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			if len(args) == 1 && args[0] != "supervisor" {
				return worker.Run(log, args[0])
			}
			return worker.Supervise(log)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
