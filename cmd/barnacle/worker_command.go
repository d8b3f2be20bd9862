package main

import (
	"github.com/spf13/cobra"

	"github.com/pulibrary/barnacle/internal/pipeline"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "worker <manifest-reference>",
		Short: "Process a single manifest (array-job entrypoint)",
		Long: `worker runs the pipeline for exactly one manifest: the unit of work an
external scheduler assigns to one job. Pages already present in the output
artifact are skipped, so re-running a killed job picks up where it left off.
Individual page failures do not fail the job; traversal and output write
failures do.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			worker, err := ctx.buildWorker(cmd.Context())
			if err != nil {
				return err
			}

			manifestRef := args[0]
			location := outputFlag
			if location == "" {
				location = pipeline.OutputLocation(manifestRef, cfg.Output.Dir)
			}

			_, err = worker.ProcessManifest(cmd.Context(), manifestRef, location)
			return err
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output artifact path (default: derived from the manifest reference)")
	return cmd
}
