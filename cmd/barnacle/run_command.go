package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulibrary/barnacle/internal/pipeline"
	"github.com/pulibrary/barnacle/pkg/types"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var fromFile string
	var skipExisting bool

	cmd := &cobra.Command{
		Use:   "run [reference]",
		Short: "Expand and process manifests sequentially in one process",
		Long: `run combines expansion and processing: it resolves the reference (or a
file of references) into manifests and processes them one after another.
Suited to small batches and local use; for large collections, use "expand"
plus scheduler-driven "worker" jobs instead.

A manifest whose pages are all recorded already costs only an artifact scan.
With --skip-existing, manifests whose artifact file exists are not opened at
all, trading resumption of partial artifacts for cheaper re-runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			traverser, err := ctx.buildTraverser()
			if err != nil {
				return err
			}
			expander := pipeline.NewExpander(traverser, cfg.Output.Dir)

			var items []types.WorkItem
			switch {
			case fromFile != "":
				fh, err := os.Open(fromFile)
				if err != nil {
					return fmt.Errorf("open reference list: %w", err)
				}
				defer fh.Close()
				refs, err := pipeline.ReadReferenceList(fh)
				if err != nil {
					return err
				}
				items = expander.ExpandList(refs)
			case len(args) == 1:
				items, err = expander.Expand(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("provide a collection/manifest reference or --from-file")
			}

			worker, err := ctx.buildWorker(cmd.Context())
			if err != nil {
				return err
			}

			failedManifests := 0
			for _, item := range items {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				if skipExisting {
					if _, statErr := os.Stat(item.OutputLocation); statErr == nil {
						logger.Info("artifact exists, skipping", "manifest", item.ManifestReference, "location", item.OutputLocation)
						continue
					}
				}

				summary, err := worker.ProcessManifest(cmd.Context(), item.ManifestReference, item.OutputLocation)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					failedManifests++
					logger.Error("manifest failed", "manifest", item.ManifestReference, "error", err)
					continue
				}
				// Page failures are absorbed per-page and re-attempted on the
				// next submission; only manifest-level failures set the exit
				// status.
				if summary.PagesFailed > 0 {
					logger.Warn("manifest completed with page failures",
						"manifest", item.ManifestReference, "failed", summary.PagesFailed)
				}
			}

			if failedManifests > 0 {
				return &exitError{code: 1, err: fmt.Errorf("%d of %d manifests had failures", failedManifests, len(items))}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFile, "from-file", "", "Read manifest references from a file, one per line")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Skip manifests whose output artifact already exists")
	return cmd
}
