package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulibrary/barnacle/internal/pipeline"
	"github.com/pulibrary/barnacle/pkg/types"
)

func newExpandCommand(ctx *commandContext) *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "expand [reference]",
		Short: "Expand a collection or manifest list into per-manifest work items",
		Long: `expand resolves a IIIF collection (or a single manifest, or a newline-
separated list of manifest references) into one work item per manifest and
prints them to stdout, one tab-separated line each:

    manifest_reference<TAB>output_location

Output locations are a pure function of the manifest reference, so expanding
the same input twice yields byte-identical output. Feed the lines to an
array-job scheduler and invoke "barnacle worker" once per line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
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

			return pipeline.WriteWorkItems(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().StringVar(&fromFile, "from-file", "", "Read manifest references from a file, one per line")
	return cmd
}
