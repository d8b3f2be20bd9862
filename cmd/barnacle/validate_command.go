package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pulibrary/barnacle/internal/iiif"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <reference>",
		Short: "Check that a manifest or collection has the structure the pipeline needs",
		Long: `validate loads the resource behind the reference and reports structural
issues that would prevent processing: missing sequences, canvases without
images, image resources without an Image API service. Exits 0 when clean and
2 when issues are found, so schedulers can gate job submission on it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traverser, err := ctx.buildTraverser()
			if err != nil {
				return err
			}
			ref := args[0]

			isCollection, err := traverser.IsCollection(cmd.Context(), ref)
			if err != nil {
				return err
			}

			var issues []iiif.Issue
			if isCollection {
				collection, err := traverser.LoadCollection(cmd.Context(), ref)
				if err != nil {
					return err
				}
				issues = iiif.ValidateCollection(collection)
			} else {
				manifest, err := traverser.LoadManifest(cmd.Context(), ref)
				if err != nil {
					return err
				}
				issues = iiif.ValidateManifest(manifest)
			}

			if len(issues) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", ref)
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), issue.String())
			}
			return &exitError{code: 2, err: fmt.Errorf("%s: %d issue(s) found", ref, len(issues))}
		},
	}
	return cmd
}
