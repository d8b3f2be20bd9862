package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImageURLCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image-url <reference>",
		Short: "Print the Image API URL the pipeline would request for a resource",
		Long: `image-url loads the manifest (or collection) behind the reference, finds
the first canvas with a usable image service, and prints the IIIF Image API
request URL built from the configured region, size, rotation, quality and
format. Useful for checking what the worker will fetch before submitting a
batch. Exits 2 when the resource contains no usable image service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traverser, err := ctx.buildTraverser()
			if err != nil {
				return err
			}
			ref := args[0]

			refs := []string{ref}
			isCollection, err := traverser.IsCollection(cmd.Context(), ref)
			if err != nil {
				return err
			}
			if isCollection {
				refs, err = traverser.ExpandCollection(cmd.Context(), ref)
				if err != nil {
					return err
				}
			}

			for _, manifestRef := range refs {
				pages, err := traverser.Traverse(cmd.Context(), manifestRef)
				if err != nil {
					return err
				}
				for _, page := range pages {
					if page.ImageRequest.ServiceID == "" {
						continue
					}
					fmt.Fprintln(cmd.OutOrStdout(), page.ImageRequest.URL())
					return nil
				}
			}
			return &exitError{code: 2, err: fmt.Errorf("%s: no usable image service found", ref)}
		},
	}
	return cmd
}
