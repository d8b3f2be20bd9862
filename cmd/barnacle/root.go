package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "barnacle",
		Short:         "Resumable OCR over IIIF manifests",
		Long: `barnacle walks IIIF Presentation manifests, fetches each page image via
the IIIF Image API, runs OCR on it, and appends one JSON line per page to an
output artifact. Interrupted runs resume from the artifact itself: pages
already recorded are skipped, so resubmitting the same work is always safe.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newExpandCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newWorkerCommand(ctx))
	rootCmd.AddCommand(newValidateCommand(ctx))
	rootCmd.AddCommand(newImageURLCommand(ctx))

	return rootCmd
}
