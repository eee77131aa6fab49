package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTagsCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags <image>",
		Short: "List tags for a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newRegistryClient(state)
			tags, err := client.ListImageTags(cmd.Context(), args[0], 0, "")
			if err != nil {
				return fmt.Errorf("listing tags for %s: %w", args[0], err)
			}
			for _, t := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
	return cmd
}
