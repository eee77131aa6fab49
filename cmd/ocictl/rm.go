package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRmCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <image[:tag]>",
		Short: "Delete a tag's manifest from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, tag := splitImageRef(args[0])
			client := newRegistryClient(state)
			if err := client.DeleteImage(cmd.Context(), repo, tag); err != nil {
				return fmt.Errorf("deleting %s:%s: %w", repo, tag, err)
			}
			state.log.Infow("deleted image", "repo", repo, "tag", tag)
			return nil
		},
	}
	return cmd
}
