package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLsCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List repositories known to the registry catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newRegistryClient(state)
			repos, err := client.ListImages(cmd.Context(), 0, "")
			if err != nil {
				return fmt.Errorf("listing images: %w", err)
			}
			for _, r := range repos {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	return cmd
}
