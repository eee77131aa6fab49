package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInspectCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <image[:tag]>",
		Short: "Print a registry image's configuration document as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, tag := splitImageRef(args[0])

			client := newRegistryClient(state)
			cfg, err := client.GetManifestConfiguration(cmd.Context(), repo, tag)
			if err != nil {
				return fmt.Errorf("inspecting %s:%s: %w", repo, tag, err)
			}

			// Round-trip through JSON first so field names follow the
			// config document's own json tags rather than yaml.v3's
			// default lowercased-field-name rendering.
			asJSON, err := json.Marshal(cfg)
			if err != nil {
				return err
			}
			var doc any
			if err := json.Unmarshal(asJSON, &doc); err != nil {
				return err
			}

			out, err := yaml.Marshal(doc)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	return cmd
}
