package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glennswest/ociclient/pkg/image"
)

func newPushCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <archive.tar> [image[:tag]]",
		Short: "Push a v1 archive's image(s) to a registry",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			images, err := image.FromFilename(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if len(images) == 0 {
				return fmt.Errorf("%s: archive contains no images", args[0])
			}

			client := newRegistryClient(state)
			for _, img := range images {
				if len(args) == 2 {
					img.Name, img.Tag = splitImageRef(args[1])
				}
				if err := client.PushImage(cmd.Context(), img); err != nil {
					return fmt.Errorf("pushing %s:%s: %w", img.Name, img.Tag, err)
				}
				state.log.Infow("pushed image", "repo", img.Name, "tag", img.Tag, "layers", len(img.Layers))
			}
			return nil
		},
	}
	return cmd
}
