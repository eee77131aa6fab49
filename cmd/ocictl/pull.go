package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPullCmd(state *appState) *cobra.Command {
	var lazy bool
	var out string

	cmd := &cobra.Command{
		Use:   "pull <image[:tag]> [out.tar]",
		Short: "Pull an image from a registry and write it as a v1 archive",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, tag := splitImageRef(args[0])
			out = ""
			if len(args) == 2 {
				out = args[1]
			}

			client := newRegistryClient(state)
			img, err := client.PullImage(cmd.Context(), repo, tag, lazy)
			if err != nil {
				return fmt.Errorf("pulling %s:%s: %w", repo, tag, err)
			}

			if out == "" {
				out = sanitizeFilename(repo) + "-" + tag + ".tar"
			}
			if err := img.WriteFilename(out, "v1"); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}

			state.log.Infow("pulled image", "repo", repo, "tag", tag, "layers", len(img.Layers), "out", out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&lazy, "lazy", false, "defer layer blob downloads until the archive is written")
	return cmd
}

func sanitizeFilename(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			out[i] = '_'
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}
