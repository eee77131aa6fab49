// ocictl is a command-line client for the OCI/Docker registry v2
// protocol and the legacy v1 "docker save" tar archive format: pull and
// push images, inspect image configurations, delete tags, and list
// repositories/tags, without a
// local container daemon in the loop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/glennswest/ociclient/pkg/ocicfg"
)

var version = "dev"

// appState is threaded through every subcommand via its RunE closures:
// the loaded config and the logger built from --debug/cfg.Log.
type appState struct {
	cfg ocicfg.Config
	log *zap.SugaredLogger
}

func main() {
	state := &appState{}
	var debug bool

	root := &cobra.Command{
		Use:     "ocictl",
		Short:   "OCI/Docker registry client and v1 archive tool",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ocicfg.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if debug {
				cfg.Log.Debug = true
			}
			state.cfg = cfg
			state.log = newLogger(cfg.Log)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newPullCmd(state),
		newPushCmd(state),
		newInspectCmd(state),
		newLsCmd(state),
		newTagsCmd(state),
		newRmCmd(state),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg ocicfg.LogConfig) *zap.SugaredLogger {
	zcfg := zap.NewProductionConfig()
	if cfg.Debug {
		zcfg = zap.NewDevelopmentConfig()
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
