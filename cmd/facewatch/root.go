package main

import (
	"github.com/ayusman/facewatch/internal/config"
	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "facewatch",
		Short:         "Live face recognition with throttled alerts",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the history database and hooks")
	root.PersistentFlags().StringVar(&cfg.ModelsDir, "models", cfg.ModelsDir, "directory with the dlib face models")
	root.PersistentFlags().StringVar(&cfg.HooksDir, "hooks-dir", cfg.HooksDir, "directory scanned for alert hooks")

	root.AddCommand(
		newRunCmd(cfg),
		newGalleryCmd(cfg),
		newDetectionsCmd(cfg),
		newHooksCmd(cfg),
	)
	return root
}
