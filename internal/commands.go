package internal

import (
	"github.com/spf13/cobra"

	"github.com/tunevault/tunevault/internal/config"
)

func RegisterSubCommands(root *cobra.Command) {
	root.AddCommand(
		NewFetchCmd(),
		NewSweepCmd(),
	)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
