package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tunevault/tunevault/internal/logger"
)

var Version = "1.0.0"

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tunevault",
		Short: "Feed-driven local music cache",
		Long: `Tunevault keeps a local music folder in sync with a feed owner's list of
wanted files: it downloads each file exactly once, records freshness metadata
in filesystem extended attributes, and periodically reclaims files no signal
still wants.`,
		Example: `tunevault fetch wanted.yml`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.ConfigureFromFlags()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			versionFlag, _ := cmd.Flags().GetBool("version")
			if versionFlag {
				fmt.Printf("Version: %s\n", Version)
				return
			}
			_ = cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.Flags().BoolP("version", "v", false, "Print version information")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file")
	cmd.PersistentFlags().BoolVarP(&logger.FlagVerbose, "verbose", "V", false, "Enable debug output")
	cmd.PersistentFlags().BoolVarP(&logger.FlagQuiet, "quiet", "q", false, "Only print errors")
	cmd.PersistentFlags().BoolVar(&logger.FlagJSON, "json", false, "JSON log output")

	RegisterSubCommands(cmd)

	return cmd
}

func Execute() error {
	return NewRootCmd().Execute()
}
