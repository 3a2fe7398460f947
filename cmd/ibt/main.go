package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd, a := newRootCmd()
	err := rootCmd.Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "ibt",
		Short:         "Decode iRacing telemetry capture files",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configDir, "config", ".", "Directory containing "+configFileName())
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(lsCmd(a))
	rootCmd.AddCommand(infoCmd(a))
	rootCmd.AddCommand(recordCmd(a))
	rootCmd.AddCommand(allCmd(a))
	rootCmd.AddCommand(channelCmd(a))
	rootCmd.AddCommand(exportCmd(a))
	rootCmd.AddCommand(settingsCmd(a))
	rootCmd.AddCommand(catalogCmd(a))
	rootCmd.AddCommand(serveCmd(a))

	return rootCmd, a
}
