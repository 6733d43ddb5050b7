package main

import (
	"github.com/spf13/cobra"

	"github.com/SanjoDeundiak/daily-motivation/internal/config"
)

const flagConfig = "config"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "motivation",
		Short:         "Daily motivation quotes with an animated background",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(flagConfig, "", "path to the config file (default $XDG_CONFIG_HOME/daily-motivation/config.yaml)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newLogsCmd())
	root.AddCommand(newEventsCmd())
	root.AddCommand(newQuotesCmd())

	return root
}

// loadConfig loads the configuration named by --config, with any flag of cmd
// that matches a configuration key taking precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	return config.Load(path, cmd.Flags())
}
