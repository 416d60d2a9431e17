// Package cli implements the agentdash command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/soyeahso/agentdash/internal/config"
	"github.com/soyeahso/agentdash/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentdash",
		Short: "agentdash: agent dashboard for a retail analytics warehouse",
		Long: "agentdash lists the agents registered in a database schema, sends prompts to them " +
			"and renders the product matching, price comparison and market trend analytics.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.agentdash/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAgentsCmd())
	cmd.AddCommand(newAnalyticsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		if log != nil {
			log.Error().Err(err).Msg("command failed")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	return err
}
