// Package cmd holds the oh-my-linear gateway's CLI, adapted from
// linearfs's cobra command tree: one root command, a handful of
// subcommands registered via init(), a persistent --config flag. The
// mount-specific commands are gone; serve/health/refresh-cache/reauth
// take their place.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "oh-my-linear",
	Short: "Unified read-through gateway in front of Linear's official tool server",
	Long:  `oh-my-linear serves Linear tool calls from a local cache when it's safe to, and from the upstream tool server otherwise, without the caller ever needing to know which.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path (not read: config always loads from $XDG_CONFIG_HOME/oh-my-linear/config.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "debug logging (not read: log output is the same either way)")
}
