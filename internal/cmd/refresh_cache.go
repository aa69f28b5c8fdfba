package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oh-my-linear/gateway/internal/config"
	"github.com/oh-my-linear/gateway/internal/gateway"
)

var refreshCacheCmd = &cobra.Command{
	Use:   "refresh-cache",
	Short: "Force a local cache reload and print the resulting health",
	RunE:  runRefreshCache,
}

func init() {
	rootCmd.AddCommand(refreshCacheCmd)
}

func runRefreshCache(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}
	defer app.Close()

	h, err := app.Router.RefreshLocalCache()
	if err != nil {
		fmt.Printf("refresh failed: %v\n", err)
		return err
	}
	if h.Degraded {
		fmt.Printf("cache reloaded, degraded: %s\n", h.DegradedReason)
	} else {
		fmt.Printf("cache reloaded, healthy (%d issues, %d teams, %d users)\n", h.Summary.Issues, h.Summary.Teams, h.Summary.Users)
	}
	return nil
}
