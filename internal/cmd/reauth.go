package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oh-my-linear/gateway/internal/config"
	"github.com/oh-my-linear/gateway/internal/gateway"
)

var reauthCmd = &cobra.Command{
	Use:   "reauth [linear|notion|all]",
	Short: "Clear cached OAuth tokens and force re-authentication on next connect",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReauth,
}

func init() {
	rootCmd.AddCommand(reauthCmd)
}

func runReauth(cmd *cobra.Command, args []string) error {
	target := "linear"
	if len(args) > 0 {
		target = args[0]
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}
	defer app.Close()

	switch target {
	case "linear":
		result, err := app.Router.ReauthOfficial()
		if err != nil {
			return err
		}
		fmt.Printf("linear: cleared %d files across %d directories\n", result.DeletedFiles, result.SearchedDirs)
	case "notion":
		result, err := app.Router.ReauthNotion(cfg.Upstream.NotionURL)
		if err != nil {
			return err
		}
		fmt.Printf("notion: cleared %d files across %d directories\n", result.DeletedFiles, result.SearchedDirs)
	case "all":
		result, err := app.Router.ReauthAll(cfg.Upstream.NotionURL)
		if err != nil {
			return err
		}
		fmt.Printf("linear: cleared %d files across %d directories\n", result.Linear.DeletedFiles, result.Linear.SearchedDirs)
		if result.Notion != nil {
			fmt.Printf("notion: cleared %d files across %d directories\n", result.Notion.DeletedFiles, result.Notion.SearchedDirs)
		}
	default:
		return fmt.Errorf("unknown reauth target %q: must be linear, notion, or all", target)
	}
	return nil
}
