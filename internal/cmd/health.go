package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/oh-my-linear/gateway/internal/config"
	"github.com/oh-my-linear/gateway/internal/gateway"
	"github.com/oh-my-linear/gateway/internal/health"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Print local cache and upstream session health",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}
	defer app.Close()

	h := app.Router.GetHealth()

	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Print(health.Human(h))
		return nil
	}

	out, err := health.JSON(h)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
