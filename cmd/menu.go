package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/forest-guardian/lulc-change/internal/delivery"
	"github.com/forest-guardian/lulc-change/internal/ui"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Pick analyses from an interactive menu",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := delivery.ConfigFromProperties()
		run := func(ctx context.Context, cfg delivery.Config) (*delivery.Report, error) {
			return delivery.New(cfg).Run(ctx)
		}
		ui.NewMenu(cfg, ui.NewConsole(os.Stdin, cmd.OutOrStdout()), run).Show(cmd.Context())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(menuCmd)
}
