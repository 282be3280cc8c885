package main

import (
	"fmt"

	"github.com/meszmate/buddylist/internal/app"
	"github.com/meszmate/buddylist/internal/logging"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the buddy list and exit",
	Long: `Loads the roster, applies the configured filters and sort policy, and
prints the resulting buddy list as an indented outline.`,
	Args: cobra.NoArgs,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// keep stdout clean for the outline
	cfg.Logging.Console = false
	if err := initLogging(cfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Close()

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer a.Close()

	fmt.Fprint(cmd.OutOrStdout(), a.Dump())
	return nil
}
