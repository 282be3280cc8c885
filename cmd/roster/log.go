package main

import (
	"fmt"
	"strings"

	"github.com/meszmate/buddylist/internal/app"
	"github.com/meszmate/buddylist/internal/logging"
	"github.com/spf13/cobra"
)

var outgoing bool

var logCmd = &cobra.Command{
	Use:   "log <account> <buddy> <message...>",
	Short: "Record a conversation message",
	Long: `Appends a message to the conversation log of a buddy or chat. The log
size is what the log_size sort policy orders by.

The account is given as protocol:name, for example xmpp:me@example.org.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runLog,
}

func init() {
	logCmd.Flags().BoolVarP(&outgoing, "outgoing", "o", false, "Record the message as sent rather than received")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Close()

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer a.Close()

	body := strings.Join(args[2:], " ")
	if err := a.LogMessage(args[0], args[1], body, outgoing); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged %d bytes for %s\n", len(body), args[1])
	return nil
}
