// Package cli implements the show command.
package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

// showCmd is a top-level alias for "history show".
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one journal entry in full",
	Long: `Show a single journal entry: command, risk, gate decision, outcome,
exit status, and timing. The ID may be abbreviated to any unique prefix.

Alias for 'runguard history show'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyShowCmd.RunE(cmd, args)
	},
}
