package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runguard/runguard/internal/db"
	"github.com/runguard/runguard/internal/utils"
)

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate shell completion scripts",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)

	// Best-effort dynamic completion for journal entry IDs.
	historyShowCmd.ValidArgsFunction = completeInvocationIDs
	showCmd.ValidArgsFunction = completeInvocationIDs
}

func completeInvocationIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	path := GetDB()

	// Tab completion must never create a journal as a side effect.
	if _, err := os.Stat(path); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	journal, err := db.OpenAndMigrate(path)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer journal.Close()

	records, err := journal.ListInvocations(db.ListOptions{Limit: 50})
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	out := make([]string, 0, len(records))
	for _, r := range records {
		if r == nil || r.ID == "" {
			continue
		}
		if toComplete != "" && !strings.HasPrefix(r.ID, toComplete) {
			continue
		}

		desc := utils.Truncate(r.Command, 40)
		if r.Outcome != "" {
			desc += " [" + string(r.Outcome) + "]"
		}
		out = append(out, r.ID+"\t"+desc)
	}

	return out, cobra.ShellCompDirectiveNoFileComp
}
