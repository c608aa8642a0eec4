package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <item-id>",
	Short: "Show the change history of an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 50, "Max records")
	historyCmd.Flags().Int("offset", 0, "Skip records")
	historyCmd.Flags().Bool("json", false, "Output machine-readable JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	asJSON, _ := cmd.Flags().GetBool("json")

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := svc.History(args[0], limit, offset)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No history.")
		return nil
	}
	for _, r := range records {
		line := fmt.Sprintf("%s  %s %s",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.ChangeDescription, r.ChangedField)
		if r.PreviousValue != "" || r.NewValue != "" {
			line += fmt.Sprintf(": %q -> %q", r.PreviousValue, r.NewValue)
		}
		if r.ChangedBy != "" {
			line += "  (by " + r.ChangedBy + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
