package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewcall/crewcall/internal/timeline"
)

var (
	milestoneCmd = &cobra.Command{
		Use:   "milestone",
		Short: "Manage event milestones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	milestoneAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Create a milestone",
		RunE:  runMilestoneAdd,
	}

	milestoneListCmd = &cobra.Command{
		Use:   "list",
		Short: "List an event's milestones",
		RunE:  runMilestoneList,
	}

	milestoneDeleteCmd = &cobra.Command{
		Use:   "delete <milestone-id>",
		Short: "Delete a milestone",
		Args:  cobra.ExactArgs(1),
		RunE:  runMilestoneDelete,
	}
)

func init() {
	f := milestoneAddCmd.Flags()
	f.String("event", "", "Event ID (required)")
	f.String("title", "", "Milestone title (required)")
	f.String("desc", "", "Description")
	f.String("at", "", "Milestone time (required)")
	f.Int("importance", timeline.DefaultImportance, "Importance 1-5")
	f.Bool("json", false, "Output machine-readable JSON")

	milestoneListCmd.Flags().String("event", "", "Event ID (required)")
	milestoneListCmd.Flags().Bool("json", false, "Output machine-readable JSON")

	milestoneCmd.AddCommand(milestoneAddCmd, milestoneListCmd, milestoneDeleteCmd)
	rootCmd.AddCommand(milestoneCmd)
}

func runMilestoneAdd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	eventID, _ := flags.GetString("event")
	title, _ := flags.GetString("title")
	atRaw, _ := flags.GetString("at")
	if eventID == "" || title == "" || atRaw == "" {
		return fmt.Errorf("--event, --title and --at are required")
	}
	at, err := parseTime(atRaw)
	if err != nil {
		return err
	}
	desc, _ := flags.GetString("desc")
	importance, _ := flags.GetInt("importance")
	asJSON, _ := flags.GetBool("json")

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := svc.CreateMilestone(timeline.NewMilestone{
		EventID:       eventID,
		Title:         title,
		Description:   desc,
		MilestoneTime: at,
		Importance:    importance,
	})
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), m)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created milestone %s (%s)\n", m.ID, m.Title)
	return nil
}

func runMilestoneList(cmd *cobra.Command, args []string) error {
	eventID, _ := cmd.Flags().GetString("event")
	if eventID == "" {
		return fmt.Errorf("--event is required")
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	milestones, err := svc.MilestonesByEvent(eventID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, milestones)
	}
	if len(milestones) == 0 {
		fmt.Fprintln(out, "No milestones.")
		return nil
	}
	for _, m := range milestones {
		fmt.Fprintf(out, "%s  %s  %s  (importance %d)\n",
			m.ID, m.Title, m.MilestoneTime.Local().Format("2006-01-02 15:04"), m.Importance)
	}
	return nil
}

func runMilestoneDelete(cmd *cobra.Command, args []string) error {
	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.DeleteMilestone(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted milestone %s\n", args[0])
	return nil
}
