package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/crewcall/crewcall/internal/timeline"
)

var (
	notifyCmd = &cobra.Command{
		Use:   "notify",
		Short: "Manage scheduled notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	notifyAddCmd = &cobra.Command{
		Use:   "add <item-id>",
		Short: "Schedule a notification for an item",
		Args:  cobra.ExactArgs(1),
		RunE:  runNotifyAdd,
	}

	notifyListCmd = &cobra.Command{
		Use:   "list <item-id>",
		Short: "List an item's notifications",
		Args:  cobra.ExactArgs(1),
		RunE:  runNotifyList,
	}

	notifyReadCmd = &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE:  runNotifyRead,
	}
)

func init() {
	f := notifyAddCmd.Flags()
	f.String("at", "", "Notification time (required)")
	f.String("type", "reminder", "Notification type")
	f.String("message", "", "Notification message (required)")
	f.Bool("json", false, "Output machine-readable JSON")

	notifyListCmd.Flags().Bool("json", false, "Output machine-readable JSON")

	notifyCmd.AddCommand(notifyAddCmd, notifyListCmd, notifyReadCmd)
	rootCmd.AddCommand(notifyCmd)
}

func runNotifyAdd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	atRaw, _ := flags.GetString("at")
	message, _ := flags.GetString("message")
	if atRaw == "" || message == "" {
		return fmt.Errorf("--at and --message are required")
	}
	at, err := parseTime(atRaw)
	if err != nil {
		return err
	}
	typ, _ := flags.GetString("type")
	asJSON, _ := flags.GetBool("json")

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := svc.AddNotification(timeline.NewNotification{
		TimelineItemID:   args[0],
		NotificationTime: at,
		NotificationType: typ,
		Message:          message,
	})
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), n)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Scheduled notification %s for %s\n",
		n.ID, n.NotificationTime.Local().Format("2006-01-02 15:04"))
	return nil
}

func runNotifyList(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	notifications, err := svc.NotificationsForItem(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, notifications)
	}
	if len(notifications) == 0 {
		fmt.Fprintln(out, "No notifications.")
		return nil
	}
	for _, n := range notifications {
		state := "pending"
		if n.Sent {
			state = color.GreenString("sent")
		}
		fmt.Fprintf(out, "%s  %s  %s  [%s]\n",
			n.ID, n.NotificationTime.Local().Format("2006-01-02 15:04"), n.Message, state)
	}
	return nil
}

func runNotifyRead(cmd *cobra.Command, args []string) error {
	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.MarkNotificationRead(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Marked notification %s read\n", args[0])
	return nil
}
