package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/crewcall/crewcall/internal/timeline"
)

var (
	itemCmd = &cobra.Command{
		Use:   "item",
		Short: "Manage timeline items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	itemAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Create a timeline item",
		RunE:  runItemAdd,
	}

	itemUpdateCmd = &cobra.Command{
		Use:   "update <item-id>",
		Short: "Update fields of a timeline item",
		Args:  cobra.ExactArgs(1),
		RunE:  runItemUpdate,
	}

	itemStatusCmd = &cobra.Command{
		Use:   "status <item-id> <new-status>",
		Short: "Transition an item's status",
		Args:  cobra.ExactArgs(2),
		RunE:  runItemStatus,
	}

	itemListCmd = &cobra.Command{
		Use:   "list",
		Short: "List an event's timeline items",
		RunE:  runItemList,
	}

	itemShowCmd = &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show one timeline item",
		Args:  cobra.ExactArgs(1),
		RunE:  runItemShow,
	}

	itemDeleteCmd = &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete a timeline item and its notifications",
		Args:  cobra.ExactArgs(1),
		RunE:  runItemDelete,
	}
)

func init() {
	f := itemAddCmd.Flags()
	f.String("event", "", "Event ID (required)")
	f.String("title", "", "Item title (required)")
	f.String("desc", "", "Description")
	f.String("start", "", "Start time (required)")
	f.String("end", "", "End time (required)")
	f.String("responsible", "", "Responsible party ID")
	f.String("type", "", "Task type")
	f.Int("priority", timeline.DefaultPriority, "Priority (1 highest)")
	f.String("color", "", "Display color")
	f.StringArray("dep", nil, "Dependency item ID (repeatable)")
	f.String("location", "", "Location")
	f.Duration("remind", 0, "Create a reminder this long before start (e.g. 1h)")
	f.Bool("strict", false, "Fail on schedule conflicts instead of warning")
	f.String("by", "", "Actor recorded in history")
	f.Bool("json", false, "Output machine-readable JSON")

	uf := itemUpdateCmd.Flags()
	uf.String("title", "", "Item title")
	uf.String("desc", "", "Description")
	uf.String("start", "", "Start time")
	uf.String("end", "", "End time")
	uf.String("responsible", "", "Responsible party ID")
	uf.String("type", "", "Task type")
	uf.Int("priority", 0, "Priority (1 highest)")
	uf.String("color", "", "Display color")
	uf.StringArray("dep", nil, "Replace dependencies with these IDs (repeatable)")
	uf.Bool("clear-deps", false, "Remove all dependencies")
	uf.String("location", "", "Location")
	uf.Bool("strict", false, "Fail on schedule conflicts instead of warning")
	uf.String("by", "", "Actor recorded in history")
	uf.Bool("json", false, "Output machine-readable JSON")

	itemStatusCmd.Flags().Bool("force", false, "Override the ready gate on blocked items")
	itemStatusCmd.Flags().String("by", "", "Actor recorded in history")

	lf := itemListCmd.Flags()
	lf.String("event", "", "Event ID (required)")
	lf.String("status", "", "Filter by status")
	lf.String("responsible", "", "Filter by responsible party")
	lf.String("from", "", "Only items ending at or after this time")
	lf.String("to", "", "Only items starting at or before this time")
	lf.Int("limit", 0, "Max items")
	lf.Int("offset", 0, "Skip items")
	lf.Bool("ready", false, "Annotate each item with its ready/blocked state")
	lf.Bool("json", false, "Output machine-readable JSON")

	itemShowCmd.Flags().Bool("json", false, "Output machine-readable JSON")
	itemDeleteCmd.Flags().String("by", "", "Actor recorded in history")

	itemCmd.AddCommand(itemAddCmd, itemUpdateCmd, itemStatusCmd, itemListCmd, itemShowCmd, itemDeleteCmd)
	rootCmd.AddCommand(itemCmd)
}

func runItemAdd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	eventID, _ := flags.GetString("event")
	title, _ := flags.GetString("title")
	startRaw, _ := flags.GetString("start")
	endRaw, _ := flags.GetString("end")
	if eventID == "" || title == "" || startRaw == "" || endRaw == "" {
		return fmt.Errorf("--event, --title, --start and --end are required")
	}
	start, err := parseTime(startRaw)
	if err != nil {
		return err
	}
	end, err := parseTime(endRaw)
	if err != nil {
		return err
	}

	desc, _ := flags.GetString("desc")
	responsible, _ := flags.GetString("responsible")
	taskType, _ := flags.GetString("type")
	priority, _ := flags.GetInt("priority")
	colorName, _ := flags.GetString("color")
	deps, _ := flags.GetStringArray("dep")
	location, _ := flags.GetString("location")
	remind, _ := flags.GetDuration("remind")
	strict, _ := flags.GetBool("strict")
	by, _ := flags.GetString("by")
	asJSON, _ := flags.GetBool("json")

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	item, conflicts, err := svc.CreateItem(timeline.NewItem{
		EventID:       eventID,
		Title:         title,
		Description:   desc,
		StartTime:     start,
		EndTime:       end,
		ResponsibleID: responsible,
		TaskType:      taskType,
		Priority:      priority,
		Color:         colorName,
		Dependencies:  deps,
		Location:      location,
		RemindBefore:  remind,
	}, timeline.WriteOptions{ChangedBy: by, Strict: strict})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, map[string]any{"item": item, "conflicts": conflicts})
	}
	fmt.Fprintf(out, "Created item %s (%s)\n", item.ID, item.Title)
	printConflictWarnings(out, conflicts)
	return nil
}

func runItemUpdate(cmd *cobra.Command, args []string) error {
	id := args[0]
	flags := cmd.Flags()

	var patch timeline.ItemPatch
	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		patch.Title = &v
	}
	if flags.Changed("desc") {
		v, _ := flags.GetString("desc")
		patch.Description = &v
	}
	if flags.Changed("start") {
		raw, _ := flags.GetString("start")
		t, err := parseTime(raw)
		if err != nil {
			return err
		}
		patch.StartTime = &t
	}
	if flags.Changed("end") {
		raw, _ := flags.GetString("end")
		t, err := parseTime(raw)
		if err != nil {
			return err
		}
		patch.EndTime = &t
	}
	if flags.Changed("responsible") {
		v, _ := flags.GetString("responsible")
		patch.ResponsibleID = &v
	}
	if flags.Changed("type") {
		v, _ := flags.GetString("type")
		patch.TaskType = &v
	}
	if flags.Changed("priority") {
		v, _ := flags.GetInt("priority")
		patch.Priority = &v
	}
	if flags.Changed("color") {
		v, _ := flags.GetString("color")
		patch.Color = &v
	}
	if clear, _ := flags.GetBool("clear-deps"); clear {
		empty := []string{}
		patch.Dependencies = &empty
	} else if flags.Changed("dep") {
		deps, _ := flags.GetStringArray("dep")
		patch.Dependencies = &deps
	}
	if flags.Changed("location") {
		v, _ := flags.GetString("location")
		patch.Location = &v
	}

	strict, _ := flags.GetBool("strict")
	by, _ := flags.GetString("by")
	asJSON, _ := flags.GetBool("json")

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	item, conflicts, err := svc.UpdateItem(id, patch, timeline.WriteOptions{ChangedBy: by, Strict: strict})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, map[string]any{"item": item, "conflicts": conflicts})
	}
	fmt.Fprintf(out, "Updated item %s (%s)\n", item.ID, item.Title)
	printConflictWarnings(out, conflicts)
	return nil
}

func runItemStatus(cmd *cobra.Command, args []string) error {
	id, newStatus := args[0], timeline.Status(strings.ToLower(args[1]))
	force, _ := cmd.Flags().GetBool("force")
	by, _ := cmd.Flags().GetString("by")

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.TransitionStatus(id, newStatus, timeline.WriteOptions{ChangedBy: by, Force: force}); err != nil {
		var inv *timeline.InvalidTransitionError
		if errors.As(err, &inv) && inv.Reason != "" {
			return fmt.Errorf("%w (use --force to override)", err)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Item %s is now %s\n", id, newStatus)
	return nil
}

func runItemList(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	eventID, _ := flags.GetString("event")
	if eventID == "" {
		return fmt.Errorf("--event is required")
	}

	var filter timeline.ItemFilter
	if st, _ := flags.GetString("status"); st != "" {
		filter.Status = timeline.Status(st)
	}
	filter.ResponsibleID, _ = flags.GetString("responsible")
	if raw, _ := flags.GetString("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return err
		}
		filter.From = &t
	}
	if raw, _ := flags.GetString("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return err
		}
		filter.To = &t
	}
	filter.Limit, _ = flags.GetInt("limit")
	filter.Offset, _ = flags.GetInt("offset")
	withReady, _ := flags.GetBool("ready")
	asJSON, _ := flags.GetBool("json")

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	items, err := svc.ItemsByEvent(eventID, filter)
	if err != nil {
		return err
	}
	var ready map[string]timeline.ReadyState
	if withReady {
		if ready, err = svc.ReadyStates(eventID); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, map[string]any{"items": items, "readyStates": ready})
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No items.")
		return nil
	}
	for _, it := range items {
		line := fmt.Sprintf("%s  %s  %s - %s  [%s]",
			it.ID, it.Title,
			it.StartTime.Local().Format("2006-01-02 15:04"),
			it.EndTime.Local().Format("15:04"),
			statusLabel(it.Status))
		if it.ResponsibleID != "" {
			line += "  @" + it.ResponsibleID
		}
		if withReady && ready[it.ID] == timeline.ReadyStateBlocked {
			line += "  " + color.RedString("(blocked)")
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func runItemShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	item, err := svc.Item(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, item)
	}
	fmt.Fprintf(out, "ID:           %s\n", item.ID)
	fmt.Fprintf(out, "Event:        %s\n", item.EventID)
	fmt.Fprintf(out, "Title:        %s\n", item.Title)
	if item.Description != "" {
		fmt.Fprintf(out, "Description:  %s\n", item.Description)
	}
	fmt.Fprintf(out, "Window:       %s - %s\n",
		item.StartTime.Local().Format(time.RFC3339), item.EndTime.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Status:       %s\n", statusLabel(item.Status))
	fmt.Fprintf(out, "Priority:     %d\n", item.Priority)
	if item.ResponsibleID != "" {
		fmt.Fprintf(out, "Responsible:  %s\n", item.ResponsibleID)
	}
	if item.Location != "" {
		fmt.Fprintf(out, "Location:     %s\n", item.Location)
	}
	if len(item.Dependencies) > 0 {
		fmt.Fprintf(out, "Depends on:   %s\n", strings.Join(item.Dependencies, ", "))
	}
	return nil
}

func runItemDelete(cmd *cobra.Command, args []string) error {
	by, _ := cmd.Flags().GetString("by")

	store, svc, err := openService()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.DeleteItem(args[0], timeline.WriteOptions{ChangedBy: by}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted item %s\n", args[0])
	return nil
}

func printConflictWarnings(out io.Writer, conflicts []timeline.Item) {
	for _, c := range conflicts {
		fmt.Fprintln(out, color.YellowString("warning: overlaps %q (%s - %s) for the same responsible party",
			c.Title,
			c.StartTime.Local().Format("15:04"),
			c.EndTime.Local().Format("15:04")))
	}
}

func statusLabel(s timeline.Status) string {
	switch s {
	case timeline.StatusCompleted:
		return color.GreenString(string(s))
	case timeline.StatusBlocked:
		return color.RedString(string(s))
	case timeline.StatusInProgress:
		return color.CyanString(string(s))
	case timeline.StatusCancelled:
		return color.HiBlackString(string(s))
	default:
		return string(s)
	}
}
