package log

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"almpartners/dbdeploy/internal/deploylog"

	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent deployment log entries",
		Long: `List recent deployment log entries.

Examples:
  dbdeploy log list
  dbdeploy log list --limit 50
  dbdeploy log list --action deploy
  dbdeploy log list -o json`,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of entries to display")
	cmd.Flags().String("action", "", "Filter by exact action name")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	filter, _ := cmd.Flags().GetString("action")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = "table"
	}

	repo, err := deploylog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	var entries []deploylog.Entry
	if filter != "" {
		entries, err = repo.ListByAction(filter, limit)
	} else {
		entries, err = repo.List(limit)
	}
	if err != nil {
		return err
	}

	if output == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}
	if output != "table" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No log entries found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tDATABASE\tOUTCOME\tDURATION\tDETAIL")
	fmt.Fprintln(w, "----\t------\t--------\t-------\t--------\t------")
	for _, entry := range entries {
		timeStr := entry.Timestamp.Local().Format("2006-01-02 15:04:05")
		database := entry.Database
		if database == "" {
			database = "-"
		}
		detail := entry.Detail
		if detail == "" {
			detail = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			timeStr,
			entry.Action,
			database,
			entry.Outcome,
			formatDuration(entry.DurationMs),
			detail,
		)
	}
	w.Flush()
	return nil
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	d := time.Duration(ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}
