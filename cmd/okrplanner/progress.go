package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"okrplanner/internal/metrics"
	"okrplanner/internal/notify"
)

func newProgressCmd(opts *rootOptions) *cobra.Command {
	var (
		snapshot bool
		asJSON   bool
		notifyMe bool
	)
	cmd := &cobra.Command{
		Use:   "progress <goal-id>",
		Short: "Recompute a goal's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.progress().Recompute(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if snapshot {
				asOf := time.Now().UTC()
				path := metrics.SnapshotPath(a.ws.SnapshotsDir, goalID, asOf)
				if err := metrics.WriteSnapshot(path, asOf, report); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote snapshot: %s\n", path)
			}
			if notifyMe {
				goal, err := a.store.GetGoal(cmd.Context(), goalID)
				if err != nil {
					return err
				}
				title, msg := notify.FormatGoalProgress(goal.Title, report.OverallPercent)
				if err := a.notifier.Send(title, msg); err != nil {
					a.log.Warn("notification failed", "error", err)
				}
			}
			if asJSON {
				return writeJSON(out, report)
			}

			fmt.Fprintf(out, "Goal %d overall: %d%%\n", goalID, report.OverallPercent)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "YEAR\tPROGRESS\tKEY RESULTS\tQUARTERS")
			for _, y := range report.Yearly {
				fmt.Fprintf(tw, "%d\t%d%%\t%d\t%d\n", y.Year, y.Percent, len(y.KeyResults), len(y.Quarterly))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "Also write a dated snapshot under <workspace>/snapshots")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&notifyMe, "notify", false, "Send a desktop notification with the overall progress")
	return cmd
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "events [goal-id]",
		Short: "List audit events, optionally for one goal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var goalID int64
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				goalID = id
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.audit.List(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), events)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tGOAL\tACTOR\tTYPE\tPAYLOAD")
			for _, e := range events {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n", e.ID, e.TS.Format(time.RFC3339), e.GoalID, e.Actor, e.Type, e.PayloadJSON)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
