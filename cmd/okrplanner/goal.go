package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"okrplanner/internal/okr"
	"okrplanner/internal/okrstore"
)

const dateLayout = "2006-01-02"

func newGoalCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage goals",
	}
	cmd.AddCommand(newGoalCreateCmd(opts), newGoalListCmd(opts), newGoalShowCmd(opts))
	return cmd
}

func newGoalCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		title       string
		description string
		due         string
		owner       string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dueDate, err := time.ParseInLocation(dateLayout, due, time.UTC)
			if err != nil {
				return fmt.Errorf("parse --due: %w", err)
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			goal, err := a.store.CreateGoal(cmd.Context(), okrstore.NewGoal{
				Title:       title,
				Description: description,
				DueDate:     dueDate,
				OwnerID:     owner,
			})
			if err != nil {
				return err
			}
			a.logEdit(cmd, goal.ID, "goal_created", map[string]any{"title": goal.Title, "due_date": goal.DueDate.Format(dateLayout)})
			fmt.Fprintf(cmd.OutOrStdout(), "Created goal %d: %s (due %s)\n", goal.ID, goal.Title, goal.DueDate.Format(dateLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Goal title")
	cmd.Flags().StringVar(&description, "description", "", "Goal description")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD, at least five years out)")
	cmd.Flags().StringVar(&owner, "owner", "", "Owner id")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func newGoalListCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			goals, err := a.store.ListGoals(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), goals)
			}
			if len(goals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No goals")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tDUE\tOWNER")
			for _, g := range goals {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", g.ID, g.Title, g.DueDate.Format(dateLayout), g.OwnerID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newGoalShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <goal-id>",
		Short: "Show a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			goal, err := a.store.GetGoal(cmd.Context(), id)
			if err != nil {
				return err
			}
			printGoal(cmd.OutOrStdout(), goal)
			return nil
		},
	}
}

func printGoal(w io.Writer, g okr.Goal) {
	fmt.Fprintf(w, "Goal %d: %s\n", g.ID, g.Title)
	if g.Description != "" {
		fmt.Fprintf(w, "  %s\n", g.Description)
	}
	fmt.Fprintf(w, "  Due: %s\n", g.DueDate.Format(dateLayout))
	if g.OwnerID != "" {
		fmt.Fprintf(w, "  Owner: %s\n", g.OwnerID)
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
