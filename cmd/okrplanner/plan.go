package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"okrplanner/internal/insights"
	"okrplanner/internal/metrics"
	"okrplanner/internal/notify"
	"okrplanner/internal/okr"
	"okrplanner/internal/okrstore"
	"okrplanner/internal/planner"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate and inspect plans",
	}
	cmd.AddCommand(
		newPlanGenerateCmd(opts),
		newPlanShowCmd(opts),
		newPlanDeleteCmd(opts),
		newPlanExportCmd(opts),
		newPlanDiffCmd(opts),
		newPlanAddYearCmd(opts),
		newPlanAddQuarterCmd(opts),
	)
	return cmd
}

func newPlanGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		historyPath string
		provider    string
		start       string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "generate <goal-id>",
		Short: "Generate and persist a plan for a goal",
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
			ctx := cmd.Context()

			goal, err := a.store.GetGoal(ctx, goalID)
			if err != nil {
				return err
			}
			var history []insights.Message
			if historyPath != "" {
				path, err := a.ws.ResolvePath(historyPath)
				if err != nil {
					return fmt.Errorf("resolve --history: %w", err)
				}
				if history, err = insights.LoadHistory(path); err != nil {
					return err
				}
			}
			pipeline, err := a.pipeline(provider)
			if err != nil {
				return err
			}

			req := planner.NewRunRequest(goal, history)
			if start != "" {
				if req.StartDate, err = time.ParseInLocation(dateLayout, start, time.UTC); err != nil {
					return fmt.Errorf("parse --start: %w", err)
				}
			}
			res, err := pipeline.Run(ctx, req)
			if err != nil {
				return err
			}

			title, msg := notify.FormatPlanGenerated(goal.Title, res.Source, len(res.Plan.Yearly), res.Plan.KeyResultCount())
			if err := a.notifier.Send(title, msg); err != nil {
				a.log.Warn("notification failed", "error", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res)
			}
			fmt.Fprintf(out, "Generated %s plan for goal %d: %d yearly objectives, %d key results\n",
				res.Source, goal.ID, len(res.Plan.Yearly), res.Plan.KeyResultCount())
			if res.FallbackReason != "" {
				fmt.Fprintf(out, "Fallback reason: %s\n", res.FallbackReason)
			}
			for _, r := range res.Repairs {
				fmt.Fprintf(out, "Repaired: %s\n", r)
			}
			fmt.Fprintf(out, "Readiness: %s\n", res.Analysis.ReadinessLevel)
			return nil
		},
	}
	cmd.Flags().StringVar(&historyPath, "history", "", "Path to a chat history file (JSON or YAML)")
	cmd.Flags().StringVar(&provider, "oracle", "", "Oracle provider override (none, mock, openai, codex)")
	cmd.Flags().StringVar(&start, "start", "", "Planning start date (YYYY-MM-DD, default: today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the run result as JSON")
	return cmd
}

func newPlanShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <goal-id>",
		Short: "Show a goal's plan with progress",
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

			goal, err := a.store.GetGoal(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			plan, err := a.store.LoadPlan(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			if len(plan.Yearly) == 0 {
				return fmt.Errorf("goal %d: %w", goalID, okrstore.ErrPlanNotFound)
			}
			report := metrics.Recompute(plan)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"goal": goal, "plan": plan, "progress": report})
			}
			printGoal(cmd.OutOrStdout(), goal)
			printPlan(cmd.OutOrStdout(), plan, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printPlan(w io.Writer, plan okr.Plan, report metrics.Report) {
	fmt.Fprintf(w, "Overall progress: %d%%\n", report.OverallPercent)
	for _, y := range plan.Yearly {
		yp, _ := report.Year(y.Year)
		fmt.Fprintf(w, "\n%d [%d%%] %s\n", y.Year, yp.Percent, y.Objective)
		for _, kr := range y.KeyResults {
			printKeyResult(w, "  ", kr, report)
		}
		for _, q := range y.Quarterly {
			fmt.Fprintf(w, "  Q%d %s\n", q.Quarter, q.Objective)
			for _, kr := range q.KeyResults {
				printKeyResult(w, "    ", kr, report)
			}
		}
	}
}

func printKeyResult(w io.Writer, indent string, kr okr.KeyResult, report metrics.Report) {
	p, _ := report.KeyResult(kr.ID)
	unit := ""
	if kr.Unit != "" {
		unit = " " + kr.Unit
	}
	fmt.Fprintf(w, "%s- #%d %s: %g/%g%s (%d%%, %s)\n", indent, kr.ID, kr.Description, kr.CurrentValue, kr.TargetValue, unit, p.Percent, p.Status)
}

func newPlanDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <goal-id>",
		Short: "Delete a goal's plan so it can be generated again",
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

			deleted, err := a.store.DeletePlan(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			a.logEdit(cmd, goalID, "plan_deleted", map[string]any{"yearly_objectives": deleted})
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted plan for goal %d (%d yearly objectives)\n", goalID, deleted)
			return nil
		},
	}
}

func newPlanExportCmd(opts *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export <goal-id>",
		Short: "Write a goal's plan as YAML",
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

			data, err := a.store.ExportPlan(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			if outPath == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			path := filepath.Join(a.ws.ExportsDir, fmt.Sprintf("goal-%d.yml", goalID))
			if outPath != "" {
				if path, err = a.ws.ResolvePath(outPath); err != nil {
					return fmt.Errorf("resolve --out: %w", err)
				}
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("ensure export dir: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote plan export: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "Output path, or - for stdout (default: <workspace>/exports/goal-<id>.yml)")
	return cmd
}

func newPlanDiffCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <goal-id> <export-file>",
		Short: "Show how an export file differs from the stored plan",
		Args:  cobra.ExactArgs(2),
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

			path, err := a.ws.ResolvePath(args[1])
			if err != nil {
				return err
			}
			edited, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if _, err := okrstore.ParseExport(edited); err != nil {
				return err
			}
			current, err := a.store.ExportPlan(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			diff, err := okrstore.DiffExports(current, edited, fmt.Sprintf("goal-%d (stored)", goalID), args[1])
			if err != nil {
				return err
			}
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No differences")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}

func newPlanAddYearCmd(opts *rootOptions) *cobra.Command {
	var (
		year      int
		objective string
	)
	cmd := &cobra.Command{
		Use:   "add-year <goal-id>",
		Short: "Add a yearly objective to a goal's plan",
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

			y, err := a.store.InsertYearlyObjective(cmd.Context(), goalID, year, objective)
			if err != nil {
				return err
			}
			a.logEdit(cmd, goalID, "yearly_objective_added", map[string]any{"yearly_objective_id": y.ID, "year": y.Year})
			fmt.Fprintf(cmd.OutOrStdout(), "Added yearly objective %d for %d\n", y.ID, y.Year)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Calendar year")
	cmd.Flags().StringVar(&objective, "objective", "", "Objective text")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("objective")
	return cmd
}

func newPlanAddQuarterCmd(opts *rootOptions) *cobra.Command {
	var (
		quarter   int
		objective string
	)
	cmd := &cobra.Command{
		Use:   "add-quarter <yearly-objective-id>",
		Short: "Add a quarterly objective under a yearly objective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yearlyID, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.store.InsertQuarterlyObjective(cmd.Context(), yearlyID, quarter, objective)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added quarterly objective %d for %d Q%d\n", q.ID, q.Year, q.Quarter)
			return nil
		},
	}
	cmd.Flags().IntVar(&quarter, "quarter", 0, "Quarter (1-4)")
	cmd.Flags().StringVar(&objective, "objective", "", "Objective text")
	_ = cmd.MarkFlagRequired("quarter")
	_ = cmd.MarkFlagRequired("objective")
	return cmd
}
