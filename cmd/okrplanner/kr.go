package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"okrplanner/internal/metrics"
	"okrplanner/internal/okr"
)

func newKRCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kr",
		Short: "Report key result values",
	}
	cmd.AddCommand(newKRAddCmd(opts), newKRUpdateCmd(opts), newKRSyncCmd(opts))
	return cmd
}

func newKRAddCmd(opts *rootOptions) *cobra.Command {
	var (
		yearlyID    int64
		quarterlyID int64
		kr          okr.KeyResult
		frequency   string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a key result to a yearly or quarterly objective",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if yearlyID > 0 {
				kr.YearlyObjectiveID = &yearlyID
			}
			if quarterlyID > 0 {
				kr.QuarterlyObjectiveID = &quarterlyID
			}
			kr.Frequency = okr.Frequency(frequency)

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			stored, err := a.store.InsertKeyResult(cmd.Context(), kr)
			if err != nil {
				return err
			}
			a.logEdit(cmd, stored.GoalID, "key_result_added", map[string]any{
				"key_result_id": stored.ID,
				"target_value":  stored.TargetValue,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Added key result %d to goal %d\n", stored.ID, stored.GoalID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&yearlyID, "yearly", 0, "Yearly objective id")
	cmd.Flags().Int64Var(&quarterlyID, "quarterly", 0, "Quarterly objective id")
	cmd.Flags().StringVar(&kr.Description, "description", "", "Key result description")
	cmd.Flags().Float64Var(&kr.TargetValue, "target", 0, "Target value")
	cmd.Flags().Float64Var(&kr.CurrentValue, "current", 0, "Current value")
	cmd.Flags().StringVar(&kr.Unit, "unit", "", "Unit of measure")
	cmd.Flags().StringVar(&frequency, "frequency", "", "Measurement frequency")
	cmd.MarkFlagsMutuallyExclusive("yearly", "quarterly")
	cmd.MarkFlagsOneRequired("yearly", "quarterly")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newKRUpdateCmd(opts *rootOptions) *cobra.Command {
	var (
		current float64
		target  float64
	)
	cmd := &cobra.Command{
		Use:   "update <kr-id>",
		Short: "Set a key result's current value",
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

			update := metrics.KeyResultUpdate{ID: id, Current: current}
			if cmd.Flags().Changed("target") {
				update.Target = &target
			}
			res, err := a.progress().ApplyUpdate(cmd.Context(), update)
			if err != nil {
				return err
			}
			printUpdate(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().Float64Var(&current, "current", 0, "Current value")
	cmd.Flags().Float64Var(&target, "target", 0, "New target value (optional)")
	_ = cmd.MarkFlagRequired("current")
	return cmd
}

func newKRSyncCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Apply key result values from a manual values file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := a.ws.ResolvePath(file)
			if err != nil {
				return fmt.Errorf("resolve --file: %w", err)
			}
			updates, err := metrics.LoadManualValues(path)
			if err != nil {
				return err
			}
			results, err := a.progress().ApplyAll(cmd.Context(), updates)
			for _, res := range results {
				printUpdate(cmd.OutOrStdout(), res)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d updates\n", len(results))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to a YAML file with a values: list")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printUpdate(w io.Writer, res *metrics.UpdatedKeyResult) {
	kr := res.KeyResult
	fmt.Fprintf(w, "KR %d: %g/%g (%.2f%%)", kr.ID, kr.CurrentValue, kr.TargetValue, kr.AchievementRate)
	if res.Change != nil {
		fmt.Fprintf(w, " %s -> %s", res.Change.OldStatus, res.Change.NewStatus)
	}
	fmt.Fprintf(w, ", goal %d overall %d%%\n", kr.GoalID, res.Progress.OverallPercent)
}
