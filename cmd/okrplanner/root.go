package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"okrplanner/internal/adapters"
	"okrplanner/internal/audit"
	"okrplanner/internal/config"
	"okrplanner/internal/insights"
	"okrplanner/internal/logging"
	"okrplanner/internal/metrics"
	"okrplanner/internal/notify"
	"okrplanner/internal/okrstore"
	"okrplanner/internal/planner"
	"okrplanner/internal/workspace"
)

const workspaceEnv = "OKRPLANNER_WORKSPACE"

type rootOptions struct {
	workspace string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Turn long-horizon goals into yearly and quarterly OKR plans",
		Long: `okrplanner breaks a goal with a due date at least five years out into
yearly objectives, quarterly objectives and measurable key results, then
tracks progress as key result values are reported.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.workspace, "workspace", "", "Path to workspace root (default: $"+workspaceEnv+")")

	cmd.AddCommand(
		newInitCmd(opts),
		newGoalCmd(opts),
		newPlanCmd(opts),
		newKRCmd(opts),
		newProgressCmd(opts),
		newEventsCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

func (o *rootOptions) root() (string, error) {
	root := strings.TrimSpace(o.workspace)
	if root == "" {
		root = strings.TrimSpace(os.Getenv(workspaceEnv))
	}
	if root == "" {
		return "", fmt.Errorf("--workspace is required")
	}
	return root, nil
}

// app bundles everything a command needs once the workspace is resolved.
type app struct {
	ws       *workspace.Workspace
	cfg      *config.Config
	log      *slog.Logger
	store    *okrstore.Store
	audit    *audit.Logger
	notifier *notify.Notifier
}

func (o *rootOptions) open(cmd *cobra.Command) (*app, error) {
	root, err := o.root()
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return nil, err
	}
	if err := ws.EnsureDirs(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(ws)
	if err != nil {
		return nil, err
	}

	a := &app{
		ws:       ws,
		cfg:      cfg,
		log:      logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()),
		notifier: notify.New(cfg.Notifications.Enabled),
	}
	if a.store, err = okrstore.Open(cfg.Database.Path); err != nil {
		return nil, err
	}
	if a.audit, err = audit.Open(cfg.Audit.Path); err != nil {
		_ = a.store.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.audit.Close(); err != nil {
		a.log.Warn("close audit log", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", "error", err)
	}
}

// pipeline builds the planning pipeline for the configured oracle; a non-empty
// provider overrides the config.
func (a *app) pipeline(provider string) (*planner.Pipeline, error) {
	oc := a.cfg.Oracle
	if provider != "" {
		oc.Provider = provider
	}
	cfg := adapters.Config{
		Provider:         oc.Provider,
		Model:            oc.Model,
		BaseURL:          oc.BaseURL,
		APIKey:           oc.APIKey,
		Timeout:          oc.Timeout,
		WorkDir:          a.ws.Root,
		ArtifactsDir:     a.ws.DataDir,
		MockFile:         oc.MockFile,
		MockAnalysisFile: oc.MockAnalysisFile,
	}
	oracle, err := adapters.New(cfg)
	if err != nil {
		return nil, err
	}
	analysisOracle, err := adapters.NewAnalysisOracle(cfg, oracle)
	if err != nil {
		return nil, err
	}

	analyzers := []insights.Analyzer{insights.Heuristic{}}
	if analysisOracle != nil {
		analyzers = append([]insights.Analyzer{insights.OracleAnalyzer{Oracle: analysisOracle, Timeout: oc.Timeout}}, analyzers...)
	}
	return &planner.Pipeline{
		Store:    a.store,
		Oracle:   oracle,
		Analyzer: insights.Chain{Analyzers: analyzers, Logger: a.log},
		Audit:    a.audit,
		Logger:   a.log,
		Review:   oc.Review,
		Timeout:  oc.Timeout,
		LockTTL:  a.cfg.Planner.LockTTL,
	}, nil
}

func (a *app) progress() *metrics.Service {
	return &metrics.Service{Store: a.store, Audit: a.audit, Notifier: a.notifier, Logger: a.log}
}

// logEdit records a user action. Failures are logged, never returned.
func (a *app) logEdit(cmd *cobra.Command, goalID int64, eventType string, payload map[string]any) {
	err := a.audit.LogEvent(cmd.Context(), audit.Event{
		Actor:   audit.ActorUser,
		Type:    eventType,
		GoalID:  goalID,
		Payload: payload,
	})
	if err != nil {
		a.log.Warn("audit log failed", "type", eventType, "error", err)
	}
}
