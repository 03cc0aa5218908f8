package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"okrplanner/internal/audit"
	"okrplanner/internal/workspace"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := opts.root()
			if err != nil {
				return err
			}
			ws, err := workspace.Init(root)
			if err != nil {
				return err
			}

			logger, err := audit.Open(ws.AuditDBPath)
			if err != nil {
				return err
			}
			defer logger.Close()
			if err := logger.LogEvent(cmd.Context(), audit.Event{
				Actor:   audit.ActorUser,
				Type:    "workspace_initialized",
				Payload: map[string]any{"workspace": ws.Root},
			}); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "audit log failed:", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initialized workspace: %s\n", ws.Root)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintf(out, "  %s goal create --workspace %s --title \"...\" --due YYYY-MM-DD\n", appName, ws.Root)
			fmt.Fprintf(out, "  %s plan generate --workspace %s <goal-id>\n", appName, ws.Root)
			return nil
		},
	}
}
