package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded manifest snapshots for the session",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of snapshots to list")
	cmd.Flags().String("history", "", "Snapshot database path (default: ~/.codapmeta/history.db)")
	cmd.Flags().Bool("json", false, "Print snapshots as JSON")
	return cmd
}

// runHistory reads the local snapshot store; it never touches the
// endpoint, so only the session ID is required.
func runHistory(cmd *cobra.Command, _ []string) error {
	explicitConfig, _ := cmd.Flags().GetString("config")
	cfg, _, err := LoadConfig(explicitConfig)
	if err != nil {
		return exitError(exitUsage, "%s", err)
	}

	sessionID := resolveStringSetting(cmd, "session", cfg.SessionID)
	if sessionID == "" {
		return exitError(exitUsage, "session ID is required (--session or CODAPMETA_SESSION)")
	}

	store, err := resolveSnapshotStore(cmd, cfg)
	if err != nil {
		return exitError(exitUsage, "opening snapshot store: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	limit, _ := cmd.Flags().GetInt("limit")
	snaps, err := store.List(cmd.Context(), sessionID, limit)
	if err != nil {
		return exitError(exitRuntime, "listing snapshots: %v", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(snaps, "", "  ")
		if err != nil {
			return exitError(exitRuntime, "encoding snapshots: %v", err)
		}
		_, _ = cmd.OutOrStdout().Write(append(data, '\n'))
		return nil
	}

	if len(snaps) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No snapshots recorded for session %s\n", sessionID)
		return nil
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "TAKEN_AT\tAPI_VERSION\tTOOLS\tID")
	for _, snap := range snaps {
		fmt.Fprintf(writer, "%s\t%s\t%d\t%s\n",
			snap.TakenAt.Format(time.RFC3339),
			snap.APIVersion,
			snap.ToolCount,
			snap.ID,
		)
	}
	return writer.Flush()
}
