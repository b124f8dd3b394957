package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codap-mcp/codapmeta/snapshot"
	"github.com/codap-mcp/codapmeta/watch"
)

const defaultWatchSchedule = "*/5 * * * *"

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll session metadata on a schedule and record manifest snapshots",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	cmd.Flags().String("schedule", defaultWatchSchedule, "Five-field cron schedule, evaluated in UTC")
	cmd.Flags().String("history", "", "Snapshot database path (default: ~/.codapmeta/history.db)")
	cmd.Flags().Bool("no-history", false, "Keep snapshots in memory only")
	cmd.Flags().Bool("once", false, "Run a single poll and exit")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	setup, err := resolveSetup(cmd)
	if err != nil {
		return err
	}
	defer setup.close()

	store, err := resolveSnapshotStore(cmd, setup.cfg)
	if err != nil {
		return exitError(exitUsage, "opening snapshot store: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	schedule, _ := cmd.Flags().GetString("schedule")
	if !cmd.Flags().Changed("schedule") && strings.TrimSpace(setup.cfg.Watch.Schedule) != "" {
		schedule = setup.cfg.Watch.Schedule
	}

	watcher, err := watch.New(setup.client, store, watch.Config{
		Schedule:   schedule,
		APIVersion: setup.apiVersion,
		Logger:     setup.logger,
	})
	if err != nil {
		return exitError(exitUsage, "%s", err)
	}

	if once, _ := cmd.Flags().GetBool("once"); once {
		if err := watcher.RunOnce(cmd.Context()); err != nil {
			return exitError(exitEndpoint, "%s", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded snapshot for session %s\n", setup.client.SessionID())
		return nil
	}

	// Signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watcher.Start(ctx); err != nil {
		return exitError(exitRuntime, "starting watcher: %v", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching session %s on schedule %q (next poll %s)\n",
		setup.client.SessionID(),
		schedule,
		watcher.NextActivation(time.Now()).Format(time.RFC3339),
	)

	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := watcher.Stop(stopCtx); err != nil {
		return exitError(exitRuntime, "stopping watcher: %v", err)
	}
	return nil
}

func resolveSnapshotStore(cmd *cobra.Command, cfg Config) (snapshot.Store, error) {
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		return snapshot.NewMemoryStore(), nil
	}

	path, _ := cmd.Flags().GetString("history")
	if strings.TrimSpace(path) == "" {
		path = cfg.SnapshotPath
	}
	if strings.TrimSpace(path) == "" {
		return snapshot.NewDefaultSQLiteStore()
	}
	return snapshot.NewSQLiteStore(filepath.Clean(strings.TrimSpace(path)))
}
