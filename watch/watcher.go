// Package watch polls the session metadata endpoint on a cron schedule
// and records manifest snapshots, logging changes between polls.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/codap-mcp/codapmeta"
	"github.com/codap-mcp/codapmeta/snapshot"
)

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// Config controls watcher behavior.
type Config struct {
	// Schedule is a five-field cron expression evaluated in UTC.
	Schedule string
	// APIVersion pins Accept-Version on every poll; empty means server default.
	APIVersion string
	Logger     *slog.Logger
	Now        func() time.Time
}

// Watcher polls one session's metadata on a schedule, appending a
// snapshot per poll and logging manifest changes between polls.
type Watcher struct {
	client     *codapmeta.Client
	store      snapshot.Store
	schedule   cron.Schedule
	apiVersion string
	logger     *slog.Logger
	now        func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a watcher. The schedule must be a five-field UTC cron
// expression; timezone prefixes are rejected.
func New(client *codapmeta.Client, store snapshot.Store, cfg Config) (*Watcher, error) {
	if client == nil {
		return nil, errors.New("watch: client is nil")
	}
	if store == nil {
		return nil, errors.New("watch: store is nil")
	}
	schedule, err := parseCronExpressionUTC(cfg.Schedule)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Watcher{
		client:     client,
		store:      store,
		schedule:   schedule,
		apiVersion: cfg.APIVersion,
		logger:     logger,
		now:        now,
	}, nil
}

// Start begins watcher execution: one immediate poll, then one poll per
// schedule activation. Starting a started watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return errors.New("watch: watcher is nil")
	}

	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go func() {
		defer close(done)
		w.poll(loopCtx)

		for {
			now := w.now().UTC()
			next := w.schedule.Next(now)
			timer := time.NewTimer(next.Sub(now))

			select {
			case <-loopCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
				w.poll(loopCtx)
			}
		}
	}()

	return nil
}

// Stop terminates watcher execution, waiting for the loop to exit.
func (w *Watcher) Stop(ctx context.Context) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one poll: fetch the manifest, snapshot it, diff
// against the previous snapshot, and append. Fetch failures are returned
// but never stop a running watcher loop.
func (w *Watcher) RunOnce(ctx context.Context) error {
	if w == nil {
		return errors.New("watch: watcher is nil")
	}

	manifest, err := w.client.GetToolManifest(ctx, w.apiVersion)
	if err != nil {
		return fmt.Errorf("watch: fetch manifest: %w", err)
	}

	snap, err := snapshot.Take(manifest, w.client.SessionID(), w.now())
	if err != nil {
		return err
	}

	prev, found, err := w.store.Latest(ctx, snap.SessionID)
	if err != nil {
		return fmt.Errorf("watch: load previous snapshot: %w", err)
	}

	if err := w.store.Append(ctx, snap); err != nil {
		return fmt.Errorf("watch: append snapshot: %w", err)
	}

	if !found {
		w.logger.Info("baseline manifest recorded",
			"session", snap.SessionID,
			"api_version", snap.APIVersion,
			"tools", snap.ToolCount,
		)
		return nil
	}

	changes := snapshot.Diff(prev, snap)
	if len(changes) == 0 {
		w.logger.Debug("manifest unchanged",
			"session", snap.SessionID,
			"api_version", snap.APIVersion,
		)
		return nil
	}
	for _, change := range changes {
		w.logger.Info("manifest changed", "session", snap.SessionID, "change", change)
	}
	return nil
}

// NextActivation returns the first schedule activation after from.
func (w *Watcher) NextActivation(from time.Time) time.Time {
	return w.schedule.Next(from.UTC())
}

func (w *Watcher) poll(ctx context.Context) {
	if err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("metadata poll failed",
			"session", w.client.SessionID(),
			"error", err,
		)
	}
}

func parseCronExpressionUTC(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, errors.New("watch: cron schedule is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, errors.New("watch: cron schedule must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("watch: invalid cron schedule: %w", err)
	}
	return schedule, nil
}
