package clientstate

import (
	"context"
	"log/slog"
	"time"

	"github.com/readmaster/read-master/internal/shared"
)

// WebhookRetention is how long processed webhook ids are remembered.
const WebhookRetention = 7 * 24 * time.Hour

// SweepBackend is the persistence the sweeper cleans.
type SweepBackend interface {
	DeleteExpiredState(ctx context.Context, now time.Time) (int64, error)
	DeleteWebhookEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunSweeper deletes expired state and old webhook ids every interval until
// ctx is done. It returns nil on cancellation.
func RunSweeper(ctx context.Context, repo SweepBackend, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("State sweeper started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			Sweep(ctx, repo, time.Now())
		case <-ctx.Done():
			slog.Info("State sweeper shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

// Sweep performs one cleanup pass at now.
func Sweep(ctx context.Context, repo SweepBackend, now time.Time) {
	var expired int64
	err := shared.RetryOnConflict(ctx, "delete expired state", 3, 100*time.Millisecond, func(ctx context.Context) error {
		n, err := repo.DeleteExpiredState(ctx, now)
		expired = n
		return err
	})
	if err != nil {
		slog.Error("State sweeper failed to delete expired state", "error", err)
	} else if expired > 0 {
		slog.Info("State sweeper removed expired entries", "count", expired)
	}

	var events int64
	err = shared.RetryOnConflict(ctx, "delete webhook events", 3, 100*time.Millisecond, func(ctx context.Context) error {
		n, err := repo.DeleteWebhookEventsBefore(ctx, now.Add(-WebhookRetention))
		events = n
		return err
	})
	if err != nil {
		slog.Error("State sweeper failed to prune webhook events", "error", err)
	} else if events > 0 {
		slog.Info("State sweeper pruned webhook events", "count", events)
	}
}
