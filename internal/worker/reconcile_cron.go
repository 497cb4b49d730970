package worker

// reconcile_cron.go
// Background goroutine that periodically recomputes every persisted cost and
// repairs drift, e.g. rows edited by hand or a write that raced a deploy.

import (
	"context"
	"time"

	"candycost/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartReconcileCron ticks every interval and runs RecalculateAll.
// A non-positive interval disables the cron. It respects ctx for graceful shutdown.
func StartReconcileCron(ctx context.Context, interval time.Duration, svc Recalculator) {
	if interval <= 0 {
		log.Info().Msg("reconcile_cron: disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("reconcile_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("reconcile_cron: shutting down")
				return
			case <-ticker.C:
				reconcileOnce(ctx, svc)
			}
		}
	}()
}

func reconcileOnce(ctx context.Context, svc Recalculator) {
	report, err := svc.RecalculateAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reconcile_cron: recalculation failed")
		return
	}
	logReport(report).Msg("reconcile_cron: tick complete")
}

func logReport(r *service.RecalcReport) *zerolog.Event {
	ev := log.Info()
	if len(r.Failed) > 0 {
		ev = log.Warn()
	}
	return ev.Int("checked", r.Checked).Int("updated", len(r.Updated)).Int("failed", len(r.Failed))
}
