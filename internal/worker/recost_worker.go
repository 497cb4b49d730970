package worker

// recost_worker.go
// Runs a full cost recalculation requested through POST /products/recalculate.
// Transient failures (database unavailable, serialization errors) are retried
// with exponential backoff, max 3 attempts, before the job goes to the DLQ.

import (
	"context"
	"encoding/json"
	"time"

	"candycost/internal/service"

	"github.com/rs/zerolog/log"
)

const maxAttempts = 3

// backoffBase is the first retry delay; later retries double it.
var backoffBase = time.Second

// RecostPayload is the body of a recost job.
type RecostPayload struct {
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Recalculator reprices every product.
type Recalculator interface {
	RecalculateAll(ctx context.Context) (*service.RecalcReport, error)
}

// NewRecostHandler adapts a Recalculator to the pool's Handler signature.
func NewRecostHandler(svc Recalculator) Handler {
	return func(ctx context.Context, raw json.RawMessage) error {
		var p RecostPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}

		var report *service.RecalcReport
		err := withRetry(ctx, maxAttempts, func(attempt int) error {
			var err error
			report, err = svc.RecalculateAll(ctx)
			if err != nil {
				log.Warn().Err(err).Int("attempt", attempt+1).Msg("recost_worker: attempt failed, retrying")
			}
			return err
		})
		if err != nil {
			return err
		}

		logReport(report).
			Str("requested_by", p.RequestedBy).
			Dur("queued_for", time.Since(p.RequestedAt)).
			Msg("recost_worker: recalculation finished")
		return nil
	}
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = base, 3 = 2*base.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * backoffBase
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
