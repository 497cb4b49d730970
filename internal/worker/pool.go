package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueRecost = "jobs:recost"

	JobRecost = "recost"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes one job payload. A returned error sends the job to the DLQ.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Handlers maps job types to their handler.
type Handlers map[string]Handler

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueRecost asks the pool for a full cost recalculation.
func (d *Dispatcher) EnqueueRecost(ctx context.Context, requestedBy string) error {
	return d.enqueue(ctx, QueueRecost, JobRecost, RecostPayload{
		RequestedBy: requestedBy,
		RequestedAt: time.Now().UTC(),
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	if err := d.rdb.LPush(ctx, queue, encoded).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return nil
}

// StartWorkerPool launches numWorkers goroutines consuming the job queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers Handlers) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

// pollRetryBase is the first pause after a failed BRPOP; consecutive
// failures double it up to pollRetryMax.
var (
	pollRetryBase = 500 * time.Millisecond
	pollRetryMax  = 30 * time.Second
)

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers Handlers) {
	queues := []string{QueueRecost}
	var pause time.Duration
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if errors.Is(err, redis.Nil) {
				pause = 0
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				pause = nextPause(pause)
				log.Warn().Err(err).Int("worker", id).Dur("retry_in", pause).Msg("queue poll failed")
				select {
				case <-ctx.Done():
				case <-time.After(pause):
				}
				continue
			}
			pause = 0
			if len(result) < 2 {
				continue
			}
			if err := processJob(ctx, handlers, result[0], result[1]); err != nil {
				var job Job
				_ = json.Unmarshal([]byte(result[1]), &job)
				SendToDLQ(ctx, rdb, result[0], job.Type, job.Payload, err.Error(), maxAttempts)
			}
		}
	}
}

func nextPause(prev time.Duration) time.Duration {
	if prev == 0 {
		return pollRetryBase
	}
	if next := prev * 2; next < pollRetryMax {
		return next
	}
	return pollRetryMax
}

func processJob(ctx context.Context, handlers Handlers, queue, raw string) error {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return fmt.Errorf("malformed job: %w", err)
	}
	h, ok := handlers[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type")
		return fmt.Errorf("no handler for job type %q", job.Type)
	}
	log.Info().Str("type", job.Type).Str("queue", queue).Msg("processing job")
	return h(ctx, job.Payload)
}
