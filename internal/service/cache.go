package service

import (
	"context"

	"candycost/internal/dto"

	"github.com/google/uuid"
)

// ProductCache stores rendered product responses. Implementations are best
// effort: a miss or an outage never fails the caller.
//
// Get reports the entry's generation on a miss. Set stores only while that
// generation is still current, and Invalidate advances it, so a response
// read before an invalidation can never be cached after it.
type ProductCache interface {
	Get(ctx context.Context, id uuid.UUID) (resp *dto.ProductResponse, gen string, ok bool)
	Set(ctx context.Context, p *dto.ProductResponse, gen string)
	Invalidate(ctx context.Context, ids ...uuid.UUID)
}

// NoopCache is used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, uuid.UUID) (*dto.ProductResponse, string, bool) {
	return nil, "", false
}
func (NoopCache) Set(context.Context, *dto.ProductResponse, string) {}
func (NoopCache) Invalidate(context.Context, ...uuid.UUID)          {}
