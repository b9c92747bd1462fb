// Package graphadapter wraps a ports.DependencyRepository with a short-TTL
// traversal cache, absorbing the repeated subgraph reads a batch run issues
// for the same start node across every SLI type of a service and again
// across the whole fleet.
package graphadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/cache"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/graph"
	"github.com/R3E-Network/slo-recommendation-engine/pkg/logger"
)

// CachingRepository decorates a ports.DependencyRepository, caching
// Traverse results by (start, direction, max_depth, include_stale). Every
// other method passes straight through. Cache entries are never
// invalidated on write; they simply expire, an accepted staleness window
// bounded by ttl.
type CachingRepository struct {
	inner ports.DependencyRepository
	cache cache.Cache
	ttl   time.Duration
	log   *logger.Logger
}

// New builds a CachingRepository. cache may be nil, in which case Traverse
// passes straight through to inner with no caching.
func New(inner ports.DependencyRepository, c cache.Cache, ttl time.Duration, log *logger.Logger) *CachingRepository {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &CachingRepository{inner: inner, cache: c, ttl: ttl, log: log}
}

func (r *CachingRepository) traverseKey(start string, direction ports.TraversalDirection, maxDepth int, includeStale bool) string {
	return fmt.Sprintf("traverse:%s:%s:%d:%t", start, direction, maxDepth, includeStale)
}

func (r *CachingRepository) Traverse(ctx context.Context, start string, direction ports.TraversalDirection, maxDepth int, includeStale bool) (*ports.Subgraph, error) {
	if r.cache == nil {
		return r.inner.Traverse(ctx, start, direction, maxDepth, includeStale)
	}

	key := r.traverseKey(start, direction, maxDepth, includeStale)
	if raw, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		var cached ports.Subgraph
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return &cached, nil
		}
	} else if err != nil && r.log != nil {
		r.log.WithField("key", key).WithField("error", err).Warn("traversal cache read failed")
	}

	sg, err := r.inner.Traverse(ctx, start, direction, maxDepth, includeStale)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(sg); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil && r.log != nil {
			r.log.WithField("key", key).WithField("error", err).Warn("traversal cache write failed")
		}
	}
	return sg, nil
}

func (r *CachingRepository) UpsertMany(ctx context.Context, edges []*graph.Edge) error {
	return r.inner.UpsertMany(ctx, edges)
}

func (r *CachingRepository) ListBySource(ctx context.Context, serviceID string) ([]*graph.Edge, error) {
	return r.inner.ListBySource(ctx, serviceID)
}

func (r *CachingRepository) MarkStaleOlderThan(ctx context.Context, threshold time.Duration) (int, error) {
	return r.inner.MarkStaleOlderThan(ctx, threshold)
}

func (r *CachingRepository) DetectCycles(ctx context.Context, nodeIDs []string) ([][]string, error) {
	return r.inner.DetectCycles(ctx, nodeIDs)
}
