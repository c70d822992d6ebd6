package redis

import (
	"context"
	"encoding/json"
	"time"

	"ai-interview-platform/internal/infra/metrics"
	"ai-interview-platform/internal/usecase"
)

var _ usecase.ResultsCache = (*ResultsCache)(nil)

// ResultsCache caches assembled session results. Only finalized results are
// stored, so a stale entry is impossible: the aggregate is written exactly
// once per session.
type ResultsCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewResultsCache(client RedisClient, ttl time.Duration) *ResultsCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultsCache{client: client, ttl: ttl}
}

func (c *ResultsCache) Get(ctx context.Context, sessionID string) (*usecase.Results, bool) {
	data, err := c.client.Get(ctx, "results:"+sessionID)
	if err != nil {
		metrics.IncCacheRequest("results", "miss")
		return nil, false
	}
	var res usecase.Results
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		metrics.IncCacheRequest("results", "miss")
		return nil, false
	}
	metrics.IncCacheRequest("results", "hit")
	return &res, true
}

func (c *ResultsCache) Set(ctx context.Context, sessionID string, res *usecase.Results) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	// Best effort: a failed cache write just means the next read assembles.
	_ = c.client.Set(ctx, "results:"+sessionID, data, c.ttl)
}
