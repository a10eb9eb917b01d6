package domain

import (
	"context"
	"time"
)

// MarketStore persists the local mirror of market rows. It is a pure
// persistence layer: lifecycle validity is the caller's responsibility.
type MarketStore interface {
	// Create inserts a new market row. It returns ErrAlreadyExists when a
	// row with the same ID is present.
	Create(ctx context.Context, m Market) error
	// Upsert inserts the market or, on an ID conflict, updates only the
	// deadline, threshold, metric type, and description of the existing row.
	// Status and stake counters are never touched on conflict.
	Upsert(ctx context.Context, m Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	List(ctx context.Context) ([]Market, error)
	ListByStatus(ctx context.Context, status MarketStatus) ([]Market, error)
	SetStatus(ctx context.Context, id string, status MarketStatus) error
	UpdateStats(ctx context.Context, id string, stats PoolStats) error
	Count(ctx context.Context) (int64, error)
}

// MarketCache is a read-through cache in front of the MarketStore.
type MarketCache interface {
	Set(ctx context.Context, m Market) error
	Get(ctx context.Context, id string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// RateLimiter bounds the request rate per key over a rolling window.
type RateLimiter interface {
	// Allow reports whether another request under key fits inside limit
	// requests per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EventBus publishes raw payloads to named channels and lets consumers
// subscribe to them. Used to fan market lifecycle events out to the
// WebSocket hub.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
