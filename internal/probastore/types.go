// Package probastore implements the dual-encoding Redis probability store:
// a compact per-currency hash for bulk round-trip access and a
// human-readable per-strike hash tree for ad-hoc inspection and
// event-type grouping.
package probastore

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// RedisProvider returns the Redis client to use for the next operation,
// mirroring the lazy connectivity-checked accessor of the REST/WS clients.
type RedisProvider func(ctx context.Context) (*redis.Client, error)

// StaticProvider adapts an already-constructed client into a RedisProvider.
func StaticProvider(rdb *redis.Client) RedisProvider {
	return func(ctx context.Context) (*redis.Client, error) {
		if rdb == nil {
			return nil, errNotInitialized
		}
		return rdb, nil
	}
}

// ProbabilityBulkData is the nested expiry -> strike -> payload shape
// accepted by both bulk store operations.
type ProbabilityBulkData map[string]map[string]map[string]any

// ProbabilityData is the input to StoreProbability, one logical record.
type ProbabilityData struct {
	Currency         string
	Expiry           string
	StrikeType       string
	Strike           float64
	Probability      float64
	Error            *float64
	Confidence       *float64
	RangeLow         *float64
	RangeHigh        *float64
	HasRange         bool
}

// Store is the orchestrator over ingestion and retrieval, holding the
// Redis provider shared by both halves.
type Store struct {
	provider RedisProvider
}

// New builds a Store backed by the given provider.
func New(provider RedisProvider) *Store {
	return &Store{provider: provider}
}

func (s *Store) redis(ctx context.Context) (*redis.Client, error) {
	if s.provider == nil {
		return nil, errNotInitialized
	}
	return s.provider(ctx)
}
