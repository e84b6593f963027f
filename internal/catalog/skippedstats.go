package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	skippedStatsKey = "kalshi:skipped_markets"
	skippedStatsTTL = 1 * time.Hour
)

type skippedStatsPayload struct {
	Timestamp    int64               `json:"timestamp"`
	TotalSkipped int                 `json:"total_skipped"`
	ByStrikeType map[string][]string `json:"by_strike_type"`
	ByCategory   map[string]int      `json:"by_category"`
}

// StoreSkippedStats persists discovery diagnostics with a 1h TTL, per spec
// §6's `kalshi:skipped_markets` key. Recovered from skipped_stats_store.py.
func StoreSkippedStats(ctx context.Context, rdb *redis.Client, stats *SkippedMarketStats) error {
	payload := skippedStatsPayload{
		Timestamp:    time.Now().Unix(),
		TotalSkipped: stats.TotalSkipped,
		ByStrikeType: stats.ByStrikeType,
		ByCategory:   stats.ByCategory,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, skippedStatsKey, raw, skippedStatsTTL).Err()
}

// GetSkippedStats retrieves the diagnostics written by StoreSkippedStats,
// returning nil if absent or unparsable (best-effort, matching the
// original's silent-failure read path).
func GetSkippedStats(ctx context.Context, rdb *redis.Client) *SkippedMarketStats {
	raw, err := rdb.Get(ctx, skippedStatsKey).Result()
	if err != nil {
		return nil
	}
	var payload skippedStatsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return &SkippedMarketStats{
		TotalSkipped: payload.TotalSkipped,
		ByStrikeType: payload.ByStrikeType,
		ByCategory:   payload.ByCategory,
	}
}
