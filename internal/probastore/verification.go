package probastore

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// verifyProbabilityStorage samples a subset of just-written keys with a
// pipelined EXISTS check. A miss triggers a direct connectivity probe
// before raising, to distinguish "write silently lost" from "Redis is
// unreachable".
func verifyProbabilityStorage(ctx context.Context, rdb *redis.Client, sampleKeys []string, currency string) error {
	if len(sampleKeys) == 0 {
		return nil
	}

	pipe := rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(sampleKeys))
	for i, key := range sampleKeys {
		cmds[i] = pipe.Exists(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return xerrors.Wrap(xerrors.KindStore, "verify_probability_storage", "verification pipeline failed", err)
	}

	var missing []string
	verified := 0
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			verified++
		} else {
			missing = append(missing, sampleKeys[i])
		}
	}

	if verified != len(sampleKeys) {
		_ = runDirectConnectivityTest(ctx, rdb, currency)
		sort.Strings(missing)
		return xerrors.New(xerrors.KindStore, "verify_probability_storage",
			fmt.Sprintf("probability storage verification failed for %s: missing keys=%v", currency, missing))
	}
	return nil
}

// runDirectConnectivityTest writes, reads, then deletes a dedicated probe
// key, surfacing any Redis connectivity problem with an unambiguous error.
func runDirectConnectivityTest(ctx context.Context, rdb *redis.Client, currency string) error {
	if rdb == nil {
		return xerrors.New(xerrors.KindStore, "connectivity_probe", fmt.Sprintf("cannot run connectivity test for %s: redis connection is nil", currency))
	}
	testKey := fmt.Sprintf("probabilities:%s:connectivity_probe", currency)
	if err := rdb.Set(ctx, testKey, "probability-store-connectivity", 0).Err(); err != nil {
		return xerrors.Wrap(xerrors.KindStore, "connectivity_probe", "connectivity probe set failed", err)
	}
	if err := rdb.Get(ctx, testKey).Err(); err != nil && err != redis.Nil {
		return xerrors.Wrap(xerrors.KindStore, "connectivity_probe", "connectivity probe get failed", err)
	}
	if err := rdb.Del(ctx, testKey).Err(); err != nil {
		return xerrors.Wrap(xerrors.KindStore, "connectivity_probe", "connectivity probe delete failed", err)
	}
	return nil
}
