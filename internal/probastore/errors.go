package probastore

import (
	"fmt"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

var errNotInitialized = xerrors.New(xerrors.KindStore, "redis_provider", "redis connection not initialised")

func errDataNotFound(currency, context string) error {
	detail := fmt.Sprintf("no probability data found for %s", currency)
	if context != "" {
		detail = fmt.Sprintf("%s (%s)", detail, context)
	}
	return xerrors.New(xerrors.KindStore, "probability_lookup", detail)
}
