package backoff

import (
	"math"
	"time"

	"github.com/kalshi-core/connectivity/internal/clockutil"
)

// NetworkHealth is the subset of internal/health.Monitor the delay
// calculation consults to apply the degraded multiplier.
type NetworkHealth interface {
	IsHealthy() bool
	IsDegraded() bool
	IsOffline() bool
}

func calculateBaseDelay(cfg Config, attempt int) time.Duration {
	factor := math.Pow(cfg.GrowthMultiplier, float64(attempt-1))
	base := time.Duration(float64(cfg.InitialDelay) * factor)
	if base > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return base
}

func applyNetworkMultiplier(base time.Duration, cfg Config, net NetworkHealth) time.Duration {
	if net == nil || net.IsHealthy() {
		return base
	}
	if net.IsDegraded() || net.IsOffline() {
		return time.Duration(float64(base) * cfg.DegradedMultiplier)
	}
	return base
}

func calculateFullDelay(cfg Config, attempt int, net NetworkHealth) time.Duration {
	base := calculateBaseDelay(cfg, attempt)
	adjusted := applyNetworkMultiplier(base, cfg, net)
	return clockutil.UniformJitter(adjusted, cfg.JitterFraction)
}
