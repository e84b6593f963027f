package backoff

import "time"

// Kind is one of the six closed-set failure kinds the backoff engine tracks.
type Kind string

const (
	KindNetwork             Kind = "network"
	KindAuthentication      Kind = "authentication"
	KindRateLimit           Kind = "rate_limit"
	KindWebsocketConnection Kind = "websocket_connection"
	KindWebsocketMessage    Kind = "websocket_message"
	KindGeneral             Kind = "general"
)

// Config is the immutable per-kind backoff configuration.
type Config struct {
	InitialDelay        time.Duration
	MaxDelay            time.Duration
	GrowthMultiplier    float64
	JitterFraction      float64
	DegradedMultiplier  float64
	MaxAttempts         int
}

// DefaultConfigs returns the closed-set default configuration per failure
// kind, ported from the original backoff_manager_helpers/types.py constants.
func DefaultConfigs() map[Kind]Config {
	return map[Kind]Config{
		KindNetwork: {
			InitialDelay:       5 * time.Second,
			MaxDelay:           300 * time.Second,
			GrowthMultiplier:   1.5,
			JitterFraction:     0.15,
			DegradedMultiplier: 2.0,
			MaxAttempts:        15,
		},
		KindAuthentication: {
			InitialDelay:       5 * time.Second,
			MaxDelay:           300 * time.Second,
			GrowthMultiplier:   2.5,
			JitterFraction:     0.2,
			DegradedMultiplier: 2.0,
			MaxAttempts:        5,
		},
		KindRateLimit: {
			InitialDelay:       30 * time.Second,
			MaxDelay:           900 * time.Second,
			GrowthMultiplier:   1.5,
			JitterFraction:     0.25,
			DegradedMultiplier: 1.5,
			MaxAttempts:        3,
		},
		KindWebsocketConnection: {
			InitialDelay:       1 * time.Second,
			MaxDelay:           60 * time.Second,
			GrowthMultiplier:   2.0,
			JitterFraction:     0.1,
			DegradedMultiplier: 2.5,
			MaxAttempts:        10,
		},
		KindWebsocketMessage: {
			InitialDelay:       500 * time.Millisecond,
			MaxDelay:           30 * time.Second,
			GrowthMultiplier:   2.0,
			JitterFraction:     0.1,
			DegradedMultiplier: 2.0,
			MaxAttempts:        5,
		},
		KindGeneral: {
			InitialDelay:       1 * time.Second,
			MaxDelay:           60 * time.Second,
			GrowthMultiplier:   2.0,
			JitterFraction:     0.1,
			DegradedMultiplier: 2.0,
			MaxAttempts:        8,
		},
	}
}

// State is the mutable per-(service,kind) attempt tracker.
type State struct {
	AttemptCount        int
	ConsecutiveFailures int
	LastFailureTime     time.Time
}

// Status is the snapshot returned by Engine.Status.
type Status struct {
	Attempt             int
	ConsecutiveFailures int
	LastFailureTime     time.Time
	HasFailed           bool
	MaxAttempts         int
	CanRetry            bool
	NextDelay           time.Duration
}

type key struct {
	service string
	kind    Kind
}
