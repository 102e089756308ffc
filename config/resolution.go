package config

import "time"

// ResolutionConfig bounds the remote calls made while resolving a role and
// controls how long per-client session state is kept.
type ResolutionConfig struct {
	ProfileReadTimeout   time.Duration `env:"PROFILE_READ_TIMEOUT"   envDefault:"10s"`
	AllowListReadTimeout time.Duration `env:"ALLOWLIST_READ_TIMEOUT" envDefault:"3s"`
	ProfileWriteTimeout  time.Duration `env:"PROFILE_WRITE_TIMEOUT"  envDefault:"3s"`
	SignOutTimeout       time.Duration `env:"SIGNOUT_TIMEOUT"        envDefault:"2s"`
	SnapshotTimeout      time.Duration `env:"SNAPSHOT_TIMEOUT"       envDefault:"2s"`

	// Breaker settings apply to the profile and allow-list stores.
	BreakerEnabled     bool          `env:"BREAKER_ENABLED"      envDefault:"true"`
	BreakerFailures    uint32        `env:"BREAKER_FAILURES"     envDefault:"5"`
	BreakerOpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`

	// ClientIdleTTL is how long an untouched client machine stays in memory.
	ClientIdleTTL time.Duration `env:"CLIENT_IDLE_TTL" envDefault:"12h"`
	// SnapshotTTL is how long a client's last session survives in Redis.
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"720h"`
}

// DefaultResolutionConfig returns the defaults used when nothing is configured.
func DefaultResolutionConfig() ResolutionConfig {
	return ResolutionConfig{
		ProfileReadTimeout:   10 * time.Second,
		AllowListReadTimeout: 3 * time.Second,
		ProfileWriteTimeout:  3 * time.Second,
		SignOutTimeout:       2 * time.Second,
		SnapshotTimeout:      2 * time.Second,
		BreakerEnabled:       true,
		BreakerFailures:      5,
		BreakerOpenTimeout:   30 * time.Second,
		ClientIdleTTL:        12 * time.Hour,
		SnapshotTTL:          720 * time.Hour,
	}
}

const minCallTimeout = 10 * time.Millisecond

// Sanitize applies guardrails to resolution configuration values.
func (r *ResolutionConfig) Sanitize() {
	for _, d := range []*time.Duration{
		&r.ProfileReadTimeout,
		&r.AllowListReadTimeout,
		&r.ProfileWriteTimeout,
		&r.SignOutTimeout,
		&r.SnapshotTimeout,
	} {
		if *d < minCallTimeout {
			*d = minCallTimeout
		}
	}
	if r.BreakerFailures < 1 {
		r.BreakerFailures = 1
	}
	if r.BreakerOpenTimeout < time.Second {
		r.BreakerOpenTimeout = time.Second
	}
	if r.ClientIdleTTL < time.Minute {
		r.ClientIdleTTL = time.Minute
	}
	if r.SnapshotTTL < r.ClientIdleTTL {
		r.SnapshotTTL = r.ClientIdleTTL
	}
}
