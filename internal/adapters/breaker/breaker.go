// Package breaker wraps remote role stores with circuit breakers so a store that keeps
// failing is skipped quickly instead of costing every resolution run its full deadline.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/observability/metrics"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

// Settings configures one breaker.
type Settings struct {
	Name string
	// Failures is the number of consecutive failures that opens the breaker.
	Failures uint32
	// OpenTimeout is how long the breaker stays open before letting a probe through.
	OpenTimeout time.Duration
	Logger      *slog.Logger
	Metrics     *metrics.Recorder
}

type breaker struct {
	name    string
	cb      *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func newBreaker(s Settings) *breaker {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "circuit_breaker", "breaker", s.Name)
	failures := s.Failures
	if failures == 0 {
		failures = 1
	}

	s.Metrics.BreakerState(s.Name, stateToFloat(gobreaker.StateClosed))

	b := &breaker{name: s.Name, logger: logger, metrics: s.Metrics}
	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "from", from.String(), "to", to.String())
			s.Metrics.BreakerState(name, stateToFloat(to))
			s.Metrics.BreakerTransition(name, from.String(), to.String())
		},
		IsSuccessful: isSuccessful,
	})
	return b
}

// isSuccessful keeps answers from a healthy store (including "no such row") from tripping the breaker.
func isSuccessful(err error) bool {
	return err == nil || apperrors.IsNotFound(err) || apperrors.IsValidation(err) || apperrors.IsConflict(err)
}

func (b *breaker) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.metrics.BreakerCall(b.name, "rejected")
		return nil, apperrors.Transport(err, b.name+" circuit open")
	}
	if !isSuccessful(err) {
		b.metrics.BreakerCall(b.name, "failure")
		return nil, err
	}
	b.metrics.BreakerCall(b.name, "success")
	return result, err
}

// State returns the breaker's current state name.
func (b *breaker) State() string { return b.cb.State().String() }

func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// ProfileStore guards a ports.ProfileStore with a circuit breaker.
type ProfileStore struct {
	*breaker
	next ports.ProfileStore
}

var _ ports.ProfileStore = (*ProfileStore)(nil)

// NewProfileStore wraps next.
func NewProfileStore(next ports.ProfileStore, s Settings) *ProfileStore {
	if s.Name == "" {
		s.Name = "profiles"
	}
	return &ProfileStore{breaker: newBreaker(s), next: next}
}

// GetByID implements ports.ProfileStore.
func (p *ProfileStore) GetByID(ctx context.Context, id string) (*domainauth.ProfileRecord, error) {
	return castResult[*domainauth.ProfileRecord](p.execute(func() (any, error) {
		return p.next.GetByID(ctx, id)
	}))
}

// Upsert implements ports.ProfileStore.
func (p *ProfileStore) Upsert(ctx context.Context, rec domainauth.ProfileRecord) error {
	_, err := p.execute(func() (any, error) {
		return nil, p.next.Upsert(ctx, rec)
	})
	return err
}

// AllowListStore guards a ports.AllowListStore with a circuit breaker.
type AllowListStore struct {
	*breaker
	next ports.AllowListStore
}

var _ ports.AllowListStore = (*AllowListStore)(nil)

// NewAllowListStore wraps next.
func NewAllowListStore(next ports.AllowListStore, s Settings) *AllowListStore {
	if s.Name == "" {
		s.Name = "allowlist"
	}
	return &AllowListStore{breaker: newBreaker(s), next: next}
}

// LookupRole implements ports.AllowListStore.
func (a *AllowListStore) LookupRole(ctx context.Context, email string) (string, error) {
	return castResult[string](a.execute(func() (any, error) {
		return a.next.LookupRole(ctx, email)
	}))
}
