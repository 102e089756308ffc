package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/glosswerks/glosswerks-api/config"
	"github.com/glosswerks/glosswerks-api/internal/bounded"
	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/observability/metrics"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

// SignalStores groups the role sources read during a resolution run.
type SignalStores struct {
	Profiles  ports.ProfileStore   // Required
	AllowList ports.AllowListStore // Optional: absent when nil
	Overrides ports.OverrideSource // Optional: absent when nil
}

// SignalAggregatorOptions groups dependencies for SignalAggregator.
type SignalAggregatorOptions struct {
	Stores  SignalStores
	Config  config.ResolutionConfig
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// SignalAggregator reads every role signal for an identity concurrently.
// Each read is bounded on its own and a failure only makes that signal absent.
type SignalAggregator struct {
	stores  SignalStores
	cfg     config.ResolutionConfig
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// NewSignalAggregator constructs a SignalAggregator.
func NewSignalAggregator(opts SignalAggregatorOptions) *SignalAggregator {
	if opts.Stores.Profiles == nil {
		panic("ProfileStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalAggregator{
		stores:  opts.Stores,
		cfg:     opts.Config,
		logger:  logger.With("component", "signal_aggregator"),
		metrics: opts.Metrics,
	}
}

// Gather returns the static, allow-list and profile signals, in that order.
// It waits for all three to settle and never returns an error.
func (a *SignalAggregator) Gather(ctx context.Context, id domainauth.Identity) []domainauth.RoleSignal {
	signals := make([]domainauth.RoleSignal, 3)
	signals[0] = a.staticSignal(id)

	var g errgroup.Group
	g.Go(func() error {
		signals[1] = a.allowListSignal(ctx, id)
		return nil
	})
	g.Go(func() error {
		signals[2] = a.profileSignal(ctx, id)
		return nil
	})
	_ = g.Wait()

	return signals
}

func (a *SignalAggregator) staticSignal(id domainauth.Identity) domainauth.RoleSignal {
	sig := domainauth.RoleSignal{Source: domainauth.SourceStatic, Outcome: domainauth.OutcomeNotFound}
	if a.stores.Overrides != nil {
		if role, ok := a.stores.Overrides.RoleFor(id.Email); ok {
			sig.Role = role
			sig.Outcome = domainauth.OutcomeFound
		}
	}
	a.metrics.Signal(string(sig.Source), string(sig.Outcome), 0, nil)
	return sig
}

func (a *SignalAggregator) allowListSignal(ctx context.Context, id domainauth.Identity) domainauth.RoleSignal {
	sig := domainauth.RoleSignal{Source: domainauth.SourceAllowList, Outcome: domainauth.OutcomeNotFound}
	if a.stores.AllowList == nil {
		return sig
	}

	start := time.Now()
	raw, err := bounded.Call(ctx, "allowlist read", a.cfg.AllowListReadTimeout, func(ctx context.Context) (string, error) {
		return a.stores.AllowList.LookupRole(ctx, id.Email)
	})
	elapsed := time.Since(start)

	if err != nil {
		sig.Outcome = outcomeFor(err)
	} else if role, ok := domainauth.ParseRole(raw); ok {
		sig.Role = role
		sig.Outcome = domainauth.OutcomeFound
	} else {
		sig.Outcome = domainauth.OutcomeUnknownRole
	}

	a.record(ctx, sig, id, elapsed, err)
	return sig
}

func (a *SignalAggregator) profileSignal(ctx context.Context, id domainauth.Identity) domainauth.RoleSignal {
	sig := domainauth.RoleSignal{Source: domainauth.SourceProfile}

	start := time.Now()
	rec, err := bounded.Call(ctx, "profile read", a.cfg.ProfileReadTimeout, func(ctx context.Context) (*domainauth.ProfileRecord, error) {
		return a.stores.Profiles.GetByID(ctx, id.SubjectID)
	})
	elapsed := time.Since(start)

	switch {
	case err != nil:
		sig.Outcome = outcomeFor(err)
	case rec == nil:
		sig.Outcome = domainauth.OutcomeNotFound
	default:
		sig.Profile = rec
		if role, ok := rec.KnownRole(); ok {
			sig.Role = role
			sig.Outcome = domainauth.OutcomeFound
		} else {
			sig.Outcome = domainauth.OutcomeUnknownRole
		}
	}

	a.record(ctx, sig, id, elapsed, err)
	return sig
}

func (a *SignalAggregator) record(ctx context.Context, sig domainauth.RoleSignal, id domainauth.Identity, d time.Duration, err error) {
	a.metrics.Signal(string(sig.Source), string(sig.Outcome), d, err)

	switch sig.Outcome {
	case domainauth.OutcomeFound, domainauth.OutcomeNotFound:
		a.logger.DebugContext(ctx, "role signal settled",
			"source", sig.Source, "outcome", sig.Outcome, "subject_id", id.SubjectID, "duration", d)
	default:
		a.logger.WarnContext(ctx, "role signal absent",
			"source", sig.Source, "outcome", sig.Outcome, "subject_id", id.SubjectID,
			"duration", d, "error", err)
	}
}

func outcomeFor(err error) domainauth.SignalOutcome {
	switch {
	case apperrors.IsNotFound(err):
		return domainauth.OutcomeNotFound
	case apperrors.IsTimeout(err):
		return domainauth.OutcomeTimeout
	default:
		return domainauth.OutcomeUnavailable
	}
}
