package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/glosswerks/glosswerks-api/config"
	"github.com/glosswerks/glosswerks-api/internal/bounded"
	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	"github.com/glosswerks/glosswerks-api/internal/observability/metrics"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

// WriteOutcome describes what the reconciler did with the profile store.
type WriteOutcome string

const (
	// WriteSkipped means writing was unsafe: the remote state is unknown and nothing privileged was resolved.
	WriteSkipped WriteOutcome = "skipped"
	// WriteUnchanged means the stored profile already matched.
	WriteUnchanged WriteOutcome = "unchanged"
	WriteApplied   WriteOutcome = "applied"
	WriteFailed    WriteOutcome = "failed"
)

// ReconcileInput carries one resolution run's result.
type ReconcileInput struct {
	Identity   domainauth.Identity
	Resolution domainauth.Resolution
	Name       string
	// Existing is the profile row read during the run, if any.
	Existing *domainauth.ProfileRecord
}

// ReconcilerOptions groups dependencies for Reconciler.
type ReconcilerOptions struct {
	Profiles ports.ProfileStore // Required
	Config   config.ResolutionConfig
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
}

// Reconciler writes resolved roles back to the profile store when that is safe.
type Reconciler struct {
	profiles ports.ProfileStore
	cfg      config.ResolutionConfig
	logger   *slog.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
}

// NewReconciler constructs a Reconciler.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	if opts.Profiles == nil {
		panic("ProfileStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		profiles: opts.Profiles,
		cfg:      opts.Config,
		logger:   logger.With("component", "reconciler"),
		metrics:  opts.Metrics,
		now:      time.Now,
	}
}

// SafeToWrite reports whether persisting res could not clobber an unknown remote state.
// A role kept only by non-regression is a guess and is never written.
func SafeToWrite(res domainauth.Resolution) bool {
	if res.NonRegression {
		return false
	}
	return res.OverrideApplied || res.ProfileExists || res.Role.IsPrivileged()
}

// Reconcile upserts the profile row when safe. Failures are logged and reported
// as WriteFailed; they never abort the caller.
func (r *Reconciler) Reconcile(ctx context.Context, in ReconcileInput) WriteOutcome {
	outcome, err := r.reconcile(ctx, in)
	r.metrics.Write(string(outcome), err)

	log := r.logger.With("subject_id", in.Identity.SubjectID, "role", in.Resolution.Role, "outcome", outcome)
	switch outcome {
	case WriteFailed:
		log.WarnContext(ctx, "profile write failed", "error", err)
	case WriteSkipped:
		log.InfoContext(ctx, "profile write skipped: remote state unknown", "source", in.Resolution.Source)
	default:
		log.DebugContext(ctx, "profile reconciled")
	}
	return outcome
}

func (r *Reconciler) reconcile(ctx context.Context, in ReconcileInput) (WriteOutcome, error) {
	if !SafeToWrite(in.Resolution) {
		return WriteSkipped, nil
	}

	rec := domainauth.ProfileRecord{
		ID:        in.Identity.SubjectID,
		Email:     in.Identity.Email,
		Role:      string(in.Resolution.Role),
		Name:      in.Name,
		UpdatedAt: r.now().UTC(),
	}
	if e := in.Existing; e != nil && e.Role == rec.Role && e.Name == rec.Name && e.Email == rec.Email {
		return WriteUnchanged, nil
	}

	err := bounded.Do(ctx, "profile write", r.cfg.ProfileWriteTimeout, func(ctx context.Context) error {
		return r.profiles.Upsert(ctx, rec)
	})
	if err != nil {
		return WriteFailed, err
	}
	return WriteApplied, nil
}
