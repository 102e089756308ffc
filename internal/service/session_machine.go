package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/glosswerks/glosswerks-api/config"
	"github.com/glosswerks/glosswerks-api/internal/bounded"
	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	"github.com/glosswerks/glosswerks-api/internal/domain/session"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/observability/metrics"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

// MachineState is the auth session state of one client.
type MachineState string

const (
	StateAnonymous MachineState = "anonymous"
	StateResolving MachineState = "resolving"
	StateResolved  MachineState = "resolved"
)

// Run fates, used for logs and metrics.
const (
	fateCommitted = "committed"
	fateStale     = "stale"
	fateCoalesced = "coalesced"
	fateRejected  = "rejected"
	fateSignedOut = "signed_out"
)

var identityValidator = validator.New(validator.WithRequiredStructEnabled())

// ResolutionPipeline is the set of collaborators a machine drives per run.
type ResolutionPipeline struct {
	Aggregator *SignalAggregator  // Required
	Reconciler *Reconciler        // Required
	Provider   ports.AuthProvider // Optional: remote sign-out is skipped when nil
}

// SessionMachineOptions groups dependencies for SessionMachine.
type SessionMachineOptions struct {
	Pipeline ResolutionPipeline
	Config   config.ResolutionConfig
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
}

type resolutionRun struct {
	epoch    uint64
	identity domainauth.Identity
	event    domainauth.EventType
	started  time.Time
	done     chan struct{}
}

// SessionMachine turns provider lifecycle events into committed sessions for one client.
//
// Triggering events for an identity that already has a run in flight join that run.
// Events for a different identity start a new run; when runs finish, only the one whose
// identity is still the latest requested target (in the current epoch) commits.
// SignedOut and rejected identities advance the epoch, so no older run can commit afterwards.
type SessionMachine struct {
	pipeline ResolutionPipeline
	cfg      config.ResolutionConfig
	logger   *slog.Logger
	metrics  *metrics.Recorder
	cache    *session.Cache

	mu       sync.Mutex
	state    MachineState
	epoch    uint64
	target   *domainauth.Identity
	inflight map[string]*resolutionRun
	signOuts int

	lastActive atomic.Int64
	wg         sync.WaitGroup
}

// NewSessionMachine constructs a machine with an empty session cache.
func NewSessionMachine(opts SessionMachineOptions) *SessionMachine {
	if opts.Pipeline.Aggregator == nil || opts.Pipeline.Reconciler == nil {
		panic("SignalAggregator and Reconciler are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &SessionMachine{
		pipeline: opts.Pipeline,
		cfg:      opts.Config,
		logger:   logger.With("component", "session_machine"),
		metrics:  opts.Metrics,
		cache:    session.NewCache(),
		state:    StateAnonymous,
		inflight: make(map[string]*resolutionRun),
	}
	m.touch()
	return m
}

// Current returns the committed session, or nil when anonymous.
func (m *SessionMachine) Current() *domainauth.Session { return m.cache.Current() }

// Cache exposes the session cache for subscriptions. Only the machine commits to it.
func (m *SessionMachine) Cache() *session.Cache { return m.cache }

// State returns the machine's current state.
func (m *SessionMachine) State() MachineState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns the most recently requested identity, or nil when anonymous.
func (m *SessionMachine) Identity() *domainauth.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.target == nil {
		return nil
	}
	id := *m.target
	return &id
}

// LastActive is the time of the last dispatched event.
func (m *SessionMachine) LastActive() time.Time {
	return time.Unix(0, m.lastActive.Load())
}

// Busy reports whether any resolution run or provider sign-out is still in flight.
func (m *SessionMachine) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight) > 0 || m.signOuts > 0
}

// Dispatch applies a provider event. It never blocks on remote calls.
// The returned channel closes once the run serving the event has settled
// (immediately for SignedOut and rejected identities).
func (m *SessionMachine) Dispatch(ctx context.Context, ev domainauth.Event) <-chan struct{} {
	m.touch()

	if ev.Type == domainauth.EventSignedOut {
		m.signOut(ctx)
		return closedChan()
	}
	if !ev.Type.TriggersResolution() {
		m.logger.WarnContext(ctx, "ignoring unknown auth event", "event", ev.Type)
		return closedChan()
	}

	id, err := validateIdentity(ev.Identity)
	if err != nil {
		m.reject(ctx, ev.Type, err)
		return closedChan()
	}

	m.mu.Lock()
	m.target = &id
	m.state = StateResolving
	if r, ok := m.inflight[id.Key()]; ok && r.epoch == m.epoch {
		m.mu.Unlock()
		m.metrics.Run(string(ev.Type), fateCoalesced, 0)
		m.logger.DebugContext(ctx, "event joined in-flight run", "event", ev.Type, "subject_id", id.SubjectID)
		return r.done
	}
	r := &resolutionRun{
		epoch:    m.epoch,
		identity: id,
		event:    ev.Type,
		started:  time.Now(),
		done:     make(chan struct{}),
	}
	m.inflight[id.Key()] = r
	previous := m.cache.Current().For(id)
	m.wg.Add(1)
	m.mu.Unlock()

	go m.execute(context.WithoutCancel(ctx), r, previous)
	return r.done
}

// Restore seeds the cache with a session recovered from a snapshot and replays it
// as an InitialSession event. The seeded session is the run's previous session.
func (m *SessionMachine) Restore(ctx context.Context, snap domainauth.Session) <-chan struct{} {
	m.mu.Lock()
	m.cache.Commit(&snap)
	m.state = StateResolved
	m.mu.Unlock()

	return m.Dispatch(ctx, domainauth.Event{
		Type: domainauth.EventInitialSession,
		Identity: &domainauth.Identity{
			SubjectID:       snap.ID,
			Email:           snap.Email,
			DisplayNameHint: snap.Name,
		},
	})
}

// Wait blocks until every background run and sign-out has finished or ctx ends.
func (m *SessionMachine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *SessionMachine) execute(ctx context.Context, r *resolutionRun, previous *domainauth.Session) {
	defer m.wg.Done()
	defer close(r.done)

	signals := m.pipeline.Aggregator.Gather(ctx, r.identity)
	res := domainauth.Resolve(previous, signals)
	profile := profileFrom(signals)
	sess := &domainauth.Session{
		ID:    r.identity.SubjectID,
		Email: r.identity.Email,
		Name:  domainauth.DisplayName(profile, r.identity),
		Role:  res.Role,
	}
	m.metrics.Resolution(string(res.Source), string(res.Role), res.NonRegression)

	if !m.isCurrent(r) {
		m.finish(ctx, r, fateStale)
		return
	}

	m.pipeline.Reconciler.Reconcile(ctx, ReconcileInput{
		Identity:   r.identity,
		Resolution: res,
		Name:       sess.Name,
		Existing:   profile,
	})

	m.mu.Lock()
	m.dropInflight(r)
	if !m.isCurrentLocked(r) {
		m.mu.Unlock()
		m.metrics.Run(string(r.event), fateStale, time.Since(r.started))
		m.logger.DebugContext(ctx, "discarding stale resolution", "subject_id", r.identity.SubjectID, "event", r.event)
		return
	}
	changed := m.cache.Commit(sess)
	m.state = StateResolved
	m.mu.Unlock()

	m.metrics.Commit(changed)
	m.metrics.Run(string(r.event), fateCommitted, time.Since(r.started))
	m.logger.InfoContext(ctx, "session resolved",
		"subject_id", sess.ID,
		"role", sess.Role,
		"source", res.Source,
		"non_regression", res.NonRegression,
		"changed", changed,
		"event", r.event,
	)
}

func (m *SessionMachine) finish(ctx context.Context, r *resolutionRun, fate string) {
	m.mu.Lock()
	m.dropInflight(r)
	m.mu.Unlock()
	m.metrics.Run(string(r.event), fate, time.Since(r.started))
	m.logger.DebugContext(ctx, "discarding stale resolution", "subject_id", r.identity.SubjectID, "event", r.event)
}

func (m *SessionMachine) signOut(ctx context.Context) {
	m.mu.Lock()
	subject := ""
	if cur := m.cache.Current(); cur != nil {
		subject = cur.ID
	} else if m.target != nil {
		subject = m.target.SubjectID
	}
	m.epoch++
	m.target = nil
	m.state = StateAnonymous
	changed := m.cache.Clear()
	remote := m.pipeline.Provider != nil && subject != ""
	if remote {
		m.signOuts++
		m.wg.Add(1)
	}
	m.mu.Unlock()

	m.metrics.Commit(changed)
	m.metrics.Run(string(domainauth.EventSignedOut), fateSignedOut, 0)
	m.logger.InfoContext(ctx, "session cleared", "subject_id", subject)

	if !remote {
		return
	}
	go func(ctx context.Context) {
		defer m.wg.Done()
		providerSignOut(ctx, m.pipeline.Provider, m.cfg.SignOutTimeout, subject, m.metrics, m.logger)
		m.mu.Lock()
		m.signOuts--
		m.mu.Unlock()
	}(context.WithoutCancel(ctx))
}

// providerSignOut ends the subject's provider session within timeout. Failures are
// logged and counted; the local session is already gone.
func providerSignOut(ctx context.Context, provider ports.AuthProvider, timeout time.Duration, subject string, rec *metrics.Recorder, logger *slog.Logger) {
	err := bounded.Do(ctx, "provider sign-out", timeout, func(ctx context.Context) error {
		return provider.SignOut(ctx, subject)
	})
	rec.SignOut(err)
	if err != nil {
		logger.WarnContext(ctx, "provider sign-out failed", "subject_id", subject, "error", err)
	}
}

func (m *SessionMachine) reject(ctx context.Context, event domainauth.EventType, err error) {
	m.mu.Lock()
	m.epoch++
	m.target = nil
	m.state = StateAnonymous
	changed := m.cache.Clear()
	m.mu.Unlock()

	m.metrics.Commit(changed)
	m.metrics.Run(string(event), fateRejected, 0)
	m.logger.WarnContext(ctx, "rejected identity", "event", event, "error", err)
}

func (m *SessionMachine) isCurrent(r *resolutionRun) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isCurrentLocked(r)
}

func (m *SessionMachine) isCurrentLocked(r *resolutionRun) bool {
	return r.epoch == m.epoch && m.target != nil && m.target.Key() == r.identity.Key()
}

func (m *SessionMachine) dropInflight(r *resolutionRun) {
	if cur, ok := m.inflight[r.identity.Key()]; ok && cur == r {
		delete(m.inflight, r.identity.Key())
	}
}

func (m *SessionMachine) touch() { m.lastActive.Store(time.Now().UnixNano()) }

func validateIdentity(in *domainauth.Identity) (domainauth.Identity, error) {
	if in == nil {
		return domainauth.Identity{}, apperrors.Validation("identity is required")
	}
	id := in.Normalize()
	if err := identityValidator.Struct(id); err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid identity")
	}
	return id, nil
}

func profileFrom(signals []domainauth.RoleSignal) *domainauth.ProfileRecord {
	for _, s := range signals {
		if s.Source == domainauth.SourceProfile {
			return s.Profile
		}
	}
	return nil
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
