package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glosswerks/glosswerks-api/config"
	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	"github.com/glosswerks/glosswerks-api/internal/observability/metrics"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

const testDeadline = 60 * time.Millisecond

func testConfig() config.ResolutionConfig {
	cfg := config.DefaultResolutionConfig()
	cfg.ProfileReadTimeout = testDeadline
	cfg.AllowListReadTimeout = testDeadline
	cfg.ProfileWriteTimeout = testDeadline
	cfg.SignOutTimeout = testDeadline
	cfg.SnapshotTimeout = testDeadline
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecorder() *metrics.Recorder {
	return metrics.NewRecorder(prometheus.NewRegistry())
}

// patientConfig gives remote calls enough room for tests that order runs by hand.
func patientConfig() config.ResolutionConfig {
	cfg := testConfig()
	cfg.ProfileReadTimeout = 5 * time.Second
	cfg.AllowListReadTimeout = 5 * time.Second
	return cfg
}

func machineOptions(cfg config.ResolutionConfig, stores SignalStores, provider ports.AuthProvider) SessionMachineOptions {
	rec := testRecorder()
	logger := quietLogger()
	return SessionMachineOptions{
		Pipeline: ResolutionPipeline{
			Aggregator: NewSignalAggregator(SignalAggregatorOptions{Stores: stores, Config: cfg, Logger: logger, Metrics: rec}),
			Reconciler: NewReconciler(ReconcilerOptions{Profiles: stores.Profiles, Config: cfg, Logger: logger, Metrics: rec}),
			Provider:   provider,
		},
		Config:  cfg,
		Logger:  logger,
		Metrics: rec,
	}
}

func newTestMachine(t *testing.T, cfg config.ResolutionConfig, stores SignalStores, provider ports.AuthProvider) *SessionMachine {
	t.Helper()
	m := NewSessionMachine(machineOptions(cfg, stores, provider))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Wait(ctx)
	})
	return m
}

func await(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("resolution run did not settle")
	}
}

func identity(subject, email string) *domainauth.Identity {
	return &domainauth.Identity{SubjectID: subject, Email: email}
}

func signedIn(id *domainauth.Identity) domainauth.Event {
	return domainauth.Event{Type: domainauth.EventSignedIn, Identity: id}
}

func refreshed(id *domainauth.Identity) domainauth.Event {
	return domainauth.Event{Type: domainauth.EventTokenRefreshed, Identity: id}
}

// sessionLog records every committed change seen by a cache subscriber.
type sessionLog struct {
	mu   sync.Mutex
	seen []*domainauth.Session
}

func (l *sessionLog) record(s *domainauth.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, s)
}

func (l *sessionLog) all() []*domainauth.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*domainauth.Session(nil), l.seen...)
}

// gates holds one release channel per subject so tests can order concurrent runs.
type gates struct {
	mu sync.Mutex
	ch map[string]chan struct{}
}

func newGates(subjects ...string) *gates {
	g := &gates{ch: make(map[string]chan struct{})}
	for _, s := range subjects {
		g.ch[s] = make(chan struct{})
	}
	return g
}

// wait blocks while subject is gated.
func (g *gates) wait(ctx context.Context, subject string) error {
	g.mu.Lock()
	ch, ok := g.ch[subject]
	g.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gates) open(subject string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.ch[subject]; ok {
		close(ch)
		delete(g.ch, subject)
	}
}

// overrideMap is a static role override source.
type overrideMap map[string]domainauth.Role

func (o overrideMap) RoleFor(email string) (domainauth.Role, bool) {
	r, ok := o[domainauth.NormalizeEmail(email)]
	return r, ok
}

// hang blocks until the test ends, ignoring ctx, like a remote call that never answers.
func hang(t *testing.T) func(context.Context, string) error {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	return func(context.Context, string) error {
		<-release
		return nil
	}
}
