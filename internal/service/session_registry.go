package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/glosswerks/glosswerks-api/internal/bounded"
	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

// SessionRegistryOptions groups dependencies for SessionRegistry.
type SessionRegistryOptions struct {
	Machine   SessionMachineOptions // Template for every client machine
	Snapshots ports.SnapshotStore   // Optional: sessions do not survive restarts when nil
	Logger    *slog.Logger
}

type clientEntry struct {
	machine *SessionMachine
	unsub   func()

	// pins counts callers holding the machine; pinned machines are never dropped.
	pins int
}

// SessionRegistry owns one SessionMachine per browser client.
// Committed sessions are mirrored to the snapshot store off the commit path;
// only the newest pending value per client is written.
type SessionRegistry struct {
	opts      SessionMachineOptions
	snapshots ports.SnapshotStore
	logger    *slog.Logger

	mu      sync.Mutex
	clients map[string]*clientEntry
	wg      sync.WaitGroup

	qmu     sync.Mutex
	pending map[string]*domainauth.Session
	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
	closed  sync.Once
}

// NewSessionRegistry constructs a registry and starts its snapshot writer.
func NewSessionRegistry(opts SessionRegistryOptions) *SessionRegistry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	machineOpts := opts.Machine
	if machineOpts.Logger == nil {
		machineOpts.Logger = logger
	}
	r := &SessionRegistry{
		opts:      machineOpts,
		snapshots: opts.Snapshots,
		logger:    logger.With("component", "session_registry"),
		clients:   make(map[string]*clientEntry),
		pending:   make(map[string]*domainauth.Session),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go r.writeLoop()
	return r
}

// Lookup returns the client's machine if it is live.
func (r *SessionRegistry) Lookup(clientID string) (*SessionMachine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.clients[clientID]
	if !ok {
		return nil, false
	}
	return e.machine, true
}

// Machine returns the client's machine pinned until release is called, creating
// it on first use. A new machine is seeded from the client's snapshot (if any) and
// replays it as an InitialSession. Only event paths should create machines.
func (r *SessionRegistry) Machine(ctx context.Context, clientID string) (*SessionMachine, func()) {
	if m, release, ok := r.pin(clientID); ok {
		return m, release
	}
	snap, found := r.loadSnapshot(ctx, clientID)
	if !found {
		return r.register(ctx, clientID, nil)
	}
	return r.register(ctx, clientID, &snap)
}

// Existing is Machine for read paths: a client with no live machine gets one only
// when it has a snapshot. Anonymous clients leave no trace in the registry.
func (r *SessionRegistry) Existing(ctx context.Context, clientID string) (*SessionMachine, func(), bool) {
	if m, release, ok := r.pin(clientID); ok {
		return m, release, true
	}
	snap, found := r.loadSnapshot(ctx, clientID)
	if !found {
		return nil, func() {}, false
	}
	m, release := r.register(ctx, clientID, &snap)
	return m, release, true
}

// Forget signs out a client that has no live machine: its snapshot is dropped and
// the snapshot's subject is signed out at the provider in the background.
func (r *SessionRegistry) Forget(ctx context.Context, clientID string) {
	snap, found := r.loadSnapshot(ctx, clientID)
	r.enqueue(clientID, nil)

	provider := r.opts.Pipeline.Provider
	if !found || snap.ID == "" || provider == nil {
		return
	}
	r.logger.InfoContext(ctx, "session cleared", "client_id", clientID, "subject_id", snap.ID)
	r.wg.Add(1)
	go func(ctx context.Context) {
		defer r.wg.Done()
		providerSignOut(ctx, provider, r.opts.Config.SignOutTimeout, snap.ID, r.opts.Metrics, r.logger)
	}(context.WithoutCancel(ctx))
}

func (r *SessionRegistry) pin(clientID string) (*SessionMachine, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.clients[clientID]
	if !ok {
		return nil, nil, false
	}
	e.pins++
	return e.machine, r.releaser(clientID, e), true
}

func (r *SessionRegistry) register(ctx context.Context, clientID string, snap *domainauth.Session) (*SessionMachine, func()) {
	r.mu.Lock()
	if e, ok := r.clients[clientID]; ok {
		e.pins++
		r.mu.Unlock()
		return e.machine, r.releaser(clientID, e)
	}
	m := NewSessionMachine(r.opts)
	unsub := m.Cache().Subscribe(func(s *domainauth.Session) { r.enqueue(clientID, s) })
	e := &clientEntry{machine: m, unsub: unsub, pins: 1}
	r.clients[clientID] = e
	n := len(r.clients)
	r.mu.Unlock()

	r.opts.Metrics.Machines(n)
	if snap != nil {
		m.Restore(ctx, *snap)
	}
	return m, r.releaser(clientID, e)
}

// releaser unpins e once. The last release drops a machine that holds no session
// and has nothing in flight.
func (r *SessionRegistry) releaser(clientID string, e *clientEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			e.pins--
			drop := e.pins == 0 && r.clients[clientID] == e &&
				e.machine.Current() == nil && !e.machine.Busy()
			if drop {
				delete(r.clients, clientID)
			}
			n := len(r.clients)
			r.mu.Unlock()

			if drop {
				e.unsub()
				e.machine.Cache().Close()
				r.opts.Metrics.Machines(n)
			}
		})
	}
}

// Len returns the number of live machines.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep evicts unpinned machines idle for longer than the configured client idle TTL
// and with nothing in flight. Their snapshots stay in the store.
func (r *SessionRegistry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.opts.Config.ClientIdleTTL)

	r.mu.Lock()
	var evicted []*clientEntry
	for id, e := range r.clients {
		if e.pins == 0 && e.machine.LastActive().Before(cutoff) && !e.machine.Busy() {
			evicted = append(evicted, e)
			delete(r.clients, id)
		}
	}
	n := len(r.clients)
	r.mu.Unlock()

	for _, e := range evicted {
		e.unsub()
		e.machine.Cache().Close()
	}
	r.opts.Metrics.Machines(n)
	if len(evicted) > 0 {
		r.logger.Info("evicted idle session machines", "count", len(evicted), "remaining", n)
	}
	return len(evicted)
}

// Close waits for in-flight runs and sign-outs, flushes pending snapshots and stops the writer.
func (r *SessionRegistry) Close(ctx context.Context) error {
	r.mu.Lock()
	machines := make([]*SessionMachine, 0, len(r.clients))
	for _, e := range r.clients {
		machines = append(machines, e.machine)
	}
	r.mu.Unlock()

	for _, m := range machines {
		if err := m.Wait(ctx); err != nil {
			return err
		}
	}
	signOuts := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(signOuts)
	}()
	select {
	case <-signOuts:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.closed.Do(func() { close(r.stop) })
	select {
	case <-r.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *SessionRegistry) loadSnapshot(ctx context.Context, clientID string) (domainauth.Session, bool) {
	if r.snapshots == nil {
		return domainauth.Session{}, false
	}
	snap, err := bounded.Call(ctx, "snapshot load", r.opts.Config.SnapshotTimeout, func(ctx context.Context) (domainauth.Session, error) {
		return r.snapshots.Load(ctx, clientID)
	})
	if err != nil {
		if !apperrors.IsNotFound(err) {
			r.logger.WarnContext(ctx, "snapshot load failed", "client_id", clientID, "error", err)
		}
		return domainauth.Session{}, false
	}
	return snap, true
}

// enqueue runs inside Cache.Commit and must not block.
func (r *SessionRegistry) enqueue(clientID string, s *domainauth.Session) {
	if r.snapshots == nil {
		return
	}
	r.qmu.Lock()
	r.pending[clientID] = s
	r.qmu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *SessionRegistry) writeLoop() {
	defer close(r.stopped)
	for {
		select {
		case <-r.wake:
			r.flush()
		case <-r.stop:
			r.flush()
			return
		}
	}
}

func (r *SessionRegistry) flush() {
	r.qmu.Lock()
	batch := r.pending
	r.pending = make(map[string]*domainauth.Session)
	r.qmu.Unlock()

	ctx := context.Background()
	for clientID, s := range batch {
		var err error
		if s == nil {
			err = bounded.Do(ctx, "snapshot delete", r.opts.Config.SnapshotTimeout, func(ctx context.Context) error {
				return r.snapshots.Delete(ctx, clientID)
			})
		} else {
			snap := *s
			err = bounded.Do(ctx, "snapshot save", r.opts.Config.SnapshotTimeout, func(ctx context.Context) error {
				return r.snapshots.Save(ctx, clientID, snap)
			})
		}
		if err != nil {
			r.logger.Warn("snapshot write failed", "client_id", clientID, "error", err)
		}
	}
}
