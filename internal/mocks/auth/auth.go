// Package auth contains simple hand-written test doubles for the auth and store ports.
// They are thread-safe and suitable for unit tests without codegen.
package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider   = (*MockAuthProvider)(nil)
	_ ports.ProfileStore   = (*MemoryProfileStore)(nil)
	_ ports.AllowListAdmin = (*MemoryAllowList)(nil)
	_ ports.SnapshotStore  = (*MemorySnapshotStore)(nil)
)

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)
	SignOutFunc  func(ctx context.Context, subjectID string) error

	AuthURL     string
	DefaultUser domainauth.Identity

	mu        sync.Mutex
	callCount int
	signOuts  []string
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultUser: domainauth.Identity{
			SubjectID:       "mock-user-1",
			Email:           "mock.user@glosswerks.test",
			DisplayNameHint: "Mock User",
		},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	return authURL, fmt.Sprintf("state-%d", n), fmt.Sprintf("nonce-%d", n), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	return m.DefaultUser, nil
}

func (m *MockAuthProvider) SignOut(ctx context.Context, subjectID string) error {
	m.mu.Lock()
	m.signOuts = append(m.signOuts, subjectID)
	m.mu.Unlock()
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, subjectID)
	}
	return nil
}

// SignOuts returns the subjects passed to SignOut so far.
func (m *MockAuthProvider) SignOuts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.signOuts...)
}

// MemoryProfileStore is an in-memory profile store.
// GetHook and UpsertHook, when set, run before the store is touched and may block or fail.
type MemoryProfileStore struct {
	GetHook    func(ctx context.Context, id string) error
	UpsertHook func(ctx context.Context, rec domainauth.ProfileRecord) error

	mu       sync.Mutex
	profiles map[string]domainauth.ProfileRecord
	upserts  []domainauth.ProfileRecord
}

// NewMemoryProfileStore creates a profile store seeded with recs.
func NewMemoryProfileStore(recs ...domainauth.ProfileRecord) *MemoryProfileStore {
	s := &MemoryProfileStore{profiles: make(map[string]domainauth.ProfileRecord)}
	for _, r := range recs {
		s.profiles[r.ID] = r
	}
	return s
}

func (s *MemoryProfileStore) GetByID(ctx context.Context, id string) (*domainauth.ProfileRecord, error) {
	if s.GetHook != nil {
		if err := s.GetHook(ctx, id); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.profiles[id]
	if !ok {
		return nil, apperrors.NotFoundf("profile %s not found", id)
	}
	return &rec, nil
}

func (s *MemoryProfileStore) Upsert(ctx context.Context, rec domainauth.ProfileRecord) error {
	if s.UpsertHook != nil {
		if err := s.UpsertHook(ctx, rec); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[rec.ID] = rec
	s.upserts = append(s.upserts, rec)
	return nil
}

// Upserts returns every record written so far.
func (s *MemoryProfileStore) Upserts() []domainauth.ProfileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domainauth.ProfileRecord(nil), s.upserts...)
}

// Get returns the stored record without hooks.
func (s *MemoryProfileStore) Get(id string) (domainauth.ProfileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.profiles[id]
	return rec, ok
}

// MemoryAllowList is an in-memory allow-list keyed by lowercased email.
type MemoryAllowList struct {
	LookupHook func(ctx context.Context, email string) error

	mu      sync.Mutex
	entries map[string]domainauth.AllowListEntry
}

// NewMemoryAllowList creates an allow-list from email→role pairs.
func NewMemoryAllowList(roles map[string]domainauth.Role) *MemoryAllowList {
	a := &MemoryAllowList{entries: make(map[string]domainauth.AllowListEntry)}
	for email, role := range roles {
		email = domainauth.NormalizeEmail(email)
		a.entries[email] = domainauth.AllowListEntry{Email: email, Role: string(role), CreatedAt: time.Now().UTC()}
	}
	return a
}

func (a *MemoryAllowList) LookupRole(ctx context.Context, email string) (string, error) {
	if a.LookupHook != nil {
		if err := a.LookupHook(ctx, email); err != nil {
			return "", err
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[domainauth.NormalizeEmail(email)]
	if !ok {
		return "", apperrors.NotFound("email is not pre-authorized")
	}
	return e.Role, nil
}

func (a *MemoryAllowList) Add(_ context.Context, email string, role domainauth.Role) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	email = domainauth.NormalizeEmail(email)
	a.entries[email] = domainauth.AllowListEntry{Email: email, Role: string(role), CreatedAt: time.Now().UTC()}
	return nil
}

func (a *MemoryAllowList) Remove(_ context.Context, email string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	email = domainauth.NormalizeEmail(email)
	_, ok := a.entries[email]
	delete(a.entries, email)
	return ok, nil
}

func (a *MemoryAllowList) List(_ context.Context) ([]domainauth.AllowListEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domainauth.AllowListEntry, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// MemorySnapshotStore is an in-memory snapshot store.
type MemorySnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]domainauth.Session
}

// NewMemorySnapshotStore creates an empty snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snaps: make(map[string]domainauth.Session)}
}

func (s *MemorySnapshotStore) Save(_ context.Context, clientID string, sess domainauth.Session) error {
	if clientID == "" {
		return apperrors.Validation("client id cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[clientID] = sess
	return nil
}

func (s *MemorySnapshotStore) Load(_ context.Context, clientID string) (domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.snaps[clientID]
	if !ok {
		return domainauth.Session{}, apperrors.NotFound("snapshot not found")
	}
	return sess, nil
}

func (s *MemorySnapshotStore) Delete(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, clientID)
	return nil
}
