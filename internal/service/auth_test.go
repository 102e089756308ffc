package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	mocks "github.com/glosswerks/glosswerks-api/internal/mocks/auth"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

type authFixture struct {
	provider  *mocks.MockAuthProvider
	profiles  *mocks.MemoryProfileStore
	snapshots *mocks.MemorySnapshotStore
	registry  *SessionRegistry
	service   *AuthService
}

func newAuthFixture(t *testing.T, recs ...domainauth.ProfileRecord) *authFixture {
	t.Helper()
	f := &authFixture{
		provider:  mocks.NewMockAuthProvider(),
		profiles:  mocks.NewMemoryProfileStore(recs...),
		snapshots: mocks.NewMemorySnapshotStore(),
	}
	f.registry = NewSessionRegistry(SessionRegistryOptions{
		Machine:   machineOptions(testConfig(), SignalStores{Profiles: f.profiles}, f.provider),
		Snapshots: f.snapshots,
		Logger:    quietLogger(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.registry.Close(ctx)
	})
	f.service = NewAuthService(AuthServiceOptions{
		Provider: f.provider,
		Sessions: f.registry,
		Logger:   quietLogger(),
	})
	return f
}

func TestNewAuthService(t *testing.T) {
	f := newAuthFixture(t)

	assert.NotNil(t, f.service)
	assert.Equal(t, f.provider, f.service.provider)
	assert.Same(t, f.registry, f.service.sessions)
}

func TestNewAuthService_RequiresDependencies(t *testing.T) {
	f := newAuthFixture(t)

	assert.Panics(t, func() { NewAuthService(AuthServiceOptions{Sessions: f.registry}) })
	assert.Panics(t, func() { NewAuthService(AuthServiceOptions{Provider: f.provider}) })
}

func TestAuthService_BeginLogin_Success(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.service.BeginLogin(context.Background(), "http://localhost:8080/auth/callback")

	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", result.AuthURL)
	assert.Equal(t, "state-1", result.State)
	assert.Equal(t, "nonce-1", result.Nonce)
}

func TestAuthService_BeginLogin_EmptyRedirectURL(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.service.BeginLogin(context.Background(), "")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthService_BeginLogin_ProviderError(t *testing.T) {
	f := newAuthFixture(t)
	f.provider.BeginFunc = func(context.Context, ports.BeginInput) (string, string, string, error) {
		return "", "", "", errors.New("discovery failed")
	}

	result, err := f.service.BeginLogin(context.Background(), "http://localhost:8080/auth/callback")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "begin auth flow")
}

func TestAuthService_CompleteLogin_Success(t *testing.T) {
	f := newAuthFixture(t, domainauth.ProfileRecord{
		ID: "mock-user-1", Email: "mock.user@glosswerks.test", Role: "employee", Name: "Mock Detailer",
	})

	sess, err := f.service.CompleteLogin(context.Background(), CompleteLoginInput{
		ClientID: "client-a", Code: "code", State: "state-1", Nonce: "nonce-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "mock-user-1", sess.ID)
	assert.Equal(t, "Mock Detailer", sess.Name)
	assert.Equal(t, domainauth.RoleEmployee, sess.Role)

	current, err := f.service.CurrentSession(context.Background(), "client-a")
	require.NoError(t, err)
	assert.Equal(t, sess, current)
}

func TestAuthService_CompleteLogin_NewCustomerUsesProviderName(t *testing.T) {
	f := newAuthFixture(t)

	sess, err := f.service.CompleteLogin(context.Background(), CompleteLoginInput{
		ClientID: "client-a", Code: "code", State: "state-1", Nonce: "nonce-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "Mock User", sess.Name)
	assert.Equal(t, domainauth.RoleCustomer, sess.Role)
}

func TestAuthService_CompleteLogin_MissingFields(t *testing.T) {
	valid := CompleteLoginInput{ClientID: "client-a", Code: "code", State: "state", Nonce: "nonce"}

	tests := []struct {
		name  string
		edit  func(*CompleteLoginInput)
		field string
	}{
		{name: "client id", edit: func(in *CompleteLoginInput) { in.ClientID = "" }, field: "client_id"},
		{name: "code", edit: func(in *CompleteLoginInput) { in.Code = "" }, field: "code"},
		{name: "state", edit: func(in *CompleteLoginInput) { in.State = "" }, field: "state"},
		{name: "nonce", edit: func(in *CompleteLoginInput) { in.Nonce = "" }, field: "nonce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			in := valid
			tt.edit(&in)

			sess, err := f.service.CompleteLogin(context.Background(), in)

			require.Error(t, err)
			assert.Nil(t, sess)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}

func TestAuthService_CompleteLogin_ExchangeError(t *testing.T) {
	f := newAuthFixture(t)
	f.provider.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.Identity, error) {
		return domainauth.Identity{}, errors.New("invalid_grant")
	}

	sess, err := f.service.CompleteLogin(context.Background(), CompleteLoginInput{
		ClientID: "client-a", Code: "code", State: "state", Nonce: "nonce",
	})

	require.Error(t, err)
	assert.Nil(t, sess)
	assert.Contains(t, err.Error(), "exchange authorization code")
	assert.Zero(t, f.registry.Len())
}

func TestAuthService_CompleteLogin_RejectsBadIdentity(t *testing.T) {
	f := newAuthFixture(t)
	f.provider.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.Identity, error) {
		return domainauth.Identity{SubjectID: "sub-1", Email: "no-at-sign"}, nil
	}

	sess, err := f.service.CompleteLogin(context.Background(), CompleteLoginInput{
		ClientID: "client-a", Code: "code", State: "state", Nonce: "nonce",
	})

	require.Error(t, err)
	assert.Nil(t, sess)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthService_CompleteLogin_CallerDeadline(t *testing.T) {
	f := newAuthFixture(t)
	f.profiles.GetHook = hang(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := f.service.CompleteLogin(ctx, CompleteLoginInput{
		ClientID: "client-a", Code: "code", State: "state", Nonce: "nonce",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))

	m, ok := f.registry.Lookup("client-a")
	require.True(t, ok)
	require.NoError(t, m.Wait(context.Background()))
	assert.NotNil(t, m.Current(), "the run keeps going after the caller gives up")
}

func TestAuthService_Refresh(t *testing.T) {
	f := newAuthFixture(t, domainauth.ProfileRecord{
		ID: "mock-user-1", Email: "mock.user@glosswerks.test", Role: "employee", Name: "Mock",
	})

	_, err := f.service.Refresh(context.Background(), "client-a")
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = f.service.CompleteLogin(context.Background(), CompleteLoginInput{
		ClientID: "client-a", Code: "code", State: "state", Nonce: "nonce",
	})
	require.NoError(t, err)

	require.NoError(t, f.profiles.Upsert(context.Background(), domainauth.ProfileRecord{
		ID: "mock-user-1", Email: "mock.user@glosswerks.test", Role: "admin", Name: "Mock",
	}))

	sess, err := f.service.Refresh(context.Background(), "client-a")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, sess.Role)
}

func TestAuthService_CurrentSession(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.CurrentSession(context.Background(), "")
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = f.service.CurrentSession(context.Background(), "client-unknown")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthService_AnonymousReadsLeaveNoMachines(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < 5000; i++ {
		_, err := f.service.CurrentSession(context.Background(), fmt.Sprintf("anon-%d", i))
		require.True(t, apperrors.IsUnauthorized(err))
	}
	_, err := f.service.Refresh(context.Background(), "anon-refresh")
	assert.True(t, apperrors.IsUnauthorized(err))

	w, err := f.service.Watch(context.Background(), "anon-watch")
	require.NoError(t, err)
	assert.Nil(t, w.Current)
	assert.Equal(t, 1, f.registry.Len())
	w.Stop()

	assert.Zero(t, f.registry.Len())
}

func TestAuthService_CurrentSession_RestoresFromSnapshot(t *testing.T) {
	f := newAuthFixture(t, domainauth.ProfileRecord{
		ID: "sub-1", Email: "jo@glosswerks.test", Role: "employee", Name: "Jo",
	})
	require.NoError(t, f.snapshots.Save(context.Background(), "client-s", domainauth.Session{
		ID: "sub-1", Email: "jo@glosswerks.test", Name: "Jo", Role: domainauth.RoleEmployee,
	}))

	sess, err := f.service.CurrentSession(context.Background(), "client-s")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sess.ID)
	assert.Equal(t, 1, f.registry.Len())
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.CompleteLogin(context.Background(), CompleteLoginInput{
		ClientID: "client-a", Code: "code", State: "state", Nonce: "nonce",
	})
	require.NoError(t, err)

	f.service.Logout(context.Background(), "client-a")

	_, err = f.service.CurrentSession(context.Background(), "client-a")
	assert.True(t, apperrors.IsUnauthorized(err))

	m, ok := f.registry.Lookup("client-a")
	require.True(t, ok)
	require.NoError(t, m.Wait(context.Background()))
	assert.Equal(t, []string{"mock-user-1"}, f.provider.SignOuts())
}

func TestAuthService_Logout_EvictedClientSignsOutSnapshotSubject(t *testing.T) {
	f := newAuthFixture(t)
	require.NoError(t, f.snapshots.Save(context.Background(), "client-z", domainauth.Session{
		ID: "sub-1", Email: "jo@glosswerks.test", Role: domainauth.RoleCustomer,
	}))

	f.service.Logout(context.Background(), "client-z")
	f.service.Logout(context.Background(), "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.registry.Close(ctx))

	_, err := f.snapshots.Load(context.Background(), "client-z")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Zero(t, f.registry.Len())
	assert.Equal(t, []string{"sub-1"}, f.provider.SignOuts())
}

func TestAuthService_Watch(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Watch(context.Background(), "")
	assert.True(t, apperrors.IsUnauthorized(err))

	w, err := f.service.Watch(context.Background(), "client-a")
	require.NoError(t, err)
	defer w.Stop()
	assert.Nil(t, w.Current)

	sess, err := f.service.CompleteLogin(context.Background(), CompleteLoginInput{
		ClientID: "client-a", Code: "code", State: "state", Nonce: "nonce",
	})
	require.NoError(t, err)

	select {
	case got := <-w.Changes:
		assert.Equal(t, sess, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	w.Stop()
	_, open := <-w.Changes
	assert.False(t, open)
}
