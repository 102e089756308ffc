package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider // Required
	Sessions *SessionRegistry   // Required
	Logger   *slog.Logger
}

// AuthService turns HTTP login/refresh/logout requests into provider events on the
// caller's session machine.
type AuthService struct {
	provider ports.AuthProvider
	sessions *SessionRegistry
	logger   *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Provider == nil {
		panic("AuthProvider is required")
	}
	if opts.Sessions == nil {
		panic("SessionRegistry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider: opts.Provider,
		sessions: opts.Sessions,
		logger:   logger.With("component", "auth_service"),
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, apperrors.Validation("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	ClientID string
	Code     string
	State    string
	Nonce    string
}

// CompleteLogin exchanges the code for an identity, dispatches SignedIn on the client's
// machine and waits for the resolution run to settle.
func (s *AuthService) CompleteLogin(ctx context.Context, in CompleteLoginInput) (*domainauth.Session, error) {
	switch {
	case in.ClientID == "":
		return nil, apperrors.ValidationField("client_id", "client id is required")
	case in.Code == "":
		return nil, apperrors.ValidationField("code", "authorization code is required")
	case in.State == "":
		return nil, apperrors.ValidationField("state", "state parameter is required")
	case in.Nonce == "":
		return nil, apperrors.ValidationField("nonce", "nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{Code: in.Code, State: in.State, Nonce: in.Nonce})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	m, release := s.sessions.Machine(ctx, in.ClientID)
	defer release()
	done := m.Dispatch(ctx, domainauth.Event{Type: domainauth.EventSignedIn, Identity: &identity})
	return s.settled(ctx, m, done)
}

// Refresh replays the client's current identity as a TokenRefreshed event.
func (s *AuthService) Refresh(ctx context.Context, clientID string) (*domainauth.Session, error) {
	m, release, ok := s.sessions.Existing(ctx, clientID)
	defer release()
	if !ok {
		return nil, apperrors.Unauthorized("no signed-in identity")
	}
	id := m.Identity()
	if id == nil {
		return nil, apperrors.Unauthorized("no signed-in identity")
	}
	done := m.Dispatch(ctx, domainauth.Event{Type: domainauth.EventTokenRefreshed, Identity: id})
	return s.settled(ctx, m, done)
}

// Logout clears the client's session immediately; the provider sign-out runs in the background.
// An evicted client is signed out through its snapshot.
func (s *AuthService) Logout(ctx context.Context, clientID string) {
	if clientID == "" {
		return
	}
	m, ok := s.sessions.Lookup(clientID)
	if !ok {
		s.sessions.Forget(ctx, clientID)
		return
	}
	m.Dispatch(ctx, domainauth.Event{Type: domainauth.EventSignedOut})
}

// CurrentSession returns the client's committed session.
func (s *AuthService) CurrentSession(ctx context.Context, clientID string) (*domainauth.Session, error) {
	if clientID == "" {
		return nil, apperrors.Unauthorized("no client")
	}
	m, release, ok := s.sessions.Existing(ctx, clientID)
	defer release()
	if !ok {
		return nil, apperrors.Unauthorized("not signed in")
	}
	if sess := m.Current(); sess != nil {
		return sess, nil
	}
	return nil, apperrors.Unauthorized("not signed in")
}

// SessionWatch is a live subscription to one client's committed sessions.
type SessionWatch struct {
	// Current is the session committed when the watch started, or nil.
	Current *domainauth.Session
	// Changes carries later commits. It closes when Stop is called.
	Changes <-chan *domainauth.Session
	Stop    func()
}

// Watch subscribes to the client's committed sessions. The subscription is taken before
// Current is read, so no commit between the two is lost. The machine stays pinned
// until Stop, so a login from another request reaches the watcher.
func (s *AuthService) Watch(ctx context.Context, clientID string) (*SessionWatch, error) {
	if clientID == "" {
		return nil, apperrors.Unauthorized("no client")
	}
	m, release := s.sessions.Machine(ctx, clientID)
	changes, stop := m.Cache().Watch()
	return &SessionWatch{
		Current: m.Current(),
		Changes: changes,
		Stop: func() {
			stop()
			release()
		},
	}, nil
}

func (s *AuthService) settled(ctx context.Context, m *SessionMachine, done <-chan struct{}) (*domainauth.Session, error) {
	select {
	case <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeTimeout, "waiting for session resolution")
		}
		return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeCanceled, "waiting for session resolution")
	}
	if sess := m.Current(); sess != nil {
		return sess, nil
	}
	return nil, apperrors.Unauthorized("identity was not accepted")
}
