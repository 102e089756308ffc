package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/service"
)

// fakeAuthService is a test double for AuthServiceInterface.
type fakeAuthService struct {
	beginLoginFunc    func(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	completeLoginFunc func(ctx context.Context, in service.CompleteLoginInput) (*domainauth.Session, error)
	refreshFunc       func(ctx context.Context, clientID string) (*domainauth.Session, error)
	currentFunc       func(ctx context.Context, clientID string) (*domainauth.Session, error)
	watchFunc         func(ctx context.Context, clientID string) (*service.SessionWatch, error)

	mu          sync.Mutex
	loggedOut   []string
	redirects   []string
	completions []service.CompleteLoginInput
}

func (f *fakeAuthService) BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error) {
	f.mu.Lock()
	f.redirects = append(f.redirects, redirectURL)
	f.mu.Unlock()
	if f.beginLoginFunc != nil {
		return f.beginLoginFunc(ctx, redirectURL)
	}
	return &service.BeginLoginResult{
		AuthURL: "https://idp.glosswerks.test/authorize?state=test-state",
		State:   "test-state",
		Nonce:   "test-nonce",
	}, nil
}

func (f *fakeAuthService) CompleteLogin(ctx context.Context, in service.CompleteLoginInput) (*domainauth.Session, error) {
	f.mu.Lock()
	f.completions = append(f.completions, in)
	f.mu.Unlock()
	if f.completeLoginFunc != nil {
		return f.completeLoginFunc(ctx, in)
	}
	return customerSession(), nil
}

func (f *fakeAuthService) Refresh(ctx context.Context, clientID string) (*domainauth.Session, error) {
	if f.refreshFunc != nil {
		return f.refreshFunc(ctx, clientID)
	}
	return nil, apperrors.Unauthorized("no signed-in identity")
}

func (f *fakeAuthService) Logout(_ context.Context, clientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = append(f.loggedOut, clientID)
}

func (f *fakeAuthService) CurrentSession(ctx context.Context, clientID string) (*domainauth.Session, error) {
	if f.currentFunc != nil {
		return f.currentFunc(ctx, clientID)
	}
	return nil, apperrors.Unauthorized("not signed in")
}

func (f *fakeAuthService) Watch(ctx context.Context, clientID string) (*service.SessionWatch, error) {
	if f.watchFunc != nil {
		return f.watchFunc(ctx, clientID)
	}
	return nil, apperrors.Unauthorized("no client")
}

func (f *fakeAuthService) LoggedOut() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loggedOut...)
}

func (f *fakeAuthService) Completions() []service.CompleteLoginInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.CompleteLoginInput(nil), f.completions...)
}

func (f *fakeAuthService) Redirects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.redirects...)
}

// sessionsFor answers CurrentSession from a fixed client → session map.
func sessionsFor(m map[string]*domainauth.Session) func(context.Context, string) (*domainauth.Session, error) {
	return func(_ context.Context, clientID string) (*domainauth.Session, error) {
		if s, ok := m[clientID]; ok {
			return s, nil
		}
		return nil, apperrors.Unauthorized("not signed in")
	}
}

func customerSession() *domainauth.Session {
	return &domainauth.Session{ID: "sub-1", Email: "jo@glosswerks.test", Name: "Jo", Role: domainauth.RoleCustomer}
}

func withClient(r *http.Request, clientID string) *http.Request {
	return r.WithContext(withClientID(r.Context(), clientID))
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
