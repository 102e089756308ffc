// Package devauth provides a config-driven AuthProvider for local development.
package devauth

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/url"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

var _ ports.AuthProvider = (*Provider)(nil)

// Config holds the identity every dev login signs in as.
type Config struct {
	SubjectID string
	Email     string
	Name      string
	Logger    *slog.Logger
}

// Provider implements ports.AuthProvider for local development.
// It short-circuits the OAuth flow by redirecting back to our own callback
// with locally generated state and nonce. Exchange ignores the code and
// returns the configured identity; its role still goes through resolution.
type Provider struct {
	identity domainauth.Identity
	logger   *slog.Logger
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.SubjectID == "" {
		return nil, errors.New("dev auth: SubjectID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		identity: domainauth.Identity{
			SubjectID:       cfg.SubjectID,
			Email:           cfg.Email,
			DisplayNameHint: cfg.Name,
		}.Normalize(),
		logger: logger.With("component", "devauth"),
	}, nil
}

// Begin returns a local callback URL with fresh state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state := rand.Text()
	nonce := rand.Text()

	// The standard handler expects GET /auth/callback?code=...&state=...
	q := url.Values{}
	q.Set("code", "dev")
	q.Set("state", state)
	return "/auth/callback?" + q.Encode(), state, nonce, nil
}

// Exchange returns the dev identity. State and nonce are checked by the callback handler.
func (p *Provider) Exchange(_ context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if in.Code == "" {
		return domainauth.Identity{}, errors.New("authorization code is required")
	}
	return p.identity, nil
}

// SignOut has nothing to end remotely.
func (p *Provider) SignOut(ctx context.Context, subjectID string) error {
	p.logger.DebugContext(ctx, "dev sign-out", "subject_id", subjectID)
	return nil
}
