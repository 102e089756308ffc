// Package oidc provides the OIDC/OAuth identity provider adapter.
package oidc

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

var _ ports.AuthProvider = (*Provider)(nil)

// Provider implements the AuthProvider interface using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	logoutURL  string
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	// LogoutURL overrides the discovered end_session_endpoint.
	LogoutURL  string
	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout

	// skipSignatureCheck lets tests issue unsigned id tokens.
	skipSignatureCheck bool
}

// DiscoveryDocument represents the parts of the OIDC discovery document we read.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
	EndSessionEndpoint    string `json:"end_session_endpoint,omitempty"`
}

// NewProvider creates a new OIDC provider. It fetches the discovery document once.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx := gooidc.ClientContext(context.Background(), httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")

	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	var doc DiscoveryDocument
	if err := op.Claims(&doc); err != nil {
		return nil, fmt.Errorf("oidc discovery claims: %w", err)
	}
	logoutURL := config.LogoutURL
	if logoutURL == "" {
		logoutURL = doc.EndSessionEndpoint
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       strings.Fields(config.Scope),
			Endpoint:     op.Endpoint(),
		},
		logoutURL:    logoutURL,
		httpClient:   httpClient,
		oidcProvider: op,
		verifier: op.Verifier(&gooidc.Config{
			ClientID:                   config.ClientID,
			InsecureSkipSignatureCheck: config.skipSignatureCheck,
		}),
	}, nil
}

// Begin builds the provider authorization URL with a fresh state and nonce.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state := rand.Text()
	nonce := rand.Text()

	// redirect_uri stays the configured RedirectURL; in.RedirectURL is the post-login path.
	authURL := p.config.AuthCodeURL(state,
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// Exchange trades the code for tokens, verifies the id token and nonce, and returns the identity.
// Missing email or name claims are filled from the UserInfo endpoint.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if in.Code == "" {
		return domainauth.Identity{}, errors.New("authorization code is required")
	}
	if in.State == "" {
		return domainauth.Identity{}, errors.New("state is required")
	}
	if in.Nonce == "" {
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	c, err := p.verifyIDToken(ctx, token, in.Nonce)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("verify id_token: %w", err)
	}

	if c.Email == "" || c.displayName() == "" {
		ui, uiErr := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token))
		if uiErr != nil {
			if c.Email == "" {
				return domainauth.Identity{}, fmt.Errorf("get user info: %w", uiErr)
			}
		} else {
			var uc claims
			if err := ui.Claims(&uc); err != nil {
				return domainauth.Identity{}, fmt.Errorf("decode user info: %w", err)
			}
			c.fillFrom(uc)
		}
	}

	return domainauth.Identity{
		SubjectID:       c.Subject,
		Email:           c.Email,
		DisplayNameHint: c.displayName(),
	}.Normalize(), nil
}

// SignOut asks the provider to end the subject's session at its end-session endpoint.
// Providers without one are a no-op.
func (p *Provider) SignOut(ctx context.Context, subjectID string) error {
	if p.logoutURL == "" {
		return nil
	}
	u, err := url.Parse(p.logoutURL)
	if err != nil {
		return fmt.Errorf("parse logout url: %w", err)
	}
	q := u.Query()
	q.Set("client_id", p.config.ClientID)
	q.Set("logout_hint", subjectID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("end session: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// claims is the union of id token and UserInfo claims we map into an Identity.
type claims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	PreferredUsername string `json:"preferred_username"`
	Nonce             string `json:"nonce"`
}

func (c claims) displayName() string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	if n := strings.TrimSpace(c.GivenName + " " + c.FamilyName); n != "" {
		return n
	}
	return strings.TrimSpace(c.PreferredUsername)
}

// fillFrom copies fields that are still empty. The subject is never replaced.
func (c *claims) fillFrom(o claims) {
	if c.Email == "" {
		c.Email = o.Email
	}
	if c.Name == "" {
		c.Name = o.Name
	}
	if c.GivenName == "" {
		c.GivenName = o.GivenName
	}
	if c.FamilyName == "" {
		c.FamilyName = o.FamilyName
	}
	if c.PreferredUsername == "" {
		c.PreferredUsername = o.PreferredUsername
	}
}

func (p *Provider) verifyIDToken(ctx context.Context, tok *oauth2.Token, expectedNonce string) (claims, error) {
	var c claims
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return c, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return c, err
	}
	if err := idTok.Claims(&c); err != nil {
		return c, fmt.Errorf("parse id_token claims: %w", err)
	}
	if c.Nonce != expectedNonce {
		return c, errors.New("invalid nonce")
	}
	c.Subject = idTok.Subject
	return c, nil
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
