package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"glosswerks"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"glosswerks"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// LogoutURL overrides the discovered end_session_endpoint.
	LogoutURL string `env:"LOGOUT_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	SubjectID string `env:"SUBJECT_ID" envDefault:"dev-user"`
	Email     string `env:"EMAIL"      envDefault:"dev@glosswerks.test"`
	Name      string `env:"NAME"       envDefault:"Dev User"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// AdminEmails always resolve to admin, regardless of stored profile roles.
	AdminEmails []string `env:"AUTH_ADMIN_EMAILS" envSeparator:","`

	// EmployeeEmails always resolve to employee unless also listed as admin.
	EmployeeEmails []string `env:"AUTH_EMPLOYEE_EMAILS" envSeparator:","`
}

// Sanitize lowercases override emails and drops blanks.
func (a *AuthConfig) Sanitize() {
	a.AdminEmails = normalizeEmails(a.AdminEmails)
	a.EmployeeEmails = normalizeEmails(a.EmployeeEmails)
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
}
