// Package ports defines interfaces (hexagonal ports) for role resolution and sign-in.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.
package ports

import (
	"context"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// AuthProvider is the external identity provider collaborator.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)

	// SignOut ends the subject's session at the provider.
	SignOut(ctx context.Context, subjectID string) error
}

// ProfileStore reads and upserts durable profile rows keyed by subject id.
// GetByID returns a NotFound AppError when no row exists yet.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*domainauth.ProfileRecord, error)
	Upsert(ctx context.Context, rec domainauth.ProfileRecord) error
}

// AllowListStore looks up pre-authorized roles by email.
// LookupRole returns a NotFound AppError when the email has no entry.
type AllowListStore interface {
	LookupRole(ctx context.Context, email string) (string, error)
}

// AllowListAdmin manages allow-list entries from operator tooling.
type AllowListAdmin interface {
	AllowListStore
	Add(ctx context.Context, email string, role domainauth.Role) error
	Remove(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]domainauth.AllowListEntry, error)
}

// OverrideSource is the synchronous static override lookup.
type OverrideSource interface {
	RoleFor(email string) (domainauth.Role, bool)
}

// SnapshotStore keeps the last committed session per client across restarts.
// Load returns a NotFound AppError when there is no snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, clientID string, sess domainauth.Session) error
	Load(ctx context.Context, clientID string) (domainauth.Session, error)
	Delete(ctx context.Context, clientID string) error
}
