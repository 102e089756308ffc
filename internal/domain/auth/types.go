// Package auth contains domain-level types for identities, roles and sessions.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"strings"
	"time"
)

// Role represents a user's authorization role.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
	// RoleGuest is the unauthenticated placeholder; resolution never produces it.
	RoleGuest Role = "guest"
)

var roleRank = map[Role]int{
	RoleGuest:    0,
	RoleCustomer: 1,
	RoleEmployee: 2,
	RoleAdmin:    3,
	RoleOwner:    4,
}

// ParseRole normalizes s into a known resolvable role.
// Unknown values (and guest) report ok=false so callers treat them as absent.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleCustomer, RoleEmployee, RoleAdmin, RoleOwner:
		return r, true
	default:
		return "", false
	}
}

// Rank orders roles by privilege. Unknown roles rank below guest.
func (r Role) Rank() int {
	if n, ok := roleRank[r]; ok {
		return n
	}
	return -1
}

// IsPrivileged reports whether r is employee, admin or owner.
func (r Role) IsPrivileged() bool { return r.Rank() >= RoleEmployee.Rank() }

// AtLeast reports whether r grants at least the privilege of min.
func (r Role) AtLeast(minRole Role) bool { return r.Rank() >= minRole.Rank() && r.Rank() >= 0 }

// Identity is the authenticated subject handed over by the identity provider.
type Identity struct {
	SubjectID       string `json:"subject_id" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email,max=320"`
	DisplayNameHint string `json:"display_name_hint,omitempty" validate:"max=200"`
}

// Normalize returns a copy with trimmed fields and a lowercased email.
func (i Identity) Normalize() Identity {
	return Identity{
		SubjectID:       strings.TrimSpace(i.SubjectID),
		Email:           NormalizeEmail(i.Email),
		DisplayNameHint: strings.TrimSpace(i.DisplayNameHint),
	}
}

// Key identifies the identity for coalescing purposes.
func (i Identity) Key() string { return i.SubjectID + "|" + i.Email }

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Session is the locally materialized result of a resolution run.
// Sessions are compared structurally; the struct must stay comparable.
type Session struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Equal reports structural equality, treating two nil sessions as equal.
func (s *Session) Equal(other *Session) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}
	return *s == *other
}

// For returns s only when it belongs to the identity's subject, else nil.
func (s *Session) For(id Identity) *Session {
	if s == nil || s.ID != id.SubjectID {
		return nil
	}
	return s
}

// ProfileRecord is the durable per-user row in the profile store.
type ProfileRecord struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	Name      string    `db:"name" json:"name"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// KnownRole returns the stored role if it is a recognized resolvable role.
func (p *ProfileRecord) KnownRole() (Role, bool) {
	if p == nil {
		return "", false
	}
	return ParseRole(p.Role)
}

// AllowListEntry is a pre-authorization of an email address to a role.
type AllowListEntry struct {
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DisplayName picks the profile name, then the provider hint, then the email local part.
func DisplayName(profile *ProfileRecord, id Identity) string {
	if profile != nil {
		if n := strings.TrimSpace(profile.Name); n != "" {
			return n
		}
	}
	if id.DisplayNameHint != "" {
		return id.DisplayNameHint
	}
	local, _, _ := strings.Cut(id.Email, "@")
	return local
}
