package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/glosswerks/glosswerks-api/internal/data/pgxutil"
	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

var _ ports.AllowListAdmin = (*AllowListRepo)(nil)

const allowListColumns = `email, role, created_at`

// AllowListRepo manages the authorized_users table of pre-authorized staff emails.
type AllowListRepo struct {
	DB  *sql.DB
	now func() time.Time
}

// NewAllowListRepo creates a new allow-list repository.
func NewAllowListRepo(db *sql.DB, cfg RepoConfig) *AllowListRepo {
	return &AllowListRepo{DB: db, now: cfg.now()}
}

// LookupRole returns the raw role stored for email, or a NotFound AppError.
// Emails are compared case-insensitively.
func (r *AllowListRepo) LookupRole(ctx context.Context, email string) (string, error) {
	email = domainauth.NormalizeEmail(email)
	if email == "" {
		return "", apperrors.ValidationField("email", "email is required")
	}

	var role string
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `SELECT role FROM authorized_users WHERE email = $1`, email).Scan(&role)
	})
	if err != nil {
		return "", apperrors.MapDBError(err)
	}
	return role, nil
}

// Add pre-authorizes email with role, replacing any existing entry.
func (r *AllowListRepo) Add(ctx context.Context, email string, role domainauth.Role) error {
	email = domainauth.NormalizeEmail(email)
	if email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if _, ok := domainauth.ParseRole(string(role)); !ok {
		return apperrors.ValidationField("role", "unknown role "+string(role))
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO authorized_users (email, role, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role`,
			email, string(role), r.now())
		return err
	})
	return apperrors.MapDBError(err)
}

// Remove deletes the entry for email and reports whether one existed.
func (r *AllowListRepo) Remove(ctx context.Context, email string) (bool, error) {
	email = domainauth.NormalizeEmail(email)
	if email == "" {
		return false, apperrors.ValidationField("email", "email is required")
	}

	var removed bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM authorized_users WHERE email = $1`, email)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return removed, nil
}

// List returns every entry ordered by email.
func (r *AllowListRepo) List(ctx context.Context) ([]domainauth.AllowListEntry, error) {
	var entries []domainauth.AllowListEntry
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+allowListColumns+` FROM authorized_users ORDER BY email`)
		if err != nil {
			return err
		}
		entries, err = pgx.CollectRows(rows, pgx.RowToStructByName[domainauth.AllowListEntry])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return entries, nil
}
