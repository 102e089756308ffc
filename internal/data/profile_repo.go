// Package data holds the Postgres repositories behind the role stores.
package data

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/glosswerks/glosswerks-api/internal/data/pgxutil"
	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

var _ ports.ProfileStore = (*ProfileRepo)(nil)

const profileColumns = `id, email, role, name, updated_at`

// ProfileRepo reads and writes rows of the profiles table.
type ProfileRepo struct {
	DB  *sql.DB
	now func() time.Time
}

// NewProfileRepo creates a new profile repository.
func NewProfileRepo(db *sql.DB, cfg RepoConfig) *ProfileRepo {
	return &ProfileRepo{DB: db, now: cfg.now()}
}

// GetByID returns the profile for a subject id. A missing row is a NotFound AppError.
// The stored role is returned verbatim; callers decide whether it is usable.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*domainauth.ProfileRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.ValidationField("id", "id is required")
	}

	var rec domainauth.ProfileRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()

		rec, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.ProfileRecord])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &rec, nil
}

// Upsert inserts or replaces the profile keyed by rec.ID.
func (r *ProfileRepo) Upsert(ctx context.Context, rec domainauth.ProfileRecord) error {
	rec.ID = strings.TrimSpace(rec.ID)
	rec.Email = domainauth.NormalizeEmail(rec.Email)
	switch {
	case rec.ID == "":
		return apperrors.ValidationField("id", "id is required")
	case rec.Email == "":
		return apperrors.ValidationField("email", "email is required")
	}
	role, ok := domainauth.ParseRole(rec.Role)
	if !ok {
		return apperrors.ValidationField("role", "unknown role "+rec.Role)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = r.now()
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO profiles (id, email, role, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (id) DO UPDATE
			SET email = EXCLUDED.email,
			    role = EXCLUDED.role,
			    name = EXCLUDED.name,
			    updated_at = EXCLUDED.updated_at`,
			rec.ID, rec.Email, string(role), rec.Name, rec.UpdatedAt)
		return err
	})
	return apperrors.MapDBError(err)
}
