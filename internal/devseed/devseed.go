// Package devseed loads demo allow-list entries and profiles into a development database.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/glosswerks/glosswerks-api/internal/data"
	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

// Stores bundles the stores seeding writes to.
type Stores struct {
	AllowList ports.AllowListAdmin
	Profiles  ports.ProfileStore
}

// NewStores builds Postgres-backed stores for seeding.
func NewStores(db *sql.DB) Stores {
	return Stores{
		AllowList: data.NewAllowListRepo(db, data.RepoConfig{}),
		Profiles:  data.NewProfileRepo(db, data.RepoConfig{}),
	}
}

type allowListSeed struct {
	email string
	role  domainauth.Role
}

func defaultAllowList() []allowListSeed {
	return []allowListSeed{
		{email: "owner@glosswerks.test", role: domainauth.RoleOwner},
		{email: "manager@glosswerks.test", role: domainauth.RoleAdmin},
		{email: "detailer@glosswerks.test", role: domainauth.RoleEmployee},
		{email: "detailer2@glosswerks.test", role: domainauth.RoleEmployee},
	}
}

func defaultProfiles() []domainauth.ProfileRecord {
	return []domainauth.ProfileRecord{
		{ID: "dev-owner", Email: "owner@glosswerks.test", Role: string(domainauth.RoleOwner), Name: "Olive Owner"},
		{ID: "dev-detailer", Email: "detailer@glosswerks.test", Role: string(domainauth.RoleEmployee), Name: "Dana Detailer"},
		{ID: "dev-customer", Email: "customer@glosswerks.test", Role: string(domainauth.RoleCustomer), Name: "Casey Customer"},
	}
}

// Run seeds demo data. Existing entries and profiles are left alone so local edits survive reseeding.
func Run(ctx context.Context, stores Stores, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	failures := 0
	failures += seedAllowList(ctx, stores.AllowList, logger)
	failures += seedProfiles(ctx, stores.Profiles, logger)
	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func seedAllowList(ctx context.Context, store ports.AllowListAdmin, logger *slog.Logger) int {
	if store == nil {
		return 0
	}
	failures, created := 0, 0
	for _, seed := range defaultAllowList() {
		_, err := store.LookupRole(ctx, seed.email)
		switch {
		case err == nil:
			continue
		case !apperrors.IsNotFound(err):
			logger.WarnContext(ctx, "allow-list lookup failed", "email", seed.email, "error", err)
			failures++
			continue
		}
		if err := store.Add(ctx, seed.email, seed.role); err != nil {
			logger.WarnContext(ctx, "seed allow-list entry failed", "email", seed.email, "error", err)
			failures++
			continue
		}
		created++
	}
	logger.InfoContext(ctx, "seeded allow-list", "created", created)
	return failures
}

func seedProfiles(ctx context.Context, store ports.ProfileStore, logger *slog.Logger) int {
	if store == nil {
		return 0
	}
	failures, created := 0, 0
	for _, rec := range defaultProfiles() {
		_, err := store.GetByID(ctx, rec.ID)
		switch {
		case err == nil:
			continue
		case !apperrors.IsNotFound(err):
			logger.WarnContext(ctx, "profile lookup failed", "id", rec.ID, "error", err)
			failures++
			continue
		}
		if err := store.Upsert(ctx, rec); err != nil {
			logger.WarnContext(ctx, "seed profile failed", "id", rec.ID, "error", err)
			failures++
			continue
		}
		created++
	}
	logger.InfoContext(ctx, "seeded profiles", "created", created)
	return failures
}
