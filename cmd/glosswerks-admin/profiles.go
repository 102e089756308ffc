package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/glosswerks/glosswerks-api/internal/data"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

func runProfileShow(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: profile-show <subject_id>")
	}
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		return printProfile(ctx, data.NewProfileRepo(db, data.RepoConfig{}), data.NewAllowListRepo(db, data.RepoConfig{}), cmdCtx.Out, args[0])
	})
}

// printProfile shows the stored profile next to the allow-list entry for its email.
func printProfile(ctx context.Context, profiles ports.ProfileStore, allow ports.AllowListStore, w io.Writer, id string) error {
	rec, err := profiles.GetByID(ctx, id)
	if apperrors.IsNotFound(err) {
		return fmt.Errorf("no profile for subject %q", id)
	}
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	stored := rec.Role
	if _, ok := rec.KnownRole(); !ok {
		stored += " (unrecognized; ignored during resolution)"
	}
	allowRole, err := allow.LookupRole(ctx, rec.Email)
	switch {
	case apperrors.IsNotFound(err):
		allowRole = "-"
	case err != nil:
		allowRole = "unavailable: " + err.Error()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Subject", rec.ID},
		{"Email", rec.Email},
		{"Name", rec.Name},
		{"Stored role", stored},
		{"Allow-list role", allowRole},
		{"Updated", rec.UpdatedAt.UTC().Format(time.RFC3339)},
	}
	for _, row := range rows {
		if err := writef(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}
