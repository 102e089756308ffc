package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"text/tabwriter"
	"time"

	"github.com/glosswerks/glosswerks-api/internal/data"
	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

func runAllowListAdd(cmdCtx *commandContext, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: allowlist-add <email> <role>")
	}
	email, role, err := parseAllowListArgs(args[0], args[1])
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		return addAllowListEntry(ctx, data.NewAllowListRepo(db, data.RepoConfig{}), cmdCtx.Out, email, role)
	})
}

func runAllowListRemove(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: allowlist-remove <email>")
	}
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		return removeAllowListEntry(ctx, data.NewAllowListRepo(db, data.RepoConfig{}), cmdCtx.Out, args[0])
	})
}

func runAllowListList(cmdCtx *commandContext, _ []string) error {
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		return printAllowList(ctx, data.NewAllowListRepo(db, data.RepoConfig{}), cmdCtx.Out)
	})
}

// parseAllowListArgs validates the email and role. Guest is not a grantable role.
func parseAllowListArgs(rawEmail, rawRole string) (string, domainauth.Role, error) {
	email := domainauth.NormalizeEmail(rawEmail)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", "", fmt.Errorf("invalid email %q", rawEmail)
	}
	role, ok := domainauth.ParseRole(rawRole)
	if !ok {
		return "", "", fmt.Errorf("invalid role %q (valid options: customer, employee, admin, owner)", rawRole)
	}
	return email, role, nil
}

func addAllowListEntry(ctx context.Context, store ports.AllowListAdmin, w io.Writer, email string, role domainauth.Role) error {
	previous, err := store.LookupRole(ctx, email)
	if err != nil && !apperrors.IsNotFound(err) {
		return fmt.Errorf("lookup allow-list entry: %w", err)
	}
	if err := store.Add(ctx, email, role); err != nil {
		return fmt.Errorf("add allow-list entry: %w", err)
	}
	if previous != "" && previous != string(role) {
		return writef(w, "Updated %s: %s -> %s\n", email, previous, role)
	}
	return writef(w, "Pre-authorized %s as %s\n", email, role)
}

func removeAllowListEntry(ctx context.Context, store ports.AllowListAdmin, w io.Writer, email string) error {
	removed, err := store.Remove(ctx, email)
	if err != nil {
		return fmt.Errorf("remove allow-list entry: %w", err)
	}
	if !removed {
		return fmt.Errorf("no allow-list entry for %s", domainauth.NormalizeEmail(email))
	}
	return writef(w, "Removed %s from the allow-list\n", domainauth.NormalizeEmail(email))
}

func printAllowList(ctx context.Context, store ports.AllowListAdmin, w io.Writer) error {
	entries, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list allow-list: %w", err)
	}
	if len(entries) == 0 {
		return writeln(w, "The allow-list is empty.")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "EMAIL\tROLE\tADDED\n"); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writef(tw, "%s\t%s\t%s\n", e.Email, e.Role, e.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tw.Flush()
}
